package models

// Requests for the query API. Defined in domain for consistency and reuse.

type CandlesRequest struct {
	Indicator string `query:"indicator" json:"indicator" validate:"required"`
	Interval  string `query:"interval" json:"interval" default:"1m"`
	Range     string `query:"range" json:"range" default:"1d"`
}

type AnalysisRequest struct {
	Subject string `param:"subject" json:"subject" validate:"required,max=32"`
}

type NewsRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}
