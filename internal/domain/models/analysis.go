package models

import "time"

// AnalysisStatus describes how an analysis result was produced.
type AnalysisStatus string

const (
	AnalysisFresh    AnalysisStatus = "fresh"    // generated by this request
	AnalysisCached   AnalysisStatus = "cached"   // served from cache within TTL
	AnalysisStale    AnalysisStatus = "stale"    // expired cache entry served after a downstream failure
	AnalysisDegraded AnalysisStatus = "degraded" // placeholder, nothing cached
	AnalysisWait     AnalysisStatus = "wait"     // cooldown active and nothing fresh cached
)

// AnalysisEntry is what the analysis cache stores per subject.
type AnalysisEntry struct {
	Subject     string `json:"subject"`
	GeneratedAt int64  `json:"generatedAt"`
	Text        string `json:"text"`
}

// AnalysisResult is returned to callers of the analysis guard.
type AnalysisResult struct {
	Subject     string         `json:"subject"`
	Status      AnalysisStatus `json:"status"`
	Text        string         `json:"text"`
	GeneratedAt int64          `json:"generatedAt,omitempty"`
	RetryAfter  time.Duration  `json:"-"`
	RetryAfterS int            `json:"retryAfterSeconds,omitempty"`
}
