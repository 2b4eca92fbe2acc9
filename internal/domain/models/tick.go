package models

// Tick is one timestamped observation of one indicator.
// Timestamp is epoch milliseconds everywhere in the system.
type Tick struct {
	Timestamp int64   `json:"ts"`
	Indicator string  `json:"indicator"`
	Value     float64 `json:"value"`
}

// Candle is the OHLC summary of all ticks inside one half-open bucket
// [BucketStart, BucketStart+width).
type Candle struct {
	BucketStart int64   `json:"bucketStart"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Count       int     `json:"count"`
}

// ComputedIndicator is derived from two primary indicators by subtraction.
type ComputedIndicator struct {
	Symbol     string
	Minuend    string
	Subtrahend string
}

// Headline is a single news item returned by a headline source.
type Headline struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}
