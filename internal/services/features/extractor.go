package features

import (
	"math"
	"time"

	"MacroPulse/internal/domain/models"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
// Yields and spreads can be zero or negative, so non-positive closes yield 0.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the last
// window returns using the provided number of bars per year.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear returns the number of buckets of the given width in a year.
func BarsPerYear(bucket time.Duration) float64 {
	if bucket <= 0 {
		return 0
	}
	return float64(365*24*time.Hour) / float64(bucket)
}

// Summary condenses a candle series into the numbers the analysis prompt needs.
type Summary struct {
	Buckets     int     `json:"buckets"`
	First       float64 `json:"first"`
	Last        float64 `json:"last"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Change      float64 `json:"change"`
	ChangePct   float64 `json:"changePct"`
	RealizedVol float64 `json:"realizedVol"`
}

// Summarize reduces candles of the given bucket width. Returns ok=false for
// an empty series.
func Summarize(candles []models.Candle, bucket time.Duration) (Summary, bool) {
	if len(candles) == 0 {
		return Summary{}, false
	}
	s := Summary{
		Buckets: len(candles),
		First:   candles[0].Open,
		Last:    candles[len(candles)-1].Close,
		High:    candles[0].High,
		Low:     candles[0].Low,
	}
	for _, c := range candles[1:] {
		s.High = math.Max(s.High, c.High)
		s.Low = math.Min(s.Low, c.Low)
	}
	s.Change = s.Last - s.First
	if s.First != 0 {
		s.ChangePct = s.Change / math.Abs(s.First) * 100
	}
	rets := ComputeLogReturns(candles)
	s.RealizedVol = RealizedVolatility(rets, len(rets), BarsPerYear(bucket))
	return s, true
}
