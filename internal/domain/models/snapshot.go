package models

type SnapshotStatus string

const (
	StatusOK       SnapshotStatus = "OK"
	StatusDegraded SnapshotStatus = "DEGRADED"
)

// MaxSnapshotErrors caps the error list carried by a snapshot.
const MaxSnapshotErrors = 10

// Snapshot is the most recently known value of every indicator.
// A published Snapshot is never mutated; each cycle builds a new one.
type Snapshot struct {
	Values map[string]float64 `json:"values"`
	AsOf   int64              `json:"asOf"`
	Status SnapshotStatus     `json:"status"`
	Errors []string           `json:"errors"`
}

// Value returns the indicator's value and whether it has ever been observed.
func (s *Snapshot) Value(indicator string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.Values[indicator]
	return v, ok
}

// Clone returns a deep copy safe for the caller to modify.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Values: make(map[string]float64, len(s.Values)),
		AsOf:   s.AsOf,
		Status: s.Status,
		Errors: append([]string(nil), s.Errors...),
	}
	for k, v := range s.Values {
		out.Values[k] = v
	}
	return out
}
