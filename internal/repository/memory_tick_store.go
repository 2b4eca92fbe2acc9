package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
)

// MemoryTickStore keeps ticks in process memory, one ts-ordered slice per
// indicator. Used for tests and the "memory" store backend.
type MemoryTickStore struct {
	mu    sync.RWMutex
	ticks map[string][]models.Tick
}

func NewMemoryTickStore() *MemoryTickStore {
	return &MemoryTickStore{ticks: make(map[string][]models.Tick)}
}

func (s *MemoryTickStore) Append(_ context.Context, ts int64, indicator string, value float64) error {
	if !isFinite(value) {
		return fmt.Errorf("append %s@%d: %w", indicator, ts, domrepo.ErrInvalidValue)
	}
	s.mu.Lock()
	s.insert(models.Tick{Timestamp: ts, Indicator: indicator, Value: value})
	s.mu.Unlock()
	return nil
}

func (s *MemoryTickStore) AppendBatch(_ context.Context, ts int64, values map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for indicator, v := range values {
		if !isFinite(v) {
			continue
		}
		s.insert(models.Tick{Timestamp: ts, Indicator: indicator, Value: v})
	}
	return nil
}

// insert keeps the per-indicator slice sorted; equal timestamps keep
// insertion order. Caller holds the write lock.
func (s *MemoryTickStore) insert(t models.Tick) {
	list := s.ticks[t.Indicator]
	i := sort.Search(len(list), func(i int) bool { return list[i].Timestamp > t.Timestamp })
	list = append(list, models.Tick{})
	copy(list[i+1:], list[i:])
	list[i] = t
	s.ticks[t.Indicator] = list
}

func (s *MemoryTickStore) Query(_ context.Context, indicator string, start, end int64) ([]models.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.ticks[indicator]
	lo := sort.Search(len(list), func(i int) bool { return list[i].Timestamp >= start })
	hi := sort.Search(len(list), func(i int) bool { return list[i].Timestamp > end })
	if lo >= hi {
		return []models.Tick{}, nil
	}
	out := make([]models.Tick, hi-lo)
	copy(out, list[lo:hi])
	return out, nil
}

func (s *MemoryTickStore) Health(context.Context) error { return nil }

func (s *MemoryTickStore) Close() error { return nil }

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// finiteTicks expands a batch into ticks, dropping non-finite values and
// ordering by indicator so SQL backends insert deterministically.
func finiteTicks(ts int64, values map[string]float64) []models.Tick {
	out := make([]models.Tick, 0, len(values))
	for indicator, v := range values {
		if !isFinite(v) {
			continue
		}
		out = append(out, models.Tick{Timestamp: ts, Indicator: indicator, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Indicator < out[j].Indicator })
	return out
}

var _ domrepo.TickStore = (*MemoryTickStore)(nil)
