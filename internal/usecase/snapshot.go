package usecase

import (
	"sync"
	"sync/atomic"

	"MacroPulse/internal/domain/models"
)

// SnapshotHolder owns the latest snapshot. The collector is the only writer;
// readers get an immutable *Snapshot that is either the previous or the new
// one, never a mix.
type SnapshotHolder struct {
	p atomic.Pointer[models.Snapshot]

	mu        sync.RWMutex
	listeners []func(*models.Snapshot)
}

func NewSnapshotHolder() *SnapshotHolder {
	h := &SnapshotHolder{}
	h.p.Store(&models.Snapshot{
		Values: map[string]float64{},
		Status: models.StatusOK,
		Errors: []string{},
	})
	return h
}

// Load returns the current snapshot. Callers must not modify it.
func (h *SnapshotHolder) Load() *models.Snapshot {
	return h.p.Load()
}

// Subscribe registers fn to be called after every publish. fn runs on the
// collector goroutine and must not block.
func (h *SnapshotHolder) Subscribe(fn func(*models.Snapshot)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

func (h *SnapshotHolder) publish(s *models.Snapshot) {
	h.p.Store(s)
	h.mu.RLock()
	ls := h.listeners
	h.mu.RUnlock()
	for _, fn := range ls {
		fn(s)
	}
}
