package cache

import (
	"context"
	"errors"
	"fmt"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	pkgcache "MacroPulse/pkg/cache"
)

const analysisKeyPrefix = "analysis"

// AnalysisStore keeps the last generated analysis per subject. Entries never
// expire in the backend; freshness is judged by the caller from GeneratedAt so
// an old entry can still be served as stale.
type AnalysisStore struct {
	c pkgcache.Service
}

func NewAnalysisStore(c pkgcache.Service) *AnalysisStore {
	return &AnalysisStore{c: c}
}

func (s *AnalysisStore) Get(ctx context.Context, subject string) (*models.AnalysisEntry, bool, error) {
	var e models.AnalysisEntry
	err := s.c.Get(ctx, pkgcache.GenerateKey(analysisKeyPrefix, subject), &e)
	if errors.Is(err, pkgcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("analysis get %s: %w", subject, err)
	}
	return &e, true, nil
}

func (s *AnalysisStore) Put(ctx context.Context, e models.AnalysisEntry) error {
	if err := s.c.Set(ctx, pkgcache.GenerateKey(analysisKeyPrefix, e.Subject), e, 0); err != nil {
		return fmt.Errorf("analysis put %s: %w", e.Subject, err)
	}
	return nil
}

var _ domrepo.AnalysisStore = (*AnalysisStore)(nil)
