package usecase

import (
	"context"
	"fmt"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	svccache "MacroPulse/internal/service/cache"
	applogger "MacroPulse/pkg/logger"
)

const headlinesKey = "headlines"

// NewsUseCase serves headlines from a short-lived in-process cache in front
// of the headline source.
type NewsUseCase struct {
	src   domrepo.HeadlineSource
	cache *svccache.TTLCache[[]models.Headline]
	ttl   time.Duration
	l     *applogger.Logger
}

func NewNewsUseCase(src domrepo.HeadlineSource, cache *svccache.TTLCache[[]models.Headline], ttl time.Duration, l *applogger.Logger) *NewsUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	return &NewsUseCase{src: src, cache: cache, ttl: ttl, l: l}
}

// Headlines returns up to limit headlines. A failed refresh falls back to
// the last cached list when there is one.
func (uc *NewsUseCase) Headlines(ctx context.Context, limit int) ([]models.Headline, error) {
	if hs, ok := uc.cache.Get(headlinesKey); ok {
		return clip(hs, limit), nil
	}
	hs, err := uc.src.Headlines(ctx)
	if err != nil {
		if stale, ok := uc.cache.Peek(headlinesKey); ok {
			uc.l.Warn("headline refresh failed, serving cached", applogger.Error(err))
			return clip(stale, limit), nil
		}
		return nil, fmt.Errorf("fetch headlines: %w", err)
	}
	uc.cache.Set(headlinesKey, hs, uc.ttl)
	return clip(hs, limit), nil
}

// Cached returns whatever is in the cache without touching the network.
func (uc *NewsUseCase) Cached(limit int) []models.Headline {
	hs, _ := uc.cache.Peek(headlinesKey)
	return clip(hs, limit)
}

func clip(hs []models.Headline, limit int) []models.Headline {
	if limit > 0 && len(hs) > limit {
		return hs[:limit]
	}
	if hs == nil {
		return []models.Headline{}
	}
	return hs
}
