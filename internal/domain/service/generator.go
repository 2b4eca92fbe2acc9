package service

import "context"

// Generator produces narrative text for a prompt. Implementations return
// errors wrapping repository.ErrDownstreamRateLimited when throttled and
// repository.ErrDownstreamError otherwise.
type Generator interface {
	Generate(ctx context.Context, prompt string, data map[string]any) (string, error)
}
