package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	domrepo "MacroPulse/internal/domain/repository"
	domsvc "MacroPulse/internal/domain/service"
	applogger "MacroPulse/pkg/logger"
)

const systemPrompt = "You are a macroeconomic analyst covering the Korean won, US dollar and government bond markets. " +
	"Answer in short paragraphs grounded only in the data provided."

// Option configures Generator.
type Option func(*Generator)

func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(g *Generator) { g.maxTokens = n }
}

func WithTemperature(t float32) Option {
	return func(g *Generator) { g.temperature = t }
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(g *Generator) { g.baseURL = url }
}

// Generator implements domain Generator with the OpenAI chat completion API.
type Generator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	baseURL     string
	l           *applogger.Logger
}

func NewGenerator(apiKey string, l *applogger.Logger, opts ...Option) *Generator {
	g := &Generator{
		model:       openai.GPT4oMini,
		maxTokens:   600,
		temperature: 0.3,
		l:           l,
	}
	if g.l == nil {
		g.l = applogger.Nop()
	}
	for _, opt := range opts {
		opt(g)
	}
	cfg := openai.DefaultConfig(apiKey)
	if g.baseURL != "" {
		cfg.BaseURL = g.baseURL
	}
	g.client = openai.NewClientWithConfig(cfg)
	return g
}

func (g *Generator) Generate(ctx context.Context, prompt string, _ map[string]any) (string, error) {
	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		cerr := classify(err)
		g.l.Warn("openai completion failed",
			applogger.String("model", g.model),
			applogger.Duration("duration_ms", time.Since(start)),
			applogger.Error(err),
		)
		return "", cerr
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domrepo.ErrDownstreamError)
	}
	g.l.Debug("openai completion ok",
		applogger.String("model", g.model),
		applogger.Int("total_tokens", resp.Usage.TotalTokens),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classify maps client errors onto the downstream sentinels.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code, _ := apiErr.Code.(string)
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || code == "rate_limit_exceeded" || code == "insufficient_quota" {
			return fmt.Errorf("%w: %s", domrepo.ErrDownstreamRateLimited, apiErr.Message)
		}
		return fmt.Errorf("%w: status %d: %s", domrepo.ErrDownstreamError, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", domrepo.ErrDownstreamRateLimited, reqErr.Err)
	}
	return fmt.Errorf("%w: %v", domrepo.ErrDownstreamError, err)
}

// Disabled is used when no API key is configured. Every call degrades.
type Disabled struct{}

func (Disabled) Generate(context.Context, string, map[string]any) (string, error) {
	return "", fmt.Errorf("%w: generation backend not configured", domrepo.ErrDownstreamError)
}

var (
	_ domsvc.Generator = (*Generator)(nil)
	_ domsvc.Generator = Disabled{}
)
