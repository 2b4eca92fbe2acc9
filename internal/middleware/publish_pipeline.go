package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	applogger "MacroPulse/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

// PublishPipeline sits between the collector and a TickPublisher.
// It validates batches, forwards them and, when downstream is unavailable,
// keeps failed batches in a bounded buffer that a background worker retries.
type PublishPipeline struct {
	next    domrepo.TickPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger

	bufSize     int
	bufCh       chan []models.Tick
	stopCh      chan struct{}
	done        chan struct{}
	started     bool
	mu          sync.Mutex
	sendTimeout time.Duration
	newBackOff  func() backoff.BackOff
}

type PipelineOption func(*PublishPipeline)

// WithBufferSize sets how many failed batches are kept for retry.
func WithBufferSize(n int) PipelineOption {
	return func(p *PublishPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithSendTimeout bounds each retry attempt.
func WithSendTimeout(d time.Duration) PipelineOption {
	return func(p *PublishPipeline) {
		if d > 0 {
			p.sendTimeout = d
		}
	}
}

// WithRetryBackOff overrides the retry schedule.
func WithRetryBackOff(fn func() backoff.BackOff) PipelineOption {
	return func(p *PublishPipeline) { p.newBackOff = fn }
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *PublishPipeline) {
		if l != nil {
			p.l = l
		}
	}
}

// NewPublishPipeline creates a new pipeline. Call Start to enable retries.
func NewPublishPipeline(next domrepo.TickPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *PublishPipeline {
	p := &PublishPipeline{
		next:        next,
		metrics:     metrics,
		l:           applogger.Nop(),
		bufSize:     256,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
		sendTimeout: 10 * time.Second,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan []models.Tick, p.bufSize)
	return p
}

// Start launches background flushing of buffered batches.
func (p *PublishPipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	go p.flushLoop()
}

func (p *PublishPipeline) flushLoop() {
	defer close(p.done)
	bo := p.newBackOff()
	for {
		select {
		case <-p.stopCh:
			return
		case batch := <-p.bufCh:
			ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
			err := p.next.PublishTicks(ctx, batch)
			cancel()
			if err == nil {
				bo.Reset()
				continue
			}
			p.metrics.RecordError("publish_retry")
			p.l.Debug("buffered publish failed", applogger.Int("ticks", len(batch)), applogger.Error(err))
			p.enqueue(batch)

			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				wait = time.Second
			}
			t := time.NewTimer(wait)
			select {
			case <-p.stopCh:
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}

// PublishTicks validates the batch and forwards it. On a downstream failure
// the batch is buffered for retry and the error is still returned.
func (p *PublishPipeline) PublishTicks(ctx context.Context, ticks []models.Tick) error {
	start := time.Now()
	if len(ticks) == 0 {
		return nil
	}
	if err := validateTicks(ticks); err != nil {
		p.metrics.RecordError("publish_validate")
		return err
	}
	if err := p.next.PublishTicks(ctx, ticks); err != nil {
		p.enqueue(ticks)
		return fmt.Errorf("publish downstream: %w", err)
	}
	p.metrics.RecordLatency("publish", time.Since(start).Seconds())
	return nil
}

// Buffered returns the number of batches waiting for retry.
func (p *PublishPipeline) Buffered() int {
	return len(p.bufCh)
}

// Close stops the retry worker and closes the downstream publisher.
// Batches still buffered are dropped.
func (p *PublishPipeline) Close() error {
	p.mu.Lock()
	started := p.started
	p.started = false
	p.mu.Unlock()
	if started {
		close(p.stopCh)
		<-p.done
	}
	if n := len(p.bufCh); n > 0 {
		p.l.Warn("dropping buffered tick batches on close", applogger.Int("batches", n))
	}
	return p.next.Close()
}

func (p *PublishPipeline) enqueue(batch []models.Tick) {
	select {
	case p.bufCh <- batch:
	default:
		p.metrics.RecordError("publish_buffer_full")
	}
}

func validateTicks(ticks []models.Tick) error {
	for _, t := range ticks {
		if t.Indicator == "" {
			return fmt.Errorf("tick at %d: indicator empty", t.Timestamp)
		}
		if t.Timestamp <= 0 {
			return fmt.Errorf("tick %s: timestamp invalid", t.Indicator)
		}
		if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) {
			return fmt.Errorf("tick %s: %w", t.Indicator, domrepo.ErrInvalidValue)
		}
	}
	return nil
}

var _ domrepo.TickPublisher = (*PublishPipeline)(nil)
