package middleware

import (
	"errors"
	"sync"
	"time"

	"GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
	"GridPulse/pkg/queue"
)

// ErrQueueFull is returned when the hand-off queue refuses a reading.
var ErrQueueFull = errors.New("hand-off queue full")

// ErrThrottled is returned when a reading arrives faster than the configured rate.
var ErrThrottled = errors.New("reading throttled")

// IngressPipeline sits between a broker callback and the tick loop. It
// validates, optionally throttles, and enqueues without ever blocking the
// caller.
type IngressPipeline struct {
	queue   *queue.Handoff[models.Reading]
	metrics domrepo.Metrics
	maxRPS  int

	mu       sync.Mutex
	lastSeen map[string]time.Time // per-source last accepted time
	now      func() time.Time
}

type PipelineOption func(*IngressPipeline)

// WithMaxRPS caps accepted readings per second per source. Zero disables it.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngressPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *IngressPipeline) { p.now = now }
}

func NewIngressPipeline(q *queue.Handoff[models.Reading], metrics domrepo.Metrics, opts ...PipelineOption) *IngressPipeline {
	p := &IngressPipeline{
		queue:    q,
		metrics:  metrics,
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Accept enqueues r on behalf of source. Invalid readings are rejected with
// ErrInvalidInputShape before they reach the queue.
func (p *IngressPipeline) Accept(source string, r models.Reading) error {
	if err := r.Validate(); err != nil {
		p.metrics.RecordError("ingress_shape")
		return err
	}
	if !p.allow(source, p.now()) {
		p.metrics.RecordError("ingress_throttle")
		return ErrThrottled
	}
	if !p.queue.Put(r) {
		p.metrics.RecordError("queue_full")
		return ErrQueueFull
	}
	p.metrics.RecordReading(source)
	return nil
}

// Depth is the number of readings waiting for the next tick.
func (p *IngressPipeline) Depth() int { return p.queue.Len() }

func (p *IngressPipeline) allow(source string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSeen[source]
	if ok && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[source] = now
	return true
}
