package middleware

import (
	"errors"
	"testing"
	"time"

	"GridPulse/internal/domain/models"
	"GridPulse/pkg/queue"
)

type countingMetrics struct {
	readings map[string]int
	errors   map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{readings: map[string]int{}, errors: map[string]int{}}
}

func (m *countingMetrics) RecordReading(source string)    { m.readings[source]++ }
func (m *countingMetrics) RecordError(kind string)        { m.errors[kind]++ }
func (m *countingMetrics) RecordLatency(string, float64)  {}
func (m *countingMetrics) RecordQueueDepth(int)           {}
func (m *countingMetrics) RecordSnapshot(models.Snapshot) {}

func reading() models.Reading {
	r := make(models.Reading, models.SequenceLength)
	for i := range r {
		r[i] = 0.5
	}
	return r
}

func TestAcceptEnqueues(t *testing.T) {
	q := queue.New[models.Reading](4)
	m := newCountingMetrics()
	p := NewIngressPipeline(q, m)

	if err := p.Accept("mqtt", reading()); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if p.Depth() != 1 || m.readings["mqtt"] != 1 {
		t.Fatalf("depth = %d, readings = %v", p.Depth(), m.readings)
	}
}

func TestAcceptRejectsBadShape(t *testing.T) {
	q := queue.New[models.Reading](4)
	m := newCountingMetrics()
	p := NewIngressPipeline(q, m)

	err := p.Accept("mqtt", models.Reading{1, 2, 3})
	if !errors.Is(err, models.ErrInvalidInputShape) {
		t.Fatalf("err = %v", err)
	}
	if q.Len() != 0 || m.errors["ingress_shape"] != 1 {
		t.Fatalf("bad reading reached the queue or was not counted")
	}
}

func TestAcceptQueueFull(t *testing.T) {
	q := queue.New[models.Reading](2)
	m := newCountingMetrics()
	p := NewIngressPipeline(q, m)

	for i := 0; i < 2; i++ {
		if err := p.Accept("kafka", reading()); err != nil {
			t.Fatalf("accept %d: %v", i, err)
		}
	}
	if err := p.Accept("kafka", reading()); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if m.errors["queue_full"] != 1 || m.readings["kafka"] != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestAcceptThrottle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	q := queue.New[models.Reading](8)
	m := newCountingMetrics()
	p := NewIngressPipeline(q, m, WithMaxRPS(2), WithClock(func() time.Time { return now }))

	if err := p.Accept("nats", reading()); err != nil {
		t.Fatalf("first: %v", err)
	}
	now = now.Add(100 * time.Millisecond)
	if err := p.Accept("nats", reading()); !errors.Is(err, ErrThrottled) {
		t.Fatalf("second err = %v", err)
	}
	// other sources have their own budget
	if err := p.Accept("mqtt", reading()); err != nil {
		t.Fatalf("other source: %v", err)
	}
	now = now.Add(500 * time.Millisecond)
	if err := p.Accept("nats", reading()); err != nil {
		t.Fatalf("after interval: %v", err)
	}
	if q.Len() != 3 {
		t.Fatalf("queued = %d", q.Len())
	}
}
