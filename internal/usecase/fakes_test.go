package usecase

import (
	"context"
	"errors"
	"sync"

	"GridPulse/internal/domain/models"
)

type fakeMetrics struct {
	mu       sync.Mutex
	readings map[string]int
	errors   map[string]int
	depth    int
	snap     models.Snapshot
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{readings: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordReading(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings[s]++
}

func (m *fakeMetrics) RecordError(k string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[k]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) RecordQueueDepth(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depth = n
}

func (m *fakeMetrics) RecordSnapshot(s models.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = s
}

func (m *fakeMetrics) errorCount(k string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[k]
}

// identityCore echoes the last sample as observed and adds a fixed step as forecast.
type identityCore struct {
	step   float64
	failOn float64 // a reading whose last sample equals failOn fails
	panics bool
	calls  int
}

func (c *identityCore) Infer(_ context.Context, r models.Reading) (models.InferenceResult, error) {
	c.calls++
	if c.panics {
		panic("boom")
	}
	if c.failOn != 0 && r.Last() == c.failOn {
		return models.InferenceResult{}, errors.New("model exploded")
	}
	return models.InferenceResult{Observed: r.Last(), Forecast: r.Last() + c.step}, nil
}

type recordingSink struct {
	name   string
	err    error
	frames []*models.Frame
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Render(_ context.Context, f *models.Frame) error {
	s.frames = append(s.frames, f)
	return s.err
}

func (s *recordingSink) last() *models.Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

type staticIngress bool

func (s staticIngress) Connected() bool { return bool(s) }

func readingEndingAt(v float64) models.Reading {
	r := make(models.Reading, models.SequenceLength)
	for i := range r {
		r[i] = v
	}
	return r
}
