package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"GridPulse/internal/domain/models"
	applogger "GridPulse/pkg/logger"
)

// ReadingPublisher sends one encoded reading to the broker.
type ReadingPublisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// SimulatorConfig shapes the synthetic load curve. Values are in the model's
// normalized space, one sample per simulated minute.
type SimulatorConfig struct {
	Interval  time.Duration
	Count     int     // 0 publishes until ctx ends
	Base      float64 // mean level
	Amplitude float64 // daily swing
	Noise     float64 // gaussian noise stddev
	Seed      int64
}

// Simulator publishes sliding 24-sample windows of a daily sine with noise,
// the shape the field gateway sends.
type Simulator struct {
	cfg    SimulatorConfig
	pub    ReadingPublisher
	log    *applogger.Logger
	rng    *rand.Rand
	window []float64
	minute int
}

func NewSimulator(cfg SimulatorConfig, pub ReadingPublisher, l *applogger.Logger) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	s := &Simulator{cfg: cfg, pub: pub, log: l, rng: rand.New(rand.NewSource(cfg.Seed))}
	for i := 0; i < models.SequenceLength; i++ {
		s.window = append(s.window, s.sample())
	}
	return s
}

func (s *Simulator) sample() float64 {
	phase := 2 * math.Pi * float64(s.minute%1440) / 1440
	s.minute++
	v := s.cfg.Base + s.cfg.Amplitude*math.Sin(phase) + s.rng.NormFloat64()*s.cfg.Noise
	return math.Max(0, math.Min(1, v))
}

// Next advances the curve one step and returns the encoded payload.
func (s *Simulator) Next() ([]byte, error) {
	s.window = append(s.window[1:], s.sample())
	col := make([][]float64, len(s.window))
	for i, v := range s.window {
		col[i] = []float64{v}
	}
	return json.Marshal(map[string]interface{}{"data": col})
}

// Run publishes until Count readings went out or ctx ends.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	sent := 0
	for s.cfg.Count == 0 || sent < s.cfg.Count {
		b, err := s.Next()
		if err != nil {
			return err
		}
		if err := s.pub.Publish(ctx, b); err != nil {
			return fmt.Errorf("publish reading %d: %w", sent+1, err)
		}
		sent++
		s.log.Debug("reading published", applogger.Int("n", sent), applogger.Float64("last", s.window[len(s.window)-1]))

		select {
		case <-ctx.Done():
			s.log.Info("simulator stopped", applogger.Int("sent", sent))
			return nil
		case <-ticker.C:
		}
	}
	s.log.Info("simulator finished", applogger.Int("sent", sent))
	return nil
}
