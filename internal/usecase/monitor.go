package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
	domsvc "GridPulse/internal/domain/service"
	"GridPulse/internal/services/aggregation"
	applogger "GridPulse/pkg/logger"
	"GridPulse/pkg/queue"
)

// IngressStatus reports whether the reading transport is connected.
type IngressStatus interface {
	Connected() bool
}

const warnInferenceUnavailable = "inference unavailable: readings are discarded until the model and scaler load"

// Monitor is the tick loop. Once per interval it drains the hand-off queue,
// runs inference on each reading in order, folds results into the history
// window and renders a frame to every sink. The window and settings are only
// touched from the loop goroutine; callers reach them through commands.
type Monitor struct {
	interval time.Duration
	bounds   models.SettingsBounds
	queue    *queue.Handoff[models.Reading]
	core     domsvc.Forecaster
	window   *aggregation.HistoryWindow
	settings models.Settings
	sinks    []domrepo.FrameSink
	ingress  IngressStatus
	metrics  domrepo.Metrics
	log      *applogger.Logger
	now      func() time.Time

	cmds        chan command
	stopped     chan struct{}
	tick        uint64
	sinkFailing map[string]bool
}

type command struct {
	run  func()
	done chan struct{}
}

type MonitorOption func(*Monitor)

func WithTickInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithHistorySize(n int) MonitorOption {
	return func(m *Monitor) { m.window = aggregation.NewHistoryWindow(n) }
}

// WithSettings sets the initial settings and the allowed threshold range.
func WithSettings(s models.Settings, b models.SettingsBounds) MonitorOption {
	return func(m *Monitor) {
		m.settings = s
		m.bounds = b
	}
}

func WithSinks(sinks ...domrepo.FrameSink) MonitorOption {
	return func(m *Monitor) { m.sinks = append(m.sinks, sinks...) }
}

func WithIngressStatus(s IngressStatus) MonitorOption {
	return func(m *Monitor) { m.ingress = s }
}

func WithMonitorLogger(l *applogger.Logger) MonitorOption {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}

func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor builds the loop. core may be nil, in which case the monitor runs
// degraded: readings are drained and discarded and every frame carries a warning.
func NewMonitor(q *queue.Handoff[models.Reading], core domsvc.Forecaster, metrics domrepo.Metrics, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		interval:    time.Second,
		bounds:      models.SettingsBounds{ThresholdMin: 1, ThresholdMax: 5},
		queue:       q,
		core:        core,
		window:      aggregation.NewHistoryWindow(aggregation.DefaultCapacity),
		settings:    models.DefaultSettings(),
		metrics:     metrics,
		log:         applogger.Nop(),
		now:         time.Now,
		cmds:        make(chan command),
		stopped:     make(chan struct{}),
		sinkFailing: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(applogger.String("component", "monitor"))
	return m
}

// Run ticks until ctx is cancelled, serving commands between ticks. It may
// only be called once.
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.stopped)
	if m.core == nil {
		m.log.Warn(warnInferenceUnavailable)
	}
	m.log.Info("monitor started",
		applogger.Duration("interval_ms", m.interval),
		applogger.Int("history_size", m.window.Capacity()),
	)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Info("monitor stopped", applogger.Int64("ticks", int64(m.tick)))
			return nil
		case c := <-m.cmds:
			c.run()
			// commands change what a frame shows, so show it now
			m.render(ctx)
			close(c.done)
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one cycle. It is exported for tests and must only be called from
// the goroutine that would otherwise run Run.
func (m *Monitor) Tick(ctx context.Context) {
	m.tick++
	start := m.now()

	readings := m.queue.Drain()
	m.metrics.RecordQueueDepth(len(readings))
	m.infer(ctx, readings)
	m.render(ctx)

	m.metrics.RecordLatency("tick", m.now().Sub(start).Seconds())
}

// infer processes readings in arrival order. The first failure aborts the
// cycle; the readings behind it were already drained and are discarded.
func (m *Monitor) infer(ctx context.Context, readings []models.Reading) {
	if len(readings) == 0 {
		return
	}
	if m.core == nil {
		for range readings {
			m.metrics.RecordError("reading_discarded")
		}
		return
	}
	for i, r := range readings {
		start := m.now()
		res, err := m.safeInfer(ctx, r)
		if err != nil {
			dropped := len(readings) - i - 1
			m.metrics.RecordError("inference")
			for j := 0; j < dropped; j++ {
				m.metrics.RecordError("reading_discarded")
			}
			m.log.Error("inference failed, cycle aborted",
				applogger.Error(err),
				applogger.Int("processed", i),
				applogger.Int("discarded", dropped),
			)
			return
		}
		m.metrics.RecordLatency("inference", m.now().Sub(start).Seconds())
		m.window.Ingest(res)
	}
}

func (m *Monitor) safeInfer(ctx context.Context, r models.Reading) (res models.InferenceResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("inference panic: %v", p)
		}
	}()
	return m.core.Infer(ctx, r)
}

func (m *Monitor) render(ctx context.Context) {
	f := m.frame()
	m.metrics.RecordSnapshot(f.Snapshot)
	for _, s := range m.sinks {
		m.renderTo(ctx, s, f)
	}
}

func (m *Monitor) renderTo(ctx context.Context, s domrepo.FrameSink, f *models.Frame) {
	name := s.Name()
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("sink panic: %v", p)
			}
		}()
		return s.Render(ctx, f)
	}()
	if err != nil {
		m.metrics.RecordError("sink_" + name)
		// one line per outage, not one per tick
		if !m.sinkFailing[name] {
			m.sinkFailing[name] = true
			m.log.Warn("sink render failed", applogger.String("sink", name), applogger.Error(err))
		}
		return
	}
	if m.sinkFailing[name] {
		delete(m.sinkFailing, name)
		m.log.Info("sink recovered", applogger.String("sink", name))
	}
}

func (m *Monitor) frame() *models.Frame {
	st := models.Status{
		InferenceAvailable: m.core != nil,
		IngressConnected:   m.ingress != nil && m.ingress.Connected(),
		QueueDepth:         m.queue.Len(),
	}
	if !st.InferenceAvailable {
		st.Warnings = append(st.Warnings, warnInferenceUnavailable)
	}
	if !st.IngressConnected {
		st.Warnings = append(st.Warnings, "ingress disconnected: no new readings are arriving")
	}
	return &models.Frame{
		Tick:     m.tick,
		At:       m.now(),
		Snapshot: m.window.Snapshot(m.settings),
		Settings: m.settings,
		History:  m.window.History(),
		Status:   st,
	}
}

// ErrMonitorStopped is returned by commands issued after the loop has exited.
var ErrMonitorStopped = errors.New("monitor not running")

// do runs fn on the loop goroutine and waits for it.
func (m *Monitor) do(ctx context.Context, fn func()) error {
	c := command{run: fn, done: make(chan struct{})}
	select {
	case m.cmds <- c:
	case <-m.stopped:
		return ErrMonitorStopped
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrMonitorStopped, ctx.Err())
	}
	<-c.done
	return nil
}

// Settings returns the current settings.
func (m *Monitor) Settings(ctx context.Context) (models.Settings, error) {
	var s models.Settings
	err := m.do(ctx, func() { s = m.settings })
	return s, err
}

// UpdateSettings applies a partial update. An update outside the allowed
// bounds is rejected with ErrInvalidSettings and nothing changes.
func (m *Monitor) UpdateSettings(ctx context.Context, req models.SettingsRequest) (models.Settings, error) {
	var (
		out    models.Settings
		verr   error
		before models.Settings
	)
	err := m.do(ctx, func() {
		before = m.settings
		next := req.Apply(m.settings)
		if verr = next.Validate(m.bounds); verr != nil {
			out = m.settings
			return
		}
		m.settings = next
		out = next
	})
	if err != nil {
		return models.Settings{}, err
	}
	if verr != nil {
		return out, verr
	}
	m.log.Info("settings updated",
		applogger.Float64("price_per_unit", out.PricePerUnit),
		applogger.Float64("alert_threshold", out.AlertThreshold),
		applogger.Float64("previous_threshold", before.AlertThreshold),
	)
	return out, nil
}

// Reset empties the history window. Queued readings are kept.
func (m *Monitor) Reset(ctx context.Context) error {
	var dropped int
	if err := m.do(ctx, func() {
		dropped = m.window.Len()
		m.window.Reset()
	}); err != nil {
		return err
	}
	m.log.Info("session reset", applogger.Int("cleared", dropped))
	return nil
}

// Bounds is the threshold range accepted by UpdateSettings.
func (m *Monitor) Bounds() models.SettingsBounds { return m.bounds }
