package console

import (
	"context"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
	applogger "GridPulse/pkg/logger"

	"github.com/shopspring/decimal"
)

// Sink prints one status line per tick for headless runs.
type Sink struct {
	log *applogger.Logger
}

func New(l *applogger.Logger) *Sink {
	if l == nil {
		l = applogger.Nop()
	}
	return &Sink{log: l.With(applogger.String("component", "console"))}
}

func (s *Sink) Name() string { return "console" }

func (s *Sink) Render(_ context.Context, f *models.Frame) error {
	if !f.Snapshot.HasData {
		s.log.Info("waiting for data", applogger.Int("queue_depth", f.Status.QueueDepth), applogger.Strings("warnings", f.Status.Warnings))
		return nil
	}
	snap := f.Snapshot
	s.log.Info(snap.Classification.Headline(snap.Forecast),
		applogger.String("observed_kw", kw(snap.Observed)),
		applogger.String("forecast_kw", kw(snap.Forecast)),
		applogger.String("delta_kw", SignedKW(snap.Delta)),
		applogger.String("instant_cost", Money(snap.InstantCost)),
		applogger.String("session_cost", SessionMoney(snap.Session.Cost)),
		applogger.String("load", snap.LoadLabel()),
		applogger.String("action", snap.Classification.Recommendation()),
	)
	return nil
}

func kw(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// SignedKW formats a power difference with an explicit sign, e.g. "+0.50".
func SignedKW(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.Sign() >= 0 {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

// SessionMoney formats the cumulative session cost with four decimals.
func SessionMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}

// Money formats a currency amount with three decimals, rounding half away from zero.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(3)
}

var _ drepo.FrameSink = (*Sink)(nil)
