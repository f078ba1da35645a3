package alerts

import (
	"context"
	"fmt"
	"time"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"

	"github.com/google/uuid"
)

// Notifier is a frame sink that emits an AlertEvent whenever the
// classification changes to ELEVATED or CRITICAL. Staying in the same state,
// or returning to NOMINAL, emits nothing. An undelivered alert is retried
// while the state lasts.
type Notifier struct {
	pub  drepo.AlertPublisher
	last models.Classification
	now  func() time.Time
}

func NewNotifier(pub drepo.AlertPublisher) *Notifier {
	return &Notifier{pub: pub, last: models.Nominal, now: time.Now}
}

func (n *Notifier) Name() string { return "alerts" }

func (n *Notifier) Render(ctx context.Context, f *models.Frame) error {
	if !f.Snapshot.HasData {
		// a reset returns the session to nominal
		n.last = models.Nominal
		return nil
	}
	cur := f.Snapshot.Classification
	prev := n.last
	if cur == prev {
		return nil
	}
	if cur == models.Nominal {
		n.last = cur
		return nil
	}

	ev := &models.AlertEvent{
		ID:             uuid.NewString(),
		Timestamp:      n.now().UTC(),
		Severity:       cur,
		Previous:       prev,
		Message:        cur.Headline(f.Snapshot.Forecast),
		Recommendation: cur.Recommendation(),
		Metric:         "forecast_kw",
		Value:          f.Snapshot.Forecast,
		Threshold:      f.Settings.AlertThreshold,
	}
	// the transition is only consumed once delivered; a failed publish is
	// retried on the next frame that still shows the same state
	if err := n.pub.PublishAlert(ctx, ev); err != nil {
		return fmt.Errorf("publish %s alert: %w", cur, err)
	}
	n.last = cur
	return nil
}

var _ drepo.FrameSink = (*Notifier)(nil)
