package alerts

import (
	"context"
	"errors"
	"testing"

	"GridPulse/internal/domain/models"
)

type capture struct {
	events []*models.AlertEvent
	err    error
}

func (c *capture) PublishAlert(_ context.Context, ev *models.AlertEvent) error {
	c.events = append(c.events, ev)
	return c.err
}

func (c *capture) Close() error { return nil }

func frameWith(c models.Classification, forecast float64) *models.Frame {
	return &models.Frame{
		Snapshot: models.Snapshot{HasData: true, Classification: c, Forecast: forecast},
		Settings: models.DefaultSettings(),
	}
}

func TestNotifierTransitions(t *testing.T) {
	pub := &capture{}
	n := NewNotifier(pub)
	ctx := context.Background()

	seq := []struct {
		c        models.Classification
		forecast float64
	}{
		{models.Nominal, 1.0},
		{models.Elevated, 1.7},
		{models.Elevated, 1.8},
		{models.Critical, 2.5},
		{models.Critical, 2.6},
		{models.Nominal, 1.0},
		{models.Critical, 2.2},
	}
	for _, s := range seq {
		if err := n.Render(ctx, frameWith(s.c, s.forecast)); err != nil {
			t.Fatalf("render: %v", err)
		}
	}

	if len(pub.events) != 3 {
		t.Fatalf("events = %d, want 3", len(pub.events))
	}
	crit := pub.events[1]
	if crit.Severity != models.Critical || crit.Previous != models.Elevated {
		t.Fatalf("critical event = %+v", crit)
	}
	if crit.Message != "Peak detected: 2.50 kW" || crit.Threshold != models.DefaultAlertThreshold {
		t.Fatalf("critical event text = %+v", crit)
	}
	if pub.events[2].Previous != models.Nominal || pub.events[0].ID == pub.events[1].ID {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestNotifierResetAndErrors(t *testing.T) {
	pub := &capture{}
	n := NewNotifier(pub)
	ctx := context.Background()

	_ = n.Render(ctx, frameWith(models.Critical, 3))
	_ = n.Render(ctx, &models.Frame{Snapshot: models.NoData})
	_ = n.Render(ctx, frameWith(models.Critical, 3))
	if len(pub.events) != 2 {
		t.Fatalf("reset should re-arm the alert, events = %d", len(pub.events))
	}

	pub.err = errors.New("broker down")
	if err := n.Render(ctx, frameWith(models.Elevated, 1.9)); err == nil {
		t.Fatal("publisher error not surfaced")
	}
}

func TestNotifierRetriesAfterPublishFailure(t *testing.T) {
	pub := &capture{err: errors.New("broker down")}
	n := NewNotifier(pub)
	ctx := context.Background()

	if err := n.Render(ctx, frameWith(models.Critical, 2.5)); err == nil {
		t.Fatal("publisher error not surfaced")
	}

	pub.err = nil
	for i := 0; i < 2; i++ {
		if err := n.Render(ctx, frameWith(models.Critical, 2.6)); err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
	}

	// one failed attempt, then exactly one delivery once the broker is back
	if len(pub.events) != 2 {
		t.Fatalf("publish attempts = %d, want 2", len(pub.events))
	}
	if ev := pub.events[1]; ev.Severity != models.Critical || ev.Previous != models.Nominal {
		t.Fatalf("retried event = %+v", ev)
	}
}

func TestNotifierDropsPendingAlertWhenStateClears(t *testing.T) {
	pub := &capture{err: errors.New("broker down")}
	n := NewNotifier(pub)
	ctx := context.Background()

	_ = n.Render(ctx, frameWith(models.Critical, 2.5))
	pub.err = nil
	_ = n.Render(ctx, frameWith(models.Nominal, 1.0))
	_ = n.Render(ctx, frameWith(models.Nominal, 1.1))

	if len(pub.events) != 1 {
		t.Fatalf("publish attempts = %d, want only the failed one", len(pub.events))
	}
}
