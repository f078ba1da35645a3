package board

import (
	"context"
	"encoding/json"
	"testing"

	"GridPulse/internal/domain/models"
)

func frame(tick uint64) *models.Frame {
	return &models.Frame{
		Tick:     tick,
		Snapshot: models.Snapshot{HasData: true, Forecast: float64(tick)},
		History:  models.History{Observed: []float64{1, 2}, Forecast: []float64{1.5, 2.5}},
	}
}

func TestLatest(t *testing.T) {
	b := New()
	if _, ok := b.Latest(); ok {
		t.Fatal("latest before first render")
	}
	_ = b.Render(context.Background(), frame(1))
	_ = b.Render(context.Background(), frame(2))

	f, ok := b.Latest()
	if !ok || f.Tick != 2 {
		t.Fatalf("latest = %+v", f)
	}
	raw, ok := b.LatestJSON()
	var decoded models.Frame
	if !ok || json.Unmarshal(raw, &decoded) != nil || decoded.Tick != 2 {
		t.Fatalf("latest json = %s", raw)
	}
}

func TestSubscribersReceiveAndSlowOnesDrop(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("subscribers = %d", b.Subscribers())
	}

	for i := uint64(1); i <= 10; i++ {
		if err := b.Render(context.Background(), frame(i)); err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
	}
	if len(ch) != b.buffer {
		t.Fatalf("buffered = %d, want %d", len(ch), b.buffer)
	}
	var first models.Frame
	if err := json.Unmarshal(<-ch, &first); err != nil || first.Tick != 1 {
		t.Fatalf("first frame = %+v err=%v", first, err)
	}

	cancel()
	cancel()
	if b.Subscribers() != 0 {
		t.Fatal("subscriber not removed")
	}
	// render after cancel must not panic on the closed channel
	_ = b.Render(context.Background(), frame(11))
}
