package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
)

// SnapshotSink writes each frame as JSON under one key, so other processes
// (or the HTTP layer) can read the latest state without touching the loop.
// The TTL lets readers notice a stalled monitor.
type SnapshotSink struct {
	store BytesCache
	key   string
	ttl   time.Duration
}

func NewSnapshotSink(store BytesCache, key string, ttl time.Duration) *SnapshotSink {
	return &SnapshotSink{store: store, key: key, ttl: ttl}
}

func (s *SnapshotSink) Name() string { return "snapshot_cache" }

func (s *SnapshotSink) Render(ctx context.Context, f *models.Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	return s.store.SetBytes(ctx, s.key, b, s.ttl)
}

// Latest returns the last stored frame bytes, if still fresh.
func (s *SnapshotSink) Latest(ctx context.Context) ([]byte, bool, error) {
	return s.store.GetBytes(ctx, s.key)
}

var _ drepo.FrameSink = (*SnapshotSink)(nil)
