package repository

import (
	"context"

	"GridPulse/internal/domain/models"
)

// ReadingStream is a broker subscription that yields raw reading payloads.
type ReadingStream interface {
	Name() string
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan []byte, <-chan error)
	Close() error
	IsConnected() bool
}

// FrameSink receives one frame per tick. Implementations must not retain or
// mutate the frame's slices.
type FrameSink interface {
	Name() string
	Render(ctx context.Context, f *models.Frame) error
}

// AlertPublisher ships alert events to downstream consumers.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, ev *models.AlertEvent) error
	Close() error
}

type Metrics interface {
	RecordReading(source string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordQueueDepth(n int)
	RecordSnapshot(s models.Snapshot)
}
