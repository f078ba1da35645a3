package board

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
)

// Board keeps the most recent frame for request/response readers and pushes
// every frame to stream subscribers. A subscriber that falls behind misses
// frames rather than slowing the tick loop.
type Board struct {
	mu      sync.RWMutex
	latest  *models.Frame
	encoded []byte

	subMu  sync.Mutex
	subs   map[uint64]chan []byte
	nextID uint64
	buffer int
}

func New() *Board {
	return &Board{subs: make(map[uint64]chan []byte), buffer: 4}
}

func (b *Board) Name() string { return "board" }

// Render stores f and fans it out. The frame is encoded once for all subscribers.
func (b *Board) Render(_ context.Context, f *models.Frame) error {
	enc, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	cp := *f
	b.mu.Lock()
	b.latest = &cp
	b.encoded = enc
	b.mu.Unlock()

	b.subMu.Lock()
	defer b.subMu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- enc:
		default:
		}
	}
	return nil
}

// Latest returns the last rendered frame, or false before the first tick.
func (b *Board) Latest() (models.Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.latest == nil {
		return models.Frame{}, false
	}
	return *b.latest, true
}

// LatestJSON returns the encoded form of Latest.
func (b *Board) LatestJSON() ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.encoded, b.encoded != nil
}

// Subscribe registers a stream consumer. The returned cancel func must be
// called once the consumer is done; it closes the channel.
func (b *Board) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, b.buffer)

	b.subMu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subs, id)
			b.subMu.Unlock()
			close(ch)
		})
	}
}

// Subscribers is the number of open stream consumers.
func (b *Board) Subscribers() int {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	return len(b.subs)
}

var _ drepo.FrameSink = (*Board)(nil)
