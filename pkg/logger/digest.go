package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"sync"
	"time"
)

// Publisher ships a flushed digest batch somewhere (a Kafka topic in production).
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type DigestConfig struct {
	Interval  time.Duration // flush period
	MaxKeys   int           // flush early once this many distinct entries are pending
	Topic     string
	Publisher Publisher
}

// DigestEntry is one distinct warn/error line with its repeat count.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`

	seq uint64
}

// Digest folds repeated log lines into counted entries. A sink that fails on
// every tick produces one entry per flush instead of one line per second.
type Digest struct {
	cfg     DigestConfig
	mu      sync.Mutex
	entries map[uint64]*DigestEntry
	seq     uint64
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewDigest(cfg DigestConfig) *Digest {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 100
	}
	d := &Digest{
		cfg:     cfg,
		entries: make(map[uint64]*DigestEntry),
		stop:    make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

// Add records one occurrence. Entries added after Close are dropped.
func (d *Digest) Add(level, msg string, fields map[string]interface{}) {
	select {
	case <-d.stop:
		return
	default:
	}
	now := time.Now()
	key := digestKey(level, msg, fields)

	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[key]; ok {
		e.Count++
		e.LastSeen = now
		return
	}
	d.seq++
	d.entries[key] = &DigestEntry{
		seq:       d.seq,
		Level:     level,
		Message:   msg,
		Fields:    fields,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	if len(d.entries) >= d.cfg.MaxKeys {
		d.flushLocked()
	}
}

// Pending returns a copy of the entries not yet flushed, oldest first.
func (d *Digest) Pending() []DigestEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Digest) Close() {
	d.once.Do(func() {
		close(d.stop)
		d.wg.Wait()
	})
}

func (d *Digest) loop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.mu.Lock()
			d.flushLocked()
			d.mu.Unlock()
		case <-d.stop:
			d.mu.Lock()
			batch := d.snapshotLocked()
			d.entries = make(map[uint64]*DigestEntry)
			d.mu.Unlock()
			d.publish(batch)
			return
		}
	}
}

func (d *Digest) flushLocked() {
	if len(d.entries) == 0 {
		return
	}
	batch := d.snapshotLocked()
	d.entries = make(map[uint64]*DigestEntry)
	go d.publish(batch)
}

func (d *Digest) snapshotLocked() []DigestEntry {
	out := make([]DigestEntry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (d *Digest) publish(batch []DigestEntry) {
	if len(batch) == 0 || d.cfg.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.cfg.Publisher.PublishMessage(ctx, d.cfg.Topic, batch); err != nil {
		// the logger itself is the thing failing here
		fmt.Fprintf(os.Stderr, "log digest publish failed: %v\n", err)
	}
}

func digestKey(level, msg string, fields map[string]interface{}) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(level))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(msg))
	b, _ := json.Marshal(fields) // map keys are marshalled sorted
	_, _ = h.Write(b)
	return h.Sum64()
}
