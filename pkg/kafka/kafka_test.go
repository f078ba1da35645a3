package kafka

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 50*time.Millisecond, 2*time.Second
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		if d <= 0 || d > max {
			t.Fatalf("attempt %d: backoff %v out of (0, %v]", attempt, d, max)
		}
	}
}

func TestEncode(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{[]byte("raw"), "raw"},
		{"text", "text"},
		{map[string]int{"a": 1}, `{"a":1}`},
	}
	for _, tc := range cases {
		got, err := encode(tc.in)
		if err != nil {
			t.Fatalf("encode(%v): %v", tc.in, err)
		}
		if string(got) != tc.want {
			t.Fatalf("encode(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestConstructorsRequireBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatal("producer without brokers should fail")
	}
	if _, err := NewConsumer(); err == nil {
		t.Fatal("consumer without brokers should fail")
	}
}

func TestConsumerStartNeedsHandler(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	if err := c.Start(); err == nil {
		t.Fatal("start without handlers should fail")
	}
	if c.Connected() {
		t.Fatal("consumer that never started reports connected")
	}
}

func TestLaneForIsStableAndInRange(t *testing.T) {
	for lanes := 1; lanes <= 5; lanes++ {
		for p := 0; p < 12; p++ {
			l := laneFor("gridpulse.readings", p, lanes)
			if l < 0 || l >= lanes {
				t.Fatalf("laneFor(p=%d, lanes=%d) = %d", p, lanes, l)
			}
			if again := laneFor("gridpulse.readings", p, lanes); again != l {
				t.Fatalf("lane for partition %d moved from %d to %d", p, l, again)
			}
		}
	}
}

type orderedHandler struct {
	mu   sync.Mutex
	seen []int
	done chan struct{}
	want int
}

func (h *orderedHandler) Topic() string { return "gridpulse.readings" }

func (h *orderedHandler) Handle(_ context.Context, b []byte) error {
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return err
	}
	// uneven work so a second worker on the same partition would overtake
	if n%2 == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, n)
	if len(h.seen) == h.want {
		close(h.done)
	}
	return nil
}

func TestPartitionHandledInOffsetOrder(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}), WithConsumerWorkers(4))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	h := &orderedHandler{done: make(chan struct{}), want: 60}
	c.RegisterHandler(h)
	for _, lane := range c.lanes {
		c.wg.Add(1)
		go c.messageWorker(lane)
	}
	defer close(c.stopChan)

	lane := c.lanes[laneFor(h.Topic(), 2, len(c.lanes))]
	for i := 0; i < h.want; i++ {
		lane <- &message{topic: h.Topic(), km: kafka.Message{Partition: 2, Offset: int64(i), Value: []byte(strconv.Itoa(i))}}
	}

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("messages not handled in time")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, v := range h.seen {
		if v != i {
			t.Fatalf("message %d handled out of order", i)
		}
	}
}
