package mqttbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
	"GridPulse/pkg/config"
	applogger "GridPulse/pkg/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Client is a ReadingStream over an MQTT subscription. The broker callback
// only copies the payload into a buffered channel and never blocks.
type Client struct {
	broker         string
	topic          string
	qos            byte
	connectTimeout time.Duration
	log            *applogger.Logger

	opts     *mqtt.ClientOptions
	client   mqtt.Client
	payloads chan []byte
	errs     chan error
	closeMu  sync.Mutex
	closed   bool
	dropped  atomic.Uint64
}

const payloadBuffer = 256

// New builds an MQTT stream from cfg. Nothing is dialled until Connect.
func New(cfg *config.Config, l *applogger.Logger) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	c := &Client{
		broker:         fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Broker, cfg.MQTT.Port),
		topic:          cfg.MQTT.Topic,
		qos:            cfg.MQTT.QoS,
		connectTimeout: cfg.MQTT.ConnectTimeout,
		payloads:       make(chan []byte, payloadBuffer),
		errs:           make(chan error, 1),
	}
	c.log = l.With(applogger.String("component", "mqtt"), applogger.String("broker", c.broker))

	c.opts = mqtt.NewClientOptions().
		AddBroker(c.broker).
		SetClientID(ClientID(cfg.MQTT.ClientPrefix)).
		SetKeepAlive(cfg.MQTT.KeepAlive).
		SetConnectTimeout(cfg.MQTT.ConnectTimeout).
		SetAutoReconnect(cfg.MQTT.AutoReconnect).
		SetConnectRetry(false).
		SetCleanSession(true).
		SetConnectionLostHandler(c.onConnectionLost)
	if cfg.MQTT.Username != "" {
		c.opts.SetUsername(cfg.MQTT.Username).SetPassword(cfg.MQTT.Password)
	}
	return c
}

// ClientID returns prefix plus a short random token, so that several
// viewers can share one public broker.
func ClientID(prefix string) string {
	return prefix + uuid.NewString()[:8]
}

func (c *Client) Name() string { return config.IngressMQTT }

// Connect dials the broker once. The attempt is not retried.
func (c *Client) Connect(ctx context.Context) error {
	c.client = mqtt.NewClient(c.opts)
	if err := wait(ctx, c.client.Connect(), c.connectTimeout); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", c.broker, err)
	}
	c.log.Info("mqtt connected")
	return nil
}

// Subscribe registers the reading topic.
func (c *Client) Subscribe(ctx context.Context) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt subscribe: %w", models.ErrNotConnected)
	}
	if err := wait(ctx, c.client.Subscribe(c.topic, c.qos, c.onMessage), c.connectTimeout); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", c.topic, err)
	}
	c.log.Info("mqtt subscribed", applogger.String("topic", c.topic))
	return nil
}

// Read returns the payload and error channels. They are closed by Close.
func (c *Client) Read(ctx context.Context) (<-chan []byte, <-chan error) {
	return c.payloads, c.errs
}

func (c *Client) onMessage(_ mqtt.Client, m mqtt.Message) {
	b := make([]byte, len(m.Payload()))
	copy(b, m.Payload())

	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.payloads <- b:
	default:
		if c.dropped.Add(1) == 1 {
			c.log.Warn("mqtt payload buffer full, dropping messages")
		}
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.errs <- fmt.Errorf("mqtt connection lost: %w", err):
	default:
	}
}

// Publish sends payload to the reading topic. Used by the simulator.
func (c *Client) Publish(ctx context.Context, payload []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt publish: %w", models.ErrNotConnected)
	}
	return wait(ctx, c.client.Publish(c.topic, c.qos, false, payload), c.connectTimeout)
}

// Dropped counts payloads discarded because the buffer was full.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

// Close disconnects and closes the channels returned by Read.
func (c *Client) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	close(c.payloads)
	close(c.errs)
	c.closeMu.Unlock()

	// callbacks still in flight see closed and return without sending
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
	return nil
}

func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnectionOpen()
}

// wait blocks on a paho token until it completes, ctx ends or timeout passes.
func wait(ctx context.Context, t mqtt.Token, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	}
}

var _ drepo.ReadingStream = (*Client)(nil)
