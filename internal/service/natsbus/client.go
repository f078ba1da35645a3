package natsbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
	"GridPulse/pkg/config"
	applogger "GridPulse/pkg/logger"

	"github.com/nats-io/nats.go"
)

// Client is a ReadingStream over a core NATS subject.
type Client struct {
	url     string
	subject string
	timeout time.Duration
	log     *applogger.Logger

	conn     *nats.Conn
	sub      *nats.Subscription
	payloads chan []byte
	errs     chan error
	mu       sync.Mutex
	closed   bool
}

func New(cfg *config.Config, l *applogger.Logger) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	return &Client{
		url:      cfg.NATS.URL,
		subject:  cfg.NATS.Subject,
		timeout:  cfg.NATS.ConnectTimeout,
		log:      l.With(applogger.String("component", "nats"), applogger.String("url", cfg.NATS.URL)),
		payloads: make(chan []byte, 256),
		errs:     make(chan error, 1),
	}
}

func (c *Client) Name() string { return config.IngressNATS }

// Connect dials once; reconnects are left to the NATS client after that.
func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := nats.Connect(c.url,
		nats.Name("gridpulse"),
		nats.Timeout(c.timeout),
		nats.RetryOnFailedConnect(false),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.report(fmt.Errorf("nats disconnected: %w", err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.log.Info("nats reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("nats connect %s: %w", c.url, err)
	}
	c.conn = conn
	c.log.Info("nats connected")
	return nil
}

func (c *Client) Subscribe(ctx context.Context) error {
	if !c.IsConnected() {
		return fmt.Errorf("nats subscribe: %w", models.ErrNotConnected)
	}
	sub, err := c.conn.Subscribe(c.subject, func(m *nats.Msg) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		select {
		case c.payloads <- m.Data:
		default:
			// slow consumer; the tick loop will catch up on the next messages
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", c.subject, err)
	}
	c.sub = sub
	c.log.Info("nats subscribed", applogger.String("subject", c.subject))
	return nil
}

func (c *Client) Read(ctx context.Context) (<-chan []byte, <-chan error) {
	return c.payloads, c.errs
}

// Publish sends payload on the reading subject. Used by the simulator.
func (c *Client) Publish(ctx context.Context, payload []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("nats publish: %w", models.ErrNotConnected)
	}
	if err := c.conn.Publish(c.subject, payload); err != nil {
		return err
	}
	return c.conn.FlushWithContext(ctx)
}

func (c *Client) report(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.errs <- err:
	default:
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.payloads)
	close(c.errs)
	c.mu.Unlock()

	if c.sub != nil {
		_ = c.sub.Unsubscribe()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

var _ drepo.ReadingStream = (*Client)(nil)
