package usecase

import (
	"context"
	"errors"
	"sync/atomic"

	domrepo "GridPulse/internal/domain/repository"
	mid "GridPulse/internal/middleware"
	applogger "GridPulse/pkg/logger"
)

// ReadingCollector pumps payloads from a ReadingStream into a ReadingHandler.
type ReadingCollector struct {
	stream  domrepo.ReadingStream
	handler *ReadingHandler
	metrics domrepo.Metrics
	log     *applogger.Logger

	streamErrLogged atomic.Bool
}

func NewReadingCollector(stream domrepo.ReadingStream, handler *ReadingHandler, metrics domrepo.Metrics, l *applogger.Logger) *ReadingCollector {
	if l == nil {
		l = applogger.Nop()
	}
	return &ReadingCollector{
		stream:  stream,
		handler: handler,
		metrics: metrics,
		log:     l.With(applogger.String("component", "collector"), applogger.String("stream", stream.Name())),
	}
}

// Connected reports the broker link state.
func (c *ReadingCollector) Connected() bool {
	return c.stream.IsConnected()
}

// Start connects and subscribes once. A failure is returned to the caller and
// not retried; the monitor keeps running with ingress marked disconnected.
func (c *ReadingCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		c.metrics.RecordError("ingress_connect")
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		c.metrics.RecordError("ingress_subscribe")
		return err
	}
	payloads, errs := c.stream.Read(ctx)
	go c.consume(ctx, payloads, errs)
	return nil
}

func (c *ReadingCollector) consume(ctx context.Context, payloads <-chan []byte, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.metrics.RecordError("ingress_stream")
			if c.streamErrLogged.CompareAndSwap(false, true) {
				c.log.Error("reading stream error", applogger.Error(err))
			}
		case b, ok := <-payloads:
			if !ok {
				return
			}
			if err := c.handler.Handle(ctx, b); err != nil {
				c.logRejected(err)
			}
		}
	}
}

func (c *ReadingCollector) logRejected(err error) {
	switch {
	case errors.Is(err, mid.ErrQueueFull):
		c.log.Warn("reading dropped, queue full")
	case errors.Is(err, mid.ErrThrottled):
		c.log.Debug("reading throttled")
	default:
		c.log.Warn("reading rejected", applogger.Error(err))
	}
}

// Stop closes the stream. The consume goroutine exits when the payload channel closes.
func (c *ReadingCollector) Stop(context.Context) error { return c.stream.Close() }
