package usecase

import (
	"context"
	"errors"

	"GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
	mid "GridPulse/internal/middleware"
	pkgkafka "GridPulse/pkg/kafka"
	applogger "GridPulse/pkg/logger"
)

// ReadingHandler decodes raw broker payloads and hands them to the ingress
// pipeline. It is shared by every transport.
type ReadingHandler struct {
	topic   string
	source  string
	pipe    *mid.IngressPipeline
	metrics domrepo.Metrics
	log     *applogger.Logger
}

type HandlerOption func(*ReadingHandler)

func WithHandlerLogger(l *applogger.Logger) HandlerOption {
	return func(h *ReadingHandler) {
		if l != nil {
			h.log = l
		}
	}
}

func NewReadingHandler(source, topic string, pipe *mid.IngressPipeline, metrics domrepo.Metrics, opts ...HandlerOption) *ReadingHandler {
	h := &ReadingHandler{topic: topic, source: source, pipe: pipe, metrics: metrics, log: applogger.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ReadingHandler) Topic() string { return h.topic }

func (h *ReadingHandler) Source() string { return h.source }

// Handle never blocks on the monitor: a full queue is reported, not waited on.
// Undecodable or misshapen payloads are counted, logged at debug and dropped
// with a nil error, so no transport retries or dead-letters them.
func (h *ReadingHandler) Handle(ctx context.Context, b []byte) error {
	r, err := models.DecodeReading(b)
	if err != nil {
		h.metrics.RecordError("ingress_decode")
		h.log.Debug("reading discarded", applogger.String("source", h.source), applogger.Error(err))
		return nil
	}
	err = h.pipe.Accept(h.source, r)
	if errors.Is(err, models.ErrInvalidInputShape) {
		h.log.Debug("reading discarded", applogger.String("source", h.source), applogger.Error(err))
		return nil
	}
	return err
}

var _ pkgkafka.MessageHandler = (*ReadingHandler)(nil)
