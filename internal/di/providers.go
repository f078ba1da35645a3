package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GridPulse/internal/domain/models"
	"GridPulse/internal/domain/repository"
	domsvc "GridPulse/internal/domain/service"
	"GridPulse/internal/handler/api"
	mid "GridPulse/internal/middleware"
	"GridPulse/internal/service/alerts"
	"GridPulse/internal/service/board"
	"GridPulse/internal/service/cache"
	"GridPulse/internal/service/console"
	"GridPulse/internal/service/mqttbus"
	"GridPulse/internal/service/natsbus"
	"GridPulse/internal/service/ratelimit"
	"GridPulse/internal/services/inference"
	"GridPulse/internal/usecase"
	"GridPulse/pkg/config"
	xhttp "GridPulse/pkg/http"
	pkgkafka "GridPulse/pkg/kafka"
	applogger "GridPulse/pkg/logger"
	"GridPulse/pkg/metrics"
	"GridPulse/pkg/queue"
	"GridPulse/pkg/server"
)

// ProvideKafkaProducer creates the shared Kafka producer. It returns nil when
// no brokers are configured; alerts and the log digest are then disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 || (cfg.Kafka.AlertsTopic == "" && cfg.Log.Digest.Topic == "") {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the process logger and, when a digest topic and a
// producer exist, attaches the warn/error digest publisher.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Log.Digest.Topic != "" {
		l.AttachDigest(applogger.NewDigest(applogger.DigestConfig{
			Interval:  cfg.Log.Digest.Interval,
			MaxKeys:   cfg.Log.Digest.MaxKeys,
			Topic:     cfg.Log.Digest.Topic,
			Publisher: producer,
		}))
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

func ProvideQueue(cfg *config.Config) *queue.Handoff[models.Reading] {
	return queue.New[models.Reading](cfg.Ingress.QueueSize)
}

func ProvideIngressPipeline(cfg *config.Config, q *queue.Handoff[models.Reading], m repository.Metrics) *mid.IngressPipeline {
	return mid.NewIngressPipeline(q, m, mid.WithMaxRPS(cfg.Ingress.MaxRPS))
}

// ProvideForecaster loads the model and scaler. Missing artifacts are not an
// error: the monitor then runs degraded and says so on every frame.
func ProvideForecaster(cfg *config.Config, l *applogger.Logger) (domsvc.Forecaster, error) {
	core, err := inference.Load(cfg)
	if err != nil {
		if errors.Is(err, models.ErrInferenceUnavailable) {
			l.Warn("inference disabled", applogger.Error(err))
			return nil, nil
		}
		return nil, err
	}
	l.Info("inference ready", applogger.String("model", cfg.Inference.Model))
	return core, nil
}

// ProvideIngress selects the transport named by ingress.type.
func ProvideIngress(cfg *config.Config, pipe *mid.IngressPipeline, m repository.Metrics, l *applogger.Logger) (server.Ingress, error) {
	switch cfg.Ingress.Type {
	case config.IngressKafka:
		consumer, err := pkgkafka.NewConsumer(
			pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
			pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
			pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
			pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
			pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
			pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
			pkgkafka.WithConsumerLogger(l),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		h := usecase.NewReadingHandler(config.IngressKafka, cfg.Kafka.Topic, pipe, m, usecase.WithHandlerLogger(l))
		return usecase.NewKafkaIngress(consumer, h), nil
	case config.IngressNATS:
		h := usecase.NewReadingHandler(config.IngressNATS, cfg.NATS.Subject, pipe, m, usecase.WithHandlerLogger(l))
		return usecase.NewReadingCollector(natsbus.New(cfg, l), h, m, l), nil
	default:
		h := usecase.NewReadingHandler(config.IngressMQTT, cfg.MQTT.Topic, pipe, m, usecase.WithHandlerLogger(l))
		return usecase.NewReadingCollector(mqttbus.New(cfg, l), h, m, l), nil
	}
}

func ProvideBoard() *board.Board {
	return board.New()
}

// ProvideSnapshotStore returns Redis when enabled and reachable, otherwise an
// in-process cache so /api/snapshot behaves the same either way.
func ProvideSnapshotStore(cfg *config.Config, l *applogger.Logger) cache.BytesCache {
	if !cfg.Redis.Enabled {
		return cache.NewTTLCache()
	}
	rc := cache.NewRedisCache(cache.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		l.Warn("redis unavailable, snapshot cache kept in process", applogger.String("addr", cfg.Redis.Addr), applogger.Error(err))
		_ = rc.Close()
		return cache.NewTTLCache()
	}
	l.Info("redis snapshot cache ready", applogger.String("addr", cfg.Redis.Addr), applogger.String("key", cfg.Redis.Key))
	return rc
}

func ProvideSnapshotSink(cfg *config.Config, store cache.BytesCache) *cache.SnapshotSink {
	return cache.NewSnapshotSink(store, cfg.Redis.Key, cfg.Redis.TTL)
}

// ProvideSinks lists the frame sinks in render order.
func ProvideSinks(cfg *config.Config, b *board.Board, snap *cache.SnapshotSink, producer *pkgkafka.Producer, l *applogger.Logger) []repository.FrameSink {
	sinks := []repository.FrameSink{b, snap}
	if producer != nil && cfg.Kafka.AlertsTopic != "" {
		sinks = append(sinks, alerts.NewNotifier(alerts.NewKafkaPublisher(producer, cfg.Kafka.AlertsTopic)))
	}
	if cfg.Monitor.Console {
		sinks = append(sinks, console.New(l))
	}
	return sinks
}

func ProvideMonitor(
	cfg *config.Config,
	q *queue.Handoff[models.Reading],
	forecaster domsvc.Forecaster,
	m repository.Metrics,
	sinks []repository.FrameSink,
	ingress server.Ingress,
	l *applogger.Logger,
) *usecase.Monitor {
	return usecase.NewMonitor(q, forecaster, m,
		usecase.WithTickInterval(cfg.Monitor.TickInterval),
		usecase.WithHistorySize(cfg.Monitor.HistorySize),
		usecase.WithSettings(
			models.Settings{PricePerUnit: cfg.Settings.PricePerUnit, AlertThreshold: cfg.Settings.AlertThreshold},
			models.SettingsBounds{ThresholdMin: cfg.Settings.ThresholdMin, ThresholdMax: cfg.Settings.ThresholdMax},
		),
		usecase.WithSinks(sinks...),
		usecase.WithIngressStatus(ingress),
		usecase.WithMonitorLogger(l),
	)
}

func ProvideDashboardHandler(
	cfg *config.Config,
	l *applogger.Logger,
	monitor *usecase.Monitor,
	b *board.Board,
	snap *cache.SnapshotSink,
	ingress server.Ingress,
) xhttp.Handler {
	return api.NewDashboardHandler(l, monitor, b,
		api.WithFrameCache(snap),
		api.WithIngress(ingress),
		api.WithControlLimiter(ratelimit.New(cfg.Server.ControlBurst, cfg.Server.ControlRate)),
	)
}

func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, cfg.Server.CORSOrigins...),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application and hands it the infrastructure to close.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	monitor *usecase.Monitor,
	ingress server.Ingress,
	httpServer *xhttp.Server,
	producer *pkgkafka.Producer,
	store cache.BytesCache,
) *server.App {
	app := server.New(cfg, l, monitor, ingress, httpServer)
	if producer != nil {
		app.AddCloser(producer)
	}
	if rc, ok := store.(*cache.RedisCache); ok {
		app.AddCloser(rc)
	}
	return app
}
