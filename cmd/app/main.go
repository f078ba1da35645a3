// GridPulse streams grid load readings through a forecasting model and serves
// the resulting dashboard.
//
// Usage:
//
//	gridpulse [--config config/config.yaml] serve
//	gridpulse simulate --interval 1s --count 120
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"GridPulse/internal/di"
	"GridPulse/internal/service/mqttbus"
	"GridPulse/internal/service/natsbus"
	"GridPulse/internal/usecase"
	"GridPulse/pkg/config"
	pkgkafka "GridPulse/pkg/kafka"
	applogger "GridPulse/pkg/logger"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "gridpulse",
		Usage:   "Streaming load-forecast monitor for micro-grids",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/config.yaml",
				Usage:   "config file path",
				EnvVars: []string{"GRIDPULSE_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			simulateCommand(),
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the monitor and dashboard API (default)",
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}

	// Run application (blocks until signal)
	return app.Run()
}

// =============================================================================
// SIMULATE COMMAND
// =============================================================================

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Publish a synthetic load curve to the configured ingress broker",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Value: time.Second, Usage: "delay between readings"},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "readings to publish, 0 runs until interrupted"},
			&cli.Float64Flag{Name: "base", Value: 0.45, Usage: "mean normalized load"},
			&cli.Float64Flag{Name: "amplitude", Value: 0.25, Usage: "daily swing"},
			&cli.Float64Flag{Name: "noise", Value: 0.03, Usage: "gaussian noise stddev"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "random seed"},
		},
		Action: simulate,
	}
}

func simulate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pub, closeFn, err := publisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	log.Info("simulator started",
		applogger.String("ingress", cfg.Ingress.Type),
		applogger.Duration("interval", c.Duration("interval")),
		applogger.Int("count", c.Int("count")),
	)
	sim := usecase.NewSimulator(usecase.SimulatorConfig{
		Interval:  c.Duration("interval"),
		Count:     c.Int("count"),
		Base:      c.Float64("base"),
		Amplitude: c.Float64("amplitude"),
		Noise:     c.Float64("noise"),
		Seed:      c.Int64("seed"),
	}, pub, log)
	return sim.Run(ctx)
}

// kafkaReadings publishes readings to the configured ingress topic.
type kafkaReadings struct {
	producer *pkgkafka.Producer
	topic    string
}

func (k kafkaReadings) Publish(ctx context.Context, payload []byte) error {
	return k.producer.Publish(ctx, k.topic, nil, payload)
}

func publisher(ctx context.Context, cfg *config.Config, log *applogger.Logger) (usecase.ReadingPublisher, func(), error) {
	switch cfg.Ingress.Type {
	case config.IngressKafka:
		p, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		)
		if err != nil {
			return nil, nil, err
		}
		return kafkaReadings{producer: p, topic: cfg.Kafka.Topic}, func() { _ = p.Close() }, nil
	case config.IngressNATS:
		cl := natsbus.New(cfg, log)
		if err := cl.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return cl, func() { _ = cl.Close() }, nil
	default:
		cl := mqttbus.New(cfg, log)
		if err := cl.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return cl, func() { _ = cl.Close() }, nil
	}
}
