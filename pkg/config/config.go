package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

const (
	IngressMQTT  = "mqtt"
	IngressKafka = "kafka"
	IngressNATS  = "nats"

	ModelFile = "file"
	ModelHTTP = "http"
)

type Config struct {
	Environment string `yaml:"environment" env:"GRIDPULSE_ENV" default:"development"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL" default:"info"`
		Format string `yaml:"format" env:"LOG_FORMAT" default:"console"`
		Output string `yaml:"output" default:"stdout"`
		Digest struct {
			Topic    string        `yaml:"topic" env:"LOG_DIGEST_TOPIC"`
			Interval time.Duration `yaml:"interval" default:"30s"`
			MaxKeys  int           `yaml:"max_keys" default:"100"`
		} `yaml:"digest"`
	} `yaml:"log"`

	Server struct {
		Port            int           `yaml:"port" env:"HTTP_PORT" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		ControlRate     float64       `yaml:"control_rate" default:"2"`  // settings/reset calls per second per client
		ControlBurst    float64       `yaml:"control_burst" default:"5"` // bucket capacity
		CORSOrigins     []string      `yaml:"cors_origins" env:"HTTP_CORS_ORIGINS" envSeparator:","`
	} `yaml:"server"`

	Ingress struct {
		Type      string `yaml:"type" env:"GRIDPULSE_INGRESS" default:"mqtt"`
		QueueSize int    `yaml:"queue_size" default:"1024"`
		MaxRPS    int    `yaml:"max_rps"` // 0 disables throttling
	} `yaml:"ingress"`

	MQTT struct {
		Broker         string        `yaml:"broker" env:"MQTT_BROKER" default:"broker.emqx.io"`
		Port           int           `yaml:"port" env:"MQTT_PORT" default:"1883"`
		Topic          string        `yaml:"topic" env:"MQTT_TOPIC" default:"projet/tunisie/microgrid/v1"`
		ClientPrefix   string        `yaml:"client_prefix" default:"Viewer_"`
		Username       string        `yaml:"username" env:"MQTT_USERNAME"`
		Password       string        `yaml:"password" env:"MQTT_PASSWORD"`
		QoS            byte          `yaml:"qos"`
		KeepAlive      time.Duration `yaml:"keepalive" default:"60s"`
		ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`
		AutoReconnect  bool          `yaml:"auto_reconnect" env:"MQTT_AUTO_RECONNECT"`
	} `yaml:"mqtt"`

	Kafka struct {
		Brokers      []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		Topic        string   `yaml:"topic" env:"KAFKA_TOPIC" default:"gridpulse.readings"`
		AlertsTopic  string   `yaml:"alerts_topic" env:"KAFKA_ALERTS_TOPIC"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"gridpulse"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	NATS struct {
		URL     string `yaml:"url" env:"NATS_URL" default:"nats://localhost:4222"`
		Subject string `yaml:"subject" env:"NATS_SUBJECT" default:"gridpulse.readings"`
		// dial timeout for the first connect
		ConnectTimeout time.Duration `yaml:"connect_timeout" default:"5s"`
	} `yaml:"nats"`

	Inference struct {
		Model      string        `yaml:"model" env:"GRIDPULSE_MODEL" default:"file"`
		ModelPath  string        `yaml:"model_path" env:"GRIDPULSE_MODEL_PATH" default:"artifacts/my_brain.json"`
		ScalerPath string        `yaml:"scaler_path" env:"GRIDPULSE_SCALER_PATH" default:"artifacts/my_scaler.json"`
		ServiceURL string        `yaml:"service_url" env:"GRIDPULSE_MODEL_URL"`
		Timeout    time.Duration `yaml:"timeout" default:"3s"`
	} `yaml:"inference"`

	Monitor struct {
		TickInterval time.Duration `yaml:"tick_interval" default:"1s"`
		HistorySize  int           `yaml:"history_size" default:"50"`
		Console      bool          `yaml:"console" env:"GRIDPULSE_CONSOLE"`
	} `yaml:"monitor"`

	Settings struct {
		PricePerUnit   float64 `yaml:"price_per_unit" env:"GRIDPULSE_PRICE" default:"0.22"`
		AlertThreshold float64 `yaml:"alert_threshold" env:"GRIDPULSE_THRESHOLD" default:"2.0"`
		ThresholdMin   float64 `yaml:"threshold_min" default:"1.0"`
		ThresholdMax   float64 `yaml:"threshold_max" default:"5.0"`
	} `yaml:"settings"`

	Redis struct {
		Enabled  bool          `yaml:"enabled" env:"REDIS_ENABLED"`
		Addr     string        `yaml:"addr" env:"REDIS_ADDR" default:"localhost:6379"`
		Password string        `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int           `yaml:"db"`
		Key      string        `yaml:"key" default:"gridpulse:snapshot:latest"`
		TTL      time.Duration `yaml:"ttl" default:"10s"`
	} `yaml:"redis"`
}

// Load reads a YAML file and fills unset fields with defaults. An empty path
// yields the defaults alone.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Ingress.Type {
	case IngressMQTT:
		if c.MQTT.Broker == "" || c.MQTT.Topic == "" {
			return errors.New("mqtt.broker and mqtt.topic are required")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
	case IngressKafka:
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers cannot be empty when ingress.type is kafka")
		}
	case IngressNATS:
		if c.NATS.URL == "" || c.NATS.Subject == "" {
			return errors.New("nats.url and nats.subject are required")
		}
	default:
		return fmt.Errorf("ingress.type must be 'mqtt', 'kafka' or 'nats', got '%s'", c.Ingress.Type)
	}

	switch c.Inference.Model {
	case ModelFile:
	case ModelHTTP:
		if c.Inference.ServiceURL == "" {
			return errors.New("inference.service_url is required when inference.model is http")
		}
	default:
		return fmt.Errorf("inference.model must be 'file' or 'http', got '%s'", c.Inference.Model)
	}

	if c.Settings.AlertThreshold <= 0 {
		return fmt.Errorf("settings.alert_threshold must be > 0, got %v", c.Settings.AlertThreshold)
	}
	if c.Settings.PricePerUnit < 0 {
		return fmt.Errorf("settings.price_per_unit must be >= 0, got %v", c.Settings.PricePerUnit)
	}
	if c.Settings.ThresholdMin <= 0 || c.Settings.ThresholdMin > c.Settings.ThresholdMax {
		return fmt.Errorf("settings threshold bounds invalid: [%v, %v]", c.Settings.ThresholdMin, c.Settings.ThresholdMax)
	}
	if c.Monitor.TickInterval <= 0 {
		return errors.New("monitor.tick_interval must be positive")
	}
	if c.Monitor.HistorySize <= 0 {
		return errors.New("monitor.history_size must be positive")
	}
	if c.Ingress.QueueSize <= 0 {
		return errors.New("ingress.queue_size must be positive")
	}
	return nil
}
