package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"channelbox/internal/ws"
)

var (
	ErrInvalidHistorySize = errors.New("HISTORY_SIZE must be at least 1")
	ErrInvalidPayloadType = errors.New("PAYLOAD_TYPE must be one of json, text, bytes")
	ErrInvalidSchedule    = errors.New("SWEEP_SCHEDULE is not a valid cron schedule")
)

// Config is the process configuration read from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8083"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"channelbox"`
	Environment string `env:"ENVIRONMENT" envDefault:"local"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	DebugRoutes bool   `env:"DEBUG_ROUTES" envDefault:"false"`

	HistorySize   int           `env:"HISTORY_SIZE" envDefault:"1048576"`
	ConnTTL       time.Duration `env:"CONN_TTL" envDefault:"24h"`
	PayloadType   string        `env:"PAYLOAD_TYPE" envDefault:"json"`
	SweepSchedule string        `env:"SWEEP_SCHEDULE" envDefault:"@every 1m"`

	WSWriteTimeout time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"10s"`
	WSReadLimit    int64         `env:"WS_READ_LIMIT" envDefault:"65536"`
	WSMessageRate  float64       `env:"WS_MESSAGE_RATE" envDefault:"20"`
	WSMessageBurst int           `env:"WS_MESSAGE_BURST" envDefault:"40"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"channelbox.events"`
	AuditRouting string `env:"AUDIT_ROUTING_KEY" envDefault:"audit.channelbox"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads an optional .env file and parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the env parser cannot.
func (c Config) Validate() error {
	if c.HistorySize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidHistorySize, c.HistorySize)
	}
	if _, err := ws.ParsePayloadType(c.PayloadType); err != nil || c.PayloadType == "" || c.PayloadType == "unset" {
		return fmt.Errorf("%w: got %q", ErrInvalidPayloadType, c.PayloadType)
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return nil
}

// Socket returns the websocket settings derived from c.
func (c Config) Socket() ws.SocketConfig {
	pt, _ := ws.ParsePayloadType(c.PayloadType)
	return ws.SocketConfig{
		Expires:      c.ConnTTL,
		PayloadType:  pt,
		WriteTimeout: c.WSWriteTimeout,
		ReadLimit:    c.WSReadLimit,
		MessageRate:  c.WSMessageRate,
		MessageBurst: c.WSMessageBurst,
	}
}
