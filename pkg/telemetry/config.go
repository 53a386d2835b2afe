package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Protocol selects the span exporter.
type Protocol string

const (
	ProtocolGRPC Protocol = "grpc"
	ProtocolHTTP Protocol = "http"
	// ProtocolNone keeps spans in process. Span contexts are still valid, so
	// log entries correlate with them.
	ProtocolNone Protocol = "none"
)

const (
	defaultBatchTimeout = 5 * time.Second
	defaultServiceName  = "logkit"
)

var ErrInvalidConfig = errors.New("invalid telemetry config")

// Config describes the tracer provider.
type Config struct {
	ServiceName    string   `env:"OTEL_SERVICE_NAME" env-default:"logkit"`
	ServiceVersion string   `env:"LOGKIT_SERVICE_VERSION" env-default:"dev"`
	Environment    string   `env:"LOGKIT_ENVIRONMENT" env-default:"development"`
	Endpoint       string   `env:"LOGKIT_TRACE_ENDPOINT"`
	Protocol       Protocol `env:"LOGKIT_TRACE_PROTOCOL" env-default:"none"`
	Insecure       bool     `env:"LOGKIT_TRACE_INSECURE" env-default:"true"`
	// SampleRatio is the fraction of root spans recorded. 1 records all.
	SampleRatio  float64       `env:"LOGKIT_TRACE_SAMPLE_RATIO" env-default:"1"`
	BatchTimeout time.Duration `env:"LOGKIT_TRACE_BATCH_TIMEOUT" env-default:"5s"`
}

// DefaultConfig returns an in-process provider that samples everything.
func DefaultConfig() Config {
	return Config{
		ServiceName:    defaultServiceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Protocol:       ProtocolNone,
		Insecure:       true,
		SampleRatio:    1,
		BatchTimeout:   defaultBatchTimeout,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("%w: service name is required", ErrInvalidConfig)
	}
	switch c.Protocol {
	case ProtocolGRPC, ProtocolHTTP:
		if c.Endpoint == "" {
			return fmt.Errorf("%w: endpoint is required for protocol %s", ErrInvalidConfig, c.Protocol)
		}
	case ProtocolNone:
	default:
		return fmt.Errorf("%w: unknown protocol %q", ErrInvalidConfig, c.Protocol)
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("%w: sample ratio must be within [0, 1], got %v", ErrInvalidConfig, c.SampleRatio)
	}
	if c.BatchTimeout < 0 {
		return fmt.Errorf("%w: batch timeout cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads the tracer settings from the environment. Call it after
// the dotenv file was loaded.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read telemetry environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
