package transport

import (
	"fmt"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/fallback"
)

const (
	DefaultBatchSize            = 10
	DefaultBatchInterval        = 5 * time.Second
	DefaultMaxBufferSize        = 1000
	DefaultMaxRetries           = 3
	DefaultRetryInitialInterval = 500 * time.Millisecond
	DefaultRetryMaxInterval     = 5 * time.Second
	DefaultSendTimeout          = 10 * time.Second
)

// Config controls batching, backpressure and retries.
type Config struct {
	// EnableBatching accumulates entries; when false every enqueue flushes.
	EnableBatching bool
	// BatchSize is the buffer length that triggers a flush.
	BatchSize int
	// BatchInterval is the period of the timed flush.
	BatchInterval time.Duration
	// MaxBufferSize bounds pending entries; further entries are dropped.
	MaxBufferSize int
	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries int
	// RetryInitialInterval and RetryMaxInterval shape the exponential backoff.
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	// SendTimeout bounds each attempt. Zero means no per-attempt timeout.
	SendTimeout time.Duration
}

// DefaultConfig returns batching of 10 entries or 5 seconds with 3 retries.
func DefaultConfig() Config {
	return Config{
		EnableBatching:       true,
		BatchSize:            DefaultBatchSize,
		BatchInterval:        DefaultBatchInterval,
		MaxBufferSize:        DefaultMaxBufferSize,
		MaxRetries:           DefaultMaxRetries,
		RetryInitialInterval: DefaultRetryInitialInterval,
		RetryMaxInterval:     DefaultRetryMaxInterval,
		SendTimeout:          DefaultSendTimeout,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.EnableBatching && c.BatchInterval <= 0 {
		return fmt.Errorf("%w: batch interval must be positive when batching", ErrInvalidConfig)
	}
	if c.MaxBufferSize < c.BatchSize {
		return fmt.Errorf("%w: max buffer size %d is smaller than batch size %d", ErrInvalidConfig, c.MaxBufferSize, c.BatchSize)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidConfig)
	}
	if c.RetryInitialInterval <= 0 || c.RetryMaxInterval < c.RetryInitialInterval {
		return fmt.Errorf("%w: retry intervals must satisfy 0 < initial <= max", ErrInvalidConfig)
	}
	if c.SendTimeout < 0 {
		return fmt.Errorf("%w: send timeout cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Option configures a Transport.
type Option func(*Transport)

// WithFallback sets where dropped batches are reported.
func WithFallback(r fallback.Reporter) Option {
	return func(t *Transport) {
		if r != nil {
			t.reporter = r
		}
	}
}
