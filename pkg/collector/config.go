package collector

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds the collector configuration.
type Config struct {
	Address      string        `env:"COLLECTOR_ADDRESS"`
	ReadTimeout  time.Duration `env:"COLLECTOR_READ_TIMEOUT"`
	WriteTimeout time.Duration `env:"COLLECTOR_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `env:"COLLECTOR_IDLE_TIMEOUT"`
	BodyLimit    int           `env:"COLLECTOR_BODY_LIMIT"`

	// Source is the tier tag every record must carry.
	Source string           `env:"COLLECTOR_SOURCE"`
	Layers []logentry.Layer `env:"COLLECTOR_LAYERS" env-separator:","`
	// MaxStored bounds the in-memory window; the oldest records are evicted.
	MaxStored int `env:"COLLECTOR_MAX_STORED"`

	ServiceName    string `env:"COLLECTOR_SERVICE_NAME"`
	ServiceVersion string `env:"COLLECTOR_SERVICE_VERSION"`
	EnableMetrics  bool   `env:"COLLECTOR_ENABLE_METRICS"`
	// CORSOrigins is a comma-separated allow list; empty disables CORS.
	CORSOrigins string `env:"COLLECTOR_CORS_ORIGINS"`
}

// DefaultConfig returns a new Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Address:        ":8080",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		BodyLimit:      4 * 1024 * 1024,
		Source:         logentry.DefaultSource,
		Layers:         logentry.DefaultLayers(),
		MaxStored:      1000,
		ServiceName:    "logkit-collector",
		ServiceVersion: "dev",
		EnableMetrics:  true,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return errors.New("address is required")
	}

	if strings.TrimSpace(c.Source) == "" {
		return errors.New("source is required")
	}

	if strings.TrimSpace(c.ServiceName) == "" {
		return errors.New("service name is required")
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %v", c.ReadTimeout)
	}

	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %v", c.WriteTimeout)
	}

	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive, got %v", c.IdleTimeout)
	}

	if c.BodyLimit <= 0 {
		return fmt.Errorf("body limit must be positive, got %d", c.BodyLimit)
	}

	if c.MaxStored <= 0 {
		return fmt.Errorf("max stored must be positive, got %d", c.MaxStored)
	}

	if _, err := parseOrigins(c.CORSOrigins); err != nil {
		return fmt.Errorf("invalid CORS origins: %w", err)
	}

	return nil
}

// LoadConfig starts from DefaultConfig, loads the given .env files (missing
// ones are skipped) and applies COLLECTOR_* overrides.
func LoadConfig(envFiles ...string) (Config, error) {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read collector environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
