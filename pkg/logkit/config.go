package logkit

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/dedup"
	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"github.com/JailtonJunior94/logkit/pkg/transport"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Protocol selects how batches leave the process.
type Protocol string

const (
	ProtocolHTTP     Protocol = "http"
	ProtocolOTLPHTTP Protocol = "otlp-http"
	ProtocolOTLPGRPC Protocol = "otlp-grpc"
	ProtocolNone     Protocol = "none"
)

// ConsoleFormat selects the local console sink.
type ConsoleFormat string

const (
	ConsoleText ConsoleFormat = "text"
	ConsoleJSON ConsoleFormat = "json"
	ConsoleZap  ConsoleFormat = "zap"
	ConsoleOff  ConsoleFormat = "off"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DefaultEndpoint = "http://localhost:8080/api/logs"

	// DefaultResolutionFailureThreshold is the number of consecutive call
	// site resolution failures after which Health reports degraded.
	DefaultResolutionFailureThreshold = 100
)

// Config holds every tunable of the pipeline. Fields can be overridden from
// LOGKIT_* environment variables with LoadConfig.
type Config struct {
	Environment string   `env:"LOGKIT_ENVIRONMENT"`
	Source      string   `env:"LOGKIT_SOURCE"`
	Endpoint    string   `env:"LOGKIT_ENDPOINT"`
	Protocol    Protocol `env:"LOGKIT_PROTOCOL"`

	ConsoleMinLevel   logentry.Level `env:"LOGKIT_CONSOLE_MIN_LEVEL"`
	TransportMinLevel logentry.Level `env:"LOGKIT_TRANSPORT_MIN_LEVEL"`

	EnableDeduplication bool          `env:"LOGKIT_ENABLE_DEDUPLICATION"`
	DeduplicationWindow time.Duration `env:"LOGKIT_DEDUPLICATION_WINDOW"`
	DeduplicationKeys   []string      `env:"LOGKIT_DEDUPLICATION_KEYS" env-separator:","`
	// DebugFiltered reports every suppressed duplicate on the fallback channel.
	DebugFiltered bool `env:"LOGKIT_DEBUG_FILTERED"`

	EnableBatching       bool          `env:"LOGKIT_ENABLE_BATCHING"`
	BatchSize            int           `env:"LOGKIT_BATCH_SIZE"`
	BatchInterval        time.Duration `env:"LOGKIT_BATCH_INTERVAL"`
	MaxBufferSize        int           `env:"LOGKIT_MAX_BUFFER_SIZE"`
	MaxRetries           int           `env:"LOGKIT_MAX_RETRIES"`
	RetryInitialInterval time.Duration `env:"LOGKIT_RETRY_INITIAL_INTERVAL"`
	RetryMaxInterval     time.Duration `env:"LOGKIT_RETRY_MAX_INTERVAL"`
	RequestTimeout       time.Duration `env:"LOGKIT_REQUEST_TIMEOUT"`
	Insecure             bool          `env:"LOGKIT_INSECURE"`

	Layers        []logentry.Layer `env:"LOGKIT_LAYERS" env-separator:","`
	ProjectRoot   string           `env:"LOGKIT_PROJECT_ROOT"`
	ConsoleFormat ConsoleFormat    `env:"LOGKIT_CONSOLE_FORMAT"`
}

// DevelopmentConfig surfaces WARNING+ on the console and ships INFO+.
func DevelopmentConfig() Config {
	return Config{
		Environment:          EnvDevelopment,
		Source:               logentry.DefaultSource,
		Endpoint:             DefaultEndpoint,
		Protocol:             ProtocolHTTP,
		ConsoleMinLevel:      logentry.LevelWarning,
		TransportMinLevel:    logentry.LevelInfo,
		EnableDeduplication:  true,
		DeduplicationWindow:  5 * time.Second,
		DebugFiltered:        true,
		EnableBatching:       true,
		BatchSize:            10,
		BatchInterval:        5 * time.Second,
		MaxBufferSize:        1000,
		MaxRetries:           3,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		RequestTimeout:       10 * time.Second,
		Insecure:             true,
		Layers:               logentry.DefaultLayers(),
		ConsoleFormat:        ConsoleText,
	}
}

// ProductionConfig keeps the console to ERROR+ and ships WARNING+.
func ProductionConfig() Config {
	return Config{
		Environment:          EnvProduction,
		Source:               logentry.DefaultSource,
		Endpoint:             DefaultEndpoint,
		Protocol:             ProtocolHTTP,
		ConsoleMinLevel:      logentry.LevelError,
		TransportMinLevel:    logentry.LevelWarning,
		EnableDeduplication:  true,
		DeduplicationWindow:  30 * time.Second,
		EnableBatching:       true,
		BatchSize:            50,
		BatchInterval:        10 * time.Second,
		MaxBufferSize:        5000,
		MaxRetries:           3,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     30 * time.Second,
		RequestTimeout:       10 * time.Second,
		Layers:               logentry.DefaultLayers(),
		ConsoleFormat:        ConsoleJSON,
	}
}

// ConfigFor returns the preset of the named environment. Anything other than
// "production" gets the development preset.
func ConfigFor(environment string) Config {
	if environment == EnvProduction {
		return ProductionConfig()
	}
	cfg := DevelopmentConfig()
	if environment != "" {
		cfg.Environment = environment
	}
	return cfg
}

// LoadConfig loads the given .env files (missing files are skipped), picks the
// preset named by LOGKIT_ENVIRONMENT and applies LOGKIT_* overrides.
func LoadConfig(envFiles ...string) (Config, error) {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, &ConfigError{Field: "env file", Message: path, Err: err}
		}
	}

	var selected struct {
		Environment string `env:"LOGKIT_ENVIRONMENT" env-default:"development"`
	}
	if err := cleanenv.ReadEnv(&selected); err != nil {
		return Config{}, &ConfigError{Field: "Environment", Message: "cannot read environment", Err: err}
	}

	cfg := ConfigFor(selected.Environment)
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, &ConfigError{Field: "env", Message: "cannot read LOGKIT_* variables", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Source == "" {
		return configError("Source", "is required")
	}
	if !c.ConsoleMinLevel.IsValid() {
		return configError("ConsoleMinLevel", fmt.Sprintf("unknown level %d", int(c.ConsoleMinLevel)))
	}
	if !c.TransportMinLevel.IsValid() {
		return configError("TransportMinLevel", fmt.Sprintf("unknown level %d", int(c.TransportMinLevel)))
	}

	switch c.Protocol {
	case ProtocolHTTP, ProtocolOTLPHTTP, ProtocolOTLPGRPC:
		if c.Endpoint == "" {
			return configError("Endpoint", "is required for protocol "+string(c.Protocol))
		}
	case ProtocolNone:
	default:
		return configError("Protocol", fmt.Sprintf("unknown protocol %q", c.Protocol))
	}

	switch c.ConsoleFormat {
	case ConsoleText, ConsoleJSON, ConsoleZap, ConsoleOff:
	default:
		return configError("ConsoleFormat", fmt.Sprintf("unknown format %q", c.ConsoleFormat))
	}

	if c.EnableDeduplication && c.DeduplicationWindow <= 0 {
		return configError("DeduplicationWindow", "must be positive when deduplication is enabled")
	}
	if c.RequestTimeout < 0 {
		return configError("RequestTimeout", "cannot be negative")
	}

	if err := c.transportConfig().Validate(); err != nil {
		return &ConfigError{Field: "transport", Message: "invalid batching or retry settings", Err: err}
	}
	return nil
}

func (c Config) transportConfig() transport.Config {
	return transport.Config{
		EnableBatching:       c.EnableBatching,
		BatchSize:            c.BatchSize,
		BatchInterval:        c.BatchInterval,
		MaxBufferSize:        c.MaxBufferSize,
		MaxRetries:           c.MaxRetries,
		RetryInitialInterval: c.RetryInitialInterval,
		RetryMaxInterval:     c.RetryMaxInterval,
		SendTimeout:          c.RequestTimeout,
	}
}

func (c Config) dedupConfig() dedup.Config {
	cfg := dedup.DefaultConfig()
	cfg.Enabled = c.EnableDeduplication
	cfg.Window = c.DeduplicationWindow
	cfg.Keys = c.DeduplicationKeys
	if cfg.Window > 0 && cfg.Window < cfg.CleanupInterval {
		cfg.CleanupInterval = cfg.Window
	}
	return cfg
}

func (c Config) layerSet() logentry.LayerSet {
	return logentry.NewLayerSet(c.Layers...)
}
