package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"
)

// OTLPConfig describes an OTLP log endpoint.
type OTLPConfig struct {
	// Endpoint is host:port or a full URL.
	Endpoint  string
	Insecure  bool
	TLSConfig *tls.Config
	Timeout   time.Duration
	Headers   map[string]string
}

// OTLPSender converts entries to OpenTelemetry log records and exports them.
type OTLPSender struct {
	exporter sdklog.Exporter
	now      func() time.Time
}

// NewOTLPSender wraps an existing exporter.
func NewOTLPSender(exporter sdklog.Exporter) *OTLPSender {
	return &OTLPSender{exporter: exporter, now: time.Now}
}

// NewOTLPHTTPSender exports over OTLP/HTTP.
func NewOTLPHTTPSender(ctx context.Context, cfg OTLPConfig) (*OTLPSender, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: otlp endpoint is required", ErrInvalidConfig)
	}

	var opts []otlploghttp.Option
	if strings.Contains(cfg.Endpoint, "://") {
		opts = append(opts, otlploghttp.WithEndpointURL(cfg.Endpoint))
	} else {
		opts = append(opts, otlploghttp.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.Insecure:
		opts = append(opts, otlploghttp.WithInsecure())
	case cfg.TLSConfig != nil:
		opts = append(opts, otlploghttp.WithTLSClientConfig(cfg.TLSConfig))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(cfg.Timeout))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.Headers))
	}

	exporter, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize otlp http log exporter: %w", err)
	}
	return NewOTLPSender(exporter), nil
}

// NewOTLPGRPCSender exports over OTLP/gRPC.
func NewOTLPGRPCSender(ctx context.Context, cfg OTLPConfig) (*OTLPSender, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: otlp endpoint is required", ErrInvalidConfig)
	}

	var opts []otlploggrpc.Option
	if strings.Contains(cfg.Endpoint, "://") {
		opts = append(opts, otlploggrpc.WithEndpointURL(cfg.Endpoint))
	} else {
		opts = append(opts, otlploggrpc.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.Insecure:
		opts = append(opts, otlploggrpc.WithInsecure())
	case cfg.TLSConfig != nil:
		opts = append(opts, otlploggrpc.WithTLSCredentials(credentials.NewTLS(cfg.TLSConfig)))
	default:
		opts = append(opts, otlploggrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlploggrpc.WithTimeout(cfg.Timeout))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(cfg.Headers))
	}

	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize otlp grpc log exporter: %w", err)
	}
	return NewOTLPSender(exporter), nil
}

// Send exports entries as one call. Export failures are retryable.
func (s *OTLPSender) Send(ctx context.Context, entries []logentry.Entry) error {
	observed := s.now()
	records := make([]sdklog.Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, ToRecord(entry, observed))
	}

	if err := s.exporter.Export(ctx, records); err != nil {
		return &SendError{Op: "otlp export", Err: err}
	}
	return nil
}

// Shutdown flushes and releases the exporter.
func (s *OTLPSender) Shutdown(ctx context.Context) error {
	return s.exporter.Shutdown(ctx)
}

// ToRecord maps an entry onto an OpenTelemetry log record. The message is the
// body, the level the severity and every other field an attribute.
func ToRecord(entry logentry.Entry, observed time.Time) sdklog.Record {
	var r sdklog.Record
	r.SetTimestamp(entry.Timestamp)
	r.SetObservedTimestamp(observed)
	r.SetSeverity(severity(entry.Level))
	r.SetSeverityText(entry.Level.String())
	r.SetBody(otellog.StringValue(entry.Message))

	attrs := []otellog.KeyValue{
		otellog.String("source", entry.Source),
		otellog.String("layer", string(entry.Layer)),
		otellog.String("module", entry.Module),
		otellog.String("function", entry.Function),
	}
	if entry.FilePath != nil {
		attrs = append(attrs, otellog.String("file_path", *entry.FilePath))
	}
	if entry.LineNumber != nil {
		attrs = append(attrs, otellog.Int("line_number", *entry.LineNumber))
	}
	if entry.RequestID != "" {
		attrs = append(attrs, otellog.String("request_id", entry.RequestID))
	}
	if entry.UserID != "" {
		attrs = append(attrs, otellog.String("user_id", entry.UserID))
	}
	if entry.DurationMS != nil {
		attrs = append(attrs, otellog.Float64("duration_ms", *entry.DurationMS))
	}
	if len(entry.ExtraData) > 0 {
		attrs = append(attrs, otellog.Map("extra_data", mapValues(entry.ExtraData)...))
	}

	if entry.TraceID != "" {
		if id, err := trace.TraceIDFromHex(entry.TraceID); err == nil {
			r.SetTraceID(id)
		} else {
			attrs = append(attrs, otellog.String("trace_id", entry.TraceID))
		}
	}

	r.AddAttributes(attrs...)
	return r
}

func severity(level logentry.Level) otellog.Severity {
	switch level {
	case logentry.LevelDebug:
		return otellog.SeverityDebug
	case logentry.LevelInfo:
		return otellog.SeverityInfo
	case logentry.LevelWarning:
		return otellog.SeverityWarn
	case logentry.LevelError:
		return otellog.SeverityError
	case logentry.LevelCritical:
		return otellog.SeverityFatal
	default:
		return otellog.SeverityUndefined
	}
}

func mapValues(m map[string]any) []otellog.KeyValue {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kvs := make([]otellog.KeyValue, 0, len(keys))
	for _, k := range keys {
		kvs = append(kvs, otellog.KeyValue{Key: k, Value: toValue(m[k])})
	}
	return kvs
}

func toValue(v any) otellog.Value {
	switch value := v.(type) {
	case nil:
		return otellog.Value{}
	case string:
		return otellog.StringValue(value)
	case bool:
		return otellog.BoolValue(value)
	case int:
		return otellog.IntValue(value)
	case int8:
		return otellog.Int64Value(int64(value))
	case int16:
		return otellog.Int64Value(int64(value))
	case int32:
		return otellog.Int64Value(int64(value))
	case int64:
		return otellog.Int64Value(value)
	case uint8:
		return otellog.Int64Value(int64(value))
	case uint16:
		return otellog.Int64Value(int64(value))
	case uint32:
		return otellog.Int64Value(int64(value))
	case float32:
		return otellog.Float64Value(float64(value))
	case float64:
		return otellog.Float64Value(value)
	case []byte:
		return otellog.BytesValue(value)
	case map[string]any:
		return otellog.MapValue(mapValues(value)...)
	case logentry.Extra:
		return otellog.MapValue(mapValues(value)...)
	case []any:
		values := make([]otellog.Value, 0, len(value))
		for _, item := range value {
			values = append(values, toValue(item))
		}
		return otellog.SliceValue(values...)
	default:
		return otellog.StringValue(fmt.Sprint(value))
	}
}
