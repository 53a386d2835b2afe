package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/fallback"
	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	// DefaultHTTPTimeout is the client timeout of HTTPSender.
	DefaultHTTPTimeout = 30 * time.Second

	// maxDrainSize bounds how much of a response body is read before closing.
	maxDrainSize = 1 << 20

	maxErrorBodySize = 512
)

// HTTPSender posts batches as a JSON array to the collector endpoint.
type HTTPSender struct {
	endpoint   string
	client     *http.Client
	headers    map[string]string
	propagator propagation.TextMapPropagator
	reporter   fallback.Reporter
}

// HTTPOption configures an HTTPSender.
type HTTPOption func(*HTTPSender)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithHeaders adds static headers to every request.
func WithHeaders(headers map[string]string) HTTPOption {
	return func(s *HTTPSender) {
		for k, v := range headers {
			s.headers[k] = v
		}
	}
}

// WithPropagator sets how trace context is injected. Defaults to the global
// OpenTelemetry propagator.
func WithPropagator(p propagation.TextMapPropagator) HTTPOption {
	return func(s *HTTPSender) {
		if p != nil {
			s.propagator = p
		}
	}
}

// WithEncodeReporter sets where per-entry serialization failures are
// reported.
func WithEncodeReporter(r fallback.Reporter) HTTPOption {
	return func(s *HTTPSender) {
		if r != nil {
			s.reporter = r
		}
	}
}

// NewHTTPSender creates a sender for an http or https endpoint.
func NewHTTPSender(endpoint string, opts ...HTTPOption) (*HTTPSender, error) {
	u, err := url.ParseRequestURI(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: endpoint: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: endpoint scheme must be http or https, got %q", ErrInvalidConfig, u.Scheme)
	}

	s := &HTTPSender{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultHTTPTimeout},
		headers:    make(map[string]string),
		propagator: otel.GetTextMapPropagator(),
		reporter:   fallback.New(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send posts entries. Network failures, 5xx and 429 are retryable; any other
// non-2xx status is permanent.
func (s *HTTPSender) Send(ctx context.Context, entries []logentry.Entry) error {
	body, err := logentry.EncodeBatch(entries, func(index int, err error) {
		s.reporter.Report("log entry serialization failed", "index", index, "error", err.Error())
	})
	if err != nil {
		return Permanent(&SendError{Op: "encode", Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Permanent(&SendError{Op: "build request", Err: err})
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	s.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := s.client.Do(req)
	if err != nil {
		return &SendError{Op: "post", Err: err}
	}
	defer drainBody(resp)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	sendErr := &SendError{
		Op:         "post",
		StatusCode: resp.StatusCode,
		Message:    readSnippet(resp.Body),
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return sendErr
	}
	return Permanent(sendErr)
}

func readSnippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	return strings.TrimSpace(string(data))
}

// drainBody reads a bounded amount of the body so the connection can be
// reused, then closes it.
func drainBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize))
	_ = resp.Body.Close()
}
