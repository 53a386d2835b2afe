package logkit

import (
	"context"
	"net/http"

	"github.com/JailtonJunior94/logkit/pkg/fallback"
	"github.com/JailtonJunior94/logkit/pkg/transport"
)

func newSender(ctx context.Context, cfg Config, reporter fallback.Reporter) (transport.Sender, error) {
	switch cfg.Protocol {
	case ProtocolNone:
		return transport.NopSender{}, nil
	case ProtocolOTLPHTTP:
		return transport.NewOTLPHTTPSender(ctx, cfg.otlpConfig())
	case ProtocolOTLPGRPC:
		return transport.NewOTLPGRPCSender(ctx, cfg.otlpConfig())
	default:
		return transport.NewHTTPSender(cfg.Endpoint,
			transport.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
			transport.WithEncodeReporter(reporter),
		)
	}
}

func (c Config) otlpConfig() transport.OTLPConfig {
	return transport.OTLPConfig{
		Endpoint: c.Endpoint,
		Insecure: c.Insecure,
		Timeout:  c.RequestTimeout,
	}
}
