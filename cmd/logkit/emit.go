package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"github.com/JailtonJunior94/logkit/pkg/logkit"
	"github.com/JailtonJunior94/logkit/pkg/telemetry"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

func emitCommand() *cobra.Command {
	var (
		envFile  string
		endpoint string
		protocol string
		level    string
		layer    string
		message  string
		module   string
		count    int
		extra    []string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Send log entries through the pipeline",
		Long: `Builds log entries with the configured pipeline and flushes them to the
collector before exiting.

Examples:
  logkit emit --message="User clicked save" --layer=Component --extra=formId=register
  logkit emit --protocol=otlp-http --endpoint=http://localhost:4318 --level=ERROR --count=3

Configuration comes from LOGKIT_* environment variables (see LOGKIT_ENVIRONMENT,
LOGKIT_ENDPOINT, LOGKIT_PROTOCOL, LOGKIT_TRANSPORT_MIN_LEVEL); flags win.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := logkit.LoadConfig(envFile)
			if err != nil {
				return err
			}
			if endpoint != "" {
				cfg.Endpoint = endpoint
			}
			if protocol != "" {
				cfg.Protocol = logkit.Protocol(protocol)
			}

			lvl, err := logentry.ParseLevel(level)
			if err != nil {
				return err
			}
			if lvl < cfg.TransportMinLevel {
				cfg.TransportMinLevel = lvl
			}

			fields, err := parseExtra(extra)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			traceCfg, err := telemetry.LoadConfig()
			if err != nil {
				return err
			}
			tracer, err := telemetry.NewProvider(ctx, traceCfg, telemetry.WithGlobal())
			if err != nil {
				return err
			}

			l, err := logkit.Init(ctx, cfg)
			if err != nil {
				_ = tracer.Shutdown(ctx)
				return err
			}

			ctx, span := tracer.Start(ctx, "logkit.emit",
				attribute.String("logkit.layer", layer),
				attribute.Int("logkit.count", count),
			)

			target := l.Layer(logentry.Layer(layer))
			if module != "" {
				target = l.ForModule(module).Layer(logentry.Layer(layer))
			}

			for i := range count {
				msg := message
				if count > 1 {
					msg = fmt.Sprintf("%s #%d", message, i+1)
				}
				target.Log(ctx, lvl, msg, fields)
			}
			span.End()

			closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			closeErr := errors.Join(logkit.Dispose(closeCtx), tracer.Shutdown(closeCtx))

			stats := l.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "accepted=%d suppressed=%d invalid=%d sent=%d failed=%d dropped=%d trace_id=%s\n",
				stats.Accepted, stats.Suppressed, stats.Invalid,
				stats.Transport.Sent, stats.Transport.Failed, stats.Transport.Dropped,
				span.SpanContext().TraceID().String(),
			)
			return closeErr
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "collector endpoint, overrides LOGKIT_ENDPOINT")
	cmd.Flags().StringVar(&protocol, "protocol", "", "http, otlp-http, otlp-grpc or none")
	cmd.Flags().StringVar(&level, "level", "INFO", "entry level")
	cmd.Flags().StringVar(&layer, "layer", string(logentry.LayerService), "entry layer")
	cmd.Flags().StringVar(&message, "message", "hello from logkit", "entry message")
	cmd.Flags().StringVar(&module, "module", "", "source path bound as module and file_path")
	cmd.Flags().IntVar(&count, "count", 1, "number of entries to send")
	cmd.Flags().StringArrayVar(&extra, "extra", nil, "extra key=value pair, repeatable")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "time allowed for the final flush")
	return cmd
}

func parseExtra(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid extra %q, want key=value", kv)
		}
		out[key] = value
	}
	return out, nil
}
