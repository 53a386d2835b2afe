package main

import (
	"github.com/JailtonJunior94/logkit/pkg/collector"
	"github.com/spf13/cobra"
)

func collectCommand() *cobra.Command {
	var (
		envFile   string
		port      string
		maxStored int
		origins   string
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run the development log collector",
		Long: `Runs an HTTP collector that validates and stores log batches.

Endpoints:
  POST   /api/logs  - ingest a JSON array of log records
  GET    /api/logs  - list stored records (?level=ERROR&limit=50)
  DELETE /api/logs  - clear stored records
  GET    /health    - health status
  GET    /metrics   - Prometheus metrics

Environment variables:
  COLLECTOR_ADDRESS       - listen address (default: :8080)
  COLLECTOR_SOURCE        - required source tag (default: frontend)
  COLLECTOR_LAYERS        - accepted layers, comma separated
  COLLECTOR_MAX_STORED    - in-memory window size (default: 1000)
  COLLECTOR_CORS_ORIGINS  - allowed browser origins, comma separated`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := collector.LoadConfig(envFile)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("cors") {
				cfg.CORSOrigins = origins
			}

			opts := []collector.Option{collector.WithConfig(cfg)}
			if cmd.Flags().Changed("port") {
				opts = append(opts, collector.WithPort(port))
			}
			if cmd.Flags().Changed("max-stored") {
				opts = append(opts, collector.WithMaxStored(maxStored))
			}

			srv, err := collector.New(opts...)
			if err != nil {
				return err
			}
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load")
	cmd.Flags().StringVar(&port, "port", "8080", "port to listen on")
	cmd.Flags().IntVar(&maxStored, "max-stored", 1000, "number of records kept in memory")
	cmd.Flags().StringVar(&origins, "cors", "", "allowed CORS origins, comma separated")
	return cmd
}
