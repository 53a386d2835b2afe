package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "logkit",
		Short: "Structured logging pipeline with call site resolution and batched delivery",
		Long: `logkit builds structured log entries, deduplicates them and ships them in
batches to a collector.

Commands:
  collect  - run the development collector (POST /api/logs)
  emit     - send log entries through the pipeline

Both commands read a .env file from the working directory when present.`,
		SilenceUsage: true,
	}

	root.AddCommand(collectCommand(), emitCommand())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
