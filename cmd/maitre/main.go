// Command maitre structures scraped restaurant data for RAG pipelines.
//
// It reads raw records (JSON, HTML, Markdown, PDF), produces semantically
// chunked output with metadata and relationships, and exports it in several
// formats or into a database sink.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	maitre "github.com/platewise/maitre"
	"github.com/platewise/maitre/internal/config"
	"github.com/platewise/maitre/observer"
)

var (
	cfgPath string
	verbose bool

	cfg    config.Config
	logger *slog.Logger
	tracer maitre.Tracer
	insts  *observer.Instruments

	// set by observer init, called on exit
	shutdownObserver func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "maitre",
	Short: "Structure restaurant data for retrieval-augmented generation",
	Long: `Maitre turns scraped restaurant records into RAG-ready output:
semantic chunks with enriched metadata, a relationship graph between
chunks, and exports in JSON, JSONL, CSV, XLSX, or Parquet-style format.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load(cfgPath)

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		if cfg.Observer.Enabled {
			instruments, shutdown, err := observer.Init(cmd.Context())
			if err != nil {
				return fmt.Errorf("observer init: %w", err)
			}
			insts = instruments
			shutdownObserver = shutdown
			tracer = observer.NewTracer()
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownObserver != nil {
			return shutdownObserver(cmd.Context())
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to TOML config file (default maitre.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
