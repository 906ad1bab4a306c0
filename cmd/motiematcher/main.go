// Command motiematcher runs the Tweede Kamer vote-to-motion enrichment
// pipeline: collect raw votes, index motions, enrich them with linked vote
// histories and full text, and flatten the result into tabular outputs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tommyvanderwal/motiematcher-sub000/internal/config"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := &app{cfg: cfg, logger: logger}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		logger.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "motiematcher",
		Short:         "Vote-to-motion enrichment pipeline for Tweede Kamer open data",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			shutdown, err := telemetry.Init(cmd.Context(),
				a.cfg.OTELEndpoint, a.cfg.ServiceName, version, a.cfg.OTELInsecure)
			if err != nil {
				return fmt.Errorf("telemetry: %w", err)
			}
			a.otelShutdown = shutdown
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.otelShutdown != nil {
				_ = a.otelShutdown(context.Background())
			}
		},
	}

	collect := &cobra.Command{
		Use:   "collect",
		Short: "Collect raw vote pages from the OData API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.collect(cmd.Context())
		},
	}

	var caseDir string
	index := &cobra.Command{
		Use:   "index",
		Short: "Build the motion index from staged case pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.index(cmd.Context(), caseDir)
		},
	}
	index.Flags().StringVar(&caseDir, "case-dir", "", "directory of case page artifacts (default <data-dir>/zaak_current)")

	var skipText bool
	var maxMotions int
	enrich := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich indexed motions with votes and full text",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("skip-text") {
				a.cfg.SkipText = skipText
			}
			if cmd.Flags().Changed("max-motions") {
				a.cfg.MaxMotions = maxMotions
			}
			return a.enrich(cmd.Context(), caseDir)
		},
	}
	enrich.Flags().StringVar(&caseDir, "case-dir", "", "directory of case page artifacts (default <data-dir>/zaak_current)")
	enrich.Flags().BoolVar(&skipText, "skip-text", false, "skip text retrieval, tag records text_fetch_skipped")
	enrich.Flags().IntVar(&maxMotions, "max-motions", 0, "enrich only the first N motions (0 = all)")

	flatten := &cobra.Command{
		Use:   "flatten",
		Short: "Flatten enriched motions into JSONL, CSV, and SQLite",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.flatten(cmd.Context())
		},
	}

	runAll := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: collect, index, enrich, flatten",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.collect(ctx); err != nil {
				return err
			}
			if err := a.index(ctx, caseDir); err != nil {
				return err
			}
			if err := a.enrich(ctx, caseDir); err != nil {
				return err
			}
			return a.flatten(ctx)
		},
	}
	runAll.Flags().StringVar(&caseDir, "case-dir", "", "directory of case page artifacts (default <data-dir>/zaak_current)")

	root.AddCommand(collect, index, enrich, flatten, runAll)
	return root
}
