package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tommyvanderwal/motiematcher-sub000/internal/cache"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/collector"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/config"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/enrich"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/export"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/linkage"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/model"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/motionindex"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/ratelimit"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/telemetry"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/textfetch"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/tkapi"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/votes"
)

// Output artifact names under the data directory.
const (
	motionIndexFile        = "motion_index.json"
	motionIndexSummaryFile = "motion_index_summary.json"
	enrichedFile           = "motions_enriched.json"
	enrichSummaryFile      = "enrich_summary.json"
	collectSummaryFile     = "collection_summary.json"
	voteRowsJSONLFile      = "motion_votes.jsonl"
	voteRowsCSVFile        = "motion_votes.csv"
	voteSummariesFile      = "motion_vote_summaries.json"
	flattenStatsFile       = "flatten_stats.json"
	sqliteFile             = "motion_votes.db"
)

type app struct {
	cfg          config.Config
	logger       *slog.Logger
	otelShutdown telemetry.Shutdown
}

func caseDirOrDefault(dataDir, caseDir string) string {
	if caseDir != "" {
		return caseDir
	}
	return filepath.Join(dataDir, "zaak_current")
}

func (a *app) newStore() (*cache.Store, error) {
	return cache.New(a.cfg.DataDir, a.cfg.RefreshText, a.logger)
}

func (a *app) newLimiter() ratelimit.Limiter {
	if !a.cfg.RateLimitEnabled {
		return ratelimit.NoopLimiter{}
	}
	return ratelimit.NewMemoryLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst)
}

func (a *app) newClient(limiter ratelimit.Limiter, budget *tkapi.Budget) (*tkapi.Client, error) {
	return tkapi.NewClient(tkapi.Config{
		BaseURL:   a.cfg.BaseURL,
		UserAgent: a.cfg.UserAgent,
		Timeout:   a.cfg.HTTPTimeout,
		Limiter:   limiter,
		Budget:    budget,
		RetryMax:  a.cfg.RetryMax,
		RetryBase: a.cfg.RetryBaseDelay,
		Pause:     a.cfg.RequestPause,
		Logger:    a.logger,
	})
}

// collect harvests all vote pages since the configured start date and writes
// a collection summary next to them.
func (a *app) collect(ctx context.Context) error {
	store, err := a.newStore()
	if err != nil {
		return err
	}
	limiter := a.newLimiter()
	defer func() { _ = limiter.Close() }()

	client, err := a.newClient(limiter, nil)
	if err != nil {
		return err
	}

	a.logger.Info("collection starting",
		"start_date", a.cfg.CollectStartDate.Format("2006-01-02"),
		"page_size", a.cfg.PageSize)

	res, err := collector.New(client, store, a.logger, a.cfg.PageSize, a.cfg.MaxPages).
		Run(ctx, a.cfg.CollectStartDate)
	if err != nil {
		return err
	}

	a.logger.Info("collection complete",
		"pages", res.Pages,
		"records", res.Records,
		"unique_besluiten", res.UniqueDecisions,
		"unique_zaken", res.UniqueCases)
	return export.WriteJSON(filepath.Join(a.cfg.DataDir, collectSummaryFile), res)
}

// index builds the motion index from staged case pages and persists it.
func (a *app) index(ctx context.Context, caseDir string) error {
	_ = ctx
	dir := caseDirOrDefault(a.cfg.DataDir, caseDir)
	ix, err := motionindex.Build(dir, a.cfg.TermStartDate, a.logger)
	if err != nil {
		return err
	}
	if err := export.WriteJSON(filepath.Join(a.cfg.DataDir, motionIndexFile), ix.Motions); err != nil {
		return err
	}
	return export.WriteJSON(filepath.Join(a.cfg.DataDir, motionIndexSummaryFile), ix.Summary)
}

// enrich joins the motion index with resolved votes and fetched text.
func (a *app) enrich(ctx context.Context, caseDir string) error {
	store, err := a.newStore()
	if err != nil {
		return err
	}
	limiter := a.newLimiter()
	defer func() { _ = limiter.Close() }()

	budget := tkapi.NewBudget(a.cfg.MaxAPICalls)
	client, err := a.newClient(limiter, budget)
	if err != nil {
		return err
	}

	ix, err := motionindex.Build(caseDirOrDefault(a.cfg.DataDir, caseDir), a.cfg.TermStartDate, a.logger)
	if err != nil {
		return err
	}

	pages, err := store.PageFiles()
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return fmt.Errorf("no staged vote pages in %s; run collect first", store.PageDir())
	}
	records, err := linkage.ReadPages(pages)
	if err != nil {
		return err
	}
	lookup := linkage.Resolve(records, a.logger)

	fetcher := textfetch.New(client, store, a.logger, a.cfg.FetchConcurrency)
	assembler := enrich.New(fetcher, budget, a.logger, enrich.Options{
		MaxMotions: a.cfg.MaxMotions,
		SkipText:   a.cfg.SkipText,
	})
	enriched, summary, err := assembler.Run(ctx, ix, lookup)
	if err != nil {
		return err
	}

	if err := export.WriteJSON(filepath.Join(a.cfg.DataDir, enrichedFile), enriched); err != nil {
		return err
	}
	return export.WriteJSON(filepath.Join(a.cfg.DataDir, enrichSummaryFile), summary)
}

// flatten turns the enriched dataset into tabular outputs and optionally
// uploads the artifacts to S3.
func (a *app) flatten(ctx context.Context) error {
	enrichedPath := filepath.Join(a.cfg.DataDir, enrichedFile)
	data, err := os.ReadFile(enrichedPath)
	if err != nil {
		return fmt.Errorf("read enriched dataset %s (run enrich first): %w", enrichedPath, err)
	}
	var enriched []model.EnrichedMotion
	if err := json.Unmarshal(data, &enriched); err != nil {
		return fmt.Errorf("decode enriched dataset: %w", err)
	}

	res := votes.Flatten(enriched, a.logger)

	paths := []string{
		filepath.Join(a.cfg.DataDir, voteRowsJSONLFile),
		filepath.Join(a.cfg.DataDir, voteRowsCSVFile),
		filepath.Join(a.cfg.DataDir, voteSummariesFile),
		filepath.Join(a.cfg.DataDir, flattenStatsFile),
		filepath.Join(a.cfg.DataDir, sqliteFile),
	}
	if err := export.WriteJSONL(paths[0], res.Rows); err != nil {
		return err
	}
	if err := export.WriteVoteRowsCSV(paths[1], res.Rows); err != nil {
		return err
	}
	if err := export.WriteJSON(paths[2], res.Summaries); err != nil {
		return err
	}
	if err := export.WriteJSON(paths[3], res.Stats); err != nil {
		return err
	}
	if err := export.WriteSQLite(ctx, paths[4], res.Rows, res.Summaries); err != nil {
		return err
	}

	if a.cfg.S3Bucket == "" {
		return nil
	}
	uploader, err := export.NewUploader(ctx, export.S3Config{
		Bucket:    a.cfg.S3Bucket,
		Region:    a.cfg.S3Region,
		AccessKey: a.cfg.AWSAccessKey,
		SecretKey: a.cfg.AWSSecretKey,
	}, a.logger)
	if err != nil {
		return err
	}
	prefix := "motiematcher/" + time.Now().UTC().Format("20060102")
	return uploader.UploadAll(ctx, prefix, paths)
}
