// Package collector harvests vote records from the OData API with a
// monotonically advancing time cursor and stages every page on disk verbatim.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tommyvanderwal/motiematcher-sub000/internal/cache"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/model"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/telemetry"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/tkapi"
)

// voteExpand pulls the Decision with its AgendaItem and Case sequence, plus
// the voting Faction and Person, in a single request.
const voteExpand = "Besluit($expand=Agendapunt($expand=Zaak)),Fractie,Persoon"

// Collector pages through Stemming records ordered by their Decision's
// modification time.
type Collector struct {
	client   *tkapi.Client
	store    *cache.Store
	logger   *slog.Logger
	pageSize int
	maxPages int

	pagesFetched metric.Int64Counter
}

// New returns a Collector. maxPages <= 0 means no page cap.
func New(client *tkapi.Client, store *cache.Store, logger *slog.Logger, pageSize, maxPages int) *Collector {
	if pageSize <= 0 {
		pageSize = 100
	}
	meter := telemetry.Meter("collector")
	pagesFetched, _ := meter.Int64Counter("collector.pages",
		metric.WithDescription("Vote pages fetched and staged"))
	return &Collector{
		client:       client,
		store:        store,
		logger:       logger,
		pageSize:     pageSize,
		maxPages:     maxPages,
		pagesFetched: pagesFetched,
	}
}

// Result summarizes one collection run.
type Result struct {
	Pages           int       `json:"pages"`
	Records         int       `json:"records"`
	UniqueDecisions int       `json:"unique_decisions"`
	UniqueCases     int       `json:"unique_cases"`
	Files           []string  `json:"files"`
	Cursor          time.Time `json:"cursor"`
}

// Run collects all vote records whose Decision was modified on or after
// start. Each page is persisted before the cursor advances, so a failed run
// leaves a resumable prefix on disk. Any non-success HTTP status is fatal
// for the run: a silently skipped page would leave an undetectable gap in
// the vote history.
func (c *Collector) Run(ctx context.Context, start time.Time) (*Result, error) {
	runStamp := time.Now().UTC().Format("20060102_150405")
	cursor := start
	filter := fmt.Sprintf(
		"Besluit/GewijzigdOp ge %s and Besluit/Verwijderd eq false and Verwijderd eq false",
		model.FormatAPITime(start))

	res := &Result{Cursor: cursor}
	decisions := make(map[string]struct{})
	cases := make(map[string]struct{})

	for page := 1; ; page++ {
		if c.maxPages > 0 && page > c.maxPages {
			c.logger.Info("page cap reached", "max_pages", c.maxPages)
			break
		}

		body, err := c.client.List(ctx, "Stemming", tkapi.Query{
			Filter:  filter,
			OrderBy: "Besluit/GewijzigdOp asc",
			Expand:  voteExpand,
			Top:     c.pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("collector: page %d: %w", page, err)
		}

		var envelope model.Envelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("collector: decode page %d: %w", page, err)
		}
		var records []model.VoteRecord
		if len(envelope.Value) > 0 {
			if err := json.Unmarshal(envelope.Value, &records); err != nil {
				return nil, fmt.Errorf("collector: decode page %d records: %w", page, err)
			}
		}
		if len(records) == 0 {
			c.logger.Info("empty page, collection complete", "page", page)
			break
		}

		path, err := c.store.WritePage(runStamp, page, body)
		if err != nil {
			return nil, fmt.Errorf("collector: stage page %d: %w", page, err)
		}
		c.pagesFetched.Add(ctx, 1)

		res.Pages++
		res.Records += len(records)
		res.Files = append(res.Files, path)
		for _, rec := range records {
			if id := decisionID(rec); id != "" {
				decisions[id] = struct{}{}
			}
			if rec.Decision != nil && rec.Decision.AgendaItem != nil {
				for _, cs := range rec.Decision.AgendaItem.Cases {
					if cs.ID != "" {
						cases[cs.ID] = struct{}{}
					}
				}
			}
		}

		next, ok := nextCursor(records)
		if !ok {
			return nil, fmt.Errorf("collector: page %d has no parseable decision timestamp, cannot advance cursor", page)
		}
		cursor = next
		res.Cursor = cursor
		filter = fmt.Sprintf(
			"Besluit/GewijzigdOp gt %s and Besluit/Verwijderd eq false and Verwijderd eq false",
			model.FormatAPITime(cursor))

		c.logger.Info("page staged",
			"page", page,
			"records", len(records),
			"cursor", model.FormatAPITime(cursor),
			"file", path)

		if len(records) < c.pageSize {
			c.logger.Info("short page, collection complete", "page", page, "records", len(records))
			break
		}
	}

	res.UniqueDecisions = len(decisions)
	res.UniqueCases = len(cases)
	return res, nil
}

func decisionID(rec model.VoteRecord) string {
	if rec.DecisionID != "" {
		return rec.DecisionID
	}
	if rec.Decision != nil {
		return rec.Decision.ID
	}
	return ""
}

// nextCursor returns the last record's decision modification time plus one
// millisecond. Records at the tail without a parseable timestamp are skipped
// backwards; +1ms guarantees forward progress past the boundary record.
func nextCursor(records []model.VoteRecord) (time.Time, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Decision == nil {
			continue
		}
		if t, ok := model.ParseAPITime(records[i].Decision.ModifiedAt); ok {
			return t.Add(time.Millisecond), true
		}
	}
	return time.Time{}, false
}
