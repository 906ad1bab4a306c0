// Package enrich joins the motion index, the resolved decision lookup, and
// fetched texts into the final enriched-motion dataset.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tommyvanderwal/motiematcher-sub000/internal/linkage"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/model"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/motionindex"
	"github.com/tommyvanderwal/motiematcher-sub000/internal/tkapi"
)

// Issue prefixes for tags lifted from the linkage layer into enriched records.
const (
	voteLinkPrefix  = "vote_link:"
	voteDedupPrefix = "vote_dedup:removed_"
)

// TextFetcher produces positional text results for a batch of motions.
// *textfetch.Fetcher implements it.
type TextFetcher interface {
	FetchAll(ctx context.Context, motions []model.Motion) ([]model.TextResult, error)
}

// Options bound an enrichment run.
type Options struct {
	// MaxMotions caps the number of motions enriched; <= 0 means all.
	MaxMotions int

	// SkipText replaces text retrieval with a text_fetch_skipped tag.
	SkipText bool
}

// Assembler builds enriched motion records.
type Assembler struct {
	fetcher TextFetcher
	budget  *tkapi.Budget
	logger  *slog.Logger
	opts    Options
}

// New returns an Assembler. budget may be nil; it is only read for the run
// summary's api-call count.
func New(fetcher TextFetcher, budget *tkapi.Budget, logger *slog.Logger, opts Options) *Assembler {
	return &Assembler{fetcher: fetcher, budget: budget, logger: logger, opts: opts}
}

// Run enriches every indexed motion. A motion with zero resolved decisions
// is still emitted, tagged no_vote_data with empty totals.
func (a *Assembler) Run(ctx context.Context, index *motionindex.Index, lookup *linkage.Lookup) ([]model.EnrichedMotion, model.EnrichSummary, error) {
	motions := index.Motions
	limited := false
	if a.opts.MaxMotions > 0 && len(motions) > a.opts.MaxMotions {
		motions = motions[:a.opts.MaxMotions]
		limited = true
	}

	texts, err := a.fetchTexts(ctx, motions)
	if err != nil {
		return nil, model.EnrichSummary{}, fmt.Errorf("enrich: fetch texts: %w", err)
	}

	enriched := make([]model.EnrichedMotion, 0, len(motions))
	for i, motion := range motions {
		enriched = append(enriched, assemble(motion, lookup.DecisionsForCase(motion.CaseID), texts[i]))
	}

	summary := summarize(enriched, len(index.Motions), limited, a.budget)
	a.logger.Info("enrichment complete",
		"run_id", summary.RunID,
		"motions", summary.MotionCountOutput,
		"with_votes", summary.VoteCoverage["with_votes"],
		"with_text", summary.TextCoverage["with_text"],
		"api_calls_used", summary.APICallsUsed)
	return enriched, summary, nil
}

func (a *Assembler) fetchTexts(ctx context.Context, motions []model.Motion) ([]model.TextResult, error) {
	if a.opts.SkipText {
		texts := make([]model.TextResult, len(motions))
		for i := range texts {
			texts[i] = model.TextResult{Issues: []string{model.IssueTextSkipped}}
		}
		return texts, nil
	}
	return a.fetcher.FetchAll(ctx, motions)
}

func assemble(motion model.Motion, decisions []model.DecisionVotes, text model.TextResult) model.EnrichedMotion {
	em := model.EnrichedMotion{
		MotionID:     motion.CaseID,
		MotionNumber: motion.Number,
		MotionTitle:  motion.DisplayTitle(),
		Motion:       motion,
		Text:         text,
		VoteTotals:   map[string]int{},
	}

	issues := newIssueSet()
	issues.addAll(text.Issues)

	if len(decisions) == 0 {
		issues.add(model.IssueNoVoteData)
	} else {
		// Decisions arrive most recent first; the newest one carries the
		// authoritative outcome and breakdown.
		latest := decisions[0]
		em.FinalStatus = finalStatus(latest)
		em.VoteTotals = latest.VoteTotals
		em.VoteBreakdown = latest.Votes

		for _, dv := range decisions {
			em.DecisionSummaries = append(em.DecisionSummaries, model.DecisionSummary{
				DecisionID:         dv.DecisionID,
				Kind:               dv.Kind,
				Text:               dv.Text,
				LastChanged:        dv.LastChanged,
				VoteTotals:         dv.VoteTotals,
				VoteCount:          dv.VoteCount,
				RawVoteCount:       dv.RawVoteCount,
				DuplicatesRemoved:  dv.DuplicatesRemoved,
				LinkedCaseIDs:      dv.LinkedCaseIDs,
				MotionCandidateIDs: dv.MotionCandidateIDs,
				LinkingNotes:       dv.LinkingNotes,
			})
			for _, note := range dv.LinkingNotes {
				issues.add(voteLinkPrefix + note)
			}
			if dv.DuplicatesRemoved > 0 {
				issues.add(fmt.Sprintf("%s%d", voteDedupPrefix, dv.DuplicatesRemoved))
			}
		}
	}

	em.Issues = issues.slice()
	return em
}

// finalStatus picks the most specific available outcome field of the most
// recent decision.
func finalStatus(dv model.DecisionVotes) string {
	if dv.Kind != "" {
		return dv.Kind
	}
	if dv.Text != "" {
		return dv.Text
	}
	return dv.Status
}

func summarize(enriched []model.EnrichedMotion, inputCount int, limited bool, budget *tkapi.Budget) model.EnrichSummary {
	summary := model.EnrichSummary{
		RunID:             uuid.New(),
		GeneratedAt:       time.Now().UTC(),
		MotionCountInput:  inputCount,
		MotionCountOutput: len(enriched),
		LimitApplied:      limited,
		VoteCoverage:      map[string]int{"with_votes": 0, "without_votes": 0},
		TextCoverage:      map[string]int{"with_text": 0, "without_text": 0},
		IssueCounts:       map[string]int{},
		APICallsUsed:      budget.Used(),
	}
	for _, em := range enriched {
		if len(em.DecisionSummaries) > 0 {
			summary.VoteCoverage["with_votes"]++
		} else {
			summary.VoteCoverage["without_votes"]++
		}
		if em.Text.HasText() {
			summary.TextCoverage["with_text"]++
		} else {
			summary.TextCoverage["without_text"]++
		}
		for _, issue := range em.Issues {
			summary.IssueCounts[issue]++
		}
	}
	return summary
}

// issueSet is an insertion-ordered string set.
type issueSet struct {
	seen  map[string]struct{}
	order []string
}

func newIssueSet() *issueSet {
	return &issueSet{seen: make(map[string]struct{})}
}

func (s *issueSet) add(issue string) {
	if issue == "" {
		return
	}
	if _, ok := s.seen[issue]; ok {
		return
	}
	s.seen[issue] = struct{}{}
	s.order = append(s.order, issue)
}

func (s *issueSet) addAll(issues []string) {
	for _, issue := range issues {
		s.add(issue)
	}
}

func (s *issueSet) slice() []string {
	return s.order
}
