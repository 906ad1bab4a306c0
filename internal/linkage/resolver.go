// Package linkage turns raw vote pages into a decision→motion lookup with
// deduplicated, seat-weighted vote breakdowns.
//
// The source data ties a Decision to its AgendaItem's Case sequence through a
// 1-based ordinal that is frequently missing or malformed. Resolution maps
// each Decision to at most one motion Case, or leaves it explicitly
// unresolved with notes; it never splits a Decision over multiple targets.
package linkage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tommyvanderwal/motiematcher-sub000/internal/model"
)

// ReadPages decodes staged vote-page artifacts into their raw records,
// preserving arrival order across pages.
func ReadPages(paths []string) ([]model.VoteRecord, error) {
	var records []model.VoteRecord
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("linkage: read page %s: %w", filepath.Base(path), err)
		}
		var envelope model.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("linkage: decode page %s: %w", filepath.Base(path), err)
		}
		if len(envelope.Value) == 0 {
			continue
		}
		var page []model.VoteRecord
		if err := json.Unmarshal(envelope.Value, &page); err != nil {
			return nil, fmt.Errorf("linkage: decode page records %s: %w", filepath.Base(path), err)
		}
		records = append(records, page...)
	}
	return records, nil
}

// Lookup is the resolver's output: every Decision exactly once, plus the
// motion-target index over the resolved subset.
type Lookup struct {
	Decisions []model.DecisionVotes

	// ByCase maps a motion case id to its Decisions, most recent first.
	// A case receives multiple decisions on re-votes.
	ByCase map[string][]model.DecisionVotes
}

// DecisionsForCase returns the decisions attached to a motion case,
// most recent first.
func (l *Lookup) DecisionsForCase(caseID string) []model.DecisionVotes {
	return l.ByCase[caseID]
}

// Resolve groups raw vote records by Decision, deduplicates votes, resolves
// each Decision's motion target, and aggregates weighted totals.
func Resolve(records []model.VoteRecord, logger *slog.Logger) *Lookup {
	groups, order := groupByDecision(records, logger)

	lookup := &Lookup{ByCase: make(map[string][]model.DecisionVotes)}
	for _, decisionID := range order {
		dv := resolveDecision(decisionID, groups[decisionID])
		lookup.Decisions = append(lookup.Decisions, dv)
		if target, ok := dv.Resolution.Target(); ok {
			lookup.ByCase[target] = append(lookup.ByCase[target], dv)
		}
	}

	for caseID := range lookup.ByCase {
		sortRecentFirst(lookup.ByCase[caseID])
	}

	logger.Info("linkage resolved",
		"raw_records", len(records),
		"decisions", len(lookup.Decisions),
		"resolved_cases", len(lookup.ByCase))
	return lookup
}

func groupByDecision(records []model.VoteRecord, logger *slog.Logger) (map[string][]model.VoteRecord, []string) {
	groups := make(map[string][]model.VoteRecord)
	var order []string
	skipped := 0
	for _, rec := range records {
		id := rec.DecisionID
		if id == "" && rec.Decision != nil {
			id = rec.Decision.ID
		}
		if id == "" {
			skipped++
			continue
		}
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], rec)
	}
	if skipped > 0 {
		logger.Warn("vote records without a decision id skipped", "count", skipped)
	}
	return groups, order
}

func resolveDecision(decisionID string, records []model.VoteRecord) model.DecisionVotes {
	dv := model.DecisionVotes{
		DecisionID:   decisionID,
		RawVoteCount: len(records),
		VoteTotals:   make(map[string]int),
	}

	var decision *model.Decision
	for _, rec := range records {
		if rec.Decision != nil {
			decision = rec.Decision
			break
		}
	}
	var cases []model.Case
	if decision != nil {
		dv.Kind = decision.Kind
		dv.Text = decision.Text
		dv.VoteKind = decision.VoteKind
		dv.Status = decision.Status
		if t, ok := decision.LastModified(); ok {
			dv.LastChanged = &t
		}
		if decision.AgendaItem != nil {
			cases = decision.AgendaItem.Cases
			dv.AgendaItem = &model.AgendaItemRef{
				ID:         decision.AgendaItem.ID,
				Subject:    decision.AgendaItem.Subject,
				Status:     decision.AgendaItem.Status,
				ModifiedAt: decision.AgendaItem.ModifiedAt,
			}
		}
	}

	votes, flaggedNoID := dedupVotes(records)
	dv.Votes = votes
	dv.VoteCount = len(votes)
	dv.DuplicatesRemoved = dv.RawVoteCount - dv.VoteCount
	if flaggedNoID {
		dv.LinkingNotes = append(dv.LinkingNotes, model.NoteVoteWithoutID)
	}
	// Seed a zero bucket for every vote value seen before deduplication, so a
	// value whose only vote was superseded still shows up as an explicit 0.
	for _, rec := range records {
		dv.VoteTotals[normalizeValue(rec.Value)] = 0
	}
	for _, v := range votes {
		dv.VoteTotals[v.Value] += v.Weight
	}

	for _, c := range cases {
		dv.CandidateCases = append(dv.CandidateCases, model.CaseRef{
			ID:             c.ID,
			Kind:           c.Kind,
			Number:         c.Number,
			SequenceNumber: c.SequenceNumber,
		})
		if c.IsMotion() {
			dv.MotionCandidateIDs = append(dv.MotionCandidateIDs, c.ID)
		}
	}

	dv.Resolution = resolveTarget(decision, cases)
	dv.LinkingNotes = append(dv.LinkingNotes, dv.Resolution.Notes...)
	if target, ok := dv.Resolution.Target(); ok {
		dv.LinkedCaseIDs = []string{target}
	}
	return dv
}

// dedupVotes keeps the most recently modified version of each vote id.
// Votes without an id have no identity to deduplicate against; they are kept
// as-is and reported through the second return value. First-seen order is
// preserved so resolution is independent of duplicate arrival order.
func dedupVotes(records []model.VoteRecord) ([]model.Vote, bool) {
	type kept struct {
		rec      model.VoteRecord
		modified time.Time
		hasTime  bool
	}
	byID := make(map[string]*kept)
	var order []string
	var noID []model.VoteRecord

	for _, rec := range records {
		if rec.ID == "" {
			noID = append(noID, rec)
			continue
		}
		modified, hasTime := rec.LastModified()
		existing, seen := byID[rec.ID]
		if !seen {
			order = append(order, rec.ID)
			byID[rec.ID] = &kept{rec: rec, modified: modified, hasTime: hasTime}
			continue
		}
		// Newer modification wins; with no usable timestamps the later
		// arrival wins.
		if !existing.hasTime || (hasTime && modified.After(existing.modified)) {
			*existing = kept{rec: rec, modified: modified, hasTime: hasTime}
		}
	}

	votes := make([]model.Vote, 0, len(order)+len(noID))
	for _, id := range order {
		votes = append(votes, toVote(byID[id].rec))
	}
	for _, rec := range noID {
		votes = append(votes, toVote(rec))
	}
	return votes, len(noID) > 0
}

func normalizeValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return model.VoteUnknown
	}
	return value
}

func toVote(rec model.VoteRecord) model.Vote {
	v := model.Vote{
		VoteID:       rec.ID,
		Value:        normalizeValue(rec.Value),
		Weight:       rec.Weight(),
		ActorName:    rec.ActorName,
		ActorFaction: rec.ActorFaction,
		Correction:   rec.Correction,
		FactionID:    rec.FactionID,
		PersonID:     rec.PersonID,
	}
	if rec.Faction != nil {
		v.FactionAbbr = rec.Faction.Abbreviation
		v.FactionName = rec.Faction.NameNL
	}
	if rec.Person != nil {
		v.PersonName = rec.Person.DisplayName()
	}
	return v
}

// resolveTarget maps a Decision onto the Case it decided. The ordinal path
// is authoritative; the fallback only fires when the ordinal is unusable,
// and only when it cannot be ambiguous.
func resolveTarget(decision *model.Decision, cases []model.Case) model.Resolution {
	var res model.Resolution

	if decision == nil {
		res.Notes = append(res.Notes, model.NoteOrdinalMissing)
		return fallback(res, cases)
	}

	ordinal, state := decision.OrdinalValue()
	switch state {
	case model.OrdinalPresent:
		if ordinal >= 1 && ordinal <= len(cases) {
			return selectTarget(res, cases[ordinal-1])
		}
		res.Notes = append(res.Notes, model.NoteOrdinalOutOfRange)
	case model.OrdinalMissing:
		res.Notes = append(res.Notes, model.NoteOrdinalMissing)
	case model.OrdinalInvalidType:
		res.Notes = append(res.Notes, model.NoteOrdinalInvalidType)
	}
	return fallback(res, cases)
}

func fallback(res model.Resolution, cases []model.Case) model.Resolution {
	var motions []model.Case
	for _, c := range cases {
		if c.IsMotion() {
			motions = append(motions, c)
		}
	}
	switch len(motions) {
	case 1:
		res.Notes = append(res.Notes, model.NoteFallbackSingle)
		return selectTarget(res, motions[0])
	case 0:
		res.Notes = append(res.Notes, model.NoteNoMotionCandidates)
	default:
		res.Notes = append(res.Notes, model.NoteAmbiguousMotions)
	}
	return res
}

// selectTarget accepts a candidate Case, unless its kind is not a motion:
// then the Decision stays unresolved for motion-matching purposes.
func selectTarget(res model.Resolution, c model.Case) model.Resolution {
	if !c.IsMotion() {
		res.Notes = append(res.Notes, model.NoteTargetNotMotion+":"+c.Kind)
		return res
	}
	res.CaseID = c.ID
	return res
}

func sortRecentFirst(decisions []model.DecisionVotes) {
	sort.SliceStable(decisions, func(i, j int) bool {
		a, b := decisions[i].LastChanged, decisions[j].LastChanged
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}
