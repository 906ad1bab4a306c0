// Package votes flattens enriched motion records into tabular rows for
// downstream analysis.
package votes

import (
	"log/slog"
	"strings"
	"time"

	"github.com/tommyvanderwal/motiematcher-sub000/internal/model"
)

// Result bundles the aggregator's three outputs.
type Result struct {
	Rows      []model.FlatVoteRow
	Summaries []model.MotionVoteSummary
	Stats     model.FlattenStats
}

// Flatten emits one row per individual vote and one summary row per motion.
// Votes are deduplicated by vote id a second time (keep last) as a safety
// net; the linkage layer should already have done this.
func Flatten(enriched []model.EnrichedMotion, logger *slog.Logger) Result {
	res := Result{
		Stats: model.FlattenStats{
			GeneratedAt: time.Now().UTC(),
			MotionCount: len(enriched),
			IssueCounts: map[string]int{},
		},
	}

	for _, em := range enriched {
		issuesJoined := strings.Join(em.Issues, ";")
		votes, removed := dedupKeepLast(em.VoteBreakdown)
		res.Stats.DuplicateRows += removed

		for _, v := range votes {
			res.Rows = append(res.Rows, flatRow(em, v, issuesJoined))
		}

		res.Summaries = append(res.Summaries, model.MotionVoteSummary{
			MotionID:     em.MotionID,
			MotionNumber: em.MotionNumber,
			MotionTitle:  em.MotionTitle,
			MotionDate:   em.Motion.StartedAt,
			FinalStatus:  em.FinalStatus,
			VoteTotals:   em.VoteTotals,
			VoteCount:    len(votes),
			RawVoteLines: len(em.VoteBreakdown),
			IssuesJoined: issuesJoined,
		})

		if len(votes) > 0 {
			res.Stats.MotionsWithVotes++
		}
		if em.Text.HasText() {
			res.Stats.MotionsWithText++
		}
		for _, issue := range em.Issues {
			res.Stats.IssueCounts[issue]++
		}
	}
	res.Stats.VoteRowCount = len(res.Rows)

	logger.Info("votes flattened",
		"motions", res.Stats.MotionCount,
		"rows", res.Stats.VoteRowCount,
		"duplicate_rows_removed", res.Stats.DuplicateRows)
	return res
}

// dedupKeepLast keeps the last occurrence of each vote id, preserving the
// relative order of survivors. Votes without an id are always kept.
func dedupKeepLast(votes []model.Vote) ([]model.Vote, int) {
	lastIndex := make(map[string]int, len(votes))
	for i, v := range votes {
		if v.VoteID != "" {
			lastIndex[v.VoteID] = i
		}
	}
	out := make([]model.Vote, 0, len(votes))
	for i, v := range votes {
		if v.VoteID != "" && lastIndex[v.VoteID] != i {
			continue
		}
		out = append(out, v)
	}
	return out, len(votes) - len(out)
}

func flatRow(em model.EnrichedMotion, v model.Vote, issuesJoined string) model.FlatVoteRow {
	return model.FlatVoteRow{
		MotionID:     em.MotionID,
		MotionNumber: em.MotionNumber,
		MotionTitle:  em.MotionTitle,
		MotionDate:   em.Motion.StartedAt,
		FinalStatus:  em.FinalStatus,
		VoteID:       v.VoteID,
		Vote:         v.Value,
		FactionID:    v.FactionID,
		FactionAbbr:  v.FactionAbbr,
		FactionName:  v.FactionName,
		FactionSize:  v.Weight,
		ActorFaction: v.ActorFaction,
		ActorName:    v.ActorName,
		Correction:   v.Correction != nil && *v.Correction,
		PersonID:     v.PersonID,
		PersonName:   v.PersonName,
		VoteWeight:   v.Weight,
		IssuesJoined: issuesJoined,
	}
}
