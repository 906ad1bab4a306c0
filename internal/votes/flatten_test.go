package votes

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tommyvanderwal/motiematcher-sub000/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func enrichedMotion(id string, votes ...model.Vote) model.EnrichedMotion {
	return model.EnrichedMotion{
		MotionID:      id,
		MotionNumber:  "36200-1",
		MotionTitle:   "Motie over iets",
		FinalStatus:   "Stemmen - aangenomen",
		VoteTotals:    map[string]int{"Voor": 80},
		VoteBreakdown: votes,
		Issues:        []string{"vote_link:fallback_single_motie"},
	}
}

func TestFlattenEmitsRowAndSummaryPerMotion(t *testing.T) {
	correction := true
	em := enrichedMotion("z-1",
		model.Vote{VoteID: "s-1", Value: "Voor", Weight: 80, FactionAbbr: "GL-PvdA", FactionName: "GroenLinks-PvdA"},
		model.Vote{VoteID: "s-2", Value: "Tegen", Weight: 24, FactionAbbr: "VVD", Correction: &correction, PersonName: "Jan van der Berg"},
	)

	res := Flatten([]model.EnrichedMotion{em}, testLogger())
	require.Len(t, res.Rows, 2)
	require.Len(t, res.Summaries, 1)

	row := res.Rows[1]
	assert.Equal(t, "z-1", row.MotionID)
	assert.Equal(t, "Tegen", row.Vote)
	assert.Equal(t, 24, row.VoteWeight)
	assert.True(t, row.Correction)
	assert.Equal(t, "Jan van der Berg", row.PersonName)
	assert.Equal(t, "vote_link:fallback_single_motie", row.IssuesJoined)

	sum := res.Summaries[0]
	assert.Equal(t, map[string]int{"Voor": 80}, sum.VoteTotals)
	assert.Equal(t, 2, sum.VoteCount)
	assert.Equal(t, 2, sum.RawVoteLines)

	assert.Equal(t, 1, res.Stats.MotionsWithVotes)
	assert.Equal(t, 2, res.Stats.VoteRowCount)
}

func TestFlattenSecondDedupKeepsLast(t *testing.T) {
	em := enrichedMotion("z-1",
		model.Vote{VoteID: "s-1", Value: "Voor", Weight: 10},
		model.Vote{VoteID: "s-2", Value: "Tegen", Weight: 5},
		model.Vote{VoteID: "s-1", Value: "Tegen", Weight: 10},
	)

	res := Flatten([]model.EnrichedMotion{em}, testLogger())
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "s-2", res.Rows[0].VoteID)
	assert.Equal(t, "s-1", res.Rows[1].VoteID)
	assert.Equal(t, "Tegen", res.Rows[1].Vote, "last occurrence wins")
	assert.Equal(t, 1, res.Stats.DuplicateRows)

	sum := res.Summaries[0]
	assert.Equal(t, 2, sum.VoteCount)
	assert.Equal(t, 3, sum.RawVoteLines)
}

func TestFlattenKeepsAnonymousVotes(t *testing.T) {
	em := enrichedMotion("z-1",
		model.Vote{Value: "Voor", Weight: 1},
		model.Vote{Value: "Voor", Weight: 1},
	)

	res := Flatten([]model.EnrichedMotion{em}, testLogger())
	assert.Len(t, res.Rows, 2, "votes without an id have no identity to dedup on")
	assert.Equal(t, 0, res.Stats.DuplicateRows)
}

func TestFlattenMotionWithoutVotes(t *testing.T) {
	em := model.EnrichedMotion{
		MotionID:     "z-empty",
		MotionNumber: "36200-9",
		VoteTotals:   map[string]int{},
		Issues:       []string{model.IssueNoVoteData},
	}

	res := Flatten([]model.EnrichedMotion{em}, testLogger())
	assert.Empty(t, res.Rows)
	require.Len(t, res.Summaries, 1)
	assert.Equal(t, 0, res.Summaries[0].VoteCount)
	assert.Equal(t, 0, res.Stats.MotionsWithVotes)
	assert.Equal(t, 1, res.Stats.IssueCounts[model.IssueNoVoteData])
}
