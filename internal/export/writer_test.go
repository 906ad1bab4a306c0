package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tommyvanderwal/motiematcher-sub000/internal/model"
)

func sampleRows() []model.FlatVoteRow {
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	return []model.FlatVoteRow{
		{
			MotionID: "z-1", MotionNumber: "36200-1", MotionTitle: "Motie over iets",
			MotionDate: &date, FinalStatus: "Stemmen - aangenomen",
			VoteID: "s-1", Vote: "Voor", FactionAbbr: "GL-PvdA", FactionSize: 25,
			VoteWeight: 25,
		},
		{
			MotionID: "z-1", MotionNumber: "36200-1",
			VoteID: "s-2", Vote: "Tegen", FactionAbbr: "VVD", FactionSize: 24,
			VoteWeight: 24, Correction: true, IssuesJoined: "vote_link:fallback_single_motie",
		},
	}
}

func TestWriteJSONLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	require.NoError(t, WriteJSONL(path, sampleRows()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"stemming_id":"s-1"`)
	assert.Contains(t, lines[1], `"vergissing":true`)
}

func TestWriteVoteRowsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	require.NoError(t, WriteVoteRowsCSV(path, sampleRows()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "2024-01-10", records[1][3])
	assert.Equal(t, "Voor", records[1][6])
	assert.Equal(t, "true", records[2][13])
}

func TestWriteSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motion_votes.db")
	summaries := []model.MotionVoteSummary{{
		MotionID:     "z-1",
		MotionNumber: "36200-1",
		VoteTotals:   map[string]int{"Voor": 25, "Tegen": 24},
		VoteCount:    2,
		RawVoteLines: 2,
	}}

	ctx := context.Background()
	require.NoError(t, WriteSQLite(ctx, path, sampleRows(), summaries))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var rowCount int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM motion_votes").Scan(&rowCount))
	assert.Equal(t, 2, rowCount)

	var totals string
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT vote_totals FROM motion_summaries WHERE motion_id = ?", "z-1").Scan(&totals))
	assert.JSONEq(t, `{"Voor":25,"Tegen":24}`, totals)

	// A second write replaces, not appends.
	require.NoError(t, WriteSQLite(ctx, path, sampleRows()[:1], summaries))
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM motion_votes").Scan(&rowCount))
	assert.Equal(t, 1, rowCount)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, WriteJSON(path, map[string]int{"with_votes": 3}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"with_votes":3}`, string(data))
}
