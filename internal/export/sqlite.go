package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tommyvanderwal/motiematcher-sub000/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS motion_votes (
	motion_id         TEXT NOT NULL,
	motion_number     TEXT NOT NULL,
	motion_title      TEXT,
	motion_date       TEXT,
	final_status      TEXT,
	stemming_id       TEXT,
	vote              TEXT NOT NULL,
	fractie_id        TEXT,
	fractie_afkorting TEXT,
	fractie_naam      TEXT,
	fractie_grootte   INTEGER NOT NULL,
	actor_fractie     TEXT,
	actor_naam        TEXT,
	vergissing        INTEGER NOT NULL,
	persoon_id        TEXT,
	persoon_naam      TEXT,
	vote_weight       INTEGER NOT NULL,
	issues_joined     TEXT
);
CREATE INDEX IF NOT EXISTS idx_motion_votes_motion ON motion_votes (motion_id);
CREATE INDEX IF NOT EXISTS idx_motion_votes_stemming ON motion_votes (stemming_id);

CREATE TABLE IF NOT EXISTS motion_summaries (
	motion_id      TEXT PRIMARY KEY,
	motion_number  TEXT NOT NULL,
	motion_title   TEXT,
	motion_date    TEXT,
	final_status   TEXT,
	vote_totals    TEXT NOT NULL,
	vote_count     INTEGER NOT NULL,
	raw_vote_lines INTEGER NOT NULL,
	issues_joined  TEXT
);
`

// WriteSQLite writes the flat vote table and per-motion summaries into a
// SQLite database at path, replacing any previous contents.
func WriteSQLite(ctx context.Context, path string, rows []model.FlatVoteRow, summaries []model.MotionVoteSummary) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("export: open sqlite %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("export: create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("export: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"motion_votes", "motion_summaries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("export: clear %s: %w", table, err)
		}
	}

	insertRow, err := tx.PrepareContext(ctx, `INSERT INTO motion_votes VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("export: prepare rows: %w", err)
	}
	defer func() { _ = insertRow.Close() }()

	for _, row := range rows {
		date := any(nil)
		if row.MotionDate != nil {
			date = row.MotionDate.UTC().Format("2006-01-02")
		}
		if _, err := insertRow.ExecContext(ctx,
			row.MotionID, row.MotionNumber, row.MotionTitle, date, row.FinalStatus,
			row.VoteID, row.Vote, row.FactionID, row.FactionAbbr, row.FactionName,
			row.FactionSize, row.ActorFaction, row.ActorName, row.Correction,
			row.PersonID, row.PersonName, row.VoteWeight, row.IssuesJoined,
		); err != nil {
			return fmt.Errorf("export: insert vote row: %w", err)
		}
	}

	insertSummary, err := tx.PrepareContext(ctx, `INSERT INTO motion_summaries VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("export: prepare summaries: %w", err)
	}
	defer func() { _ = insertSummary.Close() }()

	for _, sum := range summaries {
		totals, err := json.Marshal(sum.VoteTotals)
		if err != nil {
			return fmt.Errorf("export: marshal totals: %w", err)
		}
		date := any(nil)
		if sum.MotionDate != nil {
			date = sum.MotionDate.UTC().Format("2006-01-02")
		}
		if _, err := insertSummary.ExecContext(ctx,
			sum.MotionID, sum.MotionNumber, sum.MotionTitle, date, sum.FinalStatus,
			string(totals), sum.VoteCount, sum.RawVoteLines, sum.IssuesJoined,
		); err != nil {
			return fmt.Errorf("export: insert summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("export: commit: %w", err)
	}
	return nil
}
