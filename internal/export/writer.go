// Package export writes the pipeline's output artifacts: JSON documents,
// JSONL/CSV vote tables, a SQLite database, and an optional S3 upload.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/tommyvanderwal/motiematcher-sub000/internal/model"
)

// WriteJSON writes v as indented JSON.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}

// WriteJSONL writes one compact JSON document per line.
func WriteJSONL[T any](path string, items []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("export: encode %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("export: flush %s: %w", path, err)
	}
	return f.Close()
}

var csvHeader = []string{
	"motion_id", "motion_number", "motion_title", "motion_date", "final_status",
	"stemming_id", "vote", "fractie_id", "fractie_afkorting", "fractie_naam",
	"fractie_grootte", "actor_fractie", "actor_naam", "vergissing",
	"persoon_id", "persoon_naam", "vote_weight", "issues_joined",
}

// WriteVoteRowsCSV writes the flat vote table as CSV with a header row.
func WriteVoteRowsCSV(path string, rows []model.FlatVoteRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("export: write csv header: %w", err)
	}
	for _, row := range rows {
		date := ""
		if row.MotionDate != nil {
			date = row.MotionDate.UTC().Format("2006-01-02")
		}
		record := []string{
			row.MotionID, row.MotionNumber, row.MotionTitle, date, row.FinalStatus,
			row.VoteID, row.Vote, row.FactionID, row.FactionAbbr, row.FactionName,
			strconv.Itoa(row.FactionSize), row.ActorFaction, row.ActorName,
			strconv.FormatBool(row.Correction),
			row.PersonID, row.PersonName, strconv.Itoa(row.VoteWeight), row.IssuesJoined,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("export: write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export: flush csv: %w", err)
	}
	return f.Close()
}
