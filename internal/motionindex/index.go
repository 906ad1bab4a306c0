// Package motionindex builds the normalized motion index from staged case
// page artifacts.
package motionindex

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

// Index is the deduplicated, sorted motion list with its build summary.
type Index struct {
	Motions []model.Motion
	Summary model.MotionIndexSummary
}

// ByID returns a case-id lookup over the index.
func (ix *Index) ByID() map[string]model.Motion {
	out := make(map[string]model.Motion, len(ix.Motions))
	for _, m := range ix.Motions {
		out[m.CaseID] = m
	}
	return out
}

// Build scans all *.json case-page artifacts in dir, keeps motions started on
// or after cutoff, deduplicates by case id, and returns the sorted index.
// Pages may be either a bare JSON array of cases or an OData envelope.
func Build(dir string, cutoff time.Time, logger *slog.Logger) (*Index, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("motionindex: list %s: %w", dir, err)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("motionindex: no case pages in %s", dir)
	}

	byID := make(map[string]*model.Motion)
	var sourceFiles []string
	total := 0

	for _, path := range paths {
		base := filepath.Base(path)
		sourceFiles = append(sourceFiles, base)

		rawCases, err := readCasePage(path)
		if err != nil {
			return nil, err
		}
		for _, raw := range rawCases {
			var c model.Case
			if err := json.Unmarshal(raw, &c); err != nil {
				return nil, fmt.Errorf("motionindex: decode case in %s: %w", base, err)
			}
			if c.ID == "" || !c.IsMotion() {
				continue
			}
			started, ok := c.Started()
			if !ok || started.Before(cutoff) {
				continue
			}
			total++
			if existing, seen := byID[c.ID]; seen {
				existing.SourceFiles = append(existing.SourceFiles, base)
				continue
			}
			m := normalize(c, raw, base)
			byID[c.ID] = &m
		}
	}

	motions := make([]model.Motion, 0, len(byID))
	for _, m := range byID {
		motions = append(motions, *m)
	}
	sort.Slice(motions, func(i, j int) bool {
		a, b := motions[i], motions[j]
		at, bt := startOrZero(a), startOrZero(b)
		if !at.Equal(bt) {
			return at.Before(bt)
		}
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		return a.CaseID < b.CaseID
	})

	summary := summarize(motions, sourceFiles, cutoff, total)
	logger.Info("motion index built",
		"source_files", len(sourceFiles),
		"records_in_window", total,
		"unique_motions", len(motions),
		"duplicate_numbers", len(summary.DuplicateNumbers))

	return &Index{Motions: motions, Summary: summary}, nil
}

func readCasePage(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("motionindex: read %s: %w", filepath.Base(path), err)
	}
	data = []byte(strings.TrimSpace(string(data)))

	var rawCases []json.RawMessage
	if len(data) > 0 && data[0] == '{' {
		var envelope model.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("motionindex: decode envelope %s: %w", filepath.Base(path), err)
		}
		data = envelope.Value
	}
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &rawCases); err != nil {
		return nil, fmt.Errorf("motionindex: decode case list %s: %w", filepath.Base(path), err)
	}
	return rawCases, nil
}

// normalize trims free-text fields and parses dates without discarding the
// original payload.
func normalize(c model.Case, raw json.RawMessage, sourceFile string) model.Motion {
	m := model.Motion{
		CaseID:         c.ID,
		Number:         strings.TrimSpace(c.Number),
		Title:          strings.TrimSpace(c.Title),
		Subject:        strings.TrimSpace(c.Subject),
		Status:         strings.TrimSpace(c.Status),
		SessionYear:    strings.TrimSpace(c.SessionYear),
		SequenceNumber: c.SequenceNumber,
		Organisation:   strings.TrimSpace(c.Organisation),
		Settled:        c.Settled,
		SourceFiles:    []string{sourceFile},
		Raw:            raw,
	}
	if t, ok := model.ParseAPITime(c.StartedAt); ok {
		m.StartedAt = &t
	}
	if t, ok := model.ParseAPITime(c.ModifiedAt); ok {
		m.ModifiedAt = &t
	}
	return m
}

func startOrZero(m model.Motion) time.Time {
	if m.StartedAt == nil {
		return time.Time{}
	}
	return *m.StartedAt
}

func summarize(motions []model.Motion, sourceFiles []string, cutoff time.Time, total int) model.MotionIndexSummary {
	numberToIDs := make(map[string]map[string]struct{})
	perYear := make(map[string]int)
	var earliest, latest *time.Time

	for _, m := range motions {
		if m.Number != "" {
			if numberToIDs[m.Number] == nil {
				numberToIDs[m.Number] = make(map[string]struct{})
			}
			numberToIDs[m.Number][m.CaseID] = struct{}{}
		}
		if m.SessionYear != "" {
			perYear[m.SessionYear]++
		}
		if m.StartedAt != nil {
			t := *m.StartedAt
			if earliest == nil || t.Before(*earliest) {
				earliest = &t
			}
			if latest == nil || t.After(*latest) {
				latest = &t
			}
		}
	}

	var duplicates []string
	for number, ids := range numberToIDs {
		if len(ids) > 1 {
			duplicates = append(duplicates, number)
		}
	}
	sort.Strings(duplicates)

	return model.MotionIndexSummary{
		GeneratedAt:          time.Now().UTC(),
		StartDateFilter:      cutoff.Format("2006-01-02"),
		SourceFiles:          sourceFiles,
		TotalMotions:         total,
		UniqueMotionIDs:      len(motions),
		UniqueMotionNumbers:  len(numberToIDs),
		DuplicateNumbers:     duplicates,
		CountsPerSessionYear: perYear,
		DateRange:            model.DateRange{Earliest: earliest, Latest: latest},
	}
}
