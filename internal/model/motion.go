package model

import (
	"encoding/json"
	"time"
)

// Motion is a normalized motion entry in the motion index. The Raw payload
// keeps every original field; the typed fields are the normalized view.
type Motion struct {
	CaseID         string          `json:"zaak_id"`
	Number         string          `json:"nummer"`
	Title          string          `json:"titel,omitempty"`
	Subject        string          `json:"onderwerp,omitempty"`
	Status         string          `json:"status,omitempty"`
	SessionYear    string          `json:"vergaderjaar,omitempty"`
	SequenceNumber *int            `json:"volgnummer,omitempty"`
	Organisation   string          `json:"organisatie,omitempty"`
	StartedAt      *time.Time      `json:"gestart_op,omitempty"`
	ModifiedAt     *time.Time      `json:"gewijzigd_op,omitempty"`
	Settled        *bool           `json:"afgedaan,omitempty"`
	SourceFiles    []string        `json:"bronbestanden"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}

// DisplayTitle returns the best available human-readable title.
func (m Motion) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Subject
}

// DateRange brackets the start dates seen in the motion index.
type DateRange struct {
	Earliest *time.Time `json:"earliest"`
	Latest   *time.Time `json:"latest"`
}

// MotionIndexSummary describes one index build run.
type MotionIndexSummary struct {
	GeneratedAt          time.Time      `json:"generated_at"`
	StartDateFilter      string         `json:"start_date_filter"`
	SourceFiles          []string       `json:"source_files"`
	TotalMotions         int            `json:"total_motions"`
	UniqueMotionIDs      int            `json:"unique_motion_ids"`
	UniqueMotionNumbers  int            `json:"unique_motion_numbers"`
	DuplicateNumbers     []string       `json:"duplicate_motion_numbers"`
	CountsPerSessionYear map[string]int `json:"counts_per_vergaderjaar"`
	DateRange            DateRange      `json:"date_range"`
}
