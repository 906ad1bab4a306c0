package model

import "time"

// FlatVoteRow is one individual vote joined with its motion, shaped for
// tabular analysis.
type FlatVoteRow struct {
	MotionID     string     `json:"motion_id"`
	MotionNumber string     `json:"motion_number"`
	MotionTitle  string     `json:"motion_title,omitempty"`
	MotionDate   *time.Time `json:"motion_date,omitempty"`
	FinalStatus  string     `json:"final_status,omitempty"`
	VoteID       string     `json:"stemming_id"`
	Vote         string     `json:"vote"`
	FactionID    string     `json:"fractie_id,omitempty"`
	FactionAbbr  string     `json:"fractie_afkorting,omitempty"`
	FactionName  string     `json:"fractie_naam,omitempty"`
	FactionSize  int        `json:"fractie_grootte"`
	ActorFaction string     `json:"actor_fractie,omitempty"`
	ActorName    string     `json:"actor_naam,omitempty"`
	Correction   bool       `json:"vergissing"`
	PersonID     string     `json:"persoon_id,omitempty"`
	PersonName   string     `json:"persoon_naam,omitempty"`
	VoteWeight   int        `json:"vote_weight"`
	IssuesJoined string     `json:"issues_joined,omitempty"`
}

// MotionVoteSummary is one motion's aggregated vote outcome.
type MotionVoteSummary struct {
	MotionID     string         `json:"motion_id"`
	MotionNumber string         `json:"motion_number"`
	MotionTitle  string         `json:"motion_title,omitempty"`
	MotionDate   *time.Time     `json:"motion_date,omitempty"`
	FinalStatus  string         `json:"final_status,omitempty"`
	VoteTotals   map[string]int `json:"vote_totals"`
	VoteCount    int            `json:"vote_count"`
	RawVoteLines int            `json:"raw_vote_lines"`
	IssuesJoined string         `json:"issues_joined,omitempty"`
}

// FlattenStats reports aggregate coverage for a flatten run.
type FlattenStats struct {
	GeneratedAt      time.Time      `json:"generated_at"`
	MotionCount      int            `json:"motion_count"`
	VoteRowCount     int            `json:"vote_row_count"`
	DuplicateRows    int            `json:"duplicate_rows_removed"`
	MotionsWithVotes int            `json:"motions_with_votes"`
	MotionsWithText  int            `json:"motions_with_text"`
	IssueCounts      map[string]int `json:"issue_counts"`
}
