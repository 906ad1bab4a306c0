package model

import (
	"time"

	"github.com/google/uuid"
)

// Issue tags attached to enriched records and text results.
const (
	IssueNoVoteData         = "no_vote_data"
	IssueMissingCaseID      = "missing_zaak_id"
	IssueCaseNotFound       = "zaak_not_found"
	IssueCachePayloadBroken = "cached_zaak_corrupt"
	IssueCaseNoDocuments    = "zaak_has_no_documents"
	IssueNoPublications     = "document_missing_publications"
	IssueNoParseablePub     = "document_no_parseable_publication"
	IssueNoTextRetrieved    = "no_document_text_retrieved"
	IssuePubMissingID       = "publication_missing_id"
	IssuePubNotFound        = "publication_resource_not_found"
	IssuePubUnsupported     = "publication_unsupported_type"
	IssuePubDecodeError     = "publication_decode_error"
	IssuePubTextEmpty       = "publication_text_empty"
	IssueBudgetCase         = "api_limit_reached_zaak"
	IssueBudgetPublication  = "api_limit_reached_publication"
	IssueTextSkipped        = "text_fetch_skipped"
)

// TextSource records where an extracted motion text came from.
type TextSource struct {
	DocumentID     string `json:"document_id"`
	DocumentNumber string `json:"document_nummer,omitempty"`
	DocumentKind   string `json:"document_soort,omitempty"`
	PublicationID  string `json:"publication_id"`
	ContentType    string `json:"publication_content_type,omitempty"`
	ContentLength  int64  `json:"publication_length,omitempty"`
	Cached         bool   `json:"cached"`
	BinaryPath     string `json:"binary_path,omitempty"`
}

// TextResult is the outcome of the cascading text retrieval for one motion.
// Content is nil when no candidate yielded text; Issues then explains why.
type TextResult struct {
	Content   *string     `json:"content"`
	CharCount int         `json:"content_char_count"`
	Source    *TextSource `json:"source"`
	Issues    []string    `json:"issues"`
}

// HasText reports whether extraction produced non-empty content.
func (t TextResult) HasText() bool {
	return t.Content != nil && *t.Content != ""
}

// DecisionSummary is the per-decision audit trail kept on each enriched motion.
type DecisionSummary struct {
	DecisionID         string         `json:"besluit_id"`
	Kind               string         `json:"besluit_soort,omitempty"`
	Text               string         `json:"besluit_tekst,omitempty"`
	LastChanged        *time.Time     `json:"last_changed,omitempty"`
	VoteTotals         map[string]int `json:"vote_totals"`
	VoteCount          int            `json:"vote_count"`
	RawVoteCount       int            `json:"raw_vote_count"`
	DuplicatesRemoved  int            `json:"duplicates_removed"`
	LinkedCaseIDs      []string       `json:"linked_zaak_ids"`
	MotionCandidateIDs []string       `json:"motie_candidate_ids"`
	LinkingNotes       []string       `json:"linking_notes"`
}

// EnrichedMotion joins a motion with its resolved vote history and text.
// Records are immutable within a run; the next run supersedes them.
type EnrichedMotion struct {
	MotionID          string            `json:"motion_id"`
	MotionNumber      string            `json:"motion_number"`
	MotionTitle       string            `json:"motion_title,omitempty"`
	Motion            Motion            `json:"motion"`
	Text              TextResult        `json:"text"`
	FinalStatus       string            `json:"final_status,omitempty"`
	VoteTotals        map[string]int    `json:"vote_totals"`
	VoteBreakdown     []Vote            `json:"vote_breakdown"`
	DecisionSummaries []DecisionSummary `json:"decision_summaries"`
	Issues            []string          `json:"issues"`
}

// EnrichSummary describes one enrichment run.
type EnrichSummary struct {
	RunID             uuid.UUID      `json:"run_id"`
	GeneratedAt       time.Time      `json:"generated_at"`
	MotionCountInput  int            `json:"motion_count_input"`
	MotionCountOutput int            `json:"motion_count_output"`
	LimitApplied      bool           `json:"limit_applied"`
	VoteCoverage      map[string]int `json:"vote_coverage"`
	TextCoverage      map[string]int `json:"text_coverage"`
	IssueCounts       map[string]int `json:"issue_counts"`
	APICallsUsed      int64          `json:"api_calls_used"`
}
