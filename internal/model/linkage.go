package model

import "time"

// Linking notes recorded while resolving a Decision to its target Case.
// They are diagnostics, not errors: ambiguous and unmatchable agenda data
// is expected steady-state noise in the source.
const (
	NoteOrdinalMissing     = "volgorde_missing"
	NoteOrdinalOutOfRange  = "volgorde_out_of_range"
	NoteOrdinalInvalidType = "volgorde_invalid_type"
	NoteFallbackSingle     = "fallback_single_motie"
	NoteAmbiguousMotions   = "ambiguous_motie_candidates"
	NoteNoMotionCandidates = "no_motie_candidates"
	NoteTargetNotMotion    = "target_not_motie" // emitted as "target_not_motie:<kind>"
	NoteVoteWithoutID      = "vote_without_id"
)

// Resolution is the outcome of mapping a Decision onto the Case it decided:
// either exactly one target case id, or unresolved with the notes explaining
// why. Consumers must check Target before using the id.
type Resolution struct {
	CaseID string   `json:"case_id,omitempty"`
	Notes  []string `json:"notes,omitempty"`
}

// Target returns the resolved motion case id, if any.
func (r Resolution) Target() (string, bool) {
	return r.CaseID, r.CaseID != ""
}

// Vote is a normalized, deduplicated vote within a Decision.
type Vote struct {
	VoteID       string `json:"stemming_id"`
	Value        string `json:"vote"`
	Weight       int    `json:"fractie_grootte"`
	ActorName    string `json:"actor_naam,omitempty"`
	ActorFaction string `json:"actor_fractie,omitempty"`
	Correction   *bool  `json:"vergissing,omitempty"`
	FactionID    string `json:"fractie_id,omitempty"`
	FactionAbbr  string `json:"fractie_afkorting,omitempty"`
	FactionName  string `json:"fractie_naam,omitempty"`
	PersonID     string `json:"persoon_id,omitempty"`
	PersonName   string `json:"persoon_naam,omitempty"`
}

// CaseRef is the slim view of a Case inside an AgendaItem sequence.
type CaseRef struct {
	ID             string `json:"id"`
	Kind           string `json:"soort"`
	Number         string `json:"nummer"`
	SequenceNumber *int   `json:"volgnummer,omitempty"`
}

// AgendaItemRef is the slim view of the AgendaItem a Decision belongs to.
type AgendaItemRef struct {
	ID         string `json:"id"`
	Subject    string `json:"onderwerp,omitempty"`
	Status     string `json:"status,omitempty"`
	ModifiedAt string `json:"gewijzigd_op,omitempty"`
}

// DecisionVotes is one Decision with its deduplicated votes, weighted
// totals, candidate cases, and resolution outcome.
type DecisionVotes struct {
	DecisionID         string         `json:"besluit_id"`
	Kind               string         `json:"besluit_soort,omitempty"`
	Text               string         `json:"besluit_tekst,omitempty"`
	VoteKind           string         `json:"stemmings_soort,omitempty"`
	Status             string         `json:"status,omitempty"`
	AgendaItem         *AgendaItemRef `json:"agendapunt,omitempty"`
	Resolution         Resolution     `json:"resolution"`
	Votes              []Vote         `json:"votes"`
	VoteTotals         map[string]int `json:"vote_totals"`
	CandidateCases     []CaseRef      `json:"agendapunt_zaken"`
	MotionCandidateIDs []string       `json:"motie_candidate_ids"`
	LinkedCaseIDs      []string       `json:"zaak_ids"`
	LinkingNotes       []string       `json:"linking_notes"`
	VoteCount          int            `json:"vote_count"`
	RawVoteCount       int            `json:"raw_vote_count"`
	DuplicatesRemoved  int            `json:"duplicates_removed"`
	LastChanged        *time.Time     `json:"last_changed,omitempty"`
}
