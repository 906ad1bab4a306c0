// Package model defines the wire entities of the Tweede Kamer OData API and
// the pipeline's output records. Wire structs keep the API's Dutch field
// names in their JSON tags so cached payloads round-trip unchanged.
package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Envelope is the OData response wrapper for collection queries.
type Envelope struct {
	Value json.RawMessage `json:"value"`
}

// Case is a legislative matter (Zaak): a motion, law, or amendment.
type Case struct {
	ID             string     `json:"Id"`
	Number         string     `json:"Nummer"`
	Title          string     `json:"Titel"`
	Subject        string     `json:"Onderwerp"`
	Kind           string     `json:"Soort"`
	Status         string     `json:"Status"`
	SessionYear    string     `json:"Vergaderjaar"`
	SequenceNumber *int       `json:"Volgnummer"`
	Organisation   string     `json:"Organisatie"`
	StartedAt      string     `json:"GestartOp"`
	ModifiedAt     string     `json:"GewijzigdOp"`
	Settled        *bool      `json:"Afgedaan"`
	Documents      []Document `json:"Document,omitempty"`
}

// IsMotion reports whether the case kind marks it as a motion. The source
// uses variants like "Motie" and "Motie (gewijzigd/nader)", so a substring
// match is required.
func (c Case) IsMotion() bool {
	return strings.Contains(strings.ToLower(c.Kind), "motie")
}

// Started parses the case's start timestamp.
func (c Case) Started() (time.Time, bool) {
	return ParseAPITime(c.StartedAt)
}

// AgendaItem is a scheduled agenda entry (Agendapunt). The order of Cases
// is semantically meaningful: a Decision's ordinal indexes into it.
type AgendaItem struct {
	ID         string          `json:"Id"`
	Number     json.RawMessage `json:"Nummer,omitempty"`
	Subject    string          `json:"Onderwerp"`
	Status     string          `json:"Status"`
	ModifiedAt string          `json:"GewijzigdOp"`
	Cases      []Case          `json:"Zaak,omitempty"`
}

// OrdinalState classifies the Decision ordinal field, which the source
// sometimes omits or fills with a non-integer value.
type OrdinalState int

const (
	OrdinalPresent OrdinalState = iota
	OrdinalMissing
	OrdinalInvalidType
)

// Decision is a recorded decision (Besluit) tied to one AgendaItem.
type Decision struct {
	ID            string          `json:"Id"`
	AgendaItemID  string          `json:"Agendapunt_Id"`
	Kind          string          `json:"BesluitSoort"`
	Text          string          `json:"BesluitTekst"`
	VoteKind      string          `json:"StemmingsSoort"`
	Status        string          `json:"Status"`
	Ordinal       json.RawMessage `json:"AgendapuntZaakBesluitVolgorde,omitempty"`
	ModifiedAt    string          `json:"GewijzigdOp"`
	APIModifiedAt string          `json:"ApiGewijzigdOp"`
	AgendaItem    *AgendaItem     `json:"Agendapunt,omitempty"`
}

// OrdinalValue decodes the 1-based position of the decided Case within the
// AgendaItem's Case sequence. The raw JSON is kept so a missing field, an
// explicit null, and a wrong-typed value can be told apart.
func (d Decision) OrdinalValue() (int, OrdinalState) {
	raw := bytes.TrimSpace(d.Ordinal)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, OrdinalMissing
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, OrdinalInvalidType
	}
	return n, OrdinalPresent
}

// LastModified returns the decision's most authoritative modification time,
// preferring ApiGewijzigdOp over GewijzigdOp.
func (d Decision) LastModified() (time.Time, bool) {
	if t, ok := ParseAPITime(d.APIModifiedAt); ok {
		return t, true
	}
	return ParseAPITime(d.ModifiedAt)
}

// Faction is a parliamentary party group (Fractie).
type Faction struct {
	ID           string `json:"Id"`
	Abbreviation string `json:"Afkorting"`
	NameNL       string `json:"NaamNL"`
}

// Person is an individual member (Persoon).
type Person struct {
	ID        string `json:"Id"`
	FirstName string `json:"Roepnaam"`
	Prefix    string `json:"Tussenvoegsel"`
	Surname   string `json:"Achternaam"`
}

// DisplayName joins the name parts the way they appear on ballots.
func (p Person) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{p.FirstName, p.Prefix, p.Surname} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

// VoteRecord is one faction's or member's vote (Stemming) on a Decision.
type VoteRecord struct {
	ID            string    `json:"Id"`
	Value         string    `json:"Soort"`
	FactionSize   *int      `json:"FractieGrootte"`
	ActorName     string    `json:"ActorNaam"`
	ActorFaction  string    `json:"ActorFractie"`
	Correction    *bool     `json:"Vergissing"`
	FactionID     string    `json:"Fractie_Id"`
	PersonID      string    `json:"Persoon_Id"`
	DecisionID    string    `json:"Besluit_Id"`
	ModifiedAt    string    `json:"GewijzigdOp"`
	APIModifiedAt string    `json:"ApiGewijzigdOp"`
	Decision      *Decision `json:"Besluit,omitempty"`
	Faction       *Faction  `json:"Fractie,omitempty"`
	Person        *Person   `json:"Persoon,omitempty"`
}

// LastModified returns the vote's modification time, preferring ApiGewijzigdOp.
func (v VoteRecord) LastModified() (time.Time, bool) {
	if t, ok := ParseAPITime(v.APIModifiedAt); ok {
		return t, true
	}
	return ParseAPITime(v.ModifiedAt)
}

// Weight is the number of seats the vote represents. Missing sizes count as 0.
func (v VoteRecord) Weight() int {
	if v.FactionSize == nil {
		return 0
	}
	return *v.FactionSize
}

// VoteUnknown is the bucket for vote records without a recognizable value.
const VoteUnknown = "Onbekend"

// Document is a textual artifact attached to a Case.
type Document struct {
	ID             string           `json:"Id"`
	Kind           string           `json:"Soort"`
	DocumentNumber string           `json:"DocumentNummer"`
	Title          string           `json:"Titel"`
	Subject        string           `json:"Onderwerp"`
	ContentLength  int64            `json:"ContentLength"`
	CurrentVersion *DocumentVersion `json:"HuidigeDocumentVersie,omitempty"`
}

// DocumentVersion is the current version of a Document with its publications.
type DocumentVersion struct {
	ID           string        `json:"Id"`
	Publications []Publication `json:"DocumentPublicatie,omitempty"`
}

// Publication is a fetchable binary/text rendition of a document version.
type Publication struct {
	ID            string `json:"Id"`
	ContentType   string `json:"ContentType"`
	ContentLength int64  `json:"ContentLength"`
}
