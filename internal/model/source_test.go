package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAPITimeVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"zulu", "2024-03-01T12:30:45Z", time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC), true},
		{"offset", "2024-03-01T12:30:45+02:00", time.Date(2024, 3, 1, 12, 30, 45, 0, time.FixedZone("", 2*3600)), true},
		{"millis", "2024-03-01T12:30:45.123Z", time.Date(2024, 3, 1, 12, 30, 45, 123000000, time.UTC), true},
		{"no offset", "2024-03-01T12:30:45", time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC), true},
		{"date only", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"empty", "", time.Time{}, false},
		{"garbage", "last tuesday", time.Time{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseAPITime(tc.input)
			require.Equal(t, tc.ok, ok)
			if ok {
				assert.True(t, got.Equal(tc.want), "got %s want %s", got, tc.want)
			}
		})
	}
}

func TestFormatAPITime(t *testing.T) {
	in := time.Date(2023, 12, 1, 9, 15, 0, 1_000_000, time.FixedZone("CET", 3600))
	assert.Equal(t, "2023-12-01T08:15:00.001Z", FormatAPITime(in))
}

func TestDecisionOrdinalValue(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  int
		state OrdinalState
	}{
		{"present", `{"Id":"b1","AgendapuntZaakBesluitVolgorde":2}`, 2, OrdinalPresent},
		{"missing", `{"Id":"b1"}`, 0, OrdinalMissing},
		{"null", `{"Id":"b1","AgendapuntZaakBesluitVolgorde":null}`, 0, OrdinalMissing},
		{"string", `{"Id":"b1","AgendapuntZaakBesluitVolgorde":"2"}`, 0, OrdinalInvalidType},
		{"float", `{"Id":"b1","AgendapuntZaakBesluitVolgorde":1.5}`, 0, OrdinalInvalidType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var d Decision
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &d))
			got, state := d.OrdinalValue()
			assert.Equal(t, tc.state, state)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCaseIsMotion(t *testing.T) {
	assert.True(t, Case{Kind: "Motie"}.IsMotion())
	assert.True(t, Case{Kind: "Gewijzigde motie"}.IsMotion())
	assert.False(t, Case{Kind: "Wetgeving"}.IsMotion())
	assert.False(t, Case{}.IsMotion())
}

func TestVoteRecordLastModifiedPrefersAPIField(t *testing.T) {
	v := VoteRecord{
		ModifiedAt:    "2024-01-01T00:00:00Z",
		APIModifiedAt: "2024-02-02T00:00:00Z",
	}
	got, ok := v.LastModified()
	require.True(t, ok)
	assert.Equal(t, time.February, got.Month())

	v = VoteRecord{ModifiedAt: "2024-01-01T00:00:00Z"}
	got, ok = v.LastModified()
	require.True(t, ok)
	assert.Equal(t, time.January, got.Month())
}

func TestPersonDisplayName(t *testing.T) {
	p := Person{FirstName: "Jan", Prefix: "van der", Surname: "Berg"}
	assert.Equal(t, "Jan van der Berg", p.DisplayName())

	p = Person{FirstName: "Anna", Surname: "Smit"}
	assert.Equal(t, "Anna Smit", p.DisplayName())

	assert.Equal(t, "", Person{}.DisplayName())
}

func TestVoteRecordWeight(t *testing.T) {
	n := 15
	assert.Equal(t, 15, VoteRecord{FactionSize: &n}.Weight())
	assert.Equal(t, 0, VoteRecord{}.Weight())
}
