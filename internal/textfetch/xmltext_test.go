package textfetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	input := []byte(`<?xml version="1.0"?>
<besluit>
  <titel>  Motie   over   iets  </titel>
  <alinea>De Kamer, gehoord de beraadslaging,</alinea>
  <alinea>De Kamer, gehoord de beraadslaging,</alinea>
  <alinea>verzoekt de regering</alinea>
</besluit>`)

	got, err := ExtractPlainText(input)
	require.NoError(t, err)
	assert.Equal(t, "Motie over iets\nDe Kamer, gehoord de beraadslaging,\nverzoekt de regering", got)
}

func TestExtractPlainTextDeterministic(t *testing.T) {
	input := []byte(`<a><b>een</b><c>twee</c><c>twee</c></a>`)
	first, err := ExtractPlainText(input)
	require.NoError(t, err)
	second, err := ExtractPlainText(input)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "een\ntwee", first)
}

func TestExtractPlainTextNonConsecutiveDuplicatesKept(t *testing.T) {
	input := []byte(`<a><b>x</b><b>y</b><b>x</b></a>`)
	got, err := ExtractPlainText(input)
	require.NoError(t, err)
	assert.Equal(t, "x\ny\nx", got, "only consecutive duplicates are collapsed")
}

func TestExtractPlainTextEmptyDocument(t *testing.T) {
	got, err := ExtractPlainText([]byte(`<a><b/></a>`))
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestExtractPlainTextTruncatedInput(t *testing.T) {
	_, err := ExtractPlainText([]byte(`<a><b>tekst`))
	// Non-strict parsing tolerates unclosed elements, but a bare open
	// bracket is unrecoverable.
	if err == nil {
		_, err = ExtractPlainText([]byte(`<`))
	}
	require.Error(t, err)
}
