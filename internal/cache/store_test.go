package cache

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, refresh bool) *Store {
	t.Helper()
	s, err := New(t.TempDir(), refresh, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)
	return s
}

func TestCasePayloadRoundTrip(t *testing.T) {
	s := newTestStore(t, false)

	_, ok, err := s.CasePayload("z1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutCasePayload("z1", []byte(`{"Id":"z1"}`)))
	data, ok, err := s.CasePayload("z1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"Id":"z1"}`, string(data))

	require.NoError(t, s.InvalidateCasePayload("z1"))
	_, ok, err = s.CasePayload("z1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshForcesMiss(t *testing.T) {
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := New(root, false, logger)
	require.NoError(t, err)
	require.NoError(t, s.PutCasePayload("z1", []byte(`{}`)))
	require.NoError(t, s.PutTextResult("p1", []byte(`{}`)))
	_, err = s.PutPublicationBinary("p1", ".xml", []byte("<x/>"))
	require.NoError(t, err)

	fresh, err := New(root, true, logger)
	require.NoError(t, err)

	_, ok, err := fresh.CasePayload("z1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = fresh.TextResult("p1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok = fresh.PublicationBinary("p1")
	assert.False(t, ok)

	// The files survive until overwritten.
	_, err = os.Stat(filepath.Join(root, "cache", casePayloadDir, "z1.json"))
	assert.NoError(t, err)
}

func TestPublicationBinaryExtensionLookup(t *testing.T) {
	s := newTestStore(t, false)

	path, err := s.PutPublicationBinary("pub-1", ".xml", []byte("<doc/>"))
	require.NoError(t, err)
	assert.Equal(t, ".xml", filepath.Ext(path))

	got, ok := s.PublicationBinary("pub-1")
	require.True(t, ok)
	assert.Equal(t, path, got)

	_, ok = s.PublicationBinary("pub-2")
	assert.False(t, ok)
}

func TestWritePageNeverOverwrites(t *testing.T) {
	s := newTestStore(t, false)

	path, err := s.WritePage("20240301_120000", 1, []byte(`{"value":[]}`))
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "stemming_page_0001_enriched_20240301_120000")

	_, err = s.WritePage("20240301_120000", 1, []byte(`{"value":[1]}`))
	require.Error(t, err)

	// A later run with a new stamp writes alongside.
	_, err = s.WritePage("20240302_090000", 1, []byte(`{"value":[]}`))
	require.NoError(t, err)

	files, err := s.PageFiles()
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestPageFilesSorted(t *testing.T) {
	s := newTestStore(t, false)
	for _, page := range []int{3, 1, 2} {
		_, err := s.WritePage("20240301_120000", page, []byte(`{"value":[]}`))
		require.NoError(t, err)
	}
	files, err := s.PageFiles()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Contains(t, files[0], "page_0001")
	assert.Contains(t, files[1], "page_0002")
	assert.Contains(t, files[2], "page_0003")
}
