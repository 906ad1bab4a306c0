// Package cache is the on-disk artifact store for the pipeline.
//
// Three namespaces hold the text-retrieval artifacts (case payloads, raw
// publication binaries, extracted text), each keyed by a stable entity id.
// A fourth directory holds the raw vote pages written by the collector.
// Artifacts are append-only per key: once written they are never mutated,
// unless the store was opened with refresh, which forces re-fetch and
// overwrite.
package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Namespace directory names, kept identical to the original dataset layout
// so existing caches remain valid.
const (
	casePayloadDir = "zaak_documents"
	publicationDir = "document_publications"
	textDir        = "document_texts"
	pageDir        = "stemming_enriched"
)

// Store is a file-backed artifact store rooted at a single directory.
// Not safe for concurrent writers on the same key; the pipeline guarantees
// a single writer per key (writes go through temp-file + rename, so
// concurrent writers on distinct keys are fine).
type Store struct {
	root    string
	refresh bool
	logger  *slog.Logger
}

// New opens a store rooted at root, creating the namespace directories.
// With refresh set, all lookups report a miss so callers re-fetch and
// overwrite; the cached files themselves are kept until overwritten.
func New(root string, refresh bool, logger *slog.Logger) (*Store, error) {
	for _, dir := range []string{casePayloadDir, publicationDir, textDir, pageDir} {
		if err := os.MkdirAll(filepath.Join(root, "cache", dir), 0o755); err != nil {
			return nil, fmt.Errorf("cache: create %s: %w", dir, err)
		}
	}
	// Page artifacts live next to the cache, not inside it: they are
	// collected source data, not derived state.
	if err := os.MkdirAll(filepath.Join(root, pageDir), 0o755); err != nil {
		return nil, fmt.Errorf("cache: create page dir: %w", err)
	}
	return &Store{root: root, refresh: refresh, logger: logger}, nil
}

// Refresh reports whether the store is in forced-refresh mode.
func (s *Store) Refresh() bool { return s.refresh }

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) casePath(id string) string {
	return filepath.Join(s.root, "cache", casePayloadDir, id+".json")
}

func (s *Store) textPath(id string) string {
	return filepath.Join(s.root, "cache", textDir, id+".json")
}

// CasePayload returns the cached case payload for id.
func (s *Store) CasePayload(id string) ([]byte, bool, error) {
	return s.read(s.casePath(id))
}

// PutCasePayload stores (or overwrites) the case payload for id.
func (s *Store) PutCasePayload(id string, data []byte) error {
	return writeAtomic(s.casePath(id), data)
}

// InvalidateCasePayload removes the cached case payload for id.
// Used when a cached entry turns out to be corrupt.
func (s *Store) InvalidateCasePayload(id string) error {
	return remove(s.casePath(id))
}

// TextResult returns the cached extracted-text artifact for a publication id.
func (s *Store) TextResult(publicationID string) ([]byte, bool, error) {
	return s.read(s.textPath(publicationID))
}

// PutTextResult stores the extracted-text artifact for a publication id.
func (s *Store) PutTextResult(publicationID string, data []byte) error {
	return writeAtomic(s.textPath(publicationID), data)
}

// InvalidateTextResult removes the cached text artifact for a publication id.
func (s *Store) InvalidateTextResult(publicationID string) error {
	return remove(s.textPath(publicationID))
}

// PublicationBinary returns the path of the cached raw binary for a
// publication id, matching any extension.
func (s *Store) PublicationBinary(publicationID string) (string, bool) {
	if s.refresh {
		return "", false
	}
	matches, err := filepath.Glob(filepath.Join(s.root, "cache", publicationDir, publicationID+".*"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[0], true
}

// PutPublicationBinary stores the raw binary for a publication id under the
// given extension (including the leading dot) and returns its path.
func (s *Store) PutPublicationBinary(publicationID, ext string, data []byte) (string, error) {
	path := filepath.Join(s.root, "cache", publicationDir, publicationID+ext)
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// PageDir returns the directory holding raw vote-page artifacts.
func (s *Store) PageDir() string {
	return filepath.Join(s.root, pageDir)
}

// WritePage persists one raw vote page verbatim. Pages are immutable:
// writing an existing page number for the same run stamp is an error.
func (s *Store) WritePage(runStamp string, page int, data []byte) (string, error) {
	name := fmt.Sprintf("stemming_page_%04d_enriched_%s.json", page, runStamp)
	path := filepath.Join(s.PageDir(), name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("cache: create page %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("cache: write page %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("cache: close page %s: %w", name, err)
	}
	return path, nil
}

// PageFiles lists all stored vote-page artifacts in lexical order, which is
// also collection order thanks to the zero-padded page numbers.
func (s *Store) PageFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.PageDir(), "*.json"))
	if err != nil {
		return nil, fmt.Errorf("cache: list pages: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func (s *Store) read(path string) ([]byte, bool, error) {
	if s.refresh {
		return nil, false, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: read %s: %w", filepath.Base(path), err)
	}
	return data, true, nil
}

func remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache: remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeAtomic writes via a temp file in the target directory plus rename,
// so readers never observe a partial artifact.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache: create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: close temp for %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
