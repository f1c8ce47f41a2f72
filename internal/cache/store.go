package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/standardbeagle/a3scan/internal/hash"
	"github.com/standardbeagle/a3scan/internal/logging"
	"github.com/standardbeagle/a3scan/internal/pathutil"
)

// Store is the Cache Store (§4.D): a persistent key-value map of Cache
// Records backed by a single JSON document, rewritten on every mutation.
// Concurrent extractions serialize their writes behind mu; readers
// always see a complete pre- or post-update snapshot, never a torn
// record.
type Store struct {
	mu      sync.RWMutex
	path    string
	doc     *document
	log     *logging.Sink
	nextSeq int64 // monotonic counter stamped onto each new FileEntry
}

// Open loads the cache document at path, tolerating a missing or empty
// file (an empty store) and a parse error on a non-empty file (logged as
// a warning, the store starts fresh, and the corrupt file is left
// untouched until the next successful write).
func Open(path string, log *logging.Sink) (*Store, error) {
	if log == nil {
		log = logging.Discard()
	}
	s := &Store{path: path, doc: newDocument(), log: log}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, err
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		return s, nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Warnf("cache", "failed to parse %s, starting with an empty store: %v", path, err)
		return s, nil
	}
	if doc.PBOs == nil {
		doc.PBOs = make(map[string]*Record)
	}
	if doc.Files == nil {
		doc.Files = make(map[string]FileEntry)
	}
	if doc.FailedExtractions == nil {
		doc.FailedExtractions = make(map[string]FailedExtraction)
	}
	s.doc = &doc
	for _, entry := range doc.Files {
		if entry.Seq >= s.nextSeq {
			s.nextSeq = entry.Seq + 1
		}
	}
	return s, nil
}

// Get returns the Cache Record for archiveKey, if one exists.
func (s *Store) Get(archiveKey string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.doc.PBOs[archiveKey]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Put installs or replaces the Cache Record for rec.ArchiveKey and
// refreshes the reverse file index for every path in rec.ExtractedFiles,
// then flushes the document to disk.
func (s *Store) Put(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.PermanentError = false
	rec.PermanentErrMsg = ""
	rec.TransientError = false
	rec.TransientErrMsg = ""

	copyRec := rec
	s.doc.PBOs[rec.ArchiveKey] = &copyRec

	for _, relPath := range rec.ExtractedFiles {
		s.doc.Files[pathutil.Normalize(relPath)] = FileEntry{
			ArchiveKey:     rec.ArchiveKey,
			ExtractionTime: rec.ExtractionTime,
			Extension:      strings.TrimPrefix(filepath.Ext(relPath), "."),
			Seq:            s.nextSeq,
		}
		s.nextSeq++
	}
	delete(s.doc.FailedExtractions, rec.ArchiveKey)

	return s.flushLocked()
}

// MarkPermanentError records that archiveKey is unrecoverable (§7
// UnrecoverableArchive): subsequent runs honor this without re-reading
// the file until an explicit purge.
func (s *Store) MarkPermanentError(archiveKey, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.doc.PBOs[archiveKey]
	if !ok {
		rec = &Record{ArchiveKey: archiveKey}
		s.doc.PBOs[archiveKey] = rec
	}
	rec.PermanentError = true
	rec.PermanentErrMsg = message
	rec.TransientError = false
	rec.TransientErrMsg = ""

	s.doc.FailedExtractions[archiveKey] = FailedExtraction{Timestamp: time.Now().UTC(), Message: message}
	return s.flushLocked()
}

// MarkTransientError records a failure expected to resolve on retry
// (§7 TransientIO): the next needs_extraction check is unaffected by it.
func (s *Store) MarkTransientError(archiveKey, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.doc.PBOs[archiveKey]
	if !ok {
		rec = &Record{ArchiveKey: archiveKey}
		s.doc.PBOs[archiveKey] = rec
	}
	rec.TransientError = true
	rec.TransientErrMsg = message

	s.doc.FailedExtractions[archiveKey] = FailedExtraction{Timestamp: time.Now().UTC(), Message: message}
	return s.flushLocked()
}

// FindEntryByRelativePath resolves which archive an extracted file came
// from (§4.D). It tries an exact match first; failing that, it walks
// every registered file path and selects the one whose stored relative
// path is the longest path-component suffix of query, breaking ties by
// first-registered order (the stored FileEntry.Seq, not key order).
func (s *Store) FindEntryByRelativePath(queryPath string) (FileEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := pathutil.Normalize(queryPath)
	if entry, ok := s.doc.Files[query]; ok {
		return entry, true
	}

	queryComponents := strings.Split(query, "/")

	bestSuffixLen := -1
	var best FileEntry
	found := false

	for stored, entry := range s.doc.Files {
		n := commonSuffixLen(strings.Split(stored, "/"), queryComponents)
		if n == 0 {
			continue
		}
		if n > bestSuffixLen || (n == bestSuffixLen && entry.Seq < best.Seq) {
			bestSuffixLen = n
			best = entry
			found = true
		}
	}
	return best, found
}

// commonSuffixLen returns the number of trailing path components a and b
// share.
func commonSuffixLen(a, b []string) int {
	n := 0
	for i, j := len(a)-1, len(b)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if a[i] != b[j] {
			break
		}
		n++
	}
	return n
}

// Purge removes every trace of archiveKey from the store: its Cache
// Record, its entries in the reverse file index, and any recorded
// failure. This is the explicit purge operation §3.4 defers to the
// caller — the engine itself never deletes a record on its own.
func (s *Store) Purge(archiveKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.doc.PBOs[archiveKey]
	if ok {
		for _, relPath := range rec.ExtractedFiles {
			delete(s.doc.Files, pathutil.Normalize(relPath))
		}
	}
	delete(s.doc.PBOs, archiveKey)
	delete(s.doc.FailedExtractions, archiveKey)

	return s.flushLocked()
}

// Stats summarizes the store's current contents for the CLI's `cache
// inspect` command.
type Stats struct {
	Entries         int
	FileCount       int
	PermanentErrors int
	TransientErrors int
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	st.Entries = len(s.doc.PBOs)
	st.FileCount = len(s.doc.Files)
	for _, rec := range s.doc.PBOs {
		if rec.PermanentError {
			st.PermanentErrors++
		}
		if rec.TransientError {
			st.TransientErrors++
		}
	}
	return st
}

// PurgeAll removes every Cache Record, reverse file index entry, and
// recorded failure from the store in one pass (the `cache purge --all`
// CLI operation).
func (s *Store) PurgeAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.doc.PBOs)
	s.doc.PBOs = make(map[string]*Record)
	s.doc.Files = make(map[string]FileEntry)
	s.doc.FailedExtractions = make(map[string]FailedExtraction)

	return n, s.flushLocked()
}

// Fingerprint computes the Content Hasher fingerprint (§4.B) for the
// given archive key and extraction pattern, exposed here so callers
// needn't import internal/hash directly for the common case.
func Fingerprint(archiveKey string, pattern []string) hash.Fingerprint {
	return hash.Sum(archiveKey, pattern)
}

// Flush rewrites the on-disk document even if no mutation is pending;
// stage handlers call this once at end-of-stage per the batched-write
// guidance in §5.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o644)
}
