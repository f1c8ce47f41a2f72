package cache

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/standardbeagle/a3scan/internal/glob"
	"github.com/standardbeagle/a3scan/internal/hash"
	"github.com/standardbeagle/a3scan/internal/logging"
	"github.com/standardbeagle/a3scan/internal/pathutil"
	"github.com/standardbeagle/a3scan/internal/pbo"
)

// ExtractionReport is the result of one Extract call (§4.E): the set of
// relative paths written, any per-entry failures (never fatal on their
// own), and whether a permanent or transient error terminated the whole
// attempt.
type ExtractionReport struct {
	ArchiveKey     string
	ExtractedFiles []string
	Skipped        []string // entries that matched the pattern but failed to stream
	Warnings       []string
	PermanentError string // non-empty only on unrecoverable archive corruption
	TransientError string // non-empty only when every retry tier failed
}

// Engine is the Extraction Engine (§4.E): decides whether an archive
// needs re-extraction and performs the extraction, reconciling its
// result against the Cache Store.
type Engine struct {
	store        *Store
	log          *logging.Sink
	decompressor pbo.Decompressor
	inflight     singleflight.Group
}

// NewEngine constructs an Extraction Engine over store. decompressor may
// be nil; Cprs entries then fail individually (logged, skipped) rather
// than aborting the whole extraction, since the compressed-stream codec
// is an external collaborator this package does not own (§1).
func NewEngine(store *Store, log *logging.Sink, decompressor pbo.Decompressor) *Engine {
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{store: store, log: log, decompressor: decompressor}
}

// NeedsExtraction implements the decision procedure in §4.E. outputDir is
// where a prior extraction would have written its files; it is checked
// in decision step 5 (files the cache claims to have produced must still
// be present on disk).
func (e *Engine) NeedsExtraction(archivePath string, requestedPattern []string, outputDir string) bool {
	key := pathutil.NewKey(archivePath)
	rec, ok := e.store.Get(string(key))
	if !ok {
		return true
	}
	if rec.PermanentError {
		return false
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return true
	}
	if info.Size() != rec.FileSize || !info.ModTime().Equal(rec.ModTime) {
		return true
	}

	wantPattern := hash.SortPattern(requestedPattern)
	if !stringSliceEqual(wantPattern, rec.PatternFp) {
		return true
	}

	for _, relPath := range rec.ExtractedFiles {
		if _, err := os.Stat(filepath.Join(outputDir, filepath.FromSlash(relPath))); err != nil {
			return true
		}
	}

	return false
}

// Extract implements the extraction procedure in §4.E, including the
// tiered-retry reconciliation in step 5. Concurrent calls for the same
// archive key collapse into a single extraction via singleflight (§5:
// Cache Store writes from concurrent extractions are serialized) so two
// stage-handler workers racing on overlapping file lists don't both pay
// for a redundant extraction. kind records which cache partition the
// resulting Record belongs to (§6.D: GameData vs. Mission archives).
func (e *Engine) Extract(archivePath string, requestedPattern []string, outputDir string, kind ArchiveKind) (ExtractionReport, error) {
	key := string(pathutil.NewKey(archivePath))

	type result struct {
		report ExtractionReport
		err    error
	}
	v, _, _ := e.inflight.Do(key, func() (interface{}, error) {
		report, err := e.extract(key, archivePath, requestedPattern, outputDir, kind)
		return result{report, err}, nil
	})
	r := v.(result)
	return r.report, r.err
}

func (e *Engine) extract(key, archivePath string, requestedPattern []string, outputDir string, kind ArchiveKind) (ExtractionReport, error) {
	report := ExtractionReport{ArchiveKey: key}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return report, err
	}

	info, statErr := os.Stat(archivePath)
	if statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return report, statErr
		}
		return report, statErr
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return report, err
	}
	defer f.Close()

	reader, err := pbo.Open(f, e.decompressor)
	if err != nil {
		if errors.Is(err, pbo.ErrCorruptedHeader) {
			msg := err.Error()
			report.PermanentError = msg
			_ = e.store.MarkPermanentError(key, msg)
			return report, err
		}
		return report, err
	}

	patterns := glob.CompileSet(glob.ExtensionPatterns(requestedPattern))
	for _, p := range patterns {
		if w := p.Warning(); w != "" {
			report.Warnings = append(report.Warnings, w)
		}
	}

	written, skipped := e.extractMatching(reader, patterns, outputDir)
	report.ExtractedFiles = written
	report.Skipped = skipped

	expectedMatches := 0
	for _, h := range reader.List() {
		if glob.MatchAny(patterns, h.Filename) {
			expectedMatches++
		}
	}

	if len(written) == 0 && expectedMatches > 0 {
		// Tier 2: retry with an accept-all wildcard pattern.
		wildcard := []*glob.Pattern{glob.Compile("**/*")}
		written, skipped = e.extractMatching(reader, wildcard, outputDir)
		report.ExtractedFiles = written
		report.Skipped = skipped
	}

	if len(written) == 0 && expectedMatches > 0 {
		// Tier 3: drop pattern filtering entirely and copy every entry
		// by iterating the header list once more (nil patterns make
		// extractMatching accept all entries).
		written, skipped = e.extractMatching(reader, nil, outputDir)
		report.ExtractedFiles = written
		report.Skipped = skipped
	}

	if len(written) == 0 && expectedMatches > 0 {
		msg := "all extraction tiers produced zero files"
		report.TransientError = msg
		_ = e.store.MarkTransientError(key, msg)
		return report, errors.New(msg)
	}

	rec := Record{
		ArchiveKey:     key,
		AbsolutePath:   archivePath,
		FileSize:       info.Size(),
		ModTime:        info.ModTime(),
		ExtractionTime: time.Now().UTC(),
		Kind:           kind,
		PatternFp:      hash.SortPattern(requestedPattern),
		ExtractedFiles: written,
	}
	if err := e.store.Put(rec); err != nil {
		return report, err
	}

	return report, nil
}

// extractMatching streams every entry matching patterns (or every entry,
// when patterns is nil) to outputDir, normalizing backslashes and
// creating intermediate directories. Per-entry failures are logged and
// skipped; they never abort the loop.
func (e *Engine) extractMatching(reader *pbo.Reader, patterns []*glob.Pattern, outputDir string) (written, skipped []string) {
	for _, h := range reader.List() {
		if patterns != nil && !glob.MatchAny(patterns, h.Filename) {
			continue
		}

		src, err := reader.OpenEntry(h.Filename)
		if err != nil {
			e.log.Warnf("extract", "skipping %s: %v", h.Filename, err)
			skipped = append(skipped, h.Filename)
			continue
		}

		destPath := filepath.Join(outputDir, filepath.FromSlash(h.Filename))
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			e.log.Warnf("extract", "skipping %s: %v", h.Filename, err)
			skipped = append(skipped, h.Filename)
			continue
		}

		out, err := os.Create(destPath)
		if err != nil {
			e.log.Warnf("extract", "skipping %s: %v", h.Filename, err)
			skipped = append(skipped, h.Filename)
			continue
		}
		_, copyErr := io.Copy(out, src)
		closeErr := out.Close()
		if copyErr != nil || closeErr != nil {
			e.log.Warnf("extract", "skipping %s: write failed", h.Filename)
			skipped = append(skipped, h.Filename)
			continue
		}

		written = append(written, h.Filename)
	}
	return written, skipped
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
