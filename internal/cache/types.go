// Package cache implements the Cache Store (§4.D) and Cache Record
// (§3.4): a single JSON document tracking what has already been
// extracted from which archive, plus the Extraction Engine (§4.E) that
// reads and writes it.
package cache

import "time"

// ArchiveKind distinguishes the two cache partitions a Record can belong
// to (§6.D ContentType).
type ArchiveKind string

const (
	KindGameData ArchiveKind = "GameData"
	KindMission  ArchiveKind = "Mission"
)

// Record is one Cache Record (§3.4), keyed externally by archive Path
// Key. Exactly one Record exists per archive-key at any time.
type Record struct {
	ArchiveKey      string      `json:"archive_key"`
	AbsolutePath    string      `json:"absolute_path"`
	FileSize        int64       `json:"file_size"`
	ModTime         time.Time   `json:"mod_time"`
	ExtractionTime  time.Time   `json:"extraction_time"`
	Kind            ArchiveKind `json:"kind"`
	PatternFp       []string    `json:"pattern_fingerprint"` // sorted, lowercased extensions
	ExtractedFiles  []string    `json:"extracted_files"`     // extraction-relative paths, in order produced
	PermanentError  bool        `json:"permanent_error"`
	PermanentErrMsg string      `json:"permanent_error_message,omitempty"`
	TransientError  bool        `json:"transient_error"`
	TransientErrMsg string      `json:"transient_error_message,omitempty"`
}

// FileEntry is the value side of the on-disk `files` map (§6.B): the
// reverse index from an extracted-relative path back to the archive it
// came from.
type FileEntry struct {
	ArchiveKey     string    `json:"archive_key"`
	ExtractionTime time.Time `json:"extraction_time"`
	Extension      string    `json:"extension"`

	// Seq is the registration order of this entry, assigned from the
	// Store's monotonic counter. FindEntryByRelativePath's suffix-match
	// tie-break uses it to pick the first-registered candidate
	// deterministically (§4.D), rather than depending on Go's randomized
	// map iteration order.
	Seq int64 `json:"seq"`
}

// FailedExtraction is the value side of the on-disk `failed_extractions`
// map (§6.B).
type FailedExtraction struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// document is the exact on-disk shape of scan_db.json (§6.B): three maps
// keyed as described there. It is unexported — callers only ever see it
// through Store's methods.
type document struct {
	PBOs              map[string]*Record          `json:"pbos"`
	Files             map[string]FileEntry         `json:"files"`
	FailedExtractions map[string]FailedExtraction `json:"failed_extractions"`
}

func newDocument() *document {
	return &document{
		PBOs:              make(map[string]*Record),
		Files:             make(map[string]FileEntry),
		FailedExtractions: make(map[string]FailedExtraction),
	}
}
