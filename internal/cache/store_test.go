package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_OpenMissingFileYieldsEmptyStore(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)

	_, ok := s.Get("nope")
	assert.False(t, ok)
}

func TestStore_OpenEmptyFileYieldsEmptyStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan_db.json")
	require.NoError(t, writeFile(path, ""))

	s, err := Open(path, nil)
	require.NoError(t, err)
	_, ok := s.Get("nope")
	assert.False(t, ok)
}

func TestStore_OpenCorruptFileYieldsEmptyStoreWithoutOverwriting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan_db.json")
	require.NoError(t, writeFile(path, "{not json"))

	s, err := Open(path, nil)
	require.NoError(t, err)
	_, ok := s.Get("nope")
	assert.False(t, ok)

	// The corrupt file on disk is untouched until the next successful write.
	raw, err := readFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", raw)
}

func TestStore_PutAndGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)

	rec := Record{
		ArchiveKey:     "addons/a.pbo",
		FileSize:       100,
		ModTime:        time.Now().UTC().Truncate(time.Second),
		ExtractionTime: time.Now().UTC().Truncate(time.Second),
		Kind:           KindGameData,
		PatternFp:      []string{"cpp", "hpp"},
		ExtractedFiles: []string{"config.cpp"},
	}
	require.NoError(t, s.Put(rec))

	got, ok := s.Get("addons/a.pbo")
	require.True(t, ok)
	assert.Equal(t, rec.ExtractedFiles, got.ExtractedFiles)
	assert.False(t, got.PermanentError)
}

func TestStore_MarkPermanentErrorPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan_db.json")
	s, err := Open(path, nil)
	require.NoError(t, err)

	require.NoError(t, s.MarkPermanentError("bad.pbo", "checksum mismatch"))

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	rec, ok := reopened.Get("bad.pbo")
	require.True(t, ok)
	assert.True(t, rec.PermanentError)
	assert.Equal(t, "checksum mismatch", rec.PermanentErrMsg)
}

func TestStore_FindEntryByRelativePath_ExactMatch(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)

	require.NoError(t, s.Put(Record{
		ArchiveKey:     "a.pbo",
		ExtractionTime: time.Now().UTC(),
		ExtractedFiles: []string{"config/weapons.hpp"},
	}))

	entry, ok := s.FindEntryByRelativePath("config/weapons.hpp")
	require.True(t, ok)
	assert.Equal(t, "a.pbo", entry.ArchiveKey)
}

func TestStore_FindEntryByRelativePath_SuffixFallback(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)

	require.NoError(t, s.Put(Record{
		ArchiveKey:     "a.pbo",
		ExtractionTime: time.Now().UTC(),
		ExtractedFiles: []string{"cfg/weapons.hpp"},
	}))

	entry, ok := s.FindEntryByRelativePath("/some/deep/path/cfg/weapons.hpp")
	require.True(t, ok)
	assert.Equal(t, "a.pbo", entry.ArchiveKey)
}

func TestStore_FindEntryByRelativePath_TiesFavorFirstRegistered(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)

	// Both archives register a file with the same trailing path
	// component, so the suffix match is tied; "first.pbo" is put first
	// and must win regardless of map iteration or key sort order.
	require.NoError(t, s.Put(Record{
		ArchiveKey:     "first.pbo",
		ExtractionTime: time.Now().UTC(),
		ExtractedFiles: []string{"a/weapons.hpp"},
	}))
	require.NoError(t, s.Put(Record{
		ArchiveKey:     "second.pbo",
		ExtractionTime: time.Now().UTC(),
		ExtractedFiles: []string{"b/weapons.hpp"},
	}))

	entry, ok := s.FindEntryByRelativePath("weapons.hpp")
	require.True(t, ok)
	assert.Equal(t, "first.pbo", entry.ArchiveKey)
}

func TestStore_FindEntryByRelativePath_NoMatch(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)

	_, ok := s.FindEntryByRelativePath("nowhere.hpp")
	assert.False(t, ok)
}

func TestStore_PurgeRemovesRecordAndReverseIndex(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)

	require.NoError(t, s.Put(Record{
		ArchiveKey:     "a.pbo",
		ExtractionTime: time.Now().UTC(),
		ExtractedFiles: []string{"config.cpp"},
	}))

	require.NoError(t, s.Purge("a.pbo"))

	_, ok := s.Get("a.pbo")
	assert.False(t, ok)
	_, ok = s.FindEntryByRelativePath("config.cpp")
	assert.False(t, ok)
}

func TestStore_StatsCountsErrors(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)

	require.NoError(t, s.Put(Record{ArchiveKey: "ok.pbo", ExtractionTime: time.Now().UTC()}))
	require.NoError(t, s.MarkPermanentError("bad.pbo", "corrupt"))
	require.NoError(t, s.MarkTransientError("flaky.pbo", "disk full"))

	stats := s.Stats()
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 1, stats.PermanentErrors)
	assert.Equal(t, 1, stats.TransientErrors)
}

func TestStore_PurgeAllClearsEveryRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)

	require.NoError(t, s.Put(Record{ArchiveKey: "a.pbo", ExtractionTime: time.Now().UTC(), ExtractedFiles: []string{"config.cpp"}}))
	require.NoError(t, s.Put(Record{ArchiveKey: "b.pbo", ExtractionTime: time.Now().UTC()}))

	n, err := s.PurgeAll()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats := s.Stats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, 0, stats.FileCount)
}
