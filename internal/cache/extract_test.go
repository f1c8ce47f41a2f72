package cache

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/standardbeagle/a3scan/internal/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}

func writeU32(buf *bytes.Buffer, v uint32) {
	_ = binary.Write(buf, binary.LittleEndian, v)
}

// buildTestPBO writes a minimal well-formed archive with one Cprs-free
// entry per name in files, to testPath.
func buildTestPBO(t *testing.T, testPath string, files map[string]string) {
	t.Helper()

	var header bytes.Buffer
	var body bytes.Buffer
	for name, content := range files {
		writeCString(&header, name)
		header.Write([]byte{0, 0, 0, 0})
		writeU32(&header, uint32(len(content)))
		writeU32(&header, 0)
		writeU32(&header, 0)
		writeU32(&header, uint32(len(content)))
		body.WriteString(content)
	}
	writeCString(&header, "")
	header.Write([]byte{0, 0, 0, 0})
	writeU32(&header, 0)
	writeU32(&header, 0)
	writeU32(&header, 0)
	writeU32(&header, 0)

	var archive bytes.Buffer
	archive.Write(header.Bytes())
	archive.Write(body.Bytes())
	sum := sha1.Sum(archive.Bytes())
	archive.WriteByte(0)
	archive.Write(sum[:])

	require.NoError(t, os.WriteFile(testPath, archive.Bytes(), 0o644))
}

func TestEngine_NeedsExtraction_NoCacheRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)
	eng := NewEngine(s, nil, nil)

	pboPath := filepath.Join(dir, "a.pbo")
	buildTestPBO(t, pboPath, map[string]string{"config.cpp": "class CfgPatches {};"})

	assert.True(t, eng.NeedsExtraction(pboPath, []string{"cpp"}, filepath.Join(dir, "out")))
}

func TestEngine_ExtractThenNoLongerNeeded(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)
	eng := NewEngine(s, nil, nil)

	pboPath := filepath.Join(dir, "a.pbo")
	buildTestPBO(t, pboPath, map[string]string{"config.cpp": "class CfgPatches {};"})
	outDir := filepath.Join(dir, "out")

	report, err := eng.Extract(pboPath, []string{"cpp"}, outDir, KindGameData)
	require.NoError(t, err)
	assert.Equal(t, []string{"config.cpp"}, report.ExtractedFiles)
	assert.FileExists(t, filepath.Join(outDir, "config.cpp"))

	assert.False(t, eng.NeedsExtraction(pboPath, []string{"cpp"}, outDir))
}

func TestEngine_PatternChangeForcesReExtraction(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)
	eng := NewEngine(s, nil, nil)

	pboPath := filepath.Join(dir, "a.pbo")
	buildTestPBO(t, pboPath, map[string]string{"config.cpp": "x", "init.sqf": "y"})
	outDir := filepath.Join(dir, "out")

	_, err = eng.Extract(pboPath, []string{"cpp"}, outDir, KindGameData)
	require.NoError(t, err)

	assert.True(t, eng.NeedsExtraction(pboPath, []string{"cpp", "sqf"}, outDir))
}

func TestEngine_BenignTouchStillFlipsNeedsExtraction(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)
	eng := NewEngine(s, nil, nil)

	pboPath := filepath.Join(dir, "a.pbo")
	buildTestPBO(t, pboPath, map[string]string{"config.cpp": "x"})
	outDir := filepath.Join(dir, "out")

	_, err = eng.Extract(pboPath, []string{"cpp"}, outDir, KindGameData)
	require.NoError(t, err)

	assert.False(t, eng.NeedsExtraction(pboPath, []string{"cpp"}, outDir))

	// Simulate an mtime-changing touch with identical content/size.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(pboPath, future, future))

	assert.True(t, eng.NeedsExtraction(pboPath, []string{"cpp"}, outDir))

	report, err := eng.Extract(pboPath, []string{"cpp"}, outDir, KindGameData)
	require.NoError(t, err)
	assert.Equal(t, []string{"config.cpp"}, report.ExtractedFiles)
	assert.False(t, eng.NeedsExtraction(pboPath, []string{"cpp"}, outDir))
}

func TestEngine_MissingOutputFileForcesReExtraction(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)
	eng := NewEngine(s, nil, nil)

	pboPath := filepath.Join(dir, "a.pbo")
	buildTestPBO(t, pboPath, map[string]string{"config.cpp": "x"})
	outDir := filepath.Join(dir, "out")

	_, err = eng.Extract(pboPath, []string{"cpp"}, outDir, KindGameData)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(outDir, "config.cpp")))
	assert.True(t, eng.NeedsExtraction(pboPath, []string{"cpp"}, outDir))
}

func TestEngine_CorruptedHeaderMarksPermanentError(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)
	eng := NewEngine(s, nil, nil)

	pboPath := filepath.Join(dir, "broken.pbo")
	var header bytes.Buffer
	writeCString(&header, "a.cpp")
	header.Write([]byte{0, 0, 0, 0})
	writeU32(&header, 5000) // declared far beyond the bytes actually present
	writeU32(&header, 0)
	writeU32(&header, 0)
	writeU32(&header, 5000)
	writeCString(&header, "")
	header.Write([]byte{0, 0, 0, 0})
	writeU32(&header, 0)
	writeU32(&header, 0)
	writeU32(&header, 0)
	writeU32(&header, 0)
	require.NoError(t, os.WriteFile(pboPath, append(header.Bytes(), "short"...), 0o644))

	outDir := filepath.Join(dir, "out")
	_, err = eng.Extract(pboPath, []string{"cpp"}, outDir, KindGameData)
	require.Error(t, err)

	key := string(pathutil.NewKey(pboPath))
	rec, ok := s.Get(key)
	require.True(t, ok)
	assert.True(t, rec.PermanentError)

	// A subsequent run honors the permanent-error memoization (§3.4)
	// instead of re-reading the archive.
	assert.False(t, eng.NeedsExtraction(pboPath, []string{"cpp"}, outDir))
}

func TestEngine_PermanentErrorSkipsReRead(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "scan_db.json"), nil)
	require.NoError(t, err)
	eng := NewEngine(s, nil, nil)

	archivePath := filepath.Join(dir, "missing.pbo")
	require.NoError(t, s.MarkPermanentError(string(pathutil.NewKey(archivePath)), "corrupted"))

	assert.False(t, eng.NeedsExtraction(archivePath, []string{"cpp"}, filepath.Join(dir, "out")))
}
