package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/a3scan/internal/config"
)

func TestFromConfig_SeedsExtractionFields(t *testing.T) {
	cfg := config.Default("/tmp/project")
	m := FromConfig("test-version", cfg)

	assert.Equal(t, "test-version", m.ToolVersion)
	assert.Equal(t, cfg.Extraction.Patterns, m.ExtractionPattern)
	assert.Equal(t, cfg.Hierarchy.MaxWalkDepth, m.MaxWalkDepth)
}

func TestWrite_RoundTripsAsTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.toml")

	m := Manifest{
		ToolVersion:  "1.0.0",
		WorkflowType: "Complete",
		StartedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		FinishedAt:   time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		State:        "Completed",
		OutputDir:    "/tmp/out",
	}
	require.NoError(t, Write(path, m))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Manifest
	require.NoError(t, toml.Unmarshal(raw, &got))
	assert.Equal(t, m.ToolVersion, got.ToolVersion)
	assert.Equal(t, m.WorkflowType, got.WorkflowType)
	assert.Equal(t, m.State, got.State)
}
