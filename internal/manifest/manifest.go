// Package manifest writes the per-run manifest described in SPEC_FULL.md
// §2.3: a descriptive record of what a workflow run did, serialized as
// TOML alongside the JSON/text reports. It is write-only — nothing in
// the engine ever reads a manifest back, so it carries no schema version
// and no migration concern.
package manifest

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/a3scan/internal/config"
)

// Manifest is the resolved record of one orchestrator run.
type Manifest struct {
	ToolVersion       string    `toml:"tool_version"`
	WorkflowType      string    `toml:"workflow_type"`
	StartedAt         time.Time `toml:"started_at"`
	FinishedAt        time.Time `toml:"finished_at"`
	State             string    `toml:"state"`
	ExtractionPattern []string  `toml:"extraction_pattern"`
	WorkerCount       int       `toml:"worker_count"`
	MaxWalkDepth      int       `toml:"max_walk_depth"`
	OutputDir         string    `toml:"output_dir"`
}

// FromConfig seeds a Manifest's configuration-derived fields from cfg,
// leaving the run-specific fields (workflow type, timestamps, state) for
// the caller to fill in once the run completes.
func FromConfig(toolVersion string, cfg *config.Config) Manifest {
	return Manifest{
		ToolVersion:       toolVersion,
		ExtractionPattern: cfg.Extraction.Patterns,
		WorkerCount:       cfg.Extraction.WorkerCount,
		MaxWalkDepth:      cfg.Hierarchy.MaxWalkDepth,
	}
}

// Write serializes m as TOML to path, creating or truncating it.
func Write(path string, m Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
