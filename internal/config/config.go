// Package config holds the tunable knobs for the extraction cache, config
// parser, and workflow orchestrator (§6.F of the design). Defaults mirror the
// spec exactly; everything here can be overridden by a project .a3scan.kdl
// file (see kdl_config.go) or a global ~/.a3scan.kdl.
package config

import (
	"runtime"
)

// Default knob values, named so callers never have to guess a magic number.
const (
	DefaultParseTimeoutSec     = 60
	DefaultWorkflowTimeoutSec  = 3600
	DefaultMaxWalkDepth        = 50
	DefaultMaxSampleLocations  = 5
	DefaultMaxAlternatives     = 5
	DefaultSimilarityThreshold = 0.30
	DefaultCacheFileName       = "scan_db.json"
)

// DefaultExtractionPatterns is the extension filter used when a workflow
// does not request one explicitly.
func DefaultExtractionPatterns() []string {
	return []string{"cpp", "hpp", "sqf", "sqm"}
}

type Config struct {
	Version    int
	Project    Project
	Cache      Cache
	Extraction Extraction
	Parser     Parser
	Hierarchy  Hierarchy
	Workflow   Workflow
	Validation Validation
}

type Project struct {
	Root string
	Name string
}

// Cache controls where the persistent extraction cache document lives.
type Cache struct {
	RootDir  string // directory containing scan_db.json
	FileName string
}

// Extraction controls the extension filter and worker pool used by the
// Extraction Engine (§4.E).
type Extraction struct {
	Patterns    []string
	WorkerCount int // 0 = auto-detect (NumCPU)
}

// Parser controls the Config Preprocessor's include resolution and the
// per-file parse timeout enforced by stage handlers (§5).
type Parser struct {
	ParseTimeoutSec int
	SearchRoots     []string // additional include search roots, beyond file directory
	StrictMode      bool     // loaded from .a3scan.kdl; the preprocessor does not read it, so PE12 (include-not-found) stays severity=Warning
}

// Hierarchy bounds inheritance walks in the Class Store (§3.7).
type Hierarchy struct {
	MaxWalkDepth int
}

// Workflow controls the orchestrator's advisory ETA (§5); it is never
// enforced as a hard deadline by the orchestrator itself.
type Workflow struct {
	DefaultTimeoutSec int
}

// Validation controls the missing-class report's suggestion search (§4.L).
type Validation struct {
	MaxSampleLocations  int
	MaxAlternatives     int
	SimilarityThreshold float64
}

// Default returns a Config populated with every spec default (§6.F), rooted
// at root.
func Default(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Cache: Cache{
			RootDir:  root,
			FileName: DefaultCacheFileName,
		},
		Extraction: Extraction{
			Patterns:    DefaultExtractionPatterns(),
			WorkerCount: runtime.NumCPU(),
		},
		Parser: Parser{
			ParseTimeoutSec: DefaultParseTimeoutSec,
			SearchRoots:     nil,
			StrictMode:      false,
		},
		Hierarchy: Hierarchy{
			MaxWalkDepth: DefaultMaxWalkDepth,
		},
		Workflow: Workflow{
			DefaultTimeoutSec: DefaultWorkflowTimeoutSec,
		},
		Validation: Validation{
			MaxSampleLocations:  DefaultMaxSampleLocations,
			MaxAlternatives:     DefaultMaxAlternatives,
			SimilarityThreshold: DefaultSimilarityThreshold,
		},
	}
}

// Load resolves configuration for a project root: a global ~/.a3scan.kdl
// base overridden by a project-local .a3scan.kdl, falling back to Default
// when neither file exists.
func Load(root string) (*Config, error) {
	base, err := loadGlobalKDL()
	if err != nil {
		return nil, err
	}

	project, err := LoadKDL(root)
	if err != nil {
		return nil, err
	}

	switch {
	case base != nil && project != nil:
		return mergeConfigs(base, project), nil
	case project != nil:
		return project, nil
	case base != nil:
		base.Project.Root = root
		base.Cache.RootDir = root
		return base, nil
	default:
		return Default(root), nil
	}
}

func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(project.Parser.SearchRoots) == 0 && len(base.Parser.SearchRoots) > 0 {
		merged.Parser.SearchRoots = base.Parser.SearchRoots
	}

	return &merged
}
