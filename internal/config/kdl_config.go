package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

const projectConfigFileName = ".a3scan.kdl"

// LoadKDL attempts to load a project-local .a3scan.kdl from projectRoot.
// Returns (nil, nil) when the file does not exist so callers can fall back
// to Default without treating a missing overlay as an error.
func LoadKDL(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, projectConfigFileName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", projectConfigFileName, err)
	}

	cfg, err := parseKDL(string(content), projectRoot)
	if err != nil {
		return nil, err
	}

	if filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(cfg.Project.Root)
	} else {
		cfg.Project.Root = filepath.Clean(filepath.Join(projectRoot, cfg.Project.Root))
	}
	cfg.Cache.RootDir = cfg.Project.Root

	return cfg, nil
}

// loadGlobalKDL loads a base configuration from ~/.a3scan.kdl, if present.
func loadGlobalKDL() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil
	}
	cfg, err := LoadKDL(home)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseKDL decodes a .a3scan.kdl document into a Config seeded with
// defaults, so a file that only overrides one knob still yields a complete,
// usable Config.
func parseKDL(content, root string) (*Config, error) {
	cfg := Default(root)

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", projectConfigFileName, err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "root_dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.Cache.RootDir = s
					}
				case "file_name":
					if s, ok := firstStringArg(cn); ok {
						cfg.Cache.FileName = s
					}
				}
			}
		case "extraction":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "patterns":
					if patterns := collectStringArgs(cn); len(patterns) > 0 {
						cfg.Extraction.Patterns = patterns
					}
				case "worker_count":
					if v, ok := firstIntArg(cn); ok {
						if v <= 0 {
							v = runtime.NumCPU()
						}
						cfg.Extraction.WorkerCount = v
					}
				}
			}
		case "parser":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "parse_timeout_sec":
					if v, ok := firstIntArg(cn); ok {
						cfg.Parser.ParseTimeoutSec = v
					}
				case "search_roots":
					if roots := collectStringArgs(cn); len(roots) > 0 {
						cfg.Parser.SearchRoots = roots
					}
				case "strict_mode":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Parser.StrictMode = b
					}
				}
			}
		case "hierarchy":
			for _, cn := range n.Children {
				if nodeName(cn) == "max_walk_depth" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Hierarchy.MaxWalkDepth = v
					}
				}
			}
		case "workflow":
			for _, cn := range n.Children {
				if nodeName(cn) == "default_timeout_sec" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Workflow.DefaultTimeoutSec = v
					}
				}
			}
		case "validation":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_sample_locations":
					if v, ok := firstIntArg(cn); ok {
						cfg.Validation.MaxSampleLocations = v
					}
				case "max_alternatives":
					if v, ok := firstIntArg(cn); ok {
						cfg.Validation.MaxAlternatives = v
					}
				case "similarity_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Validation.SimilarityThreshold = v
					}
				}
			}
		}
	}

	return cfg, nil
}

// Helper functions over the kdl-go document model.

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// collectStringArgs reads string values either from a node's inline
// arguments (`patterns "cpp" "hpp"`) or from block-form children
// (`patterns { "cpp"; "hpp" }`), matching the two styles the rest of the
// corpus accepts for list-valued settings.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
