// Package report implements the report-rendering external collaborator
// named in §6.E, specified here only at its interface: JSON is the
// authoritative format, with a human-readable text summary produced
// alongside (§6.E). The actual presentation layer (HTML, the GUI graph
// viewer) is out of scope per §1; this package only owns the two formats
// the core pipeline itself is required to produce.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/standardbeagle/a3scan/internal/depscan"
	"github.com/standardbeagle/a3scan/internal/validate"
)

// MissionDependencyReport is the JSON payload shape from §6.E: per
// mission, its full reference list plus derived external identifiers.
type MissionDependencyReport struct {
	Missions []MissionDependencyEntry `json:"missions"`
}

type MissionDependencyEntry struct {
	Name        string           `json:"name"`
	Archive     string           `json:"archive"`
	References  []ReferenceEntry `json:"references"`
	ExternalIDs []string         `json:"external_ids"`
}

type ReferenceEntry struct {
	ID   string `json:"id"`
	File string `json:"file"`
	Line int    `json:"line"`
	Kind string `json:"kind"`
}

// BuildMissionDependencyReport adapts depscan.Record values into the
// wire shape §6.E specifies.
func BuildMissionDependencyReport(missions []depscan.Record) MissionDependencyReport {
	out := MissionDependencyReport{Missions: make([]MissionDependencyEntry, 0, len(missions))}
	for _, m := range missions {
		entry := MissionDependencyEntry{
			Name:        m.MissionName,
			Archive:     m.ArchiveKey,
			ExternalIDs: m.ExternalIDs,
		}
		for _, ref := range m.References {
			entry.References = append(entry.References, ReferenceEntry{
				ID:   ref.Identifier,
				File: ref.SourceFile,
				Line: ref.Line,
				Kind: string(ref.Kind),
			})
		}
		out.Missions = append(out.Missions, entry)
	}
	return out
}

// WriteMissionDependenciesJSON writes the mission dependency report as
// indented JSON, the authoritative format per §6.E.
func WriteMissionDependenciesJSON(w io.Writer, missions []depscan.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildMissionDependencyReport(missions))
}

// WriteMissingClassesJSON writes the ClassExistenceReport as indented
// JSON. validate.Report carries no json tags, so the keys are its Go
// field names (Missions, TotalUnique, ...) and the totals are top-level
// fields rather than a nested object.
func WriteMissingClassesJSON(w io.Writer, r validate.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteMissingClassesText renders the human-readable counts-plus-sections
// summary §6.E calls for alongside the authoritative JSON.
func WriteMissingClassesText(w io.Writer, r validate.Report) error {
	if _, err := fmt.Fprintf(w, "Missing-class report\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  total unique references: %d\n", r.TotalUnique); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  existing:                %d\n", r.TotalExisting); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  missing:                 %d\n", r.TotalMissing); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  existence rate:          %.1f%%\n\n", r.ExistencePercentage); err != nil {
		return err
	}

	for _, mr := range r.Missions {
		if _, err := fmt.Fprintf(w, "Mission: %s (%d/%d existing, %.1f%%)\n",
			mr.MissionName, mr.Existing, mr.TotalUnique, mr.ExistencePercentage); err != nil {
			return err
		}
		for _, mc := range mr.MissingClasses {
			if _, err := fmt.Fprintf(w, "  - %s (%d references)\n", mc.Identifier, mc.ReferenceCount); err != nil {
				return err
			}
			for _, loc := range mc.Locations {
				if _, err := fmt.Fprintf(w, "      %s:%d\n", loc.SourceFile, loc.Line); err != nil {
					return err
				}
			}
			if len(mc.Alternatives) > 0 {
				if _, err := fmt.Fprintf(w, "      maybe: %v\n", mc.Alternatives); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
