package depscan

import (
	"path/filepath"
	"sort"
	"strings"
)

// MissionFiles names the extracted files that make up one mission's
// scannable surface (§3.8).
type MissionFiles struct {
	SQM  string // empty if no mission.sqm was extracted
	SQF  []string
	CPP  []string // .cpp and .hpp overlays
}

// Analyze scans every file in files and assembles the mission's full
// Mission Dependency Record. Per-file scan failures are tolerated: a
// broken file contributes zero references rather than aborting the
// mission (§4.I carries no hard-failure mode for a single malformed
// script).
func Analyze(missionName, archiveKey string, files MissionFiles) Record {
	var all []Reference
	defined := make(map[string]bool)

	if files.SQM != "" {
		if refs, err := ScanSQM(files.SQM); err == nil {
			for _, r := range refs {
				if r.Kind == KindClassDefinition {
					defined[strings.ToLower(r.Identifier)] = true
				}
			}
			all = append(all, refs...)
		}
	}

	for _, f := range files.SQF {
		if refs, err := ScanSQF(f); err == nil {
			all = append(all, refs...)
		}
	}

	for _, f := range files.CPP {
		if refs, err := ScanCPP(f); err == nil {
			all = append(all, refs...)
		}
	}

	externals := make(map[string]string) // lower -> canonical-case representative
	for _, r := range all {
		lower := strings.ToLower(r.Identifier)
		if defined[lower] || stoplist[r.Identifier] {
			continue
		}
		if _, ok := externals[lower]; !ok {
			externals[lower] = r.Identifier
		}
	}

	ids := make([]string, 0, len(externals))
	for _, canonical := range externals {
		ids = append(ids, canonical)
	}
	sort.Strings(ids)

	return Record{
		MissionName: missionName,
		ArchiveKey:  archiveKey,
		References:  all,
		ExternalIDs: ids,
	}
}

// CollectMissionFiles groups an extracted mission directory's files by
// role, matching by extension (case-insensitively) the way the original
// extractor's find_files_by_extension walk does.
func CollectMissionFiles(root string, walk func(root string) ([]string, error)) (MissionFiles, error) {
	paths, err := walk(root)
	if err != nil {
		return MissionFiles{}, err
	}
	var mf MissionFiles
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".sqm":
			if mf.SQM == "" {
				mf.SQM = p
			}
		case ".sqf":
			mf.SQF = append(mf.SQF, p)
		case ".cpp", ".hpp":
			mf.CPP = append(mf.CPP, p)
		}
	}
	return mf, nil
}
