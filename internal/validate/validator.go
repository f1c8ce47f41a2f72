package validate

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/a3scan/internal/classstore"
	"github.com/standardbeagle/a3scan/internal/config"
	"github.com/standardbeagle/a3scan/internal/depscan"
)

// Validate cross-references every mission's external identifiers against
// store and returns the combined ClassExistenceReport (§4.L). cfg
// supplies the suggestion-search tunables (§6.F); zero-value fields fall
// back to config.Default's Validation block.
func Validate(missions []depscan.Record, store *classstore.Store, cfg config.Validation) Report {
	defaults := config.Default("").Validation
	if cfg.MaxSampleLocations == 0 {
		cfg.MaxSampleLocations = defaults.MaxSampleLocations
	}
	if cfg.MaxAlternatives == 0 {
		cfg.MaxAlternatives = defaults.MaxAlternatives
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = defaults.SimilarityThreshold
	}

	var missionReports []MissionReport
	var totalUnique, totalExisting, totalMissing int

	for _, mission := range missions {
		mr := validateMission(mission, store, cfg)
		missionReports = append(missionReports, mr)
		totalUnique += mr.TotalUnique
		totalExisting += mr.Existing
		totalMissing += mr.Missing
	}

	return Report{
		Missions:            missionReports,
		TotalUnique:         totalUnique,
		TotalExisting:       totalExisting,
		TotalMissing:        totalMissing,
		ExistencePercentage: percentage(totalExisting, totalUnique),
	}
}

func validateMission(mission depscan.Record, store *classstore.Store, cfg config.Validation) MissionReport {
	locationsByID := make(map[string][]Location)
	for _, ref := range mission.References {
		locationsByID[strings.ToLower(ref.Identifier)] = append(
			locationsByID[strings.ToLower(ref.Identifier)],
			Location{SourceFile: ref.SourceFile, Line: ref.Line},
		)
	}

	var missing []MissingClass
	existing := 0

	for _, id := range mission.ExternalIDs {
		if _, ok := store.Lookup(id); ok {
			existing++
			continue
		}

		locs := locationsByID[strings.ToLower(id)]
		count := len(locs)
		if len(locs) > cfg.MaxSampleLocations {
			locs = locs[:cfg.MaxSampleLocations]
		}

		missing = append(missing, MissingClass{
			Identifier:     id,
			ReferenceCount: count,
			Locations:      locs,
			Alternatives:   findAlternatives(id, store, cfg),
		})
	}

	total := len(mission.ExternalIDs)
	return MissionReport{
		MissionName:         mission.MissionName,
		TotalUnique:         total,
		Existing:            existing,
		Missing:             len(missing),
		ExistencePercentage: percentage(existing, total),
		MissingClasses:      missing,
	}
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// findAlternatives suggests up to maxAlternatives known class names for
// a missing identifier, using the two-test rule from §4.L: substring
// containment either direction, or normalized Levenshtein distance below
// similarityThreshold. Candidates are deduplicated and every class's
// `name` property value is also searched as an alias, the way the
// original validator's alternative-class-name derivation does.
func findAlternatives(missing string, store *classstore.Store, cfg config.Validation) []string {
	lowerMissing := strings.ToLower(missing)
	seen := make(map[string]bool)
	var out []string

	consider := func(candidate string) {
		if candidate == "" {
			return
		}
		lowerCandidate := strings.ToLower(candidate)
		if seen[lowerCandidate] {
			return
		}
		if isSimilar(lowerMissing, lowerCandidate, cfg.SimilarityThreshold) {
			seen[lowerCandidate] = true
			out = append(out, candidate)
		}
	}

	candidates := store.AllNames()
	candidates = append(candidates, store.NameAliases()...)

	for _, name := range candidates {
		consider(name)
	}

	sort.Strings(out)
	if len(out) > cfg.MaxAlternatives {
		out = out[:cfg.MaxAlternatives]
	}
	return out
}

func isSimilar(lowerMissing, lowerCandidate string, similarityThreshold float64) bool {
	if strings.Contains(lowerCandidate, lowerMissing) || strings.Contains(lowerMissing, lowerCandidate) {
		return true
	}

	maxLen := len(lowerMissing)
	if len(lowerCandidate) > maxLen {
		maxLen = len(lowerCandidate)
	}
	if maxLen == 0 {
		return false
	}

	distance := edlib.LevenshteinDistance(lowerMissing, lowerCandidate)
	return float64(distance)/float64(maxLen) < similarityThreshold
}
