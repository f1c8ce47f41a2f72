// Package validate implements the Validator (§4.L): cross-referencing
// Mission Dependency Records against the Class Hierarchy Store to report
// which external identifiers exist and, for those that don't, which
// known classes look close enough to be the intended target.
package validate

// MissingClass describes one external identifier a mission referenced
// that the Class Store has no record of.
type MissingClass struct {
	Identifier     string
	ReferenceCount int
	Locations      []Location // capped at maxSampleLocations
	Alternatives   []string   // capped at maxAlternatives, deduplicated
}

// Location pins one reference occurrence back to its source.
type Location struct {
	SourceFile string
	Line       int
}

// MissionReport is one mission's slice of the overall ClassExistenceReport.
type MissionReport struct {
	MissionName         string
	TotalUnique         int
	Existing            int
	Missing             int
	ExistencePercentage float64
	MissingClasses      []MissingClass
}

// Report is the ClassExistenceReport (§4.L): per-mission breakdowns plus
// totals across every mission validated in one run.
type Report struct {
	Missions            []MissionReport
	TotalUnique         int
	TotalExisting       int
	TotalMissing        int
	ExistencePercentage float64
}
