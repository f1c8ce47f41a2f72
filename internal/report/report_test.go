package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/a3scan/internal/depscan"
	"github.com/standardbeagle/a3scan/internal/validate"
)

func TestWriteMissionDependenciesJSON_ProducesExpectedShape(t *testing.T) {
	missions := []depscan.Record{
		{
			MissionName: "m1",
			ArchiveKey:  "missions/m1.pbo",
			References: []depscan.Reference{
				{Identifier: "arifle_mx_f", SourceFile: "init.sqf", Line: 3, Kind: depscan.KindDirectUsage},
			},
			ExternalIDs: []string{"arifle_mx_f"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMissionDependenciesJSON(&buf, missions))

	var decoded MissionDependencyReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Missions, 1)
	assert.Equal(t, "m1", decoded.Missions[0].Name)
	assert.Equal(t, []string{"arifle_mx_f"}, decoded.Missions[0].ExternalIDs)
	require.Len(t, decoded.Missions[0].References, 1)
	assert.Equal(t, "init.sqf", decoded.Missions[0].References[0].File)
}

func TestWriteMissingClassesText_IncludesCountsAndMissing(t *testing.T) {
	r := validate.Report{
		TotalUnique:         2,
		TotalExisting:       1,
		TotalMissing:        1,
		ExistencePercentage: 50,
		Missions: []validate.MissionReport{
			{
				MissionName:         "m1",
				TotalUnique:         2,
				Existing:            1,
				Missing:             1,
				ExistencePercentage: 50,
				MissingClasses: []validate.MissingClass{
					{Identifier: "unknowngun", ReferenceCount: 1, Locations: []validate.Location{{SourceFile: "init.sqf", Line: 1}}},
				},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMissingClassesText(&buf, r))

	out := buf.String()
	assert.Contains(t, out, "total unique references: 2")
	assert.Contains(t, out, "unknowngun")
	assert.Contains(t, out, "init.sqf:1")
}
