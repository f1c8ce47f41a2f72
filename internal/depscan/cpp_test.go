package depscan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "loadout.hpp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanCPP_ScalarEquipmentProperty(t *testing.T) {
	path := writeOverlay(t, `class CfgLoadout {
		vest = "V_PlateCarrier1_rgr";
		irrelevant = "not scanned";
	};`)
	refs, err := ScanCPP(path)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "V_PlateCarrier1_rgr", refs[0].Identifier)
	assert.Equal(t, KindComponentProperty, refs[0].Kind)
	assert.Contains(t, refs[0].Context, "CfgLoadout")
}

func TestScanCPP_ArrayEquipmentProperty(t *testing.T) {
	path := writeOverlay(t, `class CfgLoadout {
		magazine[] = {"30Rnd_556x45_Stanag", "HandGrenade"};
	};`)
	refs, err := ScanCPP(path)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "30Rnd_556x45_Stanag", refs[0].Identifier)
	assert.Equal(t, "HandGrenade", refs[1].Identifier)
}

func TestScanCPP_NestedClassUsesLeafNameInContext(t *testing.T) {
	path := writeOverlay(t, `class Outer {
		class Inner {
			uniform = "U_B_CombatUniform_mcam";
		};
	};`)
	refs, err := ScanCPP(path)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Contains(t, refs[0].Context, "Inner")
}
