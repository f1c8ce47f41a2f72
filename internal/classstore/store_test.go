package classstore

import (
	"testing"

	"github.com/standardbeagle/a3scan/internal/classlang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_TrivialHierarchy(t *testing.T) {
	s := New()
	s.BulkInsert([]classlang.Record{
		{Name: "Base"},
		{Name: "Derived", Parent: "Base"},
	})

	assert.Equal(t, []string{"Derived"}, s.ChildrenOf("Base"))
	assert.True(t, s.InheritsFrom("Derived", map[string]bool{"Base": true}, 50))

	nodes := s.HierarchyFrom("Base", 50)
	require.Len(t, nodes, 2)
	assert.Equal(t, Node{Name: "Base", Parent: "", Depth: 0}, nodes[0])
	assert.Equal(t, Node{Name: "Derived", Parent: "Base", Depth: 1}, nodes[1])
}

func TestStore_CaseInsensitiveLookup(t *testing.T) {
	s := New()
	s.Insert(classlang.Record{Name: "Rifle_Base"})

	_, ok := s.Lookup("rifle_base")
	assert.True(t, ok)
	_, ok = s.Lookup("RIFLE_BASE")
	assert.True(t, ok)
}

func TestStore_InheritsFromSelfTrivially(t *testing.T) {
	s := New()
	s.Insert(classlang.Record{Name: "Vehicle"})

	assert.True(t, s.InheritsFrom("Vehicle", map[string]bool{"Vehicle": true}, 50))
}

func TestStore_CycleTerminatesAtDepthCeiling(t *testing.T) {
	s := New()
	s.BulkInsert([]classlang.Record{
		{Name: "A", Parent: "B"},
		{Name: "B", Parent: "A"},
	})

	// Neither walk should hang; both must terminate false against an
	// unrelated candidate.
	assert.False(t, s.InheritsFrom("A", map[string]bool{"Nonexistent": true}, 10))
}

func TestStore_BulkInsertAtomicSnapshot(t *testing.T) {
	s := New()
	s.Insert(classlang.Record{Name: "Existing"})

	// A reader never sees a partially-applied batch: before the second
	// insert, only the first record is visible.
	assert.Equal(t, 1, s.Size())
	s.BulkInsert([]classlang.Record{{Name: "X"}, {Name: "Y", Parent: "X"}})
	assert.Equal(t, 3, s.Size())
	assert.Equal(t, []string{"Y"}, s.ChildrenOf("X"))
}

func TestStore_FindOrphans(t *testing.T) {
	s := New()
	s.BulkInsert([]classlang.Record{
		{Name: "Parent"},
		{Name: "Child", Parent: "Parent"},
	})

	orphans := s.FindOrphans(map[string]bool{"Parent": true})
	require.Len(t, orphans, 1)
	assert.Equal(t, "Child", orphans[0].Name)
}

func TestStore_TransitiveDescendants(t *testing.T) {
	s := New()
	s.BulkInsert([]classlang.Record{
		{Name: "Root"},
		{Name: "Mid", Parent: "Root"},
		{Name: "Leaf", Parent: "Mid"},
	})

	desc := s.TransitiveDescendants([]string{"Root"}, 50)
	assert.ElementsMatch(t, []string{"Mid", "Leaf"}, desc)
}

func TestStore_UnresolvedParentIsRetainedNotDropped(t *testing.T) {
	s := New()
	s.Insert(classlang.Record{Name: "Orphaned", Parent: "NeverDeclared"})

	_, ok := s.Lookup("NeverDeclared")
	assert.False(t, ok)

	rec, ok := s.Lookup("Orphaned")
	require.True(t, ok)
	assert.Equal(t, "NeverDeclared", rec.Parent)
}
