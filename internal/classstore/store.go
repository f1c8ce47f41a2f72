// Package classstore implements the Class Hierarchy Store (§3.7, §4.H):
// a table of Class Records plus two derived indexes (children-by-parent,
// file-index to class-names) maintained in lockstep, with depth-bounded
// inheritance walks that never loop forever on a cycle.
package classstore

import (
	"strings"
	"sync"

	"github.com/standardbeagle/a3scan/internal/classlang"
)

// Node is a BFS result entry from HierarchyFrom: a class name, its
// parent (empty at the root), and its distance from the walk's root.
type Node struct {
	Name   string
	Parent string
	Depth  int
}

// Store is the Class Hierarchy Store. Bulk inserts are atomic relative
// to readers: a reader never observes a partially-applied batch.
type Store struct {
	mu sync.RWMutex

	byLowerName map[string]classlang.Record // keyed by strings.ToLower(name)
	childrenOf  map[string][]string         // lower(parent) -> ordered child names (original case)
	byFile      map[string][]string         // source file -> class names declared there
}

// New creates an empty Class Hierarchy Store.
func New() *Store {
	return &Store{
		byLowerName: make(map[string]classlang.Record),
		childrenOf:  make(map[string][]string),
		byFile:      make(map[string][]string),
	}
}

// BulkInsert installs every record in records as one atomic batch: no
// reader observes a partial update for the duration of this call.
func (s *Store) BulkInsert(records []classlang.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if rec.Name == "" {
			continue // synthetic loose-property holder, not a real class
		}
		key := strings.ToLower(rec.Name)
		s.byLowerName[key] = rec
		if rec.Parent != "" {
			parentKey := strings.ToLower(rec.Parent)
			s.childrenOf[parentKey] = append(s.childrenOf[parentKey], rec.Name)
		}
		if rec.SourceFile != "" {
			s.byFile[rec.SourceFile] = append(s.byFile[rec.SourceFile], rec.Name)
		}
	}
}

// Insert installs a single record; equivalent to BulkInsert with a
// one-element slice.
func (s *Store) Insert(rec classlang.Record) {
	s.BulkInsert([]classlang.Record{rec})
}

// Lookup finds a Class Record by case-insensitive name.
func (s *Store) Lookup(name string) (classlang.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byLowerName[strings.ToLower(name)]
	return rec, ok
}

// ChildrenOf returns the ordered set of direct children of name.
func (s *Store) ChildrenOf(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	children := s.childrenOf[strings.ToLower(name)]
	out := make([]string, len(children))
	copy(out, children)
	return out
}

// HierarchyFrom performs a breadth-first walk from name down through its
// descendants, bounded by maxDepth. Depth 0 is the root itself.
func (s *Store) HierarchyFrom(name string, maxDepth int) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root, ok := s.byLowerName[strings.ToLower(name)]
	if !ok {
		return nil
	}

	type queued struct {
		name, parent string
		depth        int
	}
	queue := []queued{{name: root.Name, parent: root.Parent, depth: 0}}
	var out []Node
	visited := map[string]bool{strings.ToLower(root.Name): true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, Node{Name: cur.name, Parent: cur.parent, Depth: cur.depth})

		if cur.depth >= maxDepth {
			continue
		}
		for _, child := range s.childrenOf[strings.ToLower(cur.name)] {
			lower := strings.ToLower(child)
			if visited[lower] {
				continue
			}
			visited[lower] = true
			queue = append(queue, queued{name: child, parent: cur.name, depth: cur.depth + 1})
		}
	}
	return out
}

// InheritsFrom reports whether name, or any ancestor reached by walking
// parent links, is a member of candidateSet. A class trivially inherits
// from itself. The walk is cycle-safe: it terminates at maxDepth or at a
// null parent link, whichever comes first.
func (s *Store) InheritsFrom(name string, candidateSet map[string]bool, maxDepth int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lowerCandidates := make(map[string]bool, len(candidateSet))
	for c := range candidateSet {
		lowerCandidates[strings.ToLower(c)] = true
	}

	cur := name
	for depth := 0; depth <= maxDepth && cur != ""; depth++ {
		lowerCur := strings.ToLower(cur)
		if lowerCandidates[lowerCur] {
			return true
		}
		rec, ok := s.byLowerName[lowerCur]
		if !ok {
			return false
		}
		cur = rec.Parent
	}
	return false
}

// FindOrphans returns every record whose direct parent is named in
// removedSet (§4.H supplementary).
func (s *Store) FindOrphans(removedSet map[string]bool) []classlang.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lowerRemoved := make(map[string]bool, len(removedSet))
	for r := range removedSet {
		lowerRemoved[strings.ToLower(r)] = true
	}

	var out []classlang.Record
	for _, rec := range s.byLowerName {
		if rec.Parent != "" && lowerRemoved[strings.ToLower(rec.Parent)] {
			out = append(out, rec)
		}
	}
	return out
}

// TransitiveDescendants returns every descendant of any root in roots,
// down to depth, sharing the same BFS implementation as HierarchyFrom.
func (s *Store) TransitiveDescendants(roots []string, depth int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, root := range roots {
		for _, node := range s.HierarchyFrom(root, depth) {
			if node.Depth == 0 {
				continue // the root itself is not its own descendant
			}
			lower := strings.ToLower(node.Name)
			if seen[lower] {
				continue
			}
			seen[lower] = true
			out = append(out, node.Name)
		}
	}
	return out
}

// Size returns the number of records currently stored.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byLowerName)
}

// AllNames returns every class name currently stored, in no particular
// order.
func (s *Store) AllNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byLowerName))
	for _, rec := range s.byLowerName {
		out = append(out, rec.Name)
	}
	return out
}

// NameAliases derives one extra searchable name per record from its
// `name` display property (quote-trimmed), the way the original
// validator's alternative-class-name pass widens the similarity search
// beyond declared class identifiers to in-game display names.
func (s *Store) NameAliases() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, rec := range s.byLowerName {
		for _, prop := range rec.Properties {
			if !strings.EqualFold(prop.Name, "name") {
				continue
			}
			alias := strings.Trim(prop.Value.Str, `"'`)
			if alias != "" {
				out = append(out, alias)
			}
			break
		}
	}
	return out
}
