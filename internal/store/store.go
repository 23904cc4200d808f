// Package store holds the in-memory task graph: a keyed map of task records
// plus the mirrored downstream index, backed by an immutable radix tree so
// read-only introspection never blocks or races a mutation in progress.
//
// Callers are expected to serialize all mutating calls behind a single lock
// (see internal/planner); Store itself does not lock — it is a data
// structure, not a synchronization primitive.
package store

import (
	"sync/atomic"

	iradix "github.com/hashicorp/go-immutable-radix/v2"

	"github.com/demonhq/demon/internal/task"
)

// Store owns the current snapshot of all task records. The tree itself is
// immutable — every mutation swaps in a new root — but the pointer to the
// current root is still a plain word shared between the planner's writes
// (under Engine.mu) and reads from callers that do not hold that lock (a
// driver's PublishExited reading before it takes the lock, an IPC handler's
// read-only status lookup). atomic.Pointer makes that pointer swap itself
// race-free without requiring every reader to take the planner's lock.
type Store struct {
	tree atomic.Pointer[iradix.Tree[*task.Record]]
}

// New returns an empty store.
func New() *Store {
	s := &Store{}
	s.tree.Store(iradix.New[*task.Record]())
	return s
}

func key(id task.ID) []byte { return []byte(id) }

// Get returns the record for id, or nil if absent. The returned pointer must
// be treated as read-only by callers outside the store/planner boundary;
// mutation happens via Put with a cloned, modified record.
func (s *Store) Get(id task.ID) *task.Record {
	v, ok := s.tree.Load().Get(key(id))
	if !ok {
		return nil
	}
	return v
}

// Has reports whether id is present.
func (s *Store) Has(id task.ID) bool {
	_, ok := s.tree.Load().Get(key(id))
	return ok
}

// Insert adds a brand-new record, failing if id already exists. Every
// upstream edge is mirrored into the corresponding upstream task's
// Downstream map, and every already-present record that names r as an
// upstream is mirrored into r's own Downstream map.
func (s *Store) Insert(r *task.Record) error {
	if s.Has(r.ID) {
		return conflictf("task %q already exists", r.ID)
	}
	s.Iter(func(other *task.Record) bool {
		if dt, ok := other.Upstream[r.ID]; ok {
			if r.Downstream == nil {
				r.Downstream = map[task.ID]task.DependencyType{}
			}
			r.Downstream[other.ID] = dt
		}
		return true
	})
	tree := s.tree.Load()
	for upID, dt := range r.Upstream {
		up := mustGet(tree, upID)
		if up == nil {
			continue // dead link tolerated until the upstream is later added
		}
		up = up.Clone()
		if up.Downstream == nil {
			up.Downstream = map[task.ID]task.DependencyType{}
		}
		up.Downstream[r.ID] = dt
		tree, _ = tree.Insert(key(upID), up)
	}
	tree, _ = tree.Insert(key(r.ID), r)
	s.tree.Store(tree)
	return nil
}

func mustGet(tree *iradix.Tree[*task.Record], id task.ID) *task.Record {
	v, ok := tree.Get(key(id))
	if !ok {
		return nil
	}
	return v
}

// Put replaces an existing record in place (used by the planner to publish a
// mutated clone). It fails if id is absent.
func (s *Store) Put(r *task.Record) error {
	if !s.Has(r.ID) {
		return notFoundf("task %q not found", r.ID)
	}
	tree, _ := s.tree.Load().Insert(key(r.ID), r)
	s.tree.Store(tree)
	return nil
}

// Remove deletes id, pruning the mirror entries from every upstream's
// Downstream map. It fails if the task is not stopped.
func (s *Store) Remove(id task.ID) error {
	r := s.Get(id)
	if r == nil {
		return notFoundf("task %q not found", id)
	}
	if !r.IsStopped() {
		return preconditionf("task %q is not stopped", id)
	}
	tree := s.tree.Load()
	for upID := range r.Upstream {
		up := mustGet(tree, upID)
		if up == nil {
			continue
		}
		up = up.Clone()
		delete(up.Downstream, id)
		tree, _ = tree.Insert(key(upID), up)
	}
	tree, _, _ = tree.Delete(key(id))
	s.tree.Store(tree)
	return nil
}

// Iter calls fn for every record in lexical id order, stopping early if fn
// returns false.
func (s *Store) Iter(fn func(*task.Record) bool) {
	it := s.tree.Load().Root().Iterator()
	for {
		_, v, ok := it.Next()
		if !ok {
			return
		}
		if !fn(v) {
			return
		}
	}
}

// DownstreamOf returns the ids and edge types of id's direct downstream
// tasks.
func (s *Store) DownstreamOf(id task.ID) map[task.ID]task.DependencyType {
	r := s.Get(id)
	if r == nil {
		return nil
	}
	return r.Downstream
}

// ValidateAcyclic walks the graph from every leaf (a task with no
// downstream) upstream, reporting the first cycle found as a CycleError. It
// memoizes ids already proven cycle-free to keep the walk linear in edge
// count, mirroring a depth-first search from sinks toward sources.
func (s *Store) ValidateAcyclic() error {
	cycleFree := map[task.ID]bool{}
	var leaves []task.ID
	s.Iter(func(r *task.Record) bool {
		if len(r.Downstream) == 0 {
			leaves = append(leaves, r.ID)
		}
		return true
	})
	for _, leaf := range leaves {
		if err := s.walkUpstream(leaf, nil, map[task.ID]int{}, cycleFree); err != nil {
			return err
		}
	}
	// Graphs with no leaves (every task has a downstream, i.e. a pure cycle
	// with no sink) still need coverage: walk from every remaining
	// not-yet-proven task.
	var remaining []task.ID
	s.Iter(func(r *task.Record) bool {
		if !cycleFree[r.ID] {
			remaining = append(remaining, r.ID)
		}
		return true
	})
	for _, id := range remaining {
		if cycleFree[id] {
			continue
		}
		if err := s.walkUpstream(id, nil, map[task.ID]int{}, cycleFree); err != nil {
			return err
		}
	}
	return nil
}

// path-state colors: 0 unvisited (absent), 1 on current path, 2 done
func (s *Store) walkUpstream(id task.ID, path []task.ID, color map[task.ID]int, cycleFree map[task.ID]bool) error {
	if cycleFree[id] {
		return nil
	}
	switch color[id] {
	case 1:
		// found a repeat on the current path: report the suffix starting at
		// the first occurrence of id.
		start := 0
		for i, p := range path {
			if p == id {
				start = i
				break
			}
		}
		cyc := append(append([]string(nil), idsToStrings(path[start:])...), string(id))
		return &CycleError{Cycle: cyc}
	case 2:
		return nil
	}
	color[id] = 1
	r := s.Get(id)
	if r != nil {
		for upID := range r.Upstream {
			if err := s.walkUpstream(upID, append(path, id), color, cycleFree); err != nil {
				return err
			}
		}
	}
	color[id] = 2
	cycleFree[id] = true
	return nil
}

func idsToStrings(ids []task.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
