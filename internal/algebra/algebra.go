// Package algebra implements the pure, read-only predicates the planner uses
// to decide whether a task may start or stop. Every function here is a
// function of a store snapshot only: no mutation, no I/O, no locking.
package algebra

import (
	"github.com/demonhq/demon/internal/store"
	"github.com/demonhq/demon/internal/task"
)

// IsOn reports whether r wants to be on, directly or transitively.
func IsOn(r *task.Record) bool { return r.IsOn() }

// IsStarted reports whether r's kind-specific state is Started (or, for
// KindExternal, always false — it is permanently stopped and off).
func IsStarted(r *task.Record) bool { return r.IsStarted() }

// IsStopped reports whether r's kind-specific state is Stopped (or, for
// KindExternal, always true).
func IsStopped(r *task.Record) bool { return r.IsStopped() }

// AllUpstreamStarted reports whether every upstream of id — strong or weak —
// exists and is started. A missing upstream counts as not started. A
// KindExternal upstream is always treated as satisfied: it is a placeholder
// for a dependency managed elsewhere, always present and available even
// though IsStarted(External) is itself false.
func AllUpstreamStarted(s *store.Store, id task.ID) bool {
	r := s.Get(id)
	if r == nil {
		return false
	}
	for upID := range r.Upstream {
		up := s.Get(upID)
		if up == nil {
			return false
		}
		if up.Kind == task.KindExternal {
			continue
		}
		if !IsStarted(up) {
			return false
		}
	}
	return true
}

// AllDownstreamStopped reports whether every downstream task that reaches id
// via a Strong edge is stopped. Only Strong edges gate a stop — a Weak
// downstream never blocks its upstream from stopping. A downstream that has
// already been removed counts as stopped.
func AllDownstreamStopped(s *store.Store, id task.ID) bool {
	r := s.Get(id)
	if r == nil {
		return true
	}
	for downID, dt := range r.Downstream {
		if dt != task.Strong {
			continue
		}
		down := s.Get(downID)
		if down == nil {
			continue
		}
		if !IsStopped(down) {
			return false
		}
	}
	return true
}

// HasStrongDownstreamOn reports whether any direct downstream of id reaches
// id via a Strong edge and is itself on. This is the witness condition for
// id's TransitiveOn flag.
func HasStrongDownstreamOn(s *store.Store, id task.ID) bool {
	r := s.Get(id)
	if r == nil {
		return false
	}
	for downID, dt := range r.Downstream {
		if dt != task.Strong {
			continue
		}
		down := s.Get(downID)
		if down != nil && IsOn(down) {
			return true
		}
	}
	return false
}
