// Package planner computes and applies the state-transition cascades
// triggered by operator intent and by driver-reported process events. Every
// exported method acquires the engine's lock, mutates the store, and returns
// a Plan describing follow-on driver work the caller must dispatch once the
// lock is released. Planner methods never block and never call back into a
// driver directly.
package planner

import (
	"sync"
	"time"

	"github.com/demonhq/demon/internal/algebra"
	"github.com/demonhq/demon/internal/store"
	"github.com/demonhq/demon/internal/task"
)

// Engine owns the global lock guarding all task-store mutation.
type Engine struct {
	mu    sync.Mutex
	Store *store.Store
}

// New wraps an already-populated store (typically built by the manifest
// loader) in an Engine.
func New(s *store.Store) *Engine {
	return &Engine{Store: s}
}

// Lock exposes the engine's mutex for callers (notably the control surface)
// that need to perform a read of several records as of one consistent
// instant. Planner methods already lock internally; do not call them while
// already holding this lock from the outside.
func (e *Engine) Lock()   { e.mu.Lock() }
func (e *Engine) Unlock() { e.mu.Unlock() }

// SetDirectOn records that id is directly wanted on and cascades the
// resulting start, per §4.3: mark the strong-upstream closure transitively
// on, start it bottom-up, then propagate start to everything downstream that
// is now unblocked.
func (e *Engine) SetDirectOn(id task.ID) Plan {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()

	r := e.Store.Get(id)
	if r == nil {
		return Plan{}
	}
	// A record can arrive with DirectOn already set (BuildRecord applies
	// default_on), so only an already-started task short-circuits; the
	// cascade below is idempotent for anything already starting.
	if r.DirectOn.Value && algebra.IsStarted(r) {
		return Plan{}
	}
	r = r.Clone()
	r.DirectOn.Set(true, now)
	_ = e.Store.Put(r)

	var plan Plan

	order := e.strongUpstreamPreOrder(id)
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		if node != id {
			nr := e.Store.Get(node).Clone()
			nr.TransitiveOn.Set(true, now)
			_ = e.Store.Put(nr)
		}
		if e.attemptStart(node, now, &plan) && node != id {
			e.propagateStartDownstream(node, now, &plan)
		}
	}

	e.propagateStartDownstream(id, now, &plan)
	return plan
}

// SetDirectOff records that id is no longer directly wanted on. If something
// else still transitively wants it on, nothing further happens. Otherwise it
// clears any now-unwitnessed transitive_on among id's strong-upstream
// ancestors, opportunistically stops whatever of id's downstream closure can
// already stop, attempts to stop id itself, and on success propagates the
// stop upstream.
func (e *Engine) SetDirectOff(id task.ID) Plan {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()

	r := e.Store.Get(id)
	if r == nil {
		return Plan{}
	}
	r = r.Clone()
	r.DirectOn.Set(false, now)
	_ = e.Store.Put(r)

	var plan Plan

	if r.TransitiveOn.Value {
		return plan
	}

	e.propagateTransitiveOff(id, now)
	e.stopDownstreamClosure(id, now, &plan)
	e.attemptStop(id, now, &plan)
	if after := e.Store.Get(id); after != nil && algebra.IsStopped(after) {
		e.propagateStopUpstream(id, now, &plan)
		e.reapIfDeletable(id)
	}
	return plan
}

// attemptStart is plan_start_one_task: it requests a start for id if id
// wants to be on and its upstream preconditions already hold, and reports
// whether id is now started: Empty and External transition synchronously,
// while a Long or Short task reports true only if it was already Started.
func (e *Engine) attemptStart(id task.ID, now time.Time, plan *Plan) bool {
	r := e.Store.Get(id)
	if r == nil {
		return false
	}
	if !algebra.IsOn(r) {
		return false
	}

	switch r.Kind {
	case task.KindExternal:
		return true

	case task.KindEmpty:
		if r.Empty.Started.Value {
			return true
		}
		if !algebra.AllUpstreamStarted(e.Store, id) {
			return false
		}
		nr := r.Clone()
		nr.Empty.Started.Set(true, now)
		_ = e.Store.Put(nr)
		plan.LogStarted = append(plan.LogStarted, id)
		return true

	case task.KindLong:
		if r.Long.ProcState == task.Started {
			return true
		}
		if r.Long.ProcState != task.Stopped {
			return false
		}
		if !algebra.AllUpstreamStarted(e.Store, id) {
			return false
		}
		nr := r.Clone()
		nr.Long.ProcState = task.Starting
		nr.Long.ProcStateAt = now
		_ = e.Store.Put(nr)
		plan.Start = append(plan.Start, id)
		plan.LogStarting = append(plan.LogStarting, id)
		return false

	case task.KindShort:
		if r.Short.ProcState == task.Started {
			return true
		}
		if r.Short.ProcState != task.Stopped {
			return false
		}
		if !algebra.AllUpstreamStarted(e.Store, id) {
			return false
		}
		nr := r.Clone()
		nr.Short.ProcState = task.Starting
		nr.Short.ProcStateAt = now
		_ = e.Store.Put(nr)
		plan.Start = append(plan.Start, id)
		plan.LogStarting = append(plan.LogStarting, id)
		return false

	default:
		return false
	}
}

// attemptStop is plan_stop_one_task: it requests a stop for id and reports
// whether id is now stopped. A Short task already Started stops
// synchronously (the work is already done, no process to kill); every other
// process-backed case is dispatched to the driver asynchronously.
func (e *Engine) attemptStop(id task.ID, now time.Time, plan *Plan) bool {
	r := e.Store.Get(id)
	if r == nil {
		return true
	}

	switch r.Kind {
	case task.KindExternal:
		// Permanently stopped and off: never signaled, always already done.
		return true

	case task.KindEmpty:
		if !r.Empty.Started.Value {
			return true
		}
		nr := r.Clone()
		nr.Empty.Started.Set(false, now)
		_ = e.Store.Put(nr)
		plan.LogStopped = append(plan.LogStopped, id)
		return true

	case task.KindLong:
		if r.Long.ProcState == task.Stopped {
			return true
		}
		if !algebra.AllDownstreamStopped(e.Store, id) {
			return false
		}
		plan.Stop = append(plan.Stop, id)
		plan.LogStopping = append(plan.LogStopping, id)
		return false

	case task.KindShort:
		if !algebra.AllDownstreamStopped(e.Store, id) {
			return r.Short.ProcState == task.Stopped
		}
		switch r.Short.ProcState {
		case task.Stopped:
			return true
		case task.Started:
			// Already completed with no live process left to signal: the
			// stop finishes synchronously, with no driver round trip. Still
			// log the Stopping step so the observed sequence matches every
			// other stop (Starting -> Started -> Stopping -> Stopped).
			nr := r.Clone()
			nr.Short.ProcState = task.Stopped
			nr.Short.ProcStateAt = now
			nr.Short.PID = 0
			releaseStopped(nr, true, nil)
			nr.StoppedWaiters = nil
			_ = e.Store.Put(nr)
			plan.LogStopping = append(plan.LogStopping, id)
			plan.LogStopped = append(plan.LogStopped, id)
			return true
		default:
			plan.Stop = append(plan.Stop, id)
			plan.LogStopping = append(plan.LogStopping, id)
			return false
		}

	default:
		return true
	}
}

// strongUpstreamPreOrder returns id and every ancestor reachable by
// following only Strong upstream edges, in pre-visit (root-first,
// depth-first) order, using an explicit stack so traversal depth is bounded
// by heap size rather than call-stack size.
func (e *Engine) strongUpstreamPreOrder(id task.ID) []task.ID {
	visited := map[task.ID]bool{id: true}
	order := []task.ID{id}
	stack := []task.ID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r := e.Store.Get(n)
		if r == nil {
			continue
		}
		for upID, dt := range r.Upstream {
			if dt != task.Strong || visited[upID] {
				continue
			}
			visited[upID] = true
			order = append(order, upID)
			stack = append(stack, upID)
		}
	}
	return order
}

// propagateStartDownstream walks id's full downstream closure (both edge
// types), attempting a start on each reachable task and continuing descent
// only through tasks that became started, so a blocked branch does not waste
// work probing further downstream of it.
func (e *Engine) propagateStartDownstream(id task.ID, now time.Time, plan *Plan) {
	visited := map[task.ID]bool{id: true}
	stack := []task.ID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r := e.Store.Get(n)
		if r == nil {
			continue
		}
		for downID := range r.Downstream {
			if visited[downID] {
				continue
			}
			visited[downID] = true
			if e.attemptStart(downID, now, plan) {
				stack = append(stack, downID)
			}
		}
	}
}

// propagateStopUpstream walks id's full upstream closure (both edge types),
// attempting a stop on each ancestor that itself wants to be off, continuing
// ascent only through ancestors that became stopped.
func (e *Engine) propagateStopUpstream(id task.ID, now time.Time, plan *Plan) {
	visited := map[task.ID]bool{id: true}
	stack := []task.ID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r := e.Store.Get(n)
		if r == nil {
			continue
		}
		for upID := range r.Upstream {
			if visited[upID] {
				continue
			}
			visited[upID] = true
			up := e.Store.Get(upID)
			if up == nil || algebra.IsOn(up) {
				continue
			}
			if e.attemptStop(upID, now, plan) {
				stack = append(stack, upID)
			}
		}
	}
}

// propagateTransitiveOff climbs id's strong-upstream ancestors, clearing
// transitive_on on any ancestor no longer witnessed by a still-on strong
// downstream, continuing the climb only through ancestors actually cleared.
func (e *Engine) propagateTransitiveOff(id task.ID, now time.Time) {
	visited := map[task.ID]bool{id: true}
	stack := []task.ID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r := e.Store.Get(n)
		if r == nil {
			continue
		}
		for upID, dt := range r.Upstream {
			if dt != task.Strong || visited[upID] {
				continue
			}
			visited[upID] = true
			up := e.Store.Get(upID)
			if up == nil || up.DirectOn.Value {
				continue
			}
			if algebra.HasStrongDownstreamOn(e.Store, upID) {
				continue
			}
			nr := up.Clone()
			nr.TransitiveOn.Set(false, now)
			_ = e.Store.Put(nr)
			stack = append(stack, upID)
		}
	}
}

// stopDownstreamClosure walks id's full downstream closure bottom-up
// (deepest dependents first), attempting to stop every task that does not
// itself want to be on, and pruning any subtree rooted at a task that does —
// that branch cannot be touched and is left for its own future SetDirectOff.
func (e *Engine) stopDownstreamClosure(id task.ID, now time.Time, plan *Plan) {
	order := e.downstreamPreOrderPruned(id)
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if n == id {
			continue
		}
		e.attemptStop(n, now, plan)
	}
}

func (e *Engine) downstreamPreOrderPruned(id task.ID) []task.ID {
	visited := map[task.ID]bool{id: true}
	order := []task.ID{id}
	stack := []task.ID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r := e.Store.Get(n)
		if r == nil {
			continue
		}
		for downID := range r.Downstream {
			if visited[downID] {
				continue
			}
			visited[downID] = true
			down := e.Store.Get(downID)
			if down != nil && algebra.IsOn(down) {
				continue // prune: still wanted on, leave it alone
			}
			order = append(order, downID)
			stack = append(stack, downID)
		}
	}
	return order
}
