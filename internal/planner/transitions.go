package planner

import (
	"fmt"
	"time"

	"github.com/demonhq/demon/internal/algebra"
	"github.com/demonhq/demon/internal/task"
)

// Driver-facing transition publishers. Each acquires the lock once and
// performs its state mutation and its follow-on propagation in the same
// critical section, so a concurrent stimulus can never observe the
// transition without its cascade (or vice versa). Drivers call these instead
// of writing to the store directly.

// PublishStarted marks a Long or Short task Started, releases any started
// waiters, and propagates the start downstream.
func (e *Engine) PublishStarted(id task.ID, pid int) Plan {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	var plan Plan

	r := e.Store.Get(id)
	if r == nil {
		return plan
	}
	nr := r.Clone()
	switch nr.Kind {
	case task.KindLong:
		nr.Long.ProcState = task.Started
		nr.Long.ProcStateAt = now
		nr.Long.PID = pid
		nr.Long.FailureCount = 0
	case task.KindShort:
		nr.Short.ProcState = task.Started
		nr.Short.ProcStateAt = now
		nr.Short.PID = pid
	}
	releaseStarted(nr, true, nil)
	nr.StartedWaiters = nil
	_ = e.Store.Put(nr)
	plan.LogStarted = append(plan.LogStarted, id)

	e.propagateStartDownstream(id, now, &plan)
	return plan
}

// PublishStopping marks a task Stopping. It performs no propagation of its
// own; it exists so the transition is independently observable, in
// particular so a restart cycle's Stopping immediately followed by Starting
// (see PublishRestartCycle) is visible as two adjacent events rather than
// collapsed into one.
func (e *Engine) PublishStopping(id task.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	r := e.Store.Get(id)
	if r == nil {
		return
	}
	nr := r.Clone()
	switch nr.Kind {
	case task.KindLong:
		nr.Long.ProcState = task.Stopping
		nr.Long.ProcStateAt = now
	case task.KindShort:
		nr.Short.ProcState = task.Stopping
		nr.Short.ProcStateAt = now
	}
	_ = e.Store.Put(nr)
}

// PublishRestartCycle records a non-success exit: it republishes Stopping
// then immediately Starting within one lock region, increments the
// task's failure counter, and returns without further propagation — the
// driver is responsible for sleeping its restart delay and respawning, at
// which point it will call PublishStarted again.
func (e *Engine) PublishRestartCycle(id task.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	r := e.Store.Get(id)
	if r == nil {
		return
	}
	nr := r.Clone()
	switch nr.Kind {
	case task.KindLong:
		nr.Long.ProcState = task.Stopping
		nr.Long.ProcStateAt = now
		_ = e.Store.Put(nr)
		nr = e.Store.Get(id).Clone()
		nr.Long.ProcState = task.Starting
		nr.Long.ProcStateAt = now
		nr.Long.FailureCount++
	case task.KindShort:
		nr.Short.ProcState = task.Stopping
		nr.Short.ProcStateAt = now
		_ = e.Store.Put(nr)
		nr = e.Store.Get(id).Clone()
		nr.Short.ProcState = task.Starting
		nr.Short.ProcStateAt = now
		nr.Short.FailureCount++
	}
	_ = e.Store.Put(nr)
}

// PublishStopped marks a task Stopped, releases stopped waiters (or, if
// intent flipped back on while it was mid-stop, resumes a start instead of
// releasing them as stopped), propagates the stop upstream, and finally — now
// that the upstream cascade has had a chance to run off the still-intact
// edges — reaps the record if it is a Short task with started_action =
// delete. Reaping happens last (here and, for a stop that completes
// synchronously, in SetDirectOff), so a Short+ActionDelete task's own stop
// still propagates to its ancestors before it disappears.
func (e *Engine) PublishStopped(id task.ID) Plan {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	var plan Plan

	r := e.Store.Get(id)
	if r == nil {
		return plan
	}
	nr := r.Clone()
	switch nr.Kind {
	case task.KindLong:
		nr.Long.ProcState = task.Stopped
		nr.Long.ProcStateAt = now
		nr.Long.PID = 0
	case task.KindShort:
		nr.Short.ProcState = task.Stopped
		nr.Short.ProcStateAt = now
		nr.Short.PID = 0
	}
	plan.LogStopped = append(plan.LogStopped, id)

	if algebra.IsOn(nr) {
		releaseStopped(nr, false, nil)
		nr.StoppedWaiters = nil
		_ = e.Store.Put(nr)
		order := e.strongUpstreamPreOrder(id)
		for i := len(order) - 1; i >= 0; i-- {
			e.attemptStart(order[i], now, &plan)
		}
		e.propagateStartDownstream(id, now, &plan)
		return plan
	}

	releaseStopped(nr, true, nil)
	nr.StoppedWaiters = nil
	_ = e.Store.Put(nr)

	e.propagateStopUpstream(id, now, &plan)
	e.reapIfDeletable(id)
	return plan
}

// reapIfDeletable removes id's record, after releasing any started waiters
// with an error, if it is a Stopped Short task with started_action = delete.
// Called only once a stop has already fully propagated to id's ancestors —
// deleting first would erase the very edges that propagation walks.
func (e *Engine) reapIfDeletable(id task.ID) {
	r := e.Store.Get(id)
	if r == nil || r.Kind != task.KindShort {
		return
	}
	if r.Short.StartedAction != task.ActionDelete || r.Short.ProcState != task.Stopped {
		return
	}
	nr := r.Clone()
	releaseStarted(nr, false, fmt.Errorf("task %q was deleted", id))
	nr.StartedWaiters = nil
	_ = e.Store.Put(nr)
	_ = e.Store.Remove(id)
}

// PublishExited is the entry point a Short driver calls when its process
// exits. On a success code it behaves like PublishStarted and reports
// shouldTurnOff = true when started_action is turn_off or delete; the turn-off
// itself (and, for ActionDelete, the deletion once the stop completes) is left
// to the caller's subsequent SetDirectOff. On a non-success code it behaves
// like PublishRestartCycle.
func (e *Engine) PublishExited(id task.ID, code int) (plan Plan, shouldTurnOff bool) {
	r := e.Store.Get(id)
	if r == nil || r.Kind != task.KindShort {
		return Plan{}, false
	}
	success := r.Short.SuccessCodes[code]
	if !success {
		e.PublishRestartCycle(id)
		return Plan{}, false
	}
	plan = e.PublishStarted(id, 0)
	switch r.Short.StartedAction {
	case task.ActionTurnOff, task.ActionDelete:
		return plan, true
	default:
		return plan, false
	}
}

func releaseStarted(r *task.Record, ok bool, err error) {
	for _, w := range r.StartedWaiters {
		select {
		case w.C <- task.WaitResult{Ok: ok, Err: err}:
		default:
		}
	}
}

func releaseStopped(r *task.Record, ok bool, err error) {
	for _, w := range r.StoppedWaiters {
		select {
		case w.C <- task.WaitResult{Ok: ok, Err: err}:
		default:
		}
	}
}
