// Package task defines the data model for dependency-tracked, lifecycle
// managed units of work: identifiers, dependency edges, the per-kind
// sub-records, and the task record itself.
package task

import "time"

// ID names a task uniquely within a store.
type ID string

// DependencyType distinguishes an edge that forces its upstream on from one
// that only gates availability.
type DependencyType int

const (
	// Strong means: if I am on, my upstream must be on and started before I
	// start, and my upstream may not stop until I have stopped.
	Strong DependencyType = iota
	// Weak means: I may start once my upstream is started, but I never force
	// it on, and my stop is never gated on it.
	Weak
)

func (d DependencyType) String() string {
	if d == Strong {
		return "strong"
	}
	return "weak"
}

// Kind discriminates the four task shapes.
type Kind int

const (
	// KindEmpty is a pure synchronization node with no backing process.
	KindEmpty Kind = iota
	// KindLong is a process expected to run indefinitely.
	KindLong
	// KindShort is a process expected to run to a successful completion.
	KindShort
	// KindExternal is a placeholder for a dependency managed elsewhere; it
	// never starts or stops and is always treated as present.
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindLong:
		return "long"
	case KindShort:
		return "short"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ProcState is the lifecycle state of a process-backed task's driver.
type ProcState int

const (
	Stopped ProcState = iota
	Starting
	Started
	Stopping
)

func (s ProcState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Started:
		return "started"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// StartedAction controls what happens to a Short task after a successful run.
type StartedAction int

const (
	// ActionNone leaves the task Started; on_started_event fires normally.
	ActionNone StartedAction = iota
	// ActionTurnOff drives the task back through Stopping/Stopped and clears
	// direct_on, without removing its record.
	ActionTurnOff
	// ActionDelete behaves like ActionTurnOff but also removes the task's
	// record once it reaches Stopped — but only via the stop branch, never
	// the success-exit branch directly. See internal/driver for the exact
	// sequencing this preserves.
	ActionDelete
)

// ReadinessCheck describes how a Long task announces it is ready.
type ReadinessCheck int

const (
	// ReadyNone means: Started is published as soon as the child is spawned.
	ReadyNone ReadinessCheck = iota
	// ReadyTCPSocket polls a TCP connect until it succeeds.
	ReadyTCPSocket
	// ReadyPath polls for a filesystem path's existence.
	ReadyPath
)

// Timestamped pairs a boolean with the time it last changed.
type Timestamped struct {
	Value bool
	At    time.Time
}

// Set updates the value, stamping the current time only on an actual flip.
func (t *Timestamped) Set(v bool, now time.Time) {
	if t.Value == v {
		return
	}
	t.Value = v
	t.At = now
}

// EmptyState is the sub-record for KindEmpty tasks.
type EmptyState struct {
	Started Timestamped
}

// ProcessSpec is the static launch configuration shared by Long and Short
// tasks.
type ProcessSpec struct {
	Command         []string
	WorkingDir      string
	EnvClear        bool
	EnvKeep         map[string]bool
	EnvAdd          map[string]string
	StopTimeout     time.Duration
	RestartDelay    time.Duration
}

// LongState is the sub-record for KindLong tasks.
type LongState struct {
	Spec         ProcessSpec
	Readiness    ReadinessCheck
	ReadyTarget  string // host:port for ReadyTCPSocket, path for ReadyPath
	ProcState    ProcState
	ProcStateAt  time.Time
	PID          int
	FailureCount int
}

// ShortState is the sub-record for KindShort tasks.
type ShortState struct {
	Spec          ProcessSpec
	SuccessCodes  map[int]bool
	StartedAction StartedAction
	Schedule      []time.Duration // fixed-interval re-trigger rules
	ProcState     ProcState
	ProcStateAt   time.Time
	PID           int
	FailureCount  int
}

// ExternalState is the (empty) sub-record for KindExternal tasks.
type ExternalState struct{}

// Waiter is a one-shot notification registered by a control-surface caller.
type Waiter struct {
	// C receives exactly one WaitResult and is then never written again.
	C chan WaitResult
}

// WaitResult is delivered to a started/stopped waiter.
type WaitResult struct {
	// Ok is true if the awaited transition occurred, false if intent flipped
	// away from it first.
	Ok bool
	// Err is set if the task disappeared before either outcome.
	Err error
}

// Record is one task's complete state as held by the store.
type Record struct {
	ID   ID
	Kind Kind

	Empty    EmptyState
	Long     LongState
	Short    ShortState
	External ExternalState

	Upstream   map[ID]DependencyType
	Downstream map[ID]DependencyType

	DirectOn     Timestamped
	TransitiveOn Timestamped

	StartedWaiters []Waiter
	StoppedWaiters []Waiter
}

// Clone returns a deep-enough copy safe to mutate independently of the
// original's maps and slices.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Upstream = cloneDeps(r.Upstream)
	cp.Downstream = cloneDeps(r.Downstream)
	cp.StartedWaiters = append([]Waiter(nil), r.StartedWaiters...)
	cp.StoppedWaiters = append([]Waiter(nil), r.StoppedWaiters...)
	cp.Long.Spec.EnvKeep = cloneStrBool(r.Long.Spec.EnvKeep)
	cp.Long.Spec.EnvAdd = cloneStrStr(r.Long.Spec.EnvAdd)
	cp.Short.Spec.EnvKeep = cloneStrBool(r.Short.Spec.EnvKeep)
	cp.Short.Spec.EnvAdd = cloneStrStr(r.Short.Spec.EnvAdd)
	cp.Short.SuccessCodes = cloneIntBool(r.Short.SuccessCodes)
	return &cp
}

func cloneDeps(m map[ID]DependencyType) map[ID]DependencyType {
	if m == nil {
		return nil
	}
	out := make(map[ID]DependencyType, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStrBool(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStrStr(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneIntBool(m map[int]bool) map[int]bool {
	if m == nil {
		return nil
	}
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// IsOn reports whether the task is currently wanted on, directly or
// transitively.
func (r *Record) IsOn() bool {
	return r.DirectOn.Value || r.TransitiveOn.Value
}

// IsStarted reports whether the task's kind-specific state is Started. An
// External task is never started: it is permanently stopped and off, a
// placeholder for a dependency managed elsewhere. Treating it as a
// satisfied upstream is algebra.AllUpstreamStarted's job, not this
// predicate's — see its KindExternal case.
func (r *Record) IsStarted() bool {
	switch r.Kind {
	case KindEmpty:
		return r.Empty.Started.Value
	case KindLong:
		return r.Long.ProcState == Started
	case KindShort:
		return r.Short.ProcState == Started
	case KindExternal:
		return false
	default:
		return false
	}
}

// IsStopped reports whether the task's kind-specific state is Stopped. An
// External task is always stopped.
func (r *Record) IsStopped() bool {
	switch r.Kind {
	case KindEmpty:
		return !r.Empty.Started.Value
	case KindLong:
		return r.Long.ProcState == Stopped
	case KindShort:
		return r.Short.ProcState == Stopped
	case KindExternal:
		return true
	default:
		return true
	}
}
