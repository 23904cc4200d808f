package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/demonhq/demon/internal/store"
	"github.com/demonhq/demon/internal/task"
)

func emptyRec(id string, upstream map[string]task.DependencyType) *task.Record {
	r := &task.Record{
		ID:         task.ID(id),
		Kind:       task.KindEmpty,
		Upstream:   map[task.ID]task.DependencyType{},
		Downstream: map[task.ID]task.DependencyType{},
	}
	for up, dt := range upstream {
		r.Upstream[task.ID(up)] = dt
	}
	return r
}

func longRec(id string, upstream map[string]task.DependencyType) *task.Record {
	r := &task.Record{
		ID:         task.ID(id),
		Kind:       task.KindLong,
		Upstream:   map[task.ID]task.DependencyType{},
		Downstream: map[task.ID]task.DependencyType{},
	}
	for up, dt := range upstream {
		r.Upstream[task.ID(up)] = dt
	}
	return r
}

func TestSetDirectOn_LinearChain_StrongUpstreamStartsFirst(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(longRec("db", nil)))
	require.NoError(s.Insert(longRec("api", map[string]task.DependencyType{"db": task.Strong})))

	e := New(s)
	plan := e.SetDirectOn("api")

	// db must be started before api can even be attempted: only db appears in
	// this first plan's Start list, since api's upstream isn't started yet.
	require.Contains(plan.Start, task.ID("db"))
	require.NotContains(plan.Start, task.ID("api"))
	require.True(s.Get("db").TransitiveOn.Value)
	require.True(s.Get("api").DirectOn.Value)

	// Once the driver reports db started, api becomes startable.
	plan2 := e.PublishStarted("db", 1234)
	require.Contains(plan2.Start, task.ID("api"))
}

func TestSetDirectOn_WeakUpstream_DoesNotForceUpstreamOn(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(longRec("db", nil)))
	require.NoError(s.Insert(longRec("cache", map[string]task.DependencyType{"db": task.Weak})))

	e := New(s)
	plan := e.SetDirectOn("cache")

	require.Empty(plan.Start)
	require.False(s.Get("db").IsOn())
	require.Equal(task.Stopped, s.Get("cache").Long.ProcState)
}

func TestSetDirectOff_StopsDownstreamFirst(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(longRec("db", nil)))
	require.NoError(s.Insert(longRec("api", map[string]task.DependencyType{"db": task.Strong})))

	e := New(s)
	e.SetDirectOn("api")
	e.PublishStarted("db", 1)
	e.PublishStarted("api", 2)
	require.Equal(task.Started, s.Get("db").Long.ProcState)
	require.Equal(task.Started, s.Get("api").Long.ProcState)

	plan := e.SetDirectOff("api")
	// api must begin stopping; db may not yet, since api (strong downstream)
	// hasn't finished stopping.
	require.Contains(plan.Stop, task.ID("api"))
	require.NotContains(plan.Stop, task.ID("db"))

	e.PublishStopping("api")
	stopPlan := e.PublishStopped("api")
	require.Contains(stopPlan.Stop, task.ID("db"))
}

func TestSetDirectOff_WeakDownstreamNeverBlocksUpstreamStop(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(longRec("db", nil)))
	consumer := longRec("consumer", map[string]task.DependencyType{"db": task.Weak})
	consumer.DirectOn.Value = true
	consumer.Long.ProcState = task.Started
	require.NoError(s.Insert(consumer))

	e := New(s)
	e.SetDirectOn("db")
	e.PublishStarted("db", 1)
	require.Equal(task.Started, s.Get("db").Long.ProcState)

	// consumer is only weakly downstream and still wants to be on: that must
	// not block db's stop (a Weak edge never gates a stop, only a Start/
	// Availability relationship).
	plan := e.SetDirectOff("db")
	require.Contains(plan.Stop, task.ID("db"))
	require.Equal(task.Started, s.Get("consumer").Long.ProcState)
}

func TestSetDirectOff_PartialStop_BlockedByStrongDependentStillOn(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(longRec("db", nil)))
	consumer := longRec("consumer", map[string]task.DependencyType{"db": task.Strong})
	consumer.DirectOn.Value = true
	consumer.Long.ProcState = task.Started
	require.NoError(s.Insert(consumer))

	e := New(s)
	e.SetDirectOn("db")
	e.PublishStarted("db", 1)
	require.Equal(task.Started, s.Get("db").Long.ProcState)

	// consumer is strongly downstream and still wants to be on: db cannot
	// stop until consumer does, so the stop is left partial here, to be
	// resumed once consumer eventually stops on its own.
	plan := e.SetDirectOff("db")
	require.Empty(plan.Stop)
	require.Equal(task.Started, s.Get("db").Long.ProcState)

	// consumer later turns off and stops; its own PublishStopped resumes the
	// upstream stop that was left pending.
	offPlan := e.SetDirectOff("consumer")
	require.Contains(offPlan.Stop, task.ID("consumer"))
	e.PublishStopping("consumer")
	resumePlan := e.PublishStopped("consumer")
	require.Contains(resumePlan.Stop, task.ID("db"))
}

func TestPublishRestartCycle_IncrementsFailureCount(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(longRec("worker", nil)))
	e := New(s)
	e.SetDirectOn("worker")
	e.PublishStarted("worker", 1)

	e.PublishRestartCycle("worker")
	require.Equal(1, s.Get("worker").Long.FailureCount)
	require.Equal(task.Starting, s.Get("worker").Long.ProcState)

	e.PublishRestartCycle("worker")
	require.Equal(2, s.Get("worker").Long.FailureCount)
}

func shortRec(id string, successCodes map[int]bool, action task.StartedAction) *task.Record {
	return &task.Record{
		ID:         task.ID(id),
		Kind:       task.KindShort,
		Upstream:   map[task.ID]task.DependencyType{},
		Downstream: map[task.ID]task.DependencyType{},
		Short: task.ShortState{
			SuccessCodes:  successCodes,
			StartedAction: action,
		},
	}
}

func TestPublishExited_SuccessWithTurnOff(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(shortRec("migrate", map[int]bool{0: true}, task.ActionTurnOff)))
	e := New(s)
	e.SetDirectOn("migrate")

	plan, turnOff := e.PublishExited("migrate", 0)
	require.True(turnOff)
	require.Contains(plan.LogStarted, task.ID("migrate"))
	require.True(s.Has("migrate"))
}

func TestPublishExited_FailureRunsRestartCycle(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(shortRec("migrate", map[int]bool{0: true}, task.ActionNone)))
	e := New(s)
	e.SetDirectOn("migrate")

	_, turnOff := e.PublishExited("migrate", 1)
	require.False(turnOff)
	require.Equal(1, s.Get("migrate").Short.FailureCount)
	require.Equal(task.Starting, s.Get("migrate").Short.ProcState)
}

func TestSetDirectOff_ShortAlreadyStartedLogsStoppingThenStopped(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(shortRec("migrate", map[int]bool{0: true}, task.ActionTurnOff)))
	e := New(s)
	e.SetDirectOn("migrate")

	// Success exit with started_action = turn_off leaves the task Started,
	// direct_on still true, awaiting the turn-off.
	plan, turnOff := e.PublishExited("migrate", 0)
	require.True(turnOff)
	require.Contains(plan.LogStarted, task.ID("migrate"))

	// The completing SetDirectOff call must observe the full
	// Stopping-then-Stopped sequence even though the stop finishes
	// synchronously with no driver round trip.
	offPlan := e.SetDirectOff("migrate")
	require.Contains(offPlan.LogStopping, task.ID("migrate"))
	require.Contains(offPlan.LogStopped, task.ID("migrate"))
	require.Equal(task.Stopped, s.Get("migrate").Short.ProcState)
}

func TestSetDirectOff_DeleteActionRemovesRecordOnlyInStopBranch(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(shortRec("once", map[int]bool{0: true}, task.ActionDelete)))
	e := New(s)
	e.SetDirectOn("once")

	// Success exit alone must not delete the record — only a subsequent stop
	// completion does.
	_, turnOff := e.PublishExited("once", 0)
	require.True(turnOff)
	require.True(s.Has("once"))

	// Mirrors driver.Manager's real call sequence for turn_off/delete after a
	// successful exit: direct_on must already be false before the stop
	// completes, or it would be misrouted into the resume-a-start branch.
	e.SetDirectOff("once")
	require.False(s.Has("once"))
}
