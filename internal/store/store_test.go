package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/demonhq/demon/internal/task"
)

func rec(id string, kind task.Kind, upstream map[string]task.DependencyType) *task.Record {
	r := &task.Record{
		ID:         task.ID(id),
		Kind:       kind,
		Upstream:   map[task.ID]task.DependencyType{},
		Downstream: map[task.ID]task.DependencyType{},
	}
	for up, dt := range upstream {
		r.Upstream[task.ID(up)] = dt
	}
	return r
}

func TestInsert_MirrorsDownstreamEdge(t *testing.T) {
	require := require.New(t)
	s := New()

	require.NoError(s.Insert(rec("db", task.KindLong, nil)))
	require.NoError(s.Insert(rec("api", task.KindLong, map[string]task.DependencyType{"db": task.Strong})))

	down := s.DownstreamOf("db")
	require.Equal(task.Strong, down["api"])
}

func TestInsert_DuplicateRejected(t *testing.T) {
	require := require.New(t)
	s := New()
	require.NoError(s.Insert(rec("a", task.KindEmpty, nil)))

	err := s.Insert(rec("a", task.KindEmpty, nil))
	require.Error(err)
	serr, ok := err.(*Error)
	require.True(ok)
	require.Equal(KindConflict, serr.Kind)
}

func TestInsert_ToleratesDeadUpstreamLink(t *testing.T) {
	require := require.New(t)
	s := New()
	require.NoError(s.Insert(rec("api", task.KindLong, map[string]task.DependencyType{"db": task.Strong})))
	require.True(s.Has("api"))
	require.False(s.Has("db"))
}

func TestRemove_RequiresStopped(t *testing.T) {
	require := require.New(t)
	s := New()
	r := rec("svc", task.KindLong, nil)
	r.Long.ProcState = task.Started
	require.NoError(s.Insert(r))

	err := s.Remove("svc")
	require.Error(err)
	serr, ok := err.(*Error)
	require.True(ok)
	require.Equal(KindPrecondition, serr.Kind)
}

func TestRemove_PrunesDownstreamMirror(t *testing.T) {
	require := require.New(t)
	s := New()
	require.NoError(s.Insert(rec("db", task.KindLong, nil)))
	require.NoError(s.Insert(rec("api", task.KindLong, map[string]task.DependencyType{"db": task.Weak})))

	require.NoError(s.Remove("api"))
	require.Empty(s.DownstreamOf("db"))
}

func TestRemove_ExternalTaskIsAlwaysStoppedAndCanBeDeleted(t *testing.T) {
	require := require.New(t)
	s := New()
	require.NoError(s.Insert(rec("net", task.KindExternal, nil)))

	require.NoError(s.Remove("net"))
	require.False(s.Has("net"))
}

func TestValidateAcyclic_AcceptsChain(t *testing.T) {
	require := require.New(t)
	s := New()
	require.NoError(s.Insert(rec("a", task.KindEmpty, nil)))
	require.NoError(s.Insert(rec("b", task.KindEmpty, map[string]task.DependencyType{"a": task.Strong})))
	require.NoError(s.Insert(rec("c", task.KindEmpty, map[string]task.DependencyType{"b": task.Strong})))

	require.NoError(s.ValidateAcyclic())
}

func TestValidateAcyclic_RejectsDirectCycle(t *testing.T) {
	require := require.New(t)
	s := New()
	require.NoError(s.Insert(rec("a", task.KindEmpty, map[string]task.DependencyType{"b": task.Strong})))
	require.NoError(s.Insert(rec("b", task.KindEmpty, map[string]task.DependencyType{"a": task.Strong})))

	err := s.ValidateAcyclic()
	require.Error(err)
	_, ok := err.(*CycleError)
	require.True(ok)
}

func TestValidateAcyclic_RejectsSelfLoop(t *testing.T) {
	require := require.New(t)
	s := New()
	require.NoError(s.Insert(rec("a", task.KindEmpty, map[string]task.DependencyType{"a": task.Strong})))

	err := s.ValidateAcyclic()
	require.Error(err)
}

func TestValidateAcyclic_RejectsThreeNodeCycleWithNoLeaf(t *testing.T) {
	require := require.New(t)
	s := New()
	require.NoError(s.Insert(rec("a", task.KindEmpty, map[string]task.DependencyType{"c": task.Strong})))
	require.NoError(s.Insert(rec("b", task.KindEmpty, map[string]task.DependencyType{"a": task.Strong})))
	require.NoError(s.Insert(rec("c", task.KindEmpty, map[string]task.DependencyType{"b": task.Strong})))

	err := s.ValidateAcyclic()
	require.Error(err)
	cerr, ok := err.(*CycleError)
	require.True(ok)
	require.NotEmpty(cerr.Cycle)
}
