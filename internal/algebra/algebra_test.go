package algebra

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/demonhq/demon/internal/store"
	"github.com/demonhq/demon/internal/task"
)

func newRecord(id string, kind task.Kind) *task.Record {
	return &task.Record{
		ID:         task.ID(id),
		Kind:       kind,
		Upstream:   map[task.ID]task.DependencyType{},
		Downstream: map[task.ID]task.DependencyType{},
	}
}

func TestAllUpstreamStarted_MissingUpstreamCountsAsNotStarted(t *testing.T) {
	require := require.New(t)
	s := store.New()
	api := newRecord("api", task.KindEmpty)
	api.Upstream["db"] = task.Strong
	require.NoError(s.Insert(api))

	require.False(AllUpstreamStarted(s, "api"))
}

func TestAllUpstreamStarted_TrueOnceEveryUpstreamStarted(t *testing.T) {
	require := require.New(t)
	s := store.New()
	db := newRecord("db", task.KindLong)
	db.Long.ProcState = task.Started
	require.NoError(s.Insert(db))

	api := newRecord("api", task.KindEmpty)
	api.Upstream["db"] = task.Weak
	require.NoError(s.Insert(api))

	require.True(AllUpstreamStarted(s, "api"))
}

func TestIsStarted_IsStopped_ExternalIsPermanentlyStoppedAndOff(t *testing.T) {
	require := require.New(t)
	net := newRecord("net", task.KindExternal)

	require.False(IsStarted(net))
	require.True(IsStopped(net))
}

func TestAllUpstreamStarted_ExternalAlwaysCountsStarted(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(newRecord("net", task.KindExternal)))

	api := newRecord("api", task.KindEmpty)
	api.Upstream["net"] = task.Strong
	require.NoError(s.Insert(api))

	require.True(AllUpstreamStarted(s, "api"))
}

func TestAllDownstreamStopped_WeakDownstreamDoesNotGate(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(newRecord("db", task.KindLong)))

	api := newRecord("api", task.KindLong)
	api.Long.ProcState = task.Started
	api.Upstream["db"] = task.Weak
	require.NoError(s.Insert(api))

	require.True(AllDownstreamStopped(s, "db"))
}

func TestAllDownstreamStopped_StrongDownstreamGates(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(newRecord("db", task.KindLong)))

	api := newRecord("api", task.KindLong)
	api.Long.ProcState = task.Started
	api.Upstream["db"] = task.Strong
	require.NoError(s.Insert(api))

	require.False(AllDownstreamStopped(s, "db"))
}

func TestHasStrongDownstreamOn_WitnessesTransitiveOn(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(newRecord("db", task.KindLong)))

	api := newRecord("api", task.KindEmpty)
	api.Upstream["db"] = task.Strong
	api.DirectOn.Value = true
	require.NoError(s.Insert(api))

	require.True(HasStrongDownstreamOn(s, "db"))
}

func TestHasStrongDownstreamOn_FalseWhenOnlyWeakDownstreamOn(t *testing.T) {
	require := require.New(t)
	s := store.New()
	require.NoError(s.Insert(newRecord("db", task.KindLong)))

	cache := newRecord("cache", task.KindEmpty)
	cache.Upstream["db"] = task.Weak
	cache.DirectOn.Value = true
	require.NoError(s.Insert(cache))

	require.False(HasStrongDownstreamOn(s, "db"))
}
