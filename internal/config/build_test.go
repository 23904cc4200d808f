package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/demonhq/demon/internal/ipc"
	"github.com/demonhq/demon/internal/task"
)

func TestTaskManifest_ToSpec_TranslatesUpstreamEdges(t *testing.T) {
	require := require.New(t)
	m := TaskManifest{
		ID:   "api",
		Kind: "long",
		Upstream: &UpstreamBlock{
			Strong: []string{"db"},
			Weak:   []string{"cache"},
		},
		Env: &EnvBlock{
			Clear: true,
			Keep:  []string{"PATH"},
			Add:   map[string]string{"FOO": "bar"},
		},
	}
	spec := m.ToSpec()
	require.Equal("strong", spec.Upstream["db"])
	require.Equal("weak", spec.Upstream["cache"])
	require.True(spec.EnvClear)
	require.True(spec.EnvKeep["PATH"])
	require.Equal("bar", spec.EnvAdd["FOO"])
}

func TestBuildRecord_LongTask(t *testing.T) {
	require := require.New(t)
	spec := ipc.TaskSpec{
		Kind:        "long",
		Command:     []string{"server"},
		Readiness:   "path",
		ReadyTarget: "/tmp/ready",
		Upstream:    map[string]string{"db": "strong"},
		DefaultOn:   true,
	}
	r, err := BuildRecord("api", spec)
	require.NoError(err)
	require.Equal(task.KindLong, r.Kind)
	require.Equal(task.ReadyPath, r.Long.Readiness)
	require.Equal("/tmp/ready", r.Long.ReadyTarget)
	require.Equal(task.Strong, r.Upstream["db"])
	require.True(r.DirectOn.Value)
}

func TestBuildRecord_ShortTask_DefaultsSuccessCodeZero(t *testing.T) {
	require := require.New(t)
	spec := ipc.TaskSpec{Kind: "short"}
	r, err := BuildRecord("migrate", spec)
	require.NoError(err)
	require.Equal(task.KindShort, r.Kind)
	require.True(r.Short.SuccessCodes[0])
	require.Equal(task.ActionNone, r.Short.StartedAction)
}

func TestBuildRecord_ShortTask_RejectsInvalidStartedAction(t *testing.T) {
	require := require.New(t)
	spec := ipc.TaskSpec{Kind: "short", StartedAction: "explode"}
	_, err := BuildRecord("migrate", spec)
	require.Error(err)
}

func TestBuildRecord_RejectsInvalidUpstreamDependencyType(t *testing.T) {
	require := require.New(t)
	spec := ipc.TaskSpec{Kind: "empty", Upstream: map[string]string{"db": "sideways"}}
	_, err := BuildRecord("x", spec)
	require.Error(err)
}

func TestBuildRecord_RejectsInvalidKind(t *testing.T) {
	require := require.New(t)
	_, err := BuildRecord("x", ipc.TaskSpec{Kind: "bogus"})
	require.Error(err)
}
