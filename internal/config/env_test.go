package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseEnvironment_NilBlockInheritsProcessEnv(t *testing.T) {
	require := require.New(t)
	require.NoError(os.Setenv("DEMON_TEST_MARKER", "present"))
	defer os.Unsetenv("DEMON_TEST_MARKER")

	out := BaseEnvironment(nil)
	require.Contains(out, "DEMON_TEST_MARKER=present")
}

func TestBaseEnvironment_ClearKeepsOnlyListedKeys(t *testing.T) {
	require := require.New(t)
	require.NoError(os.Setenv("DEMON_TEST_KEEP", "yes"))
	require.NoError(os.Setenv("DEMON_TEST_DROP", "no"))
	defer os.Unsetenv("DEMON_TEST_KEEP")
	defer os.Unsetenv("DEMON_TEST_DROP")

	out := BaseEnvironment(&EnvBlock{Clear: true, Keep: []string{"DEMON_TEST_KEEP"}})
	require.Contains(out, "DEMON_TEST_KEEP=yes")
	require.NotContains(out, "DEMON_TEST_DROP=no")
}

func TestBaseEnvironment_AddOverridesInheritedValue(t *testing.T) {
	require := require.New(t)
	require.NoError(os.Setenv("DEMON_TEST_OVERRIDE", "original"))
	defer os.Unsetenv("DEMON_TEST_OVERRIDE")

	out := BaseEnvironment(&EnvBlock{Add: map[string]string{"DEMON_TEST_OVERRIDE": "overridden"}})
	require.Contains(out, "DEMON_TEST_OVERRIDE=overridden")
	require.NotContains(out, "DEMON_TEST_OVERRIDE=original")
}
