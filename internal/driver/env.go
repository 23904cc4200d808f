package driver

import (
	"strings"

	"github.com/demonhq/demon/internal/task"
)

// BuildEnv computes a spawned child's environment: if spec.EnvClear is set,
// start from empty and copy only the base-environment keys marked
// keep=true in spec.EnvKeep, otherwise inherit the full base environment;
// then overlay spec.EnvAdd. base is typically the daemon's own filtered
// environment (see internal/config).
func BuildEnv(base []string, spec task.ProcessSpec) []string {
	baseMap := map[string]string{}
	for _, kv := range base {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			baseMap[kv[:i]] = kv[i+1:]
		}
	}

	result := map[string]string{}
	if spec.EnvClear {
		for k, keep := range spec.EnvKeep {
			if !keep {
				continue
			}
			if v, ok := baseMap[k]; ok {
				result[k] = v
			}
		}
	} else {
		for k, v := range baseMap {
			result[k] = v
		}
	}
	for k, v := range spec.EnvAdd {
		result[k] = v
	}

	out := make([]string, 0, len(result))
	for k, v := range result {
		out = append(out, k+"="+v)
	}
	return out
}
