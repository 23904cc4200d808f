package config

import (
	"os"
	"strings"
)

// BaseEnvironment computes the daemon's own filtered environment from its
// process environment and the config's clear/add overlay: if env.Clear is
// set, start from empty and keep only the listed variables, otherwise
// inherit everything, then apply env.Add on top. This is the floor every
// task's own per-task overlay (driver.BuildEnv) is applied against.
func BaseEnvironment(env *EnvBlock) []string {
	procEnv := os.Environ()
	if env == nil {
		return procEnv
	}

	procMap := map[string]string{}
	for _, kv := range procEnv {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			procMap[kv[:i]] = kv[i+1:]
		}
	}

	result := map[string]string{}
	if env.Clear {
		keep := map[string]bool{}
		for _, k := range env.Keep {
			keep[k] = true
		}
		for k := range keep {
			if v, ok := procMap[k]; ok {
				result[k] = v
			}
		}
	} else {
		for k, v := range procMap {
			result[k] = v
		}
	}
	for k, v := range env.Add {
		result[k] = v
	}

	out := make([]string, 0, len(result))
	for k, v := range result {
		out = append(out, k+"="+v)
	}
	return out
}
