package config

import (
	"fmt"
	"time"

	"github.com/demonhq/demon/internal/ipc"
	"github.com/demonhq/demon/internal/task"
)

// ToSpec converts a decoded HCL manifest into the wire/manifest-agnostic
// TaskSpec shape shared with the control surface's TaskAdd request.
func (m TaskManifest) ToSpec() ipc.TaskSpec {
	spec := ipc.TaskSpec{
		Kind:                  m.Kind,
		Command:               m.Command,
		WorkingDir:            m.WorkingDir,
		DefaultOn:             m.DefaultOn,
		StoppedTimeoutSeconds: m.StopTimeoutSeconds,
		RestartDelaySeconds:   m.RestartDelaySeconds,
		SuccessCodes:          m.SuccessCodes,
		StartedAction:         m.StartedAction,
		ScheduleSeconds:       m.ScheduleSeconds,
	}
	if m.Env != nil {
		spec.EnvClear = m.Env.Clear
		spec.EnvAdd = m.Env.Add
		if len(m.Env.Keep) > 0 {
			spec.EnvKeep = map[string]bool{}
			for _, k := range m.Env.Keep {
				spec.EnvKeep[k] = true
			}
		}
	}
	if m.Upstream != nil {
		spec.Upstream = map[string]string{}
		for _, id := range m.Upstream.Strong {
			spec.Upstream[id] = "strong"
		}
		for _, id := range m.Upstream.Weak {
			spec.Upstream[id] = "weak"
		}
	}
	if m.Readiness != nil {
		spec.Readiness = m.Readiness.Check
		spec.ReadyTarget = m.Readiness.Target
	}
	return spec
}

// BuildRecord constructs a fresh task.Record from a wire TaskSpec. Upstream
// edges are recorded by id even if the target does not yet exist in the
// store; the store tolerates and later reconciles dead links on Insert.
func BuildRecord(id string, spec ipc.TaskSpec) (*task.Record, error) {
	r := &task.Record{
		ID:         task.ID(id),
		Upstream:   map[task.ID]task.DependencyType{},
		Downstream: map[task.ID]task.DependencyType{},
	}
	for upID, kind := range spec.Upstream {
		switch kind {
		case "strong":
			r.Upstream[task.ID(upID)] = task.Strong
		case "weak":
			r.Upstream[task.ID(upID)] = task.Weak
		default:
			return nil, fmt.Errorf("config: task %q: invalid upstream dependency type %q for %q", id, kind, upID)
		}
	}

	switch spec.Kind {
	case "empty":
		r.Kind = task.KindEmpty
	case "external":
		r.Kind = task.KindExternal
	case "long":
		r.Kind = task.KindLong
		r.Long.Spec = processSpecFrom(spec)
		r.Long.Readiness = readinessFrom(spec.Readiness)
		r.Long.ReadyTarget = spec.ReadyTarget
	case "short":
		r.Kind = task.KindShort
		r.Short.Spec = processSpecFrom(spec)
		r.Short.SuccessCodes = map[int]bool{}
		if len(spec.SuccessCodes) == 0 {
			r.Short.SuccessCodes[0] = true
		}
		for _, c := range spec.SuccessCodes {
			r.Short.SuccessCodes[c] = true
		}
		switch spec.StartedAction {
		case "", "none":
			r.Short.StartedAction = task.ActionNone
		case "turn_off":
			r.Short.StartedAction = task.ActionTurnOff
		case "delete":
			r.Short.StartedAction = task.ActionDelete
		default:
			return nil, fmt.Errorf("config: task %q: invalid started_action %q", id, spec.StartedAction)
		}
		for _, secs := range spec.ScheduleSeconds {
			r.Short.Schedule = append(r.Short.Schedule, time.Duration(secs)*time.Second)
		}
	default:
		return nil, fmt.Errorf("config: task %q: invalid kind %q", id, spec.Kind)
	}

	if spec.DefaultOn {
		r.DirectOn.Value = true
	}
	return r, nil
}

func processSpecFrom(spec ipc.TaskSpec) task.ProcessSpec {
	return task.ProcessSpec{
		Command:      spec.Command,
		WorkingDir:   spec.WorkingDir,
		EnvClear:     spec.EnvClear,
		EnvKeep:      spec.EnvKeep,
		EnvAdd:       spec.EnvAdd,
		StopTimeout:  time.Duration(spec.StoppedTimeoutSeconds) * time.Second,
		RestartDelay: time.Duration(spec.RestartDelaySeconds) * time.Second,
	}
}

func readinessFrom(check string) task.ReadinessCheck {
	switch check {
	case "tcp_socket":
		return task.ReadyTCPSocket
	case "path":
		return task.ReadyPath
	default:
		return task.ReadyNone
	}
}
