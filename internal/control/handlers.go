package control

import (
	"fmt"

	"github.com/demonhq/demon/internal/config"
	"github.com/demonhq/demon/internal/driver"
	"github.com/demonhq/demon/internal/ipc"
	"github.com/demonhq/demon/internal/store"
	"github.com/demonhq/demon/internal/task"
)

func notFound(format string, args ...any) error {
	return &ipcError{Kind: "not_found", Msg: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &ipcError{Kind: "conflict", Msg: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return &ipcError{Kind: "invalid", Msg: fmt.Sprintf(format, args...)}
}

func precondition(format string, args ...any) error {
	return &ipcError{Kind: "precondition", Msg: fmt.Sprintf(format, args...)}
}

func (s *Server) handleTaskAdd(req ipc.TaskAddRequest) (ipc.TaskAddResponse, error) {
	id := task.ID(req.ID)

	s.Engine.Lock()
	existing := s.Store.Get(id)

	replaced := false
	if existing != nil {
		if !existing.IsStopped() {
			s.Engine.Unlock()
			return ipc.TaskAddResponse{}, precondition("task %q already exists and is not stopped", id)
		}
		if err := s.Store.Remove(id); err != nil {
			s.Engine.Unlock()
			return ipc.TaskAddResponse{}, invalid("task %q: %v", id, err)
		}
		replaced = true
	}

	rec, err := config.BuildRecord(req.ID, req.Spec)
	if err != nil {
		s.Engine.Unlock()
		return ipc.TaskAddResponse{}, invalid("%v", err)
	}

	if err := s.Store.Insert(rec); err != nil {
		s.Engine.Unlock()
		return ipc.TaskAddResponse{}, conflict("%v", err)
	}
	if err := s.Store.ValidateAcyclic(); err != nil {
		_ = s.Store.Remove(rec.ID)
		s.Engine.Unlock()
		return ipc.TaskAddResponse{}, conflict("%v", err)
	}
	s.Engine.Unlock()

	if rec.Kind == task.KindShort {
		for _, interval := range rec.Short.Schedule {
			s.Notifier.Arm(rec.ID, interval)
		}
	}

	if req.Spec.DefaultOn {
		plan := s.Engine.SetDirectOn(rec.ID)
		s.Manager.Dispatch(plan)
	}

	return ipc.TaskAddResponse{Replaced: replaced}, nil
}

func (s *Server) handleTaskDelete(req ipc.TaskDeleteRequest) (ipc.TaskDeleteResponse, error) {
	id := task.ID(req.ID)
	s.Engine.Lock()
	err := s.Store.Remove(id)
	s.Engine.Unlock()
	if err != nil {
		if serr, ok := err.(*store.Error); ok {
			switch serr.Kind {
			case store.KindNotFound:
				return ipc.TaskDeleteResponse{}, notFound("%v", err)
			case store.KindPrecondition:
				return ipc.TaskDeleteResponse{}, precondition("%v", err)
			default:
				return ipc.TaskDeleteResponse{}, invalid("%v", err)
			}
		}
		return ipc.TaskDeleteResponse{}, invalid("%v", err)
	}
	s.Notifier.Disarm(id)
	return ipc.TaskDeleteResponse{}, nil
}

func (s *Server) handleTaskGetStatus(req ipc.TaskGetStatusRequest) (ipc.TaskGetStatusResponse, error) {
	s.Engine.Lock()
	defer s.Engine.Unlock()
	r := s.Store.Get(task.ID(req.ID))
	if r == nil {
		return ipc.TaskGetStatusResponse{}, notFound("task %q not found", req.ID)
	}
	resp := ipc.TaskGetStatusResponse{
		ID:             req.ID,
		Kind:           r.Kind.String(),
		DirectOn:       r.DirectOn.Value,
		DirectOnAt:     r.DirectOn.At,
		TransitiveOn:   r.TransitiveOn.Value,
		TransitiveOnAt: r.TransitiveOn.At,
	}
	switch r.Kind {
	case task.KindLong:
		resp.ProcState = r.Long.ProcState.String()
		resp.ProcStateAt = r.Long.ProcStateAt
		resp.PID = r.Long.PID
		resp.FailureCount = r.Long.FailureCount
		if resp.PID != 0 && !driver.IsAlive(resp.PID) {
			s.Log.Warn("recorded pid not found in process table", "task", req.ID, "pid", resp.PID)
		}
	case task.KindShort:
		resp.ProcState = r.Short.ProcState.String()
		resp.ProcStateAt = r.Short.ProcStateAt
		resp.PID = r.Short.PID
		resp.FailureCount = r.Short.FailureCount
		if resp.PID != 0 && !driver.IsAlive(resp.PID) {
			s.Log.Warn("recorded pid not found in process table", "task", req.ID, "pid", resp.PID)
		}
	}
	return resp, nil
}

func (s *Server) handleTaskGetSpec(req ipc.TaskGetSpecRequest) (ipc.TaskGetSpecResponse, error) {
	s.Engine.Lock()
	defer s.Engine.Unlock()
	r := s.Store.Get(task.ID(req.ID))
	if r == nil {
		return ipc.TaskGetSpecResponse{}, notFound("task %q not found", req.ID)
	}
	return ipc.TaskGetSpecResponse{ID: req.ID, Spec: specFromRecord(r)}, nil
}

func specFromRecord(r *task.Record) ipc.TaskSpec {
	spec := ipc.TaskSpec{Kind: r.Kind.String(), DefaultOn: r.DirectOn.Value}
	spec.Upstream = map[string]string{}
	for id, dt := range r.Upstream {
		spec.Upstream[string(id)] = dt.String()
	}
	var ps task.ProcessSpec
	switch r.Kind {
	case task.KindLong:
		ps = r.Long.Spec
		switch r.Long.Readiness {
		case task.ReadyTCPSocket:
			spec.Readiness = "tcp_socket"
		case task.ReadyPath:
			spec.Readiness = "path"
		default:
			spec.Readiness = "none"
		}
		spec.ReadyTarget = r.Long.ReadyTarget
	case task.KindShort:
		ps = r.Short.Spec
		for c := range r.Short.SuccessCodes {
			spec.SuccessCodes = append(spec.SuccessCodes, c)
		}
		switch r.Short.StartedAction {
		case task.ActionTurnOff:
			spec.StartedAction = "turn_off"
		case task.ActionDelete:
			spec.StartedAction = "delete"
		default:
			spec.StartedAction = "none"
		}
	}
	spec.Command = ps.Command
	spec.WorkingDir = ps.WorkingDir
	spec.EnvClear = ps.EnvClear
	spec.EnvKeep = ps.EnvKeep
	spec.EnvAdd = ps.EnvAdd
	spec.StoppedTimeoutSeconds = int(ps.StopTimeout.Seconds())
	spec.RestartDelaySeconds = int(ps.RestartDelay.Seconds())
	return spec
}

func (s *Server) handleTaskOn(req ipc.TaskOnRequest) (ipc.TaskOnResponse, error) {
	id := task.ID(req.ID)
	s.Engine.Lock()
	exists := s.Store.Has(id)
	s.Engine.Unlock()
	if !exists {
		return ipc.TaskOnResponse{}, notFound("task %q not found", req.ID)
	}
	if req.On {
		p := s.Engine.SetDirectOn(id)
		s.Manager.Dispatch(p)
	} else {
		p := s.Engine.SetDirectOff(id)
		s.Manager.Dispatch(p)
	}
	return ipc.TaskOnResponse{}, nil
}

func (s *Server) handleTaskWaitStarted(req ipc.TaskWaitStartedRequest) (ipc.TaskWaitResponse, error) {
	return s.wait(task.ID(req.ID), true)
}

func (s *Server) handleTaskWaitStopped(req ipc.TaskWaitStoppedRequest) (ipc.TaskWaitResponse, error) {
	return s.wait(task.ID(req.ID), false)
}

func (s *Server) wait(id task.ID, forStarted bool) (ipc.TaskWaitResponse, error) {
	s.Engine.Lock()
	r := s.Store.Get(id)
	if r == nil {
		s.Engine.Unlock()
		return ipc.TaskWaitResponse{}, notFound("task %q not found", id)
	}
	if forStarted && r.IsStarted() {
		s.Engine.Unlock()
		return ipc.TaskWaitResponse{Ok: true}, nil
	}
	if !forStarted && r.IsStopped() {
		s.Engine.Unlock()
		return ipc.TaskWaitResponse{Ok: true}, nil
	}

	ch := make(chan task.WaitResult, 1)
	nr := r.Clone()
	if forStarted {
		nr.StartedWaiters = append(nr.StartedWaiters, task.Waiter{C: ch})
	} else {
		nr.StoppedWaiters = append(nr.StoppedWaiters, task.Waiter{C: ch})
	}
	_ = s.Store.Put(nr)
	s.Engine.Unlock()

	result := <-ch
	if result.Err != nil {
		return ipc.TaskWaitResponse{}, result.Err
	}
	return ipc.TaskWaitResponse{Ok: result.Ok}, nil
}

func (s *Server) handleTaskShowUpstream(req ipc.TaskShowUpstreamRequest) (ipc.TaskShowResponse, error) {
	return s.showTree(req.ID, true)
}

func (s *Server) handleTaskShowDownstream(req ipc.TaskShowDownstreamRequest) (ipc.TaskShowResponse, error) {
	return s.showTree(req.ID, false)
}

func (s *Server) showTree(id string, upstream bool) (ipc.TaskShowResponse, error) {
	s.Engine.Lock()
	defer s.Engine.Unlock()
	if !s.Store.Has(task.ID(id)) {
		return ipc.TaskShowResponse{}, notFound("task %q not found", id)
	}
	children := s.buildChildren(task.ID(id), upstream, false, map[task.ID]bool{task.ID(id): true})
	return ipc.TaskShowResponse{ID: id, Children: children}, nil
}

// buildChildren walks id's edges one level at a time, recursing into each
// present target. A target an edge points to that does not exist is
// reported Present=false with no children; repeated ids (graphs are DAGs,
// but defensively) are not re-descended. Once the walk has passed through a
// weak edge (weak is true), every edge below it is reported as weak.
func (s *Server) buildChildren(id task.ID, upstream, weak bool, seen map[task.ID]bool) []ipc.TaskDependencyNode {
	r := s.Store.Get(id)
	if r == nil {
		return nil
	}
	edges := r.Upstream
	if !upstream {
		edges = r.Downstream
	}
	var out []ipc.TaskDependencyNode
	for targetID, dt := range edges {
		if weak {
			dt = task.Weak
		}
		node := ipc.TaskDependencyNode{ID: string(targetID), Edge: dt.String()}
		target := s.Store.Get(targetID)
		if target == nil {
			node.Present = false
		} else {
			node.Present = true
			if !seen[targetID] {
				seen[targetID] = true
				node.Children = s.buildChildren(targetID, upstream, dt == task.Weak, seen)
			}
		}
		out = append(out, node)
	}
	return out
}

func (s *Server) handleDemonSpecDirs(ipc.DemonSpecDirsRequest) (ipc.DemonSpecDirsResponse, error) {
	return ipc.DemonSpecDirsResponse{Dirs: s.SpecDirs}, nil
}
