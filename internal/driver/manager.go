// Package driver implements the cooperative, process-backed workers that
// carry out Plan.Start/Plan.Stop requests from internal/planner: one
// goroutine per active Long or Short task, spawning and supervising its
// child process and reporting transitions back through the engine.
//
// Drivers never hold the engine's lock across a blocking call; all
// publishing back to the planner goes through its PublishStarted /
// PublishStopping / PublishStopped / PublishRestartCycle / PublishExited
// methods, each of which is itself a single short critical section.
package driver

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/demonhq/demon/internal/planner"
	"github.com/demonhq/demon/internal/store"
	"github.com/demonhq/demon/internal/task"
)

// Manager dispatches and runs the drivers for every process-backed task.
type Manager struct {
	Engine  *planner.Engine
	Store   *store.Store
	Log     hclog.Logger
	BaseEnv []string

	eg errgroup.Group

	mu      sync.Mutex
	stopSig map[task.ID]chan struct{}
}

// NewManager constructs a Manager bound to engine and store, logging under
// log and spawning children with baseEnv as the environment floor.
func NewManager(engine *planner.Engine, s *store.Store, log hclog.Logger, baseEnv []string) *Manager {
	return &Manager{
		Engine:  engine,
		Store:   s,
		Log:     log,
		BaseEnv: baseEnv,
		stopSig: map[task.ID]chan struct{}{},
	}
}

// Dispatch launches a driver goroutine for every id in plan.Start that does
// not already have one running, and signals a stop for every id in
// plan.Stop.
func (m *Manager) Dispatch(plan planner.Plan) {
	for _, id := range plan.Start {
		m.start(id)
	}
	for _, id := range plan.Stop {
		m.requestStop(id)
	}
}

// Wait blocks until every driver goroutine launched by this Manager has
// returned. Call after issuing a stop for every task at shutdown.
func (m *Manager) Wait() { _ = m.eg.Wait() }

func (m *Manager) start(id task.ID) {
	m.mu.Lock()
	if _, active := m.stopSig[id]; active {
		m.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	m.stopSig[id] = stop
	m.mu.Unlock()

	r := m.Store.Get(id)
	if r == nil {
		return
	}

	switch r.Kind {
	case task.KindLong:
		m.eg.Go(func() error {
			m.runLong(id, stop)
			return nil
		})
	case task.KindShort:
		m.eg.Go(func() error {
			m.runShort(id, stop)
			return nil
		})
	}
}

func (m *Manager) requestStop(id task.ID) {
	m.mu.Lock()
	stop, active := m.stopSig[id]
	m.mu.Unlock()
	if !active {
		return
	}
	select {
	case <-stop:
	default:
		close(stop)
	}
}

func (m *Manager) clearStop(id task.ID) {
	m.mu.Lock()
	delete(m.stopSig, id)
	m.mu.Unlock()
}

// sleepInterruptible sleeps for d, using a constant backoff policy as the
// timer source, returning early (with ok=false) if stop closes first.
func sleepInterruptible(d time.Duration, stop <-chan struct{}) (ok bool) {
	b := backoff.NewConstantBackOff(d)
	timer := time.NewTimer(b.NextBackOff())
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	}
}

func (m *Manager) runLong(id task.ID, stop chan struct{}) {
	defer m.clearStop(id)

	for {
		r := m.Store.Get(id)
		if r == nil {
			return
		}
		spec := r.Long.Spec

		out, closeOut := logPipe(m.Log.Named(string(id)), id)
		proc, err := spawn(spec, m.BaseEnv, out)
		if err != nil {
			closeOut()
			m.Log.Error("spawn failed", "task", id, "error", err)
			m.Engine.PublishRestartCycle(id)
			if !sleepInterruptible(orDefault(spec.RestartDelay, 60*time.Second), stop) {
				return
			}
			continue
		}

		readyCh := make(chan struct{})
		switch r.Long.Readiness {
		case task.ReadyNone:
			m.Dispatch(m.Engine.PublishStarted(id, proc.cmd.Process.Pid))
			close(readyCh)
		case task.ReadyTCPSocket:
			go func() {
				if pollReady(stop, tcpSocketCheck(r.Long.ReadyTarget)) {
					m.Dispatch(m.Engine.PublishStarted(id, proc.cmd.Process.Pid))
				}
				close(readyCh)
			}()
		case task.ReadyPath:
			go func() {
				if pollReady(stop, pathCheck(r.Long.ReadyTarget)) {
					m.Dispatch(m.Engine.PublishStarted(id, proc.cmd.Process.Pid))
				}
				close(readyCh)
			}()
		}

		select {
		case <-stop:
			m.Engine.PublishStopping(id)
			gentleStop(proc, orDefault(spec.StopTimeout, 30*time.Second))
			closeOut()
			m.Dispatch(m.Engine.PublishStopped(id))
			return
		case exitErr := <-proc.exitCh:
			_ = exitErr
			closeOut()
			m.Engine.PublishRestartCycle(id)
			if !sleepInterruptible(orDefault(spec.RestartDelay, 60*time.Second), stop) {
				return
			}
			continue
		}
	}
}

func (m *Manager) runShort(id task.ID, stop chan struct{}) {
	defer m.clearStop(id)

	for {
		r := m.Store.Get(id)
		if r == nil {
			return
		}
		spec := r.Short.Spec

		out, closeOut := logPipe(m.Log.Named(string(id)), id)
		proc, err := spawn(spec, m.BaseEnv, out)
		if err != nil {
			closeOut()
			m.Log.Error("spawn failed", "task", id, "error", err)
			m.Engine.PublishRestartCycle(id)
			if !sleepInterruptible(orDefault(spec.RestartDelay, 60*time.Second), stop) {
				return
			}
			continue
		}

		select {
		case <-stop:
			m.Engine.PublishStopping(id)
			gentleStop(proc, orDefault(spec.StopTimeout, 30*time.Second))
			closeOut()
			m.Dispatch(m.Engine.PublishStopped(id))
			return
		case exitErr := <-proc.exitCh:
			closeOut()
			code := exitCode(exitErr)
			plan, turnOff := m.Engine.PublishExited(id, code)
			m.Dispatch(plan)
			if !turnOff {
				if !r.Short.SuccessCodes[code] {
					// non-success exit: PublishExited already ran the
					// restart cycle internally. Sleep and respawn.
					if !sleepInterruptible(orDefault(spec.RestartDelay, 60*time.Second), stop) {
						return
					}
					continue
				}
				// success, started_action none: this run is complete.
				return
			}
			// started_action turn_off/delete: the run is already complete and
			// there is no live process to signal, so SetDirectOff's own
			// attemptStop finishes the transition to Stopped synchronously
			// (and, for delete, reaps the record once the stop has
			// propagated). Publishing a separate Stopping/Stopped pair first
			// would leave direct_on still true when PublishStopped ran,
			// misrouting it into the resume-a-start branch instead.
			offPlan := m.Engine.SetDirectOff(id)
			m.Dispatch(offPlan)
			return
		}
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
