// Package supervisor wires the engine, store, driver manager, control
// server and schedule notifier into a runnable daemon: it builds the
// initial graph from configuration, activates default-on tasks, serves the
// control socket, and drains everything on a termination signal.
package supervisor

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/demonhq/demon/internal/config"
	"github.com/demonhq/demon/internal/control"
	"github.com/demonhq/demon/internal/driver"
	"github.com/demonhq/demon/internal/planner"
	"github.com/demonhq/demon/internal/schedule"
	"github.com/demonhq/demon/internal/store"
	"github.com/demonhq/demon/internal/task"
)

// Daemon is one fully wired supervisor instance.
type Daemon struct {
	Log      hclog.Logger
	Engine   *planner.Engine
	Store    *store.Store
	Manager  *driver.Manager
	Server   *control.Server
	Notifier *schedule.Notifier
	SpecDirs []string

	socketPath string
}

// Build loads cfg's task manifests, validates the resulting graph, and
// wires every component together. It does not yet activate any task or
// start serving.
func Build(log hclog.Logger, cfg *config.DaemonConfig) (*Daemon, error) {
	manifests, err := config.LoadManifests(cfg.TaskDirs)
	if err != nil {
		return nil, fmt.Errorf("supervisor: loading manifests: %w", err)
	}

	s := store.New()
	var errs *multierror.Error
	for _, m := range manifests {
		rec, err := config.BuildRecord(m.ID, m.ToSpec())
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if err := s.Insert(rec); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("task %q: %w", m.ID, err))
		}
	}
	if errs.ErrorOrNil() != nil {
		return nil, errs.ErrorOrNil()
	}
	if err := s.ValidateAcyclic(); err != nil {
		return nil, fmt.Errorf("supervisor: %w", err)
	}

	baseEnv := config.BaseEnvironment(cfg.Env)
	engine := planner.New(s)
	manager := driver.NewManager(engine, s, log.Named("driver"), baseEnv)

	notifier := schedule.NewNotifier(func(id task.ID) {
		plan := engine.SetDirectOn(id)
		manager.Dispatch(plan)
	})
	for _, m := range manifests {
		if m.Kind != "short" {
			continue
		}
		spec := m.ToSpec()
		for _, secs := range spec.ScheduleSeconds {
			notifier.Arm(task.ID(m.ID), time.Duration(secs)*time.Second)
		}
	}

	server := &control.Server{
		Engine:   engine,
		Store:    s,
		Manager:  manager,
		Notifier: notifier,
		SpecDirs: cfg.TaskDirs,
		Log:      log.Named("control"),
	}

	return &Daemon{
		Log:        log,
		Engine:     engine,
		Store:      s,
		Manager:    manager,
		Server:     server,
		Notifier:   notifier,
		SpecDirs:   cfg.TaskDirs,
		socketPath: cfg.SocketPath,
	}, nil
}

// Run activates every default-on task, serves the control socket, and
// blocks until SIGINT or SIGTERM, at which point it turns everything off
// and waits for every driver to drain before returning.
func (d *Daemon) Run() error {
	var defaultOn []task.ID
	d.Store.Iter(func(r *task.Record) bool {
		if r.DirectOn.Value {
			defaultOn = append(defaultOn, r.ID)
		}
		return true
	})
	for _, id := range defaultOn {
		plan := d.Engine.SetDirectOn(id)
		d.Manager.Dispatch(plan)
	}

	_ = os.Remove(d.socketPath)
	ln, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("supervisor: binding control socket: %w", err)
	}
	defer ln.Close()

	scheduleStop := make(chan struct{})
	go d.Notifier.Run(scheduleStop)

	serveErr := make(chan error, 1)
	go func() { serveErr <- d.Server.Serve(ln) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		d.Log.Info("received termination signal", "signal", sig)
	case err := <-serveErr:
		if err != nil {
			d.Log.Error("control socket serve failed", "error", err)
		}
	}

	close(scheduleStop)
	_ = ln.Close()

	var offTasks []task.ID
	d.Store.Iter(func(r *task.Record) bool {
		offTasks = append(offTasks, r.ID)
		return true
	})
	for _, id := range offTasks {
		plan := d.Engine.SetDirectOff(id)
		d.Manager.Dispatch(plan)
	}
	d.Manager.Wait()

	return nil
}
