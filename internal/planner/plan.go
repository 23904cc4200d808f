package planner

import "github.com/demonhq/demon/internal/task"

// Plan is the set of driver-facing work produced by one planner invocation.
// It is computed entirely under the engine's lock and must be dispatched by
// the caller after the lock is released: Start/Stop entries are requests to
// invoke a driver's Start/Stop method, which do real (blocking) work and must
// never run while the lock is held.
type Plan struct {
	Start []task.ID
	Stop  []task.ID

	LogStarting []task.ID
	LogStarted  []task.ID
	LogStopping []task.ID
	LogStopped  []task.ID
}

func (p *Plan) merge(other Plan) {
	p.Start = append(p.Start, other.Start...)
	p.Stop = append(p.Stop, other.Stop...)
	p.LogStarting = append(p.LogStarting, other.LogStarting...)
	p.LogStarted = append(p.LogStarted, other.LogStarted...)
	p.LogStopping = append(p.LogStopping, other.LogStopping...)
	p.LogStopped = append(p.LogStopped, other.LogStopped...)
}
