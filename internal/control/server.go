// Package control implements the synchronous request/response dispatcher
// behind the Unix-socket control surface: one request per connection,
// validated and applied to the engine under its lock, responded to, done.
package control

import (
	"encoding/json"
	"errors"
	"net"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/demonhq/demon/internal/driver"
	"github.com/demonhq/demon/internal/ipc"
	"github.com/demonhq/demon/internal/planner"
	"github.com/demonhq/demon/internal/schedule"
	"github.com/demonhq/demon/internal/store"
)

// Server dispatches IPC requests against a single engine/store/driver
// triple.
type Server struct {
	Engine   *planner.Engine
	Store    *store.Store
	Manager  *driver.Manager
	Notifier *schedule.Notifier
	SpecDirs []string
	Log      hclog.Logger
}

// Serve accepts connections on ln until it is closed, handling each
// sequentially relative to itself (concurrently across connections — the
// engine's own lock serializes anything that actually touches shared
// state).
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	corrID := uuid.NewString()

	env, err := ipc.ReadEnvelope(conn)
	if err != nil {
		s.Log.Debug("reading request", "correlation_id", corrID, "error", err)
		return
	}
	s.Log.Debug("handling request", "correlation_id", corrID, "kind", env.Kind)

	resp, kind := s.dispatch(env)
	payload, err := json.Marshal(resp)
	if err != nil {
		s.Log.Error("marshaling response", "correlation_id", corrID, "error", err)
		return
	}
	envOut := ipc.Envelope{Version: ipc.Version, Kind: kind, Body: payload}
	out, err := json.Marshal(envOut)
	if err != nil {
		s.Log.Error("marshaling envelope", "error", err)
		return
	}
	if err := ipc.WriteFrame(conn, out); err != nil {
		s.Log.Debug("writing response", "error", err)
	}
}

func (s *Server) dispatch(env ipc.Envelope) (any, string) {
	switch env.Kind {
	case ipc.KindTaskAdd:
		return decodeAndRun(env, s.handleTaskAdd)
	case ipc.KindTaskDelete:
		return decodeAndRun(env, s.handleTaskDelete)
	case ipc.KindTaskGetStatus:
		return decodeAndRun(env, s.handleTaskGetStatus)
	case ipc.KindTaskGetSpec:
		return decodeAndRun(env, s.handleTaskGetSpec)
	case ipc.KindTaskOn:
		return decodeAndRun(env, s.handleTaskOn)
	case ipc.KindTaskWaitStarted:
		return decodeAndRun(env, s.handleTaskWaitStarted)
	case ipc.KindTaskWaitStopped:
		return decodeAndRun(env, s.handleTaskWaitStopped)
	case ipc.KindTaskShowUpstream:
		return decodeAndRun(env, s.handleTaskShowUpstream)
	case ipc.KindTaskShowDownstream:
		return decodeAndRun(env, s.handleTaskShowDownstream)
	case ipc.KindDemonSpecDirs:
		return decodeAndRun(env, s.handleDemonSpecDirs)
	default:
		return ipc.ErrorResponse{Kind: "invalid", Message: "unknown request kind " + env.Kind}, ipc.KindError
	}
}

// decodeAndRun decodes env.Body into the handler's request type and invokes
// it, translating a returned error into the standard ErrorResponse shape.
func decodeAndRun[Req any, Resp any](env ipc.Envelope, handler func(Req) (Resp, error)) (any, string) {
	var req Req
	if err := json.Unmarshal(env.Body, &req); err != nil {
		return ipc.ErrorResponse{Kind: "invalid", Message: err.Error()}, ipc.KindError
	}
	resp, err := handler(req)
	if err != nil {
		kind := "internal"
		var ierr *ipcError
		if errors.As(err, &ierr) {
			kind = ierr.Kind
		}
		return ipc.ErrorResponse{Kind: kind, Message: err.Error()}, ipc.KindError
	}
	return resp, env.Kind
}

type ipcError struct {
	Kind string
	Msg  string
}

func (e *ipcError) Error() string { return e.Msg }
