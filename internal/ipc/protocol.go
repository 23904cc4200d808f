package ipc

import "time"

// Request kind discriminators, used as Envelope.Kind.
const (
	KindTaskAdd           = "task_add"
	KindTaskDelete        = "task_delete"
	KindTaskGetStatus     = "task_get_status"
	KindTaskGetSpec       = "task_get_spec"
	KindTaskOn            = "task_on"
	KindTaskWaitStarted   = "task_wait_started"
	KindTaskWaitStopped   = "task_wait_stopped"
	KindTaskShowUpstream  = "task_show_upstream"
	KindTaskShowDownstream = "task_show_downstream"
	KindDemonSpecDirs     = "demon_spec_dirs"
)

// ErrorResponse is returned (with Envelope.Kind == "error") whenever a
// handler fails.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const KindError = "error"

// TaskAddRequest registers a task manifest. An existing task with the same
// id is replaced if it is stopped and rejected otherwise; the new spec is not
// compared with the existing one, so re-adding an identical spec to a stopped
// task still replaces it.
type TaskAddRequest struct {
	ID   string   `json:"id"`
	Spec TaskSpec `json:"spec"`
}

type TaskAddResponse struct {
	Replaced bool `json:"replaced"`
}

// TaskSpec is the wire shape of a manifest, shared with the config loader.
type TaskSpec struct {
	Kind          string            `json:"kind"`
	Command       []string          `json:"command,omitempty"`
	WorkingDir    string            `json:"working_dir,omitempty"`
	EnvClear      bool              `json:"env_clear,omitempty"`
	EnvKeep       map[string]bool   `json:"env_keep,omitempty"`
	EnvAdd        map[string]string `json:"env_add,omitempty"`
	Upstream      map[string]string `json:"upstream,omitempty"` // id -> "strong"|"weak"
	DefaultOn     bool              `json:"default_on,omitempty"`
	StoppedTimeoutSeconds int       `json:"stop_timeout_seconds,omitempty"`
	RestartDelaySeconds   int       `json:"restart_delay_seconds,omitempty"`
	Readiness     string            `json:"readiness,omitempty"` // "none"|"tcp_socket"|"path"
	ReadyTarget   string            `json:"ready_target,omitempty"`
	SuccessCodes  []int             `json:"success_codes,omitempty"`
	StartedAction string            `json:"started_action,omitempty"` // "none"|"turn_off"|"delete"
	ScheduleSeconds []int           `json:"schedule_seconds,omitempty"`
}

type TaskDeleteRequest struct {
	ID string `json:"id"`
}

type TaskDeleteResponse struct{}

type TaskGetStatusRequest struct {
	ID string `json:"id"`
}

type TaskGetStatusResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	DirectOn     bool      `json:"direct_on"`
	DirectOnAt   time.Time `json:"direct_on_at"`
	TransitiveOn bool      `json:"transitive_on"`
	TransitiveOnAt time.Time `json:"transitive_on_at"`
	ProcState    string    `json:"proc_state,omitempty"`
	ProcStateAt  time.Time `json:"proc_state_at,omitempty"`
	PID          int       `json:"pid,omitempty"`
	FailureCount int       `json:"failure_count,omitempty"`
}

type TaskGetSpecRequest struct {
	ID string `json:"id"`
}

type TaskGetSpecResponse struct {
	ID   string   `json:"id"`
	Spec TaskSpec `json:"spec"`
}

type TaskOnRequest struct {
	ID string `json:"id"`
	On bool   `json:"on"`
}

type TaskOnResponse struct{}

type TaskWaitStartedRequest struct {
	ID string `json:"id"`
}

type TaskWaitStoppedRequest struct {
	ID string `json:"id"`
}

type TaskWaitResponse struct {
	Ok bool `json:"ok"`
}

type TaskShowUpstreamRequest struct {
	ID string `json:"id"`
}

type TaskShowDownstreamRequest struct {
	ID string `json:"id"`
}

// TaskDependencyNode is one entry in an upstream/downstream tree response.
// A dependency edge that turns out to target a task no longer present is
// reported as Present=false rather than omitted, so the caller can see that
// the edge is currently dangling.
type TaskDependencyNode struct {
	ID       string                `json:"id"`
	Edge     string                `json:"edge"` // "strong"|"weak"
	Present  bool                  `json:"present"`
	Children []TaskDependencyNode  `json:"children,omitempty"`
}

type TaskShowResponse struct {
	ID       string                `json:"id"`
	Children []TaskDependencyNode  `json:"children,omitempty"`
}

type DemonSpecDirsRequest struct{}

type DemonSpecDirsResponse struct {
	Dirs []string `json:"dirs"`
}
