// Package config loads the daemon's own configuration and the per-task
// manifests under its configured task directories, both written in HCL, and
// turns a decoded manifest into the task.Record shape the engine operates
// on.
package config

// TaskManifest is the HCL shape of one task declaration:
//
//	task "api" {
//	  kind = "long"
//	  ...
//	}
//
// The block's label is always the task id; a directory of *.hcl files each
// containing one or more `task` blocks is the expected layout.
type TaskManifest struct {
	ID   string `hcl:"id,label"`
	Kind string `hcl:"kind"`

	Command    []string `hcl:"command,optional"`
	WorkingDir string   `hcl:"working_dir,optional"`
	DefaultOn  bool     `hcl:"default_on,optional"`

	Env       *EnvBlock       `hcl:"env,block"`
	Upstream  *UpstreamBlock  `hcl:"upstream,block"`
	Readiness *ReadinessBlock `hcl:"readiness,block"`

	StopTimeoutSeconds   int `hcl:"stop_timeout_seconds,optional"`
	RestartDelaySeconds  int `hcl:"restart_delay_seconds,optional"`

	SuccessCodes    []int  `hcl:"success_codes,optional"`
	StartedAction   string `hcl:"started_action,optional"`
	ScheduleSeconds []int  `hcl:"schedule_seconds,optional"`
}

type EnvBlock struct {
	Clear bool              `hcl:"clear,optional"`
	Keep  []string          `hcl:"keep,optional"`
	Add   map[string]string `hcl:"add,optional"`
}

type UpstreamBlock struct {
	Strong []string `hcl:"strong,optional"`
	Weak   []string `hcl:"weak,optional"`
}

type ReadinessBlock struct {
	Check  string `hcl:"check,optional"`
	Target string `hcl:"target,optional"`
}

// ManifestFile is the top-level decode target for one *.hcl file: zero or
// more task blocks (normally exactly one per file, by convention).
type ManifestFile struct {
	Tasks []TaskManifest `hcl:"task,block"`
}

// DaemonConfig is the daemon's own top-level configuration file.
type DaemonConfig struct {
	SocketPath string       `hcl:"socket_path"`
	TaskDirs   []string     `hcl:"task_dirs"`
	Env        *EnvBlock    `hcl:"env,block"`
}
