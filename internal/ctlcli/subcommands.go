package ctlcli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/demonhq/demon/internal/ipc"
)

type baseCommand struct {
	name     string
	synopsis string
}

func (c *baseCommand) Synopsis() string { return c.synopsis }
func (c *baseCommand) Help() string     { return fmt.Sprintf("Usage: demonctl %s\n\n%s", c.name, c.synopsis) }

// StatusCommand implements `demonctl status <id>`.
type StatusCommand struct{ baseCommand }

func NewStatusCommand() *StatusCommand {
	return &StatusCommand{baseCommand{"status", "Show a task's current status"}}
}

func (c *StatusCommand) Run(args []string) int {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	sock := socketFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	id, ok := oneArg(fs.Args(), c.name)
	if !ok {
		return 1
	}
	var resp ipc.TaskGetStatusResponse
	if err := call(*sock, ipc.KindTaskGetStatus, ipc.TaskGetStatusRequest{ID: id}, &resp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printJSON(resp)
	return 0
}

// SpecCommand implements `demonctl spec <id>`.
type SpecCommand struct{ baseCommand }

func NewSpecCommand() *SpecCommand {
	return &SpecCommand{baseCommand{"spec", "Show a task's current spec"}}
}

func (c *SpecCommand) Run(args []string) int {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	sock := socketFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	id, ok := oneArg(fs.Args(), c.name)
	if !ok {
		return 1
	}
	var resp ipc.TaskGetSpecResponse
	if err := call(*sock, ipc.KindTaskGetSpec, ipc.TaskGetSpecRequest{ID: id}, &resp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printJSON(resp)
	return 0
}

// onOffCommand backs both `on` and `off`.
type onOffCommand struct {
	baseCommand
	on bool
}

func NewOnCommand() *onOffCommand  { return &onOffCommand{baseCommand{"on", "Turn a task on"}, true} }
func NewOffCommand() *onOffCommand { return &onOffCommand{baseCommand{"off", "Turn a task off"}, false} }

func (c *onOffCommand) Run(args []string) int {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	sock := socketFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	id, ok := oneArg(fs.Args(), c.name)
	if !ok {
		return 1
	}
	if err := call(*sock, ipc.KindTaskOn, ipc.TaskOnRequest{ID: id, On: c.on}, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// DeleteCommand implements `demonctl delete <id>`.
type DeleteCommand struct{ baseCommand }

func NewDeleteCommand() *DeleteCommand {
	return &DeleteCommand{baseCommand{"delete", "Delete a stopped task"}}
}

func (c *DeleteCommand) Run(args []string) int {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	sock := socketFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	id, ok := oneArg(fs.Args(), c.name)
	if !ok {
		return 1
	}
	if err := call(*sock, ipc.KindTaskDelete, ipc.TaskDeleteRequest{ID: id}, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// waitCommand backs both `wait-started` and `wait-stopped`.
type waitCommand struct {
	baseCommand
	started bool
}

func NewWaitStartedCommand() *waitCommand {
	return &waitCommand{baseCommand{"wait-started", "Block until a task starts"}, true}
}
func NewWaitStoppedCommand() *waitCommand {
	return &waitCommand{baseCommand{"wait-stopped", "Block until a task stops"}, false}
}

func (c *waitCommand) Run(args []string) int {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	sock := socketFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	id, ok := oneArg(fs.Args(), c.name)
	if !ok {
		return 1
	}
	var resp ipc.TaskWaitResponse
	var err error
	if c.started {
		err = call(*sock, ipc.KindTaskWaitStarted, ipc.TaskWaitStartedRequest{ID: id}, &resp)
	} else {
		err = call(*sock, ipc.KindTaskWaitStopped, ipc.TaskWaitStoppedRequest{ID: id}, &resp)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !resp.Ok {
		return 1
	}
	return 0
}

// treeCommand backs both `upstream` and `downstream`.
type treeCommand struct {
	baseCommand
	upstream bool
}

func NewUpstreamCommand() *treeCommand {
	return &treeCommand{baseCommand{"upstream", "Show a task's upstream dependency tree"}, true}
}
func NewDownstreamCommand() *treeCommand {
	return &treeCommand{baseCommand{"downstream", "Show a task's downstream dependent tree"}, false}
}

func (c *treeCommand) Run(args []string) int {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	sock := socketFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	id, ok := oneArg(fs.Args(), c.name)
	if !ok {
		return 1
	}
	var resp ipc.TaskShowResponse
	var err error
	if c.upstream {
		err = call(*sock, ipc.KindTaskShowUpstream, ipc.TaskShowUpstreamRequest{ID: id}, &resp)
	} else {
		err = call(*sock, ipc.KindTaskShowDownstream, ipc.TaskShowDownstreamRequest{ID: id}, &resp)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printJSON(resp)
	return 0
}

// SpecDirsCommand implements `demonctl spec-dirs`.
type SpecDirsCommand struct{ baseCommand }

func NewSpecDirsCommand() *SpecDirsCommand {
	return &SpecDirsCommand{baseCommand{"spec-dirs", "Show the daemon's configured manifest directories"}}
}

func (c *SpecDirsCommand) Run(args []string) int {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	sock := socketFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	var resp ipc.DemonSpecDirsResponse
	if err := call(*sock, ipc.KindDemonSpecDirs, ipc.DemonSpecDirsRequest{}, &resp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printJSON(resp)
	return 0
}

// AddCommand implements `demonctl add <id> <spec.json>`.
type AddCommand struct{ baseCommand }

func NewAddCommand() *AddCommand {
	return &AddCommand{baseCommand{"add", "Add a task from a JSON spec file"}}
}

func (c *AddCommand) Run(args []string) int {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	sock := socketFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 2 {
		fmt.Fprintf(os.Stderr, "usage: demonctl add <task-id> <spec.json>\n")
		return 1
	}
	raw, err := os.ReadFile(rest[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	var spec ipc.TaskSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	var resp ipc.TaskAddResponse
	if err := call(*sock, ipc.KindTaskAdd, ipc.TaskAddRequest{ID: rest[0], Spec: spec}, &resp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printJSON(resp)
	return 0
}
