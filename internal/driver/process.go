package driver

import (
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/demonhq/demon/internal/task"
)

// spawned wraps a running child process together with the goroutine that
// reports its exit.
type spawned struct {
	cmd    *exec.Cmd
	exitCh chan error
}

// spawn starts spec.Command in spec.WorkingDir with the computed
// environment, in its own process group so a stop signal can reach the
// whole group rather than only the direct child, and begins streaming its
// combined stdout/stderr to out.
func spawn(spec task.ProcessSpec, baseEnv []string, out io.Writer) (*spawned, error) {
	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	if spec.WorkingDir != "" {
		cmd.Dir = spec.WorkingDir
	} else {
		cmd.Dir = "/"
	}
	cmd.Env = BuildEnv(baseEnv, spec)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	exitCh := make(chan error, 1)
	go func() {
		exitCh <- cmd.Wait()
	}()

	return &spawned{cmd: cmd, exitCh: exitCh}, nil
}

// gentleStop sends SIGTERM to the child's process group and waits up to
// timeout for it to exit before escalating to SIGKILL.
func gentleStop(s *spawned, timeout time.Duration) {
	pgid := s.cmd.Process.Pid
	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	select {
	case <-s.exitCh:
		return
	case <-time.After(timeout):
	}

	_ = syscall.Kill(-pgid, syscall.SIGKILL)
	<-s.exitCh
}

// exitCode extracts a process exit code from the error cmd.Wait() returned
// (nil means 0).
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
