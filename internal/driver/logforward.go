package driver

import (
	"bufio"
	"io"

	"github.com/hashicorp/go-hclog"

	"github.com/demonhq/demon/internal/task"
)

// logPipe returns the write end of a pipe whose lines are forwarded to log
// as they arrive, tagged with the owning task id. A forwarding failure (the
// read side closing because the child exited) is logged at debug level and
// never propagated — a broken log pipe must never tear down the driver.
func logPipe(log hclog.Logger, id task.ID) (io.Writer, func()) {
	r, w := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			log.Info(scanner.Text(), "task", id)
		}
		if err := scanner.Err(); err != nil {
			log.Debug("log forwarder stopped", "task", id, "error", err)
		}
	}()
	return w, func() {
		_ = r.Close()
		_ = w.Close()
		<-done
	}
}
