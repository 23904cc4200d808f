package driver

import (
	"net"
	"os"
	"time"
)

// pollReady blocks until check reports ready, or stop is closed, whichever
// comes first. It polls at a fixed one-second interval, mirroring a simple
// connect-and-retry readiness loop.
func pollReady(stop <-chan struct{}, check func() bool) bool {
	if check() {
		return true
	}
	t := time.NewTicker(1 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return false
		case <-t.C:
			if check() {
				return true
			}
		}
	}
}

func tcpSocketCheck(addr string) func() bool {
	return func() bool {
		conn, err := net.DialTimeout("tcp", addr, 1*time.Second)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}

func pathCheck(path string) func() bool {
	return func() bool {
		_, err := os.Stat(path)
		return err == nil
	}
}
