package driver

import (
	ps "github.com/mitchellh/go-ps"
)

// IsAlive cross-checks a recorded pid against the OS process table,
// independent of this driver's own exit-channel bookkeeping — a belt and
// suspenders check surfaced by status queries, since a pid can in principle
// be recycled between our last observation and now.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := ps.FindProcess(pid)
	return err == nil && proc != nil
}
