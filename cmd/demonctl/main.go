// Command demonctl is the control client for the task supervisor daemon.
package main

import (
	"os"

	hcli "github.com/hashicorp/cli"

	"github.com/demonhq/demon/internal/ctlcli"
)

func main() {
	c := hcli.NewCLI("demonctl", "0.1.0")
	c.Args = os.Args[1:]
	c.Commands = map[string]hcli.CommandFactory{
		"status":        func() (hcli.Command, error) { return ctlcli.NewStatusCommand(), nil },
		"spec":          func() (hcli.Command, error) { return ctlcli.NewSpecCommand(), nil },
		"on":            func() (hcli.Command, error) { return ctlcli.NewOnCommand(), nil },
		"off":           func() (hcli.Command, error) { return ctlcli.NewOffCommand(), nil },
		"delete":        func() (hcli.Command, error) { return ctlcli.NewDeleteCommand(), nil },
		"wait-started":  func() (hcli.Command, error) { return ctlcli.NewWaitStartedCommand(), nil },
		"wait-stopped":  func() (hcli.Command, error) { return ctlcli.NewWaitStoppedCommand(), nil },
		"upstream":      func() (hcli.Command, error) { return ctlcli.NewUpstreamCommand(), nil },
		"downstream":    func() (hcli.Command, error) { return ctlcli.NewDownstreamCommand(), nil },
		"spec-dirs":     func() (hcli.Command, error) { return ctlcli.NewSpecDirsCommand(), nil },
		"add":           func() (hcli.Command, error) { return ctlcli.NewAddCommand(), nil },
	}

	exitCode, err := c.Run()
	if err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
