// Command demond is the task supervisor daemon.
package main

import (
	"os"

	hcli "github.com/hashicorp/cli"

	"github.com/demonhq/demon/internal/democli"
	"github.com/demonhq/demon/internal/logging"
)

func main() {
	log := logging.New("demond")

	c := hcli.NewCLI("demond", "0.1.0")
	c.Args = os.Args[1:]
	c.Commands = map[string]hcli.CommandFactory{
		"run": func() (hcli.Command, error) {
			return &democli.RunCommand{Log: log}, nil
		},
	}

	exitCode, err := c.Run()
	if err != nil {
		log.Error("cli", "error", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
