// Package democli implements the daemon binary's command surface: a single
// "run" subcommand that loads a configuration file and serves until a
// termination signal.
package democli

import (
	"flag"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/demonhq/demon/internal/config"
	"github.com/demonhq/demon/internal/supervisor"
)

// RunCommand implements `demond run <config-file>`.
type RunCommand struct {
	Log hclog.Logger
}

func (c *RunCommand) Synopsis() string {
	return "Load a configuration file and run the supervisor until terminated"
}

func (c *RunCommand) Help() string {
	var b strings.Builder
	b.WriteString("Usage: demond run <config-file>\n\n")
	b.WriteString(c.Synopsis())
	b.WriteString("\n")
	return b.String()
}

func (c *RunCommand) Run(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Println(c.Help())
		return 1
	}

	cfg, err := config.LoadDaemonConfig(rest[0])
	if err != nil {
		c.Log.Error("loading configuration", "error", err)
		return 1
	}

	d, err := supervisor.Build(c.Log, cfg)
	if err != nil {
		c.Log.Error("building supervisor", "error", err)
		return 1
	}

	if err := d.Run(); err != nil {
		c.Log.Error("running supervisor", "error", err)
		return 1
	}
	return 0
}
