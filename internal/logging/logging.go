// Package logging centralizes the daemon's structured logger construction.
package logging

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// New builds the daemon's root logger, named per component, reading its
// level from the DEMON_LOG_LEVEL environment variable (defaulting to info).
func New(name string) hclog.Logger {
	level := hclog.LevelFromString(os.Getenv("DEMON_LOG_LEVEL"))
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		Output:     os.Stderr,
		JSONFormat: os.Getenv("DEMON_LOG_JSON") != "",
	})
}
