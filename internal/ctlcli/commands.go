package ctlcli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

// socketFlag is shared by every subcommand; it defaults to the daemon's
// conventional path but can be overridden per invocation.
func socketFlag(fs *flag.FlagSet) *string {
	return fs.String("socket", "/run/demon.sock", "path to the control socket")
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(b))
}

func oneArg(args []string, name string) (string, bool) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: demonctl %s <task-id>\n", name)
		return "", false
	}
	return args[0], true
}
