// Package ctlcli implements the control-client binary's command surface: a
// thin, process-per-invocation wrapper around the IPC protocol with no
// graph logic of its own — every subcommand is a marshal-request /
// unmarshal-response pair.
package ctlcli

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/demonhq/demon/internal/ipc"
)

// call opens a fresh connection to socketPath, sends one request under kind,
// and decodes the response into out. If the server answers with an error
// envelope, that error is returned instead.
func call(socketPath, kind string, req any, out any) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if err := ipc.WriteRequest(conn, kind, req); err != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	env, err := ipc.ReadEnvelope(conn)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if env.Kind == ipc.KindError {
		var errResp ipc.ErrorResponse
		if err := json.Unmarshal(env.Body, &errResp); err != nil {
			return fmt.Errorf("decoding error response: %w", err)
		}
		return fmt.Errorf("%s: %s", errResp.Kind, errResp.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Body, out)
}
