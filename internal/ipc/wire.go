// Package ipc defines the control-socket wire protocol: a length-prefixed
// JSON envelope carrying one request and one response per connection.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrame bounds a single message to guard against a misbehaving client
// claiming an absurd length prefix.
const maxFrame = 16 * 1024 * 1024

// WriteFrame writes a 4-byte big-endian length prefix followed by payload.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrame {
		return fmt.Errorf("ipc: frame too large: %d bytes", len(payload))
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed payload from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrame {
		return nil, fmt.Errorf("ipc: frame too large: %d bytes", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Version is the envelope schema version. Only V1 is defined.
const Version = "V1"

// Envelope wraps a request or response with its protocol version.
type Envelope struct {
	Version string          `json:"version"`
	Kind    string          `json:"kind"`
	Body    json.RawMessage `json:"body"`
}

// WriteRequest frames and writes req under kind as a V1 envelope.
func WriteRequest(w io.Writer, kind string, req any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	env := Envelope{Version: Version, Kind: kind, Body: body}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

// ReadEnvelope reads and decodes one framed envelope.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, err
	}
	if env.Version != Version {
		return Envelope{}, fmt.Errorf("ipc: unsupported envelope version %q", env.Version)
	}
	return env, nil
}
