package ipc

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadFrame_RoundTrip(t *testing.T) {
	require := require.New(t)
	var buf bytes.Buffer
	require.NoError(WriteFrame(&buf, []byte("hello frame")))

	got, err := ReadFrame(&buf)
	require.NoError(err)
	require.Equal([]byte("hello frame"), got)
}

func TestWriteFrame_RejectsOversizedPayload(t *testing.T) {
	require := require.New(t)
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, maxFrame+1))
	require.Error(err)
	require.Zero(buf.Len())
}

func TestReadFrame_RejectsOversizedLengthPrefix(t *testing.T) {
	require := require.New(t)
	var buf bytes.Buffer
	hdr := []byte{0xff, 0xff, 0xff, 0xff}
	buf.Write(hdr)
	_, err := ReadFrame(&buf)
	require.Error(err)
}

func TestReadFrame_TruncatedPayloadErrors(t *testing.T) {
	require := require.New(t)
	var buf bytes.Buffer
	require.NoError(WriteFrame(&buf, []byte("full payload")))
	truncated := buf.Bytes()[:len(buf.Bytes())-3]
	_, err := ReadFrame(bytes.NewReader(truncated))
	require.Error(err)
}

func TestWriteRequest_ReadEnvelope_RoundTrip(t *testing.T) {
	require := require.New(t)
	var buf bytes.Buffer
	req := TaskOnRequest{ID: "api", On: true}
	require.NoError(WriteRequest(&buf, KindTaskOn, req))

	env, err := ReadEnvelope(&buf)
	require.NoError(err)
	require.Equal(Version, env.Version)
	require.Equal(KindTaskOn, env.Kind)

	var got TaskOnRequest
	require.NoError(json.Unmarshal(env.Body, &got))
	require.Equal(req, got)
}

func TestReadEnvelope_RejectsUnsupportedVersion(t *testing.T) {
	require := require.New(t)
	var buf bytes.Buffer
	require.NoError(WriteFrame(&buf, []byte(`{"version":"V9","kind":"x","body":{}}`)))

	_, err := ReadEnvelope(&buf)
	require.Error(err)
}
