package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := Message{Type: TypeParameterSize, Payload: ParameterSize{N: 7}}

	require.NoError(t, WriteFrame(&buf, msg))

	got, err := ReadFrame(&buf, DefaultMaxFrameBytes)
	require.NoError(t, err)
	require.Equal(t, TypeParameterSize, got.Type)
	require.Equal(t, ParameterSize{N: 7}, got.Payload)
}

func TestReadFrameRejectsOversizedDeclaredLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, Message{Type: TypeNone, Payload: None{}}))

	_, err := ReadFrame(&buf, 2)
	require.Error(t, err)
	require.IsType(t, &FrameTooLarge{}, err)
}

func TestReadFrameRejectsTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, Message{Type: TypeNone, Payload: None{}}))

	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-1])
	_, err := ReadFrame(truncated, DefaultMaxFrameBytes)
	require.Error(t, err)
	require.IsType(t, &FrameTruncated{}, err)
}
