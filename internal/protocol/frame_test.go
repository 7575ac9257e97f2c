package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScannerDecodesFrames(t *testing.T) {
	input := "{\"type\":\"REGISTER\",\"username\":\"alice\"}\n{\"type\":\"LIST_GAMES\"}\n"
	s := NewScanner(strings.NewReader(input))

	var first map[string]any
	require.NoError(t, s.Next(&first))
	require.Equal(t, "REGISTER", first["type"])
	require.Equal(t, "alice", first["username"])

	var second map[string]any
	require.NoError(t, s.Next(&second))
	require.Equal(t, "LIST_GAMES", second["type"])

	var third map[string]any
	require.ErrorIs(t, s.Next(&third), io.EOF)
}

func TestScannerSkipsBlankAndMalformedLines(t *testing.T) {
	input := "\n   \nnot json\n{\"type\":\"CHAT\"}\n"
	s := NewScanner(strings.NewReader(input))

	var msg map[string]any
	require.NoError(t, s.Next(&msg))
	require.Equal(t, "CHAT", msg["type"])
}

func TestScannerRejectsHTTPProbe(t *testing.T) {
	for _, line := range []string{"GET / HTTP/1.1\r\n", "HEAD / HTTP/1.1\r\n", "POST /api HTTP/1.1\r\n"} {
		s := NewScanner(strings.NewReader(line))
		var msg map[string]any
		require.ErrorIs(t, s.Next(&msg), ErrHTTPProbe)
	}
}

func TestWriterFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteFrame(map[string]any{"type": "REGISTER_OK", "username": "bob"}))

	s := NewScanner(&buf)
	var msg map[string]any
	require.NoError(t, s.Next(&msg))
	require.Equal(t, "REGISTER_OK", msg["type"])
	require.Equal(t, "bob", msg["username"])
}

func TestLooksLikeHTTP(t *testing.T) {
	require.True(t, LooksLikeHTTP("GET / HTTP/1.1"))
	require.False(t, LooksLikeHTTP("{\"type\":\"REGISTER\"}"))
}
