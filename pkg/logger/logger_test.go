package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
)

// capture swaps the package logger for an in-memory buffer for one test.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := logger
	logger = log.New(&buf, "", 0)
	t.Cleanup(func() { logger = orig })
	return &buf
}

func TestInitNormalizesLevelNames(t *testing.T) {
	for in, want := range map[string]string{
		"debug":    "debug",
		"WARN":     "warn",
		"warning":  "warn",
		"Error":    "error",
		" info ":   "info",
		"nonsense": "info",
		"":         "info",
	} {
		Init(in)
		require.Equal(t, want, LevelString(), "Init(%q)", in)
	}
}

func TestLevelFiltersCommandLogLines(t *testing.T) {
	buf := capture(t)
	defer Init("info")

	// at warn level the per-command debug chatter must be dropped
	Init("warn")
	Debugf("mongodb: command started find 1")
	Infof("listening on :5002")
	Warnf("mongo disconnect: %v", "timeout")
	Errorf("serve file %s: short read", "abc")

	out := buf.String()
	require.NotContains(t, out, "command started")
	require.NotContains(t, out, "listening")
	require.Contains(t, out, "[WARN] mongo disconnect: timeout")
	require.Contains(t, out, "[ERROR] serve file abc: short read")
}

func TestPrintlnMapsToInfo(t *testing.T) {
	buf := capture(t)
	defer Init("info")

	Init("warn")
	Println("suppressed")
	require.NotContains(t, buf.String(), "suppressed")

	Init("info")
	buf.Reset()
	Println("emitted")
	require.Contains(t, buf.String(), "emitted")
}
