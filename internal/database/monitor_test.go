package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
)

// captureLogger records every line the monitor emits.
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) Debugf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *captureLogger) all() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

func startedEvent(t *testing.T, cmd bson.M, name string, requestID int64) *event.CommandStartedEvent {
	t.Helper()
	raw, err := bson.Marshal(cmd)
	require.NoError(t, err)
	return &event.CommandStartedEvent{
		Command:      bson.Raw(raw),
		DatabaseName: "docuvault_test",
		CommandName:  name,
		RequestID:    requestID,
		ConnectionID: "localhost:27017[-4]",
	}
}

func TestMonitorLogsLifecycle(t *testing.T) {
	log := &captureLogger{}
	m := NewMonitor(log)
	ctx := context.Background()

	m.started(ctx, startedEvent(t, bson.M{"find": "vehicles"}, "find", 7))
	m.succeeded(ctx, &event.CommandSucceededEvent{
		CommandFinishedEvent: event.CommandFinishedEvent{
			CommandName: "find",
			RequestID:   7,
			Duration:    3 * time.Millisecond,
		},
	})

	out := log.all()
	require.Contains(t, out, "command started find 7")
	require.Contains(t, out, "command succeeded find 7")
	require.Contains(t, out, "db=docuvault_test")

	// span was closed
	_, open := m.spans.Load(spanKey("find", 7))
	require.False(t, open)
}

func TestMonitorFailureClosesSpan(t *testing.T) {
	log := &captureLogger{}
	m := NewMonitor(log)
	ctx := context.Background()

	m.started(ctx, startedEvent(t, bson.M{"update": "vehicles"}, "update", 9))
	m.failed(ctx, &event.CommandFailedEvent{
		CommandFinishedEvent: event.CommandFinishedEvent{
			CommandName: "update",
			RequestID:   9,
			Duration:    time.Millisecond,
		},
		Failure: "duplicate key",
	})

	out := log.all()
	require.Contains(t, out, "command failed update 9")
	require.Contains(t, out, "duplicate key")
	_, open := m.spans.Load(spanKey("update", 9))
	require.False(t, open)
}

func TestMonitorToleratesUnmatchedFinish(t *testing.T) {
	m := NewMonitor(&captureLogger{})

	// a finish with no matching start must not panic or block
	require.NotPanics(t, func() {
		m.succeeded(context.Background(), &event.CommandSucceededEvent{
			CommandFinishedEvent: event.CommandFinishedEvent{CommandName: "ping", RequestID: 1},
		})
	})
}

func TestRedactCommandMasksSensitiveKeys(t *testing.T) {
	cmd := map[string]any{
		"update":     "users",
		"password":   "hunter2",
		"auth_token": "abcdef",
		"payload": map[string]any{
			"base64":        "AAAA...",
			"databaseToken": "xyz",
			"plain":         "ok",
		},
	}

	got := RedactCommand(cmd)
	require.Equal(t, "********", got["password"])
	require.Equal(t, "********", got["auth_token"])

	payload := got["payload"].(map[string]any)
	require.Equal(t, "base64 file content", payload["base64"])
	require.Equal(t, "ok", payload["plain"])

	// the original is untouched
	require.Equal(t, "hunter2", cmd["password"])
}

func TestRedactCommandWalksDecodedShapes(t *testing.T) {
	// shapes as the BSON decoder produces them: bson.D documents inside
	// bson.A arrays
	cmd := map[string]any{
		"insert": "users",
		"documents": bson.A{
			bson.D{{Key: "name", Value: "a"}, {Key: "apiToken", Value: "secret"}},
			bson.D{{Key: "nested", Value: bson.D{{Key: "user_password", Value: "x"}}}},
		},
	}

	got := RedactCommand(cmd)
	docs := got["documents"].([]any)
	first := docs[0].(map[string]any)
	require.Equal(t, "********", first["apiToken"])
	second := docs[1].(map[string]any)
	require.Equal(t, "********", second["nested"].(map[string]any)["user_password"])
}

func TestRedactCommandCollapsesChunkInserts(t *testing.T) {
	cmd := map[string]any{
		"insert":    "fs.chunks",
		"documents": bson.A{bson.D{{Key: "data", Value: make([]byte, 1<<20)}}},
	}

	got := RedactCommand(cmd)
	require.Equal(t, map[string]any{"insert": "fs.chunks"}, got)
}
