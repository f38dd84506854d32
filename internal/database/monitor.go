package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"

	"github.com/docuvault/docuvault/pkg/logger"
	"github.com/docuvault/docuvault/pkg/metrics"
)

const (
	redactedMask      = "********"
	base64Placeholder = "base64 file content"
	chunksCollection  = "fs.chunks"
)

// CommandLogger is the narrow logging surface the monitor needs; the default
// is the package-level logger.
type CommandLogger interface {
	Debugf(format string, v ...interface{})
}

type defaultLogger struct{}

func (defaultLogger) Debugf(format string, v ...interface{}) { logger.Debugf(format, v...) }

// Monitor observes the lifecycle of every command the client executes and
// emits structured started/succeeded/failed log lines with timing. It holds a
// timer span per (commandName, requestID) pair; spans always close, on
// success or failure. The hooks swallow their own errors: observing a command
// must never change its outcome.
type Monitor struct {
	log   CommandLogger
	spans sync.Map // span key -> time.Time
}

func NewMonitor(log CommandLogger) *Monitor {
	if log == nil {
		log = defaultLogger{}
	}
	return &Monitor{log: log}
}

// CommandMonitor adapts the monitor to the driver's hook signatures.
func (m *Monitor) CommandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started:   m.started,
		Succeeded: m.succeeded,
		Failed:    m.failed,
	}
}

func spanKey(commandName string, requestID int64) string {
	return fmt.Sprintf("%s %d", commandName, requestID)
}

func (m *Monitor) started(_ context.Context, evt *event.CommandStartedEvent) {
	defer func() { _ = recover() }()
	m.spans.Store(spanKey(evt.CommandName, evt.RequestID), time.Now())
	m.log.Debugf("mongodb: command started %s %d db=%s conn=%s command=%s",
		evt.CommandName, evt.RequestID, evt.DatabaseName, evt.ConnectionID, commandJSON(evt.Command))
}

func (m *Monitor) succeeded(_ context.Context, evt *event.CommandSucceededEvent) {
	defer func() { _ = recover() }()
	d := m.closeSpan(evt.CommandName, evt.RequestID, evt.Duration)
	metrics.CommandDuration.WithLabelValues(evt.CommandName, "ok").Observe(d.Seconds())
	m.log.Debugf("mongodb: command succeeded %s %d conn=%s duration=%s",
		evt.CommandName, evt.RequestID, evt.ConnectionID, d)
}

func (m *Monitor) failed(_ context.Context, evt *event.CommandFailedEvent) {
	defer func() { _ = recover() }()
	d := m.closeSpan(evt.CommandName, evt.RequestID, evt.Duration)
	metrics.CommandDuration.WithLabelValues(evt.CommandName, "failed").Observe(d.Seconds())
	m.log.Debugf("mongodb: command failed %s %d conn=%s duration=%s error=%s",
		evt.CommandName, evt.RequestID, evt.ConnectionID, d, evt.Failure)
}

// closeSpan removes the span and returns the driver-reported duration,
// falling back to the span's own clock when the driver gives none.
func (m *Monitor) closeSpan(commandName string, requestID int64, reported time.Duration) time.Duration {
	v, ok := m.spans.LoadAndDelete(spanKey(commandName, requestID))
	if reported > 0 {
		return reported
	}
	if ok {
		return time.Since(v.(time.Time))
	}
	return 0
}

// commandJSON renders a redacted copy of the command body. Failures degrade
// to a placeholder, never to a panic or an error return.
func commandJSON(raw bson.Raw) string {
	var cmd map[string]any
	if err := bson.Unmarshal(raw, &cmd); err != nil {
		return "<undecodable>"
	}
	b, err := json.Marshal(RedactCommand(cmd))
	if err != nil {
		return "<unencodable>"
	}
	return string(b)
}

// RedactCommand walks the command body masking sensitive values: any key
// containing "password" or "token" is masked, a field literally named
// "base64" is replaced with a placeholder at any depth, and a bulk insert
// into the chunk collection collapses to a single-key marker so chunk
// payloads are never logged.
func RedactCommand(cmd map[string]any) map[string]any {
	if name, ok := cmd["insert"].(string); ok && name == chunksCollection {
		return map[string]any{"insert": name}
	}
	return redactMap(cmd)
}

func redactMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = redactValue(k, v)
	}
	return out
}

func redactValue(key string, v any) any {
	lower := strings.ToLower(key)
	if strings.Contains(lower, "password") || strings.Contains(lower, "token") {
		return redactedMask
	}
	if key == "base64" {
		return base64Placeholder
	}
	switch vv := v.(type) {
	case map[string]any:
		return redactMap(vv)
	case bson.M:
		return redactMap(map[string]any(vv))
	case bson.D:
		return redactDoc(vv)
	case bson.A:
		return redactSlice([]any(vv))
	case []any:
		return redactSlice(vv)
	}
	return v
}

// redactDoc handles the ordered document shape the BSON decoder produces for
// nested values.
func redactDoc(in bson.D) map[string]any {
	out := make(map[string]any, len(in))
	for _, e := range in {
		out[e.Key] = redactValue(e.Key, e.Value)
	}
	return out
}

func redactSlice(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		switch vv := v.(type) {
		case map[string]any:
			out[i] = redactMap(vv)
		case bson.M:
			out[i] = redactMap(map[string]any(vv))
		case bson.D:
			out[i] = redactDoc(vv)
		case bson.A:
			out[i] = redactSlice([]any(vv))
		case []any:
			out[i] = redactSlice(vv)
		default:
			out[i] = v
		}
	}
	return out
}
