// Package observer provides the Observer pattern implementation for workflow
// execution monitoring: a typed event stream (spec.md §4.F) that library
// consumers can subscribe to for real-time run progress.
package observer

import (
	"context"
	"time"
)

// EventType is one of the six lifecycle events the runner emits.
type EventType string

const (
	EventExecutionStart    EventType = "execution:start"
	EventNodeStart         EventType = "node:start"
	EventNodeComplete      EventType = "node:complete"
	EventNodeError         EventType = "node:error"
	EventExecutionError    EventType = "execution:error"
	EventExecutionComplete EventType = "execution:complete"
)

// Progress reports how many distinct nodes have completed against the total
// node count in the workflow, for a coarse completion indicator.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Event carries every field spec.md §4.F names for a single lifecycle
// occurrence. Fields not relevant to a given Type are left zero.
type Event struct {
	Type        EventType `json:"type"`
	ExecutionID string    `json:"executionId"`
	Timestamp   time.Time `json:"timestamp"`

	NodeName string `json:"nodeName,omitempty"`
	NodeType string `json:"nodeType,omitempty"`

	Progress Progress `json:"progress,omitempty"`

	Data  interface{} `json:"data,omitempty"`
	Error error       `json:"error,omitempty"`
}

// Observer receives notifications about run progress. OnEvent must not
// block for long — the Manager already dispatches to each observer on its
// own goroutine, but a slow observer still delays that observer's own view
// of subsequent events.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// Logger is the narrow logging capability the engine needs from a host
// application, independent of any particular logging library.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}
