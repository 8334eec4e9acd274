package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yesoreyeram/fluxweave/pkg/observer"
)

// TelemetryObserver implements observer.Observer and records telemetry data
// for workflow execution events.
type TelemetryObserver struct {
	provider *Provider

	executionSpan trace.Span
	nodeSpans     map[string]trace.Span

	executionStartTime time.Time
	nodeStartTimes     map[string]time.Time
}

// NewTelemetryObserver creates a new telemetry observer
func NewTelemetryObserver(provider *Provider) *TelemetryObserver {
	return &TelemetryObserver{
		provider:       provider,
		nodeSpans:      make(map[string]trace.Span),
		nodeStartTimes: make(map[string]time.Time),
	}
}

// OnEvent handles execution events and records telemetry data
func (o *TelemetryObserver) OnEvent(ctx context.Context, event observer.Event) {
	switch event.Type {
	case observer.EventExecutionStart:
		o.handleExecutionStart(ctx, event)
	case observer.EventExecutionComplete:
		o.handleExecutionComplete(ctx, event, nil)
	case observer.EventExecutionError:
		o.handleExecutionComplete(ctx, event, event.Error)
	case observer.EventNodeStart:
		o.handleNodeStart(ctx, event)
	case observer.EventNodeComplete:
		o.handleNodeEnd(ctx, event, true)
	case observer.EventNodeError:
		o.handleNodeEnd(ctx, event, false)
	}
}

func (o *TelemetryObserver) handleExecutionStart(ctx context.Context, event observer.Event) {
	_, span := o.provider.Tracer().Start(ctx, "workflow.execute",
		trace.WithAttributes(
			attribute.String("execution.id", event.ExecutionID),
		),
	)

	o.executionSpan = span
	o.executionStartTime = event.Timestamp
}

func (o *TelemetryObserver) handleExecutionComplete(ctx context.Context, event observer.Event, execErr error) {
	duration := time.Since(o.executionStartTime)

	nodesExecuted := 0
	if data, ok := event.Data.(map[string]interface{}); ok {
		if count, ok := data["nodeCount"].(int); ok {
			nodesExecuted = count
		}
	}

	o.provider.RecordWorkflowExecution(ctx, event.ExecutionID, duration, execErr == nil, nodesExecuted)

	if o.executionSpan != nil {
		if execErr != nil {
			o.executionSpan.RecordError(execErr)
			o.executionSpan.SetStatus(codes.Error, execErr.Error())
		} else {
			o.executionSpan.SetStatus(codes.Ok, "execution completed")
		}
		o.executionSpan.End()
	}
}

func (o *TelemetryObserver) handleNodeStart(ctx context.Context, event observer.Event) {
	var spanCtx context.Context
	if o.executionSpan != nil {
		spanCtx = trace.ContextWithSpan(ctx, o.executionSpan)
	} else {
		spanCtx = ctx
	}

	_, span := o.provider.Tracer().Start(spanCtx, "node.execute",
		trace.WithAttributes(
			attribute.String("node.name", event.NodeName),
			attribute.String("node.type", event.NodeType),
			attribute.String("execution.id", event.ExecutionID),
		),
	)

	o.nodeSpans[event.NodeName] = span
	o.nodeStartTimes[event.NodeName] = event.Timestamp
}

func (o *TelemetryObserver) handleNodeEnd(ctx context.Context, event observer.Event, success bool) {
	var duration time.Duration
	if startTime, ok := o.nodeStartTimes[event.NodeName]; ok {
		duration = time.Since(startTime)
		delete(o.nodeStartTimes, event.NodeName)
	}

	o.provider.RecordNodeExecution(ctx, event.NodeName, event.NodeType, duration, success)

	if span, ok := o.nodeSpans[event.NodeName]; ok {
		if event.Error != nil {
			span.RecordError(event.Error)
			span.SetStatus(codes.Error, event.Error.Error())
		} else {
			span.SetStatus(codes.Ok, "node completed")
		}
		span.End()
		delete(o.nodeSpans, event.NodeName)
	}
}
