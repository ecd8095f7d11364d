// Package otel bridges the observe.Sink to OpenTelemetry tracing.
//
// It converts observe.Event objects into OTel spans so that workflow
// threads, node executions, tool calls, and provider interactions are
// visible in any OpenTelemetry-compatible backend.
package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/postpilothq/postpilot/observe"
)

const instrumentationName = "github.com/postpilothq/postpilot"

// Sink implements observe.Sink by emitting OpenTelemetry spans.
type Sink struct {
	tracer trace.Tracer
}

// NewSink creates an OTel sink using the given TracerProvider.
// If tp is nil, it uses a noop tracer provider.
func NewSink(tp trace.TracerProvider) *Sink {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Sink{
		tracer: tp.Tracer(instrumentationName),
	}
}

// Emit converts an observe.Event into an OTel span.
func (s *Sink) Emit(_ context.Context, event observe.Event) error {
	event.Normalize()

	startTime := event.Timestamp
	_, span := s.tracer.Start(context.Background(), spanNameFor(event), trace.WithTimestamp(startTime))

	attrs := []attribute.KeyValue{
		attribute.String("workflow.event.kind", string(event.Kind)),
	}
	if event.ThreadID != "" {
		attrs = append(attrs, attribute.String("workflow.thread.id", event.ThreadID))
	}
	if event.UserID != "" {
		attrs = append(attrs, attribute.String("workflow.user.id", event.UserID))
	}
	if event.Provider != "" {
		attrs = append(attrs, attribute.String("workflow.provider", event.Provider))
	}
	if event.ToolName != "" {
		attrs = append(attrs, attribute.String("workflow.tool.name", event.ToolName))
	}
	if event.Name != "" {
		attrs = append(attrs, attribute.String("workflow.event.name", event.Name))
	}
	if event.Status != "" {
		attrs = append(attrs, attribute.String("workflow.status", string(event.Status)))
	}
	if event.Message != "" {
		attrs = append(attrs, attribute.String("workflow.message", truncate(event.Message, 1024)))
	}
	for k, v := range event.Attributes {
		attrs = append(attrs, attribute.String("workflow.attr."+k, fmt.Sprintf("%v", v)))
	}
	span.SetAttributes(attrs...)

	if event.Status == observe.StatusFailed {
		span.SetStatus(codes.Error, event.Error)
		if event.Error != "" {
			span.RecordError(fmt.Errorf("%s", event.Error))
		}
	} else if event.Status == observe.StatusCompleted {
		span.SetStatus(codes.Ok, "")
	}

	endTime := startTime
	if event.DurationMs > 0 {
		endTime = startTime.Add(time.Duration(event.DurationMs) * time.Millisecond)
	}
	span.End(trace.WithTimestamp(endTime))
	return nil
}

func spanNameFor(event observe.Event) string {
	switch event.Kind {
	case observe.KindThread:
		return "workflow.thread"
	case observe.KindProvider:
		if event.Provider != "" {
			return "workflow.llm." + event.Provider
		}
		return "workflow.llm.generate"
	case observe.KindTool:
		if event.ToolName != "" {
			return "workflow.tool." + event.ToolName
		}
		return "workflow.tool.call"
	case observe.KindGraph:
		if event.Name != "" {
			return "workflow.node." + event.Name
		}
		return "workflow.node.step"
	case observe.KindCheckpoint:
		return "workflow.checkpoint"
	default:
		if event.Name != "" {
			return "workflow." + event.Name
		}
		return "workflow.event"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
