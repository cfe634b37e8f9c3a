package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"tavily-mcp/internal/domain"
	"tavily-mcp/internal/infra/tracer"
)

// Dispatcher routes tool calls by name and guarantees that every call,
// including unknown names and panicking tools, yields exactly one result.
type Dispatcher struct {
	tools  domain.ToolExecutor
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over the given tool table.
func NewDispatcher(tools domain.ToolExecutor, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		tools:  tools,
		logger: logger.With("component", "dispatcher"),
	}
}

// ListTools returns the descriptors of every registered tool in registration order.
func (d *Dispatcher) ListTools() []domain.ToolSchema {
	return d.tools.Schemas()
}

// CallTool invokes the named tool. Failures of any kind come back as a
// result with IsError set; CallTool itself never fails.
func (d *Dispatcher) CallTool(ctx context.Context, name string, args json.RawMessage) *domain.ToolResult {
	call := domain.ToolCall{ID: ulid.Make().String(), Name: name, Arguments: args}

	ctx, span := tracer.StartSpan(ctx, "dispatch."+name,
		trace.WithAttributes(
			tracer.StringAttr("tool.name", name),
			tracer.StringAttr("tool.call_id", call.ID),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := d.invoke(ctx, call)
	if err != nil {
		result = &domain.ToolResult{IsError: true, Content: domain.RenderError(name, err)}
	}
	result.ToolCallID = call.ID

	log := d.logger.With("call_id", call.ID, "tool", name, "duration", time.Since(start))
	switch {
	case err != nil:
		code := domain.ErrorCodeOf(err)
		tracer.RecordError(span, err)
		span.SetAttributes(tracer.StringAttr("tool.error_code", string(code)))
		if code == domain.CodeInvalidInput || code == domain.CodeToolNotFound {
			log.Debug("tool call rejected", "outcome", "error", "code", code, "error", err)
		} else {
			log.Warn("tool call failed", "outcome", "error", "code", code, "error", err)
		}
	case result.IsError:
		tracer.RecordError(span, fmt.Errorf("%s", result.Content))
		log.Info("tool call completed", "outcome", "error")
	default:
		tracer.SetOK(span)
		log.Info("tool call completed", "outcome", "ok")
	}
	return result
}

// invoke looks up and runs the tool, converting panics into internal errors.
func (d *Dispatcher) invoke(ctx context.Context, call domain.ToolCall) (result *domain.ToolResult, err error) {
	tool, err := d.tools.Get(call.Name)
	if err != nil {
		if errors.Is(err, domain.ErrToolNotFound) {
			return &domain.ToolResult{IsError: true, Content: "unknown tool: " + call.Name}, nil
		}
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "tool", call.Name, "call_id", call.ID,
				"panic", r, "stack", string(debug.Stack()))
			result = nil
			err = domain.InternalError(call.Name, "unexpected failure", fmt.Errorf("panic: %v", r))
		}
	}()

	result, err = tool.Execute(ctx, call.Arguments)
	if err == nil && result == nil {
		err = domain.InternalError(call.Name, "tool returned no result", nil)
	}
	return result, err
}
