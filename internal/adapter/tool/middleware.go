package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"tavily-mcp/internal/domain"
	"tavily-mcp/internal/infra/tracer"
)

// Execute is the standard tool execution pipeline: parse params -> start trace -> run handler -> render result.
//
// prefix labels rendered failures ("search", "fetch"). The handler receives
// the parsed params and an active trace span. It should return:
//   - (string, nil): wrapped in a plain-text ToolResult
//   - (*domain.ToolResult, nil): returned as-is
//   - (nil, error): rendered with domain.RenderError into an error ToolResult
//
// Execute never returns a non-nil error; every failure becomes result text.
func Execute[P any](
	ctx context.Context,
	spanName, prefix string,
	logger *slog.Logger,
	rawParams json.RawMessage,
	handler func(ctx context.Context, span trace.Span, params P) (any, error),
) (*domain.ToolResult, error) {
	ctx, span := tracer.StartSpan(ctx, spanName,
		trace.WithAttributes(tracer.StringAttr("tool.name", spanName)),
	)
	defer span.End()

	p, bad := ParseParams[P](rawParams)
	if bad != nil {
		tracer.RecordError(span, fmt.Errorf("%s", bad.Content))
		return bad, nil
	}

	result, err := handler(ctx, span, p)
	if err != nil {
		tracer.RecordError(span, err)
		span.SetAttributes(tracer.StringAttr("tool.error_code", string(domain.ErrorCodeOf(err))))
		logFailure(logger, spanName, err)
		return &domain.ToolResult{IsError: true, Content: domain.RenderError(prefix, err)}, nil
	}

	return formatResult(span, result)
}

// logFailure logs caller mistakes at debug and everything else at warn.
func logFailure(logger *slog.Logger, spanName string, err error) {
	code := domain.ErrorCodeOf(err)
	if code == domain.CodeInvalidInput {
		logger.Debug(spanName+" rejected input", "error", err)
		return
	}
	logger.Warn(spanName+" failed", "error", err, "code", code)
}

// formatResult converts the handler's return value into a ToolResult.
func formatResult(span trace.Span, result any) (*domain.ToolResult, error) {
	switch v := result.(type) {
	case *domain.ToolResult:
		if v.IsError {
			tracer.RecordError(span, fmt.Errorf("%s", v.Content))
		} else {
			tracer.SetOK(span)
		}
		return v, nil
	case string:
		tracer.SetOK(span)
		return &domain.ToolResult{Content: v}, nil
	default:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			tracer.RecordError(span, err)
			return &domain.ToolResult{
				IsError: true,
				Content: fmt.Sprintf("failed to format response: %v", err),
			}, nil
		}
		tracer.SetOK(span)
		return &domain.ToolResult{Content: string(data)}, nil
	}
}

// ParseParams unmarshals rawParams into P and returns it.
// On failure it returns a ToolResult with IsError=true, suitable for returning directly.
// Empty params decode as an empty object.
func ParseParams[P any](rawParams json.RawMessage) (P, *domain.ToolResult) {
	var p P
	if len(rawParams) == 0 || string(rawParams) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return p, &domain.ToolResult{
			IsError: true,
			Content: fmt.Sprintf("invalid params: %v", err),
		}
	}
	return p, nil
}

