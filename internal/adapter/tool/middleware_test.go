package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"tavily-mcp/internal/domain"
)

// --- Execute tests ---

func TestExecute_Success_JSON(t *testing.T) {
	type params struct {
		Name string `json:"name"`
	}
	raw := json.RawMessage(`{"name":"alice"}`)

	result, err := Execute(context.Background(), "test.tool", "test", nopLogger(), raw,
		func(_ context.Context, _ trace.Span, p params) (any, error) {
			return map[string]string{"greeting": "hello " + p.Name}, nil
		},
	)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}
	if !strings.Contains(result.Content, "hello alice") {
		t.Errorf("expected 'hello alice', got: %s", result.Content)
	}
}

func TestExecute_Success_String(t *testing.T) {
	type params struct{}

	result, err := Execute(context.Background(), "test.tool", "test", nopLogger(), json.RawMessage(`{}`),
		func(_ context.Context, _ trace.Span, _ params) (any, error) {
			return "plain text response", nil
		},
	)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError || result.Content != "plain text response" {
		t.Errorf("got %+v", result)
	}
}

func TestExecute_Success_CustomToolResult(t *testing.T) {
	type params struct{}
	custom := &domain.ToolResult{Content: "custom formatted"}

	result, _ := Execute(context.Background(), "test.tool", "test", nopLogger(), json.RawMessage(`{}`),
		func(_ context.Context, _ trace.Span, _ params) (any, error) {
			return custom, nil
		},
	)
	if result != custom {
		t.Error("expected the handler's ToolResult to be returned as-is")
	}
}

func TestExecute_InvalidJSON(t *testing.T) {
	type params struct {
		Name string `json:"name"`
	}
	called := false

	result, err := Execute(context.Background(), "test.tool", "test", nopLogger(), json.RawMessage(`{bad json}`),
		func(_ context.Context, _ trace.Span, _ params) (any, error) {
			called = true
			return "unreachable", nil
		},
	)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("handler should not run on unparseable params")
	}
	if !result.IsError || !strings.Contains(result.Content, "invalid params") {
		t.Errorf("got %+v", result)
	}
}

func TestExecute_EmptyParams(t *testing.T) {
	type params struct {
		Name string `json:"name"`
	}
	for _, raw := range []json.RawMessage{nil, json.RawMessage(`null`)} {
		var got params
		got.Name = "sentinel"
		_, err := Execute(context.Background(), "test.tool", "test", nopLogger(), raw,
			func(_ context.Context, _ trace.Span, p params) (any, error) {
				got = p
				return "ok", nil
			},
		)
		if err != nil {
			t.Fatal(err)
		}
		if got.Name != "" {
			t.Errorf("raw %q: expected zero params, got %+v", raw, got)
		}
	}
}

func TestExecute_HandlerErrorRendering(t *testing.T) {
	type params struct{}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation verbatim", domain.ValidationError("search", "please provide a search query"), "please provide a search query"},
		{"network", domain.NetworkError("search", errors.New("connection refused")), "search error: connection refused"},
		{"content", domain.ContentError("fetch", "no main content found", domain.ErrNoContent), "fetch error: no main content found"},
		{"untyped uses prefix", errors.New("boom"), "test error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Execute(context.Background(), "test.tool", "test", nopLogger(), json.RawMessage(`{}`),
				func(_ context.Context, _ trace.Span, _ params) (any, error) {
					return nil, tt.err
				},
			)
			if err != nil {
				t.Fatalf("Execute must not return errors, got %v", err)
			}
			if !result.IsError {
				t.Error("expected IsError")
			}
			if result.Content != tt.want {
				t.Errorf("content = %q, want %q", result.Content, tt.want)
			}
		})
	}
}

func TestExecute_LogLevels(t *testing.T) {
	type params struct{}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	run := func(err error) {
		_, _ = Execute(context.Background(), "test.tool", "test", logger, nil,
			func(_ context.Context, _ trace.Span, _ params) (any, error) { return nil, err })
	}

	run(domain.ValidationError("test", "bad input"))
	if buf.Len() != 0 {
		t.Errorf("validation failures should log below warn, got %q", buf.String())
	}

	run(domain.NetworkError("test", errors.New("down")))
	if !strings.Contains(buf.String(), "code=NETWORK") {
		t.Errorf("expected warn with code, got %q", buf.String())
	}
}

func TestFormatResult_MarshalFailure(t *testing.T) {
	type params struct{}
	result, _ := Execute(context.Background(), "test.tool", "test", nopLogger(), nil,
		func(_ context.Context, _ trace.Span, _ params) (any, error) {
			return map[string]any{"ch": make(chan int)}, nil
		},
	)
	if !result.IsError || !strings.HasPrefix(result.Content, "failed to format response") {
		t.Errorf("got %+v", result)
	}
}

func TestParseParams(t *testing.T) {
	type params struct {
		URL string `json:"url"`
	}
	p, bad := ParseParams[params](json.RawMessage(`{"url":"https://go.dev"}`))
	if bad != nil || p.URL != "https://go.dev" {
		t.Errorf("got %+v, %+v", p, bad)
	}

	_, bad = ParseParams[params](json.RawMessage(`{"url":7}`))
	if bad == nil || !bad.IsError {
		t.Error("type mismatch should produce an error result")
	}
}
