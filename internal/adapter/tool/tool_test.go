package tool

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"tavily-mcp/internal/domain"
)

// nopLogger returns a logger that discards output.
func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSearchBackend implements SearchBackend for testing.
type mockSearchBackend struct {
	mu        sync.Mutex
	resp      domain.SearchResponse
	err       error
	callCount int
	lastKey   string
	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchBackend) Search(_ context.Context, apiKey, query string, opts domain.SearchOptions) (domain.SearchResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.lastKey, m.lastQuery, m.lastOpts = apiKey, query, opts
	if m.err != nil {
		return domain.SearchResponse{}, m.err
	}
	return m.resp, nil
}

func (m *mockSearchBackend) Name() string { return "mock" }

func (m *mockSearchBackend) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// stubTool is a minimal tool with a configurable schema and behavior.
type stubTool struct {
	name   string
	schema json.RawMessage
	result *domain.ToolResult
	err    error
	calls  int
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        s.name,
		Description: "stub",
		Parameters:  s.schema,
	}
}
func (s *stubTool) Execute(_ context.Context, _ json.RawMessage) (*domain.ToolResult, error) {
	s.calls++
	return s.result, s.err
}
