package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"tavily-mcp/internal/adapter/tool"
	"tavily-mcp/internal/infra/config"
	"tavily-mcp/internal/infra/logger"
	"tavily-mcp/internal/infra/tracer"
	"tavily-mcp/internal/usecase"
)

// app holds the wired components shared by serve, tools and call.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	dispatcher *usecase.Dispatcher
	closers    []func(context.Context) error
}

// newApp loads config and wires logger, tracer, tools and dispatcher.
// traceOut receives stdout-exporter spans; it must not be the stdio MCP stream.
func newApp(ctx context.Context, configPath string, traceOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	tracerShutdown, err := tracer.SetupWithWriter(ctx, cfg.Tracer, traceOut)
	if err != nil {
		_ = logCloser()
		return nil, fmt.Errorf("tracer: %w", err)
	}

	reg := buildRegistry(cfg, log)
	a := &app{
		cfg:        cfg,
		logger:     log,
		dispatcher: usecase.NewDispatcher(reg, log),
		closers: []func(context.Context) error{
			tracerShutdown,
			func(context.Context) error { return logCloser() },
		},
	}
	return a, nil
}

// Close releases the tracer and log output in order.
func (a *app) Close(ctx context.Context) {
	for _, c := range a.closers {
		if err := c(ctx); err != nil {
			a.logger.Warn("shutdown", "error", err)
		}
	}
}

// buildRegistry registers simple_search then fetch. Order is the listing order.
func buildRegistry(cfg *config.Config, log *slog.Logger) *tool.Registry {
	var backend tool.SearchBackend = tool.NewTavilyBackend(cfg.Search.BaseURL, cfg.Search.Timeout,
		log.With("component", "search"))
	if cfg.Search.CircuitBreaker.Enabled {
		backend = tool.NewCircuitBreakerBackend(backend, cfg.Search.CircuitBreaker, log)
	}

	reg := tool.NewRegistry(log)
	reg.MustRegister(
		tool.NewSearchTool(backend, config.EnvCredential(cfg.Search.APIKeyEnv), log.With("tool", tool.SearchToolName)),
		tool.NewFetchTool(cfg.Fetch, log.With("tool", tool.FetchToolName)),
	)
	return reg
}
