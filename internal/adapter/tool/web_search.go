package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"tavily-mcp/internal/domain"
	"tavily-mcp/internal/infra/tracer"
)

const (
	// SearchToolName is the registered name of the search tool.
	SearchToolName = "simple_search"

	emptyQueryText = "please provide a search query"
	searchPrefix   = "search"
)

// searchProfile is sent with every query. Callers only ever supply the query.
var searchProfile = domain.SearchOptions{
	Depth:             domain.SearchDepthBasic,
	MaxResults:        3,
	IncludeAnswer:     false,
	IncludeRawContent: false,
}

// SearchTool runs a web search and renders the results as markdown.
type SearchTool struct {
	backend    SearchBackend
	credential domain.CredentialSource
	logger     *slog.Logger
}

// NewSearchTool creates the search tool. The credential source is consulted
// on every call.
func NewSearchTool(backend SearchBackend, credential domain.CredentialSource, logger *slog.Logger) *SearchTool {
	return &SearchTool{
		backend:    backend,
		credential: credential,
		logger:     logger,
	}
}

func (t *SearchTool) Name() string { return SearchToolName }
func (t *SearchTool) Description() string {
	return "Search the web for real-time information. Use this for recent events, factual lookups, or current data."
}

func (t *SearchTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search keywords; keep them short and specific"}
			},
			"required": ["query"]
		}`),
	}
}

type searchParams struct {
	Query string `json:"query"`
}

func (t *SearchTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool."+SearchToolName, searchPrefix, t.logger, params,
		func(ctx context.Context, span trace.Span, p searchParams) (any, error) {
			query := strings.TrimSpace(p.Query)
			if query == "" {
				return nil, domain.ValidationError(searchPrefix, emptyQueryText)
			}

			apiKey, err := t.credential.Credential(ctx)
			if err != nil {
				return nil, domain.ConfigError(searchPrefix, "", err)
			}

			span.SetAttributes(
				tracer.StringAttr("search.backend", t.backend.Name()),
				tracer.IntAttr("search.max_results", searchProfile.MaxResults),
			)

			resp, err := t.backend.Search(ctx, apiKey, query, searchProfile)
			if err != nil {
				return nil, domain.NetworkError(searchPrefix, err)
			}

			span.SetAttributes(tracer.IntAttr("search.results", len(resp.Results)))
			t.logger.Debug("search completed", "backend", t.backend.Name(), "results", len(resp.Results))
			return FormatSearchResults(resp), nil
		},
	)
}

var _ domain.Tool = (*SearchTool)(nil)
