package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"tavily-mcp/internal/domain"
)

const (
	// DefaultTavilyBaseURL is the public Tavily API endpoint.
	DefaultTavilyBaseURL = "https://api.tavily.com"

	maxSearchBodySize = 512 * 1024 // 512KB
)

type tavilyRequest struct {
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

// tavilyResponse models the relevant portion of the Tavily search response.
// Results is a pointer so that a missing key can be told apart from [].
type tavilyResponse struct {
	Query        string          `json:"query"`
	Results      *[]tavilyResult `json:"results"`
	ResponseTime float64         `json:"response_time"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// tavilyErrorBody covers both shapes Tavily uses for failures:
// {"detail": {"error": "..."}} and {"detail": "..."}.
type tavilyErrorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// ProviderStatusError is a non-2xx answer from the search provider.
type ProviderStatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error (HTTP %d)", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
}

func (e *ProviderStatusError) Unwrap() error { return domain.ErrProviderError }

// TavilyBackend searches the web via the Tavily REST API.
type TavilyBackend struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewTavilyBackend creates a Tavily backend. An empty baseURL selects the
// public endpoint; timeout bounds each request end to end.
func NewTavilyBackend(baseURL string, timeout time.Duration, logger *slog.Logger) *TavilyBackend {
	if baseURL == "" {
		baseURL = DefaultTavilyBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TavilyBackend{
		client: &http.Client{
			Transport: newPooledTransport(timeout),
			Timeout:   timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (b *TavilyBackend) Name() string { return "tavily" }

func (b *TavilyBackend) Search(ctx context.Context, apiKey, query string, opts domain.SearchOptions) (domain.SearchResponse, error) {
	body, err := json.Marshal(tavilyRequest{
		Query:             query,
		SearchDepth:       string(opts.Depth),
		MaxResults:        opts.MaxResults,
		IncludeAnswer:     opts.IncludeAnswer,
		IncludeRawContent: opts.IncludeRawContent,
	})
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search request: %w", domain.MarkTimeout(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("read response: %w", domain.MarkTimeout(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.SearchResponse{}, &ProviderStatusError{
			Provider:   b.Name(),
			StatusCode: resp.StatusCode,
			Message:    tavilyErrorMessage(raw),
		}
	}

	var tr tavilyResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return domain.SearchResponse{}, fmt.Errorf("parse response: %w", err)
	}

	out := domain.SearchResponse{Query: tr.Query}
	if tr.Results != nil {
		out.HasResults = true
		out.Results = make([]domain.SearchResult, 0, len(*tr.Results))
		for _, r := range *tr.Results {
			out.Results = append(out.Results, domain.SearchResult{
				Title:   r.Title,
				URL:     r.URL,
				Content: r.Content,
				Score:   r.Score,
			})
		}
	}

	b.logger.Debug("tavily search completed",
		"results", len(out.Results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// tavilyErrorMessage pulls a readable message out of an error body, falling
// back to the raw text.
func tavilyErrorMessage(raw []byte) string {
	var eb tavilyErrorBody
	if err := json.Unmarshal(raw, &eb); err == nil && len(eb.Detail) > 0 {
		var nested struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(eb.Detail, &nested); err == nil && nested.Error != "" {
			return nested.Error
		}
		var plain string
		if err := json.Unmarshal(eb.Detail, &plain); err == nil && plain != "" {
			return plain
		}
	}
	msg := strings.TrimSpace(string(raw))
	if r := []rune(msg); len(r) > 200 {
		msg = string(r[:200]) + "..."
	}
	return msg
}

// newPooledTransport returns a transport tuned for repeated calls to a
// single API host.
func newPooledTransport(respTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: respTimeout,
	}
}

var _ SearchBackend = (*TavilyBackend)(nil)
