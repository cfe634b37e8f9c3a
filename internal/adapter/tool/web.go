package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html/charset"

	"tavily-mcp/internal/domain"
	"tavily-mcp/internal/infra/config"
	"tavily-mcp/internal/infra/tracer"
	"tavily-mcp/internal/security"
)

const (
	// FetchToolName is the registered name of the fetch tool.
	FetchToolName = "fetch"

	fetchPrefix           = "fetch"
	invalidURLText        = "fetch error: invalid URL, must start with http:// or https://"
	processingFailureText = "failed to process page content"
	fetchAccept           = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	defaultMaxBodySize  = 5 * 1024 * 1024 // 5MB
	defaultMaxRedirects = 5
)

// FetchTool downloads a page and returns its readable text.
type FetchTool struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	guard       *security.Guard // nil unless private networks are blocked
	logger      *slog.Logger
}

// NewFetchTool creates the fetch tool. When cfg.BlockPrivateNetworks is set,
// every connection, redirects included, goes through the SSRF guard.
func NewFetchTool(cfg config.FetchConfig, logger *slog.Logger) *FetchTool {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	maxRedirects := cfg.MaxRedirects
	if maxRedirects < 0 {
		maxRedirects = defaultMaxRedirects
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if !hasHTTPScheme(req.URL.String()) {
				return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
			}
			return nil
		},
	}
	var guard *security.Guard
	if cfg.BlockPrivateNetworks {
		guard = security.NewGuard(nil)
		client.Transport = guard.Transport()
	}

	return &FetchTool{
		client:      client,
		userAgent:   ua,
		maxBodySize: maxBody,
		guard:       guard,
		logger:      logger,
	}
}

func (t *FetchTool) Name() string { return FetchToolName }
func (t *FetchTool) Description() string {
	return "Fetch a web page and return its main text content. Long pages are truncated to 4000 characters."
}

func (t *FetchTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"url": {"type": "string", "description": "Absolute http:// or https:// URL of the page to fetch"}
			},
			"required": ["url"]
		}`),
	}
}

type fetchParams struct {
	URL string `json:"url"`
}

func (t *FetchTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool."+FetchToolName, fetchPrefix, t.logger, params,
		func(ctx context.Context, span trace.Span, p fetchParams) (any, error) {
			if !hasHTTPScheme(p.URL) {
				return nil, domain.ValidationError(fetchPrefix, invalidURLText)
			}
			span.SetAttributes(tracer.StringAttr("fetch.url", p.URL))

			// The transport checks again at dial time; this gives the caller
			// the resolved address instead of a dial error.
			if t.guard != nil {
				if err := t.guard.CheckURL(ctx, p.URL); err != nil {
					return nil, domain.NetworkError(fetchPrefix, err)
				}
			}

			page, status, err := t.get(ctx, p.URL)
			if err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.IntAttr("http.status_code", status))

			text, err := ExtractText(page)
			if errors.Is(err, domain.ErrNoContent) {
				return nil, domain.ContentError(fetchPrefix, domain.ErrNoContent.Error(), err)
			}
			if err != nil {
				return nil, domain.InternalError(fetchPrefix, processingFailureText, err)
			}

			out := TruncateText(text, MaxFetchRunes)
			span.SetAttributes(
				tracer.IntAttr("fetch.text_runes", utf8.RuneCountInString(text)),
				tracer.BoolAttr("fetch.truncated", len(out) != len(text)),
			)
			t.logger.Debug("fetch completed", "url", p.URL, "status", status, "bytes", len(page))
			return out, nil
		},
	)
}

// get performs the single GET and returns the body decoded to UTF-8 using the
// Content-Type charset or the page's <meta charset>. Failures come back as
// ToolErrors ready for rendering.
func (t *FetchTool) get(ctx context.Context, rawURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, domain.ValidationError(fetchPrefix, invalidURLText)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", fetchAccept)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", 0, domain.NetworkError(fetchPrefix, domain.MarkTimeout(unwrapURLError(err)))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", resp.StatusCode, domain.NetworkError(fetchPrefix, fmt.Errorf("HTTP %s", statusLine(resp)))
	}

	r, err := charset.NewReader(io.LimitReader(resp.Body, t.maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", resp.StatusCode, domain.InternalError(fetchPrefix, processingFailureText, err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", resp.StatusCode, domain.NetworkError(fetchPrefix, domain.MarkTimeout(fmt.Errorf("read body: %w", err)))
	}
	return string(body), resp.StatusCode, nil
}

// statusLine renders "404 Not Found" from a response.
func statusLine(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

// unwrapURLError drops the `Get "<url>":` prefix that net/http adds; the
// caller already knows which URL it asked for.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}

func hasHTTPScheme(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

var _ domain.Tool = (*FetchTool)(nil)
