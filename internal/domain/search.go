package domain

// SearchResult is a single record returned by a search provider.
// A zero Score means the provider did not report one.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// SearchResponse is the provider response as seen by the formatter.
// HasResults is false when the provider omitted the results list entirely.
type SearchResponse struct {
	Query      string
	Results    []SearchResult
	HasResults bool
}

// SearchDepth selects how much work the provider spends per query.
type SearchDepth string

const (
	SearchDepthBasic    SearchDepth = "basic"
	SearchDepthAdvanced SearchDepth = "advanced"
)

// SearchOptions is the parameter profile sent to the provider alongside a query.
type SearchOptions struct {
	Depth             SearchDepth
	MaxResults        int
	IncludeAnswer     bool
	IncludeRawContent bool
}
