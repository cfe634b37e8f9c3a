package tool

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"tavily-mcp/internal/domain"
)

const (
	searchHeading   = "## Search Results\n\n"
	noResultsText   = "no results found"
	untitledResult  = "Untitled"
	summaryMaxRunes = 200
	summaryEllipsis = "..."
)

// FormatSearchResults renders a provider response as markdown. Results keep
// provider order. The output depends only on resp.
func FormatSearchResults(resp domain.SearchResponse) string {
	if !resp.HasResults || len(resp.Results) == 0 {
		return noResultsText
	}

	var sb strings.Builder
	sb.WriteString(searchHeading)
	for i, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = untitledResult
		}
		fmt.Fprintf(&sb, "### %d. %s\n", i+1, title)
		if r.URL != "" {
			fmt.Fprintf(&sb, "**URL**: %s\n", r.URL)
		}
		if r.Score != 0 {
			fmt.Fprintf(&sb, "**Relevance**: %.2f\n", r.Score)
		}
		if r.Content != "" {
			summary, cut := truncateRunes(r.Content, summaryMaxRunes)
			if cut {
				summary += summaryEllipsis
			}
			fmt.Fprintf(&sb, "**Summary**: %s\n", summary)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// truncateRunes returns the first n runes of s and whether anything was cut.
func truncateRunes(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
