package tool

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"tavily-mcp/internal/domain"
)

func TestFormatSearchResults_NoResults(t *testing.T) {
	tests := []struct {
		name string
		resp domain.SearchResponse
	}{
		{"zero value", domain.SearchResponse{}},
		{"results key missing", domain.SearchResponse{Query: "go", HasResults: false}},
		{"empty list", domain.SearchResponse{Query: "go", HasResults: true, Results: []domain.SearchResult{}}},
		{"missing key ignores stray results", domain.SearchResponse{Results: []domain.SearchResult{{Title: "x"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSearchResults(tt.resp); got != noResultsText {
				t.Errorf("got %q, want %q", got, noResultsText)
			}
		})
	}
}

func TestFormatSearchResults_FullRecord(t *testing.T) {
	resp := domain.SearchResponse{
		HasResults: true,
		Results: []domain.SearchResult{
			{Title: "Go 1.26 released", URL: "https://go.dev/blog", Content: "Release notes", Score: 0.91234},
		},
	}
	want := "## Search Results\n\n" +
		"### 1. Go 1.26 released\n" +
		"**URL**: https://go.dev/blog\n" +
		"**Relevance**: 0.91\n" +
		"**Summary**: Release notes\n" +
		"\n"
	if got := FormatSearchResults(resp); got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestFormatSearchResults_OptionalFields(t *testing.T) {
	resp := domain.SearchResponse{
		HasResults: true,
		Results:    []domain.SearchResult{{}},
	}
	want := "## Search Results\n\n### 1. Untitled\n\n"
	if got := FormatSearchResults(resp); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatSearchResults_ScoreRounding(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{1, "**Relevance**: 1.00\n"},
		{0.005, "**Relevance**: 0.01\n"},
		{0.004, "**Relevance**: 0.00\n"},
		{0.8765, "**Relevance**: 0.88\n"},
	}
	for _, tt := range tests {
		out := FormatSearchResults(domain.SearchResponse{
			HasResults: true,
			Results:    []domain.SearchResult{{Title: "t", Score: tt.score}},
		})
		if !strings.Contains(out, tt.want) {
			t.Errorf("score %v: output %q missing %q", tt.score, out, tt.want)
		}
	}
}

func TestFormatSearchResults_SummaryTruncation(t *testing.T) {
	exact := strings.Repeat("a", 200)
	long := strings.Repeat("b", 201)
	wide := strings.Repeat("世", 250)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"exactly 200 kept verbatim", exact, "**Summary**: " + exact + "\n"},
		{"201 cut to 200 plus ellipsis", long, "**Summary**: " + long[:200] + "...\n"},
		{"counts runes not bytes", wide, "**Summary**: " + strings.Repeat("世", 200) + "...\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatSearchResults(domain.SearchResponse{
				HasResults: true,
				Results:    []domain.SearchResult{{Title: "t", Content: tt.content}},
			})
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q missing %q", out, tt.want)
			}
		})
	}
}

func TestFormatSearchResults_OrderAndNumbering(t *testing.T) {
	var results []domain.SearchResult
	for i := 0; i < 5; i++ {
		results = append(results, domain.SearchResult{Title: fmt.Sprintf("result-%d", i)})
	}
	out := FormatSearchResults(domain.SearchResponse{HasResults: true, Results: results})

	if !strings.HasPrefix(out, searchHeading) {
		t.Fatalf("missing heading: %q", out)
	}
	if n := strings.Count(out, "\n### "); n != len(results) {
		t.Errorf("got %d sections, want %d", n, len(results))
	}
	last := 0
	for i := range results {
		section := fmt.Sprintf("### %d. result-%d\n", i+1, i)
		idx := strings.Index(out, section)
		if idx < last {
			t.Fatalf("section %q missing or out of order", section)
		}
		last = idx
	}
}

func TestFormatSearchResults_Deterministic(t *testing.T) {
	resp := domain.SearchResponse{
		HasResults: true,
		Results: []domain.SearchResult{
			{Title: "a", URL: "https://a", Content: "x", Score: 0.5},
			{Title: "b", URL: "https://b", Content: "y"},
		},
	}
	first := FormatSearchResults(resp)
	for i := 0; i < 10; i++ {
		if got := FormatSearchResults(resp); got != first {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in      string
		n       int
		want    string
		wantCut bool
	}{
		{"", 3, "", false},
		{"abc", 3, "abc", false},
		{"abcd", 3, "abc", true},
		{"héllo", 2, "hé", true},
		{"日本語テキスト", 3, "日本語", true},
	}
	for _, tt := range tests {
		got, cut := truncateRunes(tt.in, tt.n)
		if got != tt.want || cut != tt.wantCut {
			t.Errorf("truncateRunes(%q, %d) = %q, %v; want %q, %v", tt.in, tt.n, got, cut, tt.want, tt.wantCut)
		}
	}
}

// FuzzFormatSearchResults checks the summary rule for arbitrary content.
func FuzzFormatSearchResults(f *testing.F) {
	f.Add("short", "title", 0.5)
	f.Add(strings.Repeat("x", 300), "", 0.0)
	f.Add("日本語", "タイトル", 1.0)
	f.Add("\xff\xfe", "bad utf8", -1.0)

	f.Fuzz(func(t *testing.T, content, title string, score float64) {
		out := FormatSearchResults(domain.SearchResponse{
			HasResults: true,
			Results:    []domain.SearchResult{{Title: title, Content: content, Score: score}},
		})
		if !strings.HasPrefix(out, searchHeading) {
			t.Fatalf("missing heading: %q", out)
		}
		if content == "" {
			if strings.Contains(out, "**Summary**") {
				t.Errorf("empty content must not render a summary")
			}
			return
		}
		var want string
		if utf8.RuneCountInString(content) > summaryMaxRunes {
			head, _ := truncateRunes(content, summaryMaxRunes)
			want = "**Summary**: " + head + summaryEllipsis + "\n"
		} else {
			want = "**Summary**: " + content + "\n"
		}
		if !strings.Contains(out, want) {
			t.Errorf("summary rule violated for %q", content)
		}
	})
}
