package tool

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"tavily-mcp/internal/domain"
)

const (
	// MaxFetchRunes caps the text returned by the fetch tool.
	MaxFetchRunes = 4000
	// TruncationMarker is appended when fetched text was cut.
	TruncationMarker = "\n\n[content truncated]"
)

// skippedElements hold text that is never rendered to a reader.
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// ExtractText returns the visible text inside the page's <body>, with every
// run of whitespace collapsed to a single space. A page whose source has no
// body element yields domain.ErrNoContent.
func ExtractText(page string) (string, error) {
	if !hasBodyTag(page) {
		return "", domain.ErrNoContent
	}

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	body := findElement(doc, atom.Body)
	if body == nil {
		return "", domain.ErrNoContent
	}

	var words []string
	collectText(body, &words)
	return strings.Join(words, " "), nil
}

// hasBodyTag scans the raw token stream for an explicit <body> start tag.
// html.Parse always synthesizes a body, so the tree alone cannot answer this.
func hasBodyTag(page string) bool {
	z := html.NewTokenizer(strings.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Body {
				return true
			}
		}
	}
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, words *[]string) {
	switch n.Type {
	case html.ElementNode:
		if skippedElements[n.DataAtom] {
			return
		}
	case html.TextNode:
		*words = append(*words, strings.Fields(n.Data)...)
		return
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, words)
	}
}

// TruncateText keeps the first limit runes of s and appends
// TruncationMarker when anything was cut. Applying it twice with the same
// limit gives the same result as applying it once.
func TruncateText(s string, limit int) string {
	head, cut := truncateRunes(s, limit)
	if !cut {
		return s
	}
	return head + TruncationMarker
}
