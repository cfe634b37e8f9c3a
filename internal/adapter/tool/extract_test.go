package tool

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavily-mcp/internal/domain"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "plain body",
			page: "<html><body><p>Hello <b>world</b></p></body></html>",
			want: "Hello world",
		},
		{
			name: "drops script style noscript template",
			page: `<html><head><title>T</title><style>p{}</style></head><body>
				<script>var x = "secret";</script>
				<p>visible</p>
				<noscript>enable js</noscript>
				<template><p>hidden</p></template>
				<style>.a{color:red}</style>
				<p>text</p>
			</body></html>`,
			want: "visible text",
		},
		{
			name: "collapses whitespace",
			page: "<body>\n\n  spread\t\tout \n words  </body>",
			want: "spread out words",
		},
		{
			name: "ignores head text",
			page: "<html><head><title>Title Only</title></head><body>Body</body></html>",
			want: "Body",
		},
		{
			name: "skips comments",
			page: "<body>a<!-- not me -->b</body>",
			want: "a b",
		},
		{
			name: "decodes entities",
			page: "<body>Fish &amp; Chips &lt;3</body>",
			want: "Fish & Chips <3",
		},
		{
			name: "upper case tag",
			page: "<HTML><BODY><DIV>shout</DIV></BODY></HTML>",
			want: "shout",
		},
		{
			name: "empty body",
			page: "<html><body></body></html>",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText(tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractText_NoBody(t *testing.T) {
	pages := []string{
		"",
		"just text, no markup",
		"<html><head><title>x</title></head></html>",
		"<div>fragment without body</div>",
		"<script>document.write('<body>')</script><p>x</p>",
		"<!-- <body> --><p>commented</p>",
	}
	for _, page := range pages {
		_, err := ExtractText(page)
		if !errors.Is(err, domain.ErrNoContent) {
			t.Errorf("ExtractText(%q) err = %v, want ErrNoContent", page, err)
		}
	}
}

func TestTruncateText(t *testing.T) {
	short := strings.Repeat("a", MaxFetchRunes)
	assert.Equal(t, short, TruncateText(short, MaxFetchRunes), "at the limit nothing changes")

	long := strings.Repeat("b", MaxFetchRunes+1)
	got := TruncateText(long, MaxFetchRunes)
	assert.Equal(t, strings.Repeat("b", MaxFetchRunes)+TruncationMarker, got)

	wide := strings.Repeat("é", MaxFetchRunes+10)
	got = TruncateText(wide, MaxFetchRunes)
	assert.Equal(t, MaxFetchRunes+utf8.RuneCountInString(TruncationMarker), utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, TruncationMarker))
}

func TestTruncateText_Idempotent(t *testing.T) {
	for _, n := range []int{0, 10, MaxFetchRunes - 1, MaxFetchRunes, MaxFetchRunes + 1, 3 * MaxFetchRunes} {
		s := strings.Repeat("x", n)
		once := TruncateText(s, MaxFetchRunes)
		twice := TruncateText(once, MaxFetchRunes)
		assert.Equal(t, once, twice, "length %d", n)
	}
}

// FuzzExtractText checks that extraction never panics and never returns
// text with leading, trailing or doubled spaces.
func FuzzExtractText(f *testing.F) {
	f.Add("<html><body><p>hi</p></body></html>")
	f.Add("<body><script>x</script>y</body>")
	f.Add("<body")
	f.Add("<<body>>")
	f.Add("<body><template><body>nested</body></template></body>")
	f.Add("\x00<body>\xff</body>")

	f.Fuzz(func(t *testing.T, page string) {
		text, err := ExtractText(page)
		if err != nil {
			if !errors.Is(err, domain.ErrNoContent) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			return
		}
		if strings.HasPrefix(text, " ") || strings.HasSuffix(text, " ") || strings.Contains(text, "  ") {
			t.Errorf("whitespace not normalized: %q", text)
		}
	})
}

// FuzzTruncateText checks the length bound and idempotence.
func FuzzTruncateText(f *testing.F) {
	f.Add("hello", 3)
	f.Add(strings.Repeat("z", 50), 10)
	f.Add("日本語", 1)

	f.Fuzz(func(t *testing.T, s string, limit int) {
		if limit < 0 || limit > 10000 {
			return
		}
		once := TruncateText(s, limit)
		if utf8.RuneCountInString(s) <= limit {
			if once != s {
				t.Fatalf("short input changed")
			}
		} else {
			head, _ := truncateRunes(s, limit)
			if once != head+TruncationMarker {
				t.Fatalf("long input not cut at %d runes", limit)
			}
		}
		if twice := TruncateText(once, limit); twice != once {
			t.Fatalf("not idempotent")
		}
	})
}
