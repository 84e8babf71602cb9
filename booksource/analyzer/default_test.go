package analyzer

import (
	"errors"
	"testing"
)

func TestRuleToSelector(t *testing.T) {
	tests := []struct {
		rule string
		want string
	}{
		{
			"class.result-game-item-info@tag.p.0@tag.span.1@text",
			".result-game-item-info p:nth-of-type(1) span:nth-of-type(2) @text",
		},
		{"id.intro@tag.p.0@text", "#intro p:nth-of-type(1) @text"},
		{"class.bookbox", ".bookbox"},
		{"id.fmimg@img@src", "#fmimg img @src"},
		{
			"[property=og:novel:update_time]@content",
			`[property="og:novel:update_time"] @content`,
		},
		{
			"class.bookbox[1,4,3]",
			".bookbox:is(:nth-of-type(2),:nth-of-type(5),:nth-of-type(4))",
		},
		{
			"class.bookbox[!1,4,3]",
			".bookbox:not(:nth-of-type(2),:nth-of-type(5),:nth-of-type(4))",
		},
		{
			"class.bookbox[3:10]",
			".bookbox:is(:nth-of-type(n+4):not(:nth-of-type(n+11)))",
		},
		{
			"class.bookbox[0:20:2]",
			".bookbox:is(:nth-of-type(2n+1):not(:nth-of-type(2n+21)))",
		},
		{"tag.div[-1]", "div:is(:nth-last-of-type(1))"},
		{"tag.div[!-1,-2]", "div:not(:nth-last-of-type(1),:nth-last-of-type(2))"},
	}

	for _, tt := range tests {
		got, err := ruleToSelector(tt.rule)
		if err != nil {
			t.Errorf("ruleToSelector(%q): %v", tt.rule, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ruleToSelector(%q) = %q, want %q", tt.rule, got, tt.want)
		}
	}
}

func TestRuleToSelectorInvalid(t *testing.T) {
	for _, rule := range []string{"tag.p.x@text", "a.b.c.d@text"} {
		if _, err := ruleToSelector(rule); !errors.Is(err, ErrInvalidRule) {
			t.Errorf("ruleToSelector(%q) error = %v, want ErrInvalidRule", rule, err)
		}
	}
}

func TestDefaultAnalyzerGetString(t *testing.T) {
	a, err := newDefaultAnalyzer(`<li><a href="/xuanhuan/">玄幻小说</a></li>`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := a.GetString("tag.a@href")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/xuanhuan/" {
		t.Errorf("got %q, want /xuanhuan/", got)
	}
}

func TestDefaultAnalyzerGetElements(t *testing.T) {
	html := `<div class="bookbox"><a>one</a></div><div class="bookbox"><a>two</a></div>`
	a, err := newDefaultAnalyzer(html)
	if err != nil {
		t.Fatal(err)
	}
	els, err := a.GetElements("class.bookbox")
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 2 {
		t.Fatalf("got %d elements, want 2", len(els))
	}
}
