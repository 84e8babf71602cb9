package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

var (
	blockTags    = regexp.MustCompile(`</?(?:div|p|br|hr|h\d|article|b|dd|dl|html)[^>]*>`)
	htmlComments = regexp.MustCompile(`<!--[\w\W\r\n]*?-->`)
)

// htmlAnalyzer queries an HTML document with CSS selectors. Rules take
// the form "selector @keyword": the selector picks elements, the keyword
// picks what to extract from each (text, textNodes, outerHtml, innerHtml,
// html, or an attribute name). Without a keyword the rule is applied to
// the whole document.
type htmlAnalyzer struct {
	content string
}

func newHTMLAnalyzer(content string) (*htmlAnalyzer, error) {
	return &htmlAnalyzer{content: content}, nil
}

func compileSelector(rule string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(strings.TrimSpace(rule))
	if err != nil {
		return nil, fmt.Errorf("%w: selector %q: %v", ErrInvalidRule, rule, err)
	}
	return sel, nil
}

func parseFragment(content string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", ErrDecode, err)
	}
	return doc, nil
}

// GetElements returns the outer HTML of every element the selector
// matches, in document order.
func (a *htmlAnalyzer) GetElements(rule string) ([]string, error) {
	sel, err := compileSelector(rule)
	if err != nil {
		return nil, err
	}
	doc, err := parseFragment(a.content)
	if err != nil {
		return nil, err
	}

	var out []string
	var iterErr error
	doc.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
		h, err := goquery.OuterHtml(s)
		if err != nil {
			iterErr = err
			return
		}
		out = append(out, h)
	})
	if iterErr != nil {
		return nil, fmt.Errorf("%w: render element: %v", ErrDecode, iterErr)
	}
	return out, nil
}

// GetString joins the per-element results with two spaces.
func (a *htmlAnalyzer) GetString(rule string) (string, error) {
	list, err := a.getStringList(rule)
	if err != nil {
		return "", err
	}
	return strings.Join(list, "  "), nil
}

func (a *htmlAnalyzer) getStringList(rule string) ([]string, error) {
	selectors, last, found := strings.Cut(rule, "@")
	if !found {
		r, err := extract(a.content, rule)
		if err != nil {
			return nil, err
		}
		return []string{r}, nil
	}
	if strings.TrimSpace(selectors) == "" {
		return nil, nil
	}

	sel, err := compileSelector(selectors)
	if err != nil {
		return nil, err
	}
	doc, err := parseFragment(a.content)
	if err != nil {
		return nil, err
	}

	var out []string
	var iterErr error
	doc.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
		h, err := goquery.OuterHtml(s)
		if err != nil {
			iterErr = err
			return
		}
		r, err := extract(h, last)
		if err != nil {
			iterErr = err
			return
		}
		out = append(out, r)
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return out, nil
}

// extract applies an extraction keyword to one HTML fragment.
func extract(fragment, keyword string) (string, error) {
	doc, err := parseFragment(fragment)
	if err != nil {
		return "", err
	}

	switch keyword {
	case "text":
		return doc.Text(), nil
	case "textNodes":
		var parts []string
		doc.Find("body > *").Each(func(_ int, s *goquery.Selection) {
			parts = append(parts, s.Text())
		})
		return strings.TrimSpace(strings.Join(parts, "\n")), nil
	case "outerHtml":
		return fragment, nil
	case "innerHtml":
		var parts []string
		var iterErr error
		doc.Find("body > *").Each(func(_ int, s *goquery.Selection) {
			h, err := s.Html()
			if err != nil {
				iterErr = err
				return
			}
			parts = append(parts, h)
		})
		if iterErr != nil {
			return "", iterErr
		}
		return strings.TrimSpace(strings.Join(parts, "\n")), nil
	case "html":
		return htmlToText(fragment), nil
	default:
		return doc.Find("body > *").First().AttrOr(keyword, ""), nil
	}
}

// htmlToText renders chapter HTML to plain text: block tags become
// newlines, comments are dropped, common entities are decoded.
func htmlToText(html string) string {
	result := blockTags.ReplaceAllString(html, "\n")
	result = htmlComments.ReplaceAllString(result, "")
	return htmlDecode(result)
}

func htmlDecode(s string) string {
	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&nbsp;", " ",
		"&#39;", "'",
		"&quot;", `"`,
		"<br/>", "\n",
	)
	return r.Replace(s)
}
