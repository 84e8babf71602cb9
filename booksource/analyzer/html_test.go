package analyzer

import (
	"errors"
	"strings"
	"testing"
)

const bookListHTML = `
<html><body>
<div class="result-game-item-info">
  <p><span>作者:</span><span>某人</span></p>
  <p><span>分类:</span><span>玄幻</span></p>
</div>
<ul class="toc">
  <li><a href="/c/1">第一章</a></li>
  <li><a href="/c/2">第二章</a></li>
  <li><a href="/c/3">第三章</a></li>
</ul>
</body></html>`

func TestHTMLGetStringWithKeyword(t *testing.T) {
	a, err := newHTMLAnalyzer(bookListHTML)
	if err != nil {
		t.Fatal(err)
	}
	got, err := a.GetString(".result-game-item-info p:nth-of-type(1) span:nth-of-type(2) @text")
	if err != nil {
		t.Fatal(err)
	}
	if got != "某人" {
		t.Errorf("got %q, want 某人", got)
	}
}

func TestHTMLGetStringJoinsMatches(t *testing.T) {
	a, err := newHTMLAnalyzer(bookListHTML)
	if err != nil {
		t.Fatal(err)
	}
	got, err := a.GetString(".toc a @text")
	if err != nil {
		t.Fatal(err)
	}
	if got != "第一章  第二章  第三章" {
		t.Errorf("got %q", got)
	}
}

func TestHTMLGetStringAttribute(t *testing.T) {
	a, err := newHTMLAnalyzer(bookListHTML)
	if err != nil {
		t.Fatal(err)
	}
	got, err := a.GetString(".toc li:nth-of-type(2) a @href")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/c/2" {
		t.Errorf("got %q, want /c/2", got)
	}
}

func TestHTMLGetElementsDocumentOrder(t *testing.T) {
	a, err := newHTMLAnalyzer(bookListHTML)
	if err != nil {
		t.Fatal(err)
	}
	els, err := a.GetElements(".toc li")
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 3 {
		t.Fatalf("got %d elements, want 3", len(els))
	}
	for i, want := range []string{"/c/1", "/c/2", "/c/3"} {
		if !strings.Contains(els[i], want) {
			t.Errorf("element %d = %q, want link %q", i, els[i], want)
		}
	}
}

func TestHTMLInvalidSelector(t *testing.T) {
	a, err := newHTMLAnalyzer(bookListHTML)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.GetElements("li:nth-of-type(abc)"); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("error = %v, want ErrInvalidRule", err)
	}
}

func TestHTMLKeywordOnWholeDocument(t *testing.T) {
	a, err := newHTMLAnalyzer(`<p>hello</p><p>world</p>`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := a.GetString("text")
	if err != nil {
		t.Fatal(err)
	}
	if got != "helloworld" {
		t.Errorf("got %q, want helloworld", got)
	}
}

func TestHTMLToText(t *testing.T) {
	in := `<div>第一段<br/>第二段</div><!-- ad --><p>&amp;&nbsp;&quot;</p>`
	got := htmlToText(in)
	want := "\n第一段\n第二段\n\n& \"\n"
	if got != want {
		t.Errorf("htmlToText = %q, want %q", got, want)
	}
}
