package booksource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func apiSourceJSON(base string) string {
	return fmt.Sprintf(`{
		"bookSourceName": "接口书源",
		"bookSourceGroup": "测试",
		"bookSourceUrl": %q,
		"lastUpdateTime": 1718000000,
		"searchUrl": "/search?key={{key}}&page={{page}}",
		"exploreUrl": "[{\"title\":\"玄幻\",\"url\":\"/explore?page={{page}}\"}]",
		"ruleSearch": {
			"bookList": "$.data.books[*]",
			"bookUrl": "$.url",
			"name": "$.name",
			"author": "$.author"
		},
		"ruleExplore": {
			"bookList": "$.data.books[*]",
			"bookUrl": "$.url",
			"name": "$.name",
			"author": "$.author"
		},
		"ruleBookInfo": {
			"name": "$.name",
			"author": "$.author",
			"intro": "$.intro",
			"tocUrl": ""
		},
		"ruleToc": {
			"chapterList": "$.chapters[*]",
			"chapterName": "$.title",
			"chapterUrl": "$.url"
		},
		"ruleContent": {"content": "$.content"}
	}`, base)
}

func newAPIServer(t *testing.T, chapterHits *atomic.Int64) *httptest.Server {
	t.Helper()

	books := `{"data": {"books": [
		{"name": "诡秘之主", "author": "爱潜水的乌贼", "url": "/book/1"},
		{"name": "大道朝天", "author": "猫腻", "url": "/book/2"}
	]}}`

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "sword" || r.URL.Query().Get("page") != "1" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, books)
	})
	mux.HandleFunc("/explore", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, books)
	})
	mux.HandleFunc("/book/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"name": "诡秘之主", "author": "爱潜水的乌贼", "intro": "蒸汽与机械的浪潮中",
			"chapters": [
				{"title": "第一章 绯红", "url": "/chapter/1"},
				{"title": "第二章 情况", "url": "/chapter/2"}
			]
		}`)
	})
	mux.HandleFunc("/chapter/1", func(w http.ResponseWriter, r *http.Request) {
		if chapterHits != nil {
			chapterHits.Add(1)
		}
		fmt.Fprint(w, `{"content": "夜色深沉，雾气弥漫。"}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestParser(t *testing.T, sourceJSON string) *Parser {
	t.Helper()
	sources, err := Load([]byte(sourceJSON))
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewParser(sources[0])
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestParserSearchBooks(t *testing.T) {
	srv := newAPIServer(t, nil)
	p := newTestParser(t, apiSourceJSON(srv.URL))

	books, err := p.SearchBooks(context.Background(), "sword", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 {
		t.Fatalf("got %d books, want 2", len(books))
	}
	if books[0].Name != "诡秘之主" || books[0].BookURL != srv.URL+"/book/1" {
		t.Errorf("first book = %+v", books[0])
	}
	if books[1].Author != "猫腻" {
		t.Errorf("second author = %q", books[1].Author)
	}
}

func TestParserExplores(t *testing.T) {
	srv := newAPIServer(t, nil)
	p := newTestParser(t, apiSourceJSON(srv.URL))

	items, err := p.Explores(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Title != "玄幻" {
		t.Fatalf("items = %+v", items)
	}

	books, err := p.ExploreBooks(context.Background(), items[0].URL, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 {
		t.Fatalf("got %d explore books, want 2", len(books))
	}
}

func TestParserExploreBooksWithoutRule(t *testing.T) {
	srv := newAPIServer(t, nil)
	p := newTestParser(t, apiSourceJSON(srv.URL))
	p.Source.RuleExplore = nil

	if _, err := p.ExploreBooks(context.Background(), "/explore", 1, 20); !errors.Is(err, ErrNoExploreRule) {
		t.Errorf("error = %v, want ErrNoExploreRule", err)
	}
}

func TestParserBookInfoThenChapters(t *testing.T) {
	srv := newAPIServer(t, nil)
	p := newTestParser(t, apiSourceJSON(srv.URL))

	info, err := p.BookInfo(context.Background(), "/book/1")
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "诡秘之主" || info.Intro != "蒸汽与机械的浪潮中" {
		t.Errorf("info = %+v", info)
	}

	// Empty tocUrl means the chapter list lives on the book page just
	// fetched.
	chapters, err := p.Chapters(context.Background(), info.TocURL)
	if err != nil {
		t.Fatal(err)
	}
	if len(chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(chapters))
	}
	if chapters[0].Name != "第一章 绯红" || chapters[0].URL != srv.URL+"/chapter/1" {
		t.Errorf("first chapter = %+v", chapters[0])
	}

	// The stashed page is consumed by the first Chapters call.
	if _, err := p.Chapters(context.Background(), ""); !errors.Is(err, ErrNoPendingDocument) {
		t.Errorf("second call error = %v, want ErrNoPendingDocument", err)
	}
}

func TestParserChaptersWithoutBookInfo(t *testing.T) {
	srv := newAPIServer(t, nil)
	p := newTestParser(t, apiSourceJSON(srv.URL))

	if _, err := p.Chapters(context.Background(), ""); !errors.Is(err, ErrNoPendingDocument) {
		t.Errorf("error = %v, want ErrNoPendingDocument", err)
	}
}

func TestParserContentCaches(t *testing.T) {
	var hits atomic.Int64
	srv := newAPIServer(t, &hits)
	p := newTestParser(t, apiSourceJSON(srv.URL))

	for i := 0; i < 2; i++ {
		text, err := p.Content(context.Background(), "/chapter/1")
		if err != nil {
			t.Fatal(err)
		}
		if text != "夜色深沉，雾气弥漫。" {
			t.Errorf("content = %q", text)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("chapter fetched %d times, want 1", hits.Load())
	}
}

func TestParserRecordURLsAbsolute(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"books": [
			{"name": "a", "author": "x", "url": "/book/1"},
			{"name": "b", "author": "y", "url": "http://mirror.example/book/2"}
		]}}`)
	})
	mux.HandleFunc("/book/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name": "a", "author": "x", "toc": "/book/1/toc"}`)
	})
	mux.HandleFunc("/book/1/toc", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chapters": [
			{"title": "one", "url": "/chapter/1"},
			{"title": "two", "url": "/chapter/2"}
		]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	sourceJSON := fmt.Sprintf(`{
		"bookSourceName": "相对链接书源",
		"bookSourceUrl": %q,
		"lastUpdateTime": 1718000000,
		"searchUrl": "/search?key={{key}}",
		"ruleSearch": {"bookList": "$.data.books[*]", "bookUrl": "$.url", "name": "$.name", "author": "$.author"},
		"ruleBookInfo": {"name": "$.name", "author": "$.author", "tocUrl": "$.toc"},
		"ruleToc": {"chapterList": "$.chapters[*]", "chapterName": "$.title", "chapterUrl": "$.url"},
		"ruleContent": {"content": "$.content"}
	}`, srv.URL)
	p := newTestParser(t, sourceJSON)

	books, err := p.SearchBooks(context.Background(), "k", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 {
		t.Fatalf("got %d books, want 2", len(books))
	}
	if books[0].BookURL != srv.URL+"/book/1" {
		t.Errorf("relative book URL = %q, want %q", books[0].BookURL, srv.URL+"/book/1")
	}
	if books[1].BookURL != "http://mirror.example/book/2" {
		t.Errorf("absolute book URL changed: %q", books[1].BookURL)
	}

	info, err := p.BookInfo(context.Background(), books[0].BookURL)
	if err != nil {
		t.Fatal(err)
	}
	if info.TocURL != srv.URL+"/book/1/toc" {
		t.Errorf("toc URL = %q, want %q", info.TocURL, srv.URL+"/book/1/toc")
	}

	chapters, err := p.Chapters(context.Background(), info.TocURL)
	if err != nil {
		t.Fatal(err)
	}
	if len(chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(chapters))
	}
	for i, ch := range chapters {
		want := fmt.Sprintf("%s/chapter/%d", srv.URL, i+1)
		if ch.URL != want {
			t.Errorf("chapter %d URL = %q, want %q", i, ch.URL, want)
		}
	}
}

func TestParserSmallCacheSkipsCaching(t *testing.T) {
	var hits atomic.Int64
	srv := newAPIServer(t, &hits)

	sources, err := Load([]byte(apiSourceJSON(srv.URL)))
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewParserSize(sources[0], 8)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Close)

	for i := 0; i < 2; i++ {
		if _, err := p.Content(context.Background(), "/chapter/1"); err != nil {
			t.Fatal(err)
		}
	}
	if hits.Load() != 2 {
		t.Errorf("chapter fetched %d times, want 2 (too large for the cache)", hits.Load())
	}
}

func TestParserPaginatedContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/paged", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("p") {
		case "":
			fmt.Fprint(w, `{"content": "第一页正文", "pages": 1}`)
		case "1":
			fmt.Fprint(w, `{"content": "第二页正文"}`)
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	sourceJSON := fmt.Sprintf(`{
		"bookSourceName": "分页书源",
		"bookSourceUrl": %q,
		"lastUpdateTime": 1718000000,
		"searchUrl": "/search?key={{key}}",
		"ruleSearch": {"bookList": "$.books[*]", "bookUrl": "$.url", "name": "$.name", "author": "$.author"},
		"ruleBookInfo": {"name": "$.name", "author": "$.author"},
		"ruleToc": {"chapterList": "$.chapters[*]", "chapterName": "$.title", "chapterUrl": "$.url"},
		"ruleContent": {
			"content": "$.content",
			"nextContentUrl": "/paged?p={{index}}",
			"start": 1,
			"end": "$.pages"
		}
	}`, srv.URL)
	p := newTestParser(t, sourceJSON)

	text, err := p.Content(context.Background(), "/paged")
	if err != nil {
		t.Fatal(err)
	}
	if text != "第一页正文  第二页正文" {
		t.Errorf("content = %q", text)
	}
}
