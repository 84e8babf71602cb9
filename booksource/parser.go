package booksource

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/novelterm/novelterm/booksource/analyzer"
	"github.com/novelterm/novelterm/booksource/httpclient"
	"github.com/novelterm/novelterm/internal/cache"
)

// contentCacheSize bounds the per-parser chapter text cache.
const contentCacheSize = 8 << 20

// Parser executes one book source's rules against the live site. It is
// stateful: BookInfo stashes the fetched book page so Chapters can reuse
// it when the toc rule points back at the same document, and @put/@get
// variables persist across calls. Not safe for concurrent use.
type Parser struct {
	Source *BookSource

	client  *httpclient.Client
	rules   *analyzer.Manager
	cache   *cache.Memory
	temp    string
	hasTemp bool
}

// NewParser builds a parser with its own HTTP client, rule engine, and
// a chapter cache of the default size.
func NewParser(src *BookSource) (*Parser, error) {
	return NewParserSize(src, contentCacheSize)
}

// NewParserSize is NewParser with an explicit chapter cache bound in
// bytes. A non-positive size falls back to the default.
func NewParserSize(src *BookSource, cacheSize int64) (*Parser, error) {
	opts, err := src.httpOptions()
	if err != nil {
		return nil, err
	}
	client, err := httpclient.New(src.BookSourceURL, opts)
	if err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		cacheSize = contentCacheSize
	}
	return &Parser{
		Source: src,
		client: client,
		rules:  analyzer.NewManager(),
		cache:  cache.NewMemory(cacheSize),
	}, nil
}

// Close releases the parser's HTTP client.
func (p *Parser) Close() {
	p.client.Close()
}

// Explores returns the source's category links. Sources either give an
// extraction rule for the explore page or inline the list as JSON in
// exploreUrl; a source without exploreUrl has no categories.
func (p *Parser) Explores(ctx context.Context) ([]ExploreItem, error) {
	src := p.Source
	if src.ExploreURL == "" {
		return nil, nil
	}

	if src.RuleExploreItem == nil {
		var items []ExploreItem
		if err := json.UnmarshalFromString(src.ExploreURL, &items); err != nil {
			return nil, fmt.Errorf("%w: exploreUrl: %v", ErrInvalidSource, err)
		}
		return items, nil
	}

	body, err := p.client.Get(ctx, src.BookSourceURL)
	if err != nil {
		return nil, err
	}
	list, err := p.rules.GetElements(src.ExploreURL, body)
	if err != nil {
		return nil, err
	}

	items := make([]ExploreItem, 0, len(list))
	for _, el := range list {
		item, err := src.RuleExploreItem.parseExploreItem(p.rules, el)
		if err != nil {
			log.Warn("Skipping explore item", "source", src.BookSourceName, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// SearchBooks runs the source's search URL for key and parses the result
// list. List items that fail a rule are skipped; book URLs come back
// resolved against the source base.
func (p *Parser) SearchBooks(ctx context.Context, key string, page, pageSize int) ([]Book, error) {
	url, err := p.rules.GetStringWithExtra(p.Source.SearchURL, "", map[string]any{
		"key":       key,
		"page":      page,
		"page_size": pageSize,
	})
	if err != nil {
		return nil, err
	}
	return p.bookList(ctx, url, &p.Source.RuleSearch)
}

// ExploreBooks lists the books behind one explore category URL.
func (p *Parser) ExploreBooks(ctx context.Context, urlRule string, page, pageSize int) ([]Book, error) {
	if p.Source.RuleExplore == nil {
		return nil, ErrNoExploreRule
	}
	url, err := p.rules.GetStringWithExtra(urlRule, "", map[string]any{
		"page":      page,
		"page_size": pageSize,
	})
	if err != nil {
		return nil, err
	}
	return p.bookList(ctx, url, p.Source.RuleExplore)
}

func (p *Parser) bookList(ctx context.Context, url string, rule *RuleSearch) ([]Book, error) {
	body, err := p.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	list, err := p.rules.GetElements(rule.BookList, body)
	if err != nil {
		return nil, err
	}

	books := make([]Book, 0, len(list))
	for _, el := range list {
		book, err := rule.parseBook(p.rules, el)
		if err != nil {
			log.Warn("Skipping book entry", "source", p.Source.BookSourceName, "error", err)
			continue
		}
		if book.BookURL != "" {
			book.BookURL = p.client.Resolve(book.BookURL)
		}
		books = append(books, book)
	}
	return books, nil
}

// BookInfo fetches a book page and parses its metadata. The fetched page
// is kept so a following Chapters call can parse the toc from it. A
// tocURL that points at another page comes back absolute; any other
// value is a marker for the stashed page and passes through untouched.
func (p *Parser) BookInfo(ctx context.Context, bookURL string) (BookInfo, error) {
	body, err := p.client.Get(ctx, bookURL)
	if err != nil {
		return BookInfo{}, err
	}
	p.temp = body
	p.hasTemp = true
	info, err := p.Source.RuleBookInfo.parseBookInfo(p.rules, body)
	if err != nil {
		return BookInfo{}, err
	}
	if strings.HasPrefix(info.TocURL, "/") || strings.HasPrefix(info.TocURL, "http") {
		info.TocURL = p.client.Resolve(info.TocURL)
	}
	return info, nil
}

// Chapters parses the table of contents. A tocURL that looks like a path
// or absolute URL is fetched; anything else means the toc lives on the
// book page stashed by the last BookInfo call, which is consumed.
// Chapter URLs come back resolved against the source base.
func (p *Parser) Chapters(ctx context.Context, tocURL string) ([]Chapter, error) {
	var body string
	if strings.HasPrefix(tocURL, "/") || strings.HasPrefix(tocURL, "http") {
		res, err := p.client.Get(ctx, tocURL)
		if err != nil {
			return nil, err
		}
		body = res
	} else {
		if !p.hasTemp {
			return nil, ErrNoPendingDocument
		}
		body = p.temp
		p.temp = ""
		p.hasTemp = false
	}

	list, err := p.rules.GetElements(p.Source.RuleToc.ChapterList, body)
	if err != nil {
		return nil, err
	}

	chapters := make([]Chapter, 0, len(list))
	for _, el := range list {
		ch, err := p.Source.RuleToc.parseChapter(p.rules, el)
		if err != nil {
			log.Warn("Skipping chapter entry", "source", p.Source.BookSourceName, "error", err)
			continue
		}
		if ch.URL != "" {
			ch.URL = p.client.Resolve(ch.URL)
		}
		chapters = append(chapters, ch)
	}
	return chapters, nil
}

// Content fetches a chapter and extracts its text, following the
// source's pagination when the content rule declares one. Results are
// cached by chapter URL.
func (p *Parser) Content(ctx context.Context, chapterURL string) (string, error) {
	if cached, ok := p.cache.Get(chapterURL); ok {
		return string(cached), nil
	}

	body, err := p.client.Get(ctx, chapterURL)
	if err != nil {
		return "", err
	}

	rc := &p.Source.RuleContent
	var text string
	if rc.Paginated() {
		text, err = p.pagedContent(ctx, rc, body)
	} else {
		text, err = p.rules.GetString(rc.Content, body)
	}
	if err != nil {
		return "", err
	}

	if err := p.cache.Put(chapterURL, []byte(text)); err != nil {
		log.Debug("Chapter too large to cache", "url", chapterURL, "size", len(text))
	}
	return text, nil
}

// pagedContent walks a chapter split across pages. The end rule yields
// the last page number from the first page; nextContentUrl is evaluated
// with the running index until that number is passed.
func (p *Parser) pagedContent(ctx context.Context, rc *RuleContent, body string) (string, error) {
	endStr, err := p.rules.GetString(rc.End, body)
	if err != nil {
		return "", err
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return "", fmt.Errorf("content end rule %q: %w", rc.End, err)
	}

	var parts []string
	start := rc.Start
	for {
		part, err := p.rules.GetString(rc.Content, body)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)

		if start > end {
			break
		}

		next, err := p.rules.GetStringWithExtra(rc.NextContentURL, body, map[string]any{
			"index": start,
		})
		if err != nil {
			return "", err
		}
		if body, err = p.client.Get(ctx, next); err != nil {
			return "", err
		}
		start++
	}
	return strings.Join(parts, "  "), nil
}
