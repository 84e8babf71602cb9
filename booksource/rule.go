package booksource

import (
	"github.com/novelterm/novelterm/booksource/analyzer"
)

// RuleBookInfo extracts book metadata from a book page or a list item.
// Name and author are the only rules a source must provide.
type RuleBookInfo struct {
	Name        string `json:"name"`
	Author      string `json:"author"`
	CoverURL    string `json:"coverUrl"`
	Intro       string `json:"intro"`
	Kind        string `json:"kind"`
	LastChapter string `json:"lastChapter"`
	TocURL      string `json:"tocUrl"`
	WordCount   string `json:"wordCount"`
}

func (r *RuleBookInfo) parseBookInfo(rules *analyzer.Manager, content string) (BookInfo, error) {
	var (
		info BookInfo
		err  error
	)
	fields := []struct {
		rule string
		dst  *string
	}{
		{r.Name, &info.Name},
		{r.Author, &info.Author},
		{r.CoverURL, &info.CoverURL},
		{r.Intro, &info.Intro},
		{r.Kind, &info.Kind},
		{r.LastChapter, &info.LastChapter},
		{r.TocURL, &info.TocURL},
		{r.WordCount, &info.WordCount},
	}
	for _, f := range fields {
		if *f.dst, err = rules.GetString(f.rule, content); err != nil {
			return BookInfo{}, err
		}
	}
	return info, nil
}

// RuleSearch extracts the result list of a search or explore page and,
// per list item, the book URL plus its metadata.
type RuleSearch struct {
	BookList string `json:"bookList"`
	BookURL  string `json:"bookUrl"`
	RuleBookInfo
}

func (r *RuleSearch) parseBook(rules *analyzer.Manager, content string) (Book, error) {
	bookURL, err := rules.GetString(r.BookURL, content)
	if err != nil {
		return Book{}, err
	}
	info, err := r.parseBookInfo(rules, content)
	if err != nil {
		return Book{}, err
	}
	return Book{BookURL: bookURL, BookInfo: info}, nil
}

// RuleExploreItem extracts one category link from the explore page.
type RuleExploreItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (r *RuleExploreItem) parseExploreItem(rules *analyzer.Manager, content string) (ExploreItem, error) {
	title, err := rules.GetString(r.Title, content)
	if err != nil {
		return ExploreItem{}, err
	}
	url, err := rules.GetString(r.URL, content)
	if err != nil {
		return ExploreItem{}, err
	}
	return ExploreItem{Title: title, URL: url}, nil
}

// RuleToc extracts the chapter list and, per entry, its name and URL.
type RuleToc struct {
	ChapterList string `json:"chapterList"`
	ChapterName string `json:"chapterName"`
	ChapterURL  string `json:"chapterUrl"`
}

func (r *RuleToc) parseChapter(rules *analyzer.Manager, content string) (Chapter, error) {
	name, err := rules.GetString(r.ChapterName, content)
	if err != nil {
		return Chapter{}, err
	}
	url, err := rules.GetString(r.ChapterURL, content)
	if err != nil {
		return Chapter{}, err
	}
	return Chapter{Name: name, URL: url}, nil
}

// RuleContent extracts chapter text. A source whose chapters span several
// pages additionally declares nextContentUrl, a start index, and an end
// rule producing the last page number; presence of nextContentUrl selects
// the paginated form.
type RuleContent struct {
	Content        string
	NextContentURL string
	Start          int
	End            string

	paginated bool
}

// Paginated reports whether chapter text must be assembled from several
// pages.
func (c *RuleContent) Paginated() bool {
	return c.paginated
}

func (c *RuleContent) UnmarshalJSON(data []byte) error {
	var aux struct {
		Content        string  `json:"content"`
		NextContentURL *string `json:"nextContentUrl"`
		Start          int     `json:"start"`
		End            string  `json:"end"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Content = aux.Content
	c.Start = aux.Start
	c.End = aux.End
	if aux.NextContentURL != nil {
		c.NextContentURL = *aux.NextContentURL
		c.paginated = true
	}
	return nil
}
