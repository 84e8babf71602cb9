package booksource

// BookInfo is the metadata a source exposes for one book.
type BookInfo struct {
	Name        string `json:"name"`
	Author      string `json:"author"`
	CoverURL    string `json:"coverUrl"`
	Intro       string `json:"intro"`
	Kind        string `json:"kind"`
	LastChapter string `json:"lastChapter"`
	TocURL      string `json:"tocUrl"`
	WordCount   string `json:"wordCount"`
}

// Book is one entry of a search or explore result list.
type Book struct {
	BookURL string `json:"bookUrl"`
	BookInfo
}

// Chapter is one entry of a book's table of contents.
type Chapter struct {
	Name string `json:"chapterName"`
	URL  string `json:"chapterUrl"`
}

// ExploreItem is one category link on a source's explore page.
type ExploreItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
