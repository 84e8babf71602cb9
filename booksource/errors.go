package booksource

import "errors"

var (
	// ErrInvalidSource marks a source document that cannot be decoded or
	// is missing required fields.
	ErrInvalidSource = errors.New("invalid book source")

	// ErrNoExploreRule is returned by ExploreBooks when the source does
	// not declare ruleExplore.
	ErrNoExploreRule = errors.New("book source has no explore rule")

	// ErrNoPendingDocument is returned by Chapters when the toc rule
	// points back at the book page but no book page has been fetched.
	ErrNoPendingDocument = errors.New("no fetched document to parse")
)
