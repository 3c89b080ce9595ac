package domain

import "time"

// PageTitle identifies one wiki page; it is the unit of crawl work.
type PageTitle string

func (t PageTitle) String() string { return string(t) }

// WikiPage is the fetched state of one title. A page that exists with no
// revisions has Exists=true and an empty RawContent; that is a valid
// terminal state, not an error.
type WikiPage struct {
	Title      PageTitle
	RawContent string
	Exists     bool
	FetchedAt  time.Time

	// ResolvedTitle is the title the wiki actually served after
	// normalization and redirects. Equal to Title when nothing changed.
	ResolvedTitle PageTitle
}

// PageResult is the per-title outcome of a batch fetch.
type PageResult struct {
	Page WikiPage
	Err  error
}
