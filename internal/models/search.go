package models

import "strings"

// SearchQuery holds the parameters a listing URL is derived from.
// A zero Distance means no radius; pages below 1 are treated as page 1.
type SearchQuery struct {
	Keywords string
	City     string
	Distance int
	Page     int
}

// WithPage returns a copy of the query pointing at page.
func (q SearchQuery) WithPage(page int) SearchQuery {
	q.Page = page
	return q
}

// PageOrDefault returns Page, clamped to 1.
func (q SearchQuery) PageOrDefault() int {
	if q.Page < 1 {
		return 1
	}
	return q.Page
}

// Context returns the query context stored alongside every offer it discovers.
func (q SearchQuery) Context() QueryContext {
	return QueryContext{
		City:     strings.TrimSpace(q.City),
		Distance: q.Distance,
	}
}

// QueryContext is the part of a search persisted with each offer.
type QueryContext struct {
	City     string
	Distance int
}
