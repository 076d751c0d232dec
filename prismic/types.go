// Package prismic is a small client for the Prismic REST API v2: document
// search with cursor pagination, lookup by uid or id, and preview token
// resolution.
package prismic

import (
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("prismic: document not found")

// ErrInvalidToken is returned when a preview token does not belong to the
// repository or resolves to nothing.
var ErrInvalidToken = errors.New("prismic: invalid preview token")

// ErrInvalidCursor is returned when a next-page cursor is malformed or does
// not belong to the source it is followed on.
var ErrInvalidCursor = errors.New("prismic: invalid cursor")

// Document is a raw CMS document. Data is left undecoded: the content
// package validates the fields it needs.
type Document struct {
	ID                   string                     `json:"id"`
	UID                  string                     `json:"uid,omitempty"`
	Type                 string                     `json:"type"`
	Href                 string                     `json:"href,omitempty"`
	Tags                 []string                   `json:"tags,omitempty"`
	FirstPublicationDate string                     `json:"first_publication_date,omitempty"`
	LastPublicationDate  string                     `json:"last_publication_date,omitempty"`
	Lang                 string                     `json:"lang,omitempty"`
	Data                 map[string]json.RawMessage `json:"data"`
}

// Response is one page of search results. NextPage is the URL of the next
// page, empty on the last one.
type Response struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         string     `json:"next_page"`
	PrevPage         string     `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Query selects documents of one type.
type Query struct {
	Type      string
	Fetch     []string // field projection, e.g. "post.title"
	PageSize  int
	Orderings string // e.g. "[document.first_publication_date desc]"
	Ref       string // empty selects the master ref
}

// Orderings used by the site.
const (
	OrderNewestFirst = "[document.first_publication_date desc]"
	OrderOldestFirst = "[document.first_publication_date]"
)

// Ref is a content release pointer in the API root.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

type apiRoot struct {
	Refs []Ref `json:"refs"`
}

// LinkFunc maps a document to a site path.
type LinkFunc func(docType, uid string) string

// At builds an "at" predicate.
func At(path, value string) string {
	b, _ := json.Marshal(value)
	return "[at(" + path + "," + string(b) + ")]"
}
