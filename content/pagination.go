package content

import (
	"context"
	"fmt"
)

// Page is one batch of summaries returned by a listing fetch. An empty
// NextCursor means there are no further pages.
type Page struct {
	Items      []PostSummary
	NextCursor string
}

// FetchPageFunc loads the page a cursor points to. It is the only place
// pagination touches the network.
type FetchPageFunc func(ctx context.Context, cursor string) (Page, error)

// PaginationState is the growing "load more" listing. Items keep arrival
// order and never repeat a uid. A state must not be advanced from more than
// one goroutine at a time.
type PaginationState struct {
	Items      []PostSummary
	NextCursor string
}

// HasMore reports whether another page can be loaded.
func (s PaginationState) HasMore() bool {
	return s.NextCursor != ""
}

// NewPagination starts a listing from its first page.
func NewPagination(first Page) PaginationState {
	return PaginationState{
		Items:      appendUnique(nil, first.Items),
		NextCursor: first.NextCursor,
	}
}

// LoadMore fetches the page after s and appends its new items. When s has no
// cursor it is returned unchanged and fetch is not called. On error the
// original state is returned alongside it.
func LoadMore(ctx context.Context, s PaginationState, fetch FetchPageFunc) (PaginationState, error) {
	if !s.HasMore() {
		return s, nil
	}
	page, err := fetch(ctx, s.NextCursor)
	if err != nil {
		return s, fmt.Errorf("content: load more: %w", err)
	}
	// copy so earlier states never see the appended items
	items := make([]PostSummary, len(s.Items), len(s.Items)+len(page.Items))
	copy(items, s.Items)
	return PaginationState{
		Items:      appendUnique(items, page.Items),
		NextCursor: page.NextCursor,
	}, nil
}

// LoadAll drains a listing, following cursors for at most maxPages extra
// pages (0 means no limit). It stops early if a page repeats its cursor.
func LoadAll(ctx context.Context, first Page, fetch FetchPageFunc, maxPages int) (PaginationState, error) {
	s := NewPagination(first)
	for n := 0; s.HasMore() && (maxPages == 0 || n < maxPages); n++ {
		prev := s.NextCursor
		next, err := LoadMore(ctx, s, fetch)
		if err != nil {
			return s, err
		}
		s = next
		if s.NextCursor == prev {
			s.NextCursor = ""
		}
	}
	return s, nil
}

func appendUnique(dst, items []PostSummary) []PostSummary {
	seen := make(map[string]struct{}, len(dst)+len(items))
	for _, p := range dst {
		seen[p.UID] = struct{}{}
	}
	for _, p := range items {
		if _, ok := seen[p.UID]; ok {
			continue
		}
		seen[p.UID] = struct{}{}
		dst = append(dst, p)
	}
	return dst
}
