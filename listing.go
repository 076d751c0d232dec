package spacetraveling

import (
	"context"
	"fmt"
	"time"

	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/views"
)

const (
	// DisplayDatePattern is how publication dates are shown, e.g. "25 mar 2021".
	DisplayDatePattern = "d MMM yyyy"

	// largest page the CMS serves; used when draining the whole listing
	maxPageSize     = 100
	maxListingPages = 50
)

// listingQuery selects post summaries. Only the listing fields are fetched.
func (a *App) listingQuery(ref string, pageSize int, orderings string) prismic.Query {
	t := a.Config.DocumentType
	return prismic.Query{
		Type:      t,
		Fetch:     []string{t + ".title", t + ".subtitle", t + ".author"},
		PageSize:  pageSize,
		Orderings: orderings,
		Ref:       ref,
	}
}

// toPage projects a CMS response into a listing page. Malformed documents
// are logged and left out.
func (a *App) toPage(resp prismic.Response) content.Page {
	items, err := a.Projector.Summaries(resp.Results)
	if err != nil {
		a.Echo.Logger.Warnf("skipping malformed posts: %v", err)
	}
	return content.Page{Items: items, NextCursor: resp.NextPage}
}

// pageFetcher returns the FetchPageFunc that follows cursors of ref's source.
func (a *App) pageFetcher(ref string) content.FetchPageFunc {
	src := a.sourceFor(ref)
	return func(ctx context.Context, cursor string) (content.Page, error) {
		resp, err := src.FetchPage(ctx, cursor)
		if err != nil {
			return content.Page{}, err
		}
		return a.toPage(resp), nil
	}
}

// firstPage loads the first listing page, newest first.
func (a *App) firstPage(ctx context.Context, ref string) (content.PaginationState, error) {
	resp, err := a.sourceFor(ref).Query(ctx, a.listingQuery(ref, a.Config.PageSize, prismic.OrderNewestFirst))
	if err != nil {
		return content.PaginationState{}, fmt.Errorf("query posts: %w", err)
	}
	return content.NewPagination(a.toPage(resp)), nil
}

// loadMore advances a listing from cursor. seen holds the uids the reader
// already has; the returned state holds only the posts new to them, so a
// page shifted by a fresh publication never repeats a card.
func (a *App) loadMore(ctx context.Context, ref, cursor string, seen []string) (content.PaginationState, error) {
	prior := content.PaginationState{NextCursor: cursor}
	for _, uid := range seen {
		prior.Items = append(prior.Items, content.PostSummary{UID: uid})
	}
	next, err := content.LoadMore(ctx, prior, a.pageFetcher(ref))
	if err != nil {
		return content.PaginationState{}, err
	}
	next.Items = next.Items[len(prior.Items):]
	return next, nil
}

// allSummaries drains the whole listing, newest first.
func (a *App) allSummaries(ctx context.Context, ref string) ([]content.PostSummary, error) {
	resp, err := a.sourceFor(ref).Query(ctx, a.listingQuery(ref, maxPageSize, prismic.OrderNewestFirst))
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	state, err := content.LoadAll(ctx, a.toPage(resp), a.pageFetcher(ref), maxListingPages)
	if err != nil {
		return nil, err
	}
	return state.Items, nil
}

// newest returns every summary newest first. Published content comes from
// the cache; previews always read through.
func (a *App) newest(ctx context.Context, ref string) ([]content.PostSummary, error) {
	if ref == "" {
		return a.Cache.Newest(ctx)
	}
	return a.allSummaries(ctx, ref)
}

// chronological returns every summary oldest first, the order adjacency is
// resolved in.
func (a *App) chronological(ctx context.Context, ref string) ([]content.PostSummary, error) {
	if ref == "" {
		return a.Cache.Chronological(ctx)
	}
	posts, err := a.allSummaries(ctx, ref)
	if err != nil {
		return nil, err
	}
	return reversed(posts), nil
}

// card converts a summary to its view. Dates that cannot be shown are left
// blank.
func (a *App) card(p content.PostSummary) views.PostCard {
	card := views.PostCard{
		UID:      p.UID,
		Path:     PostPath(p.UID),
		Title:    p.Title,
		Subtitle: p.Subtitle,
		Author:   p.Author,
	}
	if p.PublicationDate != nil {
		card.Date, _ = a.Dates.Format(p.PublicationDate, DisplayDatePattern)
		card.DateISO = p.PublicationDate.Format(time.RFC3339)
	}
	return card
}

// listing builds the "load more" view of posts. seen are the uids shown
// before them.
func (a *App) listing(state content.PaginationState, seen []string) views.ListingView {
	all := make([]string, 0, len(seen)+len(state.Items))
	all = append(all, seen...)
	for _, p := range state.Items {
		all = append(all, p.UID)
	}
	return views.ListingView{Posts: a.cards(state.Items), NextCursor: state.NextCursor, Seen: all}
}

func (a *App) cards(posts []content.PostSummary) []views.PostCard {
	out := make([]views.PostCard, 0, len(posts))
	for _, p := range posts {
		out = append(out, a.card(p))
	}
	return out
}

// editedLabel describes when a post was last republished, e.g.
// "editado em 19 mar 2021, às 15:49". It is empty for posts never edited.
func (a *App) editedLabel(d content.PostDetail) string {
	if !d.Edited() {
		return ""
	}
	date, err := a.Dates.Format(d.LastEditedDate, DisplayDatePattern)
	if err != nil {
		return ""
	}
	hour, _ := a.Dates.Hour(d.LastEditedDate)
	minute, _ := a.Dates.Minute(d.LastEditedDate)
	return fmt.Sprintf("editado em %s, às %02d:%02d", date, hour, minute)
}
