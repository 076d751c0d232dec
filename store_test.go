package spacetraveling

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/prismic"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "data", "snapshot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func uids(docs []prismic.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.UID)
	}
	return out
}

func TestStoreReplaceDocumentsAndSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.LastSnapshot(ctx)
	require.ErrorIs(t, err, sql.ErrNoRows)

	page := postDoc("about", "About", "2021-01-01T10:00:00+0000")
	page.Type = "page"
	docs := append(fivePosts(), page)
	require.NoError(t, store.ReplaceDocuments(ctx, "post", "ref-1", docs))

	snap, err := store.LastSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ref-1", snap.Ref)
	assert.Equal(t, 5, snap.Documents)
	assert.False(t, snap.TakenAt.IsZero())

	// a second generation replaces the first instead of adding to it
	require.NoError(t, store.ReplaceDocuments(ctx, "post", "ref-2", fivePosts()[:2]))
	resp, err := store.Query(ctx, prismic.Query{Type: "post", Orderings: prismic.OrderOldestFirst})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, uids(resp.Results))

	snap, err = store.LastSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ref-2", snap.Ref)
}

func TestStoreQueryPaginatesWithCursors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.ReplaceDocuments(ctx, "post", "ref", fivePosts()))

	resp, err := store.Query(ctx, prismic.Query{Type: "post", PageSize: 2, Orderings: prismic.OrderNewestFirst})
	require.NoError(t, err)
	assert.Equal(t, []string{"p5", "p4"}, uids(resp.Results))
	require.NotEmpty(t, resp.NextPage)

	var seen []string
	seen = append(seen, uids(resp.Results)...)
	for resp.NextPage != "" {
		resp, err = store.FetchPage(ctx, resp.NextPage)
		require.NoError(t, err)
		seen = append(seen, uids(resp.Results)...)
	}
	assert.Equal(t, []string{"p5", "p4", "p3", "p2", "p1"}, seen)
}

func TestStoreOrdersByInstantNotText(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	// 08:00-03:00 is 11:00 UTC, after 10:30 UTC despite sorting first as text
	docs := []prismic.Document{
		postDoc("late", "Late", "2021-03-01T08:00:00-0300"),
		postDoc("early", "Early", "2021-03-01T10:30:00+0000"),
	}
	require.NoError(t, store.ReplaceDocuments(ctx, "post", "ref", docs))

	resp, err := store.Query(ctx, prismic.Query{Type: "post", Orderings: prismic.OrderOldestFirst})
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late"}, uids(resp.Results))
}

func TestStoreFetchPageRejectsForeignCursor(t *testing.T) {
	store := newTestStore(t)
	for _, cursor := range []string{
		"https://repo.cdn.prismic.io/api/v2/documents/search?page=2",
		"snapshot://documents?type=post&offset=-1&size=2",
		"snapshot://documents?type=post&offset=2",
	} {
		_, err := store.FetchPage(context.Background(), cursor)
		assert.ErrorIs(t, err, prismic.ErrInvalidCursor, cursor)
	}
}

func TestStoreGetByUID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.ReplaceDocuments(ctx, "post", "ref", fivePosts()))

	doc, err := store.GetByUID(ctx, "post", "p3", "")
	require.NoError(t, err)
	assert.Equal(t, "id-p3", doc.ID)
	assert.JSONEq(t, `"Post 3"`, string(doc.Data["title"]))

	_, err = store.GetByUID(ctx, "post", "missing", "")
	assert.ErrorIs(t, err, prismic.ErrNotFound)
}

func TestStoreBanners(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetBanner(ctx, "p1")
	require.ErrorIs(t, err, sql.ErrNoRows)

	for _, uid := range []string{"p1", "p2"} {
		require.NoError(t, store.SaveBanner(ctx, Banner{
			UID: uid, SourceURL: "https://images.example.com/" + uid, Width: 10, Height: 5, Data: []byte{1, 2, 3},
		}))
	}
	b, err := store.GetBanner(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "https://images.example.com/p1", b.SourceURL)
	assert.Equal(t, []byte{1, 2, 3}, b.Data)
	assert.Equal(t, 10, b.Width)

	require.NoError(t, store.DeleteBannersExcept(ctx, []string{"p2"}))
	_, err = store.GetBanner(ctx, "p1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = store.GetBanner(ctx, "p2")
	assert.NoError(t, err)

	require.NoError(t, store.DeleteBannersExcept(ctx, nil))
	_, err = store.GetBanner(ctx, "p2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
