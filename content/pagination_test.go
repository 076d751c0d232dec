package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaries(uids ...string) []PostSummary {
	out := make([]PostSummary, len(uids))
	for i, uid := range uids {
		out[i] = PostSummary{UID: uid, Title: "Post " + uid}
	}
	return out
}

func uids(items []PostSummary) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.UID
	}
	return out
}

type fakePages struct {
	pages map[string]Page
	calls []string
	err   error
}

func (f *fakePages) fetch(ctx context.Context, cursor string) (Page, error) {
	f.calls = append(f.calls, cursor)
	if f.err != nil {
		return Page{}, f.err
	}
	return f.pages[cursor], nil
}

func TestLoadMoreAppendsAndTerminates(t *testing.T) {
	ctx := context.Background()
	f := &fakePages{pages: map[string]Page{
		"c1": {Items: summaries("p3"), NextCursor: ""},
	}}
	s := NewPagination(Page{Items: summaries("p1", "p2"), NextCursor: "c1"})

	s, err := LoadMore(ctx, s, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3"}, uids(s.Items))
	assert.Empty(t, s.NextCursor)
	assert.False(t, s.HasMore())

	again, err := LoadMore(ctx, s, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, s, again)
	assert.Equal(t, []string{"c1"}, f.calls)
}

func TestLoadMoreWithoutCursorSkipsFetch(t *testing.T) {
	f := &fakePages{}
	s := NewPagination(Page{Items: summaries("a")})
	got, err := LoadMore(context.Background(), s, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Empty(t, f.calls)
}

func TestLoadMoreSkipsDuplicates(t *testing.T) {
	f := &fakePages{pages: map[string]Page{
		"c1": {Items: summaries("b", "c", "a", "c", "d"), NextCursor: "c2"},
	}}
	s := NewPagination(Page{Items: summaries("a", "b", "a"), NextCursor: "c1"})
	assert.Equal(t, []string{"a", "b"}, uids(s.Items))

	s, err := LoadMore(context.Background(), s, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, uids(s.Items))
	assert.Equal(t, "c2", s.NextCursor)
}

func TestLoadMoreLeavesPreviousStateIntact(t *testing.T) {
	f := &fakePages{pages: map[string]Page{
		"c1": {Items: summaries("x")},
	}}
	first := PaginationState{Items: make([]PostSummary, 0, 10), NextCursor: "c1"}
	first.Items = append(first.Items, summaries("a")...)

	next, err := LoadMore(context.Background(), first, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "x"}, uids(next.Items))
	assert.Len(t, first.Items, 1)
	assert.Empty(t, first.Items[:2][1].UID)
}

func TestLoadMoreError(t *testing.T) {
	boom := errors.New("network down")
	f := &fakePages{err: boom}
	s := NewPagination(Page{Items: summaries("a"), NextCursor: "c1"})

	got, err := LoadMore(context.Background(), s, f.fetch)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, s, got)
}

func TestLoadAll(t *testing.T) {
	f := &fakePages{pages: map[string]Page{
		"c1": {Items: summaries("b"), NextCursor: "c2"},
		"c2": {Items: summaries("c", "a"), NextCursor: "c3"},
		"c3": {Items: summaries("d")},
	}}
	s, err := LoadAll(context.Background(), Page{Items: summaries("a"), NextCursor: "c1"}, f.fetch, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, uids(s.Items))
	assert.Equal(t, []string{"c1", "c2", "c3"}, f.calls)
}

func TestLoadAllLimits(t *testing.T) {
	f := &fakePages{pages: map[string]Page{
		"c1": {Items: summaries("b"), NextCursor: "c2"},
		"c2": {Items: summaries("c"), NextCursor: "c3"},
	}}
	s, err := LoadAll(context.Background(), Page{Items: summaries("a"), NextCursor: "c1"}, f.fetch, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, uids(s.Items))
	assert.Equal(t, "c2", s.NextCursor)

	loop := &fakePages{pages: map[string]Page{
		"same": {Items: summaries("b"), NextCursor: "same"},
	}}
	s, err = LoadAll(context.Background(), Page{NextCursor: "same"}, loop.fetch, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, uids(s.Items))
	assert.Len(t, loop.calls, 1)
}
