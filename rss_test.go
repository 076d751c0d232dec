package spacetraveling

import (
	"net/http"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedIsValidRSS(t *testing.T) {
	cfg := testConfig(t)
	cfg.Description = "Um blog sobre viagens espaciais"
	app := newTestApp(t, cfg, newMemSource(fivePosts()...))

	rec := doRequest(app, "/feed.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))

	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	require.NoError(t, err)
	assert.Equal(t, "rss", feed.FeedType)
	assert.Equal(t, "spacetraveling", feed.Title)
	assert.Equal(t, "Um blog sobre viagens espaciais", feed.Description)
	assert.Equal(t, "pt-BR", feed.Language)
	require.NotNil(t, feed.UpdatedParsed)
	assert.True(t, feed.UpdatedParsed.Equal(time.Date(2021, 3, 5, 10, 0, 0, 0, time.UTC)))

	require.Len(t, feed.Items, 5)
	item := feed.Items[0]
	assert.Equal(t, "Post 5", item.Title)
	assert.Equal(t, "https://blog.example.com/post/p5/", item.Link)
	assert.Equal(t, "https://blog.example.com/post/p5/", item.GUID)
	assert.Equal(t, "Post 5 subtitle", item.Description)
	require.NotNil(t, item.PublishedParsed)
	assert.True(t, item.PublishedParsed.Equal(time.Date(2021, 3, 5, 10, 0, 0, 0, time.UTC)))
	require.NotEmpty(t, item.Authors)
	assert.Equal(t, "Autor p5", item.Authors[0].Name)
}

func TestFeedWithoutPosts(t *testing.T) {
	app := newTestApp(t, testConfig(t), newMemSource())

	rec := doRequest(app, "/feed.xml")
	require.Equal(t, http.StatusOK, rec.Code)

	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	require.NoError(t, err)
	assert.Empty(t, feed.Items)
	assert.Nil(t, feed.UpdatedParsed)
}
