package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRepo serves the API root, document search and preview endpoints.
type fakeRepo struct {
	t       *testing.T
	srv     *httptest.Server
	docs    []Document
	mu      sync.Mutex
	queries []string
	roots   int
}

func newFakeRepo(t *testing.T, docs ...Document) *fakeRepo {
	t.Helper()
	f := &fakeRepo{t: t, docs: docs}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.roots++
		f.mu.Unlock()
		writeJSON(w, map[string]any{"refs": []Ref{
			{ID: "preview", Ref: "release-ref", Label: "Release"},
			{ID: "master", Ref: "master-ref", Label: "Master", IsMasterRef: true},
		}})
	})
	mux.HandleFunc("/api/v2/documents/search", f.search)
	mux.HandleFunc("/previews/good", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"mainDocument": "id-b"})
	})
	mux.HandleFunc("/previews/empty", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRepo) endpoint() string {
	return f.srv.URL + "/api/v2"
}

func (f *fakeRepo) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.mu.Lock()
	f.queries = append(f.queries, r.URL.RawQuery)
	f.mu.Unlock()

	if tok := q.Get("access_token"); tok != "" && tok != "secret" {
		http.Error(w, `{"error":"bad token"}`, http.StatusUnauthorized)
		return
	}

	var matches []Document
	pred := q.Get("q")
	for _, d := range f.docs {
		switch {
		case strings.Contains(pred, `document.type,"`+d.Type+`"`),
			strings.Contains(pred, `.uid,"`+d.UID+`"`),
			strings.Contains(pred, `document.id,"`+d.ID+`"`):
			matches = append(matches, d)
		}
	}

	size := len(matches)
	if ps := q.Get("pageSize"); ps != "" {
		size, _ = strconv.Atoi(ps)
	}
	page := 1
	if p := q.Get("page"); p != "" {
		page, _ = strconv.Atoi(p)
	}
	start := (page - 1) * size
	end := start + size
	if start > len(matches) {
		start = len(matches)
	}
	if end > len(matches) {
		end = len(matches)
	}
	resp := Response{Page: page, ResultsPerPage: size, Results: matches[start:end], TotalResultsSize: len(matches)}
	if end < len(matches) {
		next := *r.URL
		v := next.Query()
		v.Set("page", strconv.Itoa(page+1))
		v.Del("access_token")
		next.RawQuery = v.Encode()
		resp.NextPage = f.srv.URL + next.Path + "?" + next.RawQuery
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func testDocs() []Document {
	return []Document{
		{ID: "id-a", UID: "a", Type: "post", Data: map[string]json.RawMessage{"title": json.RawMessage(`"A"`)}},
		{ID: "id-b", UID: "b", Type: "post", Data: map[string]json.RawMessage{"title": json.RawMessage(`"B"`)}},
		{ID: "id-c", UID: "c", Type: "post", Data: map[string]json.RawMessage{"title": json.RawMessage(`"C"`)}},
		{ID: "id-home", UID: "home", Type: "page"},
	}
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	for _, ep := range []string{"", "ftp://repo/api", "not a url", "/api/v2"} {
		if _, err := New(ep); err == nil {
			t.Errorf("New(%q) should fail", ep)
		}
	}
}

func TestQueryUsesMasterRefAndPaginates(t *testing.T) {
	repo := newFakeRepo(t, testDocs()...)
	c, err := New(repo.endpoint(), WithAccessToken("secret"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	resp, err := c.Query(ctx, Query{Type: "post", PageSize: 2, Fetch: []string{"post.title"}, Orderings: OrderNewestFirst})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Results) != 2 || resp.Results[0].UID != "a" {
		t.Fatalf("unexpected first page: %+v", resp.Results)
	}
	if resp.NextPage == "" {
		t.Fatal("expected a next page")
	}
	first := repo.queries[0]
	for _, want := range []string{"ref=master-ref", "pageSize=2", "fetch=post.title", "access_token=secret", "orderings="} {
		if !strings.Contains(first, want) {
			t.Errorf("query %q missing %q", first, want)
		}
	}

	resp, err = c.FetchPage(ctx, resp.NextPage)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].UID != "c" {
		t.Fatalf("unexpected second page: %+v", resp.Results)
	}
	if resp.NextPage != "" {
		t.Errorf("NextPage = %q, want empty", resp.NextPage)
	}
	if !strings.Contains(repo.queries[1], "access_token=secret") {
		t.Errorf("FetchPage did not add the access token: %q", repo.queries[1])
	}
}

func TestQueryExplicitRefSkipsRoot(t *testing.T) {
	repo := newFakeRepo(t, testDocs()...)
	c, _ := New(repo.endpoint(), WithHTTPClient(repo.srv.Client()))
	if _, err := c.Query(context.Background(), Query{Type: "post", Ref: "preview-ref"}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if repo.roots != 0 {
		t.Errorf("api root read %d times, want 0", repo.roots)
	}
	if !strings.Contains(repo.queries[0], "ref=preview-ref") {
		t.Errorf("query %q does not carry the ref", repo.queries[0])
	}
}

func TestMasterRefIsReused(t *testing.T) {
	repo := newFakeRepo(t, testDocs()...)
	c, _ := New(repo.endpoint(), WithRefTTL(time.Minute))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Query(ctx, Query{Type: "post"}); err != nil {
			t.Fatalf("Query: %v", err)
		}
	}
	if repo.roots != 1 {
		t.Errorf("api root read %d times, want 1", repo.roots)
	}
}

func TestFetchPageRejectsForeignCursor(t *testing.T) {
	repo := newFakeRepo(t, testDocs()...)
	c, _ := New(repo.endpoint())
	for _, cursor := range []string{
		"https://evil.example.com/api/v2/documents/search?page=2",
		repo.srv.URL + "/api/v2/other?page=2",
		"::::",
	} {
		if _, err := c.FetchPage(context.Background(), cursor); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("FetchPage(%q) error = %v, want ErrInvalidCursor", cursor, err)
		}
	}
	if len(repo.queries) != 0 {
		t.Errorf("foreign cursors reached the server: %v", repo.queries)
	}
}

func TestGetByUID(t *testing.T) {
	repo := newFakeRepo(t, testDocs()...)
	c, _ := New(repo.endpoint())
	ctx := context.Background()

	doc, err := c.GetByUID(ctx, "post", "b", "")
	if err != nil {
		t.Fatalf("GetByUID: %v", err)
	}
	if doc.ID != "id-b" {
		t.Errorf("ID = %q, want id-b", doc.ID)
	}
	if string(doc.Data["title"]) != `"B"` {
		t.Errorf("title = %s", doc.Data["title"])
	}

	_, err = c.GetByUID(ctx, "post", "missing", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHTTPErrorsAreReported(t *testing.T) {
	repo := newFakeRepo(t, testDocs()...)
	c, _ := New(repo.endpoint(), WithAccessToken("wrong"))
	_, err := c.Query(context.Background(), Query{Type: "post", Ref: "r"})
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("expected status 401 error, got %v", err)
	}
	if strings.Contains(err.Error(), "wrong") {
		t.Errorf("error leaks the access token: %v", err)
	}
}

func TestResolvePreview(t *testing.T) {
	repo := newFakeRepo(t, testDocs()...)
	c, _ := New(repo.endpoint())
	ctx := context.Background()
	link := func(docType, uid string) string { return "/" + docType + "/" + uid }

	got, err := c.ResolvePreview(ctx, repo.srv.URL+"/previews/good", "", link, "/")
	if err != nil {
		t.Fatalf("ResolvePreview: %v", err)
	}
	if got != "/post/b" {
		t.Errorf("path = %q, want /post/b", got)
	}

	got, err = c.ResolvePreview(ctx, repo.srv.URL+"/previews/good", "id-c", link, "/")
	if err != nil || got != "/post/c" {
		t.Errorf("explicit document: got %q, %v", got, err)
	}

	got, err = c.ResolvePreview(ctx, repo.srv.URL+"/previews/empty", "", link, "/")
	if err != nil || got != "/" {
		t.Errorf("empty preview: got %q, %v", got, err)
	}

	if _, err := c.ResolvePreview(ctx, "https://evil.example.com/previews/good", "", link, "/"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign token: expected ErrInvalidToken, got %v", err)
	}
	if _, err := c.ResolvePreview(ctx, repo.srv.URL+"/previews/unknown", "", link, "/"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unknown token: expected ErrInvalidToken, got %v", err)
	}
}

func TestOwnsPreviewHostStripsCDN(t *testing.T) {
	c, _ := New("https://spacetraveling.cdn.prismic.io/api/v2")
	for host, want := range map[string]bool{
		"https://spacetraveling.prismic.io/previews/x":     true,
		"https://spacetraveling.cdn.prismic.io/previews/x": true,
		"https://other.prismic.io/previews/x":              false,
		"javascript://spacetraveling.prismic.io":           false,
	} {
		u, _ := url.Parse(host)
		if got := c.ownsPreviewHost(u); got != want {
			t.Errorf("ownsPreviewHost(%q) = %v, want %v", host, got, want)
		}
	}
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (m *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return b, nil
}

func (m *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func TestCacheServesRepeatedSearches(t *testing.T) {
	repo := newFakeRepo(t, testDocs()...)
	cache := &mapCache{data: map[string][]byte{}}
	c, _ := New(repo.endpoint(), WithCache(cache, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		resp, err := c.Query(ctx, Query{Type: "post"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(resp.Results) != 3 {
			t.Fatalf("results = %d, want 3", len(resp.Results))
		}
	}
	// naming the master ref explicitly reads the same entry
	if _, err := c.Query(ctx, Query{Type: "post", Ref: "master-ref"}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(repo.queries) != 1 || cache.sets != 1 {
		t.Errorf("published searches: queries=%d sets=%d, want 1 and 1", len(repo.queries), cache.sets)
	}
}

func TestPreviewSearchesBypassCache(t *testing.T) {
	repo := newFakeRepo(t, testDocs()...)
	cache := &mapCache{data: map[string][]byte{}}
	c, _ := New(repo.endpoint(), WithCache(cache, time.Minute))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Query(ctx, Query{Type: "post", Ref: "preview-ref"}); err != nil {
			t.Fatalf("Query: %v", err)
		}
		if _, err := c.GetByUID(ctx, "post", "b", "preview-ref"); err != nil {
			t.Fatalf("GetByUID: %v", err)
		}
	}
	if len(repo.queries) != 4 {
		t.Errorf("server saw %d searches, want 4", len(repo.queries))
	}
	if cache.sets != 0 {
		t.Errorf("draft responses were cached %d times", cache.sets)
	}

	resp, err := c.Query(ctx, Query{Type: "post", Ref: "preview-ref", PageSize: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if _, err := c.FetchPage(ctx, resp.NextPage); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if cache.sets != 0 {
		t.Errorf("draft pages were cached %d times", cache.sets)
	}
}

func TestAt(t *testing.T) {
	if got := At("my.post.uid", `a"b`); got != `[at(my.post.uid,"a\"b")]` {
		t.Errorf("At = %s", got)
	}
}
