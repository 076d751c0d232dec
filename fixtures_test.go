package spacetraveling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/views"
)

// memSource is an in-memory CMS. Drafts are the documents visible under a
// preview ref; previews maps preview tokens to the id of their document.
// A non-nil fail makes every page fetch fail as an unreachable CMS would.
type memSource struct {
	mu       sync.Mutex
	docs     []prismic.Document
	drafts   map[string][]prismic.Document
	previews map[string]string
	fail     error
	queries  int
	fetches  int
}

func (m *memSource) publish(doc prismic.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, doc)
}

func (m *memSource) setFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func newMemSource(docs ...prismic.Document) *memSource {
	return &memSource{docs: docs, drafts: map[string][]prismic.Document{}, previews: map[string]string{}}
}

func (m *memSource) visible(ref string) []prismic.Document {
	if d, ok := m.drafts[ref]; ok && ref != "" {
		return d
	}
	return m.docs
}

func (m *memSource) Query(ctx context.Context, q prismic.Query) (prismic.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	size := q.PageSize
	if size <= 0 {
		size = 20
	}
	return m.page(q.Ref, q.Type, strings.HasSuffix(q.Orderings, "desc]"), 0, size), nil
}

func (m *memSource) FetchPage(ctx context.Context, cursor string) (prismic.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.fail != nil {
		return prismic.Response{}, m.fail
	}
	u, err := url.Parse(cursor)
	if err != nil || u.Scheme != "mem" {
		return prismic.Response{}, fmt.Errorf("%w: %q", prismic.ErrInvalidCursor, cursor)
	}
	v := u.Query()
	offset, _ := strconv.Atoi(v.Get("offset"))
	size, _ := strconv.Atoi(v.Get("size"))
	return m.page(v.Get("ref"), v.Get("type"), v.Get("desc") == "1", offset, size), nil
}

func (m *memSource) page(ref, docType string, desc bool, offset, size int) prismic.Response {
	var docs []prismic.Document
	for _, d := range m.visible(ref) {
		if d.Type == docType {
			docs = append(docs, d)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if desc {
			return docs[i].FirstPublicationDate > docs[j].FirstPublicationDate
		}
		return docs[i].FirstPublicationDate < docs[j].FirstPublicationDate
	})
	end := offset + size
	if end > len(docs) {
		end = len(docs)
	}
	if offset > end {
		offset = end
	}
	resp := prismic.Response{Results: docs[offset:end], ResultsPerPage: size}
	if end < len(docs) {
		v := url.Values{}
		v.Set("ref", ref)
		v.Set("type", docType)
		v.Set("offset", strconv.Itoa(end))
		v.Set("size", strconv.Itoa(size))
		if desc {
			v.Set("desc", "1")
		}
		resp.NextPage = "mem://documents?" + v.Encode()
	}
	return resp
}

func (m *memSource) GetByUID(ctx context.Context, docType, uid, ref string) (prismic.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.visible(ref) {
		if d.Type == docType && d.UID == uid {
			return d, nil
		}
	}
	return prismic.Document{}, prismic.ErrNotFound
}

func (m *memSource) MasterRef(ctx context.Context) (string, error) {
	return "master-1", nil
}

func (m *memSource) ResolvePreview(ctx context.Context, token, documentID string, resolve prismic.LinkFunc, fallback string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.previews[token]
	if !ok {
		return "", prismic.ErrInvalidToken
	}
	if documentID != "" {
		id = documentID
	}
	for _, d := range m.visible(token) {
		if d.ID == id {
			return resolve(d.Type, d.UID), nil
		}
	}
	return fallback, nil
}

// postDoc builds a post published at the given Prismic timestamp whose
// single section has heading "Intro" and one paragraph per body string.
func postDoc(uid, title, published string, body ...string) prismic.Document {
	paragraphs := make([]map[string]any, 0, len(body))
	for _, text := range body {
		paragraphs = append(paragraphs, map[string]any{"type": "paragraph", "text": text, "spans": []any{}})
	}
	data := map[string]any{
		"subtitle": title + " subtitle",
		"author":   "Autor " + uid,
		"banner":   map[string]any{"url": nil},
		"content":  []map[string]any{{"heading": "Intro", "body": paragraphs}},
	}
	if title != "" {
		data["title"] = title
	}
	raw := make(map[string]json.RawMessage, len(data))
	for k, v := range data {
		b, _ := json.Marshal(v)
		raw[k] = b
	}
	return prismic.Document{
		ID:                   "id-" + uid,
		UID:                  uid,
		Type:                 "post",
		FirstPublicationDate: published,
		LastPublicationDate:  published,
		Data:                 raw,
	}
}

func withBanner(doc prismic.Document, bannerURL string) prismic.Document {
	doc.Data["banner"], _ = json.Marshal(map[string]string{"url": bannerURL})
	return doc
}

// fivePosts returns p1..p5, published on the first five days of March 2021.
func fivePosts() []prismic.Document {
	var docs []prismic.Document
	for i := 1; i <= 5; i++ {
		uid := fmt.Sprintf("p%d", i)
		docs = append(docs, postDoc(uid, "Post "+strconv.Itoa(i), fmt.Sprintf("2021-03-0%dT10:00:00+0000", i), "hello world"))
	}
	return docs
}

func testViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		Listing:     views.Listing,
		Post:        views.Post,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

func testConfig(t *testing.T) SiteConfig {
	return SiteConfig{
		Name:          "spacetraveling",
		URL:           "https://blog.example.com",
		TimeZone:      "UTC",
		PageSize:      2,
		SessionSecret: "test-secret-test-secret-test-sec",
		SnapshotPath:  filepath.Join(t.TempDir(), "snapshot.db"),
	}
}

func newTestApp(t *testing.T, cfg SiteConfig, src *memSource, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithSource(src), WithPreviewer(src)}, opts...)
	app := New(cfg, testViews(), opts...)
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() { app.Close() })
	return app
}

func doRequest(app *App, target string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, fn := range mutate {
		fn(req)
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func withHX(req *http.Request) {
	req.Header.Set("HX-Request", "true")
}

func withCookies(cookies []*http.Cookie) func(*http.Request) {
	return func(req *http.Request) {
		for _, c := range cookies {
			req.AddCookie(c)
		}
	}
}
