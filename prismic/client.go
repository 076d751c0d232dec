package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	maxResponseSize = 10 << 20
	defaultRefTTL   = 5 * time.Second
)

// Client talks to one Prismic repository. It is safe for concurrent use.
type Client struct {
	endpoint    *url.URL
	accessToken string
	http        *http.Client
	cache       Cache
	cacheTTL    time.Duration
	refTTL      time.Duration

	mu        sync.Mutex
	masterRef string
	refAt     time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithAccessToken sets the token sent with every request.
func WithAccessToken(token string) Option {
	return func(c *Client) { c.accessToken = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache stores search responses in cache for ttl.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithRefTTL sets how long the master ref is reused before the API root is
// read again. Zero disables reuse.
func WithRefTTL(ttl time.Duration) Option {
	return func(c *Client) { c.refTTL = ttl }
}

// New creates a client for an API endpoint such as
// https://repo.cdn.prismic.io/api/v2.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("prismic: parse endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("prismic: endpoint %q is not an http(s) URL", endpoint)
	}
	c := &Client{
		endpoint: u,
		http:     &http.Client{Timeout: 15 * time.Second},
		refTTL:   defaultRefTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MasterRef returns the ref of the published content.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.masterRef != "" && time.Since(c.refAt) < c.refTTL {
		ref := c.masterRef
		c.mu.Unlock()
		return ref, nil
	}
	c.mu.Unlock()

	var root apiRoot
	if err := c.getJSON(ctx, c.withToken(*c.endpoint), &root, false); err != nil {
		return "", fmt.Errorf("prismic: read api root: %w", err)
	}
	for _, r := range root.Refs {
		if r.IsMasterRef {
			c.mu.Lock()
			c.masterRef, c.refAt = r.Ref, time.Now()
			c.mu.Unlock()
			return r.Ref, nil
		}
	}
	return "", errors.New("prismic: api root has no master ref")
}

// Query runs a search for documents of q.Type.
func (c *Client) Query(ctx context.Context, q Query) (Response, error) {
	v := url.Values{}
	v.Set("q", "["+At("document.type", q.Type)+"]")
	if len(q.Fetch) > 0 {
		v.Set("fetch", strings.Join(q.Fetch, ","))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Orderings != "" {
		v.Set("orderings", q.Orderings)
	}
	return c.search(ctx, q.Ref, v)
}

// FetchPage follows a next_page URL returned by an earlier search. Cursors
// that do not point at this repository's search endpoint are rejected.
func (c *Client) FetchPage(ctx context.Context, cursor string) (Response, error) {
	u, err := url.Parse(cursor)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if u.Scheme != c.endpoint.Scheme || u.Host != c.endpoint.Host || u.Path != c.searchPath() {
		return Response{}, fmt.Errorf("%w: %q is outside %s", ErrInvalidCursor, cursor, c.endpoint)
	}
	var resp Response
	if err := c.getJSON(ctx, c.withToken(*u), &resp, c.isMasterRef(u.Query().Get("ref"))); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// GetByUID returns the document of docType with the given uid.
func (c *Client) GetByUID(ctx context.Context, docType, uid, ref string) (Document, error) {
	v := url.Values{}
	v.Set("q", "["+At("my."+docType+".uid", uid)+"]")
	v.Set("pageSize", "1")
	return c.first(ctx, ref, v)
}

// GetByID returns the document with the given id.
func (c *Client) GetByID(ctx context.Context, id, ref string) (Document, error) {
	v := url.Values{}
	v.Set("q", "["+At("document.id", id)+"]")
	v.Set("pageSize", "1")
	return c.first(ctx, ref, v)
}

// ResolvePreview checks a preview token and returns the path of the
// document being previewed. When the token names no document the fallback
// path is returned. The token itself is the ref to query drafts with.
func (c *Client) ResolvePreview(ctx context.Context, token, documentID string, resolve LinkFunc, fallback string) (string, error) {
	u, err := url.Parse(token)
	if err != nil || !c.ownsPreviewHost(u) {
		return "", ErrInvalidToken
	}
	if documentID == "" {
		var preview struct {
			MainDocument string `json:"mainDocument"`
		}
		if err := c.getJSON(ctx, c.withToken(*u), &preview, false); err != nil {
			if errors.Is(err, ErrNotFound) {
				return "", ErrInvalidToken
			}
			return "", fmt.Errorf("prismic: read preview: %w", err)
		}
		documentID = preview.MainDocument
	}
	if documentID == "" {
		return fallback, nil
	}
	doc, err := c.GetByID(ctx, documentID, token)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	if resolve == nil {
		return fallback, nil
	}
	return resolve(doc.Type, doc.UID), nil
}

func (c *Client) first(ctx context.Context, ref string, v url.Values) (Document, error) {
	resp, err := c.search(ctx, ref, v)
	if err != nil {
		return Document{}, err
	}
	if len(resp.Results) == 0 {
		return Document{}, ErrNotFound
	}
	return resp.Results[0], nil
}

// search runs a query at ref, the master ref when empty. Only published
// content is cached: drafts behind a preview ref change under the same ref.
func (c *Client) search(ctx context.Context, ref string, v url.Values) (Response, error) {
	cacheable := true
	if ref == "" {
		var err error
		if ref, err = c.MasterRef(ctx); err != nil {
			return Response{}, err
		}
	} else {
		cacheable = c.isMasterRef(ref)
	}
	v.Set("ref", ref)
	u := *c.endpoint
	u.Path = c.searchPath()
	u.RawQuery = v.Encode()
	var resp Response
	if err := c.getJSON(ctx, c.withToken(u), &resp, cacheable); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// isMasterRef reports whether ref is the last master ref read.
func (c *Client) isMasterRef(ref string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ref == c.masterRef
}

func (c *Client) searchPath() string {
	return c.endpoint.Path + "/documents/search"
}

// ownsPreviewHost accepts tokens served from the repository host, with or
// without the ".cdn" label.
func (c *Client) ownsPreviewHost(u *url.URL) bool {
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	host := c.endpoint.Host
	return u.Host == host || u.Host == strings.Replace(host, ".cdn.", ".", 1)
}

func (c *Client) withToken(u url.URL) string {
	if c.accessToken == "" {
		return u.String()
	}
	v := u.Query()
	if v.Get("access_token") == "" {
		v.Set("access_token", c.accessToken)
		u.RawQuery = v.Encode()
	}
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any, cacheable bool) error {
	body, err := c.get(ctx, rawURL, cacheable)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("prismic: decode %s: %w", c.redact(rawURL), err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string, cacheable bool) ([]byte, error) {
	useCache := cacheable && c.cache != nil
	if useCache {
		if body, err := c.cache.Get(ctx, cacheKey(rawURL)); err == nil {
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prismic: get %s: %w", c.redact(rawURL), err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("prismic: read %s: %w", c.redact(rawURL), err)
	}
	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("prismic: get %s: status %d: %s", c.redact(rawURL), res.StatusCode, snippet(body))
	}

	if useCache {
		// a failed cache write only costs a future request
		_ = c.cache.Set(ctx, cacheKey(rawURL), body, c.cacheTTL)
	}
	return body, nil
}

func (c *Client) redact(rawURL string) string {
	if c.accessToken == "" {
		return rawURL
	}
	return strings.ReplaceAll(rawURL, url.QueryEscape(c.accessToken), "REDACTED")
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
