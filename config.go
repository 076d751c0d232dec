package spacetraveling

import "time"

// SiteConfig holds all configuration for a spacetraveling site.
type SiteConfig struct {
	Name        string // Site name (default "spacetraveling")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD

	Locale   string // Display locale, any BCP 47 tag (default "pt-BR")
	TimeZone string // IANA zone dates are shown in (default "America/Sao_Paulo")

	Addr string // Listen address (default ":3000")

	APIEndpoint  string // Prismic API endpoint, e.g. https://repo.cdn.prismic.io/api/v2
	AccessToken  string // Prismic access token, optional for public repositories
	DocumentType string // Custom type of blog posts (default "post")
	PageSize     int    // Posts per listing page (default 4)

	RedisURL    string        // Shared CMS response cache, disabled when empty
	CMSCacheTTL time.Duration // CMS response cache TTL (default 5min)

	SnapshotPath       string // SQLite snapshot path (default "data/snapshot.db")
	ServeSnapshot      bool   // Serve published content from the snapshot instead of the CMS
	RevalidateSchedule string // Cron spec for snapshot revalidation (default "@every 24h")

	SessionSecret string // Required: preview session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	CommentsRepo string // GitHub "owner/name" holding utterances comment threads, disabled when empty

	PostCacheTTL    time.Duration // Summary cache TTL (default 5min)
	PreviewAttempts int           // Preview requests allowed per IP per minute (default 10)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Locale == "" {
		c.Locale = "pt-BR"
	}
	if c.TimeZone == "" {
		c.TimeZone = "America/Sao_Paulo"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DocumentType == "" {
		c.DocumentType = "post"
	}
	if c.PageSize <= 0 {
		c.PageSize = 4
	}
	if c.CMSCacheTTL == 0 {
		c.CMSCacheTTL = 5 * time.Minute
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = "data/snapshot.db"
	}
	if c.RevalidateSchedule == "" {
		c.RevalidateSchedule = "@every 24h"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.PreviewAttempts <= 0 {
		c.PreviewAttempts = 10
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithSource replaces the CMS client built from APIEndpoint. Tests use it
// to serve documents from memory.
func WithSource(src Source) Option {
	return func(a *App) {
		a.CMS = src
	}
}

// WithPreviewer sets what resolves preview tokens. By default the CMS
// client does, when it supports previews.
func WithPreviewer(p Previewer) Option {
	return func(a *App) {
		a.Previewer = p
	}
}

// WithStore uses an already opened snapshot store instead of opening
// SnapshotPath.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithHTTPClient sets the client used to download banner images.
func WithHTTPClient(hc HTTPDoer) Option {
	return func(a *App) {
		a.httpClient = hc
	}
}
