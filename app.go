// Package spacetraveling is a blog front end for a Prismic repository built
// with Go, Echo, and templ. It lists posts newest first with "load more"
// pagination, renders post pages with reading time and previous/next links,
// supports Prismic previews, and can serve everything from a SQLite snapshot
// that is revalidated on a schedule.
//
// Users provide their own templ components via the ViewFuncs struct, and
// spacetraveling handles the CMS access, handlers, and middleware.
package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"

	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/richtext"
	"github.com/eringen/spacetraveling/views"
)

// ViewFuncs holds the templ components the handlers render. The views
// package provides a default set.
type ViewFuncs struct {
	Home        func(v views.HomeView) templ.Component
	Listing     func(v views.ListingView) templ.Component
	Post        func(v views.PostView) templ.Component
	NotFound    func(site views.SiteConfig) templ.Component
	ServerError func(site views.SiteConfig) templ.Component
}

// Source is where documents are read from: the live CMS or the snapshot.
type Source interface {
	Query(ctx context.Context, q prismic.Query) (prismic.Response, error)
	FetchPage(ctx context.Context, cursor string) (prismic.Response, error)
	GetByUID(ctx context.Context, docType, uid, ref string) (prismic.Document, error)
}

// Previewer resolves a preview token to the path of the previewed document.
type Previewer interface {
	ResolvePreview(ctx context.Context, token, documentID string, resolve prismic.LinkFunc, fallback string) (string, error)
}

// HTTPDoer sends HTTP requests; *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// App is the central application. It wires together the CMS client, the
// snapshot store, the summary cache, handlers, middleware, and templates.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	CMS       Source // live CMS, nil when only a snapshot is available
	Source    Source // what published pages are read from
	Previewer Previewer
	Store     *Store
	Cache     *PostCache
	Projector *content.Projector
	Dates     *content.DateFormatter
	Views     ViewFuncs

	resolveLink    func(docType, uid string) string
	previewLimiter *RateLimiter
	redis          *prismic.RedisCache
	cron           *cron.Cron
	revalidating   atomic.Bool
	httpClient     HTTPDoer
	customRoutes   []func(*App)
	staticDir      string
	initialized    bool
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, v ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     v,
		staticDir: "public",
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the CMS client, snapshot store, and caches, and registers
// middleware and routes. Start calls it when it has not run yet.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return errors.New("spacetraveling: SessionSecret is required")
	}

	dates, err := content.NewDateFormatter(a.Config.Locale, a.Config.TimeZone)
	if err != nil {
		return fmt.Errorf("spacetraveling: %w", err)
	}
	a.Dates = dates
	a.resolveLink = LinkResolver(a.Config.DocumentType)
	a.Projector = content.NewProjector(richtext.Renderer{Resolve: a.resolveLink})

	if a.CMS == nil && a.Config.APIEndpoint != "" {
		client, err := a.newCMSClient(ctx)
		if err != nil {
			return err
		}
		a.CMS = client
	}
	if a.Previewer == nil {
		if p, ok := a.CMS.(Previewer); ok {
			a.Previewer = p
		}
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.SnapshotPath)
		if err != nil {
			return fmt.Errorf("spacetraveling: init store: %w", err)
		}
		a.Store = store
	}

	switch {
	case a.Config.ServeSnapshot:
		a.Source = a.Store
	case a.CMS != nil:
		a.Source = a.CMS
	default:
		return errors.New("spacetraveling: APIEndpoint is required unless ServeSnapshot is set")
	}

	a.Cache = NewPostCache(func(ctx context.Context) ([]content.PostSummary, error) {
		return a.allSummaries(ctx, "")
	}, a.Config.PostCacheTTL)

	a.previewLimiter = NewRateLimiter(a.Config.PreviewAttempts, time.Minute)

	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.initialized = true
	return nil
}

func (a *App) newCMSClient(ctx context.Context) (*prismic.Client, error) {
	opts := []prismic.Option{prismic.WithAccessToken(a.Config.AccessToken)}
	if a.Config.RedisURL != "" {
		cache, err := prismic.NewRedisCache(ctx, a.Config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("spacetraveling: init cms cache: %w", err)
		}
		a.redis = cache
		opts = append(opts, prismic.WithCache(cache, a.Config.CMSCacheTTL))
	}
	client, err := prismic.New(a.Config.APIEndpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("spacetraveling: init cms client: %w", err)
	}
	return client, nil
}

// Start initializes the app if needed, schedules snapshot revalidation,
// and starts the server.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}

	if a.Config.ServeSnapshot && a.CMS != nil {
		if err := a.StartRevalidation(a.Config.RevalidateSchedule); err != nil {
			return err
		}
	}

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// User's static assets
	e.Static("/public", a.staticDir)
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/post/:slug/", a.handlePost)
	e.GET("/post/:slug/banner.jpg", a.handleBanner)

	// API routes
	e.GET("/api/posts", a.handleAPIPosts)
	e.GET("/api/preview", a.handlePreview)
	e.GET("/api/exit-preview", a.handleExitPreview)
}

// sourceFor returns the source to read with ref. Drafts only exist in the
// live CMS, so previews bypass the snapshot.
func (a *App) sourceFor(ref string) Source {
	if ref != "" && a.CMS != nil {
		return a.CMS
	}
	return a.Source
}

// site returns the template view of the configuration.
func (a *App) site() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
		Lang:        a.Config.Locale,
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.previewLimiter != nil {
		a.previewLimiter.Close()
	}
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
