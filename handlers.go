package spacetraveling

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/views"
)

func isHX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	ref := PreviewRef(c)
	cursor := c.QueryParam("cursor")
	seen := c.QueryParams()["seen"]

	var (
		state content.PaginationState
		err   error
	)
	if cursor != "" {
		state, err = a.loadMore(ctx, ref, cursor, seen)
	} else {
		seen = nil
		state, err = a.firstPage(ctx, ref)
	}
	if errors.Is(err, prismic.ErrInvalidCursor) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cursor")
	}
	if err != nil {
		return err
	}

	listing := a.listing(state, seen)
	if cursor != "" && isHX(c) {
		return Render(c, a.Views.Listing(listing))
	}
	return Render(c, a.Views.Home(views.HomeView{
		Site:    a.site(),
		Listing: listing,
		Preview: ref != "",
	}))
}

type postsResponse struct {
	Results  []content.PostSummary `json:"results"`
	NextPage *string               `json:"next_page"`
}

// handleAPIPosts is the "load more" endpoint: it returns the page a cursor
// points to as JSON, leaving out the uids passed as seen.
func (a *App) handleAPIPosts(c echo.Context) error {
	cursor := c.QueryParam("cursor")
	if cursor == "" {
		return c.JSON(http.StatusBadRequest, messageResponse{"cursor is required"})
	}
	state, err := a.loadMore(c.Request().Context(), PreviewRef(c), cursor, c.QueryParams()["seen"])
	if errors.Is(err, prismic.ErrInvalidCursor) {
		return c.JSON(http.StatusBadRequest, messageResponse{"Invalid cursor"})
	}
	if err != nil {
		c.Logger().Warnf("load more %q: %v", cursor, err)
		return c.JSON(http.StatusBadGateway, messageResponse{"Could not load posts"})
	}
	resp := postsResponse{Results: state.Items}
	if resp.Results == nil {
		resp.Results = []content.PostSummary{}
	}
	if state.HasMore() {
		resp.NextPage = &state.NextCursor
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	ref := PreviewRef(c)
	slug := c.Param("slug")

	doc, err := a.sourceFor(ref).GetByUID(ctx, a.Config.DocumentType, slug, ref)
	if errors.Is(err, prismic.ErrNotFound) {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
	}
	if err != nil {
		return fmt.Errorf("get post %q: %w", slug, err)
	}
	detail, err := a.Projector.Detail(doc)
	if err != nil {
		return fmt.Errorf("project post %q: %w", slug, err)
	}
	detail = detail.WithReadingTime()

	v := views.PostView{
		Site:        a.site(),
		UID:         detail.UID,
		Title:       detail.Title,
		BannerURL:   detail.BannerURL,
		Author:      detail.Author,
		EditedLabel: a.editedLabel(detail),
		ReadingTime: detail.ReadingTimeMinutes,
		Preview:     ref != "",

		CommentsRepo: a.Config.CommentsRepo,
	}
	if detail.PublicationDate != nil {
		v.Date, _ = a.Dates.Format(detail.PublicationDate, DisplayDatePattern)
		v.DateISO = detail.PublicationDate.Format(time.RFC3339)
	}
	if detail.BannerURL != "" {
		v.Meta.Image = BuildURL(a.Config.URL, "post", detail.UID) + "banner.jpg"
	}
	for _, b := range detail.Content {
		v.Sections = append(v.Sections, views.Section{Heading: b.Heading, BodyHTML: b.BodyHTML})
	}

	ordered, err := a.chronological(ctx, ref)
	if err != nil {
		// navigation is optional; the post itself rendered fine
		c.Logger().Warnf("adjacency for %q: %v", slug, err)
	} else {
		adj, err := content.ResolveAdjacency(detail.UID, ordered)
		switch {
		case errors.Is(err, content.ErrNotFound):
			// not in the listing yet, e.g. a draft being previewed
		case err != nil:
			c.Logger().Warnf("adjacency for %q: %v", slug, err)
		default:
			if adj.Previous != nil {
				card := a.card(*adj.Previous)
				v.Previous = &card
			}
			if adj.Next != nil {
				card := a.card(*adj.Next)
				v.Next = &card
			}
		}
	}

	return Render(c, a.Views.Post(v))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.Newest(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.Newest(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nAllow: /\nDisallow: /api/\n\nSitemap: " + strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		var docErr *content.DocumentError
		if errors.As(err, &docErr) {
			c.Logger().Errorf("malformed document %s (field %s): %v", docErr.UID, docErr.Field, err)
		} else {
			c.Logger().Errorf("server error: %v", err)
		}
		_ = RenderStatus(c, code, a.Views.ServerError(a.site()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
