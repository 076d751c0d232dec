package spacetraveling

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

const (
	bannerWidth     = 1200
	jpegQuality     = 80
	maxBannerSource = 10 << 20 // 10MB
)

// processBanner decodes an image from src, resizes it to at most maxWidth
// wide, and encodes it as JPEG.
func processBanner(src io.Reader, maxWidth int) ([]byte, int, int, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxWidth {
		newH := h * maxWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

// downloadBanner fetches and resizes the image at rawURL.
func (a *App) downloadBanner(ctx context.Context, uid, rawURL string) (Banner, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return Banner{}, fmt.Errorf("banner url %q is not http(s)", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Banner{}, err
	}
	res, err := a.httpClient.Do(req)
	if err != nil {
		return Banner{}, fmt.Errorf("download banner: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return Banner{}, fmt.Errorf("download banner: status %d", res.StatusCode)
	}

	data, w, h, err := processBanner(io.LimitReader(res.Body, maxBannerSource), bannerWidth)
	if err != nil {
		return Banner{}, err
	}
	return Banner{UID: uid, SourceURL: rawURL, Width: w, Height: h, Data: data}, nil
}

// banner returns the resized banner of a published post, from the store
// when it is current and downloading it otherwise.
func (a *App) banner(ctx context.Context, uid, sourceURL string) (Banner, error) {
	b, err := a.Store.GetBanner(ctx, uid)
	if err == nil && b.SourceURL == sourceURL {
		return b, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Banner{}, err
	}
	b, err = a.downloadBanner(ctx, uid, sourceURL)
	if err != nil {
		return Banner{}, err
	}
	if err := a.Store.SaveBanner(ctx, b); err != nil {
		a.Echo.Logger.Warnf("save banner %s: %v", uid, err)
	}
	return b, nil
}

// handleBanner serves a post's banner resized for social cards.
func (a *App) handleBanner(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")

	// banners are built for published posts only
	doc, err := a.Source.GetByUID(ctx, a.Config.DocumentType, slug, "")
	if err != nil {
		return echo.ErrNotFound
	}
	detail, err := a.Projector.Detail(doc)
	if err != nil || detail.BannerURL == "" {
		return echo.ErrNotFound
	}

	b, err := a.banner(ctx, detail.UID, detail.BannerURL)
	if err != nil {
		c.Logger().Warnf("banner %s: %v", slug, err)
		return echo.NewHTTPError(http.StatusBadGateway, "banner unavailable")
	}
	return c.Blob(http.StatusOK, "image/jpeg", b.Data)
}
