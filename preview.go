package spacetraveling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/prismic"
)

const (
	previewSession = "preview_session"
	previewRefKey  = "ref"
)

type messageResponse struct {
	Message string `json:"message"`
}

// handlePreview enters preview mode: the token becomes the ref every CMS
// read of this browser uses, and the browser is sent to the previewed page.
func (a *App) handlePreview(c echo.Context) error {
	if !a.previewLimiter.Allow(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, messageResponse{"Too many preview requests. Try again later."})
	}
	if a.Previewer == nil {
		return c.JSON(http.StatusNotFound, messageResponse{"Preview is not available"})
	}
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusUnauthorized, messageResponse{"Invalid token"})
	}

	path, err := a.Previewer.ResolvePreview(c.Request().Context(), token, c.QueryParam("documentId"), a.resolveLink, "/")
	if errors.Is(err, prismic.ErrInvalidToken) || (err == nil && path == "") {
		return c.JSON(http.StatusUnauthorized, messageResponse{"Invalid token"})
	}
	if err != nil {
		return err
	}

	if err := setPreviewRef(c, token); err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, path)
}

// handleExitPreview leaves preview mode.
func (a *App) handleExitPreview(c echo.Context) error {
	if err := clearPreviewRef(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, "/")
}

// PreviewRef returns the CMS ref of the current preview session, or "" when
// the browser is not previewing.
func PreviewRef(c echo.Context) string {
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return ""
	}
	ref, _ := sess.Values[previewRefKey].(string)
	return ref
}

func setPreviewRef(c echo.Context, ref string) error {
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return err
	}
	sess.Values[previewRefKey] = ref
	return sess.Save(c.Request(), c.Response())
}

func clearPreviewRef(c echo.Context) error {
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return err
	}
	delete(sess.Values, previewRefKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}
