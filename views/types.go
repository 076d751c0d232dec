package views

import "net/url"

// SiteConfig holds site-wide settings populated from environment variables.
// Every handler passes this to templates so nothing is hardcoded.
type SiteConfig struct {
	Name        string // SITE_NAME  (default "spacetraveling")
	URL         string // SITE_URL   (default "http://localhost:3000")
	Description string // SITE_DESCRIPTION
	Author      string // SITE_AUTHOR
	Lang        string // html lang attribute, from SITE_LOCALE
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // og:image, absolute
}

// PostCard is a post as shown in the listing and in previous/next links.
type PostCard struct {
	UID      string
	Path     string
	Title    string
	Subtitle string
	Author   string
	Date     string // display date, empty when unpublished
	DateISO  string // datetime attribute
}

// HomeView is the listing page.
type HomeView struct {
	Site    SiteConfig
	Meta    PageMeta
	Listing ListingView
	Preview bool
	JSONLD  string
}

// ListingView is the part of the listing that "load more" replaces: the
// cards and the button pointing at the next page.
type ListingView struct {
	Posts      []PostCard
	NextCursor string
	Seen       []string // uids of every card shown so far, these included
}

// MoreURL is the address of the next page, or "" on the last one. It
// carries the uids already shown so the next page can skip them.
func (v ListingView) MoreURL() string {
	if v.NextCursor == "" {
		return ""
	}
	q := url.Values{"cursor": {v.NextCursor}}
	for _, uid := range v.Seen {
		q.Add("seen", uid)
	}
	return "/?" + q.Encode()
}

// Section is one heading/body block of a post. BodyHTML was produced by the
// rich text renderer and is trusted.
type Section struct {
	Heading  string
	BodyHTML string
}

// PostView is a single post page.
type PostView struct {
	Site        SiteConfig
	Meta        PageMeta
	UID         string
	Title       string
	BannerURL   string
	Author      string
	Date        string
	DateISO     string
	EditedLabel string // e.g. "editado em 19 mar 2021, às 15:49", empty when never edited
	ReadingTime int    // minutes
	Sections    []Section
	Previous    *PostCard
	Next        *PostCard
	Preview     bool
	JSONLD      string

	// CommentsRepo is the GitHub repository ("owner/name") whose issues hold
	// the comment threads. Comments are left out when empty.
	CommentsRepo string
}
