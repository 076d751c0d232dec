// Package content turns raw CMS documents into the view-ready shapes the
// site renders: post summaries for listings, post details with reading time,
// pagination state for "load more" and previous/next navigation.
package content

import "time"

// PostSummary is the listing shape of a post.
type PostSummary struct {
	UID             string     `json:"uid"`
	PublicationDate *time.Time `json:"first_publication_date"`
	Title           string     `json:"title"`
	Subtitle        string     `json:"subtitle"`
	Author          string     `json:"author"`
}

// ContentBlock is one heading/body section of a post.
type ContentBlock struct {
	Heading  string
	BodyHTML string
	BodyText string
}

// PostDetail is the full shape of a single post page.
type PostDetail struct {
	UID                string
	PublicationDate    *time.Time
	LastEditedDate     *time.Time
	Title              string
	BannerURL          string
	Author             string
	Content            []ContentBlock
	ReadingTimeMinutes int
}

// WithReadingTime returns a copy of d with the estimated reading time set.
func (d PostDetail) WithReadingTime() PostDetail {
	d.ReadingTimeMinutes = EstimateReadingTime(d.Content)
	return d
}

// Edited reports whether the post was republished after its first publication.
func (d PostDetail) Edited() bool {
	if d.PublicationDate == nil || d.LastEditedDate == nil {
		return false
	}
	return d.LastEditedDate.After(*d.PublicationDate)
}

// Adjacency holds the posts published immediately before and after a post.
type Adjacency struct {
	Previous *PostSummary
	Next     *PostSummary
}
