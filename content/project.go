package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/richtext"
)

// RichTextRenderer renders CMS rich text. The projector never writes
// markup itself.
type RichTextRenderer interface {
	AsHTML(rt richtext.RichText) string
	AsText(rt richtext.RichText) string
}

// Projector maps raw CMS documents to view entities. Each request or test
// builds its own from an explicit renderer.
type Projector struct {
	renderer RichTextRenderer
}

// NewProjector returns a Projector that renders rich text with r.
func NewProjector(r RichTextRenderer) *Projector {
	return &Projector{renderer: r}
}

// Summary projects doc to the listing shape. Absent text fields become ""
// and an absent publication date becomes nil; only a missing uid fails.
func (p *Projector) Summary(doc prismic.Document) (PostSummary, error) {
	if doc.UID == "" {
		return PostSummary{}, malformed(doc.ID, "uid")
	}
	published, err := optionalTime(doc.UID, "first_publication_date", doc.FirstPublicationDate)
	if err != nil {
		return PostSummary{}, err
	}
	title, _, err := p.text(doc, "title")
	if err != nil {
		return PostSummary{}, err
	}
	subtitle, _, err := p.text(doc, "subtitle")
	if err != nil {
		return PostSummary{}, err
	}
	author, _, err := p.text(doc, "author")
	if err != nil {
		return PostSummary{}, err
	}
	return PostSummary{
		UID:             doc.UID,
		PublicationDate: published,
		Title:           title,
		Subtitle:        subtitle,
		Author:          author,
	}, nil
}

// Summaries projects a listing page. Documents that fail are left out and
// their errors are joined into the returned error; the caller chooses
// whether to show the rest.
func (p *Projector) Summaries(docs []prismic.Document) ([]PostSummary, error) {
	out := make([]PostSummary, 0, len(docs))
	var errs []error
	for _, doc := range docs {
		s, err := p.Summary(doc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, s)
	}
	return out, errors.Join(errs...)
}

// Detail projects doc to the single-post shape without reading time; see
// PostDetail.WithReadingTime. A missing uid or title fails; a missing
// banner does not.
func (p *Projector) Detail(doc prismic.Document) (PostDetail, error) {
	if doc.UID == "" {
		return PostDetail{}, malformed(doc.ID, "uid")
	}
	title, ok, err := p.text(doc, "title")
	if err != nil {
		return PostDetail{}, err
	}
	if !ok {
		return PostDetail{}, malformed(doc.UID, "data.title")
	}
	author, _, err := p.text(doc, "author")
	if err != nil {
		return PostDetail{}, err
	}
	published, err := optionalTime(doc.UID, "first_publication_date", doc.FirstPublicationDate)
	if err != nil {
		return PostDetail{}, err
	}
	edited, err := optionalTime(doc.UID, "last_publication_date", doc.LastPublicationDate)
	if err != nil {
		return PostDetail{}, err
	}
	blocks, err := p.content(doc)
	if err != nil {
		return PostDetail{}, err
	}
	return PostDetail{
		UID:             doc.UID,
		PublicationDate: published,
		LastEditedDate:  edited,
		Title:           title,
		BannerURL:       bannerURL(doc.Data["banner"]),
		Author:          author,
		Content:         blocks,
	}, nil
}

type rawBlock struct {
	Heading json.RawMessage `json:"heading"`
	Body    json.RawMessage `json:"body"`
}

func (p *Projector) content(doc prismic.Document) ([]ContentBlock, error) {
	raw := doc.Data["content"]
	if isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed(doc.UID, "data.content")
	}
	blocks := make([]ContentBlock, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("data.content[%d]", i)
		var rb rawBlock
		if err := json.Unmarshal(item, &rb); err != nil {
			return nil, malformed(doc.UID, field)
		}
		heading, _, err := p.decodeText(rb.Heading)
		if err != nil {
			return nil, malformed(doc.UID, field+".heading")
		}
		var body richtext.RichText
		if !isNull(rb.Body) {
			if err := json.Unmarshal(rb.Body, &body); err != nil {
				return nil, malformed(doc.UID, field+".body")
			}
		}
		blocks = append(blocks, ContentBlock{
			Heading:  heading,
			BodyHTML: p.renderer.AsHTML(body),
			BodyText: p.renderer.AsText(body),
		})
	}
	return blocks, nil
}

// text reads a text field that may be stored either as a plain string or
// as rich text. ok is false when the field is absent or null.
func (p *Projector) text(doc prismic.Document, field string) (string, bool, error) {
	s, ok, err := p.decodeText(doc.Data[field])
	if err != nil {
		return "", false, malformed(doc.UID, "data."+field)
	}
	return s, ok, nil
}

func (p *Projector) decodeText(raw json.RawMessage) (string, bool, error) {
	if isNull(raw) {
		return "", false, nil
	}
	switch bytes.TrimSpace(raw)[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case '[':
		var rt richtext.RichText
		if err := json.Unmarshal(raw, &rt); err != nil {
			return "", false, err
		}
		return p.renderer.AsText(rt), true, nil
	}
	return "", false, ErrMalformedDocument
}

func bannerURL(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var img struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &img); err != nil {
		return ""
	}
	return img.URL
}

func optionalTime(uid, field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(raw)
	if err != nil {
		return nil, &DocumentError{UID: uid, Field: field, Err: errors.Join(ErrMalformedDocument, err)}
	}
	return &t, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
