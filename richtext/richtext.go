// Package richtext renders Prismic structured text to HTML and plain text.
package richtext

import (
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/a-h/templ"
)

// Block types.
const (
	TypeHeading1     = "heading1"
	TypeHeading2     = "heading2"
	TypeHeading3     = "heading3"
	TypeHeading4     = "heading4"
	TypeHeading5     = "heading5"
	TypeHeading6     = "heading6"
	TypeParagraph    = "paragraph"
	TypePreformatted = "preformatted"
	TypeListItem     = "list-item"
	TypeOListItem    = "o-list-item"
	TypeImage        = "image"
	TypeEmbed        = "embed"
)

// Span types.
const (
	SpanStrong    = "strong"
	SpanEm        = "em"
	SpanHyperlink = "hyperlink"
	SpanLabel     = "label"
)

// RichText is an ordered sequence of blocks.
type RichText []Block

// Block is one structured-text element. Offsets in Spans count UTF-16 code
// units, as the CMS produces them.
type Block struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	Spans      []Span      `json:"spans,omitempty"`
	URL        string      `json:"url,omitempty"`
	Alt        string      `json:"alt,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	Oembed     *Oembed     `json:"oembed,omitempty"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Oembed struct {
	Type     string `json:"type"`
	EmbedURL string `json:"embed_url"`
	HTML     string `json:"html"`
}

// Span marks inline formatting over [Start, End).
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

// SpanData carries hyperlink targets and label names.
type SpanData struct {
	LinkType string `json:"link_type,omitempty"` // Web, Document, Media
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	ID       string `json:"id,omitempty"`
	UID      string `json:"uid,omitempty"`
	Type     string `json:"type,omitempty"`
	Label    string `json:"label,omitempty"`
}

// LinkFunc maps a linked document to a site path.
type LinkFunc func(docType, uid string) string

// Renderer turns RichText into HTML or plain text. The zero value links
// every document to "/".
type Renderer struct {
	Resolve LinkFunc
}

// AsText returns the text of every block, one block per line.
func (r Renderer) AsText(rt RichText) string {
	parts := make([]string, 0, len(rt))
	for _, b := range rt {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// AsHTML renders rt as HTML. All text is escaped and link targets pass
// SafeURL; embed HTML is copied as supplied by the CMS.
func (r Renderer) AsHTML(rt RichText) string {
	var buf strings.Builder
	list := ""
	closeList := func() {
		if list != "" {
			buf.WriteString("</" + list + ">")
			list = ""
		}
	}
	for _, b := range rt {
		switch b.Type {
		case TypeListItem, TypeOListItem:
			want := "ul"
			if b.Type == TypeOListItem {
				want = "ol"
			}
			if list != want {
				closeList()
				buf.WriteString("<" + want + ">")
				list = want
			}
			buf.WriteString("<li>")
			buf.WriteString(r.inline(b))
			buf.WriteString("</li>")
			continue
		}
		closeList()
		switch b.Type {
		case TypeHeading1, TypeHeading2, TypeHeading3, TypeHeading4, TypeHeading5, TypeHeading6:
			tag := "h" + strings.TrimPrefix(b.Type, "heading")
			buf.WriteString("<" + tag + ">" + r.inline(b) + "</" + tag + ">")
		case TypePreformatted:
			buf.WriteString("<pre>" + r.inline(b) + "</pre>")
		case TypeImage:
			src := SafeURL(b.URL)
			if src == "" {
				continue
			}
			buf.WriteString(`<p class="block-img"><img src="` + src + `" alt="` + html.EscapeString(b.Alt) + `"`)
			if b.Dimensions != nil && b.Dimensions.Width > 0 && b.Dimensions.Height > 0 {
				buf.WriteString(` width="` + strconv.Itoa(b.Dimensions.Width) + `" height="` + strconv.Itoa(b.Dimensions.Height) + `"`)
			}
			buf.WriteString(` loading="lazy"/></p>`)
		case TypeEmbed:
			if b.Oembed == nil {
				continue
			}
			buf.WriteString(`<div data-oembed="` + SafeURL(b.Oembed.EmbedURL) + `" data-oembed-type="` + html.EscapeString(b.Oembed.Type) + `">`)
			buf.WriteString(b.Oembed.HTML)
			buf.WriteString("</div>")
		default:
			buf.WriteString("<p>" + r.inline(b) + "</p>")
		}
	}
	closeList()
	return buf.String()
}

// Component returns a templ.Component that writes rt as HTML.
func (r Renderer) Component(rt RichText) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, r.AsHTML(rt))
		return err
	})
}

// inline renders a block's text with its spans. Overlapping spans are
// closed and reopened at segment boundaries so the output always nests.
func (r Renderer) inline(b Block) string {
	units := utf16.Encode([]rune(b.Text))
	n := len(units)

	spans := make([]Span, 0, len(b.Spans))
	for _, s := range b.Spans {
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > n {
			s.End = n
		}
		if s.Start >= s.End {
			continue
		}
		spans = append(spans, s)
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})

	cuts := map[int]struct{}{0: {}, n: {}}
	for _, s := range spans {
		cuts[s.Start] = struct{}{}
		cuts[s.End] = struct{}{}
	}
	points := make([]int, 0, len(cuts))
	for p := range cuts {
		points = append(points, p)
	}
	sort.Ints(points)

	var buf strings.Builder
	var open []int // indexes into spans
	for k := 0; k+1 < len(points); k++ {
		from, to := points[k], points[k+1]
		var active []int
		for i, s := range spans {
			if s.Start <= from && s.End >= to {
				active = append(active, i)
			}
		}
		common := 0
		for common < len(open) && common < len(active) && open[common] == active[common] {
			common++
		}
		for i := len(open) - 1; i >= common; i-- {
			buf.WriteString(r.closeTag(spans[open[i]]))
		}
		for _, i := range active[common:] {
			buf.WriteString(r.openTag(spans[i]))
		}
		open = active
		text := string(utf16.Decode(units[from:to]))
		buf.WriteString(strings.ReplaceAll(html.EscapeString(text), "\n", "<br />"))
	}
	for i := len(open) - 1; i >= 0; i-- {
		buf.WriteString(r.closeTag(spans[open[i]]))
	}
	return buf.String()
}

func (r Renderer) openTag(s Span) string {
	switch s.Type {
	case SpanStrong:
		return "<strong>"
	case SpanEm:
		return "<em>"
	case SpanLabel:
		label := ""
		if s.Data != nil {
			label = s.Data.Label
		}
		return `<span class="` + html.EscapeString(label) + `">`
	case SpanHyperlink:
		href := r.href(s.Data)
		if href == "" {
			return "<span>"
		}
		attrs := `href="` + href + `"`
		if s.Data.Target == "_blank" {
			attrs += ` target="_blank" rel="noopener noreferrer"`
		}
		return "<a " + attrs + ">"
	}
	return "<span>"
}

func (r Renderer) closeTag(s Span) string {
	switch s.Type {
	case SpanStrong:
		return "</strong>"
	case SpanEm:
		return "</em>"
	case SpanHyperlink:
		if r.href(s.Data) != "" {
			return "</a>"
		}
	}
	return "</span>"
}

func (r Renderer) href(d *SpanData) string {
	if d == nil {
		return ""
	}
	if d.LinkType == "Document" {
		path := "/"
		if r.Resolve != nil {
			path = r.Resolve(d.Type, d.UID)
		}
		return SafeURL(path)
	}
	return SafeURL(d.URL)
}

// SafeURL validates and escapes a URL for use in an HTML attribute.
// Anything but relative paths and http(s), mailto and tel URLs yields "".
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		if strings.HasPrefix(val, "//") {
			return ""
		}
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
