// Package views holds the default page components of a spacetraveling
// site and the view models the handlers fill for them.
package views

import (
	"context"
	"html/template"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

const layout = `
{{define "head"}}<!DOCTYPE html>
<html lang="{{or .Site.Lang "pt-BR"}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Meta.Title}}</title>
{{with .Meta.Description}}<meta name="description" content="{{.}}">{{end}}
{{with .Meta.URL}}<link rel="canonical" href="{{.}}"><meta property="og:url" content="{{.}}">{{end}}
<meta property="og:title" content="{{.Meta.Title}}">
<meta property="og:type" content="{{or .Meta.OGType "website"}}">
<meta property="og:site_name" content="{{.Site.Name}}">
{{with .Meta.Image}}<meta property="og:image" content="{{.}}"><meta name="twitter:card" content="summary_large_image">{{end}}
<link rel="alternate" type="application/rss+xml" title="{{.Site.Name}}" href="/feed.xml">
<link rel="stylesheet" href="/public/styles.css">
<script src="/public/htmx.min.js" defer></script>
{{with .JSONLD}}<script type="application/ld+json">{{jsonld .}}</script>{{end}}
</head>
<body>
<header class="header"><a href="/" class="logo">{{.Site.Name}}<span>.</span></a></header>
{{end}}

{{define "foot"}}</body>
</html>
{{end}}

{{define "card"}}<article class="post-card">
<a href="{{.Path}}"><h2>{{.Title}}</h2></a>
{{with .Subtitle}}<p class="subtitle">{{.}}</p>{{end}}
<div class="info">{{if .Date}}<time datetime="{{.DateISO}}">{{.Date}}</time>{{end}}{{with .Author}}<span class="author">{{.}}</span>{{end}}</div>
</article>
{{end}}

{{define "more"}}{{range .Posts}}{{template "card" .}}{{end}}{{with .MoreURL}}<a class="load-more" href="{{.}}" hx-get="{{.}}" hx-target="this" hx-swap="outerHTML">Carregar mais posts</a>{{end}}{{end}}

{{define "preview"}}{{if .Preview}}<aside class="preview"><a href="/api/exit-preview">Sair do modo Preview</a></aside>{{end}}{{end}}

{{define "home"}}{{template "head" .}}<main class="container">
<div class="posts">{{template "more" .Listing}}</div>
{{template "preview" .}}
</main>
{{template "foot"}}{{end}}

{{define "post"}}{{template "head" .}}{{if .BannerURL}}<img class="banner" src="{{.BannerURL}}" alt="Banner principal">{{end}}
<main class="container">
<article class="post">
<h1>{{.Title}}</h1>
<div class="info">{{if .Date}}<time datetime="{{.DateISO}}">{{.Date}}</time>{{end}}{{with .Author}}<span class="author">{{.}}</span>{{end}}<span class="reading-time">{{.ReadingTime}} min</span></div>
{{with .EditedLabel}}<p class="edited">* {{.}}</p>{{end}}
{{range .Sections}}<section class="post-content">{{with .Heading}}<h2>{{.}}</h2>{{end}}<div class="body">{{trusted .BodyHTML}}</div></section>
{{end}}</article>
{{if or .Previous .Next}}<nav class="previous-next">
{{with .Previous}}<a class="previous" href="{{.Path}}"><span>{{.Title}}</span>Post anterior</a>{{end}}
{{with .Next}}<a class="next" href="{{.Path}}"><span>{{.Title}}</span>Próximo post</a>{{end}}
</nav>{{end}}
{{if and .CommentsRepo (not .Preview)}}<section class="comments"><script src="https://utteranc.es/client.js" repo="{{.CommentsRepo}}" issue-term="pathname" theme="github-dark" crossorigin="anonymous" async></script></section>{{end}}
{{template "preview" .}}
</main>
{{template "foot"}}{{end}}

{{define "error"}}{{template "head" .}}<main class="container error">
<h1>{{.Code}}</h1>
<p>{{.Message}}</p>
<a href="/">Voltar para o início</a>
</main>
{{template "foot"}}{{end}}
`

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	// trusted marks markup the rich text renderer already escaped.
	"trusted": func(s string) template.HTML { return template.HTML(s) },
	"jsonld":  func(s string) template.JS { return template.JS(s) },
}).Parse(layout))

type errorView struct {
	Site    SiteConfig
	Meta    PageMeta
	Code    int
	Message string
	JSONLD  string
}

func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, name, data)
	})
}

// Home renders the listing page.
func Home(v HomeView) templ.Component {
	if v.Meta.Title == "" {
		v.Meta.Title = "Home | " + v.Site.Name + "."
	}
	if v.Meta.URL == "" {
		v.Meta.URL = buildURL(v.Site.URL)
	}
	if v.Meta.Description == "" {
		v.Meta.Description = v.Site.Description
	}
	if v.JSONLD == "" {
		v.JSONLD = WebsiteJsonLD(v.Site)
	}
	return render("home", v)
}

// Listing renders the cards and next-page button returned to "load more".
func Listing(v ListingView) templ.Component {
	return render("more", v)
}

// Post renders a single post page.
func Post(v PostView) templ.Component {
	if v.Meta.Title == "" {
		v.Meta.Title = v.Title + " | " + v.Site.Name + "."
	}
	if v.Meta.URL == "" {
		v.Meta.URL = buildURL(v.Site.URL, "post", v.UID)
	}
	if v.Meta.OGType == "" {
		v.Meta.OGType = "article"
	}
	if v.JSONLD == "" {
		v.JSONLD = BlogPostingJsonLD(v.Site, v)
	}
	return render("post", v)
}

// NotFound renders the 404 page.
func NotFound(site SiteConfig) templ.Component {
	return render("error", errorView{
		Site:    site,
		Meta:    PageMeta{Title: "Página não encontrada | " + site.Name + "."},
		Code:    http.StatusNotFound,
		Message: "Página não encontrada.",
	})
}

// ServerError renders the 500 page.
func ServerError(site SiteConfig) templ.Component {
	return render("error", errorView{
		Site:    site,
		Meta:    PageMeta{Title: "Erro | " + site.Name + "."},
		Code:    http.StatusInternalServerError,
		Message: "Algo deu errado. Tente novamente mais tarde.",
	})
}
