package server

import (
	"bytes"
	"html/template"

	"github.com/livetemplate/scrollytell"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="/assets/scrollytell.css">
</head>
<body data-error-banner="{{.ErrorBanner}}"{{if not .Active}} data-inactive="true"{{end}}>
{{- if .Banner}}
<div id="scrolly-error" class="scrolly-banner" role="alert">{{.Banner}}</div>
{{- end}}
<main class="article">
{{.Body}}
</main>
{{- if .Active}}
<script src="/assets/scrollytell.js" defer></script>
{{- end}}
</body>
</html>
`))

var bannerText = map[string]string{
	"fr": "Les visualisations n'ont pas pu être chargées. L'article reste lisible sans elles.",
	"en": "The visualizations could not be loaded. The article remains readable without them.",
}

type pageData struct {
	Title       string
	Lang        string
	Body        template.HTML
	Active      bool
	ErrorBanner bool
	Banner      string
}

// renderPage renders the article. An inactive page has no client script.
func renderPage(a *scrollytell.Article, active, errorBanner bool) ([]byte, error) {
	d := pageData{
		Title:       a.Title,
		Lang:        a.Lang,
		Body:        template.HTML(a.HTML),
		Active:      active,
		ErrorBanner: errorBanner,
	}
	if !active && errorBanner {
		d.Banner = bannerText[a.Lang]
		if d.Banner == "" {
			d.Banner = bannerText["en"]
		}
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
