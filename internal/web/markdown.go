package web

import (
	"bytes"
	"html/template"
	"strings"
	"sync"

	"storevec/internal/docs"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		emoji.Emoji,
	),
	goldmark.WithRendererOptions(
		// Raw HTML passthrough stays disabled (no html.WithUnsafe()).
		html.WithXHTML(),
	),
)

var (
	introOnce       sync.Once
	introHTMLCached template.HTML
)

func introHTML() template.HTML {
	introOnce.Do(func() {
		introHTMLCached = renderMarkdownHTML(docs.Intro())
	})
	return introHTMLCached
}

func renderMarkdownHTML(src string) template.HTML {
	src = strings.TrimSpace(src)
	if src == "" {
		return template.HTML("")
	}
	var b bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &b); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	// goldmark output is trusted only because raw HTML is disabled above.
	return template.HTML(b.String())
}
