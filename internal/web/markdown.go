package web

import (
	"bytes"
	"html/template"
	"strings"

	"spcrud-cli/internal/docs"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in topics is not passed through, so the output is safe to embed.
var docsMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, emoji.Emoji),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

type topicPage struct {
	Topic string
	Title string
	Body  template.HTML
}

func renderTopic(topic string) (topicPage, bool) {
	src, ok := docs.Get(topic)
	if !ok {
		return topicPage{}, false
	}
	topic = strings.ToLower(strings.TrimSpace(topic))
	page := topicPage{Topic: topic, Title: docs.Title(topic)}

	var b bytes.Buffer
	if err := docsMarkdown.Convert([]byte(strings.TrimSpace(src)), &b); err != nil {
		page.Body = template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
		return page, true
	}
	page.Body = template.HTML(b.String())
	return page, true
}
