package main

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var markdownRenderer = newMarkdownRenderer()

// newMarkdownRenderer creates a plain CommonMark goldmark renderer. Raw HTML
// in the source is passed through.
func newMarkdownRenderer() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithRendererOptions(
			gmhtml.WithUnsafe(),
		),
	)
}

// markdownToHTML converts Markdown text to an HTML fragment
func markdownToHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("%w: %v", errConversion, err)
	}
	return buf.String(), nil
}

// errorHTML renders a failed preview as an HTML fragment for the pane
func errorHTML(path string, err error) string {
	return fmt.Sprintf(`<div class="mdplan-error"><h2>Cannot preview %s</h2><pre>%s</pre></div>`,
		html.EscapeString(path), html.EscapeString(err.Error()))
}
