package main

import (
	"embed"
	"html/template"
)

//go:embed theme/*
var themeFS embed.FS

// Templates, CSS, and JavaScript (loaded once at startup)
var (
	styleCSS    = mustReadTheme("theme/style.css")
	markdownCSS = mustReadTheme("theme/markdown.css")
	treeJS      = mustReadTheme("theme/tree.js")

	indexTmpl   = template.Must(template.ParseFS(themeFS, "theme/index.html"))
	previewTmpl = template.Must(template.ParseFS(themeFS, "theme/preview.html"))
)

func mustReadTheme(name string) string {
	data, err := themeFS.ReadFile(name)
	if err != nil {
		panic("missing embedded theme file " + name + ": " + err.Error())
	}
	return string(data)
}
