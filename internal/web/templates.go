package web

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/gin-gonic/gin/render"

	"rushweb/internal/attendance"
	"rushweb/internal/datefmt"
)

//go:embed templates/*.html static/*
var assets embed.FS

// Page template names.
const (
	pageSessions    = "sessions"
	pageSession     = "session"
	pageUsers       = "users"
	pageMe          = "me"
	pageAttendances = "attendances"
	pageSignIn      = "signin"
)

var pageFiles = []string{pageSessions, pageSession, pageUsers, pageMe, pageAttendances, pageSignIn}

// pageSet renders one page inside the shared layout. It implements gin's render.HTMLRender.
type pageSet map[string]*template.Template

func (p pageSet) Instance(name string, data any) render.Render {
	return render.HTML{Template: p[name], Name: "layout", Data: data}
}

func templateFuncs(dates datefmt.Formatter) template.FuncMap {
	return template.FuncMap{
		"korean":     dates.Korean,
		"slash":      dates.Slash,
		"slashDay":   dates.SlashWithDay,
		"slashSec":   dates.SlashSeconds,
		"generation": attendance.FormatGeneration,
		"columnTitle": func(col attendance.Column) string {
			return col.Title(dates)
		},
		// dataURL marks a generated image as safe to embed.
		"dataURL": func(s string) template.URL {
			return template.URL(s)
		},
	}
}

func parsePages(dates datefmt.Formatter) (pageSet, error) {
	funcs := templateFuncs(dates)
	pages := make(pageSet, len(pageFiles))
	for _, name := range pageFiles {
		t, err := template.New(name).Funcs(funcs).ParseFS(assets, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}
