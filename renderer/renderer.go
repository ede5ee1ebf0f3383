// Package renderer renders dashboard views as markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/coindash"
)

//go:embed templates/*.md
var templates embed.FS

// ViewRenderOptions holds configuration for rendering a view.
type ViewRenderOptions struct {
	SkipMarket    bool // Do not render the market table.
	SkipWatchlist bool // Do not render the watchlist section.
	SkipPortfolio bool // Do not render the portfolio section.

	PageSize int // Number of market rows per page, all rows when zero.
	Page     int // 1-based page of market rows, clamped to the last page.
}

// pagedView is the data of the view templates: the View with only the
// market rows of the requested page.
type pagedView struct {
	*coindash.View
	Rows    []coindash.Row
	Matches int // rows matching the query, all pages
	Page    int
	Pages   int
}

func paginate(v *coindash.View, page, size int) pagedView {
	p := pagedView{View: v, Rows: v.Rows, Matches: len(v.Rows), Page: 1, Pages: 1}
	if size <= 0 || len(v.Rows) <= size {
		return p
	}
	p.Pages = (len(v.Rows) + size - 1) / size
	p.Page = min(max(page, 1), p.Pages)
	start := (p.Page - 1) * size
	p.Rows = v.Rows[start:min(start+size, len(v.Rows))]
	return p
}

// RenderView renders the View to a markdown string.
func RenderView(v *coindash.View, opts ViewRenderOptions) string {
	partials := map[string]string{
		"view_title":     "view_title.md",
		"view_market":    "view_market.md",
		"view_watchlist": "view_watchlist.md",
		"view_portfolio": "view_portfolio.md",
	}
	// An empty file name results in an empty template.
	if opts.SkipMarket {
		partials["view_market"] = ""
	}
	if opts.SkipWatchlist {
		partials["view_watchlist"] = ""
	}
	if opts.SkipPortfolio {
		partials["view_portfolio"] = ""
	}
	return renderTemplate("view", "view.md", partials, paginate(v, opts.Page, opts.PageSize))
}

// renderTemplate renders a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		if file != "" {
			content, err = fs.ReadFile(templates, "templates/"+file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
