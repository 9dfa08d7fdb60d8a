package book

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"strings"

	sprig "github.com/go-task/slim-sprig/v3"

	"github.com/wilkie/gutenberg/internal/style"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("book").Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/*.tmpl"))

type chapterView struct {
	TOC  template.HTML
	HTML template.HTML
}

type bodyView struct {
	Title            string
	Authors          []string
	Chapters         []chapterView
	Acknowledgements template.HTML
}

type layoutView struct {
	Title       string
	Language    string
	Stylesheets []string
	Scripts     []string
	Cover       template.HTML
	Pages       template.HTML
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.String(), nil
}

// Acknowledgements lists who made the style and each attributed asset.
func Acknowledgements(s *style.Style) string {
	var b strings.Builder
	if s.Attribution {
		fmt.Fprintf(&b, "<ul><li>Layout and style '%s' provided by %s.</li></ul>",
			html.EscapeString(s.Name), link(s.AuthorURL, s.Author))
	}
	b.WriteString("<ul>")
	for _, a := range s.Assets {
		if !a.Attribution || a.Name == "" {
			continue
		}
		author := a.Author
		if author == "" {
			author = "anonymous"
		}
		fmt.Fprintf(&b, "<li>%s is provided by %s", link(a.CollectionURL, a.Name), link(a.AuthorURL, author))
		if a.Collection != "" {
			b.WriteString(" as part of " + html.EscapeString(a.Collection))
		}
		b.WriteString(".</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

func link(url, text string) string {
	if url == "" {
		return html.EscapeString(text)
	}
	return fmt.Sprintf("<a href='%s'>%s</a>", html.EscapeString(url), html.EscapeString(text))
}
