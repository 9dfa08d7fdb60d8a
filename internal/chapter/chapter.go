// Package chapter loads one unit of book content, splits off its YAML front
// matter and renders it to HTML.
package chapter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/wilkie/gutenberg/internal/hyphen"
	"github.com/wilkie/gutenberg/internal/outline"
	"github.com/wilkie/gutenberg/internal/reference"
	"github.com/wilkie/gutenberg/internal/render"
)

// Format is the markup of the chapter content.
type Format string

const (
	Markdown Format = "markdown"
	HTML     Format = "html"
	Text     Format = "text"
)

// Defaults for missing metadata.
const (
	DefaultTitle    = "Untitled"
	DefaultSlug     = "chapter"
	DefaultLanguage = "en_us"
)

// Hyphenators looks up the hyphenator for a chapter language.
type Hyphenators interface {
	For(lang string) *hyphen.Hyphenator
}

// Options describe a chapter. Values given here win over the front matter,
// except Index which the front matter overrides.
type Options struct {
	Title       string
	Authors     []string
	Slug        string
	Language    string
	Index       string
	Summary     string
	Content     string
	Format      Format
	Style       render.ImageSource
	Hyphenators Hyphenators
	Logger      *zap.Logger
}

// Chapter is a rendered chapter.
type Chapter struct {
	Title    string
	Authors  []string
	Slug     string
	Language string
	Index    string
	Scripts  []string
	Summary  string
	Format   Format
	Content  string // source without front matter
	HTML     string

	outline *outline.Tree
	refs    *reference.Table
}

type frontMatter struct {
	Title    string   `yaml:"title"`
	Authors  []string `yaml:"authors"`
	Language string   `yaml:"language"`
	Index    string   `yaml:"index"`
	Scripts  []string `yaml:"scripts"`
	Summary  string   `yaml:"summary"`
}

var frontMatterRe = regexp.MustCompile(`(?s)\A---[ \t]*\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n(.*))?\z`)

// splitFrontMatter separates a leading "---" delimited block from the body.
func splitFrontMatter(content string) (meta, body string, ok bool) {
	m := frontMatterRe.FindStringSubmatch(strings.TrimLeft(content, "\r\n"))
	if m == nil {
		return "", content, false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// New renders a chapter from opts.
func New(opts Options) (*Chapter, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("chapter")

	c := &Chapter{
		Title:    opts.Title,
		Authors:  opts.Authors,
		Slug:     opts.Slug,
		Language: opts.Language,
		Index:    opts.Index,
		Summary:  opts.Summary,
		Format:   opts.Format,
		Content:  opts.Content,
	}
	if c.Format == "" {
		c.Format = Markdown
	}
	if c.Slug == "" {
		c.Slug = DefaultSlug
	}

	if meta, body, ok := splitFrontMatter(opts.Content); ok {
		var fm frontMatter
		if err := yaml.Unmarshal([]byte(meta), &fm); err != nil {
			return nil, fmt.Errorf("parse front matter of %s: %w", c.Slug, err)
		}
		c.Content = body
		if c.Title == "" {
			c.Title = strings.TrimSpace(fm.Title)
		}
		if c.Authors == nil {
			c.Authors = fm.Authors
		}
		if c.Language == "" {
			c.Language = fm.Language
		}
		if c.Summary == "" {
			c.Summary = fm.Summary
		}
		if fm.Index != "" {
			c.Index = fm.Index
		}
		c.Scripts = fm.Scripts
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Authors == nil {
		c.Authors = []string{}
	}

	name := c.Title
	if name == "" {
		name = DefaultTitle
	}

	switch c.Format {
	case Markdown:
		var hy render.Hyphenator
		if opts.Hyphenators != nil {
			if h := opts.Hyphenators.For(c.Language); h != nil {
				hy = h
			}
		}
		s := render.NewSession(render.Options{
			Name:       name,
			Slug:       c.Slug,
			Index:      c.Index,
			Images:     opts.Style,
			Hyphenator: hy,
			Logger:     log,
		})
		out, err := s.Convert([]byte(c.Content))
		if err != nil {
			return nil, fmt.Errorf("render chapter %s: %w", c.Slug, err)
		}
		c.HTML = out
		c.outline = s.Outline()
		c.refs = s.References()
		if c.Title == "" {
			c.Title, _ = s.Title()
		}
	case HTML:
		c.HTML = c.Content
	case Text:
		c.HTML = "<pre>" + html.EscapeString(c.Content) + "</pre>"
	default:
		return nil, fmt.Errorf("chapter %s: unknown format %q", c.Slug, c.Format)
	}

	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.outline == nil {
		c.outline = outline.New(c.Title)
		c.refs = reference.New(c.Slug, c.Index)
	}
	if c.Summary == "" && c.Format == Markdown {
		c.Summary = firstSentence(c.Content)
	}

	log.Debug("Chapter ready",
		zap.String("slug", c.Slug),
		zap.String("title", c.Title),
		zap.String("format", string(c.Format)),
		zap.Int("html_bytes", len(c.HTML)))
	return c, nil
}

// FormatFor maps a file extension to a chapter format.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return HTML
	case ".txt":
		return Text
	}
	return Markdown
}

// SlugFor derives a chapter slug from a file name.
func SlugFor(name string) string {
	base := filepath.Base(name)
	return slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Load reads and renders a chapter file. The slug and format default to the
// ones implied by the file name.
func Load(path string, opts Options) (*Chapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chapter: %w", err)
	}
	if opts.Content == "" {
		opts.Content = string(data)
	}
	if opts.Slug == "" {
		opts.Slug = SlugFor(path)
	}
	if opts.Format == "" {
		opts.Format = FormatFor(path)
	}
	return New(opts)
}

// Outline returns the chapter header tree.
func (c *Chapter) Outline() *outline.Tree { return c.outline }

// References returns the chapter figures and tables.
func (c *Chapter) References() *reference.Table { return c.refs }

// Tag returns the chapter language as a BCP 47 tag, American English when it
// cannot be parsed.
func (c *Chapter) Tag() language.Tag {
	tag, err := hyphen.ParseLanguage(c.Language)
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}
