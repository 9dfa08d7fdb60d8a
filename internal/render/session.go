// Package render turns the blocks of one chapter into HTML while building the
// chapter outline and numbering its figures and tables.
package render

import (
	"fmt"
	"html"
	"path"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/wilkie/gutenberg/internal/hyphen"
	"github.com/wilkie/gutenberg/internal/outline"
	"github.com/wilkie/gutenberg/internal/reference"
	"github.com/wilkie/gutenberg/internal/table"
)

// ImageSource resolves directive names to icon paths.
type ImageSource interface {
	ImageFor(name string) (string, bool)
}

// Hyphenator inserts marker at permitted breaks in s.
type Hyphenator interface {
	Visualize(s, marker string) string
}

// Options configure a Session.
type Options struct {
	Name       string // outline root label until a level-1 header is seen
	Slug       string // chapter slug used in figure and table ids
	Index      string // chapter index prefixed to figure and table numbers
	Images     ImageSource
	Hyphenator Hyphenator
	Logger     *zap.Logger
}

// Session holds the state of one chapter render. It is not safe for
// concurrent use.
type Session struct {
	outline *outline.Tree
	refs    *reference.Table
	images  ImageSource
	hyph    Hyphenator
	log     *zap.Logger
}

// NewSession starts rendering a chapter.
func NewSession(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	chapterSlug := opts.Slug
	if chapterSlug == "" {
		chapterSlug = "chapter"
	}
	return &Session{
		outline: outline.New(opts.Name),
		refs:    reference.New(chapterSlug, opts.Index),
		images:  opts.Images,
		hyph:    opts.Hyphenator,
		log:     log.Named("render").With(zap.String("chapter", chapterSlug)),
	}
}

// Outline returns the header tree built so far.
func (s *Session) Outline() *outline.Tree { return s.outline }

// References returns the figure and table registry.
func (s *Session) References() *reference.Table { return s.refs }

// Title returns the first level-1 header.
func (s *Session) Title() (string, bool) { return s.outline.Title() }

// Lookup finds a figure or table by tag.
func (s *Session) Lookup(tag string) (reference.Entry, bool) {
	return s.refs.Lookup(tag)
}

// Render returns the HTML fragment for b.
func (s *Session) Render(b Block) string {
	switch b.Kind {
	case KindParagraph:
		if strings.HasPrefix(strings.TrimSpace(b.Text), table.Directive) {
			return s.table(b.Text)
		}
		return s.paragraph(b.Text)
	case KindHeader:
		return s.header(b.Text, b.Level)
	case KindImage:
		return s.image(b.Link, b.Title, b.Alt)
	case KindBlockQuote:
		return s.blockQuote(b.Text)
	case KindCodeSpan:
		return codeSpan(b.Text)
	case KindCodeBlock:
		return codeBlock(b.Text, b.Language)
	case KindTable:
		return s.table(b.Text)
	}
	s.log.Warn("Unknown block kind", zap.Stringer("kind", b.Kind))
	return ""
}

var emptyParagraphRe = regexp.MustCompile(`<p>\s*</p>\n?`)

// Finish resolves @[tag] references in the rendered chapter and drops the
// empty paragraphs left around figures.
func (s *Session) Finish(chapter string) string {
	out := s.refs.Resolve(chapter)
	out = emptyParagraphRe.ReplaceAllString(out, "")
	s.log.Debug("Chapter rendered",
		zap.Int("headers", s.outline.Len()),
		zap.Int("references", len(s.refs.Entries())))
	return out
}

func (s *Session) icon(name string) string {
	if s.images == nil {
		return ""
	}
	src, ok := s.images.ImageFor(name)
	if !ok {
		return ""
	}
	return fmt.Sprintf("<img class='icon' src='%s' />", src)
}

var directiveRe = regexp.MustCompile(`(?s)^!([^\s]+)\s(.*)`)

func (s *Session) paragraph(text string) string {
	if m := directiveRe.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("<div class='%s'>%s<p>%s</p></div>\n", html.EscapeString(m[1]), s.icon(m[1]), hyphenate(m[2], s.hyph))
	}
	return "<p>" + hyphenate(text, s.hyph) + "</p>\n"
}

func (s *Session) header(text string, level int) string {
	id := s.outline.Slug(s.outline.Record(text, level))
	return fmt.Sprintf("<h%d id='%s'>%s</h%d>\n", level, id, text, level)
}

func (s *Session) blockQuote(text string) string {
	body := strings.TrimSpace(text)
	icon := s.icon("blockquote")

	inner, wrapped := strings.CutPrefix(body, "<p>")
	if wrapped {
		inner, wrapped = strings.CutSuffix(inner, "</p>")
	}
	if !wrapped || strings.Contains(inner, "<p>") {
		return "<blockquote>" + icon + body + "</blockquote>\n"
	}

	if quote, cite, ok := strings.Cut(inner, " -- "); ok {
		return fmt.Sprintf("<blockquote>%s<p>%s</p><div><cite>%s</cite></div></blockquote>\n",
			icon, strings.TrimSpace(quote), strings.TrimSpace(cite))
	}
	return "<blockquote>" + icon + "<p>" + inner + "</p></blockquote>\n"
}

// codeSpan keeps inline code on one line by using non-breaking hyphens.
func codeSpan(code string) string {
	return "<code>" + strings.ReplaceAll(html.EscapeString(code), "-", "&#8209;") + "</code>"
}

var refLineRe = regexp.MustCompile(`^!(\d)!(.*)$`)

// codeBlock groups consecutive lines marked !N! into a highlighted wrapper.
func codeBlock(code, language string) string {
	var b strings.Builder
	open := ""
	for _, line := range strings.SplitAfter(html.EscapeString(code), "\n") {
		if line == "" {
			continue
		}
		m := refLineRe.FindStringSubmatch(strings.TrimSuffix(line, "\n"))
		if m == nil {
			if open != "" {
				b.WriteString("</div></div>")
				open = ""
			}
			b.WriteString(line)
			continue
		}
		if m[1] != open {
			if open != "" {
				b.WriteString("</div></div>")
			}
			fmt.Fprintf(&b, "<div class='ref_line s1 c%s'><div>", m[1])
			open = m[1]
		}
		b.WriteString(m[2] + "\n")
	}
	if open != "" {
		b.WriteString("</div></div>")
	}

	if language != "" {
		return fmt.Sprintf("<pre><code class='language-%s'>%s</code></pre>\n", html.EscapeString(language), b.String())
	}
	return "<pre><code>" + b.String() + "</code></pre>\n"
}

var youtubeRe = regexp.MustCompile(`youtube\.com/.*=(.*)$`)

func (s *Session) image(link, title, alt string) string {
	tag := ""
	if i := strings.Index(link, "@"); i > 0 && !strings.ContainsAny(link[:i], "/:") {
		tag, link = link[:i], link[i+1:]
	}
	if tag == "" {
		base := path.Base(link)
		tag = strings.TrimSuffix(base, path.Ext(base))
	}

	e := s.refs.Add(reference.Figure, tag, title)
	s.log.Debug("Figure registered", zap.String("tag", tag), zap.String("number", e.FullIndex))

	alt = html.EscapeString(alt)
	img := fmt.Sprintf("<img src='%s' title='%s' alt='%s' />",
		html.EscapeString(link), html.EscapeString(outline.PlainText(title)), alt)
	if strings.Contains(link, "youtube.com") {
		hash := ""
		if m := youtubeRe.FindStringSubmatch(link); m != nil {
			hash = m[1]
		}
		img = fmt.Sprintf("<div class='youtube'><div class='youtube_fixture'>"+
			"<img src='/images/youtube_placeholder.png' />"+
			"<iframe class='youtube_frame' longdesc='%s' src='http://www.youtube.com/embed/%s'>%s</iframe>"+
			"</div></div>", alt, html.EscapeString(hash), alt)
	}

	caption := ""
	if title != "" {
		caption = fmt.Sprintf("<figcaption>%s %s: %s</figcaption>", reference.Figure.Label(), e.FullIndex, title)
	}
	return fmt.Sprintf("</p><figure id='%s' class='image'>%s%s</figure><p>", e.Slug, img, caption)
}

func (s *Session) table(text string) string {
	grid := table.Parse(text)

	tag := grid.Tag
	if tag == "" {
		tag = slug.Make(grid.Caption)
	}
	e := s.refs.Add(reference.TableKind, tag, grid.Caption)
	s.log.Debug("Table registered", zap.String("tag", tag), zap.String("number", e.FullIndex),
		zap.Int("rows", grid.Rows()), zap.Int("cols", grid.Cols()))

	grid.ID = e.Slug
	if grid.Caption != "" {
		grid.Caption = fmt.Sprintf("%s %s: %s", reference.TableKind.Label(), e.FullIndex, grid.Caption)
	}
	return grid.HTML()
}

// hyphenate applies h to text runs, leaving tags, entities, @[tag] markers and
// the contents of code and pre elements untouched.
func hyphenate(text string, h Hyphenator) string {
	if h == nil {
		return text
	}

	var out, run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			out.WriteString(h.Visualize(run.String(), hyphen.SoftHyphen))
			run.Reset()
		}
	}

	verbatim := 0
	for i := 0; i < len(text); {
		rest := text[i:]
		switch {
		case rest[0] == '<':
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				end = len(rest) - 1
			}
			tag := rest[:end+1]
			flush()
			out.WriteString(tag)
			switch strings.ToLower(strings.Trim(strings.Fields(tag + " ")[0], "</>")) {
			case "code", "pre":
				if strings.HasPrefix(tag, "</") {
					verbatim = max(verbatim-1, 0)
				} else if !strings.HasSuffix(tag, "/>") {
					verbatim++
				}
			}
			i += end + 1
		case verbatim > 0:
			out.WriteByte(rest[0])
			i++
		case rest[0] == '&':
			end := strings.IndexByte(rest, ';')
			if end < 0 || strings.ContainsAny(rest[:end], " <&\n") {
				run.WriteByte('&')
				i++
				continue
			}
			flush()
			out.WriteString(rest[:end+1])
			i += end + 1
		case strings.HasPrefix(rest, "@["):
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				run.WriteString("@[")
				i += 2
				continue
			}
			flush()
			out.WriteString(rest[:end+1])
			i += end + 1
		default:
			run.WriteByte(rest[0])
			i++
		}
	}
	flush()
	return out.String()
}
