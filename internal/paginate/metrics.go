package paginate

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wilkie/gutenberg/internal/style"
)

// charWidth is the average glyph advance as a fraction of the font size.
const charWidth = 0.5

// imageLines is the height given to images without a height attribute.
const imageLines = 12

// TextMetrics estimates block heights from character counts and the page
// geometry of a style. It stands in for a layout engine.
type TextMetrics struct {
	geo style.Geometry
}

// NewTextMetrics returns metrics for g.
func NewTextMetrics(g style.Geometry) *TextMetrics {
	return &TextMetrics{geo: g}
}

// Capacity is the usable page height.
func (m *TextMetrics) Capacity() float64 { return m.geo.ContentHeight() }

// Width estimates the advance of text set in the body font.
func (m *TextMetrics) Width(text string) float64 {
	return m.width(text, m.geo.FontSize)
}

func (m *TextMetrics) width(text string, size float64) float64 {
	return float64(utf8.RuneCountInString(text)) * size * charWidth
}

// Height estimates the height of n including its vertical margins.
func (m *TextMetrics) Height(n *html.Node) float64 {
	if n.Type == html.TextNode {
		return m.lines(n.Data, 1, 0)
	}
	if n.Type != html.ElementNode {
		return 0
	}
	switch n.DataAtom {
	case atom.H1:
		return m.lines(textContent(n), 2, 0.67)
	case atom.H2:
		return m.lines(textContent(n), 1.5, 0.83)
	case atom.H3:
		return m.lines(textContent(n), 1.17, 1)
	case atom.H4, atom.H5, atom.H6:
		return m.lines(textContent(n), 1, 1.33)
	case atom.Pre:
		text := strings.Trim(textContent(n), "\n")
		return float64(strings.Count(text, "\n")+1)*m.geo.Line() + 2*m.geo.FontSize
	case atom.Img, atom.Iframe:
		if hasClass(n, "icon") {
			return 0
		}
		if v, err := strconv.ParseFloat(attr(n, "height"), 64); err == nil && v > 0 {
			return v
		}
		return imageLines * m.geo.Line()
	case atom.Table:
		rows := 0
		walk(n, func(c *html.Node) {
			if c.DataAtom == atom.Tr || c.DataAtom == atom.Caption {
				rows++
			}
		})
		return float64(rows)*m.geo.Line() + m.geo.FontSize
	case atom.Hr:
		return m.geo.FontSize
	case atom.Br:
		return m.geo.Line()
	}
	if hasBlocks(n) {
		h := 0.0
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
				continue
			}
			h += m.Height(c)
		}
		if n.DataAtom == atom.Blockquote || n.DataAtom == atom.Figure {
			h += 2 * m.geo.FontSize
		}
		return h
	}
	if n.DataAtom == atom.Li || n.DataAtom == atom.Figcaption || n.DataAtom == atom.Cite {
		return m.lines(textContent(n), 1, 0)
	}
	return m.lines(textContent(n), 1, 1)
}

// lines is the height of text wrapped to the content width at scale times the
// body font size, with margin em above and below.
func (m *TextMetrics) lines(text string, scale, margin float64) float64 {
	text = strings.Join(strings.Fields(text), " ")
	size := m.geo.FontSize * scale
	height := 2 * margin * size
	if text == "" {
		return height
	}
	n := math.Max(1, math.Ceil(m.width(text, size)/m.geo.ContentWidth()))
	return height + n*size*m.geo.LineHeight
}

var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Blockquote: true, atom.Figure: true,
	atom.Figcaption: true, atom.Ul: true, atom.Ol: true, atom.Li: true,
	atom.Table: true, atom.Pre: true, atom.Img: true, atom.Iframe: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Hr: true, atom.Section: true,
}

func hasBlocks(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && blockAtoms[c.DataAtom] {
			return true
		}
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			fn(c)
		}
		walk(c, fn)
	}
}
