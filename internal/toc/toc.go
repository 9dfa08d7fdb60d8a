// Package toc formats chapter outlines as nested lists and, once the book is
// paginated, fills in page numbers with leader dots.
package toc

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wilkie/gutenberg/internal/outline"
)

// ReferencesLabel starts a new list when it labels an outline node.
const ReferencesLabel = "References"

// maxDots bounds the leader so a zero width measurer cannot spin.
const maxDots = 512

// WidthMeasurer reports the rendered width of a run of text.
type WidthMeasurer interface {
	Width(text string) float64
}

// FormatOutline renders the node id, its descendants and its following
// siblings as list items.
func FormatOutline(t *outline.Tree, id outline.NodeID) string {
	var b strings.Builder
	format(&b, t, id)
	return b.String()
}

func format(b *strings.Builder, t *outline.Tree, id outline.NodeID) {
	for ; id != outline.None; id = t.Node(id).Sibling {
		text := t.Text(id)
		if text == ReferencesLabel {
			fmt.Fprintf(b, "</ul><ul><li><a href='#%s'>%s</a></li>", html.EscapeString(t.Slug(id)), text)
			continue
		}
		fmt.Fprintf(b, "<li><a href='#%s'>%s</a><ul>", html.EscapeString(t.Slug(id)), text)
		format(b, t, t.Node(id).Child)
		b.WriteString("</ul></li>")
	}
}

// Annotate prefixes every entry of each div.toc in fragment whose link target
// appears in anchors with its page number, padded with leader dots so that
// link and number fill lineWidth. Nested entries lose indent per level.
func Annotate(fragment string, anchors map[string]string, m WidthMeasurer, lineWidth float64) (string, error) {
	ctx := &nethtml.Node{Type: nethtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := nethtml.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return "", fmt.Errorf("parse toc: %w", err)
	}

	indent := m.Width("    ")
	for _, n := range nodes {
		walk(n, 0, false, func(li *nethtml.Node, depth int) {
			link := firstLink(li)
			if link == nil {
				return
			}
			id, ok := strings.CutPrefix(attr(link, "href"), "#")
			if !ok {
				return
			}
			page, ok := anchors[id]
			if !ok {
				return
			}
			avail := lineWidth - float64(depth)*indent
			text := leader(m, textContent(link), " "+page, avail)
			pn := &nethtml.Node{
				Type:     nethtml.ElementNode,
				Data:     "div",
				DataAtom: atom.Div,
				Attr: []nethtml.Attribute{
					{Key: "class", Val: "toc_page_number"},
					{Key: "style", Val: "float: right"},
				},
			}
			pn.AppendChild(&nethtml.Node{Type: nethtml.TextNode, Data: text})
			li.InsertBefore(pn, li.FirstChild)
		})
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := nethtml.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render toc: %w", err)
		}
	}
	return buf.String(), nil
}

// leader prepends dots to number while link and number stay narrower than
// avail, then drops the last dot added.
func leader(m WidthMeasurer, link, number string, avail float64) string {
	lw := m.Width(link)
	if m.Width(".") <= 0 {
		return number
	}
	dots := 0
	for dots < maxDots && lw+m.Width(strings.Repeat(".", dots)+number) < avail {
		dots++
	}
	if dots > 0 {
		dots--
	}
	return strings.Repeat(".", dots) + number
}

// walk calls fn for each li below a div of class toc. depth counts the
// enclosing lists beyond the first.
func walk(n *nethtml.Node, depth int, inTOC bool, fn func(*nethtml.Node, int)) {
	if n.Type == nethtml.ElementNode {
		if n.DataAtom == atom.Div && hasClass(n, "toc") {
			inTOC = true
			depth = -1
		}
		if inTOC && (n.DataAtom == atom.Ul || n.DataAtom == atom.Ol) {
			depth++
		}
		if inTOC && n.DataAtom == atom.Li {
			fn(n, max(depth, 0))
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, depth, inTOC, fn)
	}
}

func firstLink(li *nethtml.Node) *nethtml.Node {
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == nethtml.ElementNode && c.DataAtom == atom.A {
			return c
		}
	}
	return nil
}

func attr(n *nethtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *nethtml.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *nethtml.Node) string {
	if n.Type == nethtml.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
