package paginate

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses a run of block elements as found inside <body>.
func ParseFragment(s string) ([]*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), body)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return nodes, nil
}

// Render serializes a node, returning "" on failure.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// clone deep copies n without its position in the source tree.
func clone(n *html.Node) *html.Node {
	c := shallow(n)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(clone(child))
	}
	return c
}

// shallow copies n and its attributes but no children.
func shallow(n *html.Node) *html.Node {
	return &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      slices.Clone(n.Attr),
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool { return a.Key == key })
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}

func addClass(n *html.Node, class string) {
	if hasClass(n, class) {
		return
	}
	setAttr(n, "class", strings.TrimSpace(attr(n, "class")+" "+class))
}

func is(n *html.Node, a atom.Atom) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == a
}

// textContent concatenates every text node below n.
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

// ids lists the id attributes of n and its descendants.
func ids(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := attr(n, "id"); id != "" {
				out = append(out, id)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// words breaks the children of a paragraph into placeable words. Text runs
// split on whitespace; each word inside inline markup is wrapped in copies of
// every element between the paragraph and its text. Elements without text,
// such as images, are one word.
func words(p *html.Node) []*html.Node {
	var out []*html.Node
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			for _, w := range strings.Fields(c.Data) {
				out = append(out, &html.Node{Type: html.TextNode, Data: w})
			}
		case html.ElementNode:
			if len(strings.Fields(textContent(c))) == 0 {
				out = append(out, clone(c))
				continue
			}
			out = append(out, wrapped(c, func(n *html.Node) *html.Node { return n })...)
		}
	}
	return out
}

// wrapped splits the text below e into words, each passed through wrap after
// being nested in a shallow copy of e.
func wrapped(e *html.Node, wrap func(*html.Node) *html.Node) []*html.Node {
	inner := func(n *html.Node) *html.Node {
		w := shallow(e)
		w.AppendChild(n)
		return wrap(w)
	}
	var out []*html.Node
	for c := e.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			for _, w := range strings.Fields(c.Data) {
				out = append(out, inner(&html.Node{Type: html.TextNode, Data: w}))
			}
		case html.ElementNode:
			if len(strings.Fields(textContent(c))) == 0 {
				out = append(out, inner(clone(c)))
				continue
			}
			out = append(out, wrapped(c, inner)...)
		}
	}
	return out
}

// fill returns a shallow copy of p holding ws separated by spaces.
func fill(p *html.Node, ws []*html.Node) *html.Node {
	out := shallow(p)
	for i, w := range ws {
		if i > 0 {
			out.AppendChild(&html.Node{Type: html.TextNode, Data: " "})
		}
		out.AppendChild(clone(w))
	}
	return out
}
