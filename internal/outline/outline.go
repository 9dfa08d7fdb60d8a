// Package outline records the header structure of a chapter as a tree.
package outline

import (
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/net/html"
)

// NodeID indexes a node inside a Tree.
type NodeID int

// None marks a missing parent, child or sibling.
const None NodeID = -1

// Node is a single header. Links are arena indexes.
type Node struct {
	Text    string // Header text, may contain inline markup
	Parent  NodeID // Back-reference, navigation only
	Child   NodeID // First child
	Sibling NodeID // Next node at the same level
}

// Tree is an arena of header nodes rooted at index 0.
type Tree struct {
	nodes  []Node
	last   NodeID
	title  string
	titled bool
}

// New creates a tree whose root carries name until a level-1 header relabels it.
func New(name string) *Tree {
	if name == "" {
		name = "Untitled"
	}
	return &Tree{
		nodes: []Node{{Text: name, Parent: None, Child: None, Sibling: None}},
		last:  0,
	}
}

// Root returns the root node id.
func (t *Tree) Root() NodeID {
	return 0
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns a copy of the node. Out-of-range ids yield an empty node.
func (t *Tree) Node(id NodeID) Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return Node{Parent: None, Child: None, Sibling: None}
	}
	return t.nodes[id]
}

// Text returns the label of a node.
func (t *Tree) Text(id NodeID) string {
	return t.Node(id).Text
}

// Level counts ancestors up to the root. The root is level 1.
func (t *Tree) Level(id NodeID) int {
	level := 1
	for cur := t.Node(id).Parent; cur != None; cur = t.nodes[cur].Parent {
		level++
	}
	return level
}

// Slug returns the anchor id for a node.
func (t *Tree) Slug(id NodeID) string {
	return Slugify(t.Text(id))
}

// Title returns the trimmed text of the first level-1 header.
func (t *Tree) Title() (string, bool) {
	return t.title, t.titled
}

// Last returns the most recently recorded node.
func (t *Tree) Last() NodeID {
	return t.last
}

// Record inserts a header relative to the previously recorded one and returns
// its id. Decreasing levels unwind a single parent only, so a jump from level 4
// to level 2 attaches the node one level too deep.
func (t *Tree) Record(text string, level int) NodeID {
	if level <= 1 {
		if !t.titled {
			t.title = strings.TrimSpace(text)
			t.titled = true
		}
		t.nodes[0].Text = text
		t.last = 0
		return 0
	}

	id := NodeID(len(t.nodes))
	node := Node{Text: text, Parent: None, Child: None, Sibling: None}
	last := t.last
	lastLevel := t.Level(last)

	switch {
	case level == lastLevel:
		node.Parent = t.nodes[last].Parent
		t.nodes = append(t.nodes, node)
		t.nodes[last].Sibling = id
	case level > lastLevel:
		node.Parent = last
		t.nodes = append(t.nodes, node)
		t.nodes[last].Child = id
	default:
		parent := t.nodes[last].Parent
		node.Parent = t.nodes[parent].Parent
		t.nodes = append(t.nodes, node)
		t.nodes[parent].Sibling = id
	}

	t.last = id
	return id
}

// Children lists the direct children of a node in order.
func (t *Tree) Children(id NodeID) []NodeID {
	var out []NodeID
	for c := t.Node(id).Child; c != None; c = t.nodes[c].Sibling {
		out = append(out, c)
	}
	return out
}

// Slugify turns header text, markup included, into an anchor id.
func Slugify(text string) string {
	return slug.Make(PlainText(text))
}

// PlainText drops any markup from an HTML fragment and unescapes entities.
func PlainText(fragment string) string {
	var buf strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(buf.String())
		case html.TextToken:
			buf.Write(z.Text())
		}
	}
}
