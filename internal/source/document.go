package source

import (
	"strings"
)

// Document is an imported file before it is written out as Markdown.
type Document struct {
	Title    string     // From metadata or the file name
	Source   string     // Markdown used as is, when set
	Sections []*Section // Top-level sections
}

// Section is a recursive part of a document.
type Section struct {
	Title    string // Heading, empty for plain text
	Text     string // Paragraphs separated by blank lines
	Page     int    // Source page, 0 if unknown
	Verbatim bool   // Text is already Markdown
	Children []*Section
}

// Markdown writes the document as chapter source. Section depth maps to
// header level, the document title being the level-1 header.
func (d *Document) Markdown() string {
	if d.Source != "" {
		return d.Source
	}
	var b strings.Builder
	if d.Title != "" {
		b.WriteString("# " + oneLine(d.Title) + "\n\n")
	}
	for _, s := range d.Sections {
		s.write(&b, 2)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (s *Section) write(b *strings.Builder, level int) {
	if s.Title != "" {
		b.WriteString(strings.Repeat("#", min(level, 6)) + " " + oneLine(s.Title) + "\n\n")
	}
	if text := strings.TrimSpace(s.Text); text != "" {
		if !s.Verbatim {
			text = escape(text)
		}
		b.WriteString(text + "\n\n")
	}
	for _, c := range s.Children {
		c.write(b, level+1)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// escape keeps imported prose from being read as chapter markup. Paragraph
// and line starts that would open a header, directive, quote or list get a
// backslash.
func escape(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		switch trimmed[0] {
		case '#', '!', '>', '-', '*', '+', '|', '=', '`':
			lines[i] = "\\" + trimmed
		}
	}
	return strings.Join(lines, "\n")
}

// paragraphs splits text on blank lines.
func paragraphs(text string) []string {
	var out []string
	var cur []string
	for line := range strings.SplitSeq(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				out = append(out, strings.Join(cur, "\n"))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, "\n"))
	}
	return out
}

// headings nests sections by heading level as they are read.
type headings struct {
	root  *Section
	stack []headingEntry
	text  strings.Builder
}

type headingEntry struct {
	node  *Section
	level int
}

func newHeadings() *headings {
	root := &Section{}
	return &headings{root: root, stack: []headingEntry{{node: root}}}
}

// heading opens a section at level, closing deeper or equal ones.
func (h *headings) heading(title string, level int) {
	h.flush()
	node := &Section{Title: title}
	for len(h.stack) > 1 && h.stack[len(h.stack)-1].level >= level {
		h.stack = h.stack[:len(h.stack)-1]
	}
	parent := h.stack[len(h.stack)-1].node
	parent.Children = append(parent.Children, node)
	h.stack = append(h.stack, headingEntry{node: node, level: level})
}

// paragraph appends running text to the open section.
func (h *headings) paragraph(text string) {
	if text == "" {
		return
	}
	if h.text.Len() > 0 {
		h.text.WriteString("\n\n")
	}
	h.text.WriteString(text)
}

func (h *headings) flush() {
	t := strings.TrimSpace(h.text.String())
	if t != "" {
		top := h.stack[len(h.stack)-1].node
		if top.Text != "" {
			top.Text += "\n\n" + t
		} else {
			top.Text = t
		}
	}
	h.text.Reset()
}

// sections closes the tree. Text before the first heading becomes a leading
// untitled section.
func (h *headings) sections() []*Section {
	h.flush()
	out := h.root.Children
	if h.root.Text != "" {
		out = append([]*Section{{Text: h.root.Text}}, out...)
	}
	return out
}

// promote turns a lone top-level heading into the document title.
func promote(doc *Document) {
	if len(doc.Sections) != 1 || doc.Sections[0].Title == "" {
		return
	}
	top := doc.Sections[0]
	doc.Title = top.Title
	doc.Sections = top.Children
	if top.Text != "" {
		doc.Sections = append([]*Section{{Text: top.Text, Page: top.Page}}, doc.Sections...)
	}
}
