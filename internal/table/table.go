// Package table builds HTML tables from the plain-text grid notation used in
// chapters:
//
//	!table sizes "Common sizes"
//	|---|---|
//	|aaa|bbb|
//	|===|===|
//	ccc:ddd
//
// Cells are separated by '|' (drawn border) or ':' (no border). Rows made only
// of '-', '=' or '.' set the bottom border of the row above them.
package table

import (
	"fmt"
	"regexp"
	"strings"
)

// Border is the style of a horizontal cell border.
type Border int

const (
	None Border = iota
	Single
	Double
)

func (b Border) String() string {
	switch b {
	case Single:
		return "single"
	case Double:
		return "double"
	}
	return "none"
}

// Cell is one table cell.
type Cell struct {
	Content      string
	LeftBorder   bool
	RightBorder  bool
	TopBorder    Border
	BottomBorder Border
}

func (c Cell) classes() []string {
	var out []string
	if c.LeftBorder {
		out = append(out, "left_border")
	}
	if c.RightBorder {
		out = append(out, "right_border")
	}
	if c.TopBorder != None {
		out = append(out, "top_border_"+c.TopBorder.String())
	}
	if c.BottomBorder != None {
		out = append(out, "bottom_border_"+c.BottomBorder.String())
	}
	return out
}

// Grid accumulates rows line by line.
type Grid struct {
	ID      string // Optional id attribute of the emitted table
	Tag     string // Short name given on the directive line
	Caption string

	rows    [][]Cell
	cols    int
	topRow  []Border
	lastSep bool
}

// Directive starts a table block inside a paragraph.
const Directive = "!table"

var (
	separatorRe = regexp.MustCompile(`^[-=.]+$`)
	directiveRe = regexp.MustCompile(`^([^"]*)"(.*)"\s*$`)
)

// New returns an empty grid.
func New() *Grid {
	return &Grid{lastSep: true}
}

// Parse reads a whole table block. The directive line, if any, supplies the
// tag and caption.
func Parse(text string) *Grid {
	g := New()
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, Directive) {
			g.Tag, g.Caption = ParseDirective(line)
			continue
		}
		g.ParseLine(line)
	}
	return g
}

// ParseDirective splits "!table tag \"caption\"" into its parts. Without
// quotes the whole remainder is the caption.
func ParseDirective(line string) (tag, caption string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, Directive))
	if m := directiveRe.FindStringSubmatch(rest); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return "", rest
}

// ParseLine adds the row described by line.
func (g *Grid) ParseLine(line string) {
	cellIndex := 0
	rowIsSeparator := false
	added := 0

	for line != "" {
		var cell Cell
		if strings.HasPrefix(line, "|") {
			cell.LeftBorder = true
		}
		if strings.HasPrefix(line, "|") || strings.HasPrefix(line, ":") {
			line = line[1:]
		}

		pipe := strings.IndexByte(line, '|')
		colon := strings.IndexByte(line, ':')
		index := pipe
		if index < 0 || (colon >= 0 && colon < index) {
			index = colon
		}
		if index >= 0 && index == pipe {
			cell.RightBorder = true
		}

		if index >= 0 {
			cell.Content = strings.TrimSpace(line[:index])
			line = strings.TrimSpace(line[index:])
		} else {
			cell.Content = strings.TrimSpace(line)
			line = ""
		}

		switch {
		case separatorRe.MatchString(cell.Content):
			rowIsSeparator = true
			border := None
			switch cell.Content[0] {
			case '-':
				border = Single
			case '=':
				border = Double
			}
			if row := g.current(); row != nil {
				if border != None && cellIndex < len(*row) {
					(*row)[cellIndex].BottomBorder = border
				}
			} else {
				g.topRow = append(g.topRow, border)
			}
		case !rowIsSeparator:
			if cellIndex == 0 {
				g.rows = append(g.rows, nil)
			}
			if g.lastSep {
				cell.TopBorder = g.inheritedTop(cellIndex)
			}
			if cell.Content != "" {
				row := g.current()
				*row = append(*row, cell)
				added++
			}
		}

		cellIndex++
	}

	if added > g.cols {
		g.cols = added
	}
	g.lastSep = rowIsSeparator
}

// current returns the row being filled, nil before the first row.
func (g *Grid) current() *[]Cell {
	if len(g.rows) == 0 {
		return nil
	}
	return &g.rows[len(g.rows)-1]
}

// inheritedTop looks up the bottom border declared just above column i. It is
// called after the new row has been opened.
func (g *Grid) inheritedTop(i int) Border {
	if len(g.rows) >= 2 {
		prev := g.rows[len(g.rows)-2]
		if i < len(prev) {
			return prev[i].BottomBorder
		}
		return None
	}
	if i < len(g.topRow) {
		return g.topRow[i]
	}
	return None
}

// Rows returns the number of content rows.
func (g *Grid) Rows() int {
	return len(g.rows)
}

// Cols returns the widest row's cell count.
func (g *Grid) Cols() int {
	return g.cols
}

// Cell returns the cell at row r, column c.
func (g *Grid) Cell(r, c int) (Cell, bool) {
	if r < 0 || r >= len(g.rows) || c < 0 || c >= len(g.rows[r]) {
		return Cell{}, false
	}
	return g.rows[r][c], true
}

// HTML renders the grid.
func (g *Grid) HTML() string {
	var b strings.Builder
	if g.ID != "" {
		fmt.Fprintf(&b, "<table id='%s'>\n", g.ID)
	} else {
		b.WriteString("<table>\n")
	}
	if g.Caption != "" {
		fmt.Fprintf(&b, "<caption>%s</caption>", g.Caption)
	}
	b.WriteString("\n")
	for _, row := range g.rows {
		b.WriteString("  <tr>\n")
		for _, c := range row {
			if classes := c.classes(); len(classes) > 0 {
				fmt.Fprintf(&b, "    <td class='%s'>%s</td>\n", strings.Join(classes, " "), c.Content)
			} else {
				fmt.Fprintf(&b, "    <td>%s</td>\n", c.Content)
			}
		}
		b.WriteString("  </tr>\n")
	}
	b.WriteString("</table>\n\n")
	return b.String()
}
