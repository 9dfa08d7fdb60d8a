// Package reference numbers figures and tables within a chapter and resolves
// inline @[tag] cross-references to them.
package reference

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind distinguishes the numbering sequences.
type Kind int

const (
	Figure Kind = iota
	TableKind
)

func (k Kind) String() string {
	switch k {
	case Figure:
		return "figure"
	case TableKind:
		return "table"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Label is the caption prefix used when rendering an entry.
func (k Kind) Label() string {
	switch k {
	case TableKind:
		return "Table"
	}
	return "Figure"
}

// Entry is a numbered, linkable figure or table.
type Entry struct {
	Kind      Kind   `json:"kind"`
	Tag       string `json:"tag"`
	Slug      string `json:"slug"`
	Index     int    `json:"index"`
	FullIndex string `json:"full_index"`
	Caption   string `json:"caption"`
}

// Table is the per-chapter registry. It is not safe for concurrent use; each
// chapter render owns its own.
type Table struct {
	chapterSlug  string
	chapterIndex string
	counts       map[Kind]int
	entries      map[string]Entry
	order        []string
}

// New creates an empty registry for a chapter.
func New(chapterSlug, chapterIndex string) *Table {
	return &Table{
		chapterSlug:  chapterSlug,
		chapterIndex: chapterIndex,
		counts:       make(map[Kind]int),
		entries:      make(map[string]Entry),
	}
}

// ChapterIndex returns the numbering prefix, empty when the chapter has none.
func (t *Table) ChapterIndex() string {
	return t.chapterIndex
}

// Add assigns the next number of the given kind to tag. A repeated tag
// replaces the earlier entry for lookups.
func (t *Table) Add(kind Kind, tag, caption string) Entry {
	t.counts[kind]++
	n := t.counts[kind]

	full := fmt.Sprintf("%d", n)
	if t.chapterIndex != "" {
		full = fmt.Sprintf("%s-%d", t.chapterIndex, n)
	}

	e := Entry{
		Kind:      kind,
		Tag:       tag,
		Slug:      fmt.Sprintf("%s-%s-%d", kind, t.chapterSlug, n),
		Index:     n,
		FullIndex: full,
		Caption:   caption,
	}
	if _, seen := t.entries[tag]; !seen {
		t.order = append(t.order, tag)
	}
	t.entries[tag] = e
	return e
}

// Lookup finds the entry for tag.
func (t *Table) Lookup(tag string) (Entry, bool) {
	e, ok := t.entries[tag]
	return e, ok
}

// Entries returns every registered entry in first-registration order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, tag := range t.order {
		out = append(out, t.entries[tag])
	}
	return out
}

var (
	paragraphRe = regexp.MustCompile(`(?s)<p>.*?</p>`)
	markerRe    = regexp.MustCompile(`@\[([^\]]+)\]`)
)

// Resolve replaces @[tag] markers inside <p>...</p> spans with links to the
// registered entries. Unknown tags are left as written.
func (t *Table) Resolve(html string) string {
	if !strings.Contains(html, "@[") {
		return html
	}
	return paragraphRe.ReplaceAllStringFunc(html, func(p string) string {
		return markerRe.ReplaceAllStringFunc(p, func(m string) string {
			tag := markerRe.FindStringSubmatch(m)[1]
			e, ok := t.Lookup(tag)
			if !ok {
				return m
			}
			return fmt.Sprintf(`<a href="#%s">%s</a>`, e.Slug, e.FullIndex)
		})
	})
}
