package toc

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/wilkie/gutenberg/internal/outline"
)

type runeWidth struct{}

func (runeWidth) Width(text string) float64 { return float64(utf8.RuneCountInString(text)) }

type zeroWidth struct{}

func (zeroWidth) Width(string) float64 { return 0 }

func TestFormatOutline(t *testing.T) {
	tree := outline.New("x")
	tree.Record("Chapter", 1)
	tree.Record("A", 2)
	tree.Record("A1", 3)
	tree.Record("References", 2)

	got := FormatOutline(tree, tree.Root())
	want := "<li><a href='#chapter'>Chapter</a><ul>" +
		"<li><a href='#a'>A</a><ul><li><a href='#a1'>A1</a><ul></ul></li></ul></li>" +
		"</ul><ul><li><a href='#references'>References</a></li>" +
		"</ul></li>"
	if got != want {
		t.Errorf("unexpected outline\n got %s\nwant %s", got, want)
	}
}

func TestFormatOutline_Empty(t *testing.T) {
	if got := FormatOutline(outline.New("x"), outline.None); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestAnnotate(t *testing.T) {
	fragment := `<div class="toc"><ul>` +
		`<li><a href="#ch1">Intro</a><ul><li><a href="#s">Sub</a></li></ul></li>` +
		`<li><a href="#missing">X</a></li>` +
		`</ul></div><ul><li><a href="#ch1">Outside</a></li></ul>`
	anchors := map[string]string{"ch1": "1", "s": "3"}

	got, err := Annotate(fragment, anchors, runeWidth{}, 20)
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}

	intro := `<li><div class="toc_page_number" style="float: right">` + strings.Repeat(".", 12) + ` 1</div><a href="#ch1">Intro</a>`
	if !strings.Contains(got, intro) {
		t.Errorf("expected %s in\n%s", intro, got)
	}
	sub := `<li><div class="toc_page_number" style="float: right">` + strings.Repeat(".", 10) + ` 3</div><a href="#s">Sub</a>`
	if !strings.Contains(got, sub) {
		t.Errorf("expected indented entry %s in\n%s", sub, got)
	}
	if !strings.Contains(got, `<li><a href="#missing">X</a></li>`) {
		t.Errorf("expected unresolved entry untouched\n%s", got)
	}
	if !strings.Contains(got, `<li><a href="#ch1">Outside</a></li>`) {
		t.Errorf("expected lists outside the toc untouched\n%s", got)
	}
	if n := strings.Count(got, "toc_page_number"); n != 2 {
		t.Errorf("expected 2 page numbers, got %d", n)
	}
}

func TestAnnotate_ZeroWidth(t *testing.T) {
	got, err := Annotate(`<div class="toc"><ul><li><a href="#a">A</a></li></ul></div>`, map[string]string{"a": "ii"}, zeroWidth{}, 100)
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if !strings.Contains(got, `style="float: right"> ii</div>`) {
		t.Errorf("expected number without leader, got %s", got)
	}
}
