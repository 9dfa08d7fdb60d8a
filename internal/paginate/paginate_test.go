package paginate

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/wilkie/gutenberg/internal/style"
)

// stub measures data-h when present and five units per word otherwise.
var stub = MeasurerFunc(func(n *html.Node) float64 {
	if v, err := strconv.ParseFloat(attr(n, "data-h"), 64); err == nil {
		return v
	}
	return 5 * float64(len(strings.Fields(textContent(n))))
})

func parse(t *testing.T, s string) []*html.Node {
	t.Helper()
	nodes, err := ParseFragment(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return nodes
}

func heights(p Page) []float64 {
	var out []float64
	for _, b := range p.Blocks {
		out = append(out, b.Height)
	}
	return out
}

func TestPaginate_FillsPages(t *testing.T) {
	nodes := parse(t, `<section data-h="40"></section><section data-h="40"></section><section data-h="40"></section>`)
	res := New(stub, 100).Paginate(nodes)
	if len(res.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(res.Pages))
	}
	if got := heights(res.Pages[0]); len(got) != 2 || got[0] != 40 || got[1] != 40 {
		t.Errorf("unexpected first page %v", got)
	}
	if got := heights(res.Pages[1]); len(got) != 1 || got[0] != 40 {
		t.Errorf("unexpected second page %v", got)
	}
	if res.Pages[0].Name != "1" || res.Pages[1].Name != "2" {
		t.Errorf("expected integer names without a toc, got %q %q", res.Pages[0].Name, res.Pages[1].Name)
	}
	if res.Pages[0].Footer != 20 || res.Pages[1].Footer != 60 {
		t.Errorf("unexpected footers %v %v", res.Pages[0].Footer, res.Pages[1].Footer)
	}
}

func TestPaginate_SplitsParagraph(t *testing.T) {
	nodes := parse(t, `<div data-h="90"></div><p id="para">one <em>two three</em> four five</p>`)
	res := New(stub, 100).Paginate(nodes)
	if len(res.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(res.Pages))
	}

	first := res.Pages[0].Blocks
	if len(first) != 2 {
		t.Fatalf("expected div and split part, got %d blocks", len(first))
	}
	if got := Render(first[1].Node); got != `<p id="para" class="split">one <em>two</em></p>` {
		t.Errorf("unexpected split part %s", got)
	}

	second := res.Pages[1].Blocks
	if len(second) != 1 {
		t.Fatalf("expected remainder alone, got %d blocks", len(second))
	}
	if got := Render(second[0].Node); got != `<p class="split-next"><em>three</em> four five</p>` {
		t.Errorf("unexpected remainder %s", got)
	}
	if res.Anchors["para"] != "1" {
		t.Errorf("expected anchor on first page, got %q", res.Anchors["para"])
	}
}

func TestPaginate_SplitKeepsNestedMarkup(t *testing.T) {
	tests := []struct {
		name      string
		para      string
		kept      string
		remainder string
	}{
		{
			name:      "link around emphasis",
			para:      `<p>one two <a href="#x"><em>three four</em></a> five</p>`,
			kept:      `<p class="split">one two <a href="#x"><em>three</em></a></p>`,
			remainder: `<p class="split-next"><a href="#x"><em>four</em></a> five</p>`,
		},
		{
			name:      "emphasis around link",
			para:      `<p>one two <em>x <a href="#y">click here</a></em></p>`,
			kept:      `<p class="split">one two <em>x</em></p>`,
			remainder: `<p class="split-next"><em><a href="#y">click</a></em> <em><a href="#y">here</a></em></p>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := parse(t, `<div data-h="85"></div>`+tt.para)
			res := New(stub, 100).Paginate(nodes)
			if len(res.Pages) != 2 {
				t.Fatalf("expected 2 pages, got %d", len(res.Pages))
			}
			first := res.Pages[0].Blocks
			if len(first) != 2 {
				t.Fatalf("expected div and split part, got %d blocks", len(first))
			}
			if got := Render(first[1].Node); got != tt.kept {
				t.Errorf("unexpected split part %s", got)
			}
			if got := Render(res.Pages[1].Blocks[0].Node); got != tt.remainder {
				t.Errorf("unexpected remainder %s", got)
			}
		})
	}
}

func TestPaginate_NothingFitsMovesParagraph(t *testing.T) {
	nodes := parse(t, `<section data-h="98"></section><p>alpha beta</p>`)
	res := New(stub, 100).Paginate(nodes)
	if len(res.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(res.Pages))
	}
	if len(res.Pages[0].Blocks) != 1 {
		t.Errorf("expected no empty split part, got %d blocks", len(res.Pages[0].Blocks))
	}
	if got := Render(res.Pages[1].Blocks[0].Node); got != `<p>alpha beta</p>` {
		t.Errorf("expected paragraph moved whole, got %s", got)
	}
}

func TestPaginate_Naming(t *testing.T) {
	nodes := parse(t, `<h1 id="title" data-h="10">Book</h1>
<h1 id="toc" data-h="10">Contents</h1>
<div class="toc" data-h="10"></div>
<h1 id="ch1" data-h="10">One</h1>
<p>some words</p>
<h1 id="ch2" data-h="10">Two</h1>`)
	res := New(stub, 100).Paginate(nodes)

	var names []string
	for _, p := range res.Pages {
		names = append(names, p.Name)
	}
	if strings.Join(names, ",") != "i,ii,1,2" {
		t.Fatalf("unexpected page names %v", names)
	}
	if !res.Pages[1].Front || res.Pages[2].Front {
		t.Error("expected only roman pages flagged as front matter")
	}
	for id, want := range map[string]string{"title": "i", "toc": "ii", "ch1": "1", "ch2": "2"} {
		if got := res.Anchors[id]; got != want {
			t.Errorf("anchor %s: expected %q, got %q", id, want, got)
		}
	}
}

func TestPaginate_SkipsHiddenBlocks(t *testing.T) {
	nodes := parse(t, `<div id="cover" data-h="10"></div><script>x()</script>`+
		`<p class="note not-rendered" data-h="10">hidden</p><section data-h="10" id="shown"></section>`)
	res := New(stub, 100).Paginate(nodes)
	if len(res.Pages) != 1 || len(res.Pages[0].Blocks) != 1 {
		t.Fatalf("expected a single placed block, got %+v", res.Pages)
	}
	if _, ok := res.Anchors["cover"]; ok {
		t.Error("expected cover to be skipped")
	}
}

func TestPaginate_Justifies(t *testing.T) {
	nodes := parse(t, `<h2 data-h="10">S</h2><p data-h="10">a</p><p data-h="10">b</p>`+
		`<div data-h="10"></div><section data-h="80"></section>`)
	res := New(stub, 100).Paginate(nodes)
	if len(res.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(res.Pages))
	}
	page := res.Pages[0]
	want := [][2]float64{{30, 0}, {0, 0}, {10, 0}, {10, 10}}
	for i, w := range want {
		b := page.Blocks[i]
		if math.Abs(b.MarginTop-w[0]) > 1e-9 || math.Abs(b.MarginBottom-w[1]) > 1e-9 {
			t.Errorf("block %d: expected margins %v, got %v/%v", i, w, b.MarginTop, b.MarginBottom)
		}
	}
	if page.Height != 100 || page.Footer != 0 {
		t.Errorf("expected full justified page, got height %v footer %v", page.Height, page.Footer)
	}
	if page.Padder != 3 || page.Strategy != Float {
		t.Errorf("expected div as padder, got %d %s", page.Padder, page.Strategy)
	}

	last := res.Pages[1]
	if last.Footer != 20 || last.Blocks[0].MarginTop != 0 {
		t.Errorf("expected final page unjustified, got %+v", last)
	}

	out := res.HTML()
	for _, s := range []string{
		`<div class='page' id='page-1'>`,
		`style="margin-top: 30.00px"`,
		`style="margin-top: 10.00px; margin-bottom: 10.00px"`,
		`<div class='footer'>1</div>`,
		`<div class='footer' style='margin-top: 20.00px'>2</div>`,
	} {
		if !strings.Contains(out, s) {
			t.Errorf("expected %q in\n%s", s, out)
		}
	}
}

func TestPaginate_OversizedBlock(t *testing.T) {
	nodes := parse(t, `<section data-h="150"></section><section data-h="10"></section>`)
	res := New(stub, 100).Paginate(nodes)
	if len(res.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(res.Pages))
	}
	if res.Pages[0].Footer != 0 {
		t.Errorf("expected no negative footer, got %v", res.Pages[0].Footer)
	}
}

func TestPaginate_OversizedWord(t *testing.T) {
	tall := MeasurerFunc(func(*html.Node) float64 { return 500 })
	res := New(tall, 100).Paginate(parse(t, `<p>huge words</p>`))
	if len(res.Pages) != 2 {
		t.Fatalf("expected one word per page, got %d pages", len(res.Pages))
	}
	if got := Render(res.Pages[0].Blocks[0].Node); got != `<p class="split">huge</p>` {
		t.Errorf("unexpected first page %s", got)
	}
}

func TestPaginate_LeavesInputUntouched(t *testing.T) {
	nodes := parse(t, `<div data-h="90"></div><p id="x">one two three four</p>`)
	before := Render(nodes[1])
	p := New(stub, 100)
	first := p.Paginate(nodes).HTML()
	if got := Render(nodes[1]); got != before {
		t.Errorf("input mutated: %s", got)
	}
	if second := p.Paginate(nodes).HTML(); second != first {
		t.Errorf("expected identical output on rerun\n%s\n%s", first, second)
	}
}

func TestRoman(t *testing.T) {
	for n, want := range map[int]string{1: "i", 4: "iv", 9: "ix", 14: "xiv", 40: "xl", 90: "xc", 1994: "mcmxciv", 0: ""} {
		if got := Roman(n); got != want {
			t.Errorf("Roman(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestTextMetrics(t *testing.T) {
	m := NewTextMetrics(style.Geometry{Width: 100, Height: 200, FontSize: 10, LineHeight: 1.5})
	if m.Capacity() != 200 {
		t.Errorf("unexpected capacity %v", m.Capacity())
	}
	if got := m.Width("abcd"); got != 20 {
		t.Errorf("unexpected width %v", got)
	}

	nodes := parse(t, "<p>"+strings.Repeat("x", 30)+"</p><h1>Hi</h1><pre>a\nb\nc</pre><img src='a.png' height='42'/>")
	want := []float64{50, 56.8, 65, 42}
	for i, w := range want {
		if got := m.Height(nodes[i]); math.Abs(got-w) > 1e-9 {
			t.Errorf("node %d: expected height %v, got %v", i, w, got)
		}
	}
}
