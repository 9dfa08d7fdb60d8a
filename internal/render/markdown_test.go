package render

import (
	"strings"
	"testing"
)

const chapterSource = "# My Chapter\n" +
	"\n" +
	"Some `a-b` text.\n" +
	"\n" +
	"## Section\n" +
	"\n" +
	"![alt text](fig@images/x.png \"The X\")\n" +
	"\n" +
	"See @[fig].\n" +
	"\n" +
	"> hello -- foo bar\n" +
	"\n" +
	"!table t \"Numbers\"\n" +
	"one|two\n" +
	"\n" +
	"```go\n" +
	"!1!x := 1\n" +
	"```\n"

func TestConvert(t *testing.T) {
	s := NewSession(Options{Slug: "ch"})
	got, err := s.Convert([]byte(chapterSource))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	for _, want := range []string{
		"<h1 id='my-chapter'>My Chapter</h1>",
		"<p>Some <code>a&#8209;b</code> text.</p>",
		"<h2 id='section'>Section</h2>",
		"<figure id='figure-ch-1' class='image'><img src='images/x.png' title='The X' alt='alt text' />" +
			"<figcaption>Figure 1: The X</figcaption></figure>",
		`<p>See <a href="#figure-ch-1">1</a>.</p>`,
		"<blockquote><p>hello</p><div><cite>foo bar</cite></div></blockquote>",
		"<table id='table-ch-1'>",
		"<caption>Table 1: Numbers</caption>",
		"<pre><code class='language-go'><div class='ref_line s1 c1'><div>x := 1\n</div></div></code></pre>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "<p></p>") {
		t.Errorf("expected no empty paragraphs\n%s", got)
	}

	title, ok := s.Title()
	if !ok || title != "My Chapter" {
		t.Errorf("expected title My Chapter, got %q", title)
	}
	if _, ok := s.Lookup("t"); !ok {
		t.Error("expected table reference")
	}
}

func TestConvert_TableCellMarkup(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "emphasis and code",
			source: "!table \"Sizes\"\n*aaa*|`b-b`\n",
			want: []string{
				"<caption>Table 1: Sizes</caption>",
				"<td class='right_border'><em>aaa</em></td>",
				"<td class='left_border'><code>b&#8209;b</code></td>",
			},
		},
		{
			name:   "tagged with strong",
			source: "!table t \"Q & A\"\n**x**|y\n",
			want: []string{
				"<table id='table-ch-1'>",
				"<caption>Table 1: Q & A</caption>",
				"<td class='right_border'><strong>x</strong></td>",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(Options{Slug: "ch"})
			got, err := s.Convert([]byte(tt.source))
			if err != nil {
				t.Fatalf("convert: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("expected output to contain %q\n%s", w, got)
				}
			}
			if strings.Contains(got, "*") || strings.Contains(got, "`") {
				t.Errorf("expected markdown in cells rendered\n%s", got)
			}
		})
	}
}

func TestConvert_RawHTMLPassthrough(t *testing.T) {
	s := NewSession(Options{})
	got, err := s.Convert([]byte("<div class='aside'>raw</div>\n\nText with <em>inline</em> html.\n"))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(got, "<div class='aside'>raw</div>") || !strings.Contains(got, "<em>inline</em>") {
		t.Errorf("expected raw html kept\n%s", got)
	}
}
