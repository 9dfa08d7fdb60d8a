package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/wilkie/gutenberg/internal/table"
)

// hooks routes goldmark nodes to the session as Blocks. Children are rendered
// first with the full renderer so blocks receive finished inline HTML.
type hooks struct {
	session *Session
	inner   renderer.Renderer
}

func (h *hooks) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindParagraph, h.paragraph)
	reg.Register(ast.KindHeading, h.heading)
	reg.Register(ast.KindBlockquote, h.blockquote)
	reg.Register(ast.KindCodeSpan, h.codeSpan)
	reg.Register(ast.KindCodeBlock, h.codeBlock)
	reg.Register(ast.KindFencedCodeBlock, h.codeBlock)
	reg.Register(ast.KindImage, h.image)
}

// Markdown returns a goldmark instance whose block hooks feed s. Raw HTML in
// the source is passed through.
func (s *Session) Markdown() goldmark.Markdown {
	h := &hooks{session: s}
	md := goldmark.New(
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(h, 100)),
		),
	)
	h.inner = md.Renderer()
	return md
}

// Convert renders a Markdown chapter and finishes it.
func (s *Session) Convert(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := s.Markdown().Convert(source, &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return s.Finish(buf.String()), nil
}

func (h *hooks) children(source []byte, n ast.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := h.inner.Render(&buf, source, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (h *hooks) emit(w util.BufWriter, b Block) (ast.WalkStatus, error) {
	_, err := w.WriteString(h.session.Render(b))
	return ast.WalkSkipChildren, err
}

func (h *hooks) paragraph(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	text, err := h.children(source, n)
	if err != nil {
		return ast.WalkStop, err
	}
	raw := strings.TrimSpace(string(n.Lines().Value(source)))
	if strings.HasPrefix(raw, table.Directive) {
		return h.emit(w, Block{Kind: KindTable, Text: tableText(raw, text)})
	}
	return h.emit(w, Block{Kind: KindParagraph, Text: text})
}

// tableText keeps the directive line as written, so its quoted caption
// survives, and takes the rows from the rendered paragraph.
func tableText(raw, rendered string) string {
	directive, _, _ := strings.Cut(raw, "\n")
	_, rows, _ := strings.Cut(strings.TrimSpace(rendered), "\n")
	return directive + "\n" + rows
}

func (h *hooks) heading(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	text, err := h.children(source, n)
	if err != nil {
		return ast.WalkStop, err
	}
	return h.emit(w, Block{Kind: KindHeader, Text: text, Level: n.(*ast.Heading).Level})
}

func (h *hooks) blockquote(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	text, err := h.children(source, n)
	if err != nil {
		return ast.WalkStop, err
	}
	return h.emit(w, Block{Kind: KindBlockQuote, Text: text})
}

func (h *hooks) codeSpan(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	var code strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			v := t.Segment.Value(source)
			if bytes.HasSuffix(v, []byte("\n")) {
				v = append(v[:len(v)-1:len(v)-1], ' ')
			}
			code.Write(v)
		}
	}
	return h.emit(w, Block{Kind: KindCodeSpan, Text: code.String()})
}

func (h *hooks) codeBlock(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	var code strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}
	var language string
	if f, ok := n.(*ast.FencedCodeBlock); ok {
		language = string(f.Language(source))
	}
	return h.emit(w, Block{Kind: KindCodeBlock, Text: code.String(), Language: language})
}

func (h *hooks) image(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	img := n.(*ast.Image)
	return h.emit(w, Block{
		Kind:  KindImage,
		Link:  string(img.Destination),
		Title: string(img.Title),
		Alt:   plainText(source, img),
	})
}

// plainText concatenates the text below n, as used for alt attributes.
func plainText(source []byte, n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
