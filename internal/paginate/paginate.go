// Package paginate flows a sequence of rendered blocks into fixed height
// pages. Front matter pages are numbered with roman numerals until the block
// after the table of contents forces a new page, after which pages count from
// one.
package paginate

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultTOCID is the id of the header that opens the table of contents.
const DefaultTOCID = "toc"

// Measurer reports the rendered height of a block.
type Measurer interface {
	Height(n *html.Node) float64
}

// MeasurerFunc adapts a function to Measurer.
type MeasurerFunc func(n *html.Node) float64

func (f MeasurerFunc) Height(n *html.Node) float64 { return f(n) }

// Strategy says how the last flow-affecting block of a page may absorb slack.
type Strategy int

const (
	None Strategy = iota
	PushDown
	Float
)

func (s Strategy) String() string {
	switch s {
	case PushDown:
		return "push_down"
	case Float:
		return "float"
	}
	return "none"
}

// Block is a placed block and the margins justification added to it.
type Block struct {
	Node         *html.Node
	Height       float64
	MarginTop    float64
	MarginBottom float64
}

// Page is one sealed page.
type Page struct {
	Name   string
	Front  bool // numbered with roman numerals
	Blocks []Block
	Height float64 // used height, the capacity once justified
	Footer float64 // space left above the footer

	// Padder is the index of the last header, div or blockquote on the page,
	// -1 when there is none.
	Padder   int
	Strategy Strategy
}

// Result is the outcome of a pagination run.
type Result struct {
	Pages   []Page
	Anchors map[string]string // element id to page name
}

// Option configures a Paginator.
type Option func(*Paginator)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Paginator) {
		if log != nil {
			p.log = log
		}
	}
}

// WithTOCID changes the id marking the table of contents header.
func WithTOCID(id string) Option {
	return func(p *Paginator) { p.tocID = id }
}

// Paginator places blocks on pages of a fixed capacity.
type Paginator struct {
	measure  Measurer
	capacity float64
	tocID    string
	log      *zap.Logger
}

// New returns a paginator filling pages up to capacity as reported by m.
func New(m Measurer, capacity float64, opts ...Option) *Paginator {
	p := &Paginator{
		measure:  m,
		capacity: capacity,
		tocID:    DefaultTOCID,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.Named("paginate")
	return p
}

// run is the mutable state of one Paginate call.
type run struct {
	queue      []*html.Node
	aux        int
	pages      int
	tocReached bool
	endPreface bool
	anchors    map[string]string
}

// Paginate places nodes onto pages. The nodes are copied and left untouched.
// Scripts, the cover and blocks marked not-rendered are skipped.
func (p *Paginator) Paginate(nodes []*html.Node) *Result {
	r := &run{aux: 1, anchors: make(map[string]string)}
	hasTOC := false
	for _, n := range nodes {
		if n.Type != html.ElementNode || skipped(n) {
			continue
		}
		if attr(n, "id") == p.tocID {
			hasTOC = true
		}
		r.queue = append(r.queue, clone(n))
	}
	if !hasTOC {
		r.pages = 1
	}

	res := &Result{Anchors: r.anchors}
	blocks := len(r.queue)
	for len(r.queue) > 0 {
		res.Pages = append(res.Pages, p.formPage(r))
	}
	p.log.Debug("Pagination complete",
		zap.Int("blocks", blocks),
		zap.Int("pages", len(res.Pages)),
		zap.Int("anchors", len(r.anchors)))
	return res
}

func skipped(n *html.Node) bool {
	return n.DataAtom == atom.Script || attr(n, "id") == "cover" || hasClass(n, "not-rendered")
}

func (r *run) name() string {
	if r.pages > 0 {
		return strconv.Itoa(r.pages)
	}
	return Roman(r.aux)
}

// formPage fills one page from the front of the queue.
func (p *Paginator) formPage(r *run) Page {
	page := Page{Name: r.name(), Front: r.pages == 0, Padder: -1}
	curY := 0.0
	pageBreak := false

	for len(r.queue) > 0 {
		node := r.queue[0]
		if node.DataAtom == atom.H1 {
			if curY > 0 {
				pageBreak = true
				if r.tocReached {
					r.endPreface = true
				}
			}
			if attr(node, "id") == p.tocID {
				r.tocReached = true
			}
		}

		var h float64
		if !pageBreak {
			h = p.measure.Height(node)
		}
		overflow := pageBreak || curY+h > p.capacity
		if overflow && !pageBreak && len(page.Blocks) == 0 && node.DataAtom != atom.P {
			p.log.Warn("Block taller than page",
				zap.String("page", page.Name),
				zap.String("tag", node.Data),
				zap.Float64("height", h),
				zap.Float64("capacity", p.capacity))
			overflow = false
		}
		if !overflow {
			curY += h
			p.place(r, &page, node, h)
			r.queue = r.queue[1:]
			continue
		}

		if node.DataAtom == atom.P && !pageBreak {
			kept, rest := p.split(node, curY, len(page.Blocks) == 0)
			if kept != nil {
				h := p.measure.Height(kept)
				curY += h
				p.place(r, &page, kept, h)
			}
			if rest != nil {
				r.queue[0] = rest
			} else {
				r.queue = r.queue[1:]
			}
		}
		p.seal(&page, curY, !pageBreak)

		switch {
		case r.pages > 0:
			r.pages++
		case pageBreak && r.endPreface:
			r.pages = 1
		default:
			r.aux++
		}
		return page
	}

	p.seal(&page, curY, false)
	return page
}

// place commits node to page and records its anchors.
func (p *Paginator) place(r *run, page *Page, node *html.Node, h float64) {
	page.Blocks = append(page.Blocks, Block{Node: node, Height: h})
	for _, id := range ids(node) {
		r.anchors[id] = page.Name
	}
	switch node.DataAtom {
	case atom.H2, atom.H3:
		page.Padder, page.Strategy = len(page.Blocks)-1, PushDown
	case atom.Div, atom.Blockquote:
		page.Padder, page.Strategy = len(page.Blocks)-1, Float
	}
}

// split fills the rest of the page with as many words of paragraph node as
// fit. kept is the placed part and rest the remainder; either may be nil.
func (p *Paginator) split(node *html.Node, curY float64, empty bool) (kept, rest *html.Node) {
	ws := words(node)
	n := 0
	for n < len(ws) {
		if curY+p.measure.Height(fill(node, ws[:n+1])) > p.capacity {
			break
		}
		n++
	}
	if n == 0 && empty {
		if len(ws) == 0 {
			return node, nil
		}
		p.log.Warn("Word taller than page", zap.String("word", textContent(ws[0])))
		n = 1
	}
	if n == 0 {
		return nil, node
	}
	if n == len(ws) {
		return node, nil
	}

	kept = fill(node, ws[:n])
	addClass(kept, "split")
	rest = fill(node, ws[n:])
	removeAttr(rest, "id")
	addClass(rest, "split-next")
	return kept, rest
}

// seal spreads the leftover space of a page over its paragraphs, divs and
// second level headers when justify is set, then reserves what remains
// above the footer.
func (p *Paginator) seal(page *Page, curY float64, justify bool) {
	page.Height = curY
	diff := max(p.capacity-curY, 0)

	if justify {
		var paras, divs, h2s int
		for i, b := range page.Blocks {
			switch b.Node.DataAtom {
			case atom.P:
				if i > 0 && page.Blocks[i-1].Node.DataAtom == atom.P {
					paras++
				}
			case atom.Div:
				divs++
			case atom.H2:
				h2s++
			}
		}
		if divs+h2s > 0 {
			pad := diff / float64(paras+2*divs+3*h2s)
			for i := range page.Blocks {
				b := &page.Blocks[i]
				switch b.Node.DataAtom {
				case atom.P:
					if i > 0 && page.Blocks[i-1].Node.DataAtom == atom.P {
						b.MarginTop += pad
					}
				case atom.Div:
					b.MarginTop += pad
					b.MarginBottom += pad
				case atom.H2:
					b.MarginTop += 3 * pad
				}
			}
			page.Height = p.capacity
			diff = 0
		}
	}
	page.Footer = diff
}

// WriteTo renders every page as a div of class page.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, page := range r.Pages {
		page.render(&b)
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// HTML renders every page.
func (r *Result) HTML() string {
	var b strings.Builder
	_, _ = r.WriteTo(&b)
	return b.String()
}

func (page Page) render(b *strings.Builder) {
	fmt.Fprintf(b, "<div class='page' id='page-%s'>\n", html.EscapeString(page.Name))
	for _, blk := range page.Blocks {
		n := blk.Node
		if blk.MarginTop > 0 || blk.MarginBottom > 0 {
			n = clone(n)
			var style []string
			if s := strings.TrimSuffix(strings.TrimSpace(attr(n, "style")), ";"); s != "" {
				style = append(style, s)
			}
			if blk.MarginTop > 0 {
				style = append(style, "margin-top: "+px(blk.MarginTop))
			}
			if blk.MarginBottom > 0 {
				style = append(style, "margin-bottom: "+px(blk.MarginBottom))
			}
			setAttr(n, "style", strings.Join(style, "; "))
		}
		b.WriteString(Render(n))
		b.WriteByte('\n')
	}
	if page.Footer > 0 {
		fmt.Fprintf(b, "<div class='footer' style='margin-top: %s'>%s</div>\n", px(page.Footer), html.EscapeString(page.Name))
	} else {
		fmt.Fprintf(b, "<div class='footer'>%s</div>\n", html.EscapeString(page.Name))
	}
	b.WriteString("</div>\n")
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "px"
}
