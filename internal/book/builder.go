package book

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	nethtml "golang.org/x/net/html"

	"github.com/wilkie/gutenberg/internal/chapter"
	"github.com/wilkie/gutenberg/internal/outline"
	"github.com/wilkie/gutenberg/internal/paginate"
	"github.com/wilkie/gutenberg/internal/source"
	"github.com/wilkie/gutenberg/internal/style"
	"github.com/wilkie/gutenberg/internal/toc"
)

// Stage is a phase of a build.
type Stage string

const (
	StageRendering  Stage = "rendering"
	StagePaginating Stage = "paginating"
)

// ChapterEvent reports one rendered chapter.
type ChapterEvent struct {
	Name    string
	Elapsed time.Duration
	Err     error
}

// Options configure a Builder.
type Options struct {
	StylesDir    string
	Hyphenators  chapter.Hyphenators // nil disables hyphenation
	Workers      int                 // concurrent chapter renders
	PageCapacity float64             // 0 takes the style's content height
	PDFFallback  bool                // use pdftotext for unreadable PDFs
	Logger       *zap.Logger
	OnStage      func(Stage)
	OnChapter    func(ChapterEvent)
}

// Builder renders books.
type Builder struct {
	opts Options
	log  *zap.Logger
}

// NewBuilder returns a builder for opts.
func NewBuilder(opts Options) *Builder {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{opts: opts, log: log.Named("book")}
}

// Result is a built book.
type Result struct {
	Book     *Book
	Style    *style.Style
	Chapters []*chapter.Chapter
	Pages    []paginate.Page
	Anchors  map[string]string
	HTML     string
}

// Build renders every chapter of b, lays the book out and paginates it.
// Chapter failures are collected and reported together.
func (bld *Builder) Build(ctx context.Context, b *Book) (*Result, error) {
	start := time.Now()
	st, err := style.Load(bld.opts.StylesDir, b.Style, bld.log)
	if err != nil {
		return nil, fmt.Errorf("load style: %w", err)
	}

	bld.stage(StageRendering)
	chapters, err := bld.renderChapters(ctx, b, st)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bld.stage(StagePaginating)
	views := make([]chapterView, len(chapters))
	for i, c := range chapters {
		body := c.HTML
		if _, ok := c.Outline().Title(); !ok {
			body = fmt.Sprintf("<h1 id='%s'>%s</h1>\n%s", outline.Slugify(c.Title), html.EscapeString(c.Title), body)
		}
		views[i] = chapterView{
			TOC:  template.HTML(toc.FormatOutline(c.Outline(), c.Outline().Root())),
			HTML: template.HTML(body),
		}
	}
	body, err := execute("body.html.tmpl", bodyView{
		Title:            b.Title,
		Authors:          b.Authors,
		Chapters:         views,
		Acknowledgements: template.HTML(Acknowledgements(st)),
	})
	if err != nil {
		return nil, err
	}

	nodes, err := paginate.ParseFragment(body)
	if err != nil {
		return nil, err
	}
	geo := st.Geometry()
	metrics := paginate.NewTextMetrics(geo)
	capacity := bld.opts.PageCapacity
	if capacity <= 0 {
		capacity = metrics.Capacity()
	}
	pages := paginate.New(metrics, capacity, paginate.WithLogger(bld.log)).Paginate(nodes)
	annotated, err := toc.Annotate(pages.HTML(), pages.Anchors, metrics, geo.ContentWidth())
	if err != nil {
		return nil, err
	}

	doc, err := execute("layout.html.tmpl", layoutView{
		Title:       b.Title,
		Language:    b.Language,
		Stylesheets: assetPaths(st.Stylesheets()),
		Scripts:     scripts(st, chapters),
		Cover:       template.HTML(cover(nodes)),
		Pages:       template.HTML(annotated),
	})
	if err != nil {
		return nil, err
	}

	bld.log.Info("Book built",
		zap.String("title", b.Title),
		zap.Int("chapters", len(chapters)),
		zap.Int("pages", len(pages.Pages)),
		zap.Duration("elapsed", time.Since(start)))
	return &Result{
		Book:     b,
		Style:    st,
		Chapters: chapters,
		Pages:    pages.Pages,
		Anchors:  pages.Anchors,
		HTML:     doc,
	}, nil
}

func (bld *Builder) stage(s Stage) {
	if bld.opts.OnStage != nil {
		bld.opts.OnStage(s)
	}
}

// renderChapters renders on a bounded number of goroutines. Chapter indexes
// follow list position starting at 1.
func (bld *Builder) renderChapters(ctx context.Context, b *Book, st *style.Style) ([]*chapter.Chapter, error) {
	chapters := make([]*chapter.Chapter, len(b.Chapters))
	errs := make([]error, len(b.Chapters))
	sem := make(chan struct{}, bld.opts.Workers)

	var wg sync.WaitGroup
	for i, name := range b.Chapters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			c, err := bld.renderChapter(ctx, b.Dir, name, strconv.Itoa(i+1), st)
			if err != nil {
				err = fmt.Errorf("chapter %s: %w", name, err)
			}
			chapters[i], errs[i] = c, err
			if bld.opts.OnChapter != nil {
				bld.opts.OnChapter(ChapterEvent{Name: name, Elapsed: time.Since(start), Err: err})
			}
		}()
	}
	wg.Wait()

	if err := multierr.Combine(errs...); err != nil {
		bld.log.Error("Chapter rendering failed", zap.Error(err))
		return nil, err
	}
	return chapters, nil
}

func (bld *Builder) renderChapter(ctx context.Context, dir, name, index string, st *style.Style) (*chapter.Chapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name)
	opts := chapter.Options{
		Index:       index,
		Style:       st,
		Hyphenators: bld.opts.Hyphenators,
		Logger:      bld.log,
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".html", ".htm", ".txt":
		return chapter.Load(path, opts)
	}

	imp, err := source.ForFile(name)
	if err != nil {
		return nil, err
	}
	if p, ok := imp.(*source.PDFImporter); ok {
		p.FallbackPdftotext = bld.opts.PDFFallback
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	doc, err := imp.Import(f, name)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	opts.Content = doc.Markdown()
	opts.Slug = chapter.SlugFor(name)
	opts.Format = chapter.Markdown
	return chapter.New(opts)
}

func assetPaths(assets []style.Asset) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.PathFrom(style.OutputDir))
	}
	return out
}

// scripts lists style scripts followed by those chapters ask for, once each.
func scripts(st *style.Style, chapters []*chapter.Chapter) []string {
	out := assetPaths(st.Scripts())
	for _, c := range chapters {
		for _, s := range c.Scripts {
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

// cover renders the cover block, which pagination leaves out.
func cover(nodes []*nethtml.Node) string {
	for _, n := range nodes {
		if n.Type != nethtml.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == "cover" {
				return paginate.Render(n)
			}
		}
	}
	return ""
}

// Save writes index.html and the style assets to dir.
func (r *Result) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(r.HTML), 0o644); err != nil {
		return fmt.Errorf("write index.html: %w", err)
	}
	if err := r.Style.CopyAssets(dir); err != nil {
		return fmt.Errorf("copy style assets: %w", err)
	}
	return nil
}
