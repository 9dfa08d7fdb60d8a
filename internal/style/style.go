// Package style loads book styles: a directory holding config.yml, the
// stylesheets and scripts it lists and the images used for paragraph
// directives.
package style

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultName is used when a book does not choose a style.
const DefaultName = "basic"

// OutputDir is where assets are placed relative to the generated document.
const OutputDir = "style"

//go:embed styles
var builtin embed.FS

// Style is a loaded style.
type Style struct {
	Name        string
	Author      string
	AuthorURL   string
	Description string
	Attribution bool
	Assets      []Asset

	images   map[string]string
	geometry Geometry
	fsys     fs.FS
}

// Options override values read from config.yml.
type Options struct {
	Author      string
	AuthorURL   string
	Description string
	Attribution *bool
	Assets      []string
	Images      map[string]string
	Logger      *zap.Logger
}

type styleConfig struct {
	Author      string            `yaml:"author"`
	AuthorURL   string            `yaml:"author_url"`
	Description string            `yaml:"description"`
	Attribution *bool             `yaml:"attribution"`
	Assets      []string          `yaml:"assets"`
	Images      map[string]string `yaml:"images"`
	Stylesheet  string            `yaml:"stylesheet"`
}

// Load reads style name from dir. An empty dir, or a dir without the default
// style, serves the built-in styles.
func Load(dir, name string, log *zap.Logger) (*Style, error) {
	if name == "" {
		name = DefaultName
	}
	if dir != "" {
		s, err := Open(os.DirFS(dir), name, Options{Logger: log})
		if err == nil || !errors.Is(err, fs.ErrNotExist) || name != DefaultName {
			return s, err
		}
	}
	sub, err := fs.Sub(builtin, "styles")
	if err != nil {
		return nil, fmt.Errorf("builtin styles: %w", err)
	}
	return Open(sub, name, Options{Logger: log})
}

// Open loads style name from the root of fsys, applying opts over config.yml.
func Open(fsys fs.FS, name string, opts Options) (*Style, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("style")

	root, err := fs.Sub(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("style %s: %w", name, err)
	}
	if _, err := fs.Stat(root, "."); err != nil {
		return nil, fmt.Errorf("style %s: %w", name, err)
	}

	var cfg styleConfig
	data, err := fs.ReadFile(root, "config.yml")
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse style config %s: %w", name, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("Style has no config.yml", zap.String("style", name))
	default:
		return nil, fmt.Errorf("read style config %s: %w", name, err)
	}

	s := &Style{
		Name:        name,
		Author:      firstOf(opts.Author, cfg.Author, "anonymous"),
		AuthorURL:   firstOf(opts.AuthorURL, cfg.AuthorURL),
		Description: firstOf(opts.Description, cfg.Description),
		Attribution: true,
		images:      cfg.Images,
		fsys:        root,
	}
	switch {
	case opts.Attribution != nil:
		s.Attribution = *opts.Attribution
	case cfg.Attribution != nil:
		s.Attribution = *cfg.Attribution
	}
	if opts.Images != nil {
		s.images = opts.Images
	}

	assets := cfg.Assets
	if opts.Assets != nil {
		assets = opts.Assets
	}
	for _, p := range assets {
		a, err := loadAsset(root, p)
		if err != nil {
			return nil, fmt.Errorf("style %s: %w", name, err)
		}
		s.Assets = append(s.Assets, a)
	}

	sheet := cfg.Stylesheet
	if sheet == "" {
		for _, a := range s.Stylesheets() {
			if path.Ext(a.Path) == ".css" {
				sheet = a.Path
				break
			}
		}
	}
	s.geometry = DefaultGeometry()
	if sheet != "" {
		css, err := fs.ReadFile(root, sheet)
		if err != nil {
			return nil, fmt.Errorf("style %s stylesheet: %w", name, err)
		}
		s.geometry = ParseGeometry(css, log)
	}

	log.Debug("Style loaded",
		zap.String("style", name),
		zap.Int("assets", len(s.Assets)),
		zap.Float64("page_width", s.geometry.Width),
		zap.Float64("page_height", s.geometry.Height))
	return s, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ImageFor returns the output path of the image registered for a paragraph
// directive such as "note" or "blockquote".
func (s *Style) ImageFor(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	p, ok := s.images[name]
	if !ok {
		return "", false
	}
	return path.Join(OutputDir, p), true
}

// Geometry returns the page geometry declared by the stylesheet.
func (s *Style) Geometry() Geometry {
	if s == nil {
		return DefaultGeometry()
	}
	return s.geometry
}

func (s *Style) byType(t AssetType) []Asset {
	var out []Asset
	for _, a := range s.Assets {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func (s *Style) Stylesheets() []Asset { return s.byType(Stylesheet) }
func (s *Style) Scripts() []Asset     { return s.byType(Script) }
func (s *Style) Images() []Asset      { return s.byType(Image) }

// CopyAssets copies every asset, its metadata and every directive image into
// dst/style.
func (s *Style) CopyAssets(dst string) error {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, a := range s.Assets {
		add(a.Path)
		add(a.metadata)
	}
	for _, p := range s.images {
		add(path.Clean(p))
	}

	for _, p := range files {
		if err := s.copyFile(p, filepath.Join(dst, OutputDir, filepath.FromSlash(p))); err != nil {
			return err
		}
	}
	return nil
}

func (s *Style) copyFile(src, dst string) error {
	in, err := s.fsys.Open(src)
	if err != nil {
		return fmt.Errorf("open asset %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create asset %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy asset %s: %w", src, err)
	}
	return out.Close()
}
