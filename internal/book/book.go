// Package book assembles chapters into a single paginated HTML document.
package book

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/maruel/natural"
	"gopkg.in/yaml.v3"

	"github.com/wilkie/gutenberg/internal/source"
)

// ConfigFile describes a book inside its directory.
const ConfigFile = "book.yml"

// Defaults for missing metadata.
const (
	DefaultTitle  = "Untitled"
	DefaultAuthor = "anonymous"
	DefaultStyle  = "basic"
)

// Book is the description of a book and where its chapters live.
type Book struct {
	Dir      string   `yaml:"-"`
	Title    string   `yaml:"title"`
	Authors  []string `yaml:"authors"`
	Style    string   `yaml:"style"`
	Language string   `yaml:"language"`
	Chapters []string `yaml:"chapters"` // relative to Dir
}

// Load reads book.yml from dir when present. Without a chapter list every
// importable file in dir is a chapter, in natural order.
func Load(dir string) (*Book, error) {
	return LoadWithStyle(dir, DefaultStyle)
}

// LoadWithStyle is Load with a different fallback style.
func LoadWithStyle(dir, style string) (*Book, error) {
	b := &Book{}
	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, b); err != nil {
			return nil, fmt.Errorf("parse %s: %w", ConfigFile, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", ConfigFile, err)
	}
	b.Dir = dir
	if b.Style == "" {
		b.Style = style
	}
	b.applyDefaults()

	if len(b.Chapters) == 0 {
		if b.Chapters, err = Discover(dir); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Book) applyDefaults() {
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		b.Title = DefaultTitle
	}
	if len(b.Authors) == 0 {
		b.Authors = []string{DefaultAuthor}
	}
	if b.Style == "" {
		b.Style = DefaultStyle
	}
	if b.Language == "" {
		b.Language = "en"
	}
}

// Discover lists the importable files directly inside dir, naturally sorted
// so that ch2 comes before ch10.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || name == ConfigFile {
			continue
		}
		if source.IsSupportedExtension(name) {
			out = append(out, name)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}
		return 0
	})
	return out, nil
}
