package style

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// AssetType classifies a style asset by extension.
type AssetType int

const (
	Image AssetType = iota
	Script
	Stylesheet
)

func (t AssetType) String() string {
	switch t {
	case Script:
		return "script"
	case Stylesheet:
		return "stylesheet"
	default:
		return "image"
	}
}

// TypeOf returns the asset type for a file name.
func TypeOf(name string) AssetType {
	switch strings.ToLower(path.Ext(name)) {
	case ".css", ".sass", ".less", ".scss":
		return Stylesheet
	case ".js":
		return Script
	default:
		return Image
	}
}

// Asset is a file shipped with a style, optionally described by a sibling
// .yml metadata file used for attribution.
type Asset struct {
	Path          string // slash separated, relative to the style root
	Type          AssetType
	Name          string
	Author        string
	AuthorURL     string
	Collection    string
	CollectionURL string
	Attribution   bool

	metadata string
}

type assetMetadata struct {
	Name          string `yaml:"name"`
	Author        string `yaml:"author"`
	AuthorURL     string `yaml:"author-website"`
	Collection    string `yaml:"collection"`
	CollectionURL string `yaml:"collection-website"`
	Attribution   *bool  `yaml:"attribution"`
}

// metadataPath swaps the extension of p for .yml.
func metadataPath(p string) string {
	return strings.TrimSuffix(p, path.Ext(p)) + ".yml"
}

func loadAsset(fsys fs.FS, p string) (Asset, error) {
	p = path.Clean(strings.TrimPrefix(p, "/"))
	if _, err := fs.Stat(fsys, p); err != nil {
		return Asset{}, fmt.Errorf("asset %s: %w", p, err)
	}

	a := Asset{
		Path:   p,
		Type:   TypeOf(p),
		Author: "anonymous",
	}

	mp := metadataPath(p)
	data, err := fs.ReadFile(fsys, mp)
	if errors.Is(err, fs.ErrNotExist) {
		return a, nil
	}
	if err != nil {
		return Asset{}, fmt.Errorf("asset metadata %s: %w", mp, err)
	}

	var meta assetMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return Asset{}, fmt.Errorf("parse asset metadata %s: %w", mp, err)
	}
	a.metadata = mp
	a.Name = meta.Name
	if meta.Author != "" {
		a.Author = meta.Author
	}
	a.AuthorURL = meta.AuthorURL
	a.Collection = meta.Collection
	a.CollectionURL = meta.CollectionURL
	a.Attribution = meta.Attribution == nil || *meta.Attribution
	return a, nil
}

// PathFrom returns the asset path as seen from a base directory in the output.
func (a Asset) PathFrom(base string) string {
	if base == "" {
		return a.Path
	}
	return path.Join(base, a.Path)
}
