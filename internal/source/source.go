// Package source imports documents in other formats as chapter Markdown.
package source

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// Importer converts raw document bytes into a Document.
type Importer interface {
	Import(r io.Reader, filename string) (*Document, error)
}

// SupportedExtensions lists the file extensions that can be imported.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the importer for a file name.
func ForFile(filename string) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return &MarkdownImporter{}, nil
	case ".txt":
		return &TextImporter{}, nil
	case ".csv":
		return &CSVImporter{}, nil
	case ".html", ".htm":
		return &HTMLImporter{}, nil
	case ".pdf":
		return &PDFImporter{}, nil
	case ".docx":
		return &DOCXImporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension can be imported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Verify checks that the leading bytes of a binary document match its
// extension. Text formats always pass.
func Verify(filename string, head []byte) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch ext {
	case "pdf", "docx":
		if !filetype.Is(head, ext) {
			return fmt.Errorf("%s does not contain %s data", filepath.Base(filename), ext)
		}
	}
	return nil
}

// Convert imports r with the importer for filename and returns Markdown.
func Convert(r io.Reader, filename string) (string, error) {
	imp, err := ForFile(filename)
	if err != nil {
		return "", err
	}
	doc, err := imp.Import(r, filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("import %s: %w", filepath.Base(filename), err)
	}
	return doc.Markdown(), nil
}

// baseTitle strips the extension from a file name.
func baseTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
