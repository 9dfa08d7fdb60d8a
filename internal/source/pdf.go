package source

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFImporter keeps the plain text of each page. It falls back to pdftotext
// when asked and the library cannot read the file.
type PDFImporter struct {
	FallbackPdftotext bool
}

func (p *PDFImporter) Import(r io.Reader, filename string) (*Document, error) {
	// ledongthuc/pdf opens files by path.
	tmp, err := os.CreateTemp("", "gutenberg-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmp.Name())
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(tmp.Name())
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	return &Document{Title: baseTitle(filename), Sections: pageSections(text)}, nil
}

// pageSections turns form feed separated page text into untitled sections,
// one per non-empty page.
func pageSections(text string) []*Section {
	var out []*Section
	for i, page := range strings.Split(text, "\f") {
		paras := paragraphs(page)
		if len(paras) == 0 {
			continue
		}
		for j, para := range paras {
			paras[j] = oneLine(para)
		}
		out = append(out, &Section{Text: strings.Join(paras, "\n\n"), Page: i + 1})
	}
	return out
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if i > 1 {
			buf.WriteString("\f")
		}
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(path string) (string, error) {
	out, err := exec.Command("pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
