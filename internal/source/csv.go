package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gosimple/slug"
)

// CSVImporter renders a CSV file as a single grid table. The first record
// is the header row.
type CSVImporter struct{}

var cellEscaper = strings.NewReplacer("|", "&#124;", ":", "&#58;", "\n", " ", "\r", "")

func (p *CSVImporter) Import(r io.Reader, filename string) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	title := baseTitle(filename)
	doc := &Document{Title: title}
	if len(records) == 0 {
		return doc, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "!table %s %q\n", slug.Make(title), title)
	for i, row := range records {
		writeRow(&b, row)
		if i == 0 && len(records) > 1 {
			b.WriteString("|" + strings.Repeat("===|", len(row)) + "\n")
		}
	}
	doc.Sections = []*Section{{Text: strings.TrimSuffix(b.String(), "\n"), Verbatim: true}}
	return doc, nil
}

func writeRow(b *strings.Builder, row []string) {
	b.WriteString("|")
	for _, cell := range row {
		cell = cellEscaper.Replace(strings.TrimSpace(cell))
		if cell == "" {
			cell = "&#160;"
		}
		b.WriteString(cell)
		b.WriteString("|")
	}
	b.WriteString("\n")
}
