package source

import (
	"bufio"
	"io"
	"strings"
)

// TextImporter turns blank-line separated plain text into paragraphs.
type TextImporter struct{}

func (p *TextImporter) Import(r io.Reader, filename string) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paras []string
	var current strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paras = append(paras, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paras = append(paras, current.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	doc := &Document{Title: baseTitle(filename)}
	for _, para := range paras {
		doc.Sections = append(doc.Sections, &Section{Text: para})
	}
	return doc, nil
}
