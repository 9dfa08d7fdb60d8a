package chapter

import (
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"github.com/wilkie/gutenberg/internal/outline"
)

var tokenizer = sync.OnceValues(func() (*sentences.DefaultSentenceTokenizer, error) {
	return english.NewSentenceTokenizer(nil)
})

// firstParagraph returns the first block of running text in a Markdown
// source, skipping headers, directives, quotes, code and raw HTML.
func firstParagraph(content string) string {
	fenced := false
	for block := range strings.SplitSeq(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(block)
		if strings.Count(block, "```")%2 == 1 {
			fenced = !fenced
			continue
		}
		if fenced || block == "" {
			continue
		}
		switch block[0] {
		case '#', '!', '>', '<', '|', '`', '-', '*', '=':
			continue
		}
		return strings.Join(strings.Fields(block), " ")
	}
	return ""
}

// firstSentence is the default chapter summary.
func firstSentence(content string) string {
	p := outline.PlainText(firstParagraph(content))
	if p == "" {
		return ""
	}
	tok, err := tokenizer()
	if err != nil {
		return p
	}
	for _, s := range tok.Tokenize(p) {
		if text := strings.TrimSpace(s.Text); text != "" {
			return text
		}
	}
	return p
}
