package render

import "fmt"

// Kind selects how a Block is rendered.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeader
	KindImage
	KindBlockQuote
	KindCodeSpan
	KindCodeBlock
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindHeader:
		return "header"
	case KindImage:
		return "image"
	case KindBlockQuote:
		return "blockquote"
	case KindCodeSpan:
		return "codespan"
	case KindCodeBlock:
		return "codeblock"
	case KindTable:
		return "table"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Block is one semantic unit handed over by the Markdown parser. Which fields
// are meaningful depends on Kind:
//
//	KindParagraph, KindBlockQuote: Text is rendered inline HTML
//	KindHeader:                    Text, Level
//	KindImage:                     Link, Title, Alt
//	KindCodeSpan:                  Text is the raw code
//	KindCodeBlock:                 Text is the raw code, Language
//	KindTable:                     Text is the raw table source
type Block struct {
	Kind     Kind
	Text     string
	Level    int
	Link     string
	Title    string
	Alt      string
	Language string
}
