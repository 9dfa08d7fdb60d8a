package style

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Geometry describes the printable page in CSS pixels.
type Geometry struct {
	Width      float64 // page width
	Height     float64 // page height
	FontSize   float64 // body font size
	LineHeight float64 // multiplier of FontSize
	Padding    float64 // uniform page padding
}

// DefaultGeometry is used when the stylesheet does not declare a page.
func DefaultGeometry() Geometry {
	return Geometry{Width: 600, Height: 800, FontSize: 16, LineHeight: 1.4}
}

// ContentWidth is the width available to flowed text.
func (g Geometry) ContentWidth() float64 {
	return max(g.Width-2*g.Padding, 0)
}

// ContentHeight is the height available to flowed blocks.
func (g Geometry) ContentHeight() float64 {
	return max(g.Height-2*g.Padding, 0)
}

// Line returns the height of one line of body text.
func (g Geometry) Line() float64 {
	return g.FontSize * g.LineHeight
}

// ParseGeometry reads width, height and padding from top-level ".page" rules and
// font-size and line-height from "body" rules. Rules nested in at-rules such
// as @media are ignored.
func ParseGeometry(data []byte, log *zap.Logger) Geometry {
	if log == nil {
		log = zap.NewNop()
	}
	g := DefaultGeometry()

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	depth := 0
	var target string
	var lineHeight []css.Token
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && err.Error() != "EOF" {
				log.Debug("CSS parse error", zap.Error(err))
			}
			// line-height may be relative to a font-size declared after it.
			if lineHeight != nil {
				if v, ok := parseLineHeight(lineHeight, g.FontSize); ok {
					g.LineHeight = v
				}
			}
			return g

		case css.BeginAtRuleGrammar:
			depth++
		case css.EndAtRuleGrammar:
			depth--

		case css.BeginRulesetGrammar:
			target = ""
			if depth > 0 {
				continue
			}
			for _, sel := range selectors(data, parser.Values()) {
				if sel == ".page" || sel == "body" {
					target = sel
				}
			}
		case css.EndRulesetGrammar:
			target = ""

		case css.DeclarationGrammar:
			prop := strings.ToLower(string(data))
			values := parser.Values()
			switch {
			case target == ".page" && prop == "width":
				if v, ok := parseLength(values, g.FontSize); ok {
					g.Width = v
				}
			case target == ".page" && prop == "height":
				if v, ok := parseLength(values, g.FontSize); ok {
					g.Height = v
				}
			case target == ".page" && prop == "padding":
				if v, ok := parseLength(values, g.FontSize); ok {
					g.Padding = v
				}
			case target == "body" && prop == "font-size":
				if v, ok := parseLength(values, DefaultGeometry().FontSize); ok {
					g.FontSize = v
				}
			case target == "body" && prop == "line-height":
				lineHeight = append([]css.Token(nil), values...)
			}
		}
	}
}

func selectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	var out []string
	for s := range strings.SplitSeq(sb.String(), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstValue(tokens []css.Token) (css.Token, bool) {
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			return t, true
		}
	}
	return css.Token{}, false
}

// Units per CSS pixel.
var pixels = map[string]float64{
	"px": 1,
	"pt": 96.0 / 72.0,
	"pc": 16,
	"in": 96,
	"cm": 96 / 2.54,
	"mm": 96 / 25.4,
}

func parseLength(tokens []css.Token, em float64) (float64, bool) {
	t, ok := firstValue(tokens)
	if !ok {
		return 0, false
	}
	switch t.TokenType {
	case css.NumberToken:
		v, err := strconv.ParseFloat(string(t.Data), 64)
		return v, err == nil
	case css.DimensionToken:
		v, unit := parseDimension(string(t.Data))
		switch unit {
		case "em", "rem":
			return v * em, true
		}
		if scale, ok := pixels[unit]; ok {
			return v * scale, true
		}
	}
	return 0, false
}

func parseLineHeight(tokens []css.Token, fontSize float64) (float64, bool) {
	t, ok := firstValue(tokens)
	if !ok {
		return 0, false
	}
	switch t.TokenType {
	case css.NumberToken:
		v, err := strconv.ParseFloat(string(t.Data), 64)
		return v, err == nil
	case css.PercentageToken:
		v, err := strconv.ParseFloat(strings.TrimSuffix(string(t.Data), "%"), 64)
		return v / 100, err == nil
	case css.DimensionToken:
		if px, ok := parseLength(tokens, fontSize); ok && fontSize > 0 {
			return px / fontSize, true
		}
	}
	return 0, false
}

// parseDimension splits a dimension token such as "12pt".
func parseDimension(s string) (float64, string) {
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == '-' || r == '+' {
			numEnd = i + 1
		} else {
			break
		}
	}
	if numEnd == 0 {
		return 0, ""
	}
	num, _ := strconv.ParseFloat(s[:numEnd], 64)
	return num, strings.ToLower(s[numEnd:])
}
