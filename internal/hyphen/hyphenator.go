// Package hyphen inserts soft break markers into words using TeX hyphenation
// patterns. Dictionaries are read from a directory as
// hyph-<lang>.pat.txt (patterns) and hyph-<lang>.hyp.txt (exceptions),
// optionally gzip compressed.
package hyphen

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/scanner"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// SoftHyphen is the marker used in rendered HTML.
const SoftHyphen = "&shy;"

// Some languages are published under a more specific name.
var langMap = map[string]string{
	"de":    "de-1901",
	"de-de": "de-1901",
	"de-at": "de-1996",
	"de-ch": "de-ch-1901",
	"el":    "el-monoton",
	"el-gr": "el-monoton",
	"en":    "en-us",
	"mn":    "mn-cyrl",
	"sh":    "sh-latn",
	"sr":    "sr-cyrl",
	"zh":    "zh-latn-pinyin",
}

// Hyphenator applies one language's patterns. A nil *Hyphenator leaves words
// untouched.
type Hyphenator struct {
	patterns   *trie
	exceptions map[string]string
	language   string
}

// ParseLanguage accepts tags written as "en_us" or "en-US".
func ParseLanguage(s string) (language.Tag, error) {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(s), "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("parse language %q: %w", s, err)
	}
	return tag, nil
}

func readDictionary(dir, name, suffix string) ([]byte, error) {
	base := filepath.Join(dir, fmt.Sprintf("hyph-%s.%s.txt", name, suffix))
	if data, err := os.ReadFile(base); err == nil {
		return data, nil
	}
	data, err := os.ReadFile(base + ".gz")
	if err != nil {
		return nil, err
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open %s.gz: %w", base, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// New loads the dictionary for lang from dir, falling back from the full tag to
// its mapped name, base language and mapped base. It returns nil and logs a
// warning when nothing suitable exists.
func New(dir string, lang language.Tag, log *zap.Logger) *Hyphenator {
	if log == nil {
		log = zap.NewNop()
	}
	if dir == "" {
		log.Debug("No hyphenation dictionaries configured", zap.Stringer("language", lang))
		return nil
	}

	var (
		langName string
		patterns []byte
		err      error
	)
	try := func(name string) bool {
		if name == "" {
			return false
		}
		if patterns, err = readDictionary(dir, name, "pat"); err == nil {
			langName = name
			return true
		}
		return false
	}

	name := strings.ToLower(lang.String())
	if !try(name) && !try(langMap[name]) {
		base, confidence := lang.Base()
		if confidence != language.No {
			name = strings.ToLower(base.String())
			if !try(name) {
				try(langMap[name])
			}
		} else {
			log.Warn("Unable to determine language base", zap.Stringer("tag", lang))
		}
	}

	if langName == "" {
		log.Warn("Unable to find suitable hyphenation dictionary, turning off hyphenation", zap.Stringer("language", lang))
		return nil
	}

	exceptions, err := readDictionary(dir, langName, "hyp")
	if err != nil {
		log.Debug("No exceptions dictionary found, leaving empty", zap.String("name", langName))
		exceptions = nil
	}

	h, err := Load(langName, bytes.NewReader(patterns), bytes.NewReader(exceptions))
	if err != nil {
		log.Warn("Unable to load hyphenation dictionary", zap.Stringer("language", lang), zap.Error(err))
		return nil
	}
	log.Debug("Hyphenation dictionary loaded", zap.String("name", langName), zap.Int("nodes", h.patterns.size()))
	return h
}

// Load builds a hyphenator from pattern and exception streams.
func Load(name string, patterns, exceptions io.Reader) (*Hyphenator, error) {
	h := &Hyphenator{
		patterns:   newTrie(),
		exceptions: make(map[string]string),
		language:   name,
	}

	sc := bufio.NewScanner(patterns)
	for sc.Scan() {
		h.patterns.addPattern(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read patterns: %w", err)
	}

	sc = bufio.NewScanner(exceptions)
	for sc.Scan() {
		word := strings.TrimSpace(sc.Text())
		if word == "" {
			continue
		}
		h.exceptions[strings.ReplaceAll(word, "-", "")] = word
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read exceptions: %w", err)
	}
	return h, nil
}

// Language returns the dictionary name in use.
func (h *Hyphenator) Language() string {
	if h == nil {
		return ""
	}
	return h.language
}

// Visualize returns s with marker inserted at every permitted break.
func (h *Hyphenator) Visualize(s, marker string) string {
	if h == nil || s == "" {
		return s
	}

	var sc scanner.Scanner
	sc.Init(strings.NewReader(s))
	sc.Mode = scanner.ScanIdents
	sc.Whitespace = 0
	sc.Error = func(*scanner.Scanner, string) {}

	var out strings.Builder
	for tok := sc.Scan(); tok != scanner.EOF; tok = sc.Scan() {
		if tok != scanner.Ident {
			out.WriteRune(tok)
			continue
		}
		word := sc.TokenText()
		if exc, ok := h.exceptions[word]; ok {
			out.WriteString(strings.ReplaceAll(exc, "-", marker))
			continue
		}
		out.WriteString(h.word(word, marker))
	}
	return out.String()
}

func (h *Hyphenator) word(s, marker string) string {
	test := "." + s + "."
	v := make([]int, utf8.RuneCountInString(test))

	vIndex := 0
	for pos := range test {
		strs, values := h.patterns.prefixes(test[pos:])
		for i, val := range values {
			diff := len(val) - utf8.RuneCountInString(strs[i])
			start := vIndex - diff
			if start < 0 {
				continue
			}
			vs := v[start:]
			for j := range val {
				if j < len(vs) && val[j] > vs[j] {
					vs[j] = val[j]
				}
			}
		}
		vIndex++
	}

	// Drop the values of the surrounding dots.
	markers := v[1 : len(v)-1]

	var out strings.Builder
	i := 0
	for _, ch := range s {
		out.WriteRune(ch)
		// No breaks within the first two or the last two characters.
		if 1 <= i && i < len(markers)-2 && markers[i]%2 != 0 {
			out.WriteString(marker)
		}
		i++
	}
	return out.String()
}
