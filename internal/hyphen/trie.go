package hyphen

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// trie indexes hyphenation patterns by rune.
type trie struct {
	leaf     bool
	value    []int
	children map[rune]*trie
}

func newTrie() *trie {
	return &trie{children: make(map[rune]*trie)}
}

// addRunes stores the runes read from r and returns the final node.
func (p *trie) addRunes(r io.RuneReader) *trie {
	sym, _, err := r.ReadRune()
	if err != nil {
		p.leaf = true
		return p
	}
	n := p.children[sym]
	if n == nil {
		n = newTrie()
		p.children[sym] = n
	}
	return n.addRunes(r)
}

// addPattern stores a TeX pattern such as ".hy2p". Each letter gets the digit
// that follows it (implied zero); a leading digit applies before the first
// letter.
func (p *trie) addPattern(s string) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "%") {
		return
	}

	var v []int
	runes := []rune(s)
	for i, sym := range runes {
		if unicode.IsDigit(sym) {
			if i == 0 {
				v = append(v, int(sym-'0'))
			}
			continue
		}
		if i < len(runes)-1 && unicode.IsDigit(runes[i+1]) {
			v = append(v, int(runes[i+1]-'0'))
		} else {
			v = append(v, 0)
		}
	}

	pure := strings.Map(func(sym rune) rune {
		if unicode.IsDigit(sym) {
			return -1
		}
		return sym
	}, s)

	p.addRunes(strings.NewReader(pure)).value = v
}

// size counts nodes below the root.
func (p *trie) size() int {
	n := len(p.children)
	for _, c := range p.children {
		n += c.size()
	}
	return n
}

// prefixes returns every stored pattern that is a prefix of s, with values.
func (p *trie) prefixes(s string) ([]string, [][]int) {
	var strs []string
	var vals [][]int
	for pos, sym := range s {
		child, ok := p.children[sym]
		if !ok {
			break
		}
		if child.leaf {
			strs = append(strs, s[:pos+utf8.RuneLen(sym)])
			vals = append(vals, child.value)
		}
		p = child
	}
	return strs, vals
}
