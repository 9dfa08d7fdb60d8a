package hyphen

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

func loadTest(t *testing.T, patterns, exceptions string) *Hyphenator {
	t.Helper()
	h, err := Load("test", strings.NewReader(patterns), strings.NewReader(exceptions))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return h
}

func TestVisualize_Patterns(t *testing.T) {
	h := loadTest(t, "a1b\n", "")

	cases := []struct {
		in, want string
	}{
		{"xxabxx", "xxa-bxx"},
		{"abxxxx", "abxxxx"}, // break would follow the first character
		{"xxxxab", "xxxxab"}, // break would fall in the last two characters
		{"xxabxx xxabxx", "xxa-bxx xxa-bxx"},
	}
	for _, tc := range cases {
		if got := h.Visualize(tc.in, "-"); got != tc.want {
			t.Errorf("Visualize(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestVisualize_EvenValueSuppresses(t *testing.T) {
	h := loadTest(t, "a1b\nxa2b\n", "")
	if got := h.Visualize("xxabxx", "-"); got != "xxabxx" {
		t.Errorf("expected even value to suppress the break, got %q", got)
	}
}

func TestVisualize_Exceptions(t *testing.T) {
	h := loadTest(t, "", "ta-ble\n")
	if got := h.Visualize("table", SoftHyphen); got != "ta&shy;ble" {
		t.Errorf("expected exception with soft hyphen, got %q", got)
	}
}

func TestVisualize_NilIsNoop(t *testing.T) {
	var h *Hyphenator
	if got := h.Visualize("hyphenation", "-"); got != "hyphenation" {
		t.Errorf("expected nil hyphenator to return input, got %q", got)
	}
}

func TestPatternValues(t *testing.T) {
	tr := newTrie()
	tr.addPattern(".hy2p")
	strs, vals := tr.prefixes(".hyphen")
	if len(strs) != 1 || strs[0] != ".hyp" {
		t.Fatalf("expected prefix .hyp, got %v", strs)
	}
	want := []int{0, 0, 2, 0}
	for i := range want {
		if vals[0][i] != want[i] {
			t.Fatalf("expected values %v, got %v", want, vals[0])
		}
	}
}

func TestNew_FromDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hyph-en-us.pat.txt"), []byte("a1b\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := New(dir, language.MustParse("en-US"), zap.NewNop())
	if h == nil {
		t.Fatal("expected dictionary to load")
	}
	if h.Language() != "en-us" {
		t.Errorf("expected language en-us, got %q", h.Language())
	}

	// "en" maps to en-us.
	if New(dir, language.English, zap.NewNop()) == nil {
		t.Error("expected mapped language to load")
	}
}

func TestNew_Gzipped(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte("a1b\n"))
	zw.Close()
	if err := os.WriteFile(filepath.Join(dir, "hyph-fr.pat.txt.gz"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	h := New(dir, language.MustParse("fr-CA"), zap.NewNop())
	if h == nil {
		t.Fatal("expected base language dictionary to load")
	}
	if got := h.Visualize("xxabxx", "-"); got != "xxa-bxx" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestNew_MissingDictionary(t *testing.T) {
	if New(t.TempDir(), language.Japanese, zap.NewNop()) != nil {
		t.Error("expected nil without dictionary")
	}
	if New("", language.English, nil) != nil {
		t.Error("expected nil without directory")
	}
}

func TestCache(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hyph-en-us.pat.txt"), []byte("a1b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewCache(dir, nil)
	a := c.For("en_us")
	b := c.For("en-US")
	if a == nil || a != b {
		t.Error("expected one shared hyphenator for equivalent tags")
	}
	if c.For("not a language!") != nil {
		t.Error("expected nil for invalid language")
	}
	var nilCache *Cache
	if nilCache.For("en") != nil {
		t.Error("expected nil cache to disable hyphenation")
	}
}
