package chapter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wilkie/gutenberg/internal/hyphen"
)

func TestNew_Defaults(t *testing.T) {
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Title != "Untitled" {
		t.Errorf("expected default title, got %q", c.Title)
	}
	if c.Slug != "chapter" {
		t.Errorf("expected default slug, got %q", c.Slug)
	}
	if c.Language != "en_us" {
		t.Errorf("expected default language, got %q", c.Language)
	}
	if len(c.Authors) != 0 || c.Authors == nil {
		t.Errorf("expected empty authors, got %#v", c.Authors)
	}
	if c.Outline() == nil || c.References() == nil {
		t.Error("expected outline and references")
	}
}

func TestNew_Options(t *testing.T) {
	c, err := New(Options{Title: "Book Chapter", Authors: []string{"wilkie"}, Slug: "my_slug"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Title != "Book Chapter" || c.Authors[0] != "wilkie" || c.Slug != "my_slug" {
		t.Errorf("unexpected chapter %+v", c)
	}
}

func TestNew_FrontMatter(t *testing.T) {
	content := `---
title: From Meta
authors: [finn, jake]
language: fr
index: 4
scripts: [extra.js]
summary: Short.
---
# Header Title

![x](pic.png "Pic")
`
	c, err := New(Options{Content: content, Index: "1"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Title != "From Meta" {
		t.Errorf("expected front matter title, got %q", c.Title)
	}
	if len(c.Authors) != 2 || c.Authors[1] != "jake" {
		t.Errorf("unexpected authors %v", c.Authors)
	}
	if c.Language != "fr" {
		t.Errorf("expected front matter language, got %q", c.Language)
	}
	if c.Index != "4" {
		t.Errorf("expected front matter index to override, got %q", c.Index)
	}
	if c.Summary != "Short." || len(c.Scripts) != 1 {
		t.Errorf("unexpected summary/scripts %q %v", c.Summary, c.Scripts)
	}
	if strings.Contains(c.Content, "title:") {
		t.Errorf("expected front matter stripped, got %q", c.Content)
	}
	if !strings.Contains(c.HTML, "Figure 4-1: Pic") {
		t.Errorf("expected figure numbered with chapter index\n%s", c.HTML)
	}
}

func TestNew_OptionsWinOverFrontMatter(t *testing.T) {
	content := "---\ntitle: Meta\nlanguage: de\n---\nbody\n"
	c, err := New(Options{Content: content, Title: "Given", Language: "en_gb"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Title != "Given" || c.Language != "en_gb" {
		t.Errorf("expected options to win, got %q %q", c.Title, c.Language)
	}
}

func TestNew_TitleFromHeader(t *testing.T) {
	c, err := New(Options{Content: "# The Beginning\n\nIt was a dark night. Then it rained.\n"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Title != "The Beginning" {
		t.Errorf("expected title from header, got %q", c.Title)
	}
	if c.Summary != "It was a dark night." {
		t.Errorf("expected first sentence summary, got %q", c.Summary)
	}
	if got := c.Outline().Text(c.Outline().Root()); got != "The Beginning" {
		t.Errorf("expected outline root relabelled, got %q", got)
	}
}

func TestNew_Formats(t *testing.T) {
	c, err := New(Options{Content: "<p>raw</p>", Format: HTML})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.HTML != "<p>raw</p>" {
		t.Errorf("expected html passthrough, got %q", c.HTML)
	}

	c, err = New(Options{Content: "a < b", Format: Text})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.HTML != "<pre>a &lt; b</pre>" {
		t.Errorf("expected escaped pre, got %q", c.HTML)
	}

	if _, err := New(Options{Format: "rtf"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNew_BadFrontMatter(t *testing.T) {
	if _, err := New(Options{Content: "---\ntitle: [unclosed\n---\nbody"}); err == nil {
		t.Error("expected front matter parse error")
	}
}

func TestNew_Hyphenation(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hyph-en-us.pat.txt"), []byte("a1b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(Options{Content: "xxabxx\n", Hyphenators: hyphen.NewCache(dir, nil)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !strings.Contains(c.HTML, "<p>xxa&shy;bxx</p>") {
		t.Errorf("expected soft hyphen, got %q", c.HTML)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "02 Getting Started.md")
	if err := os.WriteFile(path, []byte("## Only a section\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Slug != "02-getting-started" {
		t.Errorf("expected slug from file name, got %q", c.Slug)
	}
	if c.Title != "Untitled" {
		t.Errorf("expected default title without level-1 header, got %q", c.Title)
	}
	if !strings.Contains(c.HTML, "<h2 id='only-a-section'>") {
		t.Errorf("unexpected html %q", c.HTML)
	}

	if _, err := Load(filepath.Join(dir, "missing.md"), Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFirstParagraph(t *testing.T) {
	src := "# Title\n\n```\ncode\n\nmore\n```\n\n!note aside\n\nFirst real\nparagraph.\n\nSecond."
	if got := firstParagraph(src); got != "First real paragraph." {
		t.Errorf("unexpected paragraph %q", got)
	}
}
