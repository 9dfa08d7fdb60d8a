package outline

import "testing"

func TestNew_DefaultsToUntitled(t *testing.T) {
	tree := New("")
	if got := tree.Text(tree.Root()); got != "Untitled" {
		t.Fatalf("expected root text %q, got %q", "Untitled", got)
	}
	if _, ok := tree.Title(); ok {
		t.Error("expected no title before a level-1 header")
	}
	if tree.Level(tree.Root()) != 1 {
		t.Errorf("expected root level 1, got %d", tree.Level(tree.Root()))
	}
}

func TestRecord_LevelOneRelabelsRoot(t *testing.T) {
	tree := New("chapter name")
	id := tree.Record(" Getting Started ", 1)
	if id != tree.Root() {
		t.Fatalf("expected level-1 header to reuse root, got id %d", id)
	}
	if tree.Len() != 1 {
		t.Errorf("expected no new node, tree has %d", tree.Len())
	}
	title, ok := tree.Title()
	if !ok || title != "Getting Started" {
		t.Errorf("expected trimmed title %q, got %q (ok=%v)", "Getting Started", title, ok)
	}

	tree.Record("Second", 1)
	title, _ = tree.Title()
	if title != "Getting Started" {
		t.Errorf("expected title to stay with the first header, got %q", title)
	}
	if tree.Text(tree.Root()) != "Second" {
		t.Errorf("expected root relabeled to %q, got %q", "Second", tree.Text(tree.Root()))
	}
}

func TestRecord_Shape(t *testing.T) {
	tree := New("")
	tree.Record("Chapter", 1)
	a := tree.Record("A", 2)
	a1 := tree.Record("A.1", 3)
	a2 := tree.Record("A.2", 3)
	b := tree.Record("B", 2)
	b1 := tree.Record("B.1", 3)

	root := tree.Node(tree.Root())
	if root.Child != a {
		t.Fatalf("expected root child %d, got %d", a, root.Child)
	}
	if tree.Node(a).Sibling != b {
		t.Errorf("expected A sibling B, got %d", tree.Node(a).Sibling)
	}
	if tree.Node(a).Child != a1 || tree.Node(a1).Sibling != a2 {
		t.Errorf("expected A children A.1, A.2")
	}
	if tree.Node(a2).Parent != a {
		t.Errorf("expected A.2 parent A, got %d", tree.Node(a2).Parent)
	}
	if tree.Node(b).Parent != tree.Root() {
		t.Errorf("expected B parent root, got %d", tree.Node(b).Parent)
	}
	if tree.Node(b).Child != b1 {
		t.Errorf("expected B child B.1, got %d", tree.Node(b).Child)
	}

	levels := map[NodeID]int{tree.Root(): 1, a: 2, a1: 3, a2: 3, b: 2, b1: 3}
	for id, want := range levels {
		if got := tree.Level(id); got != want {
			t.Errorf("node %q: expected level %d, got %d", tree.Text(id), want, got)
		}
	}

	children := tree.Children(tree.Root())
	if len(children) != 2 || children[0] != a || children[1] != b {
		t.Errorf("expected root children [A B], got %v", children)
	}
}

func TestRecord_SingleLevelUnwind(t *testing.T) {
	tree := New("")
	tree.Record("Chapter", 1)
	tree.Record("A", 2)
	tree.Record("A.1", 3)
	deep := tree.Record("A.1.a", 4)
	jump := tree.Record("B", 2)

	// Unwinding from level 4 only climbs to the level-3 parent's parent.
	if tree.Level(jump) != 3 {
		t.Errorf("expected unwound node at level 3, got %d", tree.Level(jump))
	}
	parent := tree.Node(deep).Parent
	if tree.Node(parent).Sibling != jump {
		t.Errorf("expected B to become sibling of A.1")
	}
}

func TestRecord_SkippedLevelNestsByDepth(t *testing.T) {
	tree := New("")
	tree.Record("Chapter", 1)
	first := tree.Record("Deep", 3)
	second := tree.Record("Deeper", 3)

	if tree.Level(first) != 2 {
		t.Errorf("expected first node at level 2, got %d", tree.Level(first))
	}
	if tree.Node(second).Parent != first {
		t.Errorf("expected second h3 to nest under the first")
	}
}

func TestSlug(t *testing.T) {
	tree := New("")
	id := tree.Record("Hello, <em>World</em>!", 2)
	if got := tree.Slug(id); got != "hello-world" {
		t.Errorf("expected slug %q, got %q", "hello-world", got)
	}
	if got := Slugify("References"); got != "references" {
		t.Errorf("expected slug %q, got %q", "references", got)
	}
}

func TestPlainText(t *testing.T) {
	if got := PlainText("a <b>bold</b> &amp; plain"); got != "a bold & plain" {
		t.Errorf("unexpected plain text %q", got)
	}
}
