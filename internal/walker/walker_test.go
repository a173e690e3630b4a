package walker

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/recursa-hq/recursa/internal/ignore"
)

// makeTree materializes files (given as slash-relative paths) under a
// fresh temp root.
func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		abs := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte("- x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func collect(t *testing.T, root string, matcher *ignore.Matcher) []string {
	t.Helper()
	var out []string
	for rel, err := range Walk(root, matcher) {
		if err != nil {
			t.Fatalf("walk error: %v", err)
		}
		out = append(out, rel)
	}
	return out
}

func TestWalk_YieldsFilesDepthFirst(t *testing.T) {
	root := makeTree(t, "a.md", "z.md", "b/c.md", "b/d/e.md", "b/f.md")

	got := collect(t, root, nil)
	want := []string{"a.md", "z.md", "b/c.md", "b/f.md", "b/d/e.md"}
	if !slices.Equal(got, want) {
		t.Errorf("walk = %v, want %v", got, want)
	}
}

func TestWalk_NeverYieldsDirectories(t *testing.T) {
	root := makeTree(t, "b/c.md")
	for _, rel := range collect(t, root, nil) {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatal(err)
		}
		if info.IsDir() {
			t.Errorf("yielded directory %q", rel)
		}
	}
}

func TestWalk_PrunesIgnoredDirs(t *testing.T) {
	root := makeTree(t, "a.md", "skip/inner.md", "skip/deep/x.md", "keep/b.md")
	matcher, err := ignore.Compile("skip/\n")
	if err != nil {
		t.Fatal(err)
	}

	got := collect(t, root, matcher)
	want := []string{"a.md", "keep/b.md"}
	if !slices.Equal(got, want) {
		t.Errorf("walk = %v, want %v", got, want)
	}
}

func TestWalk_SkipsIgnoredFiles(t *testing.T) {
	root := makeTree(t, "a.md", "noise.log", "sub/noise.log")
	matcher, err := ignore.Compile("*.log\n")
	if err != nil {
		t.Fatal(err)
	}

	got := collect(t, root, matcher)
	if slices.Contains(got, "noise.log") || slices.Contains(got, "sub/noise.log") {
		t.Errorf("ignored files yielded: %v", got)
	}
}

func TestWalk_Restartable(t *testing.T) {
	root := makeTree(t, "a.md", "b/c.md")
	seq := Walk(root, nil)

	first := []string{}
	for rel, err := range seq {
		if err != nil {
			t.Fatal(err)
		}
		first = append(first, rel)
	}
	second := []string{}
	for rel, err := range seq {
		if err != nil {
			t.Fatal(err)
		}
		second = append(second, rel)
	}
	if !slices.Equal(first, second) {
		t.Errorf("restarted walk differs: %v vs %v", first, second)
	}
}

func TestWalk_EarlyBreak(t *testing.T) {
	root := makeTree(t, "a.md", "b.md", "c.md")
	count := 0
	for _, err := range Walk(root, nil) {
		if err != nil {
			t.Fatal(err)
		}
		count++
		if count == 1 {
			break
		}
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestWalk_MissingRootReportsError(t *testing.T) {
	var errs int
	for rel, err := range Walk(filepath.Join(t.TempDir(), "gone"), nil) {
		if err == nil {
			t.Errorf("unexpected file %q from missing root", rel)
			continue
		}
		errs++
	}
	if errs != 1 {
		t.Errorf("errors = %d, want 1", errs)
	}
}

func TestWalk_EmptyRoot(t *testing.T) {
	got := collect(t, t.TempDir(), nil)
	if len(got) != 0 {
		t.Errorf("walk of empty root = %v", got)
	}
}
