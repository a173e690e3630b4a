package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/recursa-hq/recursa/internal/apperr"
)

func testFS(t *testing.T) (*FS, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return fs, fs.Root()
}

func TestNewFS_MissingRoot(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestNewFS_RootIsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(file); err == nil {
		t.Error("expected error for non-directory root")
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	fs, _ := testFS(t)

	cases := []struct {
		name    string
		path    string
		content string
	}{
		{"simple", "a.md", "- hello\n"},
		{"empty", "empty.md", ""},
		{"unicode", "unicode.md", "- héllo 世界 🦉\n"},
		{"nested", "a/b/c/deep.md", "- deep\n"},
		{"no newline", "raw.txt", "no trailing newline"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := fs.Write(tc.path, []byte(tc.content)); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := fs.Read(tc.path)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if string(got) != tc.content {
				t.Errorf("content = %q, want %q", got, tc.content)
			}
		})
	}
}

func TestWrite_Overwrite(t *testing.T) {
	fs, _ := testFS(t)
	if err := fs.Write("x.md", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Write("x.md", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	got, _ := fs.Read("x.md")
	if string(got) != "v2" {
		t.Errorf("content = %q, want v2", got)
	}
}

func TestWrite_NoTempLeftover(t *testing.T) {
	fs, root := testFS(t)
	if err := fs.Write("x.md", []byte("data")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".recursa-tmp-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestResolve_RootAliases(t *testing.T) {
	fs, root := testFS(t)
	for _, rel := range []string{"", "."} {
		abs, err := fs.Resolve(rel)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", rel, err)
		}
		if abs != root {
			t.Errorf("Resolve(%q) = %q, want root %q", rel, abs, root)
		}
	}
}

func TestResolve_Inside(t *testing.T) {
	fs, root := testFS(t)
	abs, err := fs.Resolve("notes/x.md")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(root, "notes", "x.md")
	if abs != want {
		t.Errorf("Resolve = %q, want %q", abs, want)
	}
}

func TestResolve_Traversal(t *testing.T) {
	fs, _ := testFS(t)

	cases := []struct {
		name string
		rel  string
	}{
		{"parent", "../x.md"},
		{"double parent", "a/../../x.md"},
		{"bare dotdot", ".."},
		{"absolute", "/etc/passwd"},
		{"unc", `\\server\share\x`},
		{"nul byte", "bad\x00name.md"},
		{"newline", "bad\nname.md"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fs.Resolve(tc.rel)
			if !errors.Is(err, apperr.ErrTraversal) {
				t.Errorf("Resolve(%q) = %v, want ErrTraversal", tc.rel, err)
			}
		})
	}
}

func TestResolve_DotDotWithinRoot(t *testing.T) {
	fs, root := testFS(t)
	// Cleans to a path still inside the root, so it is allowed.
	abs, err := fs.Resolve("a/../b.md")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if abs != filepath.Join(root, "b.md") {
		t.Errorf("Resolve = %q", abs)
	}
}

func TestResolve_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	fs, root := testFS(t)
	outside := t.TempDir()

	if err := os.Symlink(outside, filepath.Join(root, "leak")); err != nil {
		t.Fatal(err)
	}

	// Both the link itself and paths through it must be rejected.
	for _, rel := range []string{"leak", "leak/file.md"} {
		if _, err := fs.Resolve(rel); !errors.Is(err, apperr.ErrTraversal) {
			t.Errorf("Resolve(%q) = %v, want ErrTraversal", rel, err)
		}
	}
}

func TestResolve_SymlinkInside(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	fs, root := testFS(t)
	if err := os.MkdirAll(filepath.Join(root, "real"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")); err != nil {
		t.Fatal(err)
	}

	abs, err := fs.Resolve("alias/x.md")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if abs != filepath.Join(root, "real", "x.md") {
		t.Errorf("Resolve = %q, want link target inside root", abs)
	}
}

func TestRead_Missing(t *testing.T) {
	fs, _ := testFS(t)
	_, err := fs.Read("missing.md")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read missing = %v, want ErrNotExist", err)
	}
}

func TestDelete(t *testing.T) {
	fs, _ := testFS(t)
	_ = fs.Write("gone.md", []byte("x"))
	if err := fs.Delete("gone.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := fs.Exists("gone.md"); ok {
		t.Error("file still exists after Delete")
	}
	if err := fs.Delete("gone.md"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("second Delete = %v, want ErrNotExist", err)
	}
}

func TestMove(t *testing.T) {
	fs, _ := testFS(t)
	_ = fs.Write("old.md", []byte("payload"))
	if err := fs.Move("old.md", "sub/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if ok, _ := fs.Exists("old.md"); ok {
		t.Error("old path still exists")
	}
	got, err := fs.Read("sub/new.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("content = %q", got)
	}
}

func TestMove_TraversalTarget(t *testing.T) {
	fs, _ := testFS(t)
	_ = fs.Write("old.md", []byte("x"))
	if err := fs.Move("old.md", "../escape.md"); !errors.Is(err, apperr.ErrTraversal) {
		t.Errorf("Move = %v, want ErrTraversal", err)
	}
}

func TestExistsAndCreateDir(t *testing.T) {
	fs, _ := testFS(t)
	if ok, err := fs.Exists("nope"); err != nil || ok {
		t.Errorf("Exists(nope) = %v, %v", ok, err)
	}
	if err := fs.CreateDir("a/b"); err != nil {
		t.Fatalf("CreateDir: %v", err)
	}
	if ok, err := fs.Exists("a/b"); err != nil || !ok {
		t.Errorf("Exists(a/b) = %v, %v", ok, err)
	}
}
