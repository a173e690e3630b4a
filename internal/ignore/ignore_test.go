package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func compile(t *testing.T, rules string) *Matcher {
	t.Helper()
	m, err := Compile(rules)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return m
}

func TestCompile_BadPattern(t *testing.T) {
	if _, err := Compile("[unclosed"); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestIgnored_LastMatchWins(t *testing.T) {
	m := compile(t, "*.log\n!keep.log\n")

	cases := []struct {
		rel  string
		want bool
	}{
		{"debug.log", true},
		{"keep.log", false},
		{"sub/deep.log", true},  // basename rule applies at any depth
		{"sub/keep.log", false}, // negation applies at any depth too
		{"notes.md", false},
	}
	for _, tc := range cases {
		if got := m.Ignored(tc.rel, false); got != tc.want {
			t.Errorf("Ignored(%q) = %v, want %v", tc.rel, got, tc.want)
		}
	}
}

func TestIgnored_NegationOrderMatters(t *testing.T) {
	// Reversed order: the broad rule comes last and wins again.
	m := compile(t, "!keep.log\n*.log\n")
	if !m.Ignored("keep.log", false) {
		t.Error("later *.log rule should override earlier negation")
	}
}

func TestIgnored_DirOnly(t *testing.T) {
	m := compile(t, "build/\n")
	if !m.Ignored("build", true) {
		t.Error("directory should be ignored")
	}
	if m.Ignored("build", false) {
		t.Error("plain file named build should not be ignored")
	}
}

func TestIgnored_Anchored(t *testing.T) {
	m := compile(t, "docs/*.md\n")
	if !m.Ignored("docs/a.md", false) {
		t.Error("docs/a.md should match anchored pattern")
	}
	if m.Ignored("sub/docs/a.md", false) {
		t.Error("anchored pattern must not match below the root")
	}
	if m.Ignored("docs/sub/a.md", false) {
		t.Error("* must not cross a path separator")
	}
}

func TestIgnored_LeadingSlashAnchorsBasename(t *testing.T) {
	m := compile(t, "/secret.md\n")
	if !m.Ignored("secret.md", false) {
		t.Error("top-level secret.md should be ignored")
	}
	if m.Ignored("sub/secret.md", false) {
		t.Error("leading slash anchors the rule to the root")
	}
}

func TestIgnored_DoubleStar(t *testing.T) {
	m := compile(t, "**/*.tmp\n")
	if !m.Ignored("a/b/c.tmp", false) {
		t.Error("** should cross path separators")
	}
}

func TestIgnored_CommentsAndBlanks(t *testing.T) {
	m := compile(t, "# header comment\n\n  \n*.bak\n")
	if !m.Ignored("x.bak", false) {
		t.Error("*.bak should still apply")
	}
	if m.Ignored("# header comment", false) {
		t.Error("comment line must not become a rule")
	}
}

func TestIgnored_RootNeverIgnored(t *testing.T) {
	m := compile(t, "*\n")
	for _, rel := range []string{"", ".", "/"} {
		if m.Ignored(rel, true) {
			t.Errorf("root alias %q must never be ignored", rel)
		}
	}
	if !m.Ignored("anything.md", false) {
		t.Error("* should ignore ordinary files")
	}
}

func TestIgnored_NilMatcher(t *testing.T) {
	var m *Matcher
	if m.Ignored("x.md", false) {
		t.Error("nil matcher must ignore nothing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	root := t.TempDir()
	m, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Ignored(".git", true) {
		t.Error(".git directory should be ignored by default")
	}
	if !m.Ignored(FileName, false) {
		t.Error("rule file itself should be ignored by default")
	}
	if m.Ignored("page.md", false) {
		t.Error("ordinary page should not be ignored")
	}
}

func TestLoad_RuleFile(t *testing.T) {
	root := t.TempDir()
	rules := "drafts/\n*.log\n!important.log\n"
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Ignored("drafts", true) {
		t.Error("drafts/ should be ignored")
	}
	if !m.Ignored("a.log", false) {
		t.Error("a.log should be ignored")
	}
	if m.Ignored("important.log", false) {
		t.Error("important.log should be un-ignored")
	}
	// Defaults still apply alongside user rules.
	if !m.Ignored(".git", true) {
		t.Error(".git should remain ignored")
	}
}
