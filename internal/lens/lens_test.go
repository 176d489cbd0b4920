package lens

import (
	"strings"
	"testing"
)

func TestLoadAllBuiltins(t *testing.T) {
	names, err := List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) == 0 {
		t.Fatal("expected built-in lenses")
	}
	for _, name := range names {
		l, err := Load(name)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if l.ID != name {
			t.Errorf("lens %s: id = %q, want %q", name, l.ID, name)
		}
		if l.SystemPrompt == "" {
			t.Errorf("lens %s: empty system prompt", name)
		}
		if l.Rubric.Blocker == "" || l.Rubric.Nit == "" {
			t.Errorf("lens %s: incomplete rubric", name)
		}
	}
}

func TestLoadUnknown(t *testing.T) {
	if _, err := Load("nonexistent"); err == nil {
		t.Error("expected error for unknown lens")
	}
}

func TestLoadAllRejectsDuplicates(t *testing.T) {
	if _, err := LoadAll([]string{"correctness", "correctness"}); err == nil {
		t.Error("expected error for duplicate lens IDs")
	}
}

func TestProfilesResolve(t *testing.T) {
	names, err := ListProfiles()
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		p, err := LoadProfile(name)
		if err != nil {
			t.Fatalf("load profile %s: %v", name, err)
		}
		if len(p.Lenses) == 0 {
			t.Errorf("profile %s: no lenses", name)
		}
		if _, err := LoadAll(p.Lenses); err != nil {
			t.Errorf("profile %s references unknown lens: %v", name, err)
		}
	}
}

func TestDefaultLensExists(t *testing.T) {
	if _, err := Load(DefaultLens); err != nil {
		t.Fatalf("default lens must exist: %v", err)
	}
}

func TestFormatRubric(t *testing.T) {
	l, err := Load("correctness")
	if err != nil {
		t.Fatal(err)
	}
	out := FormatRubric(l)
	for _, level := range []string{"blocker", "high", "medium", "low", "nit"} {
		if !strings.Contains(out, "- "+level+":") {
			t.Errorf("rubric output missing %s level", level)
		}
	}
}
