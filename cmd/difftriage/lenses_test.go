package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestLensesCmdListsBuiltins(t *testing.T) {
	cmd := newLensesCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"Lenses:", "correctness", "security", "Profiles:", "standard"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
