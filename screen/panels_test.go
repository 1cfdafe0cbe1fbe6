package screen

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestFitKeepsEscapeSequencesWhole(t *testing.T) {
	colored := "\x1b[92m+ 42ms\x1b[0m reachable"

	got := fit(colored, 4)
	if width := ansi.StringWidth(got); width != 4 {
		t.Fatalf("visible width %d, wanted 4 (%q)", width, got)
	}
	if ansi.Strip(got) != "+ 42" {
		t.Fatalf("visible text %q, wanted %q", ansi.Strip(got), "+ 42")
	}
	if !strings.HasPrefix(got, "\x1b[92m") {
		t.Fatalf("color sequence lost: %q", got)
	}

	// short lines pass through untouched, escapes cost no columns
	if fit(colored, 20) != colored {
		t.Fatalf("line within width was altered: %q", fit(colored, 20))
	}
	if fit(colored, 0) != "" {
		t.Fatal("zero width must yield an empty line")
	}
}
