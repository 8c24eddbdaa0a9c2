package library_test

import (
	"testing"

	"audioshelf/internal/library"
)

func TestNameToLastFirst(t *testing.T) {
	cases := map[string]string{
		"Terry Goodkind":         "Goodkind, Terry",
		"  Ursula K.  Le Guin ":  "Guin, Ursula K. Le",
		"Homer":                  "Homer",
		"Tolkien, J.R.R.":        "Tolkien, J.R.R.",
		"Martin Luther King Jr.": "King Jr., Martin Luther",
		"":                       "",
	}
	for input, want := range cases {
		if got := library.NameToLastFirst(input); got != want {
			t.Fatalf("NameToLastFirst(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCheckNamesAreEqual(t *testing.T) {
	if !library.CheckNamesAreEqual("J.R.R. Tolkien", " j r r  tolkien") {
		t.Fatal("expected initials with periods to match spaced initials")
	}
	if !library.CheckNamesAreEqual("BRANDON SANDERSON", "brandon sanderson") {
		t.Fatal("expected case-insensitive match")
	}
	if library.CheckNamesAreEqual("Brandon Sanderson", "Brandon Mull") {
		t.Fatal("expected different names to differ")
	}
}

func TestTitlePrefixHelpers(t *testing.T) {
	if got := library.TitleIgnorePrefix("The Way of Kings"); got != "Way of Kings" {
		t.Fatalf("unexpected ignore-prefix title %q", got)
	}
	if got := library.TitlePrefixAtEnd("a Memory of Light"); got != "Memory of Light, A" {
		t.Fatalf("unexpected prefix-at-end title %q", got)
	}
	if got := library.TitlePrefixAtEnd("Theory of Everything"); got != "Theory of Everything" {
		t.Fatalf("expected title without article untouched, got %q", got)
	}
	if got := library.TitleIgnorePrefix(""); got != "" {
		t.Fatalf("expected empty title, got %q", got)
	}
}

func TestSortNaturalOrdersSequences(t *testing.T) {
	seqs := []string{"10", "2", "1.5", "1", "Book 3"}
	library.SortNatural(seqs, func(s string) string { return s })
	want := []string{"1", "1.5", "2", "10", "Book 3"}
	for i := range want {
		if seqs[i] != want[i] {
			t.Fatalf("unexpected order %v, want %v", seqs, want)
		}
	}
}
