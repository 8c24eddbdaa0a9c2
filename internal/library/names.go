package library

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sortingPrefixes lists the leading articles ignored when sorting titles.
var sortingPrefixes = []string{"the", "a", "an"}

var nameSuffixes = map[string]struct{}{
	"jr": {}, "jr.": {}, "sr": {}, "sr.": {}, "ii": {}, "iii": {}, "iv": {}, "phd": {}, "md": {},
}

// NameToLastFirst converts "First Middle Last" into "Last, First Middle".
// Names that already contain a comma or consist of a single word are
// returned trimmed but otherwise unchanged. Generational suffixes stay with
// the last name ("Martin Luther King Jr." -> "King Jr., Martin Luther").
func NameToLastFirst(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" || strings.Contains(name, ",") {
		return name
	}
	parts := strings.Split(name, " ")
	if len(parts) < 2 {
		return name
	}
	last := len(parts) - 1
	if _, ok := nameSuffixes[strings.ToLower(parts[last])]; ok && last >= 2 {
		last--
	}
	surname := strings.Join(parts[last:], " ")
	given := strings.Join(parts[:last], " ")
	return surname + ", " + given
}

// CheckNamesAreEqual compares two person names ignoring case, surrounding
// whitespace, repeated spaces and periods after initials, so "J.R.R.
// Tolkien" equals "j r r tolkien".
func CheckNamesAreEqual(a, b string) bool {
	return normalizeName(a) == normalizeName(b)
}

func normalizeName(name string) string {
	folded := cases.Fold().String(name)
	folded = strings.ReplaceAll(folded, ".", " ")
	return strings.Join(strings.Fields(folded), " ")
}

// TitleIgnorePrefix strips a leading article: "The Hobbit" -> "Hobbit".
func TitleIgnorePrefix(title string) string {
	sortTitle, _ := titleParts(title)
	return sortTitle
}

// TitlePrefixAtEnd moves a leading article to the end: "The Hobbit" ->
// "Hobbit, The".
func TitlePrefixAtEnd(title string) string {
	sortTitle, prefix := titleParts(title)
	if prefix == "" {
		return title
	}
	return sortTitle + ", " + prefix
}

func titleParts(title string) (string, string) {
	if title == "" {
		return "", ""
	}
	lower := strings.ToLower(title)
	for _, prefix := range sortingPrefixes {
		if strings.HasPrefix(lower, prefix+" ") {
			return title[len(prefix)+1:], cases.Title(language.English).String(prefix)
		}
	}
	return title, ""
}

// SortNatural orders items by key using numeric-aware, case-insensitive
// collation so that sequence "2" sorts before "10" and "1.5" between "1"
// and "2".
func SortNatural[T any](items []T, key func(T) string) {
	collator := collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		return collator.CompareString(key(items[i]), key(items[j])) < 0
	})
}
