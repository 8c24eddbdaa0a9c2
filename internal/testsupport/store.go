package testsupport

import (
	"context"
	"testing"

	"audioshelf/internal/config"
	"audioshelf/internal/library"
	"audioshelf/internal/logging"
	"audioshelf/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewLibrary creates a book library with one folder at folderPath.
func NewLibrary(t testing.TB, st *store.Store, name, folderPath string) *library.Library {
	t.Helper()

	lib := library.NewLibrary(name, library.MediaTypeBook)
	lib.Folders = append(lib.Folders, *library.NewFolder("", folderPath, lib.ID))
	if err := st.CreateLibrary(context.Background(), lib); err != nil {
		t.Fatalf("store.CreateLibrary: %v", err)
	}
	return lib
}

// NewAuthor creates an author in the library.
func NewAuthor(t testing.TB, st *store.Store, libraryID, name string) *library.Author {
	t.Helper()

	author := library.NewAuthor(logging.NewNop(), library.AuthorData{Name: name}, libraryID)
	if err := st.CreateAuthor(context.Background(), author); err != nil {
		t.Fatalf("store.CreateAuthor: %v", err)
	}
	return author
}

// NewSeries creates a series in the library.
func NewSeries(t testing.TB, st *store.Store, libraryID, name string) *library.Series {
	t.Helper()

	series := library.NewSeries(name, "", libraryID)
	if err := st.CreateSeries(context.Background(), series); err != nil {
		t.Fatalf("store.CreateSeries: %v", err)
	}
	return series
}

// BookOption customizes a book before NewBook persists it.
type BookOption func(*library.Book)

// ByAuthors credits the given authors in order.
func ByAuthors(authors ...*library.Author) BookOption {
	return func(b *library.Book) {
		for _, a := range authors {
			b.Authors = append(b.Authors, a.JSONMinimal())
		}
	}
}

// InSeries places the book in a series at sequence.
func InSeries(series *library.Series, sequence string) BookOption {
	return func(b *library.Book) {
		b.Series = append(b.Series, series.JSONMinimal(sequence))
	}
}

// WithTracks attaches audio files and sets the book duration from them.
func WithTracks(files ...library.AudioFile) BookOption {
	return func(b *library.Book) {
		b.AudioFiles = append(b.AudioFiles, files...)
		b.Duration = 0
		for _, f := range b.AudioFiles {
			b.Duration += f.Duration
		}
	}
}

// NewBook creates a book in the library's first folder.
func NewBook(t testing.TB, st *store.Store, lib *library.Library, title string, opts ...BookOption) *library.Book {
	t.Helper()

	folderID := ""
	path := title
	if len(lib.Folders) > 0 {
		folderID = lib.Folders[0].ID
		path = lib.Folders[0].FullPath + "/" + title
	}
	book := library.NewBook(lib.ID, folderID, path, title)
	for _, opt := range opts {
		opt(book)
	}
	if err := st.CreateBook(context.Background(), book); err != nil {
		t.Fatalf("store.CreateBook: %v", err)
	}
	return book
}
