package store_test

import (
	"context"
	"errors"
	"testing"

	"audioshelf/internal/library"
	"audioshelf/internal/store"
	"audioshelf/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	version, err := st.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != "0001_init" {
		t.Fatalf("unexpected schema version %q", version)
	}
	if st.Path() != cfg.DatabasePath() {
		t.Fatalf("unexpected path %q", st.Path())
	}

	// Reopening must not reapply migrations.
	st.Close()
	reopened, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestLibraryAndFolders(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	lib := testsupport.NewLibrary(t, st, "Audiobooks", "/media/books")

	got, err := st.GetLibrary(ctx, lib.ID)
	if err != nil {
		t.Fatalf("GetLibrary: %v", err)
	}
	if got.Name != "Audiobooks" || len(got.Folders) != 1 || got.Folders[0].FullPath != "/media/books" {
		t.Fatalf("unexpected library: %+v", got)
	}
	if got.Settings.CoverAspectRatio != library.CoverSquare {
		t.Fatalf("expected default settings, got %+v", got.Settings)
	}

	extra := library.NewFolder("", "/media/more", lib.ID)
	if err := st.AddFolder(ctx, extra); err != nil {
		t.Fatalf("AddFolder: %v", err)
	}
	dup := library.NewFolder("", "/media/more", lib.ID)
	if err := st.AddFolder(ctx, dup); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict for duplicate folder, got %v", err)
	}
	folders, err := st.ListFolders(ctx, lib.ID)
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	if len(folders) != 2 || folders[0].FullPath != "/media/books" || folders[1].FullPath != "/media/more" {
		t.Fatalf("unexpected folders: %+v", folders)
	}

	if err := st.RemoveFolder(ctx, extra.ID); err != nil {
		t.Fatalf("RemoveFolder: %v", err)
	}
	if err := st.RemoveFolder(ctx, extra.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}

	settings := got.Settings
	settings.HideSingleBookSeries = true
	if err := st.UpdateLibrarySettings(ctx, lib.ID, settings); err != nil {
		t.Fatalf("UpdateLibrarySettings: %v", err)
	}
	libs, err := st.ListLibraries(ctx)
	if err != nil {
		t.Fatalf("ListLibraries: %v", err)
	}
	if len(libs) != 1 || !libs[0].Settings.HideSingleBookSeries {
		t.Fatalf("unexpected libraries: %+v", libs)
	}
}

func TestAuthorLifecycle(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	lib := testsupport.NewLibrary(t, st, "Audiobooks", "/media/books")
	author := testsupport.NewAuthor(t, st, lib.ID, "Terry Pratchett")
	testsupport.NewBook(t, st, lib, "Mort", testsupport.ByAuthors(author))
	testsupport.NewBook(t, st, lib, "Guards! Guards!", testsupport.ByAuthors(author))

	authors, err := st.ListAuthors(ctx, lib.ID)
	if err != nil {
		t.Fatalf("ListAuthors: %v", err)
	}
	if len(authors) != 1 || authors[0].NumBooks != 2 {
		t.Fatalf("unexpected authors: %+v", authors)
	}

	desc := "Discworld"
	author.Description = &desc
	author.UpdatedAt++
	if err := st.UpdateAuthor(ctx, author); err != nil {
		t.Fatalf("UpdateAuthor: %v", err)
	}
	got, err := st.GetAuthor(ctx, author.ID)
	if err != nil {
		t.Fatalf("GetAuthor: %v", err)
	}
	if got.Description == nil || *got.Description != "Discworld" || got.ASIN != nil {
		t.Fatalf("unexpected author: %+v", got)
	}

	if _, err := st.AuthorByName(ctx, lib.ID, "Terry Pratchett", author.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no other author with the name, got %v", err)
	}
	found, err := st.AuthorByName(ctx, lib.ID, "Terry Pratchett", "")
	if err != nil || found.ID != author.ID {
		t.Fatalf("AuthorByName: %+v %v", found, err)
	}

	if err := st.DeleteAuthor(ctx, author.ID); err != nil {
		t.Fatalf("DeleteAuthor: %v", err)
	}
	if _, err := st.GetAuthor(ctx, author.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	n, err := st.CountBooksForAuthor(ctx, author.ID)
	if err != nil || n != 0 {
		t.Fatalf("expected credits removed with author, n=%d err=%v", n, err)
	}
}

func TestMergeAuthorMovesCredits(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	lib := testsupport.NewLibrary(t, st, "Audiobooks", "/media/books")
	keep := testsupport.NewAuthor(t, st, lib.ID, "Neil Gaiman")
	dup := testsupport.NewAuthor(t, st, lib.ID, "neil gaiman")
	shared := testsupport.NewBook(t, st, lib, "Good Omens", testsupport.ByAuthors(keep, dup))
	solo := testsupport.NewBook(t, st, lib, "Coraline", testsupport.ByAuthors(dup))

	if err := st.MergeAuthor(ctx, dup.ID, keep.ID); err != nil {
		t.Fatalf("MergeAuthor: %v", err)
	}
	if _, err := st.GetAuthor(ctx, dup.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected merged author removed, got %v", err)
	}
	books, err := st.BooksForAuthor(ctx, keep.ID)
	if err != nil {
		t.Fatalf("BooksForAuthor: %v", err)
	}
	if len(books) != 2 || books[0].ID != solo.ID || books[1].ID != shared.ID {
		t.Fatalf("unexpected books after merge: %+v", books)
	}
	if len(books[1].Authors) != 1 || books[1].Authors[0].ID != keep.ID {
		t.Fatalf("expected a single credit on shared book, got %+v", books[1].Authors)
	}
}

func TestBooksRoundTripRelations(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	lib := testsupport.NewLibrary(t, st, "Audiobooks", "/media/books")
	first := testsupport.NewAuthor(t, st, lib.ID, "Douglas Preston")
	second := testsupport.NewAuthor(t, st, lib.ID, "Lincoln Child")
	series := testsupport.NewSeries(t, st, lib.ID, "Pendergast")
	book := testsupport.NewBook(t, st, lib, "Relic",
		testsupport.ByAuthors(first, second),
		testsupport.InSeries(series, "1"),
		testsupport.WithTracks(
			testsupport.AudioTrack(1, "100", "/media/books/Relic/01.mp3", 1800),
			testsupport.AudioTrack(2, "101", "/media/books/Relic/02.mp3", 1200),
		),
	)

	got, err := st.GetBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if got.AuthorName() != "Douglas Preston, Lincoln Child" {
		t.Fatalf("unexpected author order: %+v", got.Authors)
	}
	if len(got.Series) != 1 || got.Series[0].Sequence != "1" || got.Series[0].Name != "Pendergast" {
		t.Fatalf("unexpected series: %+v", got.Series)
	}
	if len(got.AudioFiles) != 2 || got.Duration != 3000 {
		t.Fatalf("unexpected tracks: %d duration=%v", len(got.AudioFiles), got.Duration)
	}

	got.AudioFiles[1].Invalid = true
	got.Duration = 1800
	if err := st.UpdateBookAudioFiles(ctx, got); err != nil {
		t.Fatalf("UpdateBookAudioFiles: %v", err)
	}
	reloaded, err := st.GetBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if !reloaded.AudioFiles[1].Invalid || reloaded.Duration != 1800 {
		t.Fatalf("audio file update not persisted: %+v", reloaded.AudioFiles[1])
	}

	if _, err := st.GetBook(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBooksForSeriesNaturalSequence(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	lib := testsupport.NewLibrary(t, st, "Audiobooks", "/media/books")
	series := testsupport.NewSeries(t, st, lib.ID, "The Expanse")
	testsupport.NewBook(t, st, lib, "Tiamat's Wrath", testsupport.InSeries(series, "10"))
	testsupport.NewBook(t, st, lib, "Leviathan Wakes", testsupport.InSeries(series, "1"))
	testsupport.NewBook(t, st, lib, "Caliban's War", testsupport.InSeries(series, "2"))

	books, err := st.BooksForSeries(ctx, series.ID)
	if err != nil {
		t.Fatalf("BooksForSeries: %v", err)
	}
	var titles []string
	for _, b := range books {
		titles = append(titles, b.Title)
	}
	want := []string{"Leviathan Wakes", "Caliban's War", "Tiamat's Wrath"}
	if len(titles) != len(want) {
		t.Fatalf("unexpected titles: %v", titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("unexpected order: %v", titles)
		}
	}

	list, err := st.ListSeries(ctx, lib.ID)
	if err != nil {
		t.Fatalf("ListSeries: %v", err)
	}
	if len(list) != 1 || list[0].NumBooks != 3 {
		t.Fatalf("unexpected series list: %+v", list)
	}
}

func TestListBooksFilterAndSort(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	lib := testsupport.NewLibrary(t, st, "Audiobooks", "/media/books")
	author := testsupport.NewAuthor(t, st, lib.ID, "Ursula K. Le Guin")
	other := testsupport.NewAuthor(t, st, lib.ID, "Iain M. Banks")
	testsupport.NewBook(t, st, lib, "The Dispossessed", testsupport.ByAuthors(author))
	testsupport.NewBook(t, st, lib, "A Wizard of Earthsea", testsupport.ByAuthors(author))
	testsupport.NewBook(t, st, lib, "Excession", testsupport.ByAuthors(other))

	all, err := st.ListBooks(ctx, lib.ID, store.BookQuery{OrderBy: store.SortTitle})
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if got := titlesOf(all); got != "A Wizard of Earthsea|Excession|The Dispossessed" {
		t.Fatalf("unexpected title order: %s", got)
	}

	ignoring, err := st.ListBooks(ctx, lib.ID, store.BookQuery{OrderBy: store.SortTitle, IgnorePrefix: true})
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if got := titlesOf(ignoring); got != "The Dispossessed|Excession|A Wizard of Earthsea" {
		t.Fatalf("unexpected prefix-ignoring order: %s", got)
	}

	filtered, err := st.ListBooks(ctx, lib.ID, store.BookQuery{FilterBy: "authors." + author.ID, OrderBy: store.SortTitle, Desc: true})
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if got := titlesOf(filtered); got != "The Dispossessed|A Wizard of Earthsea" {
		t.Fatalf("unexpected filtered order: %s", got)
	}

	byAuthor, err := st.ListBooks(ctx, lib.ID, store.BookQuery{OrderBy: store.SortAuthorName})
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if byAuthor[0].Title != "Excession" {
		t.Fatalf("expected Banks first, got %s", titlesOf(byAuthor))
	}
}

func TestCollectionsAndPlaylists(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	lib := testsupport.NewLibrary(t, st, "Audiobooks", "/media/books")
	a := testsupport.NewBook(t, st, lib, "Dune")
	b := testsupport.NewBook(t, st, lib, "Hyperion")

	collection := &library.Collection{ID: "c1", LibraryID: lib.ID, Name: "Classics", BookIDs: []string{b.ID, a.ID}, CreatedAt: 1}
	if err := st.CreateCollection(ctx, collection); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	got, err := st.GetCollection(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCollection: %v", err)
	}
	if len(got.BookIDs) != 2 || got.BookIDs[0] != b.ID {
		t.Fatalf("unexpected collection order: %v", got.BookIDs)
	}
	collections, err := st.ListCollections(ctx, lib.ID)
	if err != nil || len(collections) != 1 || collections[0].NumBooks != 2 {
		t.Fatalf("unexpected collections: %+v err=%v", collections, err)
	}

	playlist := &library.Playlist{ID: "p1", LibraryID: lib.ID, UserID: "u1", Name: "Queue", BookIDs: []string{a.ID}, CreatedAt: 1}
	if err := st.CreatePlaylist(ctx, playlist); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	mine, err := st.ListPlaylists(ctx, lib.ID, "u1")
	if err != nil || len(mine) != 1 || mine[0].NumItems != 1 {
		t.Fatalf("unexpected playlists: %+v err=%v", mine, err)
	}
	theirs, err := st.ListPlaylists(ctx, lib.ID, "u2")
	if err != nil || len(theirs) != 0 {
		t.Fatalf("expected no playlists for other user: %+v err=%v", theirs, err)
	}

	ordered, err := st.BooksByIDs(ctx, []string{b.ID, "missing", a.ID})
	if err != nil {
		t.Fatalf("BooksByIDs: %v", err)
	}
	if titlesOf(ordered) != "Hyperion|Dune" {
		t.Fatalf("unexpected BooksByIDs order: %s", titlesOf(ordered))
	}
}

func TestProviders(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	p := &library.CustomMetadataProvider{ID: "abc", Name: "Local", MediaType: library.MediaTypeBook, URL: "http://localhost:9000", AuthHeaderValue: "Bearer x"}
	if err := st.AddProvider(ctx, p); err != nil {
		t.Fatalf("AddProvider: %v", err)
	}
	if err := st.AddProvider(ctx, p); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	got, err := st.GetProvider(ctx, "abc")
	if err != nil {
		t.Fatalf("GetProvider: %v", err)
	}
	if got.AuthHeaderValue != "Bearer x" || got.Slug() != "custom-abc" {
		t.Fatalf("unexpected provider: %+v", got)
	}
	podcasts, err := st.ListProviders(ctx, library.MediaTypePodcast)
	if err != nil || len(podcasts) != 0 {
		t.Fatalf("expected no podcast providers: %+v err=%v", podcasts, err)
	}
	all, err := st.ListProviders(ctx, "")
	if err != nil || len(all) != 1 {
		t.Fatalf("expected one provider: %+v err=%v", all, err)
	}
	if err := st.RemoveProvider(ctx, "abc"); err != nil {
		t.Fatalf("RemoveProvider: %v", err)
	}
	if _, err := st.GetProvider(ctx, "abc"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func titlesOf(books []*library.Book) string {
	out := ""
	for i, b := range books {
		if i > 0 {
			out += "|"
		}
		out += b.Title
	}
	return out
}
