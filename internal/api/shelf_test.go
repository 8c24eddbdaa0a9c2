package api_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audioshelf/internal/api"
	"audioshelf/internal/bookshelf"
	"audioshelf/internal/events"
	"audioshelf/internal/library"
	"audioshelf/internal/logging"
	"audioshelf/internal/store"
	"audioshelf/internal/testsupport"
)

type shelfFixture struct {
	st       *store.Store
	lib      *library.Library
	books    []*library.Book
	svc      *api.ShelfService
	recorder *events.Recorder
	activity *poolActivity
}

type poolActivity struct {
	created atomic.Int64
	reused  atomic.Int64
}

func (a *poolActivity) CardCreated(bookshelf.Variant) { a.created.Add(1) }
func (a *poolActivity) CardReused(bookshelf.Variant)  { a.reused.Add(1) }
func (a *poolActivity) PlacementFailed()              {}
func (a *poolActivity) PoolReset(int)                 {}

func newShelfFixture(t *testing.T, books int, opts ...testsupport.ConfigOption) *shelfFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithShelfCapacity(2)}, opts...)...)
	st := testsupport.MustOpenStore(t, cfg)
	f := &shelfFixture{
		st:       st,
		lib:      testsupport.NewLibrary(t, st, "Fiction", t.TempDir()),
		recorder: &events.Recorder{},
		activity: &poolActivity{},
	}
	for i := 1; i <= books; i++ {
		f.books = append(f.books, testsupport.NewBook(t, st, f.lib, fmt.Sprintf("Book %d", i)))
	}
	f.svc = api.NewShelfService(api.ShelfServiceOptions{
		Store:    st,
		Layout:   cfg.Bookshelf,
		Observer: f.activity,
		Events:   f.recorder,
		Logger:   logging.NewNop(),
	})
	return f
}

func titleOrder() api.ShelfRequest {
	return api.ShelfRequest{EntityName: bookshelf.EntityItems, OrderBy: store.SortTitle, FirstShelf: 0, LastShelf: 1}
}

func TestShelfRenderMountsWindow(t *testing.T) {
	f := newShelfFixture(t, 5)
	res, err := f.svc.Render(context.Background(), f.lib.ID, "home", "u1", titleOrder())
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.TotalShelves)
	require.Len(t, res.Shelves, 2)
	assert.Equal(t, "shelf-1", res.Shelves[1].ID)
	require.Len(t, res.Shelves[0].Cards, 2)

	second := res.Shelves[0].Cards[1]
	assert.Equal(t, 1, second.Index)
	assert.Equal(t, bookshelf.VariantBook, second.Variant)
	assert.Equal(t, f.books[1].ID, second.EntityID)
	assert.Equal(t, "translate3d(160px, 16px, 0px)", second.Transform)
	assert.Contains(t, second.Label, "Book 2")
	assert.Equal(t, 1, f.svc.Views())
}

func TestShelfRenderReusesCardsUntilListingChanges(t *testing.T) {
	f := newShelfFixture(t, 4)
	ctx := context.Background()
	first, err := f.svc.Render(ctx, f.lib.ID, "home", "", titleOrder())
	require.NoError(t, err)

	again, err := f.svc.Render(ctx, f.lib.ID, "home", "", titleOrder())
	require.NoError(t, err)
	assert.Equal(t, first.Generation, again.Generation)

	req := titleOrder()
	req.Desc = true
	resorted, err := f.svc.Render(ctx, f.lib.ID, "home", "", req)
	require.NoError(t, err)
	assert.Greater(t, resorted.Generation, first.Generation)
	assert.Equal(t, f.books[3].ID, resorted.Shelves[0].Cards[0].EntityID)
}

func TestShelfRenderAppliesSelection(t *testing.T) {
	f := newShelfFixture(t, 3)
	req := titleOrder()
	req.Selection = api.ShelfSelection{Enabled: true, SelectedIDs: []string{f.books[2].ID}}

	res, err := f.svc.Render(context.Background(), f.lib.ID, "home", "", req)
	require.NoError(t, err)
	cards := append(res.Shelves[0].Cards, res.Shelves[1].Cards...)
	require.Len(t, cards, 3)
	for _, c := range cards {
		assert.True(t, c.SelectionMode)
		assert.Equal(t, c.EntityID == f.books[2].ID, c.Selected, "card %d", c.Index)
	}

	req.Selection = api.ShelfSelection{Enabled: true, SelectAll: true}
	res, err = f.svc.Render(context.Background(), f.lib.ID, "home", "", req)
	require.NoError(t, err)
	for _, c := range res.Shelves[0].Cards {
		assert.True(t, c.Selected)
	}
}

func TestShelfRenderClampsWindow(t *testing.T) {
	f := newShelfFixture(t, 3)
	req := titleOrder()
	req.FirstShelf, req.LastShelf = -3, 10
	res, err := f.svc.Render(context.Background(), f.lib.ID, "home", "", req)
	require.NoError(t, err)
	require.Len(t, res.Shelves, 2)

	empty := newShelfFixture(t, 0)
	res, err = empty.svc.Render(context.Background(), empty.lib.ID, "home", "", titleOrder())
	require.NoError(t, err)
	assert.Zero(t, res.TotalShelves)
	assert.Empty(t, res.Shelves)
}

func TestShelfRenderRejectsBadRequests(t *testing.T) {
	f := newShelfFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.Render(ctx, f.lib.ID, "", "", titleOrder())
	assert.ErrorIs(t, err, api.ErrInvalid)
	_, err = f.svc.Render(ctx, f.lib.ID, "home", "", api.ShelfRequest{EntityName: bookshelf.EntityAlbums})
	assert.ErrorIs(t, err, api.ErrInvalid)
	_, err = f.svc.Render(ctx, f.lib.ID, "home", "", api.ShelfRequest{EntityName: "podcasts"})
	assert.ErrorIs(t, err, api.ErrInvalid)
	_, err = f.svc.Render(ctx, "missing", "home", "", titleOrder())
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestShelfSeriesHidesSingleBookSeries(t *testing.T) {
	f := newShelfFixture(t, 0)
	ctx := context.Background()
	saga := testsupport.NewSeries(t, f.st, f.lib.ID, "The Saga")
	solo := testsupport.NewSeries(t, f.st, f.lib.ID, "Solo")
	testsupport.NewBook(t, f.st, f.lib, "Saga 1", testsupport.InSeries(saga, "1"))
	testsupport.NewBook(t, f.st, f.lib, "Saga 2", testsupport.InSeries(saga, "2"))
	testsupport.NewBook(t, f.st, f.lib, "Solo 1", testsupport.InSeries(solo, "1"))

	req := api.ShelfRequest{EntityName: bookshelf.EntitySeries, LastShelf: 1}
	res, err := f.svc.Render(ctx, f.lib.ID, "series", "", req)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, bookshelf.VariantSeries, res.Shelves[0].Cards[0].Variant)

	settings := f.lib.Settings
	settings.HideSingleBookSeries = true
	require.NoError(t, f.st.UpdateLibrarySettings(ctx, f.lib.ID, settings))
	require.NoError(t, f.svc.Reset(f.lib.ID, "", "series"))

	res, err = f.svc.Render(ctx, f.lib.ID, "series", "", req)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, saga.ID, res.Shelves[0].Cards[0].EntityID)
	assert.Contains(t, res.Shelves[0].Cards[0].Label, "2 books")
}

func TestShelfPlaylistsArePerUser(t *testing.T) {
	f := newShelfFixture(t, 2)
	ctx := context.Background()
	require.NoError(t, f.st.CreatePlaylist(ctx, &library.Playlist{
		ID:        "pl1",
		LibraryID: f.lib.ID,
		UserID:    "u1",
		Name:      "Commute",
		BookIDs:   []string{f.books[0].ID, f.books[1].ID},
	}))

	req := api.ShelfRequest{EntityName: bookshelf.EntityPlaylists}
	res, err := f.svc.Render(ctx, f.lib.ID, "playlists-u1", "u1", req)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Contains(t, res.Shelves[0].Cards[0].Label, "2 items")

	res, err = f.svc.Render(ctx, f.lib.ID, "playlists-u2", "u2", req)
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestShelfCardActionsEmitEvents(t *testing.T) {
	f := newShelfFixture(t, 3)
	_, err := f.svc.Render(context.Background(), f.lib.ID, "home", "", api.ShelfRequest{OrderBy: store.SortTitle})
	require.NoError(t, err)

	require.NoError(t, f.svc.Action(f.lib.ID, "", "home", 0, api.CardActionEdit, false))
	require.NoError(t, f.svc.Action(f.lib.ID, "", "home", 1, api.CardActionSelect, true))
	assert.Equal(t, []events.Event{events.CardEdit, events.CardSelect}, f.recorder.Names())

	msgs := f.recorder.Messages()
	edit, ok := msgs[0].Data.(api.CardEvent)
	require.True(t, ok)
	assert.Equal(t, f.books[0].ID, edit.Entity.ID)
	assert.Equal(t, "home", edit.ViewID)
	sel, ok := msgs[1].Data.(api.CardEvent)
	require.True(t, ok)
	assert.True(t, sel.ShiftKey)

	assert.ErrorIs(t, f.svc.Action(f.lib.ID, "", "home", 2, api.CardActionEdit, false), api.ErrNotFound)
	assert.ErrorIs(t, f.svc.Action(f.lib.ID, "", "home", 0, "drag", false), api.ErrInvalid)
	assert.ErrorIs(t, f.svc.Action(f.lib.ID, "", "other", 0, api.CardActionEdit, false), api.ErrNotFound)

	require.NoError(t, f.svc.Reset(f.lib.ID, "", "home"))
	assert.ErrorIs(t, f.svc.Reset(f.lib.ID, "", "home"), api.ErrNotFound)
	assert.Zero(t, f.svc.Views())
}

func TestShelfViewsAreScopedToUser(t *testing.T) {
	f := newShelfFixture(t, 2)
	ctx := context.Background()
	require.NoError(t, f.st.CreatePlaylist(ctx, &library.Playlist{
		ID:        "pl1",
		LibraryID: f.lib.ID,
		UserID:    "u1",
		Name:      "Private",
		BookIDs:   []string{f.books[0].ID},
	}))
	req := api.ShelfRequest{EntityName: bookshelf.EntityPlaylists}

	res, err := f.svc.Render(ctx, f.lib.ID, "home", "u1", req)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)

	res, err = f.svc.Render(ctx, f.lib.ID, "home", "u2", req)
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Equal(t, 2, f.svc.Views())

	assert.ErrorIs(t, f.svc.Action(f.lib.ID, "u2", "home", 0, api.CardActionEdit, false), api.ErrNotFound)
	require.NoError(t, f.svc.Reset(f.lib.ID, "u2", "home"))
	assert.ErrorIs(t, f.svc.Reset(f.lib.ID, "u2", "home"), api.ErrNotFound)

	require.NoError(t, f.svc.Action(f.lib.ID, "u1", "home", 0, api.CardActionEdit, false))
	msgs := f.recorder.Messages()
	require.Len(t, msgs, 1)
	edit, ok := msgs[0].Data.(api.CardEvent)
	require.True(t, ok)
	assert.Equal(t, "u1", edit.UserID)
	assert.Equal(t, "pl1", edit.Entity.ID)
}

func TestShelfEvictsLeastRecentlyUsedView(t *testing.T) {
	f := newShelfFixture(t, 1, testsupport.WithMaxViews(2))
	ctx := context.Background()
	render := func(user, view string) {
		t.Helper()
		_, err := f.svc.Render(ctx, f.lib.ID, view, user, titleOrder())
		require.NoError(t, err)
	}

	render("u1", "a")
	render("u1", "b")
	render("u2", "a")
	render("u1", "a")
	render("u1", "c")

	assert.Equal(t, 3, f.svc.Views())
	assert.ErrorIs(t, f.svc.Action(f.lib.ID, "u1", "b", 0, api.CardActionEdit, false), api.ErrNotFound)
	assert.NoError(t, f.svc.Action(f.lib.ID, "u1", "a", 0, api.CardActionEdit, false))
	assert.NoError(t, f.svc.Action(f.lib.ID, "u1", "c", 0, api.CardActionEdit, false))
	assert.NoError(t, f.svc.Action(f.lib.ID, "u2", "a", 0, api.CardActionEdit, false))
}

func TestShelfRebuildsViewWhenCoverShapeChanges(t *testing.T) {
	f := newShelfFixture(t, 3)
	ctx := context.Background()

	res, err := f.svc.Render(ctx, f.lib.ID, "home", "", titleOrder())
	require.NoError(t, err)
	assert.Equal(t, library.CoverSquare.Ratio(), res.CoverAspectRatio)
	_, err = f.svc.Render(ctx, f.lib.ID, "home", "", titleOrder())
	require.NoError(t, err)
	assert.EqualValues(t, 3, f.activity.created.Load())
	assert.EqualValues(t, 3, f.activity.reused.Load())

	settings := f.lib.Settings
	settings.CoverAspectRatio = library.CoverStandard
	require.NoError(t, f.st.UpdateLibrarySettings(ctx, f.lib.ID, settings))

	res, err = f.svc.Render(ctx, f.lib.ID, "home", "", titleOrder())
	require.NoError(t, err)
	assert.Equal(t, library.CoverStandard.Ratio(), res.CoverAspectRatio)
	assert.EqualValues(t, 6, f.activity.created.Load())
	assert.Equal(t, 1, f.svc.Views())
}
