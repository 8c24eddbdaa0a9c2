package api

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"audioshelf/internal/bookshelf"
	"audioshelf/internal/config"
	"audioshelf/internal/events"
	"audioshelf/internal/library"
	"audioshelf/internal/logging"
	"audioshelf/internal/store"
)

// ShelfStore loads the entities a bookshelf lists.
type ShelfStore interface {
	GetLibrary(ctx context.Context, id string) (*library.Library, error)
	ListBooks(ctx context.Context, libraryID string, q store.BookQuery) ([]*library.Book, error)
	ListSeries(ctx context.Context, libraryID string) ([]store.SeriesWithCount, error)
	ListCollections(ctx context.Context, libraryID string) ([]store.CollectionWithCount, error)
	ListPlaylists(ctx context.Context, libraryID, userID string) ([]store.PlaylistWithCount, error)
}

// Series sort keys accepted in ShelfRequest.SeriesSortBy.
const (
	SeriesSortName     = "name"
	SeriesSortAddedAt  = "addedAt"
	SeriesSortNumBooks = "numBooks"
)

// ShelfRequest asks for a window of shelves of one view.
type ShelfRequest struct {
	EntityName   string         `json:"entityName"`
	OrderBy      string         `json:"orderBy"`
	Desc         bool           `json:"desc"`
	FilterBy     string         `json:"filterBy"`
	SeriesSortBy string         `json:"seriesSortBy"`
	Selection    ShelfSelection `json:"selection"`
	FirstShelf   int            `json:"firstShelf"`
	LastShelf    int            `json:"lastShelf"`
}

// ShelfSelection is the client's multi-select state.
type ShelfSelection struct {
	Enabled     bool     `json:"enabled"`
	SelectedIDs []string `json:"selectedIds"`
	SelectAll   bool     `json:"selectAll"`
}

// ShelfResult is a rendered window of a bookshelf view.
type ShelfResult struct {
	ViewID       string `json:"viewId"`
	EntityName   string `json:"entityName"`
	Total        int    `json:"total"`
	TotalShelves int    `json:"totalShelves"`
	Generation   uint64 `json:"generation"`
	// CoverAspectRatio is the height/width factor of the card covers.
	CoverAspectRatio float64       `json:"coverAspectRatio"`
	Shelves          []ShelfWindow `json:"shelves"`
}

// ShelfWindow is one rendered shelf.
type ShelfWindow struct {
	Shelf int          `json:"shelf"`
	ID    string       `json:"id"`
	Cards []CardResult `json:"cards"`
}

// CardResult describes a mounted card.
type CardResult struct {
	Index         int               `json:"index"`
	Variant       bookshelf.Variant `json:"variant"`
	EntityID      string            `json:"entityId,omitempty"`
	Transform     string            `json:"transform"`
	Classes       []string          `json:"classes"`
	Label         string            `json:"label"`
	Selected      bool              `json:"selected"`
	SelectionMode bool              `json:"selectionMode"`
}

// CardAction names an interaction forwarded to a mounted card.
type CardAction string

const (
	CardActionEdit   CardAction = "edit"
	CardActionSelect CardAction = "select"
)

// CardEvent is the payload broadcast for card interactions.
type CardEvent struct {
	LibraryID string           `json:"libraryId"`
	UserID    string           `json:"userId,omitempty"`
	ViewID    string           `json:"viewId"`
	Entity    bookshelf.Entity `json:"entity"`
	ShiftKey  bool             `json:"shiftKey,omitempty"`
}

type viewKey struct {
	entityName   string
	orderBy      string
	desc         bool
	filterBy     string
	seriesSortBy string
}

// sessionID scopes a view to the user that opened it.
type sessionID struct {
	libraryID string
	userID    string
	viewID    string
}

// defaultMaxViews applies when the layout config leaves the cap unset.
const defaultMaxViews = 16

type shelfSession struct {
	id       sessionID
	layout   bookshelf.Layout
	lastUsed uint64

	mu        sync.Mutex
	key       viewKey
	surface   *bookshelf.Surface
	pool      *bookshelf.Pool
	entities  bookshelf.EntitySlice
	shelves   int
	selection bookshelf.SelectionState
}

// ShelfServiceOptions wires a ShelfService.
type ShelfServiceOptions struct {
	Store    ShelfStore
	Layout   config.Bookshelf
	Resolver bookshelf.Resolver
	Observer bookshelf.Observer
	Events   events.Emitter
	Logger   *slog.Logger
}

// ShelfService keeps one card pool per library view and renders shelf
// windows from it. A view is reset whenever its listing changes.
type ShelfService struct {
	store    ShelfStore
	layout   config.Bookshelf
	factory  *bookshelf.Factory
	observer bookshelf.Observer
	events   events.Emitter
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[sessionID]*shelfSession
	uses     uint64
}

func NewShelfService(opts ShelfServiceOptions) *ShelfService {
	emitter := opts.Events
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &ShelfService{
		store:    opts.Store,
		layout:   opts.Layout,
		factory:  bookshelf.NewFactory(opts.Resolver),
		observer: opts.Observer,
		events:   emitter,
		logger:   logging.NewComponentLogger(opts.Logger, "shelf"),
		sessions: make(map[sessionID]*shelfSession),
	}
}

// LayoutFor builds the card layout of a library from the shared bookshelf
// settings and the library's cover shape.
func LayoutFor(cfg config.Bookshelf, settings library.LibrarySettings) bookshelf.Layout {
	return bookshelf.Layout{
		EntitiesPerShelf:    cfg.EntitiesPerShelf,
		CardWidth:           float64(cfg.CardWidth),
		CardHeight:          float64(cfg.CardHeight),
		CardGap:             float64(cfg.CardGap),
		MarginLeft:          float64(cfg.MarginLeft),
		CoverAspectRatio:    settings.CoverAspectRatio.Ratio(),
		ViewMode:            cfg.ViewMode,
		SortingIgnorePrefix: cfg.SortingIgnorePrefix,
	}
}

// Render mounts every card of the requested shelf window and returns the
// window. Changing the entity name, sort or filter of a view reloads its
// listing and resets its pool.
func (s *ShelfService) Render(ctx context.Context, libraryID, viewID, userID string, req ShelfRequest) (*ShelfResult, error) {
	if strings.TrimSpace(viewID) == "" {
		return nil, invalidf("view id is required")
	}
	if req.EntityName == "" {
		req.EntityName = bookshelf.EntityItems
	}
	if err := checkEntityName(req.EntityName); err != nil {
		return nil, err
	}
	lib, err := s.store.GetLibrary(ctx, libraryID)
	if err != nil {
		return nil, fromStore(err)
	}

	sess, err := s.session(lib, userID, viewID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	key := viewKey{
		entityName:   req.EntityName,
		orderBy:      req.OrderBy,
		desc:         req.Desc,
		filterBy:     req.FilterBy,
		seriesSortBy: req.SeriesSortBy,
	}
	if sess.entities == nil || sess.key != key {
		if err := s.reload(ctx, sess, lib, userID, key); err != nil {
			return nil, err
		}
	}
	sess.selection = bookshelf.NewSelection(req.Selection.Enabled, req.Selection.SelectAll, req.Selection.SelectedIDs...)

	layout := sess.pool.Layout()
	total := len(sess.entities)
	result := &ShelfResult{
		ViewID:           viewID,
		EntityName:       key.entityName,
		Total:            total,
		TotalShelves:     bookshelf.ShelfCount(total, layout),
		Generation:       sess.pool.Generation(),
		CoverAspectRatio: layout.CoverAspectRatio,
		Shelves:          []ShelfWindow{},
	}
	first, last := clampWindow(req.FirstShelf, req.LastShelf, result.TotalShelves)
	for shelf := first; shelf <= last; shelf++ {
		sess.surface.EnsureShelf(shelf)
		start := shelf * layout.EntitiesPerShelf
		end := min(start+layout.EntitiesPerShelf, total)
		for index := start; index < end; index++ {
			sess.pool.Mount(ctx, index)
		}
		result.Shelves = append(result.Shelves, s.window(sess, shelf, start, end))
	}
	return result, nil
}

func checkEntityName(name string) error {
	switch name {
	case bookshelf.EntityItems, bookshelf.EntitySeries, bookshelf.EntityCollections, bookshelf.EntityPlaylists:
		return nil
	case bookshelf.EntityAlbums:
		return invalidf("entity %q is not supported by this server", name)
	default:
		return invalidf("unknown entity %q", name)
	}
}

// clampWindow limits [first, last] to existing shelves. It returns an empty
// range when there are none.
func clampWindow(first, last, shelves int) (int, int) {
	if shelves == 0 {
		return 0, -1
	}
	first = max(first, 0)
	last = max(last, first)
	return min(first, shelves-1), min(last, shelves-1)
}

// session returns the open view for id, creating it when needed. A view
// whose layout no longer matches the library settings is replaced, and the
// least recently used view of the user is evicted once the cap is reached.
func (s *ShelfService) session(lib *library.Library, userID, viewID string) (*shelfSession, error) {
	id := sessionID{libraryID: lib.ID, userID: userID, viewID: viewID}
	layout := LayoutFor(s.layout, lib.Settings)

	s.mu.Lock()
	s.uses++
	if sess, ok := s.sessions[id]; ok && sess.layout == layout {
		sess.lastUsed = s.uses
		s.mu.Unlock()
		return sess, nil
	}
	var retired []*shelfSession
	if stale, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		retired = append(retired, stale)
	} else if evicted := s.evictLocked(id); evicted != nil {
		retired = append(retired, evicted)
	}

	sess := &shelfSession{id: id, layout: layout, lastUsed: s.uses, surface: bookshelf.NewSurface()}
	pool, err := bookshelf.NewPool(sess.surface, bookshelf.PoolOptions{
		Layout:    layout,
		Selection: bookshelf.SelectionFunc(func() bookshelf.SelectionState { return sess.selection }),
		Callbacks: s.callbacks(id),
		Factory:   s.factory,
		Observer:  s.observer,
		Logger:    s.logger,
	})
	if err != nil {
		s.mu.Unlock()
		s.retire(retired)
		return nil, fmt.Errorf("create bookshelf pool: %w", err)
	}
	sess.pool = pool
	s.sessions[id] = sess
	s.mu.Unlock()

	s.retire(retired)
	s.logger.Debug("bookshelf view opened",
		logging.LibraryID(lib.ID),
		logging.ViewID(viewID),
		logging.String(logging.FieldUserID, userID),
	)
	return sess, nil
}

// evictLocked removes the least recently used view of the user when opening
// id would exceed the per-user cap.
func (s *ShelfService) evictLocked(id sessionID) *shelfSession {
	limit := s.layout.MaxViewsPerUser
	if limit <= 0 {
		limit = defaultMaxViews
	}
	var (
		open   int
		oldest *shelfSession
	)
	for other, sess := range s.sessions {
		if other.libraryID != id.libraryID || other.userID != id.userID {
			continue
		}
		open++
		if oldest == nil || sess.lastUsed < oldest.lastUsed {
			oldest = sess
		}
	}
	if open < limit || oldest == nil {
		return nil
	}
	delete(s.sessions, oldest.id)
	s.logger.Debug("bookshelf view evicted",
		logging.LibraryID(oldest.id.libraryID),
		logging.ViewID(oldest.id.viewID),
		logging.Int("open_views", open),
	)
	return oldest
}

func (s *ShelfService) retire(sessions []*shelfSession) {
	for _, sess := range sessions {
		sess.mu.Lock()
		sess.pool.Reset()
		sess.mu.Unlock()
	}
}

func (s *ShelfService) callbacks(id sessionID) bookshelf.Callbacks {
	event := func(entity bookshelf.Entity, shiftKey bool) CardEvent {
		return CardEvent{LibraryID: id.libraryID, UserID: id.userID, ViewID: id.viewID, Entity: entity, ShiftKey: shiftKey}
	}
	return bookshelf.Callbacks{
		Edit: func(entity bookshelf.Entity) {
			s.events.Emit(events.CardEdit, event(entity, false))
		},
		Select: func(entity bookshelf.Entity, shiftKey bool) {
			s.events.Emit(events.CardSelect, event(entity, shiftKey))
		},
	}
}

func (s *ShelfService) reload(ctx context.Context, sess *shelfSession, lib *library.Library, userID string, key viewKey) error {
	entities, err := s.loadEntities(ctx, lib, userID, key)
	if err != nil {
		return err
	}
	for shelf := range sess.shelves {
		sess.surface.RemoveShelf(shelf)
	}
	sess.key = key
	sess.entities = entities
	sess.shelves = bookshelf.ShelfCount(len(entities), sess.pool.Layout())
	sess.pool.Configure(bookshelf.ViewConfig{
		EntityName: key.entityName,
		Extras: bookshelf.Extras{
			FilterBy:     key.filterBy,
			OrderBy:      key.orderBy,
			SeriesSortBy: key.seriesSortBy,
		},
		Source: entities,
	})
	s.logger.Debug("bookshelf view reloaded",
		logging.LibraryID(lib.ID),
		logging.ViewID(sess.id.viewID),
		logging.String("entity", key.entityName),
		logging.Int("entities", len(entities)),
	)
	return nil
}

func (s *ShelfService) loadEntities(ctx context.Context, lib *library.Library, userID string, key viewKey) (bookshelf.EntitySlice, error) {
	out := bookshelf.EntitySlice{}
	switch key.entityName {
	case bookshelf.EntityItems:
		books, err := s.store.ListBooks(ctx, lib.ID, store.BookQuery{
			FilterBy:     key.filterBy,
			OrderBy:      key.orderBy,
			Desc:         key.desc,
			IgnorePrefix: s.layout.SortingIgnorePrefix,
		})
		if err != nil {
			return nil, err
		}
		seriesID, _ := strings.CutPrefix(key.filterBy, "series.")
		for _, b := range books {
			e := bookEntity(b)
			if seq, ok := b.SeriesSequenceFor(seriesID); ok {
				e.Sequence = seq.Sequence
			}
			out = append(out, e)
		}
	case bookshelf.EntitySeries:
		rows, err := s.store.ListSeries(ctx, lib.ID)
		if err != nil {
			return nil, err
		}
		if lib.Settings.HideSingleBookSeries {
			rows = slices.DeleteFunc(rows, func(r store.SeriesWithCount) bool { return r.NumBooks <= 1 })
		}
		sortSeries(rows, key.seriesSortBy, key.desc, s.layout.SortingIgnorePrefix)
		for _, row := range rows {
			out = append(out, bookshelf.Entity{ID: row.Series.ID, Title: row.Series.Name, NumBooks: row.NumBooks})
		}
	case bookshelf.EntityCollections:
		rows, err := s.store.ListCollections(ctx, lib.ID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, bookshelf.Entity{ID: row.Collection.ID, Title: row.Collection.Name, NumBooks: row.NumBooks})
		}
	case bookshelf.EntityPlaylists:
		rows, err := s.store.ListPlaylists(ctx, lib.ID, userID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, bookshelf.Entity{ID: row.Playlist.ID, Title: row.Playlist.Name, NumBooks: row.NumItems})
		}
	}
	return out, nil
}

func bookEntity(b *library.Book) bookshelf.Entity {
	e := bookshelf.Entity{
		ID:       b.ID,
		Title:    b.Title,
		Subtitle: b.Subtitle,
		Author:   b.AuthorName(),
		Duration: b.Duration,
	}
	if b.CoverPath != nil {
		e.CoverPath = *b.CoverPath
	}
	return e
}

func sortSeries(rows []store.SeriesWithCount, sortBy string, desc, ignorePrefix bool) {
	slices.SortStableFunc(rows, func(a, b store.SeriesWithCount) int {
		var c int
		switch sortBy {
		case SeriesSortAddedAt:
			c = cmp.Compare(a.Series.AddedAt, b.Series.AddedAt)
		case SeriesSortNumBooks:
			c = cmp.Compare(a.NumBooks, b.NumBooks)
		default:
			an, bn := a.Series.Name, b.Series.Name
			if ignorePrefix {
				an, bn = a.Series.NameIgnorePrefix(), b.Series.NameIgnorePrefix()
			}
			c = cmp.Compare(strings.ToLower(an), strings.ToLower(bn))
		}
		if desc {
			return -c
		}
		return c
	})
}

func (s *ShelfService) window(sess *shelfSession, shelf, start, end int) ShelfWindow {
	w := ShelfWindow{Shelf: shelf, ID: bookshelf.ShelfContainerID(shelf), Cards: []CardResult{}}
	for index := start; index < end; index++ {
		h, ok := sess.pool.Handle(index)
		if !ok {
			continue
		}
		w.Cards = append(w.Cards, CardResult{
			Index:         h.Index,
			Variant:       h.Variant,
			EntityID:      h.Card.EntityID(),
			Transform:     h.Node.Transform(),
			Classes:       h.Node.Classes(),
			Label:         h.Node.Label(),
			Selected:      h.Selected(),
			SelectionMode: h.SelectionMode(),
		})
	}
	return w
}

// Reset drops a view of userID. Its cards are destroyed and the next render
// starts from an empty pool.
func (s *ShelfService) Reset(libraryID, userID, viewID string) error {
	id := sessionID{libraryID: libraryID, userID: userID, viewID: viewID}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: bookshelf view %s", ErrNotFound, viewID)
	}
	s.retire([]*shelfSession{sess})
	return nil
}

// Action forwards an interaction to the card mounted at index of a view
// opened by userID.
func (s *ShelfService) Action(libraryID, userID, viewID string, index int, action CardAction, shiftKey bool) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID{libraryID: libraryID, userID: userID, viewID: viewID}]
	if ok {
		s.uses++
		sess.lastUsed = s.uses
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: bookshelf view %s", ErrNotFound, viewID)
	}
	var mounted bool
	switch action {
	case CardActionEdit:
		mounted = sess.pool.Edit(index)
	case CardActionSelect:
		mounted = sess.pool.Select(index, shiftKey)
	default:
		return invalidf("unknown card action %q", action)
	}
	if !mounted {
		return fmt.Errorf("%w: no card mounted at index %d", ErrNotFound, index)
	}
	return nil
}

// Views returns how many bookshelf views are open.
func (s *ShelfService) Views() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
