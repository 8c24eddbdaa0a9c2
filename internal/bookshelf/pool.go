package bookshelf

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"audioshelf/internal/logging"
)

// PlacementError reports an index whose shelf container is not rendered.
type PlacementError struct {
	Shelf int
	Index int
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("invalid shelf %d for index %d", e.Shelf, e.Index)
}

// Observer receives pool activity, typically for metrics.
type Observer interface {
	CardCreated(variant Variant)
	CardReused(variant Variant)
	PlacementFailed()
	PoolReset(cards int)
}

type nopObserver struct{}

func (nopObserver) CardCreated(Variant) {}
func (nopObserver) CardReused(Variant)  {}
func (nopObserver) PlacementFailed()    {}
func (nopObserver) PoolReset(int)       {}

// ViewConfig selects what a pool lists.
type ViewConfig struct {
	EntityName string
	Extras     Extras
	Source     EntitySource
}

// PoolOptions wires a pool to its collaborators.
type PoolOptions struct {
	Layout    Layout
	View      ViewConfig
	Selection SelectionSource
	Callbacks Callbacks
	Factory   *Factory
	Observer  Observer
	Logger    *slog.Logger
}

type entry struct {
	ready  chan struct{}
	handle *CardHandle
}

// Pool owns the cards mounted into a Surface, keyed by logical index.
type Pool struct {
	surface   *Surface
	layout    Layout
	selection SelectionSource
	callbacks Callbacks
	factory   *Factory
	observer  Observer
	logger    *slog.Logger

	mu         sync.Mutex
	view       ViewConfig
	entries    map[int]*entry
	mounted    []int
	generation uint64
}

// NewPool validates the layout and returns an empty pool drawing into
// surface.
func NewPool(surface *Surface, opts PoolOptions) (*Pool, error) {
	if surface == nil {
		return nil, fmt.Errorf("bookshelf pool requires a surface")
	}
	if err := opts.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("bookshelf layout: %w", err)
	}
	if opts.Factory == nil {
		opts.Factory = NewFactory(nil)
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Selection == nil {
		opts.Selection = SelectionFunc(func() SelectionState { return SelectionState{} })
	}
	if opts.View.Source == nil {
		opts.View.Source = EntitySlice(nil)
	}
	return &Pool{
		surface:   surface,
		layout:    opts.Layout,
		selection: opts.Selection,
		callbacks: opts.Callbacks,
		factory:   opts.Factory,
		observer:  opts.Observer,
		logger:    logging.NewComponentLogger(opts.Logger, "bookshelf"),
		view:      opts.View,
		entries:   make(map[int]*entry),
	}, nil
}

func (p *Pool) Layout() Layout { return p.layout }

// Mount shows the card for index in its shelf container. The first mount
// creates and positions the card; later mounts reattach the same card and
// refresh its selection state. A missing shelf container is logged and the
// call does nothing else.
func (p *Pool) Mount(ctx context.Context, index int) {
	pos := Place(index, p.layout)
	container, ok := p.surface.Lookup(ShelfContainerID(pos.Shelf))
	if !ok {
		err := &PlacementError{Shelf: pos.Shelf, Index: index}
		logging.ErrorWithContext(p.logger, "card placement failed", "card_placement_failed",
			logging.Int("shelf", pos.Shelf),
			logging.Int("index", index),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "render the shelf container before mounting its cards"),
		)
		p.observer.PlacementFailed()
		return
	}

	p.mu.Lock()
	p.mounted = append(p.mounted, index)
	if e, ok := p.entries[index]; ok {
		p.mu.Unlock()
		<-e.ready
		p.reuse(e, container)
		return
	}
	e := &entry{ready: make(chan struct{})}
	p.entries[index] = e
	generation := p.generation
	view := p.view
	p.mu.Unlock()

	p.create(ctx, index, pos, container, e, generation, view)
}

func (p *Pool) reuse(e *entry, container *Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := e.handle
	if h == nil || p.entries[h.Index] != e {
		return
	}
	p.surface.Attach(container, h.Node)
	Sync(h, p.selection.Selection())
	h.SetHovering(false)
	p.observer.CardReused(h.Variant)
}

func (p *Pool) create(ctx context.Context, index int, pos ShelfPosition, container *Node, e *entry, generation uint64, view ViewConfig) {
	defer close(e.ready)

	variant := VariantForEntityName(view.EntityName)
	card, err := p.factory.Create(ctx, variant, PropsFor(variant, index, p.layout, view.Extras), p.callbacks)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		logging.ErrorWithContext(p.logger, "card creation failed", "card_create_failed",
			logging.Int("index", index),
			logging.String("variant", string(variant)),
			logging.Error(err),
		)
		if p.entries[index] == e {
			delete(p.entries, index)
		}
		return
	}
	if generation != p.generation {
		p.logger.Debug("discarding card created before reset",
			logging.Int("index", index),
			logging.String(logging.FieldEventType, "card_create_stale"),
		)
		return
	}

	node := card.Mount()
	h := newCardHandle(index, card, node)
	e.handle = h
	node.SetTransform(pos.Transform())
	node.AddClass("absolute", "top-0", "left-0")
	p.surface.Attach(container, node)
	if entity, ok := view.Source.Entity(index); ok {
		card.SetEntity(entity)
	}
	Sync(h, p.selection.Selection())
	p.observer.CardCreated(h.Variant)
}

// Reset destroys every pooled card and clears the mount log. Creations
// still in flight are discarded when they complete.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

// Configure switches the pool to a new listing and resets it.
func (p *Pool) Configure(view ViewConfig) {
	if view.Source == nil {
		view.Source = EntitySlice(nil)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = view
	p.resetLocked()
}

func (p *Pool) resetLocked() {
	cards := 0
	for _, e := range p.entries {
		if e.handle != nil {
			p.surface.Detach(e.handle.Node)
			cards++
		}
	}
	p.entries = make(map[int]*entry)
	p.mounted = nil
	p.generation++
	p.observer.PoolReset(cards)
}

// Handle returns the created card for index.
func (p *Pool) Handle(index int) (*CardHandle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[index]
	if !ok || e.handle == nil {
		return nil, false
	}
	return e.handle, true
}

// Handles returns every created card ordered by index.
func (p *Pool) Handles() []*CardHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*CardHandle, 0, len(p.entries))
	for _, e := range p.entries {
		if e.handle != nil {
			out = append(out, e.handle)
		}
	}
	slices.SortFunc(out, func(a, b *CardHandle) int { return a.Index - b.Index })
	return out
}

// MountedIndexLog returns every index passed to Mount since the last reset,
// in call order and with repeats.
func (p *Pool) MountedIndexLog() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.mounted)
}

// Generation increases on every reset.
func (p *Pool) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Len is the number of created cards.
func (p *Pool) Len() int {
	return len(p.Handles())
}

// Edit fires the edit interaction of the card at index. It reports false
// when no card is mounted there.
func (p *Pool) Edit(index int) bool {
	h, ok := p.Handle(index)
	if !ok {
		return false
	}
	h.Card.Edit()
	return true
}

// Select fires the select interaction of the card at index.
func (p *Pool) Select(index int, shiftKey bool) bool {
	h, ok := p.Handle(index)
	if !ok {
		return false
	}
	h.Card.Select(shiftKey)
	return true
}
