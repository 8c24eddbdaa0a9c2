package bookshelf

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"audioshelf/internal/library"
)

// Variant is the closed set of card kinds.
type Variant string

const (
	VariantBook       Variant = "book"
	VariantSeries     Variant = "series"
	VariantCollection Variant = "collection"
	VariantPlaylist   Variant = "playlist"
	VariantAlbum      Variant = "album"
)

// Entity names used by clients to choose what a bookshelf lists.
const (
	EntityItems       = "items"
	EntitySeries      = "series"
	EntityCollections = "collections"
	EntityPlaylists   = "playlists"
	EntityAlbums      = "albums"
)

// VariantForEntityName maps an entity name to its card variant. Anything
// unrecognised renders as a book card.
func VariantForEntityName(name string) Variant {
	switch name {
	case EntitySeries:
		return VariantSeries
	case EntityCollections:
		return VariantCollection
	case EntityPlaylists:
		return VariantPlaylist
	case EntityAlbums:
		return VariantAlbum
	default:
		return VariantBook
	}
}

func normalizeVariant(v Variant) Variant {
	switch v {
	case VariantBook, VariantSeries, VariantCollection, VariantPlaylist, VariantAlbum:
		return v
	default:
		return VariantBook
	}
}

// Props configure a card at construction.
type Props struct {
	Index               int
	Width               float64
	Height              float64
	CoverAspectRatio    float64
	ViewMode            string
	SortingIgnorePrefix bool
	FilterBy            *string
	OrderBy             *string
}

// Extras are the list options that only some variants receive.
type Extras struct {
	FilterBy     string
	OrderBy      string
	SeriesSortBy string
}

// PropsFor builds card props from the shared layout. Book cards get the
// filter and sort keys, series cards only the series sort key.
func PropsFor(variant Variant, index int, layout Layout, extras Extras) Props {
	props := Props{
		Index:               index,
		Width:               layout.CardWidth,
		Height:              layout.CardHeight,
		CoverAspectRatio:    layout.CoverAspectRatio,
		ViewMode:            layout.ViewMode,
		SortingIgnorePrefix: layout.SortingIgnorePrefix,
	}
	switch normalizeVariant(variant) {
	case VariantBook:
		filterBy, orderBy := extras.FilterBy, extras.OrderBy
		props.FilterBy = &filterBy
		props.OrderBy = &orderBy
	case VariantSeries:
		orderBy := extras.SeriesSortBy
		props.OrderBy = &orderBy
	}
	return props
}

// Card is a mounted entity tile. Variants differ only in how they render.
type Card interface {
	Variant() Variant
	Props() Props
	SetEntity(Entity)
	EntityID() string
	SetSelectionMode(bool)
	SelectionMode() bool
	Mount() *Node
	OnEdit(func(Entity))
	OnSelect(func(Entity, bool))
	Edit()
	Select(shiftKey bool)
}

// Constructor builds a card from props.
type Constructor func(Props) Card

type renderFunc func(props Props, entity Entity) string

type entityCard struct {
	variant Variant
	props   Props
	render  renderFunc
	node    *Node

	entity        *Entity
	selectionMode bool
	onEdit        []func(Entity)
	onSelect      []func(Entity, bool)
}

func newEntityCard(variant Variant, render renderFunc) Constructor {
	return func(props Props) Card {
		c := &entityCard{variant: variant, props: props, render: render}
		c.node = NewNode(fmt.Sprintf("%s-card-%d", variant, props.Index))
		c.node.AddClass("card", string(variant)+"-card")
		if props.ViewMode == "detail" {
			c.node.AddClass("card-detail")
		}
		c.node.SetSize(props.Width, props.Height)
		return c
	}
}

func (c *entityCard) Variant() Variant { return c.variant }

func (c *entityCard) Props() Props { return c.props }

func (c *entityCard) SetEntity(entity Entity) {
	e := entity
	c.entity = &e
	c.node.SetLabel(c.render(c.props, entity))
	c.node.SetClass("card-empty", false)
}

func (c *entityCard) EntityID() string {
	if c.entity == nil {
		return ""
	}
	return c.entity.ID
}

func (c *entityCard) SetSelectionMode(on bool) {
	c.selectionMode = on
	c.node.SetClass("selection-mode", on)
}

func (c *entityCard) SelectionMode() bool { return c.selectionMode }

func (c *entityCard) Mount() *Node {
	if c.entity == nil {
		c.node.AddClass("card-empty")
	}
	return c.node
}

func (c *entityCard) OnEdit(fn func(Entity)) {
	if fn != nil {
		c.onEdit = append(c.onEdit, fn)
	}
}

func (c *entityCard) OnSelect(fn func(Entity, bool)) {
	if fn != nil {
		c.onSelect = append(c.onSelect, fn)
	}
}

func (c *entityCard) Edit() {
	if c.entity == nil {
		return
	}
	for _, fn := range c.onEdit {
		fn(*c.entity)
	}
}

func (c *entityCard) Select(shiftKey bool) {
	if c.entity == nil {
		return
	}
	for _, fn := range c.onSelect {
		fn(*c.entity, shiftKey)
	}
}

func sortTitle(props Props, title, sortKey string) string {
	if props.SortingIgnorePrefix && props.OrderBy != nil && *props.OrderBy == sortKey {
		return library.TitlePrefixAtEnd(title)
	}
	return title
}

func renderBook(props Props, e Entity) string {
	parts := []string{sortTitle(props, e.Title, "media.metadata.title")}
	if e.Author != "" {
		parts = append(parts, e.Author)
	}
	if props.ViewMode == "detail" {
		if e.Subtitle != "" {
			parts = append(parts, e.Subtitle)
		}
		if e.Duration > 0 {
			parts = append(parts, formatDuration(e.Duration))
		}
	}
	if e.Sequence != "" {
		parts = append(parts, "#"+e.Sequence)
	}
	return strings.Join(parts, " · ")
}

func renderSeries(props Props, e Entity) string {
	return fmt.Sprintf("%s (%s)", sortTitle(props, e.Title, "name"), pluralize(e.NumBooks, "book"))
}

func renderCollection(_ Props, e Entity) string {
	return fmt.Sprintf("%s (%s)", e.Title, pluralize(e.NumBooks, "book"))
}

func renderPlaylist(_ Props, e Entity) string {
	return fmt.Sprintf("%s (%s)", e.Title, pluralize(e.NumBooks, "item"))
}

func renderAlbum(_ Props, e Entity) string {
	if e.Author == "" {
		return e.Title
	}
	return e.Title + " · " + e.Author
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

func formatDuration(seconds float64) string {
	total := int64(seconds)
	h, m := total/3600, (total%3600)/60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
