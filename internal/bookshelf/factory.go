package bookshelf

import (
	"context"
	"fmt"
)

// Resolver supplies the constructor for a variant. Resolution may block,
// for example while a card implementation is loaded lazily.
type Resolver interface {
	Resolve(ctx context.Context, variant Variant) (Constructor, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, variant Variant) (Constructor, error)

func (f ResolverFunc) Resolve(ctx context.Context, variant Variant) (Constructor, error) {
	return f(ctx, variant)
}

// StaticResolver resolves from the built-in card registry without blocking.
type StaticResolver struct{}

var builtinCards = map[Variant]Constructor{
	VariantBook:       newEntityCard(VariantBook, renderBook),
	VariantSeries:     newEntityCard(VariantSeries, renderSeries),
	VariantCollection: newEntityCard(VariantCollection, renderCollection),
	VariantPlaylist:   newEntityCard(VariantPlaylist, renderPlaylist),
	VariantAlbum:      newEntityCard(VariantAlbum, renderAlbum),
}

func (StaticResolver) Resolve(_ context.Context, variant Variant) (Constructor, error) {
	ctor, ok := builtinCards[normalizeVariant(variant)]
	if !ok {
		return nil, fmt.Errorf("no card registered for variant %q", variant)
	}
	return ctor, nil
}

// Factory creates cards and wires their interactions to the owning view.
type Factory struct {
	resolver Resolver
}

// NewFactory returns a factory backed by resolver, or by the built-in
// registry when resolver is nil.
func NewFactory(resolver Resolver) *Factory {
	if resolver == nil {
		resolver = StaticResolver{}
	}
	return &Factory{resolver: resolver}
}

// Create builds a card for variant. Unknown variants produce a book card.
func (f *Factory) Create(ctx context.Context, variant Variant, props Props, callbacks Callbacks) (Card, error) {
	variant = normalizeVariant(variant)
	ctor, err := f.resolver.Resolve(ctx, variant)
	if err != nil {
		return nil, fmt.Errorf("resolve %s card: %w", variant, err)
	}
	card := ctor(props)
	card.OnEdit(func(e Entity) {
		if callbacks.Edit != nil {
			callbacks.Edit(e)
		}
	})
	card.OnSelect(func(e Entity, shiftKey bool) {
		if callbacks.Select != nil {
			callbacks.Select(e, shiftKey)
		}
	})
	return card, nil
}

// BuiltinConstructor exposes the registry entry for variant, falling back
// to the book card. Custom resolvers wrap it.
func BuiltinConstructor(variant Variant) Constructor {
	return builtinCards[normalizeVariant(variant)]
}
