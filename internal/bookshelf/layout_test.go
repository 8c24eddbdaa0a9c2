package bookshelf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audioshelf/internal/bookshelf"
)

func testLayout() bookshelf.Layout {
	return bookshelf.Layout{
		EntitiesPerShelf: 4,
		CardWidth:        150,
		CardHeight:       240,
		CardGap:          20,
		MarginLeft:       10,
		CoverAspectRatio: 1.6,
		ViewMode:         "standard",
	}
}

func TestPlaceConcreteScenario(t *testing.T) {
	pos := bookshelf.Place(6, testLayout())
	assert.Equal(t, bookshelf.ShelfPosition{Shelf: 1, Row: 2, OffsetX: 350, OffsetY: 16}, pos)
	assert.Equal(t, "translate3d(350px, 16px, 0px)", pos.Transform())
}

func TestPlaceShelfBoundaries(t *testing.T) {
	layout := testLayout()
	for k := 0; k < 10; k++ {
		pos := bookshelf.Place(layout.EntitiesPerShelf*k, layout)
		assert.Equal(t, k, pos.Shelf)
		assert.Equal(t, 0, pos.Row)
		assert.Equal(t, layout.MarginLeft, pos.OffsetX)
	}
}

func TestPlaceIsDeterministic(t *testing.T) {
	layout := testLayout()
	for i := 0; i < 50; i++ {
		assert.Equal(t, bookshelf.Place(i, layout), bookshelf.Place(i, layout))
	}
}

func TestLayoutValidate(t *testing.T) {
	layout := testLayout()
	require.NoError(t, layout.Validate())

	layout.EntitiesPerShelf = 0
	require.Error(t, layout.Validate())

	layout = testLayout()
	layout.CardGap = -1
	require.Error(t, layout.Validate())
}

func TestShelfHelpers(t *testing.T) {
	layout := testLayout()
	assert.Equal(t, "shelf-3", bookshelf.ShelfContainerID(3))
	assert.Equal(t, 0, bookshelf.ShelfCount(0, layout))
	assert.Equal(t, 1, bookshelf.ShelfCount(4, layout))
	assert.Equal(t, 2, bookshelf.ShelfCount(5, layout))
	assert.Equal(t, "translate3d(10.5px, 16px, 0px)", bookshelf.ShelfPosition{OffsetX: 10.5, OffsetY: 16}.Transform())
}
