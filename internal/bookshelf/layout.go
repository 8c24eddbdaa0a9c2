package bookshelf

import (
	"errors"
	"fmt"
)

// ShelfTopMargin is the vertical offset of every card within its shelf.
const ShelfTopMargin = 16.0

// Layout carries the shared presentation parameters of a bookshelf view.
type Layout struct {
	EntitiesPerShelf    int
	CardWidth           float64
	CardHeight          float64
	CardGap             float64
	MarginLeft          float64
	CoverAspectRatio    float64
	ViewMode            string
	SortingIgnorePrefix bool
}

// Validate checks the layout can place cards.
func (l Layout) Validate() error {
	if l.EntitiesPerShelf <= 0 {
		return fmt.Errorf("entities per shelf must be positive, got %d", l.EntitiesPerShelf)
	}
	if l.CardWidth <= 0 || l.CardHeight <= 0 {
		return errors.New("card dimensions must be positive")
	}
	if l.CardGap < 0 || l.MarginLeft < 0 {
		return errors.New("card gap and left margin must not be negative")
	}
	return nil
}

// TotalCardWidth is the horizontal stride between neighbouring cards.
func (l Layout) TotalCardWidth() float64 {
	return l.CardWidth + l.CardGap
}

// ShelfPosition locates a card on the bookshelf.
type ShelfPosition struct {
	Shelf   int     `json:"shelf"`
	Row     int     `json:"row"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Place computes where the card for index goes. The layout must have been
// validated; a non-positive EntitiesPerShelf panics on division.
func Place(index int, layout Layout) ShelfPosition {
	row := index % layout.EntitiesPerShelf
	return ShelfPosition{
		Shelf:   index / layout.EntitiesPerShelf,
		Row:     row,
		OffsetX: float64(row)*layout.TotalCardWidth() + layout.MarginLeft,
		OffsetY: ShelfTopMargin,
	}
}

// Transform renders the CSS-style translation applied to a mounted card.
func (p ShelfPosition) Transform() string {
	return fmt.Sprintf("translate3d(%spx, %spx, 0px)", formatPx(p.OffsetX), formatPx(p.OffsetY))
}

// ShelfContainerID names the render node a shelf's cards attach to.
func ShelfContainerID(shelf int) string {
	return fmt.Sprintf("shelf-%d", shelf)
}

// ShelfCount returns how many shelves hold total entities.
func ShelfCount(total int, layout Layout) int {
	if total <= 0 {
		return 0
	}
	return (total + layout.EntitiesPerShelf - 1) / layout.EntitiesPerShelf
}

func formatPx(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
