package library

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Series groups books that are read in sequence.
type Series struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	AddedAt     int64   `json:"addedAt"`
	UpdatedAt   int64   `json:"updatedAt"`
	LibraryID   string  `json:"libraryId"`
}

// SeriesJSON adds the display name with its leading article moved to the end.
type SeriesJSON struct {
	Series
	NameIgnorePrefix string `json:"nameIgnorePrefix"`
}

// SeriesSequence references a series from a book together with the book's
// position in it.
type SeriesSequence struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Sequence string `json:"sequence"`
}

type SeriesPatch struct {
	Name        *string          `json:"name"`
	Description Optional[string] `json:"description"`
}

func NewSeries(name, description, libraryID string) *Series {
	now := time.Now().UnixMilli()
	return &Series{
		ID:          uuid.NewString(),
		Name:        name,
		Description: nonEmpty(description),
		AddedAt:     now,
		UpdatedAt:   now,
		LibraryID:   libraryID,
	}
}

// NameIgnorePrefix is the sort key: the name without a leading article.
func (s *Series) NameIgnorePrefix() string {
	if s.Name == "" {
		return ""
	}
	return TitleIgnorePrefix(s.Name)
}

func (s *Series) JSON() SeriesJSON {
	out := *s
	out.Description = clonePtr(s.Description)
	return SeriesJSON{Series: out, NameIgnorePrefix: TitlePrefixAtEnd(s.Name)}
}

func (s *Series) JSONMinimal(sequence string) SeriesSequence {
	return SeriesSequence{ID: s.ID, Name: s.Name, Sequence: sequence}
}

// Update applies name and description changes and reports whether anything
// changed.
func (s *Series) Update(patch SeriesPatch) bool {
	changed := false
	if patch.Name != nil && *patch.Name != s.Name {
		s.Name = *patch.Name
		changed = true
	}
	if differs(patch.Description, s.Description) {
		s.Description = clonePtr(patch.Description.Value)
		changed = true
	}
	return changed
}

// CheckNameEquals compares case-insensitively; name is trimmed first.
func (s *Series) CheckNameEquals(name string) bool {
	if name == "" || s.Name == "" {
		return false
	}
	return strings.ToLower(s.Name) == strings.ToLower(strings.TrimSpace(name))
}
