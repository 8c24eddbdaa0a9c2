package library

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"audioshelf/internal/logging"
)

// Author is a person credited on one or more books of a library.
type Author struct {
	ID          string  `json:"id"`
	ASIN        *string `json:"asin"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ImagePath   *string `json:"imagePath"`
	AddedAt     int64   `json:"addedAt"`
	UpdatedAt   int64   `json:"updatedAt"`
	LibraryID   string  `json:"libraryId"`
}

// AuthorExpanded is the author payload broadcast with a book count.
type AuthorExpanded struct {
	Author
	NumBooks int `json:"numBooks"`
}

// AuthorMinimal is the reference embedded in book metadata.
type AuthorMinimal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuthorData seeds a new author.
type AuthorData struct {
	Name        string
	Description string
	ASIN        string
	ImagePath   string
}

// AuthorPatch lists the author keys a client may change. Identity and
// timestamps are not part of it.
type AuthorPatch struct {
	ASIN        Optional[string] `json:"asin"`
	Name        *string          `json:"name"`
	Description Optional[string] `json:"description"`
	ImagePath   Optional[string] `json:"imagePath"`
	LibraryID   *string          `json:"libraryId"`
}

// NewAuthor creates an author with a fresh id. A missing name is logged and
// stored as the empty string.
func NewAuthor(logger *slog.Logger, data AuthorData, libraryID string) *Author {
	if data.Name == "" {
		logging.ErrorWithContext(logger, "creating author without a name", "author_missing_name",
			logging.LibraryID(libraryID),
			logging.String(logging.FieldErrorHint, "check the book metadata that referenced this author"),
		)
	}
	now := time.Now().UnixMilli()
	return &Author{
		ID:          uuid.NewString(),
		ASIN:        nonEmpty(data.ASIN),
		Name:        data.Name,
		Description: nonEmpty(data.Description),
		ImagePath:   nonEmpty(data.ImagePath),
		AddedAt:     now,
		UpdatedAt:   now,
		LibraryID:   libraryID,
	}
}

// LastFirst returns the author name formatted for sorting.
func (a *Author) LastFirst() string {
	if a.Name == "" {
		return ""
	}
	return NameToLastFirst(a.Name)
}

func (a *Author) JSON() Author {
	out := *a
	out.ASIN = clonePtr(a.ASIN)
	out.Description = clonePtr(a.Description)
	out.ImagePath = clonePtr(a.ImagePath)
	return out
}

func (a *Author) JSONExpanded(numBooks int) AuthorExpanded {
	return AuthorExpanded{Author: a.JSON(), NumBooks: numBooks}
}

func (a *Author) JSONMinimal() AuthorMinimal {
	return AuthorMinimal{ID: a.ID, Name: a.Name}
}

// Update applies the keys present in patch and reports whether any value
// changed. UpdatedAt is left to the caller.
func (a *Author) Update(patch AuthorPatch) bool {
	changed := false
	if differs(patch.ASIN, a.ASIN) {
		a.ASIN = clonePtr(patch.ASIN.Value)
		changed = true
	}
	if patch.Name != nil && *patch.Name != a.Name {
		a.Name = *patch.Name
		changed = true
	}
	if differs(patch.Description, a.Description) {
		a.Description = clonePtr(patch.Description.Value)
		changed = true
	}
	if differs(patch.ImagePath, a.ImagePath) {
		a.ImagePath = clonePtr(patch.ImagePath.Value)
		changed = true
	}
	if patch.LibraryID != nil && *patch.LibraryID != a.LibraryID {
		a.LibraryID = *patch.LibraryID
		changed = true
	}
	return changed
}

// CheckNameEquals reports whether name refers to this author.
func (a *Author) CheckNameEquals(logger *slog.Logger, name string) bool {
	if name == "" {
		return false
	}
	if a.Name == "" {
		logging.ErrorWithContext(logger, "author has no name", "author_missing_name",
			logging.AuthorID(a.ID),
		)
		return false
	}
	return CheckNamesAreEqual(a.Name, name)
}
