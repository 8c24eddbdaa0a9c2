package library

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaType distinguishes book libraries from podcast libraries.
type MediaType string

const (
	MediaTypeBook    MediaType = "book"
	MediaTypePodcast MediaType = "podcast"
)

// Library is a named set of folders sharing one media type and settings.
type Library struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	MediaType MediaType       `json:"mediaType"`
	Settings  LibrarySettings `json:"settings"`
	Folders   []Folder        `json:"folders"`
	CreatedAt int64           `json:"createdAt"`
}

func NewLibrary(name string, mediaType MediaType) *Library {
	if mediaType == "" {
		mediaType = MediaTypeBook
	}
	return &Library{
		ID:        uuid.NewString(),
		Name:      name,
		MediaType: mediaType,
		Settings:  DefaultLibrarySettings(),
		Folders:   []Folder{},
		CreatedAt: time.Now().UnixMilli(),
	}
}

// Collection is a curated, ordered set of books in one library.
type Collection struct {
	ID          string   `json:"id"`
	LibraryID   string   `json:"libraryId"`
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	BookIDs     []string `json:"books"`
	CreatedAt   int64    `json:"createdAt"`
}

// Playlist is a user's ordered listening queue.
type Playlist struct {
	ID          string   `json:"id"`
	LibraryID   string   `json:"libraryId"`
	UserID      string   `json:"userId"`
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	BookIDs     []string `json:"items"`
	CreatedAt   int64    `json:"createdAt"`
}

// CustomMetadataProvider is an operator-registered search endpoint.
type CustomMetadataProvider struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	MediaType       MediaType `json:"mediaType"`
	URL             string    `json:"url"`
	AuthHeaderValue string    `json:"-"`
}

const customProviderPrefix = "custom-"

// Slug is the identifier clients pass to select this provider.
func (p *CustomMetadataProvider) Slug() string {
	return customProviderPrefix + p.ID
}

// ProviderIDFromSlug extracts the provider id from "custom-<id>".
func ProviderIDFromSlug(slug string) (string, bool) {
	id, ok := strings.CutPrefix(slug, customProviderPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
