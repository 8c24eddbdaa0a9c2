package library

import (
	"time"

	"github.com/google/uuid"
)

// Folder is a directory on the server that a library scans.
type Folder struct {
	ID        string `json:"id"`
	FullPath  string `json:"fullPath"`
	LibraryID string `json:"libraryId"`
	AddedAt   int64  `json:"addedAt"`
}

// NewFolder keeps the supplied id when present and generates one otherwise.
func NewFolder(id, fullPath, libraryID string) *Folder {
	if id == "" {
		id = uuid.NewString()
	}
	return &Folder{
		ID:        id,
		FullPath:  fullPath,
		LibraryID: libraryID,
		AddedAt:   time.Now().UnixMilli(),
	}
}
