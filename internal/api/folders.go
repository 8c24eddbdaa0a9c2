package api

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"audioshelf/internal/events"
	"audioshelf/internal/library"
	"audioshelf/internal/logging"
)

// FolderStore is the persistence the folder service needs.
type FolderStore interface {
	GetLibrary(ctx context.Context, id string) (*library.Library, error)
	GetFolder(ctx context.Context, id string) (*library.Folder, error)
	ListFolders(ctx context.Context, libraryID string) ([]library.Folder, error)
	AddFolder(ctx context.Context, folder *library.Folder) error
	RemoveFolder(ctx context.Context, id string) error
}

// FolderService manages the folders a library scans.
type FolderService struct {
	store  FolderStore
	events events.Emitter
	logger *slog.Logger
}

func NewFolderService(st FolderStore, emitter events.Emitter, logger *slog.Logger) *FolderService {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &FolderService{store: st, events: emitter, logger: logging.NewComponentLogger(logger, "folders")}
}

// List returns the folders of a library.
func (s *FolderService) List(ctx context.Context, libraryID string) ([]library.Folder, error) {
	if _, err := s.store.GetLibrary(ctx, libraryID); err != nil {
		return nil, fromStore(err)
	}
	return s.store.ListFolders(ctx, libraryID)
}

// Add registers fullPath as a folder of the library. The path must be
// absolute and is stored cleaned.
func (s *FolderService) Add(ctx context.Context, libraryID, fullPath string) (*library.Folder, error) {
	fullPath = strings.TrimSpace(fullPath)
	if fullPath == "" {
		return nil, invalidf("folder path is required")
	}
	if !filepath.IsAbs(fullPath) {
		return nil, invalidf("folder path %q must be absolute", fullPath)
	}
	if _, err := s.store.GetLibrary(ctx, libraryID); err != nil {
		return nil, fromStore(err)
	}
	folder := library.NewFolder("", filepath.Clean(fullPath), libraryID)
	if err := s.store.AddFolder(ctx, folder); err != nil {
		return nil, fromStore(err)
	}
	s.logger.Info("folder added",
		logging.LibraryID(libraryID),
		logging.String("path", folder.FullPath),
	)
	s.broadcastLibrary(ctx, libraryID)
	return folder, nil
}

// Remove deletes a folder and the books scanned from it.
func (s *FolderService) Remove(ctx context.Context, id string) error {
	folder, err := s.store.GetFolder(ctx, id)
	if err != nil {
		return fromStore(err)
	}
	if err := s.store.RemoveFolder(ctx, id); err != nil {
		return fromStore(err)
	}
	s.logger.Info("folder removed",
		logging.LibraryID(folder.LibraryID),
		logging.String("path", folder.FullPath),
	)
	s.broadcastLibrary(ctx, folder.LibraryID)
	return nil
}

func (s *FolderService) broadcastLibrary(ctx context.Context, libraryID string) {
	lib, err := s.store.GetLibrary(ctx, libraryID)
	if err != nil {
		logging.WarnWithContext(s.logger, "library reload failed", "library_reload_failed",
			logging.LibraryID(libraryID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "clients keep a stale folder list until refresh"),
		)
		return
	}
	s.events.Emit(events.LibraryUpdated, lib)
}
