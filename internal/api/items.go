package api

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"audioshelf/internal/events"
	"audioshelf/internal/library"
	"audioshelf/internal/logging"
	"audioshelf/internal/store"
)

const missingFileError = "file missing from disk"

// ItemStore is the persistence the item service needs.
type ItemStore interface {
	GetBook(ctx context.Context, id string) (*library.Book, error)
	ListBooks(ctx context.Context, libraryID string, q store.BookQuery) ([]*library.Book, error)
	UpdateBookAudioFiles(ctx context.Context, b *library.Book) error
}

// ItemService exposes library items and their audio files.
type ItemService struct {
	store  ItemStore
	events events.Emitter
	logger *slog.Logger
	now    func() time.Time
	stat   func(string) (os.FileInfo, error)
}

func NewItemService(st ItemStore, emitter events.Emitter, logger *slog.Logger) *ItemService {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &ItemService{
		store:  st,
		events: emitter,
		logger: logging.NewComponentLogger(logger, "items"),
		now:    time.Now,
		stat:   os.Stat,
	}
}

// AudioFilesResult is the response of ReplaceAudioFiles.
type AudioFilesResult struct {
	Item    *library.Book `json:"libraryItem"`
	Updated bool          `json:"updated"`
}

// Get returns a book with its audio files.
func (s *ItemService) Get(ctx context.Context, id string) (*library.Book, error) {
	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, fromStore(err)
	}
	return book, nil
}

// ReplaceAudioFiles merges a scan result into the book's tracks. Tracks are
// matched by inode; tracks absent from the scan are marked invalid.
func (s *ItemService) ReplaceAudioFiles(ctx context.Context, id string, scanned []library.AudioFile) (*AudioFilesResult, error) {
	for _, f := range scanned {
		if f.Ino == "" {
			return nil, invalidf("audio file %q has no inode", f.Metadata.Path)
		}
	}
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := book.ReplaceAudioFiles(scanned, s.now().UnixMilli())
	if updated {
		if err := s.store.UpdateBookAudioFiles(ctx, book); err != nil {
			return nil, fromStore(err)
		}
		s.events.Emit(events.ItemUpdated, book)
		s.logger.Info("audio files replaced",
			logging.ItemID(book.ID),
			logging.Int("tracks", len(book.AudioFiles)),
			logging.Int("valid_tracks", len(book.ValidTracks())),
		)
	}
	return &AudioFilesResult{Item: book, Updated: updated}, nil
}

// CheckFiles marks the audio files of a library whose paths no longer exist
// as invalid and broadcasts the affected books. It returns how many books
// changed.
func (s *ItemService) CheckFiles(ctx context.Context, libraryID string) (int, error) {
	books, err := s.store.ListBooks(ctx, libraryID, store.BookQuery{})
	if err != nil {
		return 0, err
	}
	now := s.now().UnixMilli()
	var changed []*library.Book
	for _, book := range books {
		if err := ctx.Err(); err != nil {
			return len(changed), err
		}
		if !s.markMissing(book, now) {
			continue
		}
		if err := s.store.UpdateBookAudioFiles(ctx, book); err != nil {
			return len(changed), fromStore(err)
		}
		changed = append(changed, book)
	}
	if len(changed) > 0 {
		s.events.Emit(events.ItemsUpdated, changed)
		logging.WarnWithContext(s.logger, "audio files missing from disk", "audio_files_missing",
			logging.LibraryID(libraryID),
			logging.Int("items", len(changed)),
			logging.String(logging.FieldErrorHint, "rescan the library folder or restore the files"),
		)
	}
	return len(changed), nil
}

func (s *ItemService) markMissing(book *library.Book, now int64) bool {
	changed := false
	for i := range book.AudioFiles {
		f := &book.AudioFiles[i]
		if f.Invalid || f.Metadata.Path == "" {
			continue
		}
		if _, err := s.stat(f.Metadata.Path); err == nil || !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		msg := missingFileError
		f.Invalid = true
		f.Error = &msg
		f.UpdatedAt = now
		changed = true
	}
	if changed {
		var total float64
		for _, f := range book.ValidTracks() {
			total += f.Duration
		}
		book.Duration = total
		book.UpdatedAt = now
	}
	return changed
}
