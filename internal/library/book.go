package library

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Book is a library item: one audiobook with its authors, series
// memberships and audio tracks.
type Book struct {
	ID          string           `json:"id"`
	LibraryID   string           `json:"libraryId"`
	FolderID    string           `json:"folderId"`
	Path        string           `json:"path"`
	Title       string           `json:"title"`
	Subtitle    string           `json:"subtitle,omitempty"`
	Description *string          `json:"description"`
	ASIN        *string          `json:"asin"`
	ISBN        *string          `json:"isbn"`
	CoverPath   *string          `json:"coverPath"`
	Duration    float64          `json:"duration"`
	Explicit    bool             `json:"explicit"`
	AddedAt     int64            `json:"addedAt"`
	UpdatedAt   int64            `json:"updatedAt"`
	Authors     []AuthorMinimal  `json:"authors"`
	Series      []SeriesSequence `json:"series"`
	AudioFiles  []AudioFile      `json:"audioFiles,omitempty"`
}

// BookMinified is the list representation without audio files.
type BookMinified struct {
	ID         string           `json:"id"`
	LibraryID  string           `json:"libraryId"`
	Title      string           `json:"title"`
	Subtitle   string           `json:"subtitle,omitempty"`
	AuthorName string           `json:"authorName"`
	CoverPath  *string          `json:"coverPath"`
	Duration   float64          `json:"duration"`
	NumTracks  int              `json:"numTracks"`
	AddedAt    int64            `json:"addedAt"`
	Series     []SeriesSequence `json:"series"`
}

func NewBook(libraryID, folderID, path, title string) *Book {
	now := time.Now().UnixMilli()
	return &Book{
		ID:        uuid.NewString(),
		LibraryID: libraryID,
		FolderID:  folderID,
		Path:      path,
		Title:     title,
		AddedAt:   now,
		UpdatedAt: now,
		Authors:   []AuthorMinimal{},
		Series:    []SeriesSequence{},
	}
}

// AuthorName joins the credited authors with commas.
func (b *Book) AuthorName() string {
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// TitleIgnorePrefix is the sort title without a leading article.
func (b *Book) TitleIgnorePrefix() string {
	return TitleIgnorePrefix(b.Title)
}

// ValidTracks returns the audio files that take part in playback.
func (b *Book) ValidTracks() []AudioFile {
	out := make([]AudioFile, 0, len(b.AudioFiles))
	for _, f := range b.AudioFiles {
		if f.IsValidTrack() {
			out = append(out, f)
		}
	}
	return out
}

// ReplaceAuthor swaps one credited author for another, dropping the old
// reference when the new author is already credited.
func (b *Book) ReplaceAuthor(old, replacement AuthorMinimal) {
	hasReplacement := slices.ContainsFunc(b.Authors, func(a AuthorMinimal) bool { return a.ID == replacement.ID })
	out := b.Authors[:0]
	for _, a := range b.Authors {
		if a.ID == old.ID {
			if hasReplacement {
				continue
			}
			a = replacement
			hasReplacement = true
		}
		out = append(out, a)
	}
	b.Authors = out
}

// RenameAuthor updates the cached display name of a credited author.
func (b *Book) RenameAuthor(author AuthorMinimal) {
	for i := range b.Authors {
		if b.Authors[i].ID == author.ID {
			b.Authors[i].Name = author.Name
		}
	}
}

// SeriesSequenceFor returns the book's position within the series.
func (b *Book) SeriesSequenceFor(seriesID string) (SeriesSequence, bool) {
	for _, s := range b.Series {
		if s.ID == seriesID {
			return s, true
		}
	}
	return SeriesSequence{}, false
}

func (b *Book) Minified() BookMinified {
	return BookMinified{
		ID:         b.ID,
		LibraryID:  b.LibraryID,
		Title:      b.Title,
		Subtitle:   b.Subtitle,
		AuthorName: b.AuthorName(),
		CoverPath:  clonePtr(b.CoverPath),
		Duration:   b.Duration,
		NumTracks:  len(b.ValidTracks()),
		AddedAt:    b.AddedAt,
		Series:     slices.Clone(b.Series),
	}
}

// ReplaceAudioFiles merges scanned tracks into the book keyed by inode.
// Tracks missing from the scan are marked invalid; new tracks are appended.
// It reports whether anything changed.
func (b *Book) ReplaceAudioFiles(scanned []AudioFile, now int64) bool {
	byIno := make(map[string]*AudioFile, len(scanned))
	for i := range scanned {
		byIno[scanned[i].Ino] = &scanned[i]
	}
	changed := false
	seen := make(map[string]struct{}, len(b.AudioFiles))
	for i := range b.AudioFiles {
		existing := &b.AudioFiles[i]
		seen[existing.Ino] = struct{}{}
		match, ok := byIno[existing.Ino]
		if !ok {
			if !existing.Invalid {
				existing.Invalid = true
				existing.UpdatedAt = now
				changed = true
			}
			continue
		}
		if existing.UpdateFromScan(match) {
			existing.UpdatedAt = now
			changed = true
		}
	}
	for _, f := range scanned {
		if _, ok := seen[f.Ino]; ok {
			continue
		}
		added := f.Clone()
		added.AddedAt = now
		added.UpdatedAt = now
		b.AudioFiles = append(b.AudioFiles, *added)
		changed = true
	}
	if changed {
		var total float64
		for _, f := range b.ValidTracks() {
			total += f.Duration
		}
		b.Duration = total
		b.UpdatedAt = now
	}
	return changed
}
