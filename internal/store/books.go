package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"audioshelf/internal/library"
)

const bookColumns = "b.id, b.library_id, b.folder_id, b.path, b.title, b.subtitle, b.description, b.asin, b.isbn, b.cover_path, b.duration, b.explicit, b.audio_files_json, b.added_at, b.updated_at"

// Sort keys understood by ListBooks.
const (
	SortTitle      = "media.metadata.title"
	SortAuthorName = "media.metadata.authorName"
	SortAddedAt    = "addedAt"
	SortDuration   = "media.duration"
)

// BookQuery filters and orders a library's books. FilterBy accepts
// "authors.<id>" and "series.<id>"; anything else lists every book.
type BookQuery struct {
	FilterBy     string
	OrderBy      string
	Desc         bool
	IgnorePrefix bool
}

func scanBook(scanner rowScanner) (*library.Book, error) {
	var (
		b           library.Book
		folderID    sql.NullString
		subtitle    sql.NullString
		description sql.NullString
		asin        sql.NullString
		isbn        sql.NullString
		coverPath   sql.NullString
		explicit    int
		audioFiles  string
	)
	if err := scanner.Scan(
		&b.ID, &b.LibraryID, &folderID, &b.Path, &b.Title, &subtitle, &description,
		&asin, &isbn, &coverPath, &b.Duration, &explicit, &audioFiles, &b.AddedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.FolderID = folderID.String
	b.Subtitle = subtitle.String
	b.Description = stringPtr(description)
	b.ASIN = stringPtr(asin)
	b.ISBN = stringPtr(isbn)
	b.CoverPath = stringPtr(coverPath)
	b.Explicit = explicit != 0
	if audioFiles != "" {
		if err := json.Unmarshal([]byte(audioFiles), &b.AudioFiles); err != nil {
			return nil, fmt.Errorf("decode audio files for book %s: %w", b.ID, err)
		}
	}
	b.Authors = []library.AuthorMinimal{}
	b.Series = []library.SeriesSequence{}
	return &b, nil
}

// CreateBook inserts a book with its author credits and series positions.
// Referenced authors and series must already exist.
func (s *Store) CreateBook(ctx context.Context, b *library.Book) error {
	audioFiles, err := encodeAudioFiles(b.AudioFiles)
	if err != nil {
		return err
	}
	var folderID any
	if b.FolderID != "" {
		folderID = b.FolderID
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO books (id, library_id, folder_id, path, title, subtitle, description, asin, isbn, cover_path,
			                    duration, explicit, audio_files_json, added_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.LibraryID, folderID, b.Path, b.Title, b.Subtitle, nullableString(b.Description),
			nullableString(b.ASIN), nullableString(b.ISBN), nullableString(b.CoverPath),
			b.Duration, boolToInt(b.Explicit), audioFiles, b.AddedAt, b.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert book: %w", err)
		}
		for i, a := range b.Authors {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO book_authors (book_id, author_id, position) VALUES (?, ?, ?)`, b.ID, a.ID, i,
			); err != nil {
				return fmt.Errorf("insert book author: %w", err)
			}
		}
		for _, series := range b.Series {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO book_series (book_id, series_id, sequence) VALUES (?, ?, ?)`, b.ID, series.ID, series.Sequence,
			); err != nil {
				return fmt.Errorf("insert book series: %w", err)
			}
		}
		return nil
	})
}

// GetBook loads a book with its credits, series and audio files.
func (s *Store) GetBook(ctx context.Context, id string) (*library.Book, error) {
	b, err := scanBook(s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books b WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if err := s.loadBookRelations(ctx, []*library.Book{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// BooksForAuthor returns every book crediting the author, ordered by title.
func (s *Store) BooksForAuthor(ctx context.Context, authorID string) ([]*library.Book, error) {
	return s.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books b
		   JOIN book_authors ba ON ba.book_id = b.id
		  WHERE ba.author_id = ?
		  ORDER BY b.title COLLATE NOCASE`,
		authorID,
	)
}

// BooksForSeries returns the books of a series ordered by sequence.
func (s *Store) BooksForSeries(ctx context.Context, seriesID string) ([]*library.Book, error) {
	books, err := s.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books b
		   JOIN book_series bs ON bs.book_id = b.id
		  WHERE bs.series_id = ?`,
		seriesID,
	)
	if err != nil {
		return nil, err
	}
	library.SortNatural(books, func(b *library.Book) string {
		seq, _ := b.SeriesSequenceFor(seriesID)
		return seq.Sequence
	})
	return books, nil
}

// BooksByIDs returns the books with the given ids in the order requested.
// Unknown ids are skipped.
func (s *Store) BooksByIDs(ctx context.Context, ids []string) ([]*library.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	books, err := s.queryBooks(ctx, `SELECT `+bookColumns+` FROM books b WHERE b.id IN (`+makePlaceholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*library.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	out := make([]*library.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListBooks returns a library's books filtered and sorted for display.
func (s *Store) ListBooks(ctx context.Context, libraryID string, q BookQuery) ([]*library.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books b`
	args := []any{}
	switch kind, value, _ := strings.Cut(q.FilterBy, "."); kind {
	case "authors":
		query += ` JOIN book_authors ba ON ba.book_id = b.id AND ba.author_id = ?`
		args = append(args, value)
	case "series":
		query += ` JOIN book_series bs ON bs.book_id = b.id AND bs.series_id = ?`
		args = append(args, value)
	}
	query += ` WHERE b.library_id = ?`
	args = append(args, libraryID)

	switch q.OrderBy {
	case SortAddedAt:
		query += ` ORDER BY b.added_at`
	case SortDuration:
		query += ` ORDER BY b.duration`
	default:
		query += ` ORDER BY b.title COLLATE NOCASE`
	}
	if q.Desc {
		query += ` DESC`
	}
	query += `, b.id`

	books, err := s.queryBooks(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	sortBooks(books, q)
	return books, nil
}

func sortBooks(books []*library.Book, q BookQuery) {
	var key func(*library.Book) string
	switch {
	case q.OrderBy == SortAuthorName:
		key = func(b *library.Book) string { return strings.ToLower(b.AuthorName()) }
	case (q.OrderBy == SortTitle || q.OrderBy == "") && q.IgnorePrefix:
		key = func(b *library.Book) string { return strings.ToLower(b.TitleIgnorePrefix()) }
	default:
		return
	}
	sort.SliceStable(books, func(i, j int) bool {
		if q.Desc {
			return key(books[i]) > key(books[j])
		}
		return key(books[i]) < key(books[j])
	})
}

// UpdateBookAudioFiles persists the audio tracks and derived duration.
func (s *Store) UpdateBookAudioFiles(ctx context.Context, b *library.Book) error {
	audioFiles, err := encodeAudioFiles(b.AudioFiles)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx,
		`UPDATE books SET audio_files_json = ?, duration = ?, updated_at = ? WHERE id = ?`,
		audioFiles, b.Duration, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update book audio files: %w", err)
	}
	return requireAffected(res, "book "+b.ID)
}

func encodeAudioFiles(files []library.AudioFile) (string, error) {
	if files == nil {
		files = []library.AudioFile{}
	}
	data, err := json.Marshal(files)
	if err != nil {
		return "", fmt.Errorf("encode audio files: %w", err)
	}
	return string(data), nil
}

func (s *Store) queryBooks(ctx context.Context, query string, args ...any) ([]*library.Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	var books []*library.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	rows.Close()
	if err := s.loadBookRelations(ctx, books); err != nil {
		return nil, err
	}
	return books, nil
}

// loadBookRelations fills author credits and series positions for books.
func (s *Store) loadBookRelations(ctx context.Context, books []*library.Book) error {
	if len(books) == 0 {
		return nil
	}
	byID := make(map[string]*library.Book, len(books))
	args := make([]any, 0, len(books))
	for _, b := range books {
		byID[b.ID] = b
		args = append(args, b.ID)
	}
	placeholders := makePlaceholders(len(args))

	authorRows, err := s.db.QueryContext(ctx,
		`SELECT ba.book_id, a.id, a.name FROM book_authors ba
		   JOIN authors a ON a.id = ba.author_id
		  WHERE ba.book_id IN (`+placeholders+`)
		  ORDER BY ba.book_id, ba.position`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("load book authors: %w", err)
	}
	for authorRows.Next() {
		var bookID string
		var a library.AuthorMinimal
		if err := authorRows.Scan(&bookID, &a.ID, &a.Name); err != nil {
			authorRows.Close()
			return fmt.Errorf("scan book author: %w", err)
		}
		byID[bookID].Authors = append(byID[bookID].Authors, a)
	}
	authorRows.Close()
	if err := authorRows.Err(); err != nil {
		return fmt.Errorf("iterate book authors: %w", err)
	}

	seriesRows, err := s.db.QueryContext(ctx,
		`SELECT bs.book_id, s.id, s.name, bs.sequence FROM book_series bs
		   JOIN series s ON s.id = bs.series_id
		  WHERE bs.book_id IN (`+placeholders+`)
		  ORDER BY bs.book_id, s.name`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("load book series: %w", err)
	}
	defer seriesRows.Close()
	for seriesRows.Next() {
		var bookID string
		var seq library.SeriesSequence
		if err := seriesRows.Scan(&bookID, &seq.ID, &seq.Name, &seq.Sequence); err != nil {
			return fmt.Errorf("scan book series: %w", err)
		}
		byID[bookID].Series = append(byID[bookID].Series, seq)
	}
	return seriesRows.Err()
}
