package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"audioshelf/internal/library"
)

const authorColumns = "id, library_id, name, asin, description, image_path, added_at, updated_at"

func scanAuthor(scanner rowScanner) (*library.Author, error) {
	var (
		a           library.Author
		asin        sql.NullString
		description sql.NullString
		imagePath   sql.NullString
	)
	if err := scanner.Scan(&a.ID, &a.LibraryID, &a.Name, &asin, &description, &imagePath, &a.AddedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ASIN = stringPtr(asin)
	a.Description = stringPtr(description)
	a.ImagePath = stringPtr(imagePath)
	return &a, nil
}

// CreateAuthor inserts a new author.
func (s *Store) CreateAuthor(ctx context.Context, a *library.Author) error {
	_, err := s.exec(ctx,
		`INSERT INTO authors (`+authorColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.LibraryID, a.Name, nullableString(a.ASIN), nullableString(a.Description),
		nullableString(a.ImagePath), a.AddedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert author: %w", err)
	}
	return nil
}

// GetAuthor loads an author by id.
func (s *Store) GetAuthor(ctx context.Context, id string) (*library.Author, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+authorColumns+` FROM authors WHERE id = ?`, id)
	a, err := scanAuthor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("author %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get author: %w", err)
	}
	return a, nil
}

// AuthorByName finds another author of the same library with exactly the
// given name. It returns ErrNotFound when there is none.
func (s *Store) AuthorByName(ctx context.Context, libraryID, name, excludeID string) (*library.Author, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+authorColumns+` FROM authors WHERE library_id = ? AND name = ? AND id <> ? ORDER BY added_at LIMIT 1`,
		libraryID, name, excludeID,
	)
	a, err := scanAuthor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("author named %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find author by name: %w", err)
	}
	return a, nil
}

// AuthorWithCount pairs an author with the number of books crediting them.
type AuthorWithCount struct {
	Author   *library.Author
	NumBooks int
}

// ListAuthors returns the authors of a library ordered by name.
func (s *Store) ListAuthors(ctx context.Context, libraryID string) ([]AuthorWithCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.library_id, a.name, a.asin, a.description, a.image_path, a.added_at, a.updated_at,
		        (SELECT COUNT(1) FROM book_authors ba WHERE ba.author_id = a.id)
		   FROM authors a
		  WHERE a.library_id = ?
		  ORDER BY a.name COLLATE NOCASE`,
		libraryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()
	var out []AuthorWithCount
	for rows.Next() {
		var (
			a           library.Author
			asin        sql.NullString
			description sql.NullString
			imagePath   sql.NullString
			count       int
		)
		if err := rows.Scan(&a.ID, &a.LibraryID, &a.Name, &asin, &description, &imagePath, &a.AddedAt, &a.UpdatedAt, &count); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		a.ASIN = stringPtr(asin)
		a.Description = stringPtr(description)
		a.ImagePath = stringPtr(imagePath)
		out = append(out, AuthorWithCount{Author: &a, NumBooks: count})
	}
	return out, rows.Err()
}

// UpdateAuthor persists every mutable author column.
func (s *Store) UpdateAuthor(ctx context.Context, a *library.Author) error {
	res, err := s.exec(ctx,
		`UPDATE authors SET library_id = ?, name = ?, asin = ?, description = ?, image_path = ?, updated_at = ? WHERE id = ?`,
		a.LibraryID, a.Name, nullableString(a.ASIN), nullableString(a.Description), nullableString(a.ImagePath), a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update author: %w", err)
	}
	return requireAffected(res, "author "+a.ID)
}

// DeleteAuthor removes an author; book credits go with it.
func (s *Store) DeleteAuthor(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM authors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete author: %w", err)
	}
	return requireAffected(res, "author "+id)
}

// CountBooksForAuthor returns how many books credit the author.
func (s *Store) CountBooksForAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM book_authors WHERE author_id = ?`, authorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books for author: %w", err)
	}
	return n, nil
}

// MergeAuthor moves every credit of fromID onto toID and deletes fromID, in
// one transaction. Books already crediting toID keep a single credit.
func (s *Store) MergeAuthor(ctx context.Context, fromID, toID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO book_authors (book_id, author_id, position)
			 SELECT book_id, ?, position FROM book_authors WHERE author_id = ?`,
			toID, fromID,
		); err != nil {
			return fmt.Errorf("move book credits: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM book_authors WHERE author_id = ?`, fromID); err != nil {
			return fmt.Errorf("remove old book credits: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM authors WHERE id = ?`, fromID)
		if err != nil {
			return fmt.Errorf("remove merged author: %w", err)
		}
		return requireAffected(res, "author "+fromID)
	})
}
