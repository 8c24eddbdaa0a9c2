package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"audioshelf/internal/library"
)

// CollectionWithCount pairs a collection with its book count.
type CollectionWithCount struct {
	Collection *library.Collection
	NumBooks   int
}

// CreateCollection inserts a collection and its ordered books.
func (s *Store) CreateCollection(ctx context.Context, c *library.Collection) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO collections (id, library_id, name, description, created_at) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.LibraryID, c.Name, nullableString(c.Description), c.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert collection: %w", err)
		}
		for i, bookID := range c.BookIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO collection_books (collection_id, book_id, position) VALUES (?, ?, ?)`, c.ID, bookID, i,
			); err != nil {
				return fmt.Errorf("insert collection book: %w", err)
			}
		}
		return nil
	})
}

// GetCollection loads a collection with its book ids in order.
func (s *Store) GetCollection(ctx context.Context, id string) (*library.Collection, error) {
	var (
		c           library.Collection
		description sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, library_id, name, description, created_at FROM collections WHERE id = ?`, id,
	).Scan(&c.ID, &c.LibraryID, &c.Name, &description, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	c.Description = stringPtr(description)
	c.BookIDs, err = s.orderedIDs(ctx,
		`SELECT book_id FROM collection_books WHERE collection_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCollections returns a library's collections ordered by name.
func (s *Store) ListCollections(ctx context.Context, libraryID string) ([]CollectionWithCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.library_id, c.name, c.description, c.created_at,
		        (SELECT COUNT(*) FROM collection_books cb WHERE cb.collection_id = c.id)
		   FROM collections c
		  WHERE c.library_id = ?
		  ORDER BY c.name COLLATE NOCASE`,
		libraryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()
	var out []CollectionWithCount
	for rows.Next() {
		var (
			c           library.Collection
			description sql.NullString
			count       int
		)
		if err := rows.Scan(&c.ID, &c.LibraryID, &c.Name, &description, &c.CreatedAt, &count); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		c.Description = stringPtr(description)
		out = append(out, CollectionWithCount{Collection: &c, NumBooks: count})
	}
	return out, rows.Err()
}

// PlaylistWithCount pairs a playlist with its item count.
type PlaylistWithCount struct {
	Playlist *library.Playlist
	NumItems int
}

// CreatePlaylist inserts a playlist and its ordered items.
func (s *Store) CreatePlaylist(ctx context.Context, p *library.Playlist) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO playlists (id, library_id, user_id, name, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.LibraryID, p.UserID, p.Name, nullableString(p.Description), p.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert playlist: %w", err)
		}
		for i, bookID := range p.BookIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO playlist_books (playlist_id, book_id, position) VALUES (?, ?, ?)`, p.ID, bookID, i,
			); err != nil {
				return fmt.Errorf("insert playlist item: %w", err)
			}
		}
		return nil
	})
}

// ListPlaylists returns the playlists a user owns in a library.
func (s *Store) ListPlaylists(ctx context.Context, libraryID, userID string) ([]PlaylistWithCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.library_id, p.user_id, p.name, p.description, p.created_at,
		        (SELECT COUNT(*) FROM playlist_books pb WHERE pb.playlist_id = p.id)
		   FROM playlists p
		  WHERE p.library_id = ? AND p.user_id = ?
		  ORDER BY p.name COLLATE NOCASE`,
		libraryID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()
	var out []PlaylistWithCount
	for rows.Next() {
		var (
			p           library.Playlist
			description sql.NullString
			count       int
		)
		if err := rows.Scan(&p.ID, &p.LibraryID, &p.UserID, &p.Name, &description, &p.CreatedAt, &count); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		p.Description = stringPtr(description)
		out = append(out, PlaylistWithCount{Playlist: &p, NumItems: count})
	}
	return out, rows.Err()
}

func (s *Store) orderedIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
