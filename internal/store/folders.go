package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"audioshelf/internal/library"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertFolder(ctx context.Context, db execer, folder *library.Folder) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO folders (id, library_id, full_path, added_at) VALUES (?, ?, ?, ?)`,
		folder.ID, folder.LibraryID, folder.FullPath, folder.AddedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("folder %s already in library: %w", folder.FullPath, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

// AddFolder attaches a folder to its library.
func (s *Store) AddFolder(ctx context.Context, folder *library.Folder) error {
	return retryOnBusy(ctx, func() error {
		return insertFolder(ctx, s.db, folder)
	})
}

// GetFolder loads a single folder.
func (s *Store) GetFolder(ctx context.Context, id string) (*library.Folder, error) {
	var f library.Folder
	err := s.db.QueryRowContext(ctx, `SELECT id, library_id, full_path, added_at FROM folders WHERE id = ?`, id).
		Scan(&f.ID, &f.LibraryID, &f.FullPath, &f.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return &f, nil
}

// ListFolders returns the folders of a library ordered by path.
func (s *Store) ListFolders(ctx context.Context, libraryID string) ([]library.Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, library_id, full_path, added_at FROM folders WHERE library_id = ? ORDER BY full_path`,
		libraryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()
	out := []library.Folder{}
	for rows.Next() {
		var f library.Folder
		if err := rows.Scan(&f.ID, &f.LibraryID, &f.FullPath, &f.AddedAt); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// RemoveFolder deletes a folder and the books scanned from it.
func (s *Store) RemoveFolder(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove folder: %w", err)
	}
	return requireAffected(res, "folder "+id)
}
