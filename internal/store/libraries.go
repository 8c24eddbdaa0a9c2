package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"audioshelf/internal/library"
)

// CreateLibrary inserts a library together with its folders.
func (s *Store) CreateLibrary(ctx context.Context, lib *library.Library) error {
	settings, err := json.Marshal(lib.Settings)
	if err != nil {
		return fmt.Errorf("encode library settings: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO libraries (id, name, media_type, settings_json, created_at) VALUES (?, ?, ?, ?, ?)`,
			lib.ID, lib.Name, string(lib.MediaType), string(settings), lib.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert library: %w", err)
		}
		for _, folder := range lib.Folders {
			if err := insertFolder(ctx, tx, &folder); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetLibrary loads a library and its folders.
func (s *Store) GetLibrary(ctx context.Context, id string) (*library.Library, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, media_type, settings_json, created_at FROM libraries WHERE id = ?`, id)
	lib, err := scanLibrary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("library %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get library: %w", err)
	}
	folders, err := s.ListFolders(ctx, id)
	if err != nil {
		return nil, err
	}
	lib.Folders = folders
	return lib, nil
}

// ListLibraries returns every library ordered by creation time, without
// folders.
func (s *Store) ListLibraries(ctx context.Context) ([]*library.Library, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, media_type, settings_json, created_at FROM libraries ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	defer rows.Close()
	var out []*library.Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan library: %w", err)
		}
		out = append(out, lib)
	}
	return out, rows.Err()
}

// UpdateLibrarySettings persists the settings of a library.
func (s *Store) UpdateLibrarySettings(ctx context.Context, id string, settings library.LibrarySettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode library settings: %w", err)
	}
	res, err := s.exec(ctx, `UPDATE libraries SET settings_json = ? WHERE id = ?`, string(data), id)
	if err != nil {
		return fmt.Errorf("update library settings: %w", err)
	}
	return requireAffected(res, "library "+id)
}

func scanLibrary(scanner rowScanner) (*library.Library, error) {
	var (
		lib       library.Library
		mediaType string
		settings  string
	)
	if err := scanner.Scan(&lib.ID, &lib.Name, &mediaType, &settings, &lib.CreatedAt); err != nil {
		return nil, err
	}
	lib.MediaType = library.MediaType(mediaType)
	lib.Settings = library.DefaultLibrarySettings()
	if settings != "" {
		if err := json.Unmarshal([]byte(settings), &lib.Settings); err != nil {
			return nil, fmt.Errorf("decode settings for library %s: %w", lib.ID, err)
		}
	}
	lib.Settings.Normalize()
	lib.Folders = []library.Folder{}
	return &lib, nil
}
