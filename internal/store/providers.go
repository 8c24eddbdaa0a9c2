package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"audioshelf/internal/library"
)

// AddProvider registers a custom metadata provider.
func (s *Store) AddProvider(ctx context.Context, p *library.CustomMetadataProvider) error {
	var auth *string
	if p.AuthHeaderValue != "" {
		auth = &p.AuthHeaderValue
	}
	_, err := s.exec(ctx,
		`INSERT INTO custom_metadata_providers (id, name, media_type, url, auth_header_value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.MediaType), p.URL, nullableString(auth), time.Now().UnixMilli(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("provider %s: %w", p.ID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert provider: %w", err)
	}
	return nil
}

// GetProvider loads a custom metadata provider by id.
func (s *Store) GetProvider(ctx context.Context, id string) (*library.CustomMetadataProvider, error) {
	p, err := scanProvider(s.db.QueryRowContext(ctx,
		`SELECT id, name, media_type, url, auth_header_value FROM custom_metadata_providers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("provider %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get provider: %w", err)
	}
	return p, nil
}

// ListProviders returns the registered providers for a media type, or all
// of them when mediaType is empty.
func (s *Store) ListProviders(ctx context.Context, mediaType library.MediaType) ([]*library.CustomMetadataProvider, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, media_type, url, auth_header_value FROM custom_metadata_providers
		  WHERE ? = '' OR media_type = ?
		  ORDER BY name`,
		string(mediaType), string(mediaType),
	)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()
	var out []*library.CustomMetadataProvider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RemoveProvider deletes a custom metadata provider.
func (s *Store) RemoveProvider(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM custom_metadata_providers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete provider: %w", err)
	}
	return requireAffected(res, "provider "+id)
}

func scanProvider(scanner rowScanner) (*library.CustomMetadataProvider, error) {
	var (
		p         library.CustomMetadataProvider
		mediaType string
		auth      sql.NullString
	)
	if err := scanner.Scan(&p.ID, &p.Name, &mediaType, &p.URL, &auth); err != nil {
		return nil, err
	}
	p.MediaType = library.MediaType(mediaType)
	p.AuthHeaderValue = auth.String
	return &p, nil
}
