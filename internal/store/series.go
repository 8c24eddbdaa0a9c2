package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"audioshelf/internal/library"
)

const seriesColumns = "id, library_id, name, description, added_at, updated_at"

func scanSeries(scanner rowScanner, extra ...any) (*library.Series, error) {
	var (
		s           library.Series
		description sql.NullString
	)
	dest := append([]any{&s.ID, &s.LibraryID, &s.Name, &description, &s.AddedAt, &s.UpdatedAt}, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}
	s.Description = stringPtr(description)
	return &s, nil
}

// CreateSeries inserts a new series.
func (s *Store) CreateSeries(ctx context.Context, series *library.Series) error {
	_, err := s.exec(ctx,
		`INSERT INTO series (`+seriesColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		series.ID, series.LibraryID, series.Name, nullableString(series.Description), series.AddedAt, series.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert series: %w", err)
	}
	return nil
}

// GetSeries loads a series by id.
func (s *Store) GetSeries(ctx context.Context, id string) (*library.Series, error) {
	series, err := scanSeries(s.db.QueryRowContext(ctx, `SELECT `+seriesColumns+` FROM series WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("series %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	return series, nil
}

// SeriesWithCount pairs a series with its number of books.
type SeriesWithCount struct {
	Series   *library.Series
	NumBooks int
}

// ListSeries returns the series of a library ordered by name.
func (s *Store) ListSeries(ctx context.Context, libraryID string) ([]SeriesWithCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.library_id, s.name, s.description, s.added_at, s.updated_at,
		        (SELECT COUNT(1) FROM book_series bs WHERE bs.series_id = s.id)
		   FROM series s
		  WHERE s.library_id = ?
		  ORDER BY s.name COLLATE NOCASE`,
		libraryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()
	var out []SeriesWithCount
	for rows.Next() {
		var count int
		series, err := scanSeries(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		out = append(out, SeriesWithCount{Series: series, NumBooks: count})
	}
	return out, rows.Err()
}

// UpdateSeries persists the name and description of a series.
func (s *Store) UpdateSeries(ctx context.Context, series *library.Series) error {
	res, err := s.exec(ctx,
		`UPDATE series SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		series.Name, nullableString(series.Description), series.UpdatedAt, series.ID,
	)
	if err != nil {
		return fmt.Errorf("update series: %w", err)
	}
	return requireAffected(res, "series "+series.ID)
}
