package api

import (
	"context"
	"log/slog"
	"time"

	"audioshelf/internal/events"
	"audioshelf/internal/library"
	"audioshelf/internal/logging"
	"audioshelf/internal/store"
)

// SeriesStore is the persistence the series service needs.
type SeriesStore interface {
	GetSeries(ctx context.Context, id string) (*library.Series, error)
	ListSeries(ctx context.Context, libraryID string) ([]store.SeriesWithCount, error)
	UpdateSeries(ctx context.Context, series *library.Series) error
	BooksForSeries(ctx context.Context, seriesID string) ([]*library.Book, error)
}

// SeriesService implements the series endpoints.
type SeriesService struct {
	store  SeriesStore
	events events.Emitter
	logger *slog.Logger
	now    func() time.Time
}

func NewSeriesService(st SeriesStore, emitter events.Emitter, logger *slog.Logger) *SeriesService {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &SeriesService{
		store:  st,
		events: emitter,
		logger: logging.NewComponentLogger(logger, "series"),
		now:    time.Now,
	}
}

// SeriesDetail is a series with its books in sequence order.
type SeriesDetail struct {
	library.SeriesJSON
	Books []library.BookMinified `json:"books"`
}

// SeriesListItem is a series with its book count.
type SeriesListItem struct {
	library.SeriesJSON
	NumBooks int `json:"numBooks"`
}

// SeriesUpdateResult is the response of Update.
type SeriesUpdateResult struct {
	Series  library.SeriesJSON `json:"series"`
	Updated bool               `json:"updated"`
}

// Get returns a series and its books.
func (s *SeriesService) Get(ctx context.Context, id string) (*SeriesDetail, error) {
	series, err := s.store.GetSeries(ctx, id)
	if err != nil {
		return nil, fromStore(err)
	}
	books, err := s.store.BooksForSeries(ctx, series.ID)
	if err != nil {
		return nil, err
	}
	detail := &SeriesDetail{SeriesJSON: series.JSON(), Books: make([]library.BookMinified, 0, len(books))}
	for _, b := range books {
		detail.Books = append(detail.Books, b.Minified())
	}
	return detail, nil
}

// List returns the series of a library ordered by name.
func (s *SeriesService) List(ctx context.Context, libraryID string) ([]SeriesListItem, error) {
	rows, err := s.store.ListSeries(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	out := make([]SeriesListItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, SeriesListItem{SeriesJSON: row.Series.JSON(), NumBooks: row.NumBooks})
	}
	return out, nil
}

// Update changes the name or description of a series.
func (s *SeriesService) Update(ctx context.Context, id string, patch library.SeriesPatch) (*SeriesUpdateResult, error) {
	series, err := s.store.GetSeries(ctx, id)
	if err != nil {
		return nil, fromStore(err)
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, invalidf("series name cannot be empty")
	}
	updated := series.Update(patch)
	if updated {
		series.UpdatedAt = s.now().UnixMilli()
		if err := s.store.UpdateSeries(ctx, series); err != nil {
			return nil, fromStore(err)
		}
		s.events.Emit(events.SeriesUpdated, series.JSON())
		s.logger.Info("series updated", logging.String("series_id", series.ID))
	}
	return &SeriesUpdateResult{Series: series.JSON(), Updated: updated}, nil
}
