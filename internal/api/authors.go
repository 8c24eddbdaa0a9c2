package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"audioshelf/internal/config"
	"audioshelf/internal/events"
	"audioshelf/internal/imagecache"
	"audioshelf/internal/library"
	"audioshelf/internal/logging"
	"audioshelf/internal/providers"
	"audioshelf/internal/store"
)

const defaultMatchRegion = "us"

// AuthorStore is the persistence the author service needs.
type AuthorStore interface {
	GetAuthor(ctx context.Context, id string) (*library.Author, error)
	AuthorByName(ctx context.Context, libraryID, name, excludeID string) (*library.Author, error)
	ListAuthors(ctx context.Context, libraryID string) ([]store.AuthorWithCount, error)
	UpdateAuthor(ctx context.Context, a *library.Author) error
	DeleteAuthor(ctx context.Context, id string) error
	MergeAuthor(ctx context.Context, fromID, toID string) error
	CountBooksForAuthor(ctx context.Context, authorID string) (int, error)
	BooksForAuthor(ctx context.Context, authorID string) ([]*library.Book, error)
}

// ImageCache serves resized author images.
type ImageCache interface {
	AuthorImage(authorID, srcPath string, opts imagecache.Options) (*imagecache.Image, error)
	PurgeAuthor(authorID string) int
}

// AuthorFinder looks authors up on a metadata provider.
type AuthorFinder interface {
	FindByASIN(ctx context.Context, asin, region string) (*providers.AuthorData, error)
	FindByName(ctx context.Context, name, region string) (*providers.AuthorData, error)
	SaveAuthorImage(ctx context.Context, authorID, imageURL string) (string, error)
}

// AuthorServiceOptions wires an AuthorService.
type AuthorServiceOptions struct {
	Store  AuthorStore
	Images ImageCache
	Finder AuthorFinder
	Events events.Emitter
	Logger *slog.Logger
}

// AuthorService implements the author endpoints.
type AuthorService struct {
	store  AuthorStore
	images ImageCache
	finder AuthorFinder
	events events.Emitter
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthorService constructs an AuthorService. Events default to a no-op
// emitter.
func NewAuthorService(opts AuthorServiceOptions) *AuthorService {
	emitter := opts.Events
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &AuthorService{
		store:  opts.Store,
		images: opts.Images,
		finder: opts.Finder,
		events: emitter,
		logger: logging.NewComponentLogger(opts.Logger, "authors"),
		now:    time.Now,
	}
}

// AuthorDetail is an author with the optional includes of FindOne.
type AuthorDetail struct {
	library.Author
	LibraryItems []library.BookMinified `json:"libraryItems,omitempty"`
	Series       []AuthorSeries         `json:"series,omitempty"`
}

// AuthorSeries groups an author's books by series.
type AuthorSeries struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Items []SeriesBook `json:"items"`
}

// SeriesBook is a minified book carrying only the series it is listed under.
type SeriesBook struct {
	library.BookMinified
	Series library.SeriesSequence `json:"series"`
}

// AuthorUpdateResult is the response of Update. Merged is set when the
// rename folded the author into another one.
type AuthorUpdateResult struct {
	Author  library.Author `json:"author"`
	Merged  bool           `json:"merged,omitempty"`
	Updated *bool          `json:"updated,omitempty"`
}

// AuthorResult wraps an author payload.
type AuthorResult struct {
	Author library.Author `json:"author"`
}

// MatchRequest selects the provider lookup of Match. ASIN wins over Q.
type MatchRequest struct {
	ASIN   string `json:"asin"`
	Q      string `json:"q"`
	Region string `json:"region"`
}

// MatchResult is the response of Match.
type MatchResult struct {
	Updated bool           `json:"updated"`
	Author  library.Author `json:"author"`
}

// ImageRequest selects an author image rendition.
type ImageRequest struct {
	Width      *int
	Height     *int
	Format     string
	Raw        bool
	AcceptWebP bool
}

// AuthorImage is either a file to send as is (Path) or an encoded
// rendition.
type AuthorImage struct {
	Path  string
	Image *imagecache.Image
}

// Get loads an author.
func (s *AuthorService) Get(ctx context.Context, id string) (*library.Author, error) {
	author, err := s.store.GetAuthor(ctx, id)
	if err != nil {
		return nil, fromStore(err)
	}
	return author, nil
}

// List returns the authors of a library with their book counts.
func (s *AuthorService) List(ctx context.Context, libraryID string) ([]library.AuthorExpanded, error) {
	rows, err := s.store.ListAuthors(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	out := make([]library.AuthorExpanded, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Author.JSONExpanded(row.NumBooks))
	}
	return out, nil
}

// FindOne returns an author. With "items" in include the author's books are
// attached; "series" additionally groups those books by series in natural
// sequence order.
func (s *AuthorService) FindOne(ctx context.Context, id string, include []string) (*AuthorDetail, error) {
	author, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &AuthorDetail{Author: author.JSON()}
	if !slices.Contains(include, "items") {
		return detail, nil
	}
	books, err := s.store.BooksForAuthor(ctx, author.ID)
	if err != nil {
		return nil, err
	}
	detail.LibraryItems = make([]library.BookMinified, 0, len(books))
	for _, b := range books {
		detail.LibraryItems = append(detail.LibraryItems, b.Minified())
	}
	if slices.Contains(include, "series") {
		detail.Series = groupBySeries(books)
	}
	return detail, nil
}

func groupBySeries(books []*library.Book) []AuthorSeries {
	var order []string
	groups := make(map[string]*AuthorSeries)
	for _, b := range books {
		for _, seq := range b.Series {
			group, ok := groups[seq.ID]
			if !ok {
				group = &AuthorSeries{ID: seq.ID, Name: seq.Name}
				groups[seq.ID] = group
				order = append(order, seq.ID)
			}
			group.Items = append(group.Items, SeriesBook{BookMinified: b.Minified(), Series: seq})
		}
	}
	out := make([]AuthorSeries, 0, len(order))
	for _, id := range order {
		group := groups[id]
		library.SortNatural(group.Items, func(b SeriesBook) string { return b.Series.Sequence })
		out = append(out, *group)
	}
	return out
}

// ParseInclude splits a comma separated include list.
func ParseInclude(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Update applies patch to the author. Renaming an author to the name of
// another author of the same library merges the two: the books move to the
// existing author and the renamed one is removed.
func (s *AuthorService) Update(ctx context.Context, id string, patch library.AuthorPatch) (*AuthorUpdateResult, error) {
	author, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.ImagePath.Set {
		logging.WarnWithContext(s.logger, "author image path cannot be changed by update", "author_image_path_ignored",
			logging.AuthorID(author.ID),
			logging.String(logging.FieldErrorHint, "upload or delete the image through the image endpoints"),
		)
		patch.ImagePath = library.Optional[string]{}
	}

	nameChanged := patch.Name != nil && *patch.Name != author.Name
	if nameChanged {
		existing, err := s.store.AuthorByName(ctx, author.LibraryID, *patch.Name, author.ID)
		switch {
		case err == nil:
			return s.merge(ctx, author, existing)
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}

	updated := author.Update(patch)
	if updated {
		author.UpdatedAt = s.now().UnixMilli()
		books, err := s.store.BooksForAuthor(ctx, author.ID)
		if err != nil {
			return nil, err
		}
		if nameChanged && len(books) > 0 {
			for _, b := range books {
				b.RenameAuthor(author.JSONMinimal())
			}
			s.events.Emit(events.ItemsUpdated, books)
		}
		if err := s.store.UpdateAuthor(ctx, author); err != nil {
			return nil, fromStore(err)
		}
		s.events.Emit(events.AuthorUpdated, author.JSONExpanded(len(books)))
	}
	return &AuthorUpdateResult{Author: author.JSON(), Updated: &updated}, nil
}

func (s *AuthorService) merge(ctx context.Context, from, into *library.Author) (*AuthorUpdateResult, error) {
	books, err := s.store.BooksForAuthor(ctx, from.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.MergeAuthor(ctx, from.ID, into.ID); err != nil {
		return nil, fmt.Errorf("merge author %s into %s: %w", from.ID, into.ID, err)
	}
	s.logger.Info("merged authors",
		logging.AuthorID(from.ID),
		logging.String("into_author_id", into.ID),
		logging.Int("books", len(books)),
	)
	if len(books) > 0 {
		for _, b := range books {
			b.ReplaceAuthor(from.JSONMinimal(), into.JSONMinimal())
		}
		s.events.Emit(events.ItemsUpdated, books)
	}
	s.events.Emit(events.AuthorRemoved, from.JSON())

	numBooks, err := s.store.CountBooksForAuthor(ctx, into.ID)
	if err != nil {
		return nil, err
	}
	s.events.Emit(events.AuthorUpdated, into.JSONExpanded(numBooks))
	return &AuthorUpdateResult{Author: into.JSON(), Merged: true}, nil
}

// Delete removes the author from every book and deletes it.
func (s *AuthorService) Delete(ctx context.Context, id string) error {
	author, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.logger.Info("removing author", logging.AuthorID(author.ID), logging.String("name", author.Name))
	if err := s.store.DeleteAuthor(ctx, author.ID); err != nil {
		return fromStore(err)
	}
	if author.ImagePath != nil {
		s.images.PurgeAuthor(author.ID)
	}
	s.events.Emit(events.AuthorRemoved, author.JSON())
	return nil
}

// UploadImage downloads the image at imageURL and makes it the author's
// image.
func (s *AuthorService) UploadImage(ctx context.Context, id string, user config.User, imageURL string) (*AuthorResult, error) {
	if !user.CanUpload {
		logging.WarnWithContext(s.logger, "image upload without permission", "author_upload_forbidden",
			logging.String("user_id", user.ID),
		)
		return nil, fmt.Errorf("%w: user cannot upload", ErrForbidden)
	}
	author, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if imageURL == "" {
		return nil, invalidf("'url' not in request body")
	}
	if !strings.HasPrefix(imageURL, "http:") && !strings.HasPrefix(imageURL, "https:") {
		return nil, invalidf("invalid url %q", imageURL)
	}

	s.logger.Debug("downloading author image", logging.AuthorID(author.ID), logging.String("url", imageURL))
	path, err := s.finder.SaveAuthorImage(ctx, author.ID, imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if author.ImagePath != nil {
		s.images.PurgeAuthor(author.ID)
	}
	author.ImagePath = &path
	if err := s.saveAndBroadcast(ctx, author); err != nil {
		return nil, err
	}
	return &AuthorResult{Author: author.JSON()}, nil
}

// DeleteImage removes the author's image file and clears the path.
func (s *AuthorService) DeleteImage(ctx context.Context, id string) (*AuthorResult, error) {
	author, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if author.ImagePath == nil {
		return nil, invalidf("author has no image path set")
	}
	s.logger.Info("removing author image",
		logging.AuthorID(author.ID),
		logging.String("path", *author.ImagePath),
	)
	s.images.PurgeAuthor(author.ID)
	if err := os.Remove(*author.ImagePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(s.logger, "author image file not removed", "author_image_remove_failed",
			logging.AuthorID(author.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "orphaned image file left in the metadata directory"),
		)
	}
	author.ImagePath = nil
	if err := s.saveAndBroadcast(ctx, author); err != nil {
		return nil, err
	}
	return &AuthorResult{Author: author.JSON()}, nil
}

// Match refreshes the author from the provider. The image is replaced only
// when the author had none or the match changed the ASIN.
func (s *AuthorService) Match(ctx context.Context, id string, req MatchRequest) (*MatchResult, error) {
	author, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	region := req.Region
	if region == "" {
		region = defaultMatchRegion
	}

	var data *providers.AuthorData
	switch {
	case req.ASIN != "":
		data, err = s.finder.FindByASIN(ctx, req.ASIN, region)
	case strings.TrimSpace(req.Q) != "":
		data, err = s.finder.FindByName(ctx, req.Q, region)
	default:
		return nil, invalidf("asin or q is required")
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: author not found", ErrNotFound)
	}

	updated := false
	if data.ASIN != "" && (author.ASIN == nil || *author.ASIN != data.ASIN) {
		asin := data.ASIN
		author.ASIN = &asin
		updated = true
	}
	if data.Image != "" && (author.ImagePath == nil || updated) {
		s.images.PurgeAuthor(author.ID)
		path, err := s.finder.SaveAuthorImage(ctx, author.ID, data.Image)
		if err != nil {
			logging.WarnWithContext(s.logger, "matched author image not saved", "author_image_save_failed",
				logging.AuthorID(author.ID),
				logging.Error(err),
			)
		} else {
			author.ImagePath = &path
			updated = true
		}
	}
	if data.Description != "" && (author.Description == nil || *author.Description != data.Description) {
		description := data.Description
		author.Description = &description
		updated = true
	}

	if updated {
		author.UpdatedAt = s.now().UnixMilli()
		if err := s.saveAndBroadcast(ctx, author); err != nil {
			return nil, err
		}
	}
	return &MatchResult{Updated: updated, Author: author.JSON()}, nil
}

// Image returns the author image. Raw requests get the stored file path;
// everything else is resized through the cache, as WebP when the client
// accepts it and no format is named.
func (s *AuthorService) Image(ctx context.Context, id string, req ImageRequest) (*AuthorImage, error) {
	author, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if author.ImagePath == nil {
		return nil, fmt.Errorf("%w: author has no image", ErrNotFound)
	}
	if _, err := os.Stat(*author.ImagePath); err != nil {
		return nil, fmt.Errorf("%w: author image: %w", ErrNotFound, err)
	}
	if req.Raw {
		return &AuthorImage{Path: *author.ImagePath}, nil
	}
	format := req.Format
	if format == "" {
		format = "jpeg"
		if req.AcceptWebP {
			format = "webp"
		}
	}
	img, err := s.images.AuthorImage(author.ID, *author.ImagePath, imagecache.Options{
		Width:  req.Width,
		Height: req.Height,
		Format: format,
	})
	if errors.Is(err, imagecache.ErrUnsupportedFormat) || errors.Is(err, imagecache.ErrInvalidDimension) {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err != nil {
		return nil, err
	}
	return &AuthorImage{Image: img}, nil
}

func (s *AuthorService) saveAndBroadcast(ctx context.Context, author *library.Author) error {
	if err := s.store.UpdateAuthor(ctx, author); err != nil {
		return fromStore(err)
	}
	numBooks, err := s.store.CountBooksForAuthor(ctx, author.ID)
	if err != nil {
		return err
	}
	s.events.Emit(events.AuthorUpdated, author.JSONExpanded(numBooks))
	return nil
}
