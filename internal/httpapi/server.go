package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"audioshelf/internal/api"
	"audioshelf/internal/auth"
	"audioshelf/internal/logging"
	"audioshelf/internal/metrics"
	"audioshelf/internal/providers"
)

// BookSearcher runs custom provider searches.
type BookSearcher interface {
	Search(ctx context.Context, q providers.SearchQuery) ([]providers.BookMatch, error)
}

// Options wires the router to its services. Nil services leave their
// routes unregistered.
type Options struct {
	Authors *api.AuthorService
	Series  *api.SeriesService
	Folders *api.FolderService
	Items   *api.ItemService
	Shelf   *api.ShelfService
	Search  BookSearcher
	Auth    *auth.Authenticator
	Socket  http.Handler
	Metrics *metrics.Metrics
	Status  func(context.Context) api.DaemonStatus
	Logger  *slog.Logger
}

// Server routes HTTP requests to the services.
type Server struct {
	opts   Options
	logger *slog.Logger
	router *mux.Router
}

// New builds the router.
func New(opts Options) *Server {
	s := &Server{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "http"),
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.requestID)
	if s.opts.Metrics != nil {
		r.Use(s.opts.Metrics.Instrument)
		r.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)
	}
	if s.opts.Socket != nil {
		r.Handle("/socket", s.authenticate(s.opts.Socket)).Methods(http.MethodGet)
	}

	a := r.PathPrefix("/api").Subrouter()
	a.Use(s.authenticate)
	a.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	if s.opts.Authors != nil {
		a.Handle("/authors/{id}", s.withAuthor(s.handleGetAuthor)).Methods(http.MethodGet)
		a.Handle("/authors/{id}", s.withAuthor(s.handleUpdateAuthor)).Methods(http.MethodPatch)
		a.Handle("/authors/{id}", s.withAuthor(s.handleDeleteAuthor)).Methods(http.MethodDelete)
		a.Handle("/authors/{id}/image", s.withAuthor(s.handleGetAuthorImage)).Methods(http.MethodGet)
		a.Handle("/authors/{id}/image", s.withAuthor(s.handleUploadAuthorImage)).Methods(http.MethodPost)
		a.Handle("/authors/{id}/image", s.withAuthor(s.handleDeleteAuthorImage)).Methods(http.MethodDelete)
		a.Handle("/authors/{id}/match", s.withAuthor(s.handleMatchAuthor)).Methods(http.MethodPost)
	}
	if s.opts.Series != nil {
		a.Handle("/series/{id}", requirePermission(http.HandlerFunc(s.handleGetSeries))).Methods(http.MethodGet)
		a.Handle("/series/{id}", requirePermission(http.HandlerFunc(s.handleUpdateSeries))).Methods(http.MethodPatch)
	}
	if s.opts.Folders != nil {
		a.Handle("/libraries/{id}/folders", requirePermission(http.HandlerFunc(s.handleListFolders))).Methods(http.MethodGet)
		a.Handle("/libraries/{id}/folders", requirePermission(http.HandlerFunc(s.handleAddFolder))).Methods(http.MethodPost)
		a.Handle("/folders/{id}", requirePermission(http.HandlerFunc(s.handleRemoveFolder))).Methods(http.MethodDelete)
	}
	if s.opts.Items != nil {
		a.Handle("/items/{id}", requirePermission(http.HandlerFunc(s.handleGetItem))).Methods(http.MethodGet)
		a.Handle("/items/{id}/audiofiles", requirePermission(http.HandlerFunc(s.handleReplaceAudioFiles))).Methods(http.MethodPut)
	}
	if s.opts.Search != nil {
		a.HandleFunc("/search/books", s.handleSearchBooks).Methods(http.MethodGet)
	}
	if s.opts.Shelf != nil {
		a.HandleFunc("/libraries/{id}/bookshelf/{view}", s.handleRenderShelf).Methods(http.MethodPost)
		a.HandleFunc("/libraries/{id}/bookshelf/{view}", s.handleResetShelf).Methods(http.MethodDelete)
		a.HandleFunc("/libraries/{id}/bookshelf/{view}/cards/{index:[0-9]+}/{action}", s.handleCardAction).Methods(http.MethodPost)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status api.DaemonStatus
	if s.opts.Status != nil {
		status = s.opts.Status(r.Context())
	}
	status.AuthEnabled = s.opts.Auth != nil && s.opts.Auth.Enabled()
	writeJSON(s.logger, w, http.StatusOK, status)
}
