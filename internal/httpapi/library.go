package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"audioshelf/internal/api"
	"audioshelf/internal/library"
	"audioshelf/internal/providers"
)

func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	detail, err := s.opts.Series.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, detail)
}

func (s *Server) handleUpdateSeries(w http.ResponseWriter, r *http.Request) {
	var patch library.SeriesPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	result, err := s.opts.Series.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, result)
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.opts.Folders.List(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"folders": folders})
}

type addFolderRequest struct {
	FullPath string `json:"fullPath"`
}

func (s *Server) handleAddFolder(w http.ResponseWriter, r *http.Request) {
	var req addFolderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	folder, err := s.opts.Folders.Add(r.Context(), mux.Vars(r)["id"], req.FullPath)
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusCreated, folder)
}

func (s *Server) handleRemoveFolder(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Folders.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	book, err := s.opts.Items.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, book)
}

type audioFilesRequest struct {
	AudioFiles []library.AudioFile `json:"audioFiles"`
}

func (s *Server) handleReplaceAudioFiles(w http.ResponseWriter, r *http.Request) {
	var req audioFilesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	result, err := s.opts.Items.ReplaceAudioFiles(r.Context(), mux.Vars(r)["id"], req.AudioFiles)
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, result)
}

func (s *Server) handleSearchBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := providers.SearchQuery{
		Title:        query.Get("title"),
		Author:       query.Get("author"),
		ISBN:         query.Get("isbn"),
		ProviderSlug: query.Get("provider"),
		MediaType:    library.MediaType(query.Get("mediaType")),
	}
	if q.ProviderSlug == "" {
		writeError(s.logger, w, http.StatusBadRequest, "provider is required")
		return
	}
	if raw := query.Get("timeout"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			writeError(s.logger, w, http.StatusBadRequest, "invalid timeout")
			return
		}
		q.Timeout = time.Duration(ms) * time.Millisecond
	}
	matches, err := s.opts.Search.Search(r.Context(), q)
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	if matches == nil {
		matches = []providers.BookMatch{}
	}
	writeJSON(s.logger, w, http.StatusOK, matches)
}

func (s *Server) handleRenderShelf(w http.ResponseWriter, r *http.Request) {
	var req api.ShelfRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	vars := mux.Vars(r)
	user, _ := UserFromContext(r.Context())
	result, err := s.opts.Shelf.Render(r.Context(), vars["id"], vars["view"], user.ID, req)
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, result)
}

func (s *Server) handleResetShelf(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	user, _ := UserFromContext(r.Context())
	if err := s.opts.Shelf.Reset(vars["id"], user.ID, vars["view"]); err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCardAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid card index")
		return
	}
	shift, _ := strconv.ParseBool(r.URL.Query().Get("shift"))
	user, _ := UserFromContext(r.Context())
	if err := s.opts.Shelf.Action(vars["id"], user.ID, vars["view"], index, api.CardAction(vars["action"]), shift); err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
