package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"audioshelf/internal/api"
	"audioshelf/internal/imagecache"
	"audioshelf/internal/library"
)

func (s *Server) handleGetAuthor(w http.ResponseWriter, r *http.Request) {
	include := api.ParseInclude(r.URL.Query().Get("include"))
	detail, err := s.opts.Authors.FindOne(r.Context(), mux.Vars(r)["id"], include)
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, detail)
}

func (s *Server) handleUpdateAuthor(w http.ResponseWriter, r *http.Request) {
	var patch library.AuthorPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	result, err := s.opts.Authors.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, result)
}

func (s *Server) handleDeleteAuthor(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Authors.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type uploadImageRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleUploadAuthorImage(w http.ResponseWriter, r *http.Request) {
	var req uploadImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	user, _ := UserFromContext(r.Context())
	result, err := s.opts.Authors.UploadImage(r.Context(), mux.Vars(r)["id"], user, req.URL)
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, result)
}

func (s *Server) handleDeleteAuthorImage(w http.ResponseWriter, r *http.Request) {
	result, err := s.opts.Authors.DeleteImage(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, result)
}

func (s *Server) handleMatchAuthor(w http.ResponseWriter, r *http.Request) {
	var req api.MatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	result, err := s.opts.Authors.Match(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, result)
}

func (s *Server) handleGetAuthorImage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := api.ImageRequest{
		Format:     query.Get("format"),
		Raw:        query.Get("raw") == "1" || query.Get("raw") == "true",
		AcceptWebP: strings.Contains(r.Header.Get("Accept"), "image/webp"),
	}
	var err error
	if req.Width, err = optionalInt(query.Get("width")); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid width")
		return
	}
	if req.Height, err = optionalInt(query.Get("height")); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid height")
		return
	}
	img, err := s.opts.Authors.Image(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeServiceError(s.logger, w, r, err)
		return
	}
	if img.Path != "" {
		http.ServeFile(w, r, img.Path)
		return
	}
	w.Header().Set("Content-Type", img.Image.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Image.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Image.Data)
}

func optionalInt(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > imagecache.MaxDimension {
		return nil, strconv.ErrRange
	}
	return &v, nil
}
