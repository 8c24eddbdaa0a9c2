package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"audioshelf/internal/api"
	"audioshelf/internal/auth"
	"audioshelf/internal/config"
	"audioshelf/internal/logging"
)

type userKey struct{}

// UserFromContext returns the authenticated user of a request.
func UserFromContext(ctx context.Context) (config.User, bool) {
	user, ok := ctx.Value(userKey{}).(config.User)
	return user, ok
}

func withUser(ctx context.Context, user config.User) context.Context {
	ctx = context.WithValue(ctx, userKey{}, user)
	return logging.WithUserID(ctx, user.ID)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// authenticate resolves the bearer token to a configured user. With
// authentication disabled every request runs as the local operator. The
// socket endpoint may pass the token as a "token" query parameter since
// browsers cannot set headers on websocket upgrades.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Auth == nil || !s.opts.Auth.Enabled() {
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), auth.LocalOperator)))
			return
		}
		token := auth.FromHeader(r.Header.Get("Authorization"))
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		user, err := s.opts.Auth.Verify(token)
		if err != nil {
			s.logger.Debug("rejected request",
				logging.String("path", r.URL.Path),
				logging.Error(err),
			)
			writeError(s.logger, w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// requirePermission enforces the per-method permissions of entity routes.
func requirePermission(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowed(r) {
			writeError(logging.NewNop(), w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func allowed(r *http.Request) bool {
	user, ok := UserFromContext(r.Context())
	if !ok {
		return false
	}
	switch r.Method {
	case http.MethodDelete:
		return user.CanDelete
	case http.MethodPatch, http.MethodPost, http.MethodPut:
		return user.CanUpdate
	default:
		return true
	}
}

// withAuthor answers 404 for unknown authors before checking permissions.
func (s *Server) withAuthor(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.opts.Authors.Get(r.Context(), mux.Vars(r)["id"]); err != nil {
			if errors.Is(err, api.ErrNotFound) {
				writeError(s.logger, w, http.StatusNotFound, "author not found")
				return
			}
			writeServiceError(s.logger, w, r, err)
			return
		}
		if !allowed(r) {
			logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "author request without permission", "author_forbidden",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
			)
			writeError(s.logger, w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	})
}
