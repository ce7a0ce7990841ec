// library.go: User profile, favorites, watchlist and comment endpoints.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/420btc/KinemaTV/internal/library"
	"github.com/420btc/KinemaTV/internal/logger"
	"github.com/420btc/KinemaTV/internal/telemetry"
)

// libraryFailed maps store errors to responses. notFound and duplicate are
// the messages for ErrNotFound and ErrDuplicate on this route.
func (s *Server) libraryFailed(w http.ResponseWriter, r *http.Request, err error, notFound, duplicate string) {
	var ie *library.InputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Msg)
	case errors.Is(err, library.ErrNotFound) && notFound != "":
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, library.ErrDuplicate) && duplicate != "":
		writeError(w, http.StatusConflict, duplicate)
	default:
		logger.FromContext(r.Context()).WithError(err).Error("library store failed")
		telemetry.CaptureError(err, map[string]string{"component": "library"})
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// mediaParams reads {userId}, {mediaId} and ?mediaType= for DELETE routes.
func mediaParams(w http.ResponseWriter, r *http.Request) (string, int64, string, bool) {
	userID := chi.URLParam(r, "userId")
	mediaID, err := strconv.ParseInt(chi.URLParam(r, "mediaId"), 10, 64)
	if err != nil || mediaID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid media id")
		return "", 0, "", false
	}
	mediaType, ok := parseMediaType(r.URL.Query().Get("mediaType"))
	if !ok {
		writeError(w, http.StatusBadRequest, "mediaType must be one of: movie, tv")
		return "", 0, "", false
	}
	return userID, mediaID, mediaType, true
}

// handleUpsertUser handles POST /api/user.
func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	var in library.UserInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := s.d.Library.UpsertUser(r.Context(), in)
	if err != nil {
		s.libraryFailed(w, r, err, "", "")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleGetUser handles GET /api/user/{id}.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.d.Library.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.libraryFailed(w, r, err, "User not found", "")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Library.ListFavorites(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.libraryFailed(w, r, err, "", "")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var in library.MediaInput
	if !decodeJSON(w, r, &in) {
		return
	}
	f, err := s.d.Library.AddFavorite(r.Context(), in)
	if err != nil {
		s.libraryFailed(w, r, err, "", "Media already in favorites")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, mediaID, mediaType, ok := mediaParams(w, r)
	if !ok {
		return
	}
	if err := s.d.Library.RemoveFavorite(r.Context(), userID, mediaID, mediaType); err != nil {
		s.libraryFailed(w, r, err, "Media not in favorites", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Library.ListWatchlist(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.libraryFailed(w, r, err, "", "")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var in library.MediaInput
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := s.d.Library.AddToWatchlist(r.Context(), in)
	if err != nil {
		s.libraryFailed(w, r, err, "", "Media already in watchlist")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	userID, mediaID, mediaType, ok := mediaParams(w, r)
	if !ok {
		return
	}
	if err := s.d.Library.RemoveFromWatchlist(r.Context(), userID, mediaID, mediaType); err != nil {
		s.libraryFailed(w, r, err, "Media not in watchlist", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleGetComments handles GET /api/comments. Without an action it lists the
// comments of one title; action=count counts them and action=recent returns
// the newest comments across all titles.
func (s *Server) handleGetComments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action := q.Get("action")

	if action == "recent" {
		limit, _ := strconv.Atoi(q.Get("limit"))
		list, err := s.d.Library.RecentComments(r.Context(), limit)
		if err != nil {
			s.libraryFailed(w, r, err, "", "")
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}
	if action != "" && action != "count" {
		writeError(w, http.StatusBadRequest, "Unknown action")
		return
	}

	mediaID, err := strconv.ParseInt(q.Get("mediaId"), 10, 64)
	if err != nil || mediaID <= 0 {
		writeError(w, http.StatusBadRequest, "mediaId is required")
		return
	}
	mediaType, ok := parseMediaType(q.Get("mediaType"))
	if !ok {
		writeError(w, http.StatusBadRequest, "mediaType must be one of: movie, tv")
		return
	}

	if action == "count" {
		n, err := s.d.Library.CountComments(r.Context(), mediaID, mediaType)
		if err != nil {
			s.libraryFailed(w, r, err, "", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"count": n})
		return
	}
	list, err := s.d.Library.ListComments(r.Context(), mediaID, mediaType)
	if err != nil {
		s.libraryFailed(w, r, err, "", "")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleCreateComment handles POST /api/comments.
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var in library.CommentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := s.d.Library.CreateComment(r.Context(), in)
	if err != nil {
		s.libraryFailed(w, r, err, "", "")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
