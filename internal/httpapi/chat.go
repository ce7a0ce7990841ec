// chat.go: Assistant chat and recommendation endpoints.
package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/420btc/KinemaTV/internal/chat"
	"github.com/420btc/KinemaTV/internal/logger"
	"github.com/420btc/KinemaTV/internal/telemetry"
)

type chatRequest struct {
	Message string       `json:"message"`
	Context chat.Context `json:"context"`
}

type recommendationsRequest struct {
	ContentType string      `json:"contentType"`
	ContentData *chat.Media `json:"contentData"`
}

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	reply, err := s.d.Assistant.Reply(r.Context(), body.Message, body.Context)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "Message is required")
			return
		}
		s.chatFailed(w, r, err, "Error generating chat response")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

// handleRecommendations handles POST /api/recommendations.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var body recommendationsRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.ContentType) == "" || body.ContentData == nil {
		writeError(w, http.StatusBadRequest, "Content type and data are required")
		return
	}
	mediaType, ok := parseMediaType(body.ContentType)
	if !ok {
		writeError(w, http.StatusBadRequest, "Content type must be movie or tv")
		return
	}
	recs, err := s.d.Assistant.Recommend(r.Context(), mediaType, *body.ContentData)
	if err != nil {
		s.chatFailed(w, r, err, "Error getting recommendations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"recommendations": recs})
}

func (s *Server) chatFailed(w http.ResponseWriter, r *http.Request, err error, msg string) {
	logger.FromContext(r.Context()).WithError(err).Error("assistant request failed")
	if !errors.Is(err, chat.ErrNotConfigured) {
		telemetry.CaptureError(err, map[string]string{"component": "chat"})
	}
	writeError(w, http.StatusInternalServerError, msg)
}
