package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vitalink/telemed-backend/internal/chat"
)

func startChatSessionHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identity(w, r)
		if !ok {
			return
		}

		session, err := svc.StartSession(r.Context(), ident)
		if err != nil {
			handleChatError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, SessionResponse{
			ID:            session.ID,
			StartedAt:     session.StartedAt,
			CrisisFlagged: session.CrisisFlagged,
		})
	}
}

func postChatMessageHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identity(w, r)
		if !ok {
			return
		}

		sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "id must be a valid UUID")
			return
		}

		var req PostMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Body == "" {
			writeError(w, http.StatusBadRequest, "missing_body", "body is required")
			return
		}

		result, err := svc.PostMessage(r.Context(), ident, sessionID, req.Body)
		if err != nil {
			handleChatError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, PostMessageResponse{
			Reply:          result.Assistant.Body,
			CrisisDetected: result.CrisisDetected,
		})
	}
}

func listChatMessagesHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identity(w, r)
		if !ok {
			return
		}

		sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "id must be a valid UUID")
			return
		}

		messages, err := svc.ListMessages(r.Context(), ident, sessionID)
		if err != nil {
			handleChatError(w, err)
			return
		}

		resp := make([]MessageResponse, 0, len(messages))
		for _, m := range messages {
			resp = append(resp, toMessageResponse(m))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrRoleForbidden):
		writeError(w, http.StatusForbidden, "role_forbidden", "only patients may use chat triage")
	case errors.Is(err, chat.ErrSessionNotFound), errors.Is(err, chat.ErrNoPatientProfile):
		writeError(w, http.StatusNotFound, "session_not_found", "chat session not found")
	case errors.Is(err, chat.ErrResponderFailure):
		writeError(w, http.StatusBadGateway, "responder_unavailable", "triage responder unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "chat operation failed")
	}
}
