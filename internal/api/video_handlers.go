package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vitalink/telemed-backend/internal/appointment"
	"github.com/vitalink/telemed-backend/internal/signaling"
)

func createRoomHandler(svc *signaling.RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identity(w, r)
		if !ok {
			return
		}

		var req CreateRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		apptID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointmentId must be a valid UUID")
			return
		}

		room, err := svc.CreateRoom(r.Context(), ident, apptID)
		if err != nil {
			handleRoomError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, RoomResponse{RoomID: room.ID, Link: room.Link})
	}
}

func validateRoomHandler(svc *signaling.RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identity(w, r)
		if !ok {
			return
		}

		roomID, err := uuid.Parse(chi.URLParam(r, "roomID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_room_id", "roomID must be a valid UUID")
			return
		}

		room, err := svc.ValidateRoom(r.Context(), ident, roomID)
		if err != nil {
			handleRoomError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, RoomResponse{RoomID: room.ID, Link: room.Link})
	}
}

func handleRoomError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, signaling.ErrRoomNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "room_not_found", "room or appointment not found")
	case errors.Is(err, signaling.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "not_participant", "caller is not a participant")
	case errors.Is(err, signaling.ErrNotJoinable):
		writeError(w, http.StatusBadRequest, "not_joinable", "appointment is not in a joinable state")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "video room operation failed")
	}
}
