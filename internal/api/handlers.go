package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vitalink/telemed-backend/internal/appointment"
	"github.com/vitalink/telemed-backend/internal/auth"
	"github.com/vitalink/telemed-backend/internal/availability"
)

const slotUnavailableMessage = "This appointment slot is no longer available."

func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no authenticated principal")
	}
	return ident, ok
}

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identity(w, r)
		if !ok {
			return
		}

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.SlotID == "" {
			writeError(w, http.StatusBadRequest, "missing_slot_id", "slotId is required")
			return
		}
		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slotId must be a valid UUID")
			return
		}

		appt, err := svc.Book(r.Context(), ident, slotID, req.PatientNotes, req.DurationMinutes)
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookAppointmentResponse{
			Message:       "Appointment booked successfully.",
			AppointmentID: appt.ID,
		})
	}
}

func handleBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrRoleForbidden):
		writeError(w, http.StatusForbidden, "role_forbidden", "only patients may book appointments")
	case errors.Is(err, appointment.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", slotUnavailableMessage)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "could not book appointment")
	}
}

func listMyAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identity(w, r)
		if !ok {
			return
		}

		window, err := appointment.ParseWindow(r.URL.Query().Get("status"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_status_filter", err.Error())
			return
		}

		appts, err := svc.ListMine(r.Context(), ident, window)
		if err != nil {
			if errors.Is(err, appointment.ErrRoleForbidden) {
				writeError(w, http.StatusForbidden, "role_forbidden", "role may not list appointments")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "could not list appointments")
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identity(w, r)
		if !ok {
			return
		}

		apptID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CancelAppointmentRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		result, err := svc.Cancel(r.Context(), ident, apptID, req.Reason)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CancelAppointmentResponse{
			Success:      true,
			Message:      "Appointment cancelled.",
			Appointment:  toAppointmentResponse(result.Appointment),
			SlotReleased: result.SlotReleased,
		})
	}
}

func completeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identity(w, r)
		if !ok {
			return
		}

		apptID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Complete(r.Context(), ident, apptID)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// handleLifecycleError maps cancellation/completion failures. Not-found covers
// both a missing appointment and one the caller does not participate in.
func handleLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrRoleForbidden):
		writeError(w, http.StatusForbidden, "role_forbidden", "role may not modify this appointment")
	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, appointment.ErrNoPatientProfile),
		errors.Is(err, appointment.ErrNoProfessionalProfile):
		writeError(w, http.StatusNotFound, "appointment_not_found", "appointment not found")
	case errors.Is(err, appointment.ErrAlreadyFinalized):
		writeError(w, http.StatusBadRequest, "already_finalized", "appointment already cancelled or completed")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "could not update appointment")
	}
}

func batchAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identity(w, r)
		if !ok {
			return
		}

		var rec availability.Recurrence
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		created, err := svc.GenerateSlots(r.Context(), ident, rec)
		if err != nil {
			switch {
			case errors.Is(err, availability.ErrRoleForbidden):
				writeError(w, http.StatusForbidden, "role_forbidden", "only professionals may publish availability")
			case errors.Is(err, availability.ErrInvalidRecurrence):
				writeError(w, http.StatusBadRequest, "invalid_recurrence", err.Error())
			case errors.Is(err, availability.ErrNoProfessionalProfile):
				writeError(w, http.StatusNotFound, "no_professional_profile", "no professional profile for user")
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", "could not generate slots")
			}
			return
		}

		writeJSON(w, http.StatusOK, BatchAvailabilityResponse{Success: true, SlotsCreated: created})
	}
}

func listOpenSlotsHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, err := uuid.Parse(chi.URLParam(r, "professionalID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professionalID must be a valid UUID")
			return
		}

		from := time.Now()
		if v := r.URL.Query().Get("from"); v != "" {
			from, err = time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC3339")
				return
			}
		}
		var to time.Time
		if v := r.URL.Query().Get("to"); v != "" {
			to, err = time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be RFC3339")
				return
			}
		}

		slots, err := svc.ListOpenSlots(r.Context(), professionalID, from, to)
		if err != nil {
			if errors.Is(err, availability.ErrInvalidRecurrence) {
				writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "could not list slots")
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, toSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
