package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/vitalink/telemed-backend/internal/appointment"
	"github.com/vitalink/telemed-backend/internal/availability"
	"github.com/vitalink/telemed-backend/internal/chat"
)

type BookAppointmentRequest struct {
	SlotID          string  `json:"slotId"`
	PatientNotes    *string `json:"patientNotes,omitempty"`
	DurationMinutes *int    `json:"durationMinutes,omitempty"`
}

type BookAppointmentResponse struct {
	Message       string    `json:"message"`
	AppointmentID uuid.UUID `json:"appointmentId"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patientId"`
	ProfessionalID     uuid.UUID  `json:"professionalId"`
	AppointmentTime    time.Time  `json:"appointmentTime"`
	Status             string     `json:"status"`
	AppointmentType    string     `json:"appointmentType"`
	ConsultationLink   *string    `json:"consultationLink,omitempty"`
	PatientNotes       *string    `json:"patientNotes,omitempty"`
	DurationMinutes    *int       `json:"durationMinutes,omitempty"`
	CancellationReason *string    `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		ProfessionalID:     a.ProfessionalID,
		AppointmentTime:    a.AppointmentTime,
		Status:             string(a.Status),
		AppointmentType:    a.AppointmentType,
		ConsultationLink:   a.ConsultationLink,
		PatientNotes:       a.PatientNotes,
		DurationMinutes:    a.DurationMinutes,
		CancellationReason: a.CancellationReason,
		CancelledAt:        a.CancelledAt,
	}
}

type CancelAppointmentRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type CancelAppointmentResponse struct {
	Success      bool                `json:"success"`
	Message      string              `json:"message"`
	Appointment  AppointmentResponse `json:"appointment"`
	SlotReleased bool                `json:"slot_released"`
}

type BatchAvailabilityResponse struct {
	Success      bool `json:"success"`
	SlotsCreated int  `json:"slots_created"`
}

type SlotResponse struct {
	ID             uuid.UUID `json:"id"`
	ProfessionalID uuid.UUID `json:"professionalId"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
}

func toSlotResponse(s availability.Slot) SlotResponse {
	return SlotResponse{
		ID:             s.ID,
		ProfessionalID: s.ProfessionalID,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
	}
}

type SessionResponse struct {
	ID            uuid.UUID `json:"id"`
	StartedAt     time.Time `json:"startedAt"`
	CrisisFlagged bool      `json:"crisisFlagged"`
}

type PostMessageRequest struct {
	Body string `json:"body"`
}

type PostMessageResponse struct {
	Reply          string `json:"reply"`
	CrisisDetected bool   `json:"crisis_detected"`
}

type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func toMessageResponse(m chat.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Sender:    string(m.Sender),
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

type CreateRoomRequest struct {
	AppointmentID string `json:"appointmentId"`
}

type RoomResponse struct {
	RoomID uuid.UUID `json:"roomId"`
	Link   string    `json:"link"`
}
