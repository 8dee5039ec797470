// Package signaling implements the WebRTC boundary: minting a video room for
// an appointment, validating that a caller is one of its two participants,
// and relaying signal frames between room members. The relay itself carries
// no appointment-aware logic.
package signaling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vitalink/telemed-backend/internal/appointment"
	"github.com/vitalink/telemed-backend/internal/auth"
)

var (
	ErrRoomNotFound   = errors.New("video room not found")
	ErrNotParticipant = errors.New("caller is not a participant of this appointment")
	ErrNotJoinable    = errors.New("appointment is not in a joinable state")
)

const linkPrefix = "/call/"

// Appointments is the slice of the appointment service the room service
// needs. Satisfied by *appointment.Service.
type Appointments interface {
	GetMine(ctx context.Context, ident auth.Identity, id uuid.UUID) (*appointment.Appointment, error)
	AttachConsultationLink(ctx context.Context, id uuid.UUID, link string) (bool, error)
	FindByConsultationLink(ctx context.Context, link string) (*appointment.Appointment, error)
}

type Room struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Link          string
}

type RoomService struct {
	appointments Appointments
}

func NewRoomService(appointments Appointments) *RoomService {
	return &RoomService{appointments: appointments}
}

// CreateRoom mints a room for the appointment and stores the link on it.
// Minting is idempotent: the attach is conditional on no link being stored
// yet, so of two racing participants exactly one write lands and the loser
// re-reads and returns the winner's room.
func (s *RoomService) CreateRoom(ctx context.Context, ident auth.Identity, appointmentID uuid.UUID) (*Room, error) {
	appt, err := s.appointments.GetMine(ctx, ident, appointmentID)
	if err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			return nil, err
		}
		if errors.Is(err, appointment.ErrRoleForbidden) {
			return nil, ErrNotParticipant
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.Status != appointment.StatusScheduled {
		return nil, ErrNotJoinable
	}

	if appt.ConsultationLink != nil {
		return roomFromLink(appt.ID, *appt.ConsultationLink)
	}

	roomID := uuid.New()
	link := linkPrefix + roomID.String()
	attached, err := s.appointments.AttachConsultationLink(ctx, appt.ID, link)
	if err != nil {
		return nil, fmt.Errorf("attach consultation link: %w", err)
	}
	if attached {
		return &Room{ID: roomID, AppointmentID: appt.ID, Link: link}, nil
	}

	// Lost the attach race; the winner's link is committed now.
	appt, err = s.appointments.GetMine(ctx, ident, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("reload appointment after mint race: %w", err)
	}
	if appt.ConsultationLink == nil {
		return nil, errors.New("consultation link missing after mint race")
	}
	return roomFromLink(appt.ID, *appt.ConsultationLink)
}

func roomFromLink(appointmentID uuid.UUID, link string) (*Room, error) {
	roomID, err := roomIDFromLink(link)
	if err != nil {
		return nil, fmt.Errorf("stored consultation link is malformed: %w", err)
	}
	return &Room{ID: roomID, AppointmentID: appointmentID, Link: link}, nil
}

// ValidateRoom resolves the room back to its appointment and checks the
// caller participates in it.
func (s *RoomService) ValidateRoom(ctx context.Context, ident auth.Identity, roomID uuid.UUID) (*Room, error) {
	link := linkPrefix + roomID.String()

	appt, err := s.appointments.FindByConsultationLink(ctx, link)
	if err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("resolve room: %w", err)
	}

	if _, err := s.appointments.GetMine(ctx, ident, appt.ID); err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) || errors.Is(err, appointment.ErrRoleForbidden) {
			return nil, ErrNotParticipant
		}
		return nil, fmt.Errorf("check participant: %w", err)
	}

	return &Room{ID: roomID, AppointmentID: appt.ID, Link: link}, nil
}

func roomIDFromLink(link string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimPrefix(link, linkPrefix))
}
