package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalink/telemed-backend/internal/appointment"
	"github.com/vitalink/telemed-backend/internal/auth"
	"github.com/vitalink/telemed-backend/internal/availability"
	"github.com/vitalink/telemed-backend/internal/chat"
	"github.com/vitalink/telemed-backend/internal/signaling"
)

var testSecret = []byte("router-test-secret")

// -- in-memory appointment store --

type apptStore struct {
	mu            sync.Mutex
	patients      map[uuid.UUID]uuid.UUID
	professionals map[uuid.UUID]uuid.UUID
	slots         map[uuid.UUID]*fakeSlot
	appointments  map[uuid.UUID]*appointment.Appointment
}

type fakeSlot struct {
	professionalID uuid.UUID
	startTime      time.Time
	isBooked       bool
}

func newApptStore() *apptStore {
	return &apptStore{
		patients:      make(map[uuid.UUID]uuid.UUID),
		professionals: make(map[uuid.UUID]uuid.UUID),
		slots:         make(map[uuid.UUID]*fakeSlot),
		appointments:  make(map[uuid.UUID]*appointment.Appointment),
	}
}

func (s *apptStore) GetPatientIDByUser(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.patients[userID]
	if !ok {
		return uuid.Nil, appointment.ErrNoPatientProfile
	}
	return id, nil
}

func (s *apptStore) GetProfessionalIDByUser(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.professionals[userID]
	if !ok {
		return uuid.Nil, appointment.ErrNoProfessionalProfile
	}
	return id, nil
}

func (s *apptStore) BookSlot(_ context.Context, req appointment.BookingRequest) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[req.SlotID]
	if !ok || slot.isBooked {
		return nil, appointment.ErrSlotUnavailable
	}
	now := time.Now()
	appt := &appointment.Appointment{
		ID:              uuid.New(),
		PatientID:       req.PatientID,
		ProfessionalID:  slot.professionalID,
		AppointmentTime: slot.startTime,
		Status:          appointment.StatusScheduled,
		AppointmentType: req.AppointmentType,
		PatientNotes:    req.PatientNotes,
		DurationMinutes: req.DurationMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.appointments[appt.ID] = appt
	slot.isBooked = true
	return appt, nil
}

func (s *apptStore) inScope(a *appointment.Appointment, scope appointment.ParticipantScope) bool {
	switch {
	case scope.PatientID != nil:
		return a.PatientID == *scope.PatientID
	case scope.ProfessionalID != nil:
		return a.ProfessionalID == *scope.ProfessionalID
	default:
		return false
	}
}

func (s *apptStore) CancelAppointment(_ context.Context, scope appointment.ParticipantScope, id uuid.UUID, reason *string) (*appointment.Appointment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.appointments[id]
	if !ok || !s.inScope(appt, scope) {
		return nil, false, appointment.ErrAppointmentNotFound
	}
	if appt.Status.Terminal() {
		return nil, false, appointment.ErrAlreadyFinalized
	}
	now := time.Now()
	appt.Status = appointment.StatusCancelled
	appt.CancellationReason = reason
	appt.CancelledAt = &now
	released := false
	for _, slot := range s.slots {
		if slot.professionalID == appt.ProfessionalID && slot.startTime.Equal(appt.AppointmentTime) && slot.isBooked {
			slot.isBooked = false
			released = true
		}
	}
	cp := *appt
	return &cp, released, nil
}

func (s *apptStore) CompleteAppointment(_ context.Context, scope appointment.ParticipantScope, id uuid.UUID) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.appointments[id]
	if !ok || !s.inScope(appt, scope) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if appt.Status.Terminal() {
		return nil, appointment.ErrAlreadyFinalized
	}
	appt.Status = appointment.StatusCompleted
	cp := *appt
	return &cp, nil
}

func (s *apptStore) CompletePast(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.appointments {
		if a.Status == appointment.StatusScheduled && a.AppointmentTime.Before(cutoff) {
			a.Status = appointment.StatusCompleted
			n++
		}
	}
	return n, nil
}

func (s *apptStore) ListByScope(_ context.Context, scope appointment.ParticipantScope, window appointment.Window, now time.Time) ([]appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []appointment.Appointment
	for _, a := range s.appointments {
		if !s.inScope(a, scope) {
			continue
		}
		switch window {
		case appointment.WindowUpcoming:
			if a.AppointmentTime.Before(now) {
				continue
			}
		case appointment.WindowPast:
			if !a.AppointmentTime.Before(now) {
				continue
			}
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *apptStore) GetScopedByID(_ context.Context, scope appointment.ParticipantScope, id uuid.UUID) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.appointments[id]
	if !ok || !s.inScope(appt, scope) {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *appt
	return &cp, nil
}

func (s *apptStore) SetConsultationLink(_ context.Context, id uuid.UUID, link string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.appointments[id]
	if !ok {
		return false, appointment.ErrAppointmentNotFound
	}
	if appt.ConsultationLink != nil {
		return false, nil
	}
	appt.ConsultationLink = &link
	return true, nil
}

func (s *apptStore) GetByConsultationLink(_ context.Context, link string) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appointments {
		if a.ConsultationLink != nil && *a.ConsultationLink == link {
			cp := *a
			return &cp, nil
		}
	}
	return nil, appointment.ErrAppointmentNotFound
}

// -- in-memory availability store --

type availStore struct {
	mu            sync.Mutex
	professionals map[uuid.UUID]uuid.UUID
	slots         []availability.Slot
}

func newAvailStore() *availStore {
	return &availStore{professionals: make(map[uuid.UUID]uuid.UUID)}
}

func (s *availStore) GetProfessionalIDByUser(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.professionals[userID]
	if !ok {
		return uuid.Nil, availability.ErrNoProfessionalProfile
	}
	return id, nil
}

func (s *availStore) InsertSlots(_ context.Context, slots []availability.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = append(s.slots, slots...)
	return nil
}

func (s *availStore) ListOpenSlots(_ context.Context, professionalID uuid.UUID, from, to time.Time) ([]availability.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []availability.Slot
	for _, slot := range s.slots {
		if slot.ProfessionalID != professionalID || slot.IsBooked {
			continue
		}
		if slot.StartTime.Before(from) {
			continue
		}
		if !to.IsZero() && slot.StartTime.After(to) {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

// -- in-memory chat store and responder --

type chatStore struct {
	mu       sync.Mutex
	patients map[uuid.UUID]uuid.UUID
	sessions map[uuid.UUID]*chat.Session
	messages map[uuid.UUID][]chat.Message
	flagged  int
}

func newChatStore() *chatStore {
	return &chatStore{
		patients: make(map[uuid.UUID]uuid.UUID),
		sessions: make(map[uuid.UUID]*chat.Session),
		messages: make(map[uuid.UUID][]chat.Message),
	}
}

func (s *chatStore) GetPatientIDByUser(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.patients[userID]
	if !ok {
		return uuid.Nil, chat.ErrNoPatientProfile
	}
	return id, nil
}

func (s *chatStore) CreateSession(_ context.Context, patientID uuid.UUID) (*chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := &chat.Session{ID: uuid.New(), PatientID: patientID, StartedAt: time.Now()}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *chatStore) GetSessionForPatient(_ context.Context, sessionID, patientID uuid.UUID) (*chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.PatientID != patientID {
		return nil, chat.ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *chatStore) InsertMessage(_ context.Context, sessionID uuid.UUID, sender chat.Sender, body string) (*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := chat.Message{ID: uuid.New(), SessionID: sessionID, Sender: sender, Body: body, CreatedAt: time.Now()}
	s.messages[sessionID] = append(s.messages[sessionID], msg)
	return &msg, nil
}

func (s *chatStore) ListMessages(_ context.Context, sessionID uuid.UUID) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[sessionID], nil
}

func (s *chatStore) FlagCrisis(_ context.Context, sessionID, _ uuid.UUID, _ *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		session.CrisisFlagged = true
	}
	s.flagged++
	return nil
}

type staticResponder struct {
	reply chat.TriageReply
}

func (r *staticResponder) Respond(_ context.Context, _ string, _ string) (*chat.TriageReply, error) {
	cp := r.reply
	return &cp, nil
}

// -- fixture --

type fixture struct {
	router    http.Handler
	appts     *apptStore
	avail     *availStore
	chats     *chatStore
	responder *staticResponder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	appts := newApptStore()
	avail := newAvailStore()
	chats := newChatStore()
	responder := &staticResponder{reply: chat.TriageReply{Reply: "Noted."}}

	apptSvc := appointment.NewService(appts)
	availSvc := availability.NewService(avail, 28)
	chatSvc := chat.NewService(chats, responder, zerolog.Nop())
	roomSvc := signaling.NewRoomService(apptSvc)
	hub := signaling.NewHub(nil, zerolog.Nop())

	router := NewRouter(RouterConfig{
		Appointments: apptSvc,
		Availability: availSvc,
		Chat:         chatSvc,
		Rooms:        roomSvc,
		Hub:          hub,
		JWTSecret:    testSecret,
		Log:          zerolog.Nop(),
		Env:          "test",
		Version:      "test",
	})

	return &fixture{router: router, appts: appts, avail: avail, chats: chats, responder: responder}
}

func (f *fixture) addPatient() (uuid.UUID, string) {
	userID := uuid.New()
	patientID := uuid.New()
	f.appts.patients[userID] = patientID
	f.chats.patients[userID] = patientID
	return userID, mintToken(userID, "patient")
}

func (f *fixture) addProfessional() (uuid.UUID, string) {
	userID := uuid.New()
	profID := uuid.New()
	f.appts.professionals[userID] = profID
	f.avail.professionals[userID] = profID
	return profID, mintToken(userID, "professional")
}

func (f *fixture) addSlot(professionalID uuid.UUID, start time.Time) uuid.UUID {
	id := uuid.New()
	f.appts.slots[id] = &fakeSlot{professionalID: professionalID, startTime: start}
	return id
}

func mintToken(userID uuid.UUID, role string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// -- tests --

func TestRouter_RequiresAuthentication(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/appointments/me", "/api/chat/sessions"} {
		rec := f.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	// Health stays open.
	rec := f.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookAppointment_Lifecycle(t *testing.T) {
	f := newFixture(t)
	profID, _ := f.addProfessional()
	slotID := f.addSlot(profID, time.Now().Add(48*time.Hour))
	_, patientToken := f.addPatient()

	rec := f.do(t, http.MethodPost, "/api/appointments", patientToken, BookAppointmentRequest{SlotID: slotID.String()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booked := decode[BookAppointmentResponse](t, rec)
	assert.NotEqual(t, uuid.Nil, booked.AppointmentID)

	// The same slot cannot be booked twice.
	_, otherToken := f.addPatient()
	rec = f.do(t, http.MethodPost, "/api/appointments", otherToken, BookAppointmentRequest{SlotID: slotID.String()})
	assert.Equal(t, http.StatusConflict, rec.Code)
	conflict := decode[ErrorResponse](t, rec)
	assert.Equal(t, "slot_unavailable", conflict.Error)
	assert.Equal(t, slotUnavailableMessage, conflict.Details)

	// The booking shows up in the patient's upcoming list.
	rec = f.do(t, http.MethodGet, "/api/appointments/me?status=upcoming", patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]AppointmentResponse](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, booked.AppointmentID, listed[0].ID)
	assert.Equal(t, "scheduled", listed[0].Status)
}

func TestBookAppointment_Validation(t *testing.T) {
	f := newFixture(t)
	_, patientToken := f.addPatient()
	_, profToken := f.addProfessional()

	rec := f.do(t, http.MethodPost, "/api/appointments", patientToken, BookAppointmentRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_slot_id", decode[ErrorResponse](t, rec).Error)

	rec = f.do(t, http.MethodPost, "/api/appointments", patientToken, BookAppointmentRequest{SlotID: "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_slot_id", decode[ErrorResponse](t, rec).Error)

	// A professional may not book.
	rec = f.do(t, http.MethodPost, "/api/appointments", profToken, BookAppointmentRequest{SlotID: uuid.NewString()})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCancelAppointment_EndToEnd(t *testing.T) {
	f := newFixture(t)
	profID, _ := f.addProfessional()
	slotID := f.addSlot(profID, time.Now().Add(48*time.Hour))
	_, patientToken := f.addPatient()

	rec := f.do(t, http.MethodPost, "/api/appointments", patientToken, BookAppointmentRequest{SlotID: slotID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)
	apptID := decode[BookAppointmentResponse](t, rec).AppointmentID

	reason := "schedule conflict"
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/appointments/%s/cancel", apptID), patientToken, CancelAppointmentRequest{Reason: &reason})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[CancelAppointmentResponse](t, rec)
	assert.True(t, cancelled.Success)
	assert.True(t, cancelled.SlotReleased)
	assert.Equal(t, "cancelled", cancelled.Appointment.Status)
	require.NotNil(t, cancelled.Appointment.CancellationReason)
	assert.Equal(t, reason, *cancelled.Appointment.CancellationReason)

	// Cancelling again is rejected.
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/appointments/%s/cancel", apptID), patientToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "already_finalized", decode[ErrorResponse](t, rec).Error)

	// Someone else's cancellation reads as not found.
	_, otherToken := f.addPatient()
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/appointments/%s/cancel", apptID), otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/appointments/not-a-uuid/cancel", patientToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteAppointment_ProfessionalOnly(t *testing.T) {
	f := newFixture(t)
	profID, profToken := f.addProfessional()
	slotID := f.addSlot(profID, time.Now().Add(-time.Hour))
	_, patientToken := f.addPatient()

	rec := f.do(t, http.MethodPost, "/api/appointments", patientToken, BookAppointmentRequest{SlotID: slotID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)
	apptID := decode[BookAppointmentResponse](t, rec).AppointmentID

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/appointments/%s/complete", apptID), patientToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/appointments/%s/complete", apptID), profToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode[AppointmentResponse](t, rec).Status)
}

func TestBatchAvailability(t *testing.T) {
	f := newFixture(t)
	_, profToken := f.addProfessional()
	_, patientToken := f.addPatient()

	rec := f.do(t, http.MethodPost, "/api/availability/batch", profToken, availability.Recurrence{
		DaysOfWeek:          []string{"monday", "wednesday"},
		StartTime:           "09:00:00",
		EndTime:             "11:00:00",
		SlotDurationMinutes: 30,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	batch := decode[BatchAvailabilityResponse](t, rec)
	assert.True(t, batch.Success)
	assert.Positive(t, batch.SlotsCreated)
	assert.Len(t, f.avail.slots, batch.SlotsCreated)

	// Patients may not publish availability.
	rec = f.do(t, http.MethodPost, "/api/availability/batch", patientToken, availability.Recurrence{
		DaysOfWeek:          []string{"monday"},
		StartTime:           "09:00:00",
		EndTime:             "10:00:00",
		SlotDurationMinutes: 30,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/availability/batch", profToken, availability.Recurrence{
		DaysOfWeek:          []string{"funday"},
		StartTime:           "09:00:00",
		EndTime:             "10:00:00",
		SlotDurationMinutes: 30,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_recurrence", decode[ErrorResponse](t, rec).Error)
}

func TestListOpenSlots(t *testing.T) {
	f := newFixture(t)
	profID, profToken := f.addProfessional()
	_, patientToken := f.addPatient()

	rec := f.do(t, http.MethodPost, "/api/availability/batch", profToken, availability.Recurrence{
		DaysOfWeek:          []string{"monday"},
		StartTime:           "09:00:00",
		EndTime:             "10:00:00",
		SlotDurationMinutes: 30,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/availability/%s/slots", profID), patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[[]SlotResponse](t, rec)
	assert.NotEmpty(t, slots)
	for _, s := range slots {
		assert.Equal(t, profID, s.ProfessionalID)
	}

	rec = f.do(t, http.MethodGet, "/api/availability/not-a-uuid/slots", patientToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatFlow(t *testing.T) {
	f := newFixture(t)
	_, patientToken := f.addPatient()

	rec := f.do(t, http.MethodPost, "/api/chat/sessions", patientToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decode[SessionResponse](t, rec)
	assert.False(t, session.CrisisFlagged)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/chat/sessions/%s/messages", session.ID), patientToken, PostMessageRequest{Body: "I have a sore throat"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reply := decode[PostMessageResponse](t, rec)
	assert.Equal(t, "Noted.", reply.Reply)
	assert.False(t, reply.CrisisDetected)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/chat/sessions/%s/messages", session.ID), patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	messages := decode[[]MessageResponse](t, rec)
	require.Len(t, messages, 2)
	assert.Equal(t, "patient", messages[0].Sender)
	assert.Equal(t, "assistant", messages[1].Sender)

	// Another patient cannot read the session.
	_, otherToken := f.addPatient()
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/chat/sessions/%s/messages", session.ID), otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/chat/sessions/%s/messages", session.ID), patientToken, PostMessageRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatFlow_CrisisEscalation(t *testing.T) {
	f := newFixture(t)
	f.responder.reply = chat.TriageReply{Reply: "Please reach out to a crisis line now.", CrisisDetected: true}
	_, patientToken := f.addPatient()

	rec := f.do(t, http.MethodPost, "/api/chat/sessions", patientToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decode[SessionResponse](t, rec)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/chat/sessions/%s/messages", session.ID), patientToken, PostMessageRequest{Body: "I can't go on"})
	require.Equal(t, http.StatusCreated, rec.Code)
	reply := decode[PostMessageResponse](t, rec)
	assert.True(t, reply.CrisisDetected)
	assert.Equal(t, 1, f.chats.flagged)
}

func TestVideoRooms(t *testing.T) {
	f := newFixture(t)
	profID, profToken := f.addProfessional()
	slotID := f.addSlot(profID, time.Now().Add(48*time.Hour))
	_, patientToken := f.addPatient()

	rec := f.do(t, http.MethodPost, "/api/appointments", patientToken, BookAppointmentRequest{SlotID: slotID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)
	apptID := decode[BookAppointmentResponse](t, rec).AppointmentID

	rec = f.do(t, http.MethodPost, "/api/video/rooms", patientToken, CreateRoomRequest{AppointmentID: apptID.String()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	room := decode[RoomResponse](t, rec)
	assert.Equal(t, "/call/"+room.RoomID.String(), room.Link)

	// Minting from the other participant returns the same room.
	rec = f.do(t, http.MethodPost, "/api/video/rooms", profToken, CreateRoomRequest{AppointmentID: apptID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, room.RoomID, decode[RoomResponse](t, rec).RoomID)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/video/rooms/%s/validate", room.RoomID), patientToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A stranger is rejected at validation.
	_, strangerToken := f.addPatient()
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/video/rooms/%s/validate", room.RoomID), strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/video/rooms/%s/validate", uuid.New()), patientToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
