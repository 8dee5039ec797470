package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalink/telemed-backend/internal/auth"
)

type mockRepo struct {
	patients      map[uuid.UUID]uuid.UUID
	sessions      map[uuid.UUID]*Session
	messages      map[uuid.UUID][]Message
	interventions []Intervention
	crisisErr     error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients: make(map[uuid.UUID]uuid.UUID),
		sessions: make(map[uuid.UUID]*Session),
		messages: make(map[uuid.UUID][]Message),
	}
}

func (m *mockRepo) GetPatientIDByUser(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, ok := m.patients[userID]
	if !ok {
		return uuid.Nil, ErrNoPatientProfile
	}
	return id, nil
}

func (m *mockRepo) CreateSession(_ context.Context, patientID uuid.UUID) (*Session, error) {
	session := &Session{ID: uuid.New(), PatientID: patientID, StartedAt: time.Now()}
	m.sessions[session.ID] = session
	return session, nil
}

func (m *mockRepo) GetSessionForPatient(_ context.Context, sessionID, patientID uuid.UUID) (*Session, error) {
	session, ok := m.sessions[sessionID]
	if !ok || session.PatientID != patientID {
		return nil, ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (m *mockRepo) InsertMessage(_ context.Context, sessionID uuid.UUID, sender Sender, body string) (*Message, error) {
	msg := Message{ID: uuid.New(), SessionID: sessionID, Sender: sender, Body: body, CreatedAt: time.Now()}
	m.messages[sessionID] = append(m.messages[sessionID], msg)
	return &msg, nil
}

func (m *mockRepo) ListMessages(_ context.Context, sessionID uuid.UUID) ([]Message, error) {
	return m.messages[sessionID], nil
}

func (m *mockRepo) FlagCrisis(_ context.Context, sessionID, patientID uuid.UUID, triggerMessageID *uuid.UUID) error {
	if m.crisisErr != nil {
		return m.crisisErr
	}
	if session, ok := m.sessions[sessionID]; ok {
		session.CrisisFlagged = true
	}
	m.interventions = append(m.interventions, Intervention{
		ID:               uuid.New(),
		SessionID:        sessionID,
		PatientID:        patientID,
		TriggerMessageID: triggerMessageID,
		CreatedAt:        time.Now(),
	})
	return nil
}

type scriptedResponder struct {
	reply  *TriageReply
	err    error
	called int
}

func (r *scriptedResponder) Respond(_ context.Context, _ string, _ string) (*TriageReply, error) {
	r.called++
	if r.err != nil {
		return nil, r.err
	}
	return r.reply, nil
}

func newTestService(repo *mockRepo, responder Responder) *Service {
	return NewService(repo, responder, zerolog.Nop())
}

func addPatient(repo *mockRepo) auth.Identity {
	userID := uuid.New()
	repo.patients[userID] = uuid.New()
	return auth.Identity{UserID: userID, Role: auth.RolePatient}
}

func TestPostMessage_StoresBothSides(t *testing.T) {
	repo := newMockRepo()
	responder := &scriptedResponder{reply: &TriageReply{Reply: "Rest and hydrate."}}
	svc := newTestService(repo, responder)
	ident := addPatient(repo)

	session, err := svc.StartSession(context.Background(), ident)
	require.NoError(t, err)

	result, err := svc.PostMessage(context.Background(), ident, session.ID, "I have a mild headache")
	require.NoError(t, err)
	assert.False(t, result.CrisisDetected)
	assert.Equal(t, SenderPatient, result.Patient.Sender)
	assert.Equal(t, "I have a mild headache", result.Patient.Body)
	assert.Equal(t, SenderAssistant, result.Assistant.Sender)
	assert.Equal(t, "Rest and hydrate.", result.Assistant.Body)

	msgs, err := svc.ListMessages(context.Background(), ident, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, SenderPatient, msgs[0].Sender)
	assert.Equal(t, SenderAssistant, msgs[1].Sender)
	assert.Empty(t, repo.interventions)
	assert.False(t, repo.sessions[session.ID].CrisisFlagged)
}

func TestPostMessage_CrisisEscalation(t *testing.T) {
	repo := newMockRepo()
	responder := &scriptedResponder{reply: &TriageReply{
		Reply:          "Please contact emergency services immediately.",
		CrisisDetected: true,
	}}
	svc := newTestService(repo, responder)
	ident := addPatient(repo)

	session, err := svc.StartSession(context.Background(), ident)
	require.NoError(t, err)

	result, err := svc.PostMessage(context.Background(), ident, session.ID, "I want to hurt myself")
	require.NoError(t, err)
	assert.True(t, result.CrisisDetected)

	assert.True(t, repo.sessions[session.ID].CrisisFlagged)
	require.Len(t, repo.interventions, 1)
	intervention := repo.interventions[0]
	assert.Equal(t, session.ID, intervention.SessionID)
	assert.Equal(t, repo.patients[ident.UserID], intervention.PatientID)
	require.NotNil(t, intervention.TriggerMessageID)
	assert.Equal(t, result.Patient.ID, *intervention.TriggerMessageID)
}

func TestPostMessage_ResponderFailureKeepsPatientMessage(t *testing.T) {
	repo := newMockRepo()
	responder := &scriptedResponder{err: errors.New("connection refused")}
	svc := newTestService(repo, responder)
	ident := addPatient(repo)

	session, err := svc.StartSession(context.Background(), ident)
	require.NoError(t, err)

	_, err = svc.PostMessage(context.Background(), ident, session.ID, "still waiting")
	assert.ErrorIs(t, err, ErrResponderFailure)

	// The patient's message survives the responder outage.
	msgs := repo.messages[session.ID]
	require.Len(t, msgs, 1)
	assert.Equal(t, SenderPatient, msgs[0].Sender)
	assert.Equal(t, "still waiting", msgs[0].Body)
}

func TestPostMessage_EscalationFailureIsReported(t *testing.T) {
	repo := newMockRepo()
	repo.crisisErr = errors.New("interventions table unavailable")
	responder := &scriptedResponder{reply: &TriageReply{Reply: "Call 911.", CrisisDetected: true}}
	svc := newTestService(repo, responder)
	ident := addPatient(repo)

	session, err := svc.StartSession(context.Background(), ident)
	require.NoError(t, err)

	_, err = svc.PostMessage(context.Background(), ident, session.ID, "emergency")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrResponderFailure)
}

func TestChat_RoleGate(t *testing.T) {
	repo := newMockRepo()
	responder := &scriptedResponder{reply: &TriageReply{Reply: "ok"}}
	svc := newTestService(repo, responder)

	professional := auth.Identity{UserID: uuid.New(), Role: auth.RoleProfessional}

	_, err := svc.StartSession(context.Background(), professional)
	assert.ErrorIs(t, err, ErrRoleForbidden)

	_, err = svc.PostMessage(context.Background(), professional, uuid.New(), "hello")
	assert.ErrorIs(t, err, ErrRoleForbidden)

	_, err = svc.ListMessages(context.Background(), professional, uuid.New())
	assert.ErrorIs(t, err, ErrRoleForbidden)

	assert.Zero(t, responder.called)
}

func TestChat_SessionScopedToOwner(t *testing.T) {
	repo := newMockRepo()
	responder := &scriptedResponder{reply: &TriageReply{Reply: "ok"}}
	svc := newTestService(repo, responder)

	owner := addPatient(repo)
	other := addPatient(repo)

	session, err := svc.StartSession(context.Background(), owner)
	require.NoError(t, err)

	_, err = svc.PostMessage(context.Background(), other, session.ID, "hi")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.ListMessages(context.Background(), other, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPostMessage_EmptyBodyRejected(t *testing.T) {
	repo := newMockRepo()
	responder := &scriptedResponder{reply: &TriageReply{Reply: "ok"}}
	svc := newTestService(repo, responder)
	ident := addPatient(repo)

	session, err := svc.StartSession(context.Background(), ident)
	require.NoError(t, err)

	_, err = svc.PostMessage(context.Background(), ident, session.ID, "")
	assert.Error(t, err)
	assert.Empty(t, repo.messages[session.ID])
}
