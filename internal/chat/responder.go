package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Responder is the external AI triage service. The NLP lives entirely on the
// other side of this interface.
type Responder interface {
	Respond(ctx context.Context, sessionID string, message string) (*TriageReply, error)
}

type TriageReply struct {
	Reply          string `json:"reply"`
	CrisisDetected bool   `json:"crisis_detected"`
}

type httpResponder struct {
	baseURL string
	client  *http.Client
}

// NewHTTPResponder builds a Responder over the triage service's REST API.
func NewHTTPResponder(baseURL string, timeout time.Duration) Responder {
	return &httpResponder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type triageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (r *httpResponder) Respond(ctx context.Context, sessionID string, message string) (*TriageReply, error) {
	body, err := json.Marshal(triageRequest{SessionID: sessionID, Message: message})
	if err != nil {
		return nil, fmt.Errorf("marshal triage request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/respond", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build triage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call triage responder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("triage responder returned status %d", resp.StatusCode)
	}

	var reply TriageReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode triage reply: %w", err)
	}
	return &reply, nil
}
