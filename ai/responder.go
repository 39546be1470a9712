package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Responder generates automated replies for inbound customer messages.
// Implementations must be all-or-nothing: on error no partial reply is
// returned and the caller treats the evaluation as retryable.
type Responder interface {
	Respond(ctx context.Context, req ResponderRequest) (ResponderReply, error)
}

// HTTPResponder talks to the response-generation service over HTTP.
type HTTPResponder struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPResponder creates a responder client for the given service URL.
// The apiKey may be empty when the service does not require one.
func NewHTTPResponder(baseURL, apiKey string, timeout time.Duration) (*HTTPResponder, error) {
	if baseURL == "" {
		return nil, errors.New("responder service URL is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &HTTPResponder{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type generateRequest struct {
	Message          string `json:"message"`
	Knowledge        []QA   `json:"knowledge"`
	Tone             string `json:"tone"`
	FirstInteraction bool   `json:"first_interaction"`
}

type generateResponse struct {
	Reply           string `json:"reply"`
	RequiresHandoff bool   `json:"requires_handoff"`
	Error           string `json:"error,omitempty"`
}

// Respond sends the evaluation request to the service and decodes the reply.
func (r *HTTPResponder) Respond(ctx context.Context, req ResponderRequest) (ResponderReply, error) {
	body := generateRequest{
		Message:          req.MessageText,
		Knowledge:        req.KnowledgeContext,
		Tone:             req.ToneDescriptor,
		FirstInteraction: req.IsFirstInteraction,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return ResponderReply{}, fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return ResponderReply{}, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return ResponderReply{}, fmt.Errorf("error making API request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ResponderReply{}, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return ResponderReply{}, fmt.Errorf("API request failed with status code %d: %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return ResponderReply{}, fmt.Errorf("error unmarshaling response: %w", err)
	}

	if genResp.Error != "" {
		return ResponderReply{}, fmt.Errorf("API error: %s", genResp.Error)
	}

	if genResp.Reply == "" {
		return ResponderReply{}, errors.New("no reply generated")
	}

	return ResponderReply{
		ReplyText:       genResp.Reply,
		RequiresHandoff: genResp.RequiresHandoff,
	}, nil
}
