package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPResponderRespond(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Quais são os planos?", req.Message)
		assert.True(t, req.FirstInteraction)

		json.NewEncoder(w).Encode(generateResponse{
			Reply:           "Um momento, vou transferir você para um atendente.",
			RequiresHandoff: true,
		})
	}))
	defer srv.Close()

	responder, err := NewHTTPResponder(srv.URL, "test-key", 5*time.Second)
	require.NoError(t, err)

	reply, err := responder.Respond(context.Background(), ResponderRequest{
		MessageText:        "Quais são os planos?",
		IsFirstInteraction: true,
	})
	require.NoError(t, err)
	assert.True(t, reply.RequiresHandoff)
	assert.NotEmpty(t, reply.ReplyText)
}

func TestHTTPResponderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream model unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	responder, err := NewHTTPResponder(srv.URL, "", 5*time.Second)
	require.NoError(t, err)

	_, err = responder.Respond(context.Background(), ResponderRequest{MessageText: "hello"})
	assert.Error(t, err)
}

func TestHTTPResponderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(generateResponse{Reply: "too late"})
	}))
	defer srv.Close()

	responder, err := NewHTTPResponder(srv.URL, "", 5*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = responder.Respond(ctx, ResponderRequest{MessageText: "hello"})
	assert.Error(t, err)
}

func TestHTTPResponderEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{})
	}))
	defer srv.Close()

	responder, err := NewHTTPResponder(srv.URL, "", 5*time.Second)
	require.NoError(t, err)

	_, err = responder.Respond(context.Background(), ResponderRequest{MessageText: "hello"})
	assert.Error(t, err)
}

func TestNewHTTPResponderRequiresURL(t *testing.T) {
	_, err := NewHTTPResponder("", "", 0)
	assert.Error(t, err)
}
