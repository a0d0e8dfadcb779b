package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/config"
)

func contextBG() context.Context { return context.Background() }

func TestSMSAdapter_SendReturnsProviderMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/send", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req sendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "+61400000000", req.To)
		json.NewEncoder(w).Encode(sendResponse{ProviderMessageID: "sms-123", DeliverabilityHint: "queued"})
	}))
	defer srv.Close()

	a := NewSMSAdapter(config.ProviderConfig{APIKey: "test-key", BaseURL: srv.URL})
	result, err := a.Send(contextBG(), "+61400000000", "hi there", "")
	require.NoError(t, err)
	require.Equal(t, "sms-123", result.ProviderMessageID)
	require.Equal(t, "queued", result.DeliverabilityHint)
}

func TestLinkedInAdapter_SendErrorsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	a := NewLinkedInAdapter(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := a.Send(contextBG(), "urn:li:person:1", "connect?", "")
	require.Error(t, err)
}

func TestVoiceAdapter_PassesInReplyTo(t *testing.T) {
	var captured sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(sendResponse{ProviderMessageID: "voice-1"})
	}))
	defer srv.Close()

	a := NewVoiceAdapter(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := a.Send(contextBG(), "+61400000001", "nudge", "prior-msg-id")
	require.NoError(t, err)
	require.Equal(t, "prior-msg-id", captured.InReplyTo)
}

func TestMailAdapter_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sendResponse{ProviderMessageID: "mail-1", DeliverabilityHint: "printed"})
	}))
	defer srv.Close()

	a := NewMailAdapter(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL})
	result, err := a.Send(contextBG(), "123 Main St", "postcard body", "")
	require.NoError(t, err)
	require.Equal(t, "mail-1", result.ProviderMessageID)
}
