package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/keiracom/agencyos/internal/config"
	"github.com/keiracom/agencyos/internal/dispatch"
	"github.com/keiracom/agencyos/internal/pkg/httpretry"
)

// httpAdapter is the shared shape of the SMS/LinkedIn/voice/mail
// channel adapters: a single POST to a provider's send endpoint,
// wrapped in the platform's retrying HTTP client — the same pattern
// internal/enrichment uses for its tier-1/tier-2 providers, since both
// are "normalize a third-party send/lookup API behind one method".
type httpAdapter struct {
	name   string
	client httpretry.HTTPDoer
	cfg    config.ProviderConfig
}

func newHTTPAdapter(name string, cfg config.ProviderConfig) *httpAdapter {
	return &httpAdapter{
		name:   name,
		client: httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, 2),
		cfg:    cfg,
	}
}

type sendRequest struct {
	To        string `json:"to"`
	Content   string `json:"content"`
	InReplyTo string `json:"in_reply_to,omitempty"`
}

type sendResponse struct {
	ProviderMessageID  string `json:"provider_message_id"`
	DeliverabilityHint string `json:"deliverability_hint"`
}

func (a *httpAdapter) Send(ctx context.Context, to, content, inReplyTo string) (dispatch.SendResult, error) {
	body, err := json.Marshal(sendRequest{To: to, Content: content, InReplyTo: inReplyTo})
	if err != nil {
		return dispatch.SendResult{}, fmt.Errorf("%s: marshal request: %w", a.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return dispatch.SendResult{}, fmt.Errorf("%s: build request: %w", a.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return dispatch.SendResult{}, fmt.Errorf("%s: send: %w", a.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return dispatch.SendResult{}, fmt.Errorf("%s: send returned status %d", a.name, resp.StatusCode)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return dispatch.SendResult{}, fmt.Errorf("%s: decode response: %w", a.name, err)
	}
	return dispatch.SendResult{ProviderMessageID: out.ProviderMessageID, DeliverabilityHint: out.DeliverabilityHint}, nil
}

// SMSAdapter sends outreach SMS via a generic provider API.
type SMSAdapter struct{ *httpAdapter }

// NewSMSAdapter builds an SMSAdapter.
func NewSMSAdapter(cfg config.ProviderConfig) *SMSAdapter { return &SMSAdapter{newHTTPAdapter("sms", cfg)} }

// LinkedInAdapter sends outreach LinkedIn messages/connection requests
// via a generic provider API.
type LinkedInAdapter struct{ *httpAdapter }

// NewLinkedInAdapter builds a LinkedInAdapter.
func NewLinkedInAdapter(cfg config.ProviderConfig) *LinkedInAdapter {
	return &LinkedInAdapter{newHTTPAdapter("linkedin", cfg)}
}

// VoiceAdapter places outreach voice calls/voicemail drops via a
// generic provider API.
type VoiceAdapter struct{ *httpAdapter }

// NewVoiceAdapter builds a VoiceAdapter.
func NewVoiceAdapter(cfg config.ProviderConfig) *VoiceAdapter {
	return &VoiceAdapter{newHTTPAdapter("voice", cfg)}
}

// MailAdapter sends outreach direct mail via a generic provider API.
type MailAdapter struct{ *httpAdapter }

// NewMailAdapter builds a MailAdapter.
func NewMailAdapter(cfg config.ProviderConfig) *MailAdapter { return &MailAdapter{newHTTPAdapter("mail", cfg)} }
