package reply

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/keiracom/agencyos/internal/pkg/httpretry"
	"github.com/keiracom/agencyos/internal/pkg/logger"
)

// OutboundEventType enumerates the client-facing webhook events spec.md
// §6 names.
type OutboundEventType string

const (
	EventMeetingBooked OutboundEventType = "meeting_booked"
	EventLeadConverted OutboundEventType = "lead_converted"
	EventUnsubscribe   OutboundEventType = "unsubscribe"
)

// OutboundEvent is the payload delivered to a tenant's configured
// webhook URL.
type OutboundEvent struct {
	Type         OutboundEventType `json:"event_type"`
	TenantID     string            `json:"tenant_id"`
	AssignmentID string            `json:"assignment_id"`
	OccurredAt   time.Time         `json:"occurred_at"`
	Data         map[string]any    `json:"data,omitempty"`
}

// EventID deterministically derives the event's id from its identity
// fields (type, tenant, assignment) rather than including OccurredAt, so
// a retried delivery of the same logical event carries the same id and
// the receiver can dedup on it (spec.md §6: "deterministic event_id").
func (e OutboundEvent) EventID() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", e.Type, e.TenantID, e.AssignmentID)))
	return hex.EncodeToString(h[:])
}

// wireEvent is what actually goes over the wire: the event plus its id.
type wireEvent struct {
	EventID string `json:"event_id"`
	OutboundEvent
}

// Dispatcher delivers signed outbound webhooks to tenant-configured URLs
// with retry-with-backoff, reusing the platform's httpretry.RetryClient
// the way every other outbound HTTP call in this codebase does.
type Dispatcher struct {
	client httpretry.HTTPDoer
}

// NewDispatcher builds a Dispatcher. retries is the number of retry
// attempts after the initial delivery (spec.md §6 default: 3).
func NewDispatcher(retries int) *Dispatcher {
	return &Dispatcher{client: httpretry.NewRetryClient(nil, retries)}
}

// Deliver POSTs ev as signed JSON to url. The signature lets the
// receiving tenant verify the payload originated from Agency OS, the
// same HMAC-over-body contract the inbound Receiver enforces in reverse.
func (d *Dispatcher) Deliver(ctx context.Context, url, signingSecret string, ev OutboundEvent) error {
	payload := wireEvent{EventID: ev.EventID(), OutboundEvent: ev}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbound webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build outbound webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agencyos-Signature", sign(signingSecret, string(body)))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver outbound webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Warn("outbound webhook delivery failed", "event_type", string(ev.Type), "tenant_id", ev.TenantID, "status", resp.StatusCode)
		return fmt.Errorf("outbound webhook: tenant endpoint returned %d", resp.StatusCode)
	}
	return nil
}
