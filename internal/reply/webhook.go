// Package reply implements the Reply Ingestor (spec.md §6): per-channel
// webhook receivers that verify signatures, dedup at-least-once
// deliveries, resolve the reply to its Thread, and hand it to
// internal/thread for classification and state transition.
package reply

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/pkg/logger"
	"github.com/keiracom/agencyos/internal/thread"
)

// ThreadHandler is the boundary into internal/thread, satisfied by
// *thread.Service.
type ThreadHandler interface {
	HandleInbound(ctx context.Context, ev thread.InboundReply) (*domain.Thread, error)
}

// AssignmentResolver maps a webhook's threading reference back to the
// Assignment it belongs to, satisfied by *store.Store.
type AssignmentResolver interface {
	FindAssignmentByProviderRef(ctx context.Context, providerRef string) (tenantID, assignmentID string, err error)
}

// Receiver holds the per-channel signing secrets and dependencies shared
// by every webhook handler (spec.md §6's /webhooks/email|sms|linkedin|voice).
type Receiver struct {
	threads   ThreadHandler
	resolver  AssignmentResolver
	dedup     Deduper
	secrets   SigningSecrets
}

// SigningSecrets holds the per-channel HMAC secrets webhook senders sign
// their payloads with, sourced from config.WebhooksConfig.
type SigningSecrets struct {
	Email    string
	SMS      string
	LinkedIn string
	Voice    string
}

// NewReceiver builds a Receiver. dedup may be nil, in which case every
// delivery is processed without a duplicate check.
func NewReceiver(threads ThreadHandler, resolver AssignmentResolver, dedup Deduper, secrets SigningSecrets) *Receiver {
	return &Receiver{threads: threads, resolver: resolver, dedup: dedup, secrets: secrets}
}

// sign computes the full-length hex HMAC-SHA256 of data under secret.
// Unlike the teacher's tracking-link signer (truncated to 16 chars for a
// compact URL, not a security boundary), a webhook signature gates
// whether a payload is trusted at all, so it is never truncated.
func sign(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func verify(secret, data, signature string) bool {
	if secret == "" {
		return true // no secret configured: signature verification disabled (local/test mode)
	}
	expected := sign(secret, data)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// emailReplyEvent is the normalized inbound-email webhook payload: an
// ESP's raw event shape varies, but every provider in spec.md §9's
// out-of-scope channel list can be adapted to this shape at the
// provider's own webhook proxy.
type emailReplyEvent struct {
	MessageID string    `json:"message_id"`
	InReplyTo string    `json:"in_reply_to"`
	From      string    `json:"from"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

type smsReplyEvent struct {
	MessageID string    `json:"message_id"`
	InReplyTo string    `json:"in_reply_to"`
	From      string    `json:"from"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

type linkedinReplyEvent struct {
	MessageID string    `json:"message_id"`
	InReplyTo string    `json:"in_reply_to"`
	SenderURN string    `json:"sender_urn"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type voiceReplyEvent struct {
	CallID         string    `json:"call_id"`
	InReplyTo      string    `json:"in_reply_to"`
	From           string    `json:"from"`
	TranscriptText string    `json:"transcript_text"`
	Timestamp      time.Time `json:"timestamp"`
}

// HandleEmail receives inbound email replies.
func (r *Receiver) HandleEmail(w http.ResponseWriter, req *http.Request) {
	r.handle(w, req, "email", r.secrets.Email, func(body []byte) (genericReply, error) {
		var ev emailReplyEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return genericReply{}, err
		}
		return genericReply{
			channel: domain.ChannelEmail, providerID: ev.MessageID,
			inReplyTo: ev.InReplyTo, from: ev.From, body: ev.Body, at: orNow(ev.Timestamp),
		}, nil
	})
}

// HandleSMS receives inbound SMS replies.
func (r *Receiver) HandleSMS(w http.ResponseWriter, req *http.Request) {
	r.handle(w, req, "sms", r.secrets.SMS, func(body []byte) (genericReply, error) {
		var ev smsReplyEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return genericReply{}, err
		}
		return genericReply{
			channel: domain.ChannelSMS, providerID: ev.MessageID,
			inReplyTo: ev.InReplyTo, from: ev.From, body: ev.Body, at: orNow(ev.Timestamp),
		}, nil
	})
}

// HandleLinkedIn receives inbound LinkedIn message replies.
func (r *Receiver) HandleLinkedIn(w http.ResponseWriter, req *http.Request) {
	r.handle(w, req, "linkedin", r.secrets.LinkedIn, func(body []byte) (genericReply, error) {
		var ev linkedinReplyEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return genericReply{}, err
		}
		return genericReply{
			channel: domain.ChannelLinkedIn, providerID: ev.MessageID,
			inReplyTo: ev.InReplyTo, from: ev.SenderURN, body: ev.Text, at: orNow(ev.Timestamp),
		}, nil
	})
}

// HandleVoice receives inbound voice call transcripts (a callback reached
// a human and the provider transcribed the response).
func (r *Receiver) HandleVoice(w http.ResponseWriter, req *http.Request) {
	r.handle(w, req, "voice", r.secrets.Voice, func(body []byte) (genericReply, error) {
		var ev voiceReplyEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return genericReply{}, err
		}
		return genericReply{
			channel: domain.ChannelVoice, providerID: ev.CallID,
			inReplyTo: ev.InReplyTo, from: ev.From, body: ev.TranscriptText, at: orNow(ev.Timestamp),
		}, nil
	})
}

// genericReply is the shape every per-channel parser normalizes its raw
// event into, before assignment resolution and dedup run identically.
type genericReply struct {
	channel    domain.Channel
	providerID string
	inReplyTo  string
	from       string
	body       string
	at         time.Time
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// handle runs the signature-verify/dedup/resolve/classify pipeline
// common to all four channels, and always acknowledges within spec.md
// §6's 5-second budget — even parse or resolution failures return 2xx
// so the provider does not retry a payload Agency OS has already logged
// and cannot use.
func (r *Receiver) handle(w http.ResponseWriter, req *http.Request, eventType, secret string, parse func([]byte) (genericReply, error)) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	signature := req.Header.Get("X-Agencyos-Signature")
	if !verify(secret, string(body), signature) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	ev, err := parse(body)
	if err != nil {
		logger.Warn("reply: invalid webhook payload", "channel", eventType, "error", err.Error())
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := req.Context()
	if r.dedup != nil {
		seen, err := r.dedup.SeenOrMark(ctx, eventType, ev.providerID)
		if err != nil {
			logger.Error("reply: dedup check failed", "channel", eventType, "error", err.Error())
			w.WriteHeader(http.StatusOK)
			return
		}
		if seen {
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	tenantID, assignmentID, err := r.resolver.FindAssignmentByProviderRef(ctx, ev.inReplyTo)
	if err != nil {
		logger.Warn("reply: could not resolve assignment", "channel", eventType, "in_reply_to", ev.inReplyTo, "error", err.Error())
		w.WriteHeader(http.StatusOK)
		return
	}

	_, err = r.threads.HandleInbound(ctx, thread.InboundReply{
		TenantID:     tenantID,
		AssignmentID: assignmentID,
		Channel:      ev.channel,
		Email:        ev.from,
		Body:         ev.body,
		ProviderRef:  ev.providerID,
		DedupeKey:    fmt.Sprintf("%s:%s", eventType, ev.providerID),
		ReceivedAt:   ev.at,
	})
	if err != nil {
		logger.Error("reply: handle inbound failed", "channel", eventType, "assignment_id", assignmentID, "error", err.Error())
	}
	w.WriteHeader(http.StatusOK)
}
