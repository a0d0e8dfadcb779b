package reply

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/thread"
)

type fakeThreadHandler struct {
	calls []thread.InboundReply
}

func (f *fakeThreadHandler) HandleInbound(ctx context.Context, ev thread.InboundReply) (*domain.Thread, error) {
	f.calls = append(f.calls, ev)
	return &domain.Thread{ID: "th1"}, nil
}

type fakeResolver struct {
	byRef map[string][2]string // inReplyTo -> [tenantID, assignmentID]
}

func (f *fakeResolver) FindAssignmentByProviderRef(ctx context.Context, providerRef string) (string, string, error) {
	v, ok := f.byRef[providerRef]
	if !ok {
		return "", "", errNotFound
	}
	return v[0], v[1], nil
}

var errNotFound = errors.New("assignment not found")

type fakeDeduper struct {
	seen map[string]bool
}

func newFakeDeduper() *fakeDeduper { return &fakeDeduper{seen: map[string]bool{}} }

func (f *fakeDeduper) SeenOrMark(ctx context.Context, eventType, providerID string) (bool, error) {
	key := eventType + ":" + providerID
	if f.seen[key] {
		return true, nil
	}
	f.seen[key] = true
	return false, nil
}

func sha256Sign(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func TestHandleEmail_ValidSignatureDeliversToThread(t *testing.T) {
	threads := &fakeThreadHandler{}
	resolver := &fakeResolver{byRef: map[string][2]string{"out-msg-1": {"t1", "a1"}}}
	dedup := newFakeDeduper()
	r := NewReceiver(threads, resolver, dedup, SigningSecrets{Email: "secret123"})

	body, _ := json.Marshal(emailReplyEvent{
		MessageID: "in-msg-1", InReplyTo: "out-msg-1", From: "lead@example.com",
		Body: "sounds good", Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", strings.NewReader(string(body)))
	req.Header.Set("X-Agencyos-Signature", sha256Sign("secret123", string(body)))
	w := httptest.NewRecorder()

	r.HandleEmail(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, threads.calls, 1)
	require.Equal(t, "a1", threads.calls[0].AssignmentID)
	require.Equal(t, domain.ChannelEmail, threads.calls[0].Channel)
}

func TestHandleEmail_InvalidSignatureRejected(t *testing.T) {
	threads := &fakeThreadHandler{}
	resolver := &fakeResolver{byRef: map[string][2]string{}}
	dedup := newFakeDeduper()
	r := NewReceiver(threads, resolver, dedup, SigningSecrets{Email: "secret123"})

	body, _ := json.Marshal(emailReplyEvent{MessageID: "in-msg-2", InReplyTo: "out-msg-1"})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", strings.NewReader(string(body)))
	req.Header.Set("X-Agencyos-Signature", "bogus")
	w := httptest.NewRecorder()

	r.HandleEmail(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, threads.calls)
}

func TestHandleSMS_DuplicateDeliveryIsNoOp(t *testing.T) {
	threads := &fakeThreadHandler{}
	resolver := &fakeResolver{byRef: map[string][2]string{"out-msg-9": {"t1", "a9"}}}
	dedup := newFakeDeduper()
	r := NewReceiver(threads, resolver, dedup, SigningSecrets{SMS: "smssecret"})

	body, _ := json.Marshal(smsReplyEvent{MessageID: "sms-1", InReplyTo: "out-msg-9", From: "+15551234", Body: "stop"})
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/sms", strings.NewReader(string(body)))
		req.Header.Set("X-Agencyos-Signature", sha256Sign("smssecret", string(body)))
		w := httptest.NewRecorder()
		r.HandleSMS(w, req)
		return w
	}

	w1 := send()
	w2 := send()
	require.Equal(t, http.StatusOK, w1.Code)
	require.Equal(t, http.StatusOK, w2.Code)
	require.Len(t, threads.calls, 1, "a replayed provider event must not re-invoke the thread handler")
}

func TestHandleLinkedIn_UnresolvedAssignmentAcksWithoutCallingThread(t *testing.T) {
	threads := &fakeThreadHandler{}
	resolver := &fakeResolver{byRef: map[string][2]string{}}
	dedup := newFakeDeduper()
	r := NewReceiver(threads, resolver, dedup, SigningSecrets{LinkedIn: "lisecret"})

	body, _ := json.Marshal(linkedinReplyEvent{MessageID: "li-1", InReplyTo: "unknown-ref", SenderURN: "urn:li:person:1", Text: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/linkedin", strings.NewReader(string(body)))
	req.Header.Set("X-Agencyos-Signature", sha256Sign("lisecret", string(body)))
	w := httptest.NewRecorder()

	r.HandleLinkedIn(w, req)
	require.Equal(t, http.StatusOK, w.Code, "unresolvable payloads still ack to prevent provider retry storms")
	require.Empty(t, threads.calls)
}

func TestHandleVoice_NoSecretConfiguredSkipsVerification(t *testing.T) {
	threads := &fakeThreadHandler{}
	resolver := &fakeResolver{byRef: map[string][2]string{"out-call-1": {"t1", "a2"}}}
	dedup := newFakeDeduper()
	r := NewReceiver(threads, resolver, dedup, SigningSecrets{}) // Voice secret empty

	body, _ := json.Marshal(voiceReplyEvent{CallID: "call-1", InReplyTo: "out-call-1", From: "+15550000", TranscriptText: "yes please call back"})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/voice", strings.NewReader(string(body)))
	w := httptest.NewRecorder()

	r.HandleVoice(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, threads.calls, 1)
}
