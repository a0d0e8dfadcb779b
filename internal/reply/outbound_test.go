package reply

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventID_IsDeterministicAcrossIdenticalEvents(t *testing.T) {
	a := OutboundEvent{Type: EventMeetingBooked, TenantID: "t1", AssignmentID: "a1", OccurredAt: time.Now()}
	b := OutboundEvent{Type: EventMeetingBooked, TenantID: "t1", AssignmentID: "a1", OccurredAt: time.Now().Add(time.Hour)}
	require.Equal(t, a.EventID(), b.EventID(), "event id must not depend on OccurredAt so retries dedup")
}

func TestEventID_DiffersAcrossAssignments(t *testing.T) {
	a := OutboundEvent{Type: EventLeadConverted, TenantID: "t1", AssignmentID: "a1"}
	b := OutboundEvent{Type: EventLeadConverted, TenantID: "t1", AssignmentID: "a2"}
	require.NotEqual(t, a.EventID(), b.EventID())
}

func TestDispatcher_DeliverSignsBodyAndPOSTs(t *testing.T) {
	var gotBody []byte
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Agencyos-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(0)
	ev := OutboundEvent{Type: EventUnsubscribe, TenantID: "t1", AssignmentID: "a1", OccurredAt: time.Now()}
	err := d.Deliver(context.Background(), srv.URL, "whsec", ev)
	require.NoError(t, err)

	var payload wireEvent
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	require.Equal(t, ev.EventID(), payload.EventID)
	require.Equal(t, sha256Sign("whsec", string(gotBody)), gotSig)
}

func TestDispatcher_NonSuccessStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(1)
	ev := OutboundEvent{Type: EventMeetingBooked, TenantID: "t1", AssignmentID: "a1"}
	err := d.Deliver(context.Background(), srv.URL, "whsec", ev)
	require.Error(t, err)
}
