// Package thread implements the Thread State Machine (spec.md §4.9):
// message-driven transitions between active/resolved/stale, backed by a
// pluggable classifier contract.
package thread

import (
	"context"
	"fmt"
	"time"

	"github.com/keiracom/agencyos/internal/domain"
)

// Classifier is the classify(message_text, context) -> classification
// contract of spec.md §4.9. Implementations are expected to be
// stateless and safe to retry on failure.
type Classifier interface {
	Classify(ctx context.Context, messageText string, history []domain.Activity) (domain.Classification, error)
}

// Repository is the store boundary this package depends on.
type Repository interface {
	GetOrCreateThread(ctx context.Context, tenantID, assignmentID string) (*domain.Thread, error)
	UpdateThreadState(ctx context.Context, t *domain.Thread) error
	InsertMessage(ctx context.Context, m *domain.Message) (bool, error)
	ListActivities(ctx context.Context, assignmentID string) ([]domain.Activity, error)
	BackfillLedToBooking(ctx context.Context, assignmentID string, windowStart time.Time) (int, error)
	ListStaleThreadCandidates(ctx context.Context, cutoff time.Time) ([]domain.Thread, error)
}

// SuppressionWriter is the boundary into internal/suppression the
// unsubscribe/not_interested transitions need, satisfied by
// *suppression.Service.
type SuppressionWriter interface {
	AddUnsubscribe(ctx context.Context, email, sourceTenantID string) error
	AddCoolingOff(ctx context.Context, email string) error
}

// PoolLifecycle is the boundary into internal/pool for the Assignment
// transitions a thread outcome drives.
type PoolLifecycle interface {
	Convert(ctx context.Context, assignmentID string) error
	Release(ctx context.Context, assignmentID string, reason domain.ReleaseReason) error
}

// CoolingOffMonths is the default cooling-off suppression window for
// `intent = not_interested` (spec.md §4.9).
const CoolingOffMonths = 12

// AttributionWindow is the default lookback from a converting thread's
// last outbound touch for backfilling led_to_booking (spec.md §9 Open
// Questions: "default 90 days... configurable per client").
const AttributionWindow = 90 * 24 * time.Hour

// InboundReply is the normalized shape the Reply Ingestor hands to the
// state machine after webhook parsing and dedup.
type InboundReply struct {
	TenantID     string
	AssignmentID string
	Channel      domain.Channel
	Email        string
	Body         string
	ProviderRef  string
	DedupeKey    string
	ReceivedAt   time.Time
	ActivityID   *string
}

// MeetingBooked marks a thread as converted once a meeting record is
// attached — a separate trigger from a plain "interested" classification
// (spec.md §4.9: "interested AND subsequent meeting record").
type MeetingBooked struct {
	TenantID     string
	AssignmentID string
}

// Service drives Thread transitions from inbound Message events.
type Service struct {
	repo        Repository
	classifier  Classifier
	suppression SuppressionWriter
	pool        PoolLifecycle
	staleWindow time.Duration
}

// New builds a Service. staleWindow overrides the platform default
// (domain.StaleAfter) when non-zero. classifier may be nil, in which case
// inbound replies are recorded with an empty classification.
func New(repo Repository, classifier Classifier, suppression SuppressionWriter, pool PoolLifecycle, staleWindow time.Duration) *Service {
	return &Service{repo: repo, classifier: classifier, suppression: suppression, pool: pool, staleWindow: staleWindow}
}

// HandleInbound applies one inbound reply to its thread: insert the
// Message, classify it, and apply the resulting transition (spec.md
// §4.9). Returns the updated Thread.
func (s *Service) HandleInbound(ctx context.Context, ev InboundReply) (*domain.Thread, error) {
	th, err := s.repo.GetOrCreateThread(ctx, ev.TenantID, ev.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("thread: get or create: %w", err)
	}

	history, err := s.repo.ListActivities(ctx, ev.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("thread: list activities: %w", err)
	}

	var classification domain.Classification
	if s.classifier != nil {
		classification, err = s.classifier.Classify(ctx, ev.Body, history)
		if err != nil {
			return nil, fmt.Errorf("thread: classify: %w", err)
		}
	}

	msg := &domain.Message{
		ThreadID:    th.ID,
		ActivityID:  ev.ActivityID,
		Direction:   domain.DirectionInbound,
		Channel:     ev.Channel,
		Body:        ev.Body,
		ProviderRef: ev.ProviderRef,
		DedupeKey:   ev.DedupeKey,
		ReceivedAt:  ev.ReceivedAt,
	}
	msg.ApplyClassification(classification)

	inserted, err := s.repo.InsertMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("thread: insert message: %w", err)
	}
	if !inserted {
		// Duplicate delivery of an already-processed reply: the dedupe key
		// matched an existing row, so the transition already ran once.
		return th, nil
	}

	th.Status = domain.ThreadActive
	th.MessageCount++
	th.LastInboundAt = &ev.ReceivedAt

	if err := s.applyTransition(ctx, th, ev, classification); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateThreadState(ctx, th); err != nil {
		return nil, fmt.Errorf("thread: update state: %w", err)
	}
	return th, nil
}

// applyTransition mutates th in place per the intent-keyed rules of
// spec.md §4.9, and fires the side effects (suppression writes, pool
// lifecycle calls) each transition requires.
func (s *Service) applyTransition(ctx context.Context, th *domain.Thread, ev InboundReply, c domain.Classification) error {
	switch c.Intent {
	case domain.IntentUnsubscribe:
		if err := s.suppression.AddUnsubscribe(ctx, ev.Email, ev.TenantID); err != nil {
			return fmt.Errorf("thread: suppress on unsubscribe: %w", err)
		}
		if err := s.pool.Release(ctx, ev.AssignmentID, domain.ReleaseSuppressed); err != nil {
			return fmt.Errorf("thread: release on unsubscribe: %w", err)
		}
		th.Status = domain.ThreadResolved
		th.Outcome = domain.OutcomeRejected

	case domain.IntentNotInterested:
		if err := s.suppression.AddCoolingOff(ctx, ev.Email); err != nil {
			return fmt.Errorf("thread: cooling-off suppress: %w", err)
		}
		th.Status = domain.ThreadResolved
		th.Outcome = domain.OutcomeRejected

	case domain.IntentInterested, domain.IntentQuestion, domain.IntentObjection, domain.IntentOOO:
		th.Outcome = domain.OutcomeOngoing
	}
	return nil
}

// HandleMeetingBooked marks a thread converted once a meeting record is
// attached, the separate trigger spec.md §4.9 requires beyond a bare
// `interested` classification. It binds the PoolLead to the tenant
// permanently and backfills led_to_booking on every Activity within the
// attribution window.
func (s *Service) HandleMeetingBooked(ctx context.Context, ev MeetingBooked) error {
	th, err := s.repo.GetOrCreateThread(ctx, ev.TenantID, ev.AssignmentID)
	if err != nil {
		return fmt.Errorf("thread: get or create: %w", err)
	}
	th.Status = domain.ThreadResolved
	th.Outcome = domain.OutcomeConverted

	if err := s.pool.Convert(ctx, ev.AssignmentID); err != nil {
		return fmt.Errorf("thread: convert pool lead: %w", err)
	}
	if err := s.repo.UpdateThreadState(ctx, th); err != nil {
		return fmt.Errorf("thread: update state: %w", err)
	}

	windowStart := time.Now().Add(-AttributionWindow)
	if th.LastOutboundAt != nil {
		windowStart = th.LastOutboundAt.Add(-AttributionWindow)
	}
	if _, err := s.repo.BackfillLedToBooking(ctx, ev.AssignmentID, windowStart); err != nil {
		return fmt.Errorf("thread: backfill led_to_booking: %w", err)
	}
	return nil
}

// SweepStale marks threads with no inbound reply for the stale window
// since their last outbound touch as stale/no_response (spec.md §4.9).
// Intended to run on a schedule, the way the teacher's queue-recovery
// job runs a periodic reconciliation pass.
func (s *Service) SweepStale(ctx context.Context, now time.Time) (int, error) {
	window := domain.StaleAfter
	if s.staleWindow > 0 {
		window = s.staleWindow
	}
	candidates, err := s.repo.ListStaleThreadCandidates(ctx, now.Add(-window))
	if err != nil {
		return 0, fmt.Errorf("thread: list stale candidates: %w", err)
	}
	for i := range candidates {
		candidates[i].Status = domain.ThreadStale
		candidates[i].Outcome = domain.OutcomeNoResponse
		if err := s.repo.UpdateThreadState(ctx, &candidates[i]); err != nil {
			return 0, fmt.Errorf("thread: update stale thread %s: %w", candidates[i].ID, err)
		}
	}
	return len(candidates), nil
}
