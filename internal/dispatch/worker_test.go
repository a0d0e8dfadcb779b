package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/domain"
)

type fakeDispatchRepo struct {
	touches       []domain.ScheduledTouch
	sentIDs       map[string]string
	droppedIDs    map[string]string
	retried       map[string]int
	deadLettered  map[string]bool
	advanced      map[string]int
	activities    []*domain.Activity
	requeued      map[string]int
	leadView      *domain.LeadView
	tenant        *domain.Tenant
}

func newFakeDispatchRepo() *fakeDispatchRepo {
	return &fakeDispatchRepo{
		sentIDs:      map[string]string{},
		droppedIDs:   map[string]string{},
		retried:      map[string]int{},
		deadLettered: map[string]bool{},
		advanced:     map[string]int{},
		requeued:     map[string]int{},
	}
}

func (f *fakeDispatchRepo) ClaimDueTouches(ctx context.Context, workerID string, limit int) ([]domain.ScheduledTouch, error) {
	out := f.touches
	f.touches = nil
	return out, nil
}
func (f *fakeDispatchRepo) MarkSent(ctx context.Context, touchID, providerMessageID string) error {
	f.sentIDs[touchID] = providerMessageID
	return nil
}
func (f *fakeDispatchRepo) MarkDropped(ctx context.Context, touchID, reason string) error {
	f.droppedIDs[touchID] = reason
	return nil
}
func (f *fakeDispatchRepo) RetryOrDeadLetter(ctx context.Context, touchID, lastErr string, attempts, maxAttempts int, backoff time.Duration) error {
	if attempts >= maxAttempts {
		f.deadLettered[touchID] = true
		return nil
	}
	f.retried[touchID] = attempts
	return nil
}
func (f *fakeDispatchRepo) SafetyNetSweep(ctx context.Context, leaseWindow time.Duration) (int, error) {
	return 0, nil
}
func (f *fakeDispatchRepo) AdvanceSequence(ctx context.Context, assignmentID string) error {
	f.advanced[assignmentID]++
	return nil
}
func (f *fakeDispatchRepo) GetLeadView(ctx context.Context, tenantID, assignmentID string) (*domain.LeadView, error) {
	return f.leadView, nil
}
func (f *fakeDispatchRepo) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	return f.tenant, nil
}
func (f *fakeDispatchRepo) InsertActivity(ctx context.Context, a *domain.Activity) (bool, error) {
	f.activities = append(f.activities, a)
	return true, nil
}
func (f *fakeDispatchRepo) RequeueRateLimited(ctx context.Context, touchID string, requeueCount, maxRequeues int, nextDue time.Time) error {
	if requeueCount > maxRequeues {
		f.droppedIDs[touchID] = "rate_limited_max_requeues"
		return nil
	}
	f.requeued[touchID] = requeueCount
	return nil
}

type fakeChannelAdapter struct {
	calls   int
	lastTo  string
	lastMsg string
	err     error
}

func (f *fakeChannelAdapter) Send(ctx context.Context, to, content, inReplyTo string) (SendResult, error) {
	f.calls++
	f.lastTo = to
	f.lastMsg = content
	if f.err != nil {
		return SendResult{}, f.err
	}
	return SendResult{ProviderMessageID: "msg-1"}, nil
}

func newTestOrchestrator(t *testing.T, repo *fakeDispatchRepo, adapter ChannelAdapter) *Orchestrator {
	t.Helper()
	validator := newTestValidator(t, validTenant(), domain.CampaignActive, domain.AssignmentActive, false, 100)
	renderer := NewContentRenderer(map[string]string{"intro": "Hi {{ lead.first_name }}"})
	return NewOrchestrator(repo, validator, renderer, map[domain.Channel]ChannelAdapter{domain.ChannelEmail: adapter}, newTestRedis(t), nil, "worker-1", Config{
		WorkersPerChannel: 1,
		PollInterval:      10 * time.Millisecond,
		Lease:             time.Minute,
		MaxAttempts:       5,
		BackoffBaseSec:    30,
		BackoffMaxSec:     3600,
		SafetyNetInterval: time.Hour,
	})
}

func TestProcessBatch_SuccessfulSendMarksSentAndAdvances(t *testing.T) {
	repo := newFakeDispatchRepo()
	repo.touches = []domain.ScheduledTouch{{ID: "touch-1", TenantID: "t1", AssignmentID: "a1", Channel: domain.ChannelEmail, TemplateID: "intro"}}
	repo.leadView = &domain.LeadView{PoolLead: domain.PoolLead{Email: "lead@example.com", FirstName: "Jamie"}}
	repo.tenant = validTenant()
	adapter := &fakeChannelAdapter{}

	o := newTestOrchestrator(t, repo, adapter)
	n, err := o.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "msg-1", repo.sentIDs["touch-1"])
	require.Equal(t, 1, repo.advanced["a1"])
	require.Equal(t, 1, adapter.calls)
	require.Len(t, repo.activities, 1)
	require.Equal(t, domain.ActionSent, repo.activities[0].Action)
	require.Equal(t, "msg-1", repo.activities[0].ProviderRef)
	require.Equal(t, "a1", repo.activities[0].AssignmentID)
	require.NotEmpty(t, repo.activities[0].OperationKey)
}

func TestProcessBatch_RateLimitedRequeuesInsteadOfDropping(t *testing.T) {
	repo := newFakeDispatchRepo()
	repo.touches = []domain.ScheduledTouch{
		{ID: "touch-5", TenantID: "t1", AssignmentID: "a1", Channel: domain.ChannelEmail, TemplateID: "intro"},
		{ID: "touch-6", TenantID: "t1", AssignmentID: "a1", Channel: domain.ChannelEmail, TemplateID: "intro"},
	}
	repo.leadView = &domain.LeadView{PoolLead: domain.PoolLead{Email: "lead@example.com"}}
	repo.tenant = validTenant()
	adapter := &fakeChannelAdapter{}

	validator := newTestValidator(t, repo.tenant, domain.CampaignActive, domain.AssignmentActive, false, 1)
	renderer := NewContentRenderer(map[string]string{"intro": "Hi {{ lead.first_name }}"})
	o := NewOrchestrator(repo, validator, renderer, map[domain.Channel]ChannelAdapter{domain.ChannelEmail: adapter}, newTestRedis(t), nil, "worker-1", Config{
		WorkersPerChannel: 1,
		PollInterval:      10 * time.Millisecond,
		Lease:             time.Minute,
		MaxAttempts:       5,
		BackoffBaseSec:    30,
		BackoffMaxSec:     3600,
		SafetyNetInterval: time.Hour,
	})

	_, err := o.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, adapter.calls)
	require.NotEmpty(t, repo.sentIDs)
	require.Equal(t, 1, repo.requeued["touch-6"])
	require.Empty(t, repo.droppedIDs)
}

func TestProcessBatch_JITDropMarksDroppedNotSent(t *testing.T) {
	repo := newFakeDispatchRepo()
	repo.touches = []domain.ScheduledTouch{{ID: "touch-2", TenantID: "t1", AssignmentID: "a1", Channel: domain.ChannelEmail, TemplateID: "intro"}}
	repo.leadView = &domain.LeadView{PoolLead: domain.PoolLead{Email: "lead@example.com"}}
	tenant := validTenant()
	tenant.CreditsRemaining = 0
	repo.tenant = tenant
	adapter := &fakeChannelAdapter{}

	o := newTestOrchestrator(t, repo, adapter)
	_, err := o.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, string(DropNoCredits), repo.droppedIDs["touch-2"])
	require.Zero(t, adapter.calls)
	require.Empty(t, repo.sentIDs)
}

func TestProcessBatch_SendFailureSchedulesRetry(t *testing.T) {
	repo := newFakeDispatchRepo()
	repo.touches = []domain.ScheduledTouch{{ID: "touch-3", TenantID: "t1", AssignmentID: "a1", Channel: domain.ChannelEmail, TemplateID: "intro", Attempts: 0}}
	repo.leadView = &domain.LeadView{PoolLead: domain.PoolLead{Email: "lead@example.com"}}
	repo.tenant = validTenant()
	adapter := &fakeChannelAdapter{err: context.DeadlineExceeded}

	o := newTestOrchestrator(t, repo, adapter)
	_, err := o.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, repo.retried["touch-3"])
	require.False(t, repo.deadLettered["touch-3"])
}

func TestProcessBatch_MissingAdapterSchedulesRetry(t *testing.T) {
	repo := newFakeDispatchRepo()
	repo.touches = []domain.ScheduledTouch{{ID: "touch-4", TenantID: "t1", AssignmentID: "a1", Channel: domain.ChannelSMS, TemplateID: "intro"}}
	repo.leadView = &domain.LeadView{PoolLead: domain.PoolLead{Email: "lead@example.com"}}
	repo.tenant = validTenant()

	o := newTestOrchestrator(t, repo, &fakeChannelAdapter{})
	_, err := o.processBatch(context.Background())
	require.NoError(t, err)
	require.Contains(t, repo.retried, "touch-4")
}
