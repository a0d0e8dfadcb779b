package dispatch

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/pkg/distlock"
	"github.com/keiracom/agencyos/internal/pkg/logger"
)

// SendResult is what a ChannelAdapter returns for a successful send
// (spec.md §4.7: "Send: adapter-specific, returns provider_message_id").
type SendResult struct {
	ProviderMessageID  string
	DeliverabilityHint string
}

// ChannelAdapter is the boundary into one outreach channel's transport.
// For email, inReplyTo is the touch's own stored ProviderMessageID, which
// is empty until that touch has been sent; the previous touch's
// provider_message_id is not looked up. Other channels get an empty
// inReplyTo.
type ChannelAdapter interface {
	Send(ctx context.Context, to, content, inReplyTo string) (SendResult, error)
}

// Repository is the store surface the Orchestrator needs beyond the JIT
// lookups already declared in jit.go.
type Repository interface {
	ClaimDueTouches(ctx context.Context, workerID string, limit int) ([]domain.ScheduledTouch, error)
	MarkSent(ctx context.Context, touchID, providerMessageID string) error
	MarkDropped(ctx context.Context, touchID, reason string) error
	RetryOrDeadLetter(ctx context.Context, touchID, lastErr string, attempts, maxAttempts int, backoff time.Duration) error
	RequeueRateLimited(ctx context.Context, touchID string, requeueCount, maxRequeues int, nextDue time.Time) error
	SafetyNetSweep(ctx context.Context, leaseWindow time.Duration) (int, error)
	AdvanceSequence(ctx context.Context, assignmentID string) error
	GetLeadView(ctx context.Context, tenantID, assignmentID string) (*domain.LeadView, error)
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
	InsertActivity(ctx context.Context, a *domain.Activity) (bool, error)
}

// Orchestrator runs the durable touch queue: poll, JIT-validate, render,
// send, record, retry-with-backoff or dead-letter (spec.md §4.7).
type Orchestrator struct {
	repo      Repository
	validator *Validator
	renderer  *ContentRenderer
	adapters  map[domain.Channel]ChannelAdapter
	redis     *redis.Client
	db        *sql.DB
	cfg       Config

	workerID string
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Config mirrors the platform's DispatchConfig shape so this package has
// no import-time dependency on internal/config.
type Config struct {
	WorkersPerChannel   int
	PollInterval        time.Duration
	Lease               time.Duration
	MaxAttempts         int
	BackoffBaseSec      int
	BackoffMaxSec       int
	SafetyNetInterval   time.Duration
	SendWindowStartHour int // local hour (tenant timezone) a re-queued touch's next window opens; 0 defaults to 9 via sendWindowStartHour()
}

func (c Config) sendWindowStartHour() int {
	if c.SendWindowStartHour == 0 {
		return 9
	}
	return c.SendWindowStartHour
}

// NewOrchestrator builds an Orchestrator. adapters must cover every
// channel a campaign's sequence can reference; a missing adapter fails
// that touch's send rather than panicking.
func NewOrchestrator(repo Repository, validator *Validator, renderer *ContentRenderer, adapters map[domain.Channel]ChannelAdapter, redisClient *redis.Client, db *sql.DB, workerID string, cfg Config) *Orchestrator {
	return &Orchestrator{
		repo:      repo,
		validator: validator,
		renderer:  renderer,
		adapters:  adapters,
		redis:     redisClient,
		db:        db,
		cfg:       cfg,
		workerID:  workerID,
	}
}

// Start launches the poll loop and the safety-net sweep as background
// goroutines, the way the teacher's batch worker separates its main
// processing loop from its periodic maintenance routines.
func (o *Orchestrator) Start(ctx context.Context) {
	o.ctx, o.cancel = context.WithCancel(ctx)

	for i := 0; i < o.cfg.WorkersPerChannel; i++ {
		o.wg.Add(1)
		go o.pollLoop(i)
	}
	o.wg.Add(1)
	go o.safetyNetLoop()
}

// Stop cancels all loops and waits for them to exit.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

func (o *Orchestrator) pollLoop(workerNum int) {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			return
		default:
			n, err := o.processBatch(o.ctx)
			if err != nil {
				logger.Error("dispatch: batch failed", "worker", workerNum, "err", err)
				time.Sleep(time.Second)
				continue
			}
			if n == 0 {
				time.Sleep(o.cfg.PollInterval)
			}
		}
	}
}

func (o *Orchestrator) safetyNetLoop() {
	defer o.wg.Done()
	ticker := time.NewTicker(o.cfg.SafetyNetInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			n, err := o.repo.SafetyNetSweep(o.ctx, o.cfg.Lease)
			if err != nil {
				logger.Error("dispatch: safety net sweep failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("dispatch: safety net reclaimed stuck touches", "count", n)
			}
		}
	}
}

// processBatch claims a batch of due touches and processes each under its
// own distributed lease, so a crashed worker's claim is eventually
// reclaimed by the safety net rather than lost forever.
func (o *Orchestrator) processBatch(ctx context.Context) (int, error) {
	touches, err := o.repo.ClaimDueTouches(ctx, o.workerID, 20)
	if err != nil {
		return 0, fmt.Errorf("claim due touches: %w", err)
	}
	for _, t := range touches {
		o.processOne(ctx, t)
	}
	return len(touches), nil
}

// processOne takes a leased lock keyed by the touch id (operation_key)
// before acting on it, so a touch concurrently re-claimed after a
// safety-net reclaim is never double-sent.
func (o *Orchestrator) processOne(ctx context.Context, t domain.ScheduledTouch) {
	lock := distlock.NewLock(o.redis, o.db, "touch:"+t.ID, o.cfg.Lease)
	acquired, err := lock.Acquire(ctx)
	if err != nil || !acquired {
		return
	}
	defer lock.Release(ctx)

	if err := o.send(ctx, t); err != nil {
		attempts := t.Attempts + 1
		backoff := domain.NextBackoff(attempts, o.cfg.BackoffBaseSec, o.cfg.BackoffMaxSec)
		if rerr := o.repo.RetryOrDeadLetter(ctx, t.ID, err.Error(), attempts, o.cfg.MaxAttempts, backoff); rerr != nil {
			logger.Error("dispatch: retry bookkeeping failed", "touch_id", t.ID, "err", rerr)
		}
	}
}

func (o *Orchestrator) send(ctx context.Context, t domain.ScheduledTouch) error {
	lead, err := o.repo.GetLeadView(ctx, t.TenantID, t.AssignmentID)
	if err != nil {
		return fmt.Errorf("lookup lead view: %w", err)
	}
	tenant, err := o.repo.GetTenant(ctx, t.TenantID)
	if err != nil {
		return fmt.Errorf("lookup tenant: %w", err)
	}

	ok, reason, err := o.validator.Validate(ctx, Touch{
		ID:           t.ID,
		TenantID:     t.TenantID,
		CampaignID:   t.CampaignID,
		AssignmentID: t.AssignmentID,
		Email:        lead.Email,
		Channel:      t.Channel,
		Resource:     resourceFor(tenant, t),
	})
	if err != nil {
		return fmt.Errorf("jit validate: %w", err)
	}
	if !ok {
		if reason == DropRateLimited {
			nextDue := domain.NextSendWindowStart(time.Now(), tenant.Timezone, o.cfg.sendWindowStartHour())
			if merr := o.repo.RequeueRateLimited(ctx, t.ID, t.RequeueCount+1, domain.MaxRateLimitRequeues, nextDue); merr != nil {
				return fmt.Errorf("requeue rate limited: %w", merr)
			}
			return nil
		}
		if merr := o.repo.MarkDropped(ctx, t.ID, string(reason)); merr != nil {
			return fmt.Errorf("mark dropped: %w", merr)
		}
		return nil
	}

	content, err := o.renderer.Render(t.TemplateID, TouchContext{
		Lead:        lead.PoolLead,
		Tenant:      *tenant,
		Step:        domain.TouchStep{Position: t.Position, Channel: t.Channel, TemplateID: t.TemplateID},
		SequencePos: t.Position,
	})
	if err != nil {
		return fmt.Errorf("render content: %w", err)
	}

	adapter, ok := o.adapters[t.Channel]
	if !ok {
		return fmt.Errorf("no channel adapter registered for %q", t.Channel)
	}

	inReplyTo := ""
	if t.Channel == domain.ChannelEmail {
		inReplyTo = t.ProviderMessageID
	}

	result, err := adapter.Send(ctx, lead.Email, content, inReplyTo)
	if err != nil {
		return fmt.Errorf("channel send: %w", err)
	}

	if err := o.repo.MarkSent(ctx, t.ID, result.ProviderMessageID); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	activity := &domain.Activity{
		AssignmentID:     t.AssignmentID,
		TenantID:         t.TenantID,
		Channel:          t.Channel,
		Action:           domain.ActionSent,
		SequencePosition: t.Position,
		Content:          domain.ContentSnapshot{Body: content, TemplateID: t.TemplateID},
		ProviderRef:      result.ProviderMessageID,
		OperationKey:     operationKeyForSend(t.ID),
		OccurredAt:       time.Now(),
	}
	if _, err := o.repo.InsertActivity(ctx, activity); err != nil {
		logger.Error("dispatch: insert activity failed", "touch_id", t.ID, "err", err)
	}

	if err := o.repo.AdvanceSequence(ctx, t.AssignmentID); err != nil {
		logger.Error("dispatch: advance sequence failed", "assignment_id", t.AssignmentID, "err", err)
	}
	return nil
}

// operationKeyForSend derives InsertActivity's idempotency key from the
// touch id, so a retried send attempt after a crash between MarkSent and
// InsertActivity never produces a second Activity row for the same send.
func operationKeyForSend(touchID string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte("touch-sent:"+touchID)))
}

// resourceFor identifies the concrete sending asset a touch would
// consume (spec.md §4.7's rate-limit table is per mailbox/seat/number,
// not per tenant). Tenants with more than one provisioned resource for a
// channel are bucketed by a stable hash of the assignment id, so the
// same lead always lands on the same asset across its sequence and the
// cap is spread evenly instead of funneling through one shared counter.
func resourceFor(tenant *domain.Tenant, t domain.ScheduledTouch) string {
	n := tenant.ResourceCount(t.Channel)
	bucket := 0
	if n > 1 {
		h := fnv.New32a()
		h.Write([]byte(t.AssignmentID))
		bucket = int(h.Sum32() % uint32(n))
	}
	return fmt.Sprintf("%s:%d", t.TenantID, bucket)
}
