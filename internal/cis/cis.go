package cis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keiracom/agencyos/internal/domain"
	"github.com/keiracom/agencyos/internal/pkg/logger"
	"github.com/keiracom/agencyos/internal/store"
)

// Repository is the persistence boundary the learning loop needs: the
// detection read plus the two publish writes. *store.Store satisfies
// this directly.
type Repository interface {
	ListDetectionActivities(ctx context.Context, since time.Time) ([]store.DetectionActivity, error)
	InsertBuyerSignal(ctx context.Context, sig *domain.BuyerSignal) error
	InsertConversionPattern(ctx context.Context, p *domain.ConversionPattern) error
}

// Service orchestrates one run of the CIS learning loop: pull the
// detection window, run all four detectors, archive pattern detail, and
// publish the results (spec.md §7, §4.10).
type Service struct {
	repo     Repository
	archiver Archiver
	window   time.Duration
}

// New builds a Service. window is how far back the detection read
// looks; New applies no default, so the caller's value is used as given.
// archiver may be nil, in which case Run still publishes WHO signals but
// skips publishing every pattern.
func New(repo Repository, archiver Archiver, window time.Duration) *Service {
	return &Service{repo: repo, archiver: archiver, window: window}
}

// RunResult summarizes one detection run for logging/operator visibility.
type RunResult struct {
	SignalsPublished  int
	PatternsPublished int
}

// Run executes one full detection pass: WHO publishes BuyerSignals
// directly; WHAT/WHEN/HOW publish ConversionPatterns whose Detail is
// archived to S3 before the Postgres pointer row is written.
func (s *Service) Run(ctx context.Context) (RunResult, error) {
	since := time.Now().Add(-s.window)
	rows, err := s.repo.ListDetectionActivities(ctx, since)
	if err != nil {
		return RunResult{}, fmt.Errorf("load detection window: %w", err)
	}
	records := toActivityRecords(rows)

	var result RunResult

	for _, sig := range DetectWho(records) {
		sig.ID = uuid.New().String()
		sig.DetectedAt = time.Now()
		if err := s.repo.InsertBuyerSignal(ctx, &sig); err != nil {
			return result, fmt.Errorf("publish who signal: %w", err)
		}
		result.SignalsPublished++
	}

	var patterns []domain.ConversionPattern
	patterns = append(patterns, DetectWhat(records)...)
	patterns = append(patterns, DetectWhen(records)...)
	patterns = append(patterns, DetectHow(records)...)

	for _, p := range patterns {
		p.ID = uuid.New().String()
		p.DetectedAt = time.Now()

		if s.archiver == nil {
			logger.Warn("cis: no pattern archiver configured, skipping publish", "pattern_id", p.ID, "type", string(p.Type))
			continue
		}
		key, err := s.archiver.Archive(ctx, p.ID, p.Detail)
		if err != nil {
			logger.Warn("cis: pattern archive failed, skipping publish", "pattern_id", p.ID, "type", string(p.Type), "error", err.Error())
			continue
		}
		p.ArchiveKey = key

		if err := s.repo.InsertConversionPattern(ctx, &p); err != nil {
			return result, fmt.Errorf("publish %s pattern: %w", p.Type, err)
		}
		result.PatternsPublished++
	}

	logger.Info("cis: detection run complete", "signals", result.SignalsPublished, "patterns", result.PatternsPublished, "window_start", since)
	return result, nil
}

// KnownCustomer is one record of a tenant's bulk customer import
// (POST /customers/import, spec.md §6) carrying enough firmographic data
// to place it in the WHO detector's segment space.
type KnownCustomer struct {
	Industry      string
	EmployeeCount int
}

// IngestKnownCustomers folds a bulk customer import into the cross-tenant
// WHO signal directly, bypassing the activity-history detector: an
// already-closed customer list is a stronger buying signal than inferring
// one from in-flight touch outcomes, so every segment with at least
// MinConverting records publishes immediately rather than waiting for the
// scheduled detection run to observe conversions through the normal
// touch pipeline.
func (s *Service) IngestKnownCustomers(ctx context.Context, customers []KnownCustomer) (int, error) {
	counts := make(map[string]int)
	for _, c := range customers {
		counts[Segment(c.Industry, c.EmployeeCount)]++
	}

	published := 0
	for segment, n := range counts {
		if n < MinConverting {
			continue
		}
		sig := &domain.BuyerSignal{
			ID:              uuid.New().String(),
			Type:            domain.SignalWho,
			Segment:         segment,
			Description:     fmt.Sprintf("%d imported customers in segment %s", n, segment),
			Confidence:      confidence(n),
			SampleSize:      n,
			ConvertingCount: n,
			DetectedAt:      time.Now(),
		}
		if err := s.repo.InsertBuyerSignal(ctx, sig); err != nil {
			return published, fmt.Errorf("publish imported-customer signal: %w", err)
		}
		published++
	}
	return published, nil
}

// toActivityRecords adapts the store's join rows into the pure detector
// input shape, inferring the WHO detector's authority bucket from title.
func toActivityRecords(rows []store.DetectionActivity) []ActivityRecord {
	out := make([]ActivityRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ActivityRecord{
			AssignmentID:     r.AssignmentID,
			Channel:          r.Channel,
			SequencePosition: r.SequencePosition,
			OccurredAt:       r.OccurredAt,
			LedToBooking:     r.LedToBooking,
			Content:          r.Content,
			Industry:         r.Industry,
			EmployeeCount:    r.EmployeeCount,
			Country:          r.Country,
			Authority:        store.TitleAuthority(r.Title),
		})
	}
	return out
}
