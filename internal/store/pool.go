package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/keiracom/agencyos/internal/domain"
)

// UpsertPoolLead inserts a lead or, if the email already exists, refreshes
// its enrichment/org fields while leaving pool_status untouched (a refresh
// must never silently re-open an already-assigned lead).
func (s *Store) UpsertPoolLead(ctx context.Context, l *domain.PoolLead) (string, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO pool_leads
			(id, email, domain, first_name, last_name, title, company, linkedin_url, phone,
			 industry, employee_count, country, revenue_band,
			 enrichment_tier, enrichment_provider, enrichment_credit_cost, enrichment_partial,
			 pool_status, first_seen_at, last_refreshed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,NOW(),NOW())
		ON CONFLICT (email) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			linkedin_url = EXCLUDED.linkedin_url,
			phone = EXCLUDED.phone,
			industry = EXCLUDED.industry,
			employee_count = EXCLUDED.employee_count,
			country = EXCLUDED.country,
			revenue_band = EXCLUDED.revenue_band,
			enrichment_tier = EXCLUDED.enrichment_tier,
			enrichment_provider = EXCLUDED.enrichment_provider,
			enrichment_credit_cost = EXCLUDED.enrichment_credit_cost,
			enrichment_partial = EXCLUDED.enrichment_partial,
			last_refreshed_at = NOW()
		RETURNING id
	`, l.ID, l.Email, l.Domain, l.FirstName, l.LastName, l.Title, l.Company, l.LinkedInURL, l.Phone,
		l.Org.Industry, l.Org.EmployeeCount, l.Org.Country, l.Org.RevenueBand,
		l.Enrichment.Tier, l.Enrichment.Provider, l.Enrichment.CreditCost, l.Enrichment.Partial,
		domain.PoolUnassigned,
	).Scan(&l.ID)
	if err != nil {
		return "", fmt.Errorf("upsert pool lead: %w", err)
	}
	return l.ID, nil
}

// TryAssign executes the Lead Pool's exclusivity-critical try_assign
// transaction for one specific candidate pool_lead_id (spec.md §4.6): it
// locks any non-terminal Assignment row for that lead with FOR UPDATE so
// concurrent callers never race on the same decision, then:
//   - no non-terminal Assignment exists -> inserts a new active Assignment,
//     flips the lead to assigned, returns (assigned, newAssignment).
//   - the non-terminal Assignment belongs to tenantID -> returns
//     (already_yours, the existing Assignment), no write.
//   - it belongs to another tenant -> returns (collision, nil), no write.
//
// Serializable isolation plus the row lock make this safe against two
// tenants concurrently calling TryAssign for the same lead.
func (s *Store) TryAssign(ctx context.Context, tenantID, poolLeadID string, als float64, components domain.ScoreComponents) (domain.AssignOutcome, *domain.Assignment, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return "", nil, fmt.Errorf("begin try_assign: %w", err)
	}
	defer tx.Rollback()

	existing := &domain.Assignment{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, tenant_id, pool_lead_id, status, als_score, tier, sequence_position, assigned_at
		FROM assignments
		WHERE pool_lead_id = $1
		  AND status NOT IN ('converted','released','suppressed','cancelled')
		FOR UPDATE
	`, poolLeadID).Scan(
		&existing.ID, &existing.TenantID, &existing.PoolLeadID, &existing.Status,
		&existing.ALSScore, &existing.Tier, &existing.SequencePosition, &existing.AssignedAt,
	)
	switch {
	case err == nil:
		if existing.TenantID == tenantID {
			return domain.AssignOutcomeAlreadyYours, existing, tx.Commit()
		}
		return domain.AssignOutcomeCollision, nil, tx.Commit()
	case err != sql.ErrNoRows:
		return "", nil, fmt.Errorf("lookup existing assignment: %w", err)
	}

	var leadStatus domain.PoolStatus
	if err := tx.QueryRowContext(ctx, `SELECT pool_status FROM pool_leads WHERE id = $1 FOR UPDATE`, poolLeadID).Scan(&leadStatus); err != nil {
		if err == sql.ErrNoRows {
			return "", nil, ErrNoEligibleLead
		}
		return "", nil, fmt.Errorf("lock candidate lead: %w", err)
	}
	if leadStatus != domain.PoolUnassigned {
		return "", nil, ErrAlreadyAssigned
	}

	a := &domain.Assignment{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		PoolLeadID: poolLeadID,
		Status:     domain.AssignmentActive,
		ALSScore:   als,
		Tier:       string(domain.TierForScore(als)),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO assignments
			(id, tenant_id, pool_lead_id, status, als_score, tier, sequence_position, assigned_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,0,NOW(),NOW(),NOW())
	`, a.ID, a.TenantID, a.PoolLeadID, a.Status, a.ALSScore, a.Tier); err != nil {
		return "", nil, fmt.Errorf("insert assignment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE pool_leads SET pool_status = 'assigned' WHERE id = $1
	`, poolLeadID); err != nil {
		return "", nil, fmt.Errorf("flip pool status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("commit try_assign: %w", err)
	}
	return domain.AssignOutcomeAssigned, a, nil
}

// ListCandidatePoolLeads returns unassigned, unsuppressed leads matching
// filter's firmographic constraints, ordered so the most recently refreshed
// (freshest enrichment) are tried first. Used by the Pool Manager's supply
// loop (spec.md §4.6) to pick try_assign candidates for a campaign.
func (s *Store) ListCandidatePoolLeads(ctx context.Context, filter domain.ICPFilter, limit int) ([]domain.PoolLead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pl.id, pl.email, pl.domain, pl.first_name, pl.last_name, pl.title, pl.company,
		       pl.linkedin_url, pl.phone, pl.industry, pl.employee_count, pl.country, pl.revenue_band,
		       pl.pool_status, pl.first_seen_at, pl.last_refreshed_at
		FROM pool_leads pl
		WHERE pl.pool_status = 'unassigned'
		  AND ($1 = 0 OR pl.employee_count >= $1)
		  AND ($2 = 0 OR pl.employee_count <= $2)
		  AND (array_length($3::text[], 1) IS NULL OR pl.industry = ANY($3::text[]))
		  AND (array_length($4::text[], 1) IS NULL OR pl.country = ANY($4::text[]))
		  AND NOT EXISTS (
		      SELECT 1 FROM suppressions sup
		      WHERE sup.email = pl.email
		        AND (sup.expires_at IS NULL OR sup.expires_at > NOW())
		  )
		ORDER BY pl.last_refreshed_at DESC
		LIMIT $5
	`, filter.MinEmployees, filter.MaxEmployees, pq.Array(filter.Industries), pq.Array(filter.Countries), limit)
	if err != nil {
		return nil, fmt.Errorf("list candidate pool leads: %w", err)
	}
	defer rows.Close()

	var out []domain.PoolLead
	for rows.Next() {
		var l domain.PoolLead
		if err := rows.Scan(
			&l.ID, &l.Email, &l.Domain, &l.FirstName, &l.LastName, &l.Title, &l.Company,
			&l.LinkedInURL, &l.Phone, &l.Org.Industry, &l.Org.EmployeeCount, &l.Org.Country, &l.Org.RevenueBand,
			&l.PoolStatus, &l.FirstSeenAt, &l.LastRefreshedAt,
		); err != nil {
			return nil, fmt.Errorf("scan candidate pool lead: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ReleaseAssignment moves an active Assignment out of the exclusivity slot
// and returns its lead to the unassigned pool, unless reason is
// ReleaseConverted or ReleaseSuppressed: both retire the lead, so it
// never re-enters the pool.
func (s *Store) ReleaseAssignment(ctx context.Context, assignmentID string, reason domain.ReleaseReason) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release: %w", err)
	}
	defer tx.Rollback()

	var leadID string
	newStatus := domain.AssignmentReleased
	poolStatus := domain.PoolUnassigned
	switch reason {
	case domain.ReleaseConverted:
		newStatus = domain.AssignmentConverted
		poolStatus = domain.PoolRetired
	case domain.ReleaseSuppressed:
		newStatus = domain.AssignmentSuppressed
		poolStatus = domain.PoolRetired
	}
	err = tx.QueryRowContext(ctx, `
		UPDATE assignments
		SET status = $1, release_reason = $2, released_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND status = 'active'
		RETURNING pool_lead_id
	`, newStatus, reason, assignmentID).Scan(&leadID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("release assignment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE pool_leads SET pool_status = $1 WHERE id = $2
	`, poolStatus, leadID); err != nil {
		return fmt.Errorf("update pool status: %w", err)
	}

	return tx.Commit()
}

// ReleaseAllActiveForTenant transitions every one of a tenant's active
// Assignments to released and reopens their leads for other tenants
// (spec.md §4.6 step 4: subscription cancellation background job). Returns
// the number of Assignments released.
func (s *Store) ReleaseAllActiveForTenant(ctx context.Context, tenantID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk release: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		UPDATE assignments
		SET status = 'released', release_reason = 'manual', released_at = NOW(), updated_at = NOW()
		WHERE tenant_id = $1 AND status = 'active'
		RETURNING pool_lead_id
	`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("bulk release assignments: %w", err)
	}
	var leadIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan released lead id: %w", err)
		}
		leadIDs = append(leadIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range leadIDs {
		if _, err := tx.ExecContext(ctx, `UPDATE pool_leads SET pool_status = 'unassigned' WHERE id = $1`, id); err != nil {
			return 0, fmt.Errorf("reopen pool lead: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk release: %w", err)
	}
	return len(leadIDs), nil
}

// RecordConversion marks an Assignment as converted (led_to_booking),
// retiring its lead from the pool permanently. This is the terminal,
// successful path for an Assignment's lifecycle.
func (s *Store) RecordConversion(ctx context.Context, assignmentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin conversion: %w", err)
	}
	defer tx.Rollback()

	var leadID string
	err = tx.QueryRowContext(ctx, `
		UPDATE assignments
		SET status = 'converted', converted_at = NOW(), release_reason = 'converted', updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING pool_lead_id
	`, assignmentID).Scan(&leadID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("record conversion: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE pool_leads SET pool_status = 'retired' WHERE id = $1
	`, leadID); err != nil {
		return fmt.Errorf("retire lead: %w", err)
	}

	return tx.Commit()
}

// GetLeadView assembles the read-optimized LeadView join for a tenant's
// active assignment.
func (s *Store) GetLeadView(ctx context.Context, tenantID, assignmentID string) (*domain.LeadView, error) {
	lv := &domain.LeadView{}
	err := s.db.QueryRowContext(ctx, `
		SELECT pl.id, pl.email, pl.domain, pl.first_name, pl.last_name, pl.title, pl.company,
		       pl.linkedin_url, pl.pool_status,
		       a.id, a.tenant_id, a.als_score, a.status, a.sequence_position, a.assigned_at
		FROM assignments a
		JOIN pool_leads pl ON pl.id = a.pool_lead_id
		WHERE a.id = $1 AND a.tenant_id = $2
	`, assignmentID, tenantID).Scan(
		&lv.ID, &lv.Email, &lv.Domain, &lv.FirstName, &lv.LastName, &lv.Title, &lv.Company,
		&lv.LinkedInURL, &lv.PoolStatus,
		&lv.AssignmentID, &lv.TenantID, &lv.ALSScore, &lv.AssignmentStatus, &lv.SequencePosition, &lv.AssignedAt,
	)
	if err != nil {
		return nil, scanErr(err)
	}
	lv.Tier = domain.TierForScore(lv.ALSScore)
	return lv, nil
}

// GetAssignmentStatus is a narrow lookup for the Dispatch Orchestrator's
// JIT validation check 4 (spec.md §4.7).
func (s *Store) GetAssignmentStatus(ctx context.Context, assignmentID string) (domain.AssignmentStatus, error) {
	var status domain.AssignmentStatus
	err := s.db.QueryRowContext(ctx, `SELECT status FROM assignments WHERE id = $1`, assignmentID).Scan(&status)
	if err != nil {
		return "", scanErr(err)
	}
	return status, nil
}

// AdvanceSequence moves an Assignment's sequence_position forward by one,
// used by the Dispatch Orchestrator after a successful touch send.
func (s *Store) AdvanceSequence(ctx context.Context, assignmentID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE assignments SET sequence_position = sequence_position + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, assignmentID)
	if err != nil {
		return fmt.Errorf("advance sequence: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LeadFilter narrows GET /leads (spec.md §6) to a tenant's leads matching
// the given campaign/tier/status, paginated.
type LeadFilter struct {
	CampaignID string
	Tier       domain.ScoreTier
	Status     domain.AssignmentStatus
	Page       int
	PageSize   int
}

// tierRange returns the [min, max] als_score band a ScoreTier occupies
// (spec.md §4.4), for filtering without duplicating the band logic in SQL.
func tierRange(t domain.ScoreTier) (min, max float64) {
	switch t {
	case domain.TierHot:
		return 85, 100
	case domain.TierWarm:
		return 60, 84.999999
	case domain.TierCool:
		return 35, 59.999999
	case domain.TierCold:
		return 20, 34.999999
	case domain.TierDead:
		return 0, 19.999999
	default:
		return 0, 100
	}
}

// ListLeadViews assembles the paginated LeadView list behind
// `GET /leads?campaign&tier&status&page`. A campaign is not an
// assignment-level attribute (an Assignment is scoped to a tenant and a
// pool lead, not a campaign — spec.md §3's exclusivity model doesn't
// need it), so the campaign filter joins through scheduled_touches,
// the only table that records which campaign a touch/lead belongs to.
func (s *Store) ListLeadViews(ctx context.Context, tenantID string, filter LeadFilter) ([]domain.LeadView, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 || size > 200 {
		size = 50
	}

	query := `
		SELECT DISTINCT pl.id, pl.email, pl.domain, pl.first_name, pl.last_name, pl.title, pl.company,
		       pl.linkedin_url, pl.pool_status,
		       a.id, a.tenant_id, a.als_score, a.status, a.sequence_position, a.assigned_at
		FROM assignments a
		JOIN pool_leads pl ON pl.id = a.pool_lead_id`
	args := []any{tenantID}
	where := []string{"a.tenant_id = $1"}

	if filter.CampaignID != "" {
		query += ` JOIN scheduled_touches st ON st.assignment_id = a.id`
		args = append(args, filter.CampaignID)
		where = append(where, fmt.Sprintf("st.campaign_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if filter.Tier != "" {
		min, max := tierRange(filter.Tier)
		args = append(args, min, max)
		where = append(where, fmt.Sprintf("a.als_score BETWEEN $%d AND $%d", len(args)-1, len(args)))
	}

	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	args = append(args, size, (page-1)*size)
	query += fmt.Sprintf(" ORDER BY a.assigned_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lead views: %w", err)
	}
	defer rows.Close()

	var out []domain.LeadView
	for rows.Next() {
		var lv domain.LeadView
		if err := rows.Scan(
			&lv.ID, &lv.Email, &lv.Domain, &lv.FirstName, &lv.LastName, &lv.Title, &lv.Company,
			&lv.LinkedInURL, &lv.PoolStatus,
			&lv.AssignmentID, &lv.TenantID, &lv.ALSScore, &lv.AssignmentStatus, &lv.SequencePosition, &lv.AssignedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lead view: %w", err)
		}
		lv.Tier = domain.TierForScore(lv.ALSScore)
		out = append(out, lv)
	}
	return out, rows.Err()
}
