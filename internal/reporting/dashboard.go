package reporting

import (
	"context"
	"fmt"
	"time"
)

// Service builds a tenant's KPI dashboard from the Snowflake mirror.
type Service struct {
	client *Client
}

// New builds a Service.
func New(client *Client) *Service {
	return &Service{client: client}
}

// GetDashboard assembles a tenant's KPI snapshot: assignment/conversion
// counts, ALS tier breakdown, and per-channel touch funnel.
func (s *Service) GetDashboard(ctx context.Context, tenantID string) (*Dashboard, error) {
	dash := &Dashboard{TenantID: tenantID, GeneratedAt: time.Now()}

	if err := s.loadAssignmentCounts(ctx, tenantID, dash); err != nil {
		return nil, err
	}
	if err := s.loadTierBreakdown(ctx, tenantID, dash); err != nil {
		return nil, err
	}
	if err := s.loadChannelMetrics(ctx, tenantID, dash); err != nil {
		return nil, err
	}

	if dash.LeadsAssigned > 0 {
		dash.ConversionRate = float64(dash.LeadsConverted) / float64(dash.LeadsAssigned)
	}
	return dash, nil
}

func (s *Service) loadAssignmentCounts(ctx context.Context, tenantID string, dash *Dashboard) error {
	err := s.client.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT_IF(STATUS = 'converted')
		FROM ASSIGNMENTS
		WHERE TENANT_ID = ?
	`, tenantID).Scan(&dash.LeadsAssigned, &dash.LeadsConverted)
	if err != nil {
		return fmt.Errorf("load assignment counts: %w", err)
	}
	return nil
}

func (s *Service) loadTierBreakdown(ctx context.Context, tenantID string, dash *Dashboard) error {
	rows, err := s.client.db.QueryContext(ctx, `
		SELECT TIER, COUNT(*)
		FROM ASSIGNMENTS
		WHERE TENANT_ID = ?
		GROUP BY TIER
		ORDER BY COUNT(*) DESC
	`, tenantID)
	if err != nil {
		return fmt.Errorf("load tier breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tc TierCount
		if err := rows.Scan(&tc.Tier, &tc.Count); err != nil {
			return fmt.Errorf("scan tier breakdown: %w", err)
		}
		dash.TierBreakdown = append(dash.TierBreakdown, tc)
	}
	return rows.Err()
}

func (s *Service) loadChannelMetrics(ctx context.Context, tenantID string, dash *Dashboard) error {
	rows, err := s.client.db.QueryContext(ctx, `
		SELECT CHANNEL,
		       COUNT_IF(ACTION = 'sent'),
		       COUNT_IF(ACTION = 'replied'),
		       COUNT_IF(LED_TO_BOOKING)
		FROM ACTIVITIES
		WHERE TENANT_ID = ?
		GROUP BY CHANNEL
		ORDER BY CHANNEL
	`, tenantID)
	if err != nil {
		return fmt.Errorf("load channel metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cm ChannelMetric
		if err := rows.Scan(&cm.Channel, &cm.Sent, &cm.Replied, &cm.Booked); err != nil {
			return fmt.Errorf("scan channel metrics: %w", err)
		}
		dash.ChannelMetrics = append(dash.ChannelMetrics, cm)
	}
	return rows.Err()
}
