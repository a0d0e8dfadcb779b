package reporting

import "time"

// TierCount is the number of assignments in a given ALS tier.
type TierCount struct {
	Tier  string `json:"tier"`
	Count int64  `json:"count"`
}

// ChannelMetric summarizes one channel's touch funnel across a tenant's
// assignments: how many touches were sent, how many drew a reply, and
// how many ultimately led to a booking.
type ChannelMetric struct {
	Channel string `json:"channel"`
	Sent    int64  `json:"sent"`
	Replied int64  `json:"replied"`
	Booked  int64  `json:"booked"`
}

// Dashboard is the full KPI snapshot GET /reports/dashboard returns.
type Dashboard struct {
	TenantID        string          `json:"tenant_id"`
	GeneratedAt     time.Time       `json:"generated_at"`
	LeadsAssigned   int64           `json:"leads_assigned"`
	LeadsConverted  int64           `json:"leads_converted"`
	ConversionRate  float64         `json:"conversion_rate"`
	TierBreakdown   []TierCount     `json:"tier_breakdown"`
	ChannelMetrics  []ChannelMetric `json:"channel_metrics"`
}
