package domain

import "time"

// CampaignStatus tracks the lifecycle of a client's outreach campaign.
type CampaignStatus string

const (
	CampaignDraft    CampaignStatus = "draft"
	CampaignActive   CampaignStatus = "active"
	CampaignPaused   CampaignStatus = "paused"
	CampaignArchived CampaignStatus = "archived"
)

// Channel identifies an outreach channel (spec.md §4.7 rate-limit table).
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelLinkedIn Channel = "linkedin"
	ChannelVoice    Channel = "voice"
	ChannelMail     Channel = "mail"
)

// ChannelAllocation is the percentage split of a campaign's lead volume
// across channels; the Allocator consults this before its own gates.
type ChannelAllocation map[Channel]float64

// ICPFilter narrows the Pool Manager's supply candidates to a campaign's
// ideal-customer-profile (spec.md §4.6 supply step). A zero value on any
// field means "no constraint" on that dimension.
type ICPFilter struct {
	MinEmployees int      `json:"min_employees,omitempty"`
	MaxEmployees int      `json:"max_employees,omitempty"`
	Industries   []string `json:"industries,omitempty"`
	Countries    []string `json:"countries,omitempty"`
}

// TouchStep is one position in a campaign's outreach sequence.
type TouchStep struct {
	Position    int     `json:"position"`
	Channel     Channel `json:"channel"`
	DelayHours  int     `json:"delay_hours"`
	TemplateID  string  `json:"template_id"`
}

// DefaultSequence is the platform's 6-touch default sequence template
// (spec.md §4.5) used when a campaign defines no custom sequence.
func DefaultSequence() []TouchStep {
	return []TouchStep{
		{Position: 1, Channel: ChannelEmail, DelayHours: 0, TemplateID: "intro"},
		{Position: 2, Channel: ChannelEmail, DelayHours: 72, TemplateID: "follow_up_1"},
		{Position: 3, Channel: ChannelLinkedIn, DelayHours: 96, TemplateID: "connect"},
		{Position: 4, Channel: ChannelEmail, DelayHours: 120, TemplateID: "value_add"},
		{Position: 5, Channel: ChannelSMS, DelayHours: 168, TemplateID: "nudge"},
		{Position: 6, Channel: ChannelEmail, DelayHours: 240, TemplateID: "breakup"},
	}
}

// Campaign is a client-defined outreach program that leads are enrolled
// into once assigned.
type Campaign struct {
	ID          string            `json:"id" db:"id"`
	TenantID    string            `json:"tenant_id" db:"tenant_id"`
	Name        string            `json:"name" db:"name"`
	Status      CampaignStatus    `json:"status" db:"status"`
	Allocation  ChannelAllocation `json:"allocation" db:"-"`
	Sequence    []TouchStep       `json:"sequence" db:"-"`
	ICP         ICPFilter         `json:"icp" db:"-"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// SequenceOrDefault returns the campaign's custom sequence, or the
// platform default when none has been configured.
func (c *Campaign) SequenceOrDefault() []TouchStep {
	if len(c.Sequence) == 0 {
		return DefaultSequence()
	}
	return c.Sequence
}
