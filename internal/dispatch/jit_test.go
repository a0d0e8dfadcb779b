package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/domain"
)

type fakeTenants struct{ tenant *domain.Tenant }

func (f *fakeTenants) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	return f.tenant, nil
}

type fakeCampaigns struct{ status domain.CampaignStatus }

func (f *fakeCampaigns) GetCampaignStatus(ctx context.Context, id string) (domain.CampaignStatus, error) {
	return f.status, nil
}

type fakeAssignments struct{ status domain.AssignmentStatus }

func (f *fakeAssignments) GetAssignmentStatus(ctx context.Context, id string) (domain.AssignmentStatus, error) {
	return f.status, nil
}

type fakeJITSuppression struct{ suppressed bool }

func (f *fakeJITSuppression) Check(ctx context.Context, email string) (bool, error) {
	return f.suppressed, nil
}

func validTenant() *domain.Tenant {
	return &domain.Tenant{SubscriptionStatus: domain.SubscriptionActive, CreditsRemaining: 100}
}

func newTestValidator(t *testing.T, tenant *domain.Tenant, campaignStatus domain.CampaignStatus, assignmentStatus domain.AssignmentStatus, suppressed bool, cap int) *Validator {
	t.Helper()
	return NewValidator(
		&fakeTenants{tenant: tenant},
		&fakeCampaigns{status: campaignStatus},
		&fakeAssignments{status: assignmentStatus},
		&fakeJITSuppression{suppressed: suppressed},
		NewRateLimiter(newTestRedis(t)),
		map[domain.Channel]int{domain.ChannelEmail: cap},
	)
}

func TestValidate_AllChecksPass(t *testing.T) {
	v := newTestValidator(t, validTenant(), domain.CampaignActive, domain.AssignmentActive, false, 10)
	ok, reason, err := v.Validate(context.Background(), Touch{Channel: domain.ChannelEmail, Resource: "mailbox-1"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, reason)
}

func TestValidate_SubscriptionInactiveDrops(t *testing.T) {
	tenant := validTenant()
	tenant.SubscriptionStatus = domain.SubscriptionCancelled
	v := newTestValidator(t, tenant, domain.CampaignActive, domain.AssignmentActive, false, 10)
	ok, reason, err := v.Validate(context.Background(), Touch{Channel: domain.ChannelEmail})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, DropSubscriptionInactive, reason)
}

func TestValidate_NoCreditsDrops(t *testing.T) {
	tenant := validTenant()
	tenant.CreditsRemaining = 0
	v := newTestValidator(t, tenant, domain.CampaignActive, domain.AssignmentActive, false, 10)
	ok, reason, err := v.Validate(context.Background(), Touch{Channel: domain.ChannelEmail})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, DropNoCredits, reason)
}

func TestValidate_CampaignInactiveDrops(t *testing.T) {
	v := newTestValidator(t, validTenant(), domain.CampaignPaused, domain.AssignmentActive, false, 10)
	ok, reason, err := v.Validate(context.Background(), Touch{Channel: domain.ChannelEmail})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, DropCampaignInactive, reason)
}

func TestValidate_TerminalAssignmentDrops(t *testing.T) {
	v := newTestValidator(t, validTenant(), domain.CampaignActive, domain.AssignmentConverted, false, 10)
	ok, reason, err := v.Validate(context.Background(), Touch{Channel: domain.ChannelEmail})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, DropLeadTerminal, reason)
}

func TestValidate_SuppressedDrops(t *testing.T) {
	v := newTestValidator(t, validTenant(), domain.CampaignActive, domain.AssignmentActive, true, 10)
	ok, reason, err := v.Validate(context.Background(), Touch{Channel: domain.ChannelEmail, Email: "a@b.com"})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, DropSuppressed, reason)
}

func TestValidate_RateLimitedDrops(t *testing.T) {
	v := newTestValidator(t, validTenant(), domain.CampaignActive, domain.AssignmentActive, false, 1)
	ok, _, err := v.Validate(context.Background(), Touch{Channel: domain.ChannelEmail, Resource: "mailbox-1"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, reason, err := v.Validate(context.Background(), Touch{Channel: domain.ChannelEmail, Resource: "mailbox-1"})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, DropRateLimited, reason)
}

func TestValidate_UnboundedChannelSkipsRateLimit(t *testing.T) {
	v := newTestValidator(t, validTenant(), domain.CampaignActive, domain.AssignmentActive, false, 0)
	for i := 0; i < 5; i++ {
		ok, _, err := v.Validate(context.Background(), Touch{Channel: domain.ChannelEmail, Resource: "mailbox-1"})
		require.NoError(t, err)
		require.True(t, ok)
	}
}
