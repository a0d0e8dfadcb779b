package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keiracom/agencyos/internal/domain"
)

func TestRender_SubstitutesLeadAndTenantFields(t *testing.T) {
	r := NewContentRenderer(map[string]string{
		"intro": "Hi {{ lead.first_name }}, following up with {{ tenant.name }} about {{ lead.company }}.",
	})
	out, err := r.Render("intro", TouchContext{
		Lead:   domain.PoolLead{FirstName: "Jamie", Company: "Acme Co"},
		Tenant: domain.Tenant{Name: "Keiracom"},
		Step:   domain.TouchStep{Position: 1, TemplateID: "intro"},
	})
	require.NoError(t, err)
	require.Equal(t, "Hi Jamie, following up with Keiracom about Acme Co.", out)
}

func TestRender_UnknownTemplateErrors(t *testing.T) {
	r := NewContentRenderer(map[string]string{})
	_, err := r.Render("missing", TouchContext{})
	require.Error(t, err)
}

func TestRender_DefaultFilterFallsBackOnBlank(t *testing.T) {
	r := NewContentRenderer(map[string]string{
		"nudge": "{{ lead.title | default: \"there\" }}",
	})
	out, err := r.Render("nudge", TouchContext{Lead: domain.PoolLead{}})
	require.NoError(t, err)
	require.Equal(t, "there", out)
}

func TestRender_EmailDomainFilter(t *testing.T) {
	r := NewContentRenderer(map[string]string{
		"tmpl": "{{ lead.email | email_domain }}",
	})
	out, err := r.Render("tmpl", TouchContext{Lead: domain.PoolLead{Email: "jamie@acme.com"}})
	require.NoError(t, err)
	require.Equal(t, "acme.com", out)
}
