package dispatch

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/keiracom/agencyos/internal/domain"
)

// ContentRenderer renders a TouchStep's template against the lead/tenant
// context into final send content, the way the teacher's mailing package
// renders client-facing email bodies.
type ContentRenderer struct {
	engine    *liquid.Engine
	templates sync.Map // templateID -> raw liquid source
}

// NewContentRenderer builds a ContentRenderer with the platform's library
// of touch templates keyed by TemplateID (spec.md §4.5 sequence steps).
func NewContentRenderer(templates map[string]string) *ContentRenderer {
	r := &ContentRenderer{engine: liquid.NewEngine()}
	r.registerCustomFilters()
	for id, src := range templates {
		r.templates.Store(id, src)
	}
	return r
}

// registerCustomFilters adds the outreach-specific Liquid filters touch
// templates rely on, mirroring the teacher's pattern of extending the
// engine with small, named transforms rather than pre-formatting in Go.
func (r *ContentRenderer) registerCustomFilters() {
	r.engine.RegisterFilter("first_name", func(s string) string {
		parts := strings.Fields(s)
		if len(parts) == 0 {
			return s
		}
		return parts[0]
	})
	r.engine.RegisterFilter("titlecase", func(s string) string {
		return strings.Title(strings.ToLower(s))
	})
	r.engine.RegisterFilter("default", func(s, fallback string) string {
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	})
	r.engine.RegisterFilter("email_domain", func(s string) string {
		parts := strings.SplitN(s, "@", 2)
		if len(parts) != 2 {
			return ""
		}
		return parts[1]
	})
	r.engine.RegisterFilter("truncate", func(s string, n int) string {
		if len(s) <= n {
			return s
		}
		if n <= 3 {
			return s[:n]
		}
		return s[:n-3] + "..."
	})
}

// TouchContext is the render context a template sees: the lead, the
// sending tenant, the touch step being rendered, and any thread history
// used for follow-up personalization.
type TouchContext struct {
	Lead          domain.PoolLead
	Tenant        domain.Tenant
	Step          domain.TouchStep
	PriorSubject  string
	SequencePos   int
}

func (c TouchContext) bindings() map[string]any {
	return map[string]any{
		"lead": map[string]any{
			"first_name":   c.Lead.FirstName,
			"last_name":    c.Lead.LastName,
			"full_name":    strings.TrimSpace(c.Lead.FirstName + " " + c.Lead.LastName),
			"title":        c.Lead.Title,
			"company":      c.Lead.Company,
			"email":        c.Lead.Email,
			"industry":     c.Lead.Org.Industry,
		},
		"tenant": map[string]any{
			"name": c.Tenant.Name,
		},
		"step": map[string]any{
			"position": c.Step.Position,
			"channel":  string(c.Step.Channel),
		},
		"prior_subject": c.PriorSubject,
		"sequence_pos":  c.SequencePos,
	}
}

// Render renders the named template against the touch context, returning
// the final send body. Missing templates are a configuration error, not a
// runtime drop reason — they surface immediately rather than silently
// skipping a scheduled touch.
func (r *ContentRenderer) Render(templateID string, ctx TouchContext) (string, error) {
	raw, ok := r.templates.Load(templateID)
	if !ok {
		return "", fmt.Errorf("content: unknown template %q", templateID)
	}
	tpl, err := r.engine.ParseString(raw.(string))
	if err != nil {
		return "", fmt.Errorf("content: parse template %q: %w", templateID, err)
	}
	out, err := tpl.RenderString(ctx.bindings())
	if err != nil {
		return "", fmt.Errorf("content: render template %q: %w", templateID, err)
	}
	return out, nil
}
