package store

import (
	"context"
	"fmt"
)

// ListTouchTemplates loads the full touch_templates catalog keyed by
// template ID for dispatch.NewContentRenderer, mirroring the teacher's
// DB-backed EmailTemplate storage (internal/mailing/templates.go) rather
// than flat files on disk, since sequence steps reference templates by
// ID alone (domain.TouchStep.TemplateID) and operators edit copy without
// a redeploy.
func (s *Store) ListTouchTemplates(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, body FROM touch_templates`)
	if err != nil {
		return nil, fmt.Errorf("list touch templates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan touch template: %w", err)
		}
		out[id] = body
	}
	return out, rows.Err()
}
