package pg

import (
	"context"

	"laporfasilitas.org/internal/audit"
)

var _ audit.Store = (*AuditStore)(nil)

// AuditStore is a view over the same pool as Store; audit.Store and
// report.Store both declare List with different signatures, so the audit
// methods live on their own receiver type.
type AuditStore Store

// Audit returns the audit.Store view of the pool.
func (s *Store) Audit() *AuditStore { return (*AuditStore)(s) }

// Append writes one admin log row. There is deliberately no update or
// delete counterpart for admin_logs anywhere in this package.
func (s *AuditStore) Append(ctx context.Context, e *audit.Entry) error {
	details, err := audit.EncodeDetails(e.Details)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into admin_logs (id, actor_id, actor_name, action, target_type, target_id, details, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.ActorID, e.ActorName, string(e.Action), string(e.TargetType), e.TargetID, details, e.CreatedAt)
	return err
}

func (s *AuditStore) List(ctx context.Context, limit int) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, actor_id, actor_name, action, target_type, target_id, details, created_at
		from admin_logs
		order by created_at desc, id desc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e       audit.Entry
			action  string
			target  string
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorName, &action, &target, &e.TargetID, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = audit.Action(action)
		e.TargetType = audit.TargetType(target)
		d, err := audit.DecodeDetails(e.Action, details)
		if err != nil {
			return nil, err
		}
		e.Details = d
		out = append(out, e)
	}
	return out, rows.Err()
}
