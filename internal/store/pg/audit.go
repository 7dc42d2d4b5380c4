package pg

import (
	"context"

	"alugix.app/internal/audit"
	"alugix.app/internal/ids"
)

var _ audit.Store = (*Store)(nil)

// Append inserts one immutable audit row. The table has no update or delete
// path in this codebase.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_log
			(id, tenant_id, actor_id, action, entity_kind, entity_id,
			 old_data, new_data, detail, source_ip, occurred_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		entry.ID, entry.TenantID, entry.ActorID, entry.Action,
		entry.EntityKind, nullIfEmpty(entry.EntityID),
		rawOrNil(entry.OldData), rawOrNil(entry.NewData),
		nullIfEmpty(entry.Detail), nullIfEmpty(entry.SourceIP), entry.OccurredAt,
	)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func rawOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
