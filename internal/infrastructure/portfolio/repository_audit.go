package portfolio

import (
	"context"

	domain "main/internal/domain/entity/portfolio"
)

// AppendAuditLog writes one append-only audit row. There is no update or
// delete path for audit_logs anywhere in the repository.
func (t *ledgerTx) AppendAuditLog(ctx context.Context, entry *domain.AuditLog) error {
	const query = `
		INSERT INTO audit_logs (id, table_name, record_id, action, actor_id, actor_role,
		                        snapshot_before, snapshot_after, context, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := t.tx.Exec(ctx, query,
		entry.ID,
		entry.TableName,
		entry.RecordID,
		entry.Action,
		entry.ActorID,
		nullIfEmpty(entry.ActorRole),
		entry.SnapshotBefore,
		entry.SnapshotAfter,
		entry.Context,
		entry.CreatedAt,
	)
	return mapStoreError(err)
}
