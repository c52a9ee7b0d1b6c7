package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "main/internal/domain/entity/portfolio"
	"main/internal/domain/interfaces"
)

// Entry describes one mutation to be recorded. Before, After and Context are
// optional free-form snapshots serialized to JSON.
type Entry struct {
	TableName string
	RecordID  uuid.UUID
	Action    domain.AuditAction
	Actor     domain.Actor
	Before    map[string]any
	After     map[string]any
	Context   map[string]any
}

// Recorder appends immutable audit rows. Record must be called with the same
// transaction handle as the mutation it documents so both share one commit.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record serializes the snapshots and appends the audit row through tx. Any
// storage error propagates and aborts the enclosing unit of work.
func (r *Recorder) Record(ctx context.Context, tx interfaces.LedgerTx, entry Entry) error {
	before, err := marshalSnapshot(entry.Before)
	if err != nil {
		return fmt.Errorf("marshal before snapshot: %w", err)
	}
	after, err := marshalSnapshot(entry.After)
	if err != nil {
		return fmt.Errorf("marshal after snapshot: %w", err)
	}
	auditContext, err := marshalSnapshot(entry.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	log := &domain.AuditLog{
		ID:             uuid.New(),
		TableName:      entry.TableName,
		RecordID:       entry.RecordID,
		Action:         entry.Action,
		ActorRole:      entry.Actor.Role,
		SnapshotBefore: before,
		SnapshotAfter:  after,
		Context:        auditContext,
		CreatedAt:      time.Now().UTC(),
	}
	if entry.Actor.ID != uuid.Nil {
		actorID := entry.Actor.ID
		log.ActorID = &actorID
	}
	return tx.AppendAuditLog(ctx, log)
}

func marshalSnapshot(snapshot map[string]any) ([]byte, error) {
	if snapshot == nil {
		return nil, nil
	}
	return json.Marshal(snapshot)
}
