package portfolio

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)

func (a AuditAction) String() string {
	return string(a)
}

// Actor is the authenticated identity performing an operation, resolved by
// the gateway before a request reaches the ledger.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// AuditLog is an append-only before/after snapshot of one mutation. Rows are
// never updated or deleted. Snapshot and context payloads are serialized JSON.
type AuditLog struct {
	ID             uuid.UUID
	TableName      string
	RecordID       uuid.UUID
	Action         AuditAction
	ActorID        *uuid.UUID
	ActorRole      string
	SnapshotBefore []byte
	SnapshotAfter  []byte
	Context        []byte
	CreatedAt      time.Time
}
