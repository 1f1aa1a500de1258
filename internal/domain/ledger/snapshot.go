package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Snapshot is the complete persisted state for one tenant: the two
// authoritative collections plus the credit audit trail. Transactions
// are ordered by insertion sequence.
type Snapshot struct {
	Customers     []*Customer
	Transactions  []*Transaction
	CreditEntries []*CreditEntry
}

// SnapshotStore is the persistence port consumed by the store. Load
// runs once at startup and returns the state of every tenant; Save
// replaces one tenant's rows after a mutating operation. A failed
// save must never crash the engine: in-memory state stays
// authoritative for the process lifetime and the failure is surfaced
// through PersistenceHealth.
type SnapshotStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, tenantID uuid.UUID, snap *Snapshot) error
}

// SaveFunc adapts a function to the save side of the persistence
// port. The store invokes it while still holding the customer lock,
// which preserves per-customer write order.
type SaveFunc func(ctx context.Context, tenantID uuid.UUID, snap *Snapshot) error
