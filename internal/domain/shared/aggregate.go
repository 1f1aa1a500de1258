package shared

import (
	"github.com/google/uuid"
)

// BaseAggregateRoot adds a version counter to an entity. Mutating
// methods bump it so stale snapshot writes are detectable.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// IncrementVersion bumps the optimistic-locking version.
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

// TenantAggregateRoot scopes an aggregate to one merchant's ledger.
// Every merchant account owns exactly one tenant scope.
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID uuid.UUID
}

func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		TenantID:          tenantID,
	}
}
