package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/khata/backend/internal/domain/shared"
)

// CreditEntryType classifies a credit balance movement
type CreditEntryType string

const (
	// CreditEntryTypeCarryForward records payment surplus added to the
	// credit balance after all outstanding bills were settled
	CreditEntryTypeCarryForward CreditEntryType = "CARRY_FORWARD"
	// CreditEntryTypeConsume records credit spent to pre-pay a new bill
	CreditEntryTypeConsume CreditEntryType = "CONSUME"
)

// CreditEntry is an immutable audit record written whenever a
// customer's credit balance changes. Amount is always positive; the
// direction is carried by Type. Entries are a pure audit trail and
// never feed back into any balance computation.
type CreditEntry struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	CustomerID    uuid.UUID
	Type          CreditEntryType
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal

	// SourceTransactionID links the entry to the bill or payment that
	// caused the movement
	SourceTransactionID uuid.UUID
}

func newCreditEntry(customer *Customer, entryType CreditEntryType, amount, balanceBefore decimal.Decimal, sourceID uuid.UUID) *CreditEntry {
	return &CreditEntry{
		BaseEntity:          shared.NewBaseEntity(),
		TenantID:            customer.TenantID,
		CustomerID:          customer.ID,
		Type:                entryType,
		Amount:              amount,
		BalanceBefore:       balanceBefore,
		BalanceAfter:        customer.CreditBalance,
		SourceTransactionID: sourceID,
	}
}

// clone returns a copy safe to hand out across the store boundary
func (e *CreditEntry) clone() *CreditEntry {
	dup := *e
	return &dup
}
