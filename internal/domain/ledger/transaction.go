package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/khata/backend/internal/domain/shared"
)

// TransactionType distinguishes money owed from money received
type TransactionType string

const (
	// TransactionTypeBill increases what a customer owes
	TransactionTypeBill TransactionType = "BILL"
	// TransactionTypePayment decreases what a customer owes
	TransactionTypePayment TransactionType = "PAYMENT"
)

// Transaction is one immutable ledger entry. Amount, Date and
// Description never change after creation. For bills, PaidAmount is
// the cumulative portion satisfied by credit or FIFO-allocated
// payments; it only grows and never exceeds Amount. Payments carry no
// PaidAmount: they fund allocation into bills and are always recorded
// in full.
type Transaction struct {
	shared.BaseEntity
	TenantID    uuid.UUID
	CustomerID  uuid.UUID
	Type        TransactionType
	Amount      decimal.Decimal
	Date        time.Time
	Description string

	// Seq is the monotonic insertion counter. It is the stable
	// tie-breaker when bills share a date.
	Seq uint64

	// PaidAmount is meaningful for bills only
	PaidAmount decimal.Decimal
}

func newBill(tenantID, customerID uuid.UUID, amount decimal.Decimal, description string, date time.Time, creditApplied decimal.Decimal) *Transaction {
	return &Transaction{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		CustomerID:  customerID,
		Type:        TransactionTypeBill,
		Amount:      amount,
		Date:        date,
		Description: strings.TrimSpace(description),
		PaidAmount:  creditApplied,
	}
}

func newPayment(tenantID, customerID uuid.UUID, amount decimal.Decimal, description string, date time.Time) *Transaction {
	return &Transaction{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		CustomerID:  customerID,
		Type:        TransactionTypePayment,
		Amount:      amount,
		Date:        date,
		Description: strings.TrimSpace(description),
		PaidAmount:  decimal.Zero,
	}
}

// IsBill reports whether this transaction increases the customer's debt
func (t *Transaction) IsBill() bool {
	return t.Type == TransactionTypeBill
}

// IsFullyPaid is derived from PaidAmount and Amount every time it is
// asked for; it is never stored independently, so the two cannot fall
// out of sync. Always false for payments.
func (t *Transaction) IsFullyPaid() bool {
	return t.IsBill() && t.PaidAmount.GreaterThanOrEqual(t.Amount)
}

// Outstanding returns the unpaid remainder of a bill, zero for
// payments
func (t *Transaction) Outstanding() decimal.Decimal {
	if !t.IsBill() {
		return decimal.Zero
	}
	due := t.Amount.Sub(t.PaidAmount)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// applyAllocation adds an allocated portion to a bill's PaidAmount.
// The caller guarantees amount is positive and within Outstanding.
func (t *Transaction) applyAllocation(amount decimal.Decimal) {
	t.PaidAmount = t.PaidAmount.Add(amount)
	t.UpdatedAt = time.Now()
}

// clone returns a copy safe to hand out across the store boundary
func (t *Transaction) clone() *Transaction {
	dup := *t
	return &dup
}
