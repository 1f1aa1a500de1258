package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/khata/backend/internal/domain/shared"
)

// Customer is a party the merchant extends credit to. The credit
// balance is the portion of past payments not yet consumed by any
// bill; it is mutated only by the allocation engine inside this
// package, never directly by callers.
type Customer struct {
	shared.TenantAggregateRoot
	Name          string
	Phone         string
	CreditBalance decimal.Decimal
}

// NewCustomer creates a customer for the given tenant
func NewCustomer(tenantID uuid.UUID, name, phone string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer name is required")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer name must not exceed 200 characters")
	}

	return &Customer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Phone:               strings.TrimSpace(phone),
		CreditBalance:       decimal.Zero,
	}, nil
}

// consumeCredit deducts up to amount from the credit balance and
// returns the portion actually consumed. Never drives the balance
// negative.
func (c *Customer) consumeCredit(amount decimal.Decimal) decimal.Decimal {
	applied := decimal.Min(amount, c.CreditBalance)
	if !applied.IsPositive() {
		return decimal.Zero
	}
	c.CreditBalance = c.CreditBalance.Sub(applied)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return applied
}

// addCredit carries unallocated payment surplus forward against
// future bills
func (c *Customer) addCredit(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	c.CreditBalance = c.CreditBalance.Add(amount)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// clone returns a copy safe to hand out across the store boundary
func (c *Customer) clone() *Customer {
	dup := *c
	return &dup
}
