package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/khata/backend/internal/domain/ledger"
)

// CustomerModel is the persistence model for the ledger Customer aggregate.
type CustomerModel struct {
	TenantAggregateModel
	Name          string          `gorm:"type:varchar(200);not null;index"`
	Phone         string          `gorm:"type:varchar(50);index"`
	CreditBalance decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() *ledger.Customer {
	customer := &ledger.Customer{
		Name:          m.Name,
		Phone:         m.Phone,
		CreditBalance: m.CreditBalance,
	}
	m.PopulateTenantAggregateRoot(&customer.TenantAggregateRoot)
	return customer
}

// CustomerModelFromDomain builds a persistence model from a domain Customer
func CustomerModelFromDomain(c *ledger.Customer) *CustomerModel {
	m := &CustomerModel{
		Name:          c.Name,
		Phone:         c.Phone,
		CreditBalance: c.CreditBalance,
	}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	return m
}

// TransactionModel is the persistence model for ledger transactions.
// Bills and payments share one table discriminated by Type.
type TransactionModel struct {
	BaseModel
	TenantID    uuid.UUID              `gorm:"type:uuid;not null;index:idx_transactions_tenant_customer"`
	CustomerID  uuid.UUID              `gorm:"type:uuid;not null;index:idx_transactions_tenant_customer"`
	Type        ledger.TransactionType `gorm:"type:varchar(10);not null"`
	Amount      decimal.Decimal        `gorm:"type:decimal(15,2);not null"`
	Date        time.Time              `gorm:"not null;index"`
	Description string                 `gorm:"type:varchar(500)"`
	Seq         uint64                 `gorm:"not null;index"`
	PaidAmount  decimal.Decimal        `gorm:"type:decimal(15,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	return &ledger.Transaction{
		BaseEntity:  m.BaseModel.ToDomain(),
		TenantID:    m.TenantID,
		CustomerID:  m.CustomerID,
		Type:        m.Type,
		Amount:      m.Amount,
		Date:        m.Date,
		Description: m.Description,
		Seq:         m.Seq,
		PaidAmount:  m.PaidAmount,
	}
}

// TransactionModelFromDomain builds a persistence model from a domain Transaction
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{
		TenantID:    t.TenantID,
		CustomerID:  t.CustomerID,
		Type:        t.Type,
		Amount:      t.Amount,
		Date:        t.Date,
		Description: t.Description,
		Seq:         t.Seq,
		PaidAmount:  t.PaidAmount,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// CreditEntryModel is the persistence model for credit balance movements.
type CreditEntryModel struct {
	BaseModel
	TenantID            uuid.UUID             `gorm:"type:uuid;not null;index:idx_credit_entries_tenant_customer"`
	CustomerID          uuid.UUID             `gorm:"type:uuid;not null;index:idx_credit_entries_tenant_customer"`
	Type                ledger.CreditEntryType `gorm:"type:varchar(20);not null"`
	Amount              decimal.Decimal       `gorm:"type:decimal(15,2);not null"`
	BalanceBefore       decimal.Decimal       `gorm:"type:decimal(15,2);not null"`
	BalanceAfter        decimal.Decimal       `gorm:"type:decimal(15,2);not null"`
	SourceTransactionID uuid.UUID             `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (CreditEntryModel) TableName() string {
	return "credit_entries"
}

// ToDomain converts the persistence model to a domain CreditEntry
func (m *CreditEntryModel) ToDomain() *ledger.CreditEntry {
	return &ledger.CreditEntry{
		BaseEntity:          m.BaseModel.ToDomain(),
		TenantID:            m.TenantID,
		CustomerID:          m.CustomerID,
		Type:                m.Type,
		Amount:              m.Amount,
		BalanceBefore:       m.BalanceBefore,
		BalanceAfter:        m.BalanceAfter,
		SourceTransactionID: m.SourceTransactionID,
	}
}

// CreditEntryModelFromDomain builds a persistence model from a domain CreditEntry
func CreditEntryModelFromDomain(e *ledger.CreditEntry) *CreditEntryModel {
	m := &CreditEntryModel{
		TenantID:            e.TenantID,
		CustomerID:          e.CustomerID,
		Type:                e.Type,
		Amount:              e.Amount,
		BalanceBefore:       e.BalanceBefore,
		BalanceAfter:        e.BalanceAfter,
		SourceTransactionID: e.SourceTransactionID,
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}
