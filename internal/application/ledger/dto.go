package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/khata/backend/internal/domain/ledger"
)

// CreateCustomerRequest represents a request to add a customer
type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Phone string `json:"phone" binding:"omitempty,max=50"`
}

// RecordTransactionRequest represents a request to record a bill or a
// payment. Date is a calendar date; it defaults to today when absent.
type RecordTransactionRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description" binding:"omitempty,max=500"`
	Date        string  `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// CustomerResponse represents customer data in API responses. Balance
// is the net of bills minus payments; CreditBalance is unspent
// payment surplus.
type CustomerResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TransactionResponse represents one ledger entry in API responses.
// PaidAmount and IsFullyPaid are present for bills only.
type TransactionResponse struct {
	ID          uuid.UUID        `json:"id"`
	CustomerID  uuid.UUID        `json:"customer_id"`
	Type        string           `json:"type"`
	Amount      decimal.Decimal  `json:"amount"`
	Date        string           `json:"date"`
	Description string           `json:"description,omitempty"`
	PaidAmount  *decimal.Decimal `json:"paid_amount,omitempty"`
	IsFullyPaid *bool            `json:"is_fully_paid,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// AllocationResponse reports how much of a payment landed on one bill
type AllocationResponse struct {
	BillID uuid.UUID       `json:"bill_id"`
	Amount decimal.Decimal `json:"amount"`
}

// RecordPaymentResponse combines the recorded payment with its
// allocation outcome
type RecordPaymentResponse struct {
	Transaction    TransactionResponse  `json:"transaction"`
	TotalAllocated decimal.Decimal      `json:"total_allocated"`
	Surplus        decimal.Decimal      `json:"surplus"`
	Allocations    []AllocationResponse `json:"allocations"`
}

// BalanceResponse reports a customer's net balance
type BalanceResponse struct {
	CustomerID uuid.UUID       `json:"customer_id"`
	Balance    decimal.Decimal `json:"balance"`
}

// ReceivablesResponse reports the tenant-wide receivables total
type ReceivablesResponse struct {
	TotalReceivables decimal.Decimal `json:"total_receivables"`
}

// CreditEntryResponse represents one credit audit record
type CreditEntryResponse struct {
	ID                  uuid.UUID       `json:"id"`
	CustomerID          uuid.UUID       `json:"customer_id"`
	Type                string          `json:"type"`
	Amount              decimal.Decimal `json:"amount"`
	BalanceBefore       decimal.Decimal `json:"balance_before"`
	BalanceAfter        decimal.Decimal `json:"balance_after"`
	SourceTransactionID uuid.UUID       `json:"source_transaction_id"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ToCustomerResponse converts a customer and its derived balance to a
// response DTO
func ToCustomerResponse(customer *ledger.Customer, balance decimal.Decimal) CustomerResponse {
	return CustomerResponse{
		ID:            customer.ID,
		Name:          customer.Name,
		Phone:         customer.Phone,
		Balance:       balance,
		CreditBalance: customer.CreditBalance,
		CreatedAt:     customer.CreatedAt,
		UpdatedAt:     customer.UpdatedAt,
	}
}

// ToTransactionResponse converts a transaction to a response DTO
func ToTransactionResponse(txn *ledger.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          txn.ID,
		CustomerID:  txn.CustomerID,
		Type:        string(txn.Type),
		Amount:      txn.Amount,
		Date:        txn.Date.Format("2006-01-02"),
		Description: txn.Description,
		CreatedAt:   txn.CreatedAt,
	}
	if txn.IsBill() {
		paid := txn.PaidAmount
		fullyPaid := txn.IsFullyPaid()
		resp.PaidAmount = &paid
		resp.IsFullyPaid = &fullyPaid
	}
	return resp
}

// ToTransactionResponses converts a transaction list preserving order
func ToTransactionResponses(txns []*ledger.Transaction) []TransactionResponse {
	result := make([]TransactionResponse, len(txns))
	for i, txn := range txns {
		result[i] = ToTransactionResponse(txn)
	}
	return result
}

// ToCreditEntryResponse converts a credit entry to a response DTO
func ToCreditEntryResponse(entry *ledger.CreditEntry) CreditEntryResponse {
	return CreditEntryResponse{
		ID:                  entry.ID,
		CustomerID:          entry.CustomerID,
		Type:                string(entry.Type),
		Amount:              entry.Amount,
		BalanceBefore:       entry.BalanceBefore,
		BalanceAfter:        entry.BalanceAfter,
		SourceTransactionID: entry.SourceTransactionID,
		CreatedAt:           entry.CreatedAt,
	}
}
