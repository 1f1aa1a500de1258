package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/khata/backend/internal/domain/ledger"
	"github.com/khata/backend/internal/domain/shared"
	"github.com/khata/backend/internal/infrastructure/logger"
	"github.com/khata/backend/internal/infrastructure/telemetry"
)

// LedgerService exposes the ledger engine to the transport layer:
// recording bills and payments, deriving balances, and reading
// history. All mutations go through the store's per-customer locking;
// this service never touches credit balances or paid amounts itself.
type LedgerService struct {
	store   *ledger.Store
	log     *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewLedgerService creates a new ledger service
func NewLedgerService(store *ledger.Store, log *zap.Logger) *LedgerService {
	return &LedgerService{
		store: store,
		log:   log,
	}
}

// SetBusinessMetrics sets the optional business metrics collector
func (s *LedgerService) SetBusinessMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// RecordBill records a new bill for the customer. Standing credit is
// consumed first, so the returned bill may already be partially or
// fully paid.
func (s *LedgerService) RecordBill(ctx context.Context, tenantID, customerID uuid.UUID, req RecordTransactionRequest) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "record_bill",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, customerID),
	)
	defer span.End()

	date, err := parseDate(req.Date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	amount := decimal.NewFromFloat(req.Amount)
	bill, err := s.store.RecordBill(ctx, tenantID, customerID, amount, req.Description, date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBillID, bill.ID,
		telemetry.SpanAttrAmount, amount,
		telemetry.SpanAttrCreditApplied, bill.PaidAmount,
	)

	logger.WithTraceContext(ctx, s.log).Info("Bill recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("amount", amount.String()),
		zap.String("credit_applied", bill.PaidAmount.String()),
	)
	if s.metrics != nil {
		s.metrics.RecordBill(ctx, amount, bill.PaidAmount)
	}

	resp := ToTransactionResponse(bill)
	return &resp, nil
}

// RecordPayment records a payment and allocates it across the
// customer's open bills oldest first. The payment itself is always
// recorded in full; allocation cannot fail it.
func (s *LedgerService) RecordPayment(ctx context.Context, tenantID, customerID uuid.UUID, req RecordTransactionRequest) (*RecordPaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "record_payment",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, customerID),
	)
	defer span.End()

	date, err := parseDate(req.Date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	amount := decimal.NewFromFloat(req.Amount)
	payment, result, err := s.store.RecordPayment(ctx, tenantID, customerID, amount, req.Description, date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, payment.ID,
		telemetry.SpanAttrAmount, amount,
		telemetry.SpanAttrAllocated, result.TotalAllocated,
		telemetry.SpanAttrSurplus, result.Surplus,
	)
	if result.Surplus.IsPositive() {
		telemetry.AddEvent(span, "credit_carried_forward",
			telemetry.SpanAttrSurplus, result.Surplus,
		)
	}

	logger.WithTraceContext(ctx, s.log).Info("Payment recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("amount", amount.String()),
		zap.String("allocated", result.TotalAllocated.String()),
		zap.String("surplus", result.Surplus.String()),
	)
	if s.metrics != nil {
		s.metrics.RecordPayment(ctx, amount, result.TotalAllocated, result.Surplus)
	}

	allocations := make([]AllocationResponse, len(result.Allocations))
	for i, a := range result.Allocations {
		allocations[i] = AllocationResponse{BillID: a.BillID, Amount: a.Amount}
	}

	return &RecordPaymentResponse{
		Transaction:    ToTransactionResponse(payment),
		TotalAllocated: result.TotalAllocated,
		Surplus:        result.Surplus,
		Allocations:    allocations,
	}, nil
}

// Balance derives the customer's net balance. An unknown customer
// yields zero rather than an error; the balance formula is a fold
// over the (possibly empty) transaction set.
func (s *LedgerService) Balance(tenantID, customerID uuid.UUID) BalanceResponse {
	return BalanceResponse{
		CustomerID: customerID,
		Balance:    s.store.BalanceOf(tenantID, customerID),
	}
}

// TotalReceivables sums positive balances across the tenant's
// customers
func (s *LedgerService) TotalReceivables(tenantID uuid.UUID) ReceivablesResponse {
	return ReceivablesResponse{
		TotalReceivables: s.store.TotalReceivables(tenantID),
	}
}

// History returns the customer's transactions newest first
func (s *LedgerService) History(tenantID, customerID uuid.UUID) ([]TransactionResponse, error) {
	txns, err := s.store.History(tenantID, customerID)
	if err != nil {
		return nil, err
	}
	return ToTransactionResponses(txns), nil
}

// CreditEntries returns the customer's credit audit trail newest
// first
func (s *LedgerService) CreditEntries(tenantID, customerID uuid.UUID) ([]CreditEntryResponse, error) {
	entries, err := s.store.CreditEntries(tenantID, customerID)
	if err != nil {
		return nil, err
	}
	result := make([]CreditEntryResponse, len(entries))
	for i, e := range entries {
		result[i] = ToCreditEntryResponse(e)
	}
	return result, nil
}

// PersistenceHealth reports the outcome of the most recent snapshot
// save
func (s *LedgerService) PersistenceHealth() error {
	return s.store.PersistenceHealth()
}

// parseDate parses a calendar date, defaulting to today when empty
func parseDate(value string) (time.Time, error) {
	if value == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, shared.NewDomainError("INVALID_INPUT", "Date must be in YYYY-MM-DD format")
	}
	return date, nil
}
