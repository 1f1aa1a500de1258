// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics tracks ledger activity: bills raised, payments
// collected, credit carried forward, and the outstanding receivables
// position per merchant.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	billsTotal            *Counter
	billAmountTotal       *Counter
	paymentsTotal         *Counter
	paymentAmountTotal    *Counter
	paymentAllocatedTotal *Counter
	creditCarriedTotal    *Counter

	// Gauge metrics (point-in-time values)
	receivables *FloatGauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	provider ReceivablesProvider
}

// ReceivablesProvider provides receivables data for periodic metrics
// collection. The interface keeps the telemetry layer from depending
// on the ledger domain directly.
type ReceivablesProvider interface {
	// TenantIDs returns the merchants that currently have ledger data.
	TenantIDs() []uuid.UUID

	// TotalReceivables returns the merchant's outstanding receivables.
	TotalReceivables(tenantID uuid.UUID) decimal.Decimal
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	Provider        ReceivablesProvider
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:    cfg.Meter,
		logger:   logger,
		stopChan: make(chan struct{}),
		provider: cfg.Provider,
	}

	var err error

	lm.billsTotal, err = NewCounter(
		cfg.Meter,
		"khata_bills_total",
		"Total number of bills recorded",
		"{bills}",
	)
	if err != nil {
		return nil, err
	}

	lm.billAmountTotal, err = NewCounter(
		cfg.Meter,
		"khata_bill_amount_total",
		"Total billed amount in paisa",
		"{paisa}",
	)
	if err != nil {
		return nil, err
	}

	lm.paymentsTotal, err = NewCounter(
		cfg.Meter,
		"khata_payments_total",
		"Total number of payments recorded",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	lm.paymentAmountTotal, err = NewCounter(
		cfg.Meter,
		"khata_payment_amount_total",
		"Total payment amount in paisa",
		"{paisa}",
	)
	if err != nil {
		return nil, err
	}

	lm.paymentAllocatedTotal, err = NewCounter(
		cfg.Meter,
		"khata_payment_allocated_total",
		"Payment amount applied to outstanding bills, in paisa",
		"{paisa}",
	)
	if err != nil {
		return nil, err
	}

	lm.creditCarriedTotal, err = NewCounter(
		cfg.Meter,
		"khata_credit_carried_total",
		"Payment surplus carried forward as customer credit, in paisa",
		"{paisa}",
	)
	if err != nil {
		return nil, err
	}

	lm.receivables, err = NewFloatGauge(
		cfg.Meter,
		"khata_receivables",
		"Outstanding receivables per merchant",
		"{currency}",
	)
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// =============================================================================
// Bill and Payment Metrics
// =============================================================================

// RecordBill records a bill event. creditApplied is the portion of the
// bill that was settled immediately from the customer's stored credit.
func (lm *LedgerMetrics) RecordBill(ctx context.Context, amount, creditApplied decimal.Decimal) {
	lm.billsTotal.Inc(ctx)
	lm.billAmountTotal.Add(ctx, toPaisa(amount))
	if creditApplied.IsPositive() {
		lm.paymentAllocatedTotal.Add(ctx, toPaisa(creditApplied))
	}
}

// RecordPayment records a payment event. allocated is the portion
// applied to outstanding bills; surplus is the remainder stored as
// customer credit.
func (lm *LedgerMetrics) RecordPayment(ctx context.Context, amount, allocated, surplus decimal.Decimal) {
	lm.paymentsTotal.Inc(ctx)
	lm.paymentAmountTotal.Add(ctx, toPaisa(amount))
	if allocated.IsPositive() {
		lm.paymentAllocatedTotal.Add(ctx, toPaisa(allocated))
	}
	if surplus.IsPositive() {
		lm.creditCarriedTotal.Add(ctx, toPaisa(surplus))
	}
}

// toPaisa converts a currency amount to its smallest unit.
func toPaisa(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of the
// receivables gauge for every merchant the provider knows about.
// This is non-blocking; use Stop() to stop collection.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go lm.runPeriodicCollection(ctx, interval)
	})
}

func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	lm.collectReceivables(ctx)

	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collectReceivables(ctx)
		}
	}
}

func (lm *LedgerMetrics) collectReceivables(ctx context.Context) {
	if lm.provider == nil {
		lm.logger.Debug("No receivables provider configured, skipping collection")
		return
	}

	for _, tenantID := range lm.provider.TenantIDs() {
		total := lm.provider.TotalReceivables(tenantID)
		value, _ := total.Float64()
		lm.receivables.Record(ctx, value,
			AttrTenantID.String(tenantID.String()),
		)
	}
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
