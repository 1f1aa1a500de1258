package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khata/backend/internal/domain/shared"
)

func newTestTenantID() uuid.UUID {
	return uuid.MustParse("11111111-1111-1111-1111-111111111111")
}

func newStoreWithCustomer(t *testing.T) (*Store, *Customer) {
	t.Helper()
	store := NewStore()
	customer, err := store.AddCustomer(context.Background(), newTestTenantID(), "Ravi Traders", "9800000001")
	require.NoError(t, err)
	return store, customer
}

func TestStore_AddCustomer_RequiresName(t *testing.T) {
	store := NewStore()

	customer, err := store.AddCustomer(context.Background(), newTestTenantID(), "   ", "")

	assert.Nil(t, customer)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_INPUT", domainErr.Code)
}

func TestStore_RecordBill_InvalidAmount(t *testing.T) {
	store, customer := newStoreWithCustomer(t)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10)} {
		bill, err := store.RecordBill(context.Background(), newTestTenantID(), customer.ID, amount, "groceries", day("2024-01-01"))

		assert.Nil(t, bill)
		var domainErr *shared.DomainError
		assert.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_AMOUNT", domainErr.Code)
	}

	// rejection leaves the ledger untouched
	history, err := store.History(newTestTenantID(), customer.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.True(t, store.BalanceOf(newTestTenantID(), customer.ID).IsZero())
}

func TestStore_RecordBill_UnknownCustomer(t *testing.T) {
	store := NewStore()

	bill, err := store.RecordBill(context.Background(), newTestTenantID(), uuid.New(), decimal.NewFromInt(100), "", day("2024-01-01"))

	assert.Nil(t, bill)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNKNOWN_CUSTOMER", domainErr.Code)
}

func TestStore_RecordPayment_UnknownCustomer(t *testing.T) {
	store, customer := newStoreWithCustomer(t)
	otherTenant := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	// a customer of another tenant must look unknown
	payment, _, err := store.RecordPayment(context.Background(), otherTenant, customer.ID, decimal.NewFromInt(10), "", day("2024-01-01"))

	assert.Nil(t, payment)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNKNOWN_CUSTOMER", domainErr.Code)
}

func TestStore_BalanceOf_NetOfBillsAndPayments(t *testing.T) {
	store, customer := newStoreWithCustomer(t)
	ctx := context.Background()
	tenantID := newTestTenantID()

	_, err := store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(500), "stock", day("2024-01-05"))
	require.NoError(t, err)
	_, err = store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(300), "stock", day("2024-01-10"))
	require.NoError(t, err)
	_, _, err = store.RecordPayment(ctx, tenantID, customer.ID, decimal.NewFromInt(200), "part payment", day("2024-01-12"))
	require.NoError(t, err)

	balance := store.BalanceOf(tenantID, customer.ID)
	assert.True(t, balance.Equal(decimal.NewFromInt(600)))

	// pure derivation: asking twice yields the same value
	assert.True(t, store.BalanceOf(tenantID, customer.ID).Equal(balance))
}

func TestStore_BalanceOf_UnknownCustomerIsZero(t *testing.T) {
	store := NewStore()

	assert.True(t, store.BalanceOf(newTestTenantID(), uuid.New()).IsZero())
}

func TestStore_RecordPayment_FIFOWorkedExample(t *testing.T) {
	store, customer := newStoreWithCustomer(t)
	ctx := context.Background()
	tenantID := newTestTenantID()

	// recorded newer-date first to prove ordering is by bill date
	_, err := store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(100), "", day("2024-01-10"))
	require.NoError(t, err)
	older, err := store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(50), "", day("2024-01-05"))
	require.NoError(t, err)

	_, result, err := store.RecordPayment(ctx, tenantID, customer.ID, decimal.NewFromInt(60), "", day("2024-01-15"))
	require.NoError(t, err)

	assert.True(t, result.Surplus.IsZero())
	assert.Equal(t, []uuid.UUID{older.ID}, result.BillsFullyPaid)

	history, err := store.History(tenantID, customer.ID)
	require.NoError(t, err)
	for _, txn := range history {
		switch {
		case txn.IsBill() && txn.Amount.Equal(decimal.NewFromInt(50)):
			assert.True(t, txn.IsFullyPaid())
		case txn.IsBill() && txn.Amount.Equal(decimal.NewFromInt(100)):
			assert.True(t, txn.PaidAmount.Equal(decimal.NewFromInt(10)))
			assert.False(t, txn.IsFullyPaid())
		}
	}

	updated, err := store.Customer(tenantID, customer.ID)
	require.NoError(t, err)
	assert.True(t, updated.CreditBalance.IsZero())
}

func TestStore_RecordPayment_CreditCarryForward(t *testing.T) {
	store, customer := newStoreWithCustomer(t)
	ctx := context.Background()
	tenantID := newTestTenantID()

	_, result, err := store.RecordPayment(ctx, tenantID, customer.ID, decimal.NewFromInt(200), "advance", day("2024-02-01"))
	require.NoError(t, err)

	assert.True(t, result.Surplus.Equal(decimal.NewFromInt(200)))

	updated, err := store.Customer(tenantID, customer.ID)
	require.NoError(t, err)
	assert.True(t, updated.CreditBalance.Equal(decimal.NewFromInt(200)))
	assert.True(t, store.BalanceOf(tenantID, customer.ID).Equal(decimal.NewFromInt(-200)))
}

func TestStore_RecordBill_ConsumesStandingCredit(t *testing.T) {
	store, customer := newStoreWithCustomer(t)
	ctx := context.Background()
	tenantID := newTestTenantID()

	_, _, err := store.RecordPayment(ctx, tenantID, customer.ID, decimal.NewFromInt(200), "advance", day("2024-02-01"))
	require.NoError(t, err)

	bill, err := store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(150), "supplies", day("2024-02-03"))
	require.NoError(t, err)

	assert.True(t, bill.PaidAmount.Equal(decimal.NewFromInt(150)))
	assert.True(t, bill.IsFullyPaid())

	updated, err := store.Customer(tenantID, customer.ID)
	require.NoError(t, err)
	assert.True(t, updated.CreditBalance.Equal(decimal.NewFromInt(50)))
	assert.True(t, store.BalanceOf(tenantID, customer.ID).Equal(decimal.NewFromInt(-50)))
}

func TestStore_RecordBill_PartialCreditCoverage(t *testing.T) {
	store, customer := newStoreWithCustomer(t)
	ctx := context.Background()
	tenantID := newTestTenantID()

	_, _, err := store.RecordPayment(ctx, tenantID, customer.ID, decimal.NewFromInt(40), "advance", day("2024-02-01"))
	require.NoError(t, err)

	bill, err := store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(100), "", day("2024-02-02"))
	require.NoError(t, err)

	assert.True(t, bill.PaidAmount.Equal(decimal.NewFromInt(40)))
	assert.False(t, bill.IsFullyPaid())

	updated, err := store.Customer(tenantID, customer.ID)
	require.NoError(t, err)
	assert.True(t, updated.CreditBalance.IsZero())
}

func TestStore_RecordPayment_OverpaymentAcrossBills(t *testing.T) {
	store, customer := newStoreWithCustomer(t)
	ctx := context.Background()
	tenantID := newTestTenantID()

	_, err := store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(50), "", day("2024-03-01"))
	require.NoError(t, err)
	_, err = store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(30), "", day("2024-03-02"))
	require.NoError(t, err)

	_, result, err := store.RecordPayment(ctx, tenantID, customer.ID, decimal.NewFromInt(120), "", day("2024-03-05"))
	require.NoError(t, err)

	assert.True(t, result.Surplus.Equal(decimal.NewFromInt(40)))
	assert.Len(t, result.BillsFullyPaid, 2)

	updated, err := store.Customer(tenantID, customer.ID)
	require.NoError(t, err)
	assert.True(t, updated.CreditBalance.Equal(decimal.NewFromInt(40)))
}

func TestStore_TotalReceivables_IgnoresCustomersInCredit(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	tenantID := newTestTenantID()

	debtor, err := store.AddCustomer(ctx, tenantID, "Debtor", "")
	require.NoError(t, err)
	creditor, err := store.AddCustomer(ctx, tenantID, "Creditor", "")
	require.NoError(t, err)

	_, err = store.RecordBill(ctx, tenantID, debtor.ID, decimal.NewFromInt(300), "", day("2024-04-01"))
	require.NoError(t, err)
	_, _, err = store.RecordPayment(ctx, tenantID, creditor.ID, decimal.NewFromInt(500), "", day("2024-04-01"))
	require.NoError(t, err)

	// -500 must not offset the 300 owed
	assert.True(t, store.TotalReceivables(tenantID).Equal(decimal.NewFromInt(300)))
}

func TestStore_History_NewestFirst(t *testing.T) {
	store, customer := newStoreWithCustomer(t)
	ctx := context.Background()
	tenantID := newTestTenantID()

	_, err := store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(10), "oldest", day("2024-01-01"))
	require.NoError(t, err)
	_, err = store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(20), "newest", day("2024-01-20"))
	require.NoError(t, err)
	_, err = store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(30), "middle", day("2024-01-10"))
	require.NoError(t, err)

	history, err := store.History(tenantID, customer.ID)
	require.NoError(t, err)

	require.Len(t, history, 3)
	assert.Equal(t, "newest", history[0].Description)
	assert.Equal(t, "middle", history[1].Description)
	assert.Equal(t, "oldest", history[2].Description)
}

func TestStore_CreditEntries_AuditTrail(t *testing.T) {
	store, customer := newStoreWithCustomer(t)
	ctx := context.Background()
	tenantID := newTestTenantID()

	payment, _, err := store.RecordPayment(ctx, tenantID, customer.ID, decimal.NewFromInt(200), "", day("2024-02-01"))
	require.NoError(t, err)
	bill, err := store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(150), "", day("2024-02-02"))
	require.NoError(t, err)

	entries, err := store.CreditEntries(tenantID, customer.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// newest first: the consume entry precedes the carry-forward
	consume := entries[0]
	assert.Equal(t, CreditEntryTypeConsume, consume.Type)
	assert.True(t, consume.Amount.Equal(decimal.NewFromInt(150)))
	assert.True(t, consume.BalanceBefore.Equal(decimal.NewFromInt(200)))
	assert.True(t, consume.BalanceAfter.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, bill.ID, consume.SourceTransactionID)

	carry := entries[1]
	assert.Equal(t, CreditEntryTypeCarryForward, carry.Type)
	assert.True(t, carry.Amount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, payment.ID, carry.SourceTransactionID)
}

func TestStore_Customers_SearchByNameAndPhone(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	tenantID := newTestTenantID()

	_, err := store.AddCustomer(ctx, tenantID, "Anita Stores", "9811111111")
	require.NoError(t, err)
	_, err = store.AddCustomer(ctx, tenantID, "Bharat Traders", "9822222222")
	require.NoError(t, err)

	assert.Len(t, store.Customers(tenantID, ""), 2)
	assert.Len(t, store.Customers(tenantID, "anita"), 1)
	assert.Len(t, store.Customers(tenantID, "98222"), 1)
	assert.Empty(t, store.Customers(tenantID, "nobody"))
}

func TestStore_Saver_InvokedAfterEachMutation(t *testing.T) {
	var (
		mu    sync.Mutex
		saves []*Snapshot
	)
	store := NewStore(WithSaver(func(_ context.Context, _ uuid.UUID, snap *Snapshot) error {
		mu.Lock()
		defer mu.Unlock()
		saves = append(saves, snap)
		return nil
	}))

	ctx := context.Background()
	tenantID := newTestTenantID()
	customer, err := store.AddCustomer(ctx, tenantID, "Saver", "")
	require.NoError(t, err)
	_, err = store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(10), "", day("2024-01-01"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, saves, 2)
	assert.Len(t, saves[1].Transactions, 1)
	assert.NoError(t, store.PersistenceHealth())
}

func TestStore_Saver_FailureDoesNotFailOperation(t *testing.T) {
	saveErr := errors.New("disk gone")
	store := NewStore(WithSaver(func(context.Context, uuid.UUID, *Snapshot) error {
		return saveErr
	}))

	ctx := context.Background()
	tenantID := newTestTenantID()
	customer, err := store.AddCustomer(ctx, tenantID, "Unlucky", "")
	require.NoError(t, err)

	bill, err := store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(75), "", day("2024-01-01"))
	require.NoError(t, err)
	require.NotNil(t, bill)

	// in-memory state stays authoritative
	assert.True(t, store.BalanceOf(tenantID, customer.ID).Equal(decimal.NewFromInt(75)))
	assert.ErrorIs(t, store.PersistenceHealth(), saveErr)
}

func TestStore_RestoreRoundTrip(t *testing.T) {
	store, customer := newStoreWithCustomer(t)
	ctx := context.Background()
	tenantID := newTestTenantID()

	_, err := store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(100), "", day("2024-01-10"))
	require.NoError(t, err)
	_, err = store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(50), "", day("2024-01-05"))
	require.NoError(t, err)
	_, _, err = store.RecordPayment(ctx, tenantID, customer.ID, decimal.NewFromInt(200), "", day("2024-01-15"))
	require.NoError(t, err)

	restored := NewStore()
	restored.Restore(store.SnapshotFor(tenantID))

	assert.True(t, restored.BalanceOf(tenantID, customer.ID).Equal(store.BalanceOf(tenantID, customer.ID)))

	dup, err := restored.Customer(tenantID, customer.ID)
	require.NoError(t, err)
	assert.True(t, dup.CreditBalance.Equal(decimal.NewFromInt(50)))

	// allocation after restore continues against the same ordering
	bill, err := restored.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(60), "", day("2024-01-20"))
	require.NoError(t, err)
	assert.True(t, bill.PaidAmount.Equal(decimal.NewFromInt(50)))
}

func TestStore_ConcurrentMutationsKeepInvariants(t *testing.T) {
	store, customer := newStoreWithCustomer(t)
	ctx := context.Background()
	tenantID := newTestTenantID()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(10), "", day("2024-05-01"))
		}()
		go func() {
			defer wg.Done()
			_, _, _ = store.RecordPayment(ctx, tenantID, customer.ID, decimal.NewFromInt(10), "", day("2024-05-01"))
		}()
	}
	wg.Wait()

	history, err := store.History(tenantID, customer.ID)
	require.NoError(t, err)
	require.Len(t, history, 40)

	totalBilled := decimal.Zero
	totalPaidOnBills := decimal.Zero
	totalPayments := decimal.Zero
	for _, txn := range history {
		if txn.IsBill() {
			assert.False(t, txn.PaidAmount.IsNegative())
			assert.False(t, txn.PaidAmount.GreaterThan(txn.Amount))
			totalBilled = totalBilled.Add(txn.Amount)
			totalPaidOnBills = totalPaidOnBills.Add(txn.PaidAmount)
		} else {
			totalPayments = totalPayments.Add(txn.Amount)
		}
	}

	updated, err := store.Customer(tenantID, customer.ID)
	require.NoError(t, err)
	assert.False(t, updated.CreditBalance.IsNegative())

	// every rupee of payment is either on a bill or in the credit
	// balance, regardless of interleaving
	assert.True(t, totalPayments.Equal(totalPaidOnBills.Add(updated.CreditBalance)))
	assert.True(t, store.BalanceOf(tenantID, customer.ID).Equal(totalBilled.Sub(totalPayments)))
}

func TestStore_DecimalAdditionStaysExact(t *testing.T) {
	store, customer := newStoreWithCustomer(t)
	ctx := context.Background()
	tenantID := newTestTenantID()

	// 0.1 added a hundred times drifts under binary floats
	for i := 0; i < 100; i++ {
		_, err := store.RecordBill(ctx, tenantID, customer.ID, decimal.RequireFromString("0.1"), "", day("2024-06-01"))
		require.NoError(t, err)
	}

	assert.True(t, store.BalanceOf(tenantID, customer.ID).Equal(decimal.NewFromInt(10)))
}
