package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/khata/backend/internal/domain/ledger"
)

func setupSnapshotTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func newSnapshotStore(t *testing.T) *GormSnapshotStore {
	store := NewGormSnapshotStore(setupSnapshotTestDB(t))
	require.NoError(t, store.Migrate())
	return store
}

// buildLedgerState records a bill and a payment through the domain
// store and returns the tenant snapshot plus the engine it came from.
func buildLedgerState(t *testing.T, tenantID uuid.UUID) (*ledger.Store, *ledger.Snapshot) {
	engine := ledger.NewStore()
	ctx := context.Background()

	customer, err := engine.AddCustomer(ctx, tenantID, "Asha Traders", "0171000001")
	require.NoError(t, err)

	_, err = engine.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(150), "cement", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	_, _, err = engine.RecordPayment(ctx, tenantID, customer.ID, decimal.NewFromInt(200), "cash", time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	return engine, engine.SnapshotFor(tenantID)
}

func TestGormSnapshotStore_SaveAndLoadRoundTrip(t *testing.T) {
	store := newSnapshotStore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	engine, snap := buildLedgerState(t, tenantID)
	require.NoError(t, store.Save(ctx, tenantID, snap))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	require.Len(t, loaded.Customers, 1)
	require.Len(t, loaded.Transactions, 2)
	require.Len(t, loaded.CreditEntries, 1)

	customer := loaded.Customers[0]
	assert.Equal(t, "Asha Traders", customer.Name)
	assert.True(t, customer.CreditBalance.Equal(decimal.NewFromInt(50)),
		"credit balance should survive the round trip, got %s", customer.CreditBalance)

	// A restored engine must report the same balance as the original
	restored := ledger.NewStore()
	restored.Restore(loaded)
	assert.True(t, restored.BalanceOf(tenantID, customer.ID).Equal(engine.BalanceOf(tenantID, customer.ID)))
}

func TestGormSnapshotStore_SaveReplacesTenantRows(t *testing.T) {
	store := newSnapshotStore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, snap := buildLedgerState(t, tenantID)
	require.NoError(t, store.Save(ctx, tenantID, snap))
	// Saving the same snapshot twice must not duplicate rows
	require.NoError(t, store.Save(ctx, tenantID, snap))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Customers, 1)
	assert.Len(t, loaded.Transactions, 2)
	assert.Len(t, loaded.CreditEntries, 1)
}

func TestGormSnapshotStore_SaveIsTenantScoped(t *testing.T) {
	store := newSnapshotStore(t)
	ctx := context.Background()
	tenantA := uuid.New()
	tenantB := uuid.New()

	_, snapA := buildLedgerState(t, tenantA)
	_, snapB := buildLedgerState(t, tenantB)
	require.NoError(t, store.Save(ctx, tenantA, snapA))
	require.NoError(t, store.Save(ctx, tenantB, snapB))

	// Rewriting tenant A must leave tenant B untouched
	require.NoError(t, store.Save(ctx, tenantA, snapA))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Customers, 2)
	assert.Len(t, loaded.Transactions, 4)
}

func TestGormSnapshotStore_LoadEmptyDatabase(t *testing.T) {
	store := newSnapshotStore(t)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded.Customers)
	assert.Empty(t, loaded.Transactions)
	assert.Empty(t, loaded.CreditEntries)
}

func TestGormSnapshotStore_TransactionsLoadInSeqOrder(t *testing.T) {
	store := newSnapshotStore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	engine := ledger.NewStore()
	customer, err := engine.AddCustomer(ctx, tenantID, "Karim Stores", "")
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		_, err = engine.RecordBill(ctx, tenantID, customer.ID, decimal.NewFromInt(int64(i*10)), "", time.Date(2026, 8, i, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	}
	require.NoError(t, store.Save(ctx, tenantID, engine.SnapshotFor(tenantID)))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Transactions, 5)
	for i := 1; i < len(loaded.Transactions); i++ {
		assert.Greater(t, loaded.Transactions[i].Seq, loaded.Transactions[i-1].Seq)
	}
}
