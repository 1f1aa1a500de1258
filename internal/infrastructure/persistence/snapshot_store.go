package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/khata/backend/internal/domain/ledger"
	"github.com/khata/backend/internal/infrastructure/persistence/models"
)

// GormSnapshotStore persists ledger snapshots through GORM. Load reads
// the full state of every tenant at startup; Save replaces one tenant's
// rows inside a single database transaction so a crash mid-write never
// leaves a tenant half persisted.
type GormSnapshotStore struct {
	db *gorm.DB
}

var _ ledger.SnapshotStore = (*GormSnapshotStore)(nil)

// NewGormSnapshotStore creates a new GormSnapshotStore
func NewGormSnapshotStore(db *gorm.DB) *GormSnapshotStore {
	return &GormSnapshotStore{db: db}
}

// Migrate creates the ledger tables when they do not exist yet.
// Production deployments run SQL migrations instead; this covers the
// sqlite development path.
func (s *GormSnapshotStore) Migrate() error {
	return s.db.AutoMigrate(
		&models.CustomerModel{},
		&models.TransactionModel{},
		&models.CreditEntryModel{},
	)
}

// Load reads the complete persisted state across all tenants.
// Transactions are returned in insertion-sequence order so the store
// can rebuild its per-customer indexes deterministically.
func (s *GormSnapshotStore) Load(ctx context.Context) (*ledger.Snapshot, error) {
	snap := &ledger.Snapshot{}

	var customerModels []models.CustomerModel
	if err := s.db.WithContext(ctx).Find(&customerModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	for i := range customerModels {
		snap.Customers = append(snap.Customers, customerModels[i].ToDomain())
	}

	var transactionModels []models.TransactionModel
	if err := s.db.WithContext(ctx).Order("seq asc").Find(&transactionModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	for i := range transactionModels {
		snap.Transactions = append(snap.Transactions, transactionModels[i].ToDomain())
	}

	var creditEntryModels []models.CreditEntryModel
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&creditEntryModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load credit entries: %w", err)
	}
	for i := range creditEntryModels {
		snap.CreditEntries = append(snap.CreditEntries, creditEntryModels[i].ToDomain())
	}

	return snap, nil
}

// Save replaces the given tenant's rows with the snapshot contents.
// Delete and reinsert in one transaction keeps the persisted state an
// exact copy of the in-memory state without tracking row-level diffs.
func (s *GormSnapshotStore) Save(ctx context.Context, tenantID uuid.UUID, snap *ledger.Snapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", tenantID).Delete(&models.CustomerModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear customers: %w", err)
		}
		if err := tx.Where("tenant_id = ?", tenantID).Delete(&models.TransactionModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear transactions: %w", err)
		}
		if err := tx.Where("tenant_id = ?", tenantID).Delete(&models.CreditEntryModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear credit entries: %w", err)
		}

		if len(snap.Customers) > 0 {
			customerModels := make([]*models.CustomerModel, len(snap.Customers))
			for i, c := range snap.Customers {
				customerModels[i] = models.CustomerModelFromDomain(c)
			}
			if err := tx.Create(customerModels).Error; err != nil {
				return fmt.Errorf("failed to save customers: %w", err)
			}
		}

		if len(snap.Transactions) > 0 {
			transactionModels := make([]*models.TransactionModel, len(snap.Transactions))
			for i, t := range snap.Transactions {
				transactionModels[i] = models.TransactionModelFromDomain(t)
			}
			if err := tx.Create(transactionModels).Error; err != nil {
				return fmt.Errorf("failed to save transactions: %w", err)
			}
		}

		if len(snap.CreditEntries) > 0 {
			creditEntryModels := make([]*models.CreditEntryModel, len(snap.CreditEntries))
			for i, e := range snap.CreditEntries {
				creditEntryModels[i] = models.CreditEntryModelFromDomain(e)
			}
			if err := tx.Create(creditEntryModels).Error; err != nil {
				return fmt.Errorf("failed to save credit entries: %w", err)
			}
		}

		return nil
	})
}
