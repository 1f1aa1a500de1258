package identity

import (
	"context"

	"github.com/google/uuid"
)

// MerchantRepository defines persistence operations for merchants
type MerchantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Merchant, error)
	FindByUsername(ctx context.Context, username string) (*Merchant, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Save(ctx context.Context, merchant *Merchant) error
}
