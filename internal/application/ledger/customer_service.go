package ledger

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khata/backend/internal/domain/ledger"
)

// CustomerService manages the tenant's customer roster and the
// balance-annotated views the customer list screen needs
type CustomerService struct {
	store *ledger.Store
	log   *zap.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(store *ledger.Store, log *zap.Logger) *CustomerService {
	return &CustomerService{
		store: store,
		log:   log,
	}
}

// Create adds a customer to the tenant's roster
func (s *CustomerService) Create(ctx context.Context, tenantID uuid.UUID, req CreateCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.store.AddCustomer(ctx, tenantID, req.Name, req.Phone)
	if err != nil {
		return nil, err
	}

	s.log.Info("Customer created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customer.ID.String()),
	)

	resp := ToCustomerResponse(customer, s.store.BalanceOf(tenantID, customer.ID))
	return &resp, nil
}

// Get returns one customer with its derived balance
func (s *CustomerService) Get(tenantID, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.store.Customer(tenantID, customerID)
	if err != nil {
		return nil, err
	}

	resp := ToCustomerResponse(customer, s.store.BalanceOf(tenantID, customerID))
	return &resp, nil
}

// List returns the tenant's customers with balances, ordered by name
// and optionally filtered by a search term on name or phone
func (s *CustomerService) List(tenantID uuid.UUID, search string) []CustomerResponse {
	customers := s.store.Customers(tenantID, search)
	result := make([]CustomerResponse, len(customers))
	for i, c := range customers {
		result[i] = ToCustomerResponse(c, s.store.BalanceOf(tenantID, c.ID))
	}
	return result
}
