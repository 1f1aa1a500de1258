package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/khata/backend/internal/domain/shared"
)

// Store owns the authoritative customer and transaction sets. It
// exposes business-rule-only mutators; there is no free-form CRUD on
// transactions.
//
// Locking: every mutation for one customer runs under that customer's
// exclusive lock, so two concurrent RecordBill/RecordPayment calls for
// the same customer cannot interleave their read-modify-write of the
// credit balance or bill paid amounts. Map access on top of that is
// guarded by a store-wide RWMutex, which also gives readers a
// consistent snapshot: a half-applied allocation is never visible.
// Operations on different customers proceed in parallel.
type Store struct {
	mu                sync.RWMutex
	customers         map[uuid.UUID]*Customer
	transactions      map[uuid.UUID]*Transaction
	byCustomer        map[uuid.UUID][]*Transaction
	creditsByCustomer map[uuid.UUID][]*CreditEntry
	seq               uint64

	lockMu sync.Mutex
	locks  map[uuid.UUID]*sync.Mutex

	saveFn SaveFunc

	saveMu  sync.Mutex
	saveErr error
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithSaver sets the snapshot persistence callback. The store invokes
// it after every mutating operation, while the mutated customer's
// lock is still held, so saves for one customer are ordered. A save
// error is recorded for PersistenceHealth and does not fail the
// operation.
func WithSaver(fn SaveFunc) StoreOption {
	return func(s *Store) {
		s.saveFn = fn
	}
}

// NewStore creates an empty ledger store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		customers:         make(map[uuid.UUID]*Customer),
		transactions:      make(map[uuid.UUID]*Transaction),
		byCustomer:        make(map[uuid.UUID][]*Transaction),
		creditsByCustomer: make(map[uuid.UUID][]*CreditEntry),
		locks:             make(map[uuid.UUID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads a previously persisted snapshot. Meant to run once at
// startup, before the store starts serving requests.
func (s *Store) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range snap.Customers {
		s.customers[c.ID] = c.clone()
	}

	ordered := make([]*Transaction, len(snap.Transactions))
	copy(ordered, snap.Transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Seq < ordered[j].Seq
	})
	for _, t := range ordered {
		dup := t.clone()
		s.transactions[dup.ID] = dup
		s.byCustomer[dup.CustomerID] = append(s.byCustomer[dup.CustomerID], dup)
		if dup.Seq >= s.seq {
			s.seq = dup.Seq + 1
		}
	}

	for _, e := range snap.CreditEntries {
		dup := e.clone()
		s.creditsByCustomer[dup.CustomerID] = append(s.creditsByCustomer[dup.CustomerID], dup)
	}
}

// AddCustomer creates a customer for the tenant
func (s *Store) AddCustomer(ctx context.Context, tenantID uuid.UUID, name, phone string) (*Customer, error) {
	customer, err := NewCustomer(tenantID, name, phone)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.customers[customer.ID] = customer
	snap := s.snapshotForLocked(tenantID)
	created := customer.clone()
	s.mu.Unlock()

	s.persist(ctx, tenantID, snap)
	return created, nil
}

// Customer returns one customer of the tenant
func (s *Store) Customer(tenantID, customerID uuid.UUID) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[customerID]
	if !ok || customer.TenantID != tenantID {
		return nil, shared.ErrUnknownCustomer
	}
	return customer.clone(), nil
}

// Customers lists the tenant's customers, optionally filtered by a
// case-insensitive match on name or phone, ordered by name.
func (s *Store) Customers(tenantID uuid.UUID, search string) []*Customer {
	search = strings.ToLower(strings.TrimSpace(search))

	s.mu.RLock()
	result := make([]*Customer, 0)
	for _, c := range s.customers {
		if c.TenantID != tenantID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(c.Phone, search) {
			continue
		}
		result = append(result, c.clone())
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result
}

// RecordBill inserts a BILL transaction. Standing credit is consumed
// first: the bill starts with PaidAmount equal to
// min(amount, creditBalance) and the customer's credit balance drops
// by the same figure, atomically under the customer lock. Total money
// in the system is unaffected; credit consumption only reclassifies
// existing surplus.
//
// Validation is fail-fast: an invalid amount or unknown customer
// rejects the call before any state changes.
func (s *Store) RecordBill(ctx context.Context, tenantID, customerID uuid.UUID, amount decimal.Decimal, description string, date time.Time) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}

	lock := s.customerLock(customerID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	customer, ok := s.customers[customerID]
	if !ok || customer.TenantID != tenantID {
		s.mu.Unlock()
		return nil, shared.ErrUnknownCustomer
	}

	balanceBefore := customer.CreditBalance
	creditApplied := customer.consumeCredit(amount)

	bill := newBill(tenantID, customerID, amount, description, date, creditApplied)
	s.insertLocked(bill)

	if creditApplied.IsPositive() {
		entry := newCreditEntry(customer, CreditEntryTypeConsume, creditApplied, balanceBefore, bill.ID)
		s.creditsByCustomer[customerID] = append(s.creditsByCustomer[customerID], entry)
	}

	snap := s.snapshotForLocked(tenantID)
	created := bill.clone()
	s.mu.Unlock()

	s.persist(ctx, tenantID, snap)
	return created, nil
}

// RecordPayment inserts a PAYMENT transaction, always in full, then
// allocates it across the customer's open bills oldest first.
// Surplus beyond all dues is carried forward as credit. Allocation
// never fails once validation passed; it only redistributes
// already-recorded money.
func (s *Store) RecordPayment(ctx context.Context, tenantID, customerID uuid.UUID, amount decimal.Decimal, description string, date time.Time) (*Transaction, AllocationResult, error) {
	if !amount.IsPositive() {
		return nil, AllocationResult{}, shared.ErrInvalidAmount
	}

	lock := s.customerLock(customerID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	customer, ok := s.customers[customerID]
	if !ok || customer.TenantID != tenantID {
		s.mu.Unlock()
		return nil, AllocationResult{}, shared.ErrUnknownCustomer
	}

	payment := newPayment(tenantID, customerID, amount, description, date)
	s.insertLocked(payment)

	open := make([]*Transaction, 0)
	for _, t := range s.byCustomer[customerID] {
		if t.IsBill() && !t.IsFullyPaid() {
			open = append(open, t)
		}
	}

	result := allocateFIFO(open, amount)

	if result.Surplus.IsPositive() {
		balanceBefore := customer.CreditBalance
		customer.addCredit(result.Surplus)
		entry := newCreditEntry(customer, CreditEntryTypeCarryForward, result.Surplus, balanceBefore, payment.ID)
		s.creditsByCustomer[customerID] = append(s.creditsByCustomer[customerID], entry)
	}

	snap := s.snapshotForLocked(tenantID)
	created := payment.clone()
	s.mu.Unlock()

	s.persist(ctx, tenantID, snap)
	return created, result, nil
}

// BalanceOf derives the customer's net balance from the transaction
// set: total billed minus total paid. Positive means the customer
// owes, negative means they have paid in excess. Pure and read-only;
// an unknown customer folds the empty set and yields zero. The
// per-bill PaidAmount and the credit balance never enter this
// formula.
func (s *Store) BalanceOf(tenantID, customerID uuid.UUID) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceLocked(tenantID, customerID)
}

// TotalReceivables sums max(balance, 0) across the tenant's
// customers. Customers in credit do not offset customers in debt.
func (s *Store) TotalReceivables(tenantID uuid.UUID) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for id, c := range s.customers {
		if c.TenantID != tenantID {
			continue
		}
		if balance := s.balanceLocked(tenantID, id); balance.IsPositive() {
			total = total.Add(balance)
		}
	}
	return total
}

// TenantIDs returns the distinct tenant IDs that currently have at
// least one customer in the store.
func (s *Store) TenantIDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, c := range s.customers {
		if _, ok := seen[c.TenantID]; ok {
			continue
		}
		seen[c.TenantID] = struct{}{}
		ids = append(ids, c.TenantID)
	}
	return ids
}

// History returns the customer's transactions newest first. This is
// the display order, deliberately the opposite of the oldest-first
// order allocation walks internally.
func (s *Store) History(tenantID, customerID uuid.UUID) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[customerID]
	if !ok || customer.TenantID != tenantID {
		return nil, shared.ErrUnknownCustomer
	}

	entries := s.byCustomer[customerID]
	result := make([]*Transaction, 0, len(entries))
	// walk insertion order backwards so same-date entries come out
	// latest-recorded first after the stable sort
	for i := len(entries) - 1; i >= 0; i-- {
		result = append(result, entries[i].clone())
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	return result, nil
}

// CreditEntries returns the customer's credit audit trail newest
// first
func (s *Store) CreditEntries(tenantID, customerID uuid.UUID) ([]*CreditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[customerID]
	if !ok || customer.TenantID != tenantID {
		return nil, shared.ErrUnknownCustomer
	}

	entries := s.creditsByCustomer[customerID]
	result := make([]*CreditEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		result = append(result, entries[i].clone())
	}
	return result, nil
}

// SnapshotFor returns a deep copy of the tenant's full state
func (s *Store) SnapshotFor(tenantID uuid.UUID) *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotForLocked(tenantID)
}

// PersistenceHealth returns the error from the most recent snapshot
// save, or nil when the last save succeeded. A failing save leaves
// the in-memory ledger authoritative.
func (s *Store) PersistenceHealth() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.saveErr
}

func (s *Store) balanceLocked(tenantID, customerID uuid.UUID) decimal.Decimal {
	balance := decimal.Zero
	for _, t := range s.byCustomer[customerID] {
		if t.TenantID != tenantID {
			continue
		}
		if t.IsBill() {
			balance = balance.Add(t.Amount)
		} else {
			balance = balance.Sub(t.Amount)
		}
	}
	return balance
}

// insertLocked assigns the insertion sequence and indexes the
// transaction. Caller holds mu.
func (s *Store) insertLocked(t *Transaction) {
	t.Seq = s.seq
	s.seq++
	s.transactions[t.ID] = t
	s.byCustomer[t.CustomerID] = append(s.byCustomer[t.CustomerID], t)
}

// snapshotForLocked deep-copies the tenant's state. Caller holds mu.
func (s *Store) snapshotForLocked(tenantID uuid.UUID) *Snapshot {
	snap := &Snapshot{}
	for _, c := range s.customers {
		if c.TenantID == tenantID {
			snap.Customers = append(snap.Customers, c.clone())
		}
	}
	for _, t := range s.transactions {
		if t.TenantID == tenantID {
			snap.Transactions = append(snap.Transactions, t.clone())
		}
	}
	sort.SliceStable(snap.Transactions, func(i, j int) bool {
		return snap.Transactions[i].Seq < snap.Transactions[j].Seq
	})
	for _, entries := range s.creditsByCustomer {
		for _, e := range entries {
			if e.TenantID == tenantID {
				snap.CreditEntries = append(snap.CreditEntries, e.clone())
			}
		}
	}
	return snap
}

func (s *Store) customerLock(customerID uuid.UUID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[customerID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[customerID] = lock
	}
	return lock
}

func (s *Store) persist(ctx context.Context, tenantID uuid.UUID, snap *Snapshot) {
	if s.saveFn == nil {
		return
	}
	err := s.saveFn(ctx, tenantID, snap)
	s.saveMu.Lock()
	s.saveErr = err
	s.saveMu.Unlock()
}
