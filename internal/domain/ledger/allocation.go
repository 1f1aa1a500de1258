package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation records how much of one payment went to one bill
type Allocation struct {
	BillID uuid.UUID
	Amount decimal.Decimal
}

// AllocationResult summarizes one FIFO allocation pass
type AllocationResult struct {
	Allocations        []Allocation
	TotalAllocated     decimal.Decimal
	Surplus            decimal.Decimal
	BillsFullyPaid     []uuid.UUID
	BillsPartiallyPaid []uuid.UUID
}

// allocateFIFO walks the customer's open bills oldest date first and
// applies the payment until it runs out, mutating each bill's
// PaidAmount in place. Whatever is left over is returned as Surplus
// for the caller to carry forward as credit.
//
// The input slice must be in insertion order. The sort is stable and
// keyed on date alone, so bills sharing a date are settled in the
// order they were recorded. Allocation order therefore depends only
// on bill dates and insertion order, never on when the allocation
// runs, which keeps a replay from the transaction log deterministic.
func allocateFIFO(bills []*Transaction, payment decimal.Decimal) AllocationResult {
	ordered := make([]*Transaction, len(bills))
	copy(ordered, bills)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	result := AllocationResult{
		TotalAllocated: decimal.Zero,
		Surplus:        decimal.Zero,
	}

	remaining := payment
	for _, bill := range ordered {
		if !remaining.IsPositive() {
			break
		}
		due := bill.Outstanding()
		if !due.IsPositive() {
			continue
		}

		toApply := decimal.Min(due, remaining)
		bill.applyAllocation(toApply)
		remaining = remaining.Sub(toApply)

		result.Allocations = append(result.Allocations, Allocation{
			BillID: bill.ID,
			Amount: toApply,
		})
		result.TotalAllocated = result.TotalAllocated.Add(toApply)
		if bill.IsFullyPaid() {
			result.BillsFullyPaid = append(result.BillsFullyPaid, bill.ID)
		} else {
			result.BillsPartiallyPaid = append(result.BillsPartiallyPaid, bill.ID)
		}
	}

	result.Surplus = remaining
	return result
}
