/*
store.go - Persistence interface for shifts, entries, batches, allocations

PURPOSE:
  Defines the interface between the domain logic and the database. Different
  implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  ShiftStore: Read/write access to work shifts
  EntryStore: Entry persistence, balance debits/credits, expiry sweep
  BatchStore: Reconciliation batch and allocation persistence
  Store:      The composed interface services depend on
  TxStore:    Transactional operations (atomic multi-table writes)

CONDITIONAL DEBIT CONTRACT:
  DebitEntry is the single write that spends balance, and it is conditional:
  the implementation must decrement remaining minutes only when the entry
  still holds at least the requested amount, atomically, and return
  ErrOverAllocated otherwise. Two concurrent batches can never overspend an
  entry regardless of interleaving.

SOFT DELETES:
  Entries, batches, and allocations are soft-deleted. Every read filters
  deleted records; reversal credits happen before the delete mark.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - overtime/store/memory.go: In-memory for testing

SEE ALSO:
  - service.go: Accrual-side consumer
  - reconcile.go: Spend-side consumer
*/
package overtime

import (
	"context"
	"time"
)

// =============================================================================
// SHIFT STORE
// =============================================================================

// ShiftStore provides access to the scheduling records that drive accrual.
type ShiftStore interface {
	// GetShift returns the shift or ErrShiftNotFound.
	GetShift(ctx context.Context, id ShiftID) (WorkShift, error)

	// SaveShift inserts or replaces a shift.
	SaveShift(ctx context.Context, shift WorkShift) error

	// CompletedShifts returns an employee's completed shifts starting in
	// [from, to], ordered by start time.
	CompletedShifts(ctx context.Context, employeeID EmployeeID, from, to time.Time) ([]WorkShift, error)
}

// =============================================================================
// ENTRY STORE
// =============================================================================

// EntryStore persists extra-hour entries and owns every balance mutation.
type EntryStore interface {
	// SaveEntries inserts entries. Fails if any entry ID already exists.
	SaveEntries(ctx context.Context, entries []ExtraHourEntry) error

	// GetEntry returns the entry or ErrEntryNotFound. Soft-deleted entries
	// are not found.
	GetEntry(ctx context.Context, id EntryID) (ExtraHourEntry, error)

	// EntriesByShift returns the live entries derived from a shift.
	EntriesByShift(ctx context.Context, shiftID ShiftID) ([]ExtraHourEntry, error)

	// AvailableEntries returns an employee's entries that still hold balance
	// and have not expired by today, oldest date first.
	AvailableEntries(ctx context.Context, employeeID EmployeeID, today time.Time) ([]ExtraHourEntry, error)

	// EntriesInRange returns an employee's live entries dated in [from, to].
	EntriesInRange(ctx context.Context, employeeID EmployeeID, from, to time.Time) ([]ExtraHourEntry, error)

	// DebitEntry conditionally spends minutes from an entry. Returns
	// ErrOverAllocated (without spending anything) when the entry holds
	// fewer minutes, is fully reconciled, or is expired.
	DebitEntry(ctx context.Context, id EntryID, minutes int, now time.Time) error

	// CreditEntry restores minutes to a non-expired entry, capped at the
	// entry's total, recomputing its status.
	CreditEntry(ctx context.Context, id EntryID, minutes int, now time.Time) error

	// DeleteEntriesByShift soft-deletes every entry derived from a shift.
	// Used by recomputation; entries with spent balance are left alone and
	// reported in the skipped list.
	DeleteEntriesByShift(ctx context.Context, shiftID ShiftID, now time.Time) (deleted []EntryID, skipped []EntryID, err error)

	// ExpireEntries marks every entry whose expiry date is before cutoff and
	// is not already terminal, freezing balances. Returns the number swept.
	ExpireEntries(ctx context.Context, cutoff time.Time, now time.Time) (int64, error)
}

// =============================================================================
// BATCH STORE
// =============================================================================

// BatchStore persists reconciliation batches and their allocations.
type BatchStore interface {
	// SaveBatch inserts or replaces a batch.
	SaveBatch(ctx context.Context, batch ReconciliationBatch) error

	// GetBatch returns the batch or ErrBatchNotFound.
	GetBatch(ctx context.Context, id BatchID) (ReconciliationBatch, error)

	// BatchesByEmployee returns an employee's live batches, newest first.
	BatchesByEmployee(ctx context.Context, employeeID EmployeeID) ([]ReconciliationBatch, error)

	// SaveAllocation inserts or replaces an allocation.
	SaveAllocation(ctx context.Context, alloc ReconciliationAllocation) error

	// GetAllocation returns the allocation or ErrAllocationNotFound.
	GetAllocation(ctx context.Context, id AllocationID) (ReconciliationAllocation, error)

	// AllocationsByBatch returns a batch's live allocations in creation order.
	AllocationsByBatch(ctx context.Context, batchID BatchID) ([]ReconciliationAllocation, error)

	// AllocationsByEntry returns the live allocations that debited an entry,
	// oldest first. Rejected allocations are included; their minutes were
	// credited back.
	AllocationsByEntry(ctx context.Context, entryID EntryID) ([]ReconciliationAllocation, error)

	// SoftDeleteAllocation marks an allocation deleted.
	SoftDeleteAllocation(ctx context.Context, id AllocationID, now time.Time) error
}

// =============================================================================
// COMPOSED STORE
// =============================================================================

// Store is the full persistence surface the services depend on.
type Store interface {
	ShiftStore
	EntryStore
	BatchStore
}

// TxStore wraps Store with transaction support.
// Use this when a unit of work spans tables (e.g., creating a batch and
// debiting its entries).
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
