/*
errors.go - Centralized error types for the overtime engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Store implementations and the API layer wrap these with added context.

ERROR CATEGORIES:
  1. Lookup errors - Referenced records that don't exist
  2. Ledger errors - Reconciliation balance violations
  3. State errors - Operations attempted in the wrong lifecycle state

USAGE:
  Callers branch with errors.Is:

    if errors.Is(err, overtime.ErrOverAllocated) {
        // surface as 422, nothing was debited
    }

SEE ALSO:
  - reconcile.go: Raises allocation and state errors
  - store.go: Raises lookup errors
*/
package overtime

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrShiftNotFound is returned when a referenced work shift doesn't exist.
	ErrShiftNotFound = errors.New("work shift not found")

	// ErrEntryNotFound is returned when a referenced extra-hour entry doesn't exist.
	ErrEntryNotFound = errors.New("extra hour entry not found")

	// ErrBatchNotFound is returned when a referenced reconciliation batch doesn't exist.
	ErrBatchNotFound = errors.New("reconciliation batch not found")

	// ErrAllocationNotFound is returned when a referenced allocation doesn't exist.
	ErrAllocationNotFound = errors.New("allocation not found")

	// ErrOverAllocated is returned when an allocation would debit more minutes
	// than an entry has remaining. The debit is conditional, so nothing is
	// spent when this fires.
	ErrOverAllocated = errors.New("allocation exceeds remaining minutes")

	// ErrEntryExhausted is returned when an allocation targets an entry that is
	// already fully reconciled or expired.
	ErrEntryExhausted = errors.New("entry has no reconcilable minutes")

	// ErrEmptyBatch is returned when a reconciliation request carries no usable
	// allocations.
	ErrEmptyBatch = errors.New("reconciliation batch has no allocations")

	// ErrBatchDecided is returned when approving or rejecting a batch that has
	// already been decided. Decisions are terminal.
	ErrBatchDecided = errors.New("reconciliation batch already decided")

	// ErrBatchNotPending is returned when mutating allocations of a batch that
	// is no longer pending.
	ErrBatchNotPending = errors.New("reconciliation batch is not pending")

	// ErrShiftNotCompleted is returned when extra hours are computed for a
	// shift that hasn't been worked yet.
	ErrShiftNotCompleted = errors.New("work shift is not completed")

	// ErrInvalidInterval is returned when an interval is malformed (end not
	// after start).
	ErrInvalidInterval = errors.New("invalid interval: end not after start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OverAllocationError reports a debit that would overdraw an entry.
type OverAllocationError struct {
	EntryID   EntryID
	Remaining int
	Requested int
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("entry %s: %d minutes remaining, %d requested",
		e.EntryID, e.Remaining, e.Requested)
}

func (e *OverAllocationError) Unwrap() error {
	return ErrOverAllocated
}

// StateError reports an operation attempted against a batch in the wrong
// lifecycle state.
type StateError struct {
	BatchID   BatchID
	Current   BatchStatus
	Operation string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("batch %s: cannot %s while %s", e.BatchID, e.Operation, e.Current)
}

func (e *StateError) Unwrap() error {
	if e.Current == BatchPending {
		return ErrBatchNotPending
	}
	return ErrBatchDecided
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrShiftNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrBatchNotFound) ||
		errors.Is(err, ErrAllocationNotFound)
}

// IsClientError returns true if the error is due to invalid client input
// rather than a server fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrOverAllocated) ||
		errors.Is(err, ErrEntryExhausted) ||
		errors.Is(err, ErrEmptyBatch) ||
		errors.Is(err, ErrBatchDecided) ||
		errors.Is(err, ErrBatchNotPending) ||
		errors.Is(err, ErrShiftNotCompleted) ||
		errors.Is(err, ErrInvalidInterval)
}
