/*
reconcile.go - Spend side: reconciliation batches over entry balances

PURPOSE:
  The Reconciler owns the consume side of the ledger. A reconciliation
  request names entries and per-entry minute amounts; creating the batch
  debits every entry in one transaction, so the employee's available balance
  drops immediately while the batch awaits a decision.

LIFECYCLE:
  pending -> approved   (terminal; balances stay spent)
  pending -> rejected   (terminal; every debit is credited back)
  Decisions are guarded: a decided batch cannot be decided again, and its
  allocations can no longer be deleted.

CONSERVATION:
  A batch's total always equals the sum of its live allocations. Any path
  that removes an allocation credits its minutes back to the entry in the
  same transaction and recomputes the batch totals.

SEE ALSO:
  - store.go: DebitEntry's conditional-decrement contract
  - service.go: the earn side
*/
package overtime

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler runs the batch lifecycle on top of a Store.
type Reconciler struct {
	store TxStore
	now   func() time.Time
}

// NewReconciler builds a Reconciler. The clock is injectable for tests.
func NewReconciler(store TxStore) *Reconciler {
	return &Reconciler{store: store, now: time.Now}
}

// WithClock replaces the reconciler's clock. Returns it for chaining.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// CreateRequest names the entries to reconcile and how many minutes to take
// from each. The two slices are parallel.
type CreateRequest struct {
	EmployeeID    EmployeeID
	ReconcileDate time.Time
	EntryIDs      []EntryID
	Minutes       []int
	Notes         string
}

// BatchDetail is a batch together with its live allocations.
type BatchDetail struct {
	Batch       ReconciliationBatch
	Allocations []ReconciliationAllocation
}

// =============================================================================
// CREATE
// =============================================================================

// Create opens a pending batch and debits every named entry atomically.
// Pairs with non-positive minutes are skipped; if nothing usable remains the
// call fails with ErrEmptyBatch and no balance moves. Any single failed
// debit rolls back the whole batch.
func (r *Reconciler) Create(ctx context.Context, req CreateRequest) (BatchDetail, error) {
	if len(req.EntryIDs) == 0 || len(req.EntryIDs) != len(req.Minutes) {
		return BatchDetail{}, fmt.Errorf("%w: %d entries, %d amounts", ErrEmptyBatch, len(req.EntryIDs), len(req.Minutes))
	}

	now := r.now()
	day := req.ReconcileDate
	if day.IsZero() {
		day = now
	}

	batch := ReconciliationBatch{
		ID:            BatchID(fmt.Sprintf("rec-%d", now.UnixNano())),
		EmployeeID:    req.EmployeeID,
		ReconcileDate: day,
		DateStart:     DayStart(day),
		DateFinish:    DayEnd(day),
		Status:        BatchPending,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var allocations []ReconciliationAllocation
	err := r.store.WithTx(ctx, func(st Store) error {
		for i, entryID := range req.EntryIDs {
			minutes := req.Minutes[i]
			if minutes <= 0 {
				continue
			}

			entry, err := st.GetEntry(ctx, entryID)
			if err != nil {
				return err
			}
			if entry.Status == EntryExpired || entry.IsFullyReconciled {
				return fmt.Errorf("entry %s: %w", entryID, ErrEntryExhausted)
			}
			if err := st.DebitEntry(ctx, entryID, minutes, now); err != nil {
				return err
			}

			allocations = append(allocations, ReconciliationAllocation{
				ID:                 AllocationID(fmt.Sprintf("%s-alloc-%d", batch.ID, len(allocations)+1)),
				EmployeeID:         req.EmployeeID,
				EntryID:            entryID,
				BatchID:            batch.ID,
				ReconciliationDate: day,
				MinutesReconciled:  minutes,
				Status:             BatchPending,
				BusinessUnitID:     entry.BusinessUnitID,
				CreatedAt:          now,
				UpdatedAt:          now,
			})
			batch.TotalMinutes += minutes
		}

		if len(allocations) == 0 {
			return ErrEmptyBatch
		}
		batch.TotalHours = HoursCeil(batch.TotalMinutes)

		if err := st.SaveBatch(ctx, batch); err != nil {
			return err
		}
		for _, alloc := range allocations {
			if err := st.SaveAllocation(ctx, alloc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return BatchDetail{}, err
	}
	return BatchDetail{Batch: batch, Allocations: allocations}, nil
}

// =============================================================================
// DECISIONS
// =============================================================================

// Approve finalizes a pending batch. Balances stay spent; the decision is
// stamped on the batch and mirrored onto its allocations.
func (r *Reconciler) Approve(ctx context.Context, batchID BatchID, approvedBy, notes string) (ReconciliationBatch, error) {
	return r.decide(ctx, batchID, BatchApproved, approvedBy, notes, false)
}

// Reject voids a pending batch and credits every allocation's minutes back
// to its entry in the same transaction.
func (r *Reconciler) Reject(ctx context.Context, batchID BatchID, rejectedBy, notes string) (ReconciliationBatch, error) {
	return r.decide(ctx, batchID, BatchRejected, rejectedBy, notes, true)
}

func (r *Reconciler) decide(ctx context.Context, batchID BatchID, target BatchStatus, actor, notes string, creditBack bool) (ReconciliationBatch, error) {
	now := r.now()
	var decided ReconciliationBatch

	err := r.store.WithTx(ctx, func(st Store) error {
		batch, err := st.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.IsDecided() {
			return &StateError{BatchID: batchID, Current: batch.Status, Operation: string(target)}
		}

		allocs, err := st.AllocationsByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		for _, alloc := range allocs {
			if creditBack {
				if err := st.CreditEntry(ctx, alloc.EntryID, alloc.MinutesReconciled, now); err != nil {
					return err
				}
			}
			alloc.Status = target
			alloc.ApprovedBy = actor
			alloc.ApprovedAt = &now
			if notes != "" {
				alloc.Notes = notes
			}
			alloc.UpdatedAt = now
			if err := st.SaveAllocation(ctx, alloc); err != nil {
				return err
			}
		}

		batch.Status = target
		batch.ApprovedBy = actor
		batch.ApprovedAt = &now
		if notes != "" {
			batch.Notes = notes
		}
		batch.UpdatedAt = now
		if err := st.SaveBatch(ctx, batch); err != nil {
			return err
		}
		decided = batch
		return nil
	})
	return decided, err
}

// =============================================================================
// ALLOCATION REMOVAL
// =============================================================================

// DeleteAllocation removes one allocation from a still-pending batch,
// crediting its minutes back and shrinking the batch totals. Removing the
// last allocation deletes the batch as well.
func (r *Reconciler) DeleteAllocation(ctx context.Context, allocationID AllocationID) error {
	now := r.now()

	return r.store.WithTx(ctx, func(st Store) error {
		alloc, err := st.GetAllocation(ctx, allocationID)
		if err != nil {
			return err
		}
		batch, err := st.GetBatch(ctx, alloc.BatchID)
		if err != nil {
			return err
		}
		if batch.IsDecided() {
			return &StateError{BatchID: batch.ID, Current: batch.Status, Operation: "delete allocation"}
		}

		if err := st.CreditEntry(ctx, alloc.EntryID, alloc.MinutesReconciled, now); err != nil {
			return err
		}
		if err := st.SoftDeleteAllocation(ctx, allocationID, now); err != nil {
			return err
		}

		batch.TotalMinutes -= alloc.MinutesReconciled
		batch.TotalHours = HoursCeil(batch.TotalMinutes)
		batch.UpdatedAt = now
		if batch.TotalMinutes <= 0 {
			batch.DeletedAt = &now
		}
		return st.SaveBatch(ctx, batch)
	})
}

// =============================================================================
// QUERIES
// =============================================================================

// GetBatch returns a batch with its live allocations.
func (r *Reconciler) GetBatch(ctx context.Context, batchID BatchID) (BatchDetail, error) {
	batch, err := r.store.GetBatch(ctx, batchID)
	if err != nil {
		return BatchDetail{}, err
	}
	allocs, err := r.store.AllocationsByBatch(ctx, batchID)
	if err != nil {
		return BatchDetail{}, err
	}
	return BatchDetail{Batch: batch, Allocations: allocs}, nil
}

// ListBatches returns an employee's batches, newest first, each with its
// allocations.
func (r *Reconciler) ListBatches(ctx context.Context, employeeID EmployeeID) ([]BatchDetail, error) {
	batches, err := r.store.BatchesByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	details := make([]BatchDetail, 0, len(batches))
	for _, batch := range batches {
		allocs, err := r.store.AllocationsByBatch(ctx, batch.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, BatchDetail{Batch: batch, Allocations: allocs})
	}
	return details, nil
}

// IsConservationIntact verifies that a batch's stored total equals the sum
// of its live allocations. Used by tests and the consistency check endpoint.
func (r *Reconciler) IsConservationIntact(ctx context.Context, batchID BatchID) (bool, error) {
	detail, err := r.GetBatch(ctx, batchID)
	if err != nil {
		return false, err
	}
	sum := 0
	for _, a := range detail.Allocations {
		sum += a.MinutesReconciled
	}
	return sum == detail.Batch.TotalMinutes, nil
}
