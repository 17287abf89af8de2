package overtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/overtime/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type reconcileFixture struct {
	store      *store.TxMemory
	reconciler *overtime.Reconciler
	service    *overtime.Service
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	mem := store.NewTxMemory()
	// Batch and allocation IDs derive from the clock, so it must advance.
	tick := clock
	now := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return &reconcileFixture{
		store:      mem,
		reconciler: overtime.NewReconciler(mem).WithClock(now),
		service:    overtime.NewService(mem, overtime.DefaultConfig()).WithClock(now),
	}
}

// seedEntry persists an available entry with the given balance.
func (f *reconcileFixture) seedEntry(t *testing.T, id overtime.EntryID, minutes int) {
	t.Helper()
	err := f.store.SaveEntries(context.Background(), []overtime.ExtraHourEntry{{
		ID:               id,
		EmployeeID:       "emp-1",
		SegmentNumber:    1,
		Date:             monday,
		StartTime:        at(monday, 16, 0),
		EndTime:          at(monday, 16, 0).Add(time.Duration(minutes) * time.Minute),
		TotalMinutes:     minutes,
		RemainingMinutes: minutes,
		Status:           overtime.EntryAvailable,
		ExpiryDate:       monday.AddDate(0, 0, 90),
		CreatedAt:        clock,
		UpdatedAt:        clock,
	}})
	require.NoError(t, err)
}

func (f *reconcileFixture) entry(t *testing.T, id overtime.EntryID) overtime.ExtraHourEntry {
	t.Helper()
	entry, err := f.store.GetEntry(context.Background(), id)
	require.NoError(t, err)
	return entry
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestReconcile_CreateDebitsEntries(t *testing.T) {
	// GIVEN: A 120-minute entry
	// WHEN: Creating a batch taking 50 minutes
	// THEN: The batch is pending and the entry is partially reconciled

	f := newReconcileFixture(t)
	f.seedEntry(t, "ent-a", 120)

	detail, err := f.reconciler.Create(context.Background(), overtime.CreateRequest{
		EmployeeID:    "emp-1",
		ReconcileDate: monday,
		EntryIDs:      []overtime.EntryID{"ent-a"},
		Minutes:       []int{50},
	})
	require.NoError(t, err)

	assert.Equal(t, overtime.BatchPending, detail.Batch.Status)
	assert.Equal(t, 50, detail.Batch.TotalMinutes)
	assert.Equal(t, 1, detail.Batch.TotalHours)
	require.Len(t, detail.Allocations, 1)
	assert.Equal(t, 50, detail.Allocations[0].MinutesReconciled)

	entry := f.entry(t, "ent-a")
	assert.Equal(t, 70, entry.RemainingMinutes)
	assert.Equal(t, overtime.EntryPartiallyReconciled, entry.Status)
}

func TestReconcile_CreateMultipleEntries(t *testing.T) {
	// GIVEN: Two entries
	// WHEN: Creating one batch spanning both
	// THEN: Batch total equals the sum of its allocations

	f := newReconcileFixture(t)
	f.seedEntry(t, "ent-a", 120)
	f.seedEntry(t, "ent-b", 60)

	detail, err := f.reconciler.Create(context.Background(), overtime.CreateRequest{
		EmployeeID: "emp-1",
		EntryIDs:   []overtime.EntryID{"ent-a", "ent-b"},
		Minutes:    []int{90, 45},
	})
	require.NoError(t, err)

	sum := 0
	for _, alloc := range detail.Allocations {
		sum += alloc.MinutesReconciled
	}
	assert.Equal(t, detail.Batch.TotalMinutes, sum)
	assert.Equal(t, 135, detail.Batch.TotalMinutes)
	assert.Equal(t, 3, detail.Batch.TotalHours)
}

func TestReconcile_OverAllocationRollsBackWholeBatch(t *testing.T) {
	// GIVEN: Two entries, the second too small for its requested amount
	// WHEN: Creating a batch
	// THEN: The call fails and the first entry's balance is untouched

	f := newReconcileFixture(t)
	f.seedEntry(t, "ent-a", 120)
	f.seedEntry(t, "ent-b", 30)

	_, err := f.reconciler.Create(context.Background(), overtime.CreateRequest{
		EmployeeID: "emp-1",
		EntryIDs:   []overtime.EntryID{"ent-a", "ent-b"},
		Minutes:    []int{60, 45},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, overtime.ErrOverAllocated)

	var over *overtime.OverAllocationError
	require.ErrorAs(t, err, &over)
	assert.Equal(t, overtime.EntryID("ent-b"), over.EntryID)
	assert.Equal(t, 30, over.Remaining)
	assert.Equal(t, 45, over.Requested)

	assert.Equal(t, 120, f.entry(t, "ent-a").RemainingMinutes)
	assert.Equal(t, 30, f.entry(t, "ent-b").RemainingMinutes)

	batches, err := f.reconciler.ListBatches(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestReconcile_ExhaustedEntryRejected(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedEntry(t, "ent-a", 60)

	_, err := f.reconciler.Create(context.Background(), overtime.CreateRequest{
		EmployeeID: "emp-1",
		EntryIDs:   []overtime.EntryID{"ent-a"},
		Minutes:    []int{60},
	})
	require.NoError(t, err)

	_, err = f.reconciler.Create(context.Background(), overtime.CreateRequest{
		EmployeeID: "emp-1",
		EntryIDs:   []overtime.EntryID{"ent-a"},
		Minutes:    []int{1},
	})
	assert.ErrorIs(t, err, overtime.ErrEntryExhausted)
}

func TestReconcile_EmptyRequestsRejected(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedEntry(t, "ent-a", 60)

	// No entries at all.
	_, err := f.reconciler.Create(context.Background(), overtime.CreateRequest{EmployeeID: "emp-1"})
	assert.ErrorIs(t, err, overtime.ErrEmptyBatch)

	// Mismatched parallel slices.
	_, err = f.reconciler.Create(context.Background(), overtime.CreateRequest{
		EmployeeID: "emp-1",
		EntryIDs:   []overtime.EntryID{"ent-a"},
		Minutes:    []int{10, 20},
	})
	assert.ErrorIs(t, err, overtime.ErrEmptyBatch)

	// Only non-positive amounts.
	_, err = f.reconciler.Create(context.Background(), overtime.CreateRequest{
		EmployeeID: "emp-1",
		EntryIDs:   []overtime.EntryID{"ent-a"},
		Minutes:    []int{0},
	})
	assert.ErrorIs(t, err, overtime.ErrEmptyBatch)
	assert.Equal(t, 60, f.entry(t, "ent-a").RemainingMinutes)
}

// =============================================================================
// DECISION TESTS
// =============================================================================

func TestReconcile_ApproveKeepsBalancesSpent(t *testing.T) {
	// GIVEN: A pending batch over a 120-minute entry
	// WHEN: Approving it
	// THEN: The decision is stamped and the spent balance stays spent

	f := newReconcileFixture(t)
	f.seedEntry(t, "ent-a", 120)
	detail := f.createBatch(t, "ent-a", 50)

	batch, err := f.reconciler.Approve(context.Background(), detail.Batch.ID, "manager-1", "ok")
	require.NoError(t, err)

	assert.Equal(t, overtime.BatchApproved, batch.Status)
	assert.Equal(t, "manager-1", batch.ApprovedBy)
	require.NotNil(t, batch.ApprovedAt)
	assert.Equal(t, 70, f.entry(t, "ent-a").RemainingMinutes)

	refetched, err := f.reconciler.GetBatch(context.Background(), detail.Batch.ID)
	require.NoError(t, err)
	for _, alloc := range refetched.Allocations {
		assert.Equal(t, overtime.BatchApproved, alloc.Status)
		assert.Equal(t, "manager-1", alloc.ApprovedBy)
	}
}

func TestReconcile_RejectCreditsBalancesBack(t *testing.T) {
	// GIVEN: A 120-minute entry split across two batches of 50 and 70
	// WHEN: Approving the first and rejecting the second
	// THEN: The entry returns to 70 remaining, partially reconciled

	f := newReconcileFixture(t)
	f.seedEntry(t, "ent-a", 120)

	first := f.createBatch(t, "ent-a", 50)
	second := f.createBatch(t, "ent-a", 70)
	assert.Equal(t, 0, f.entry(t, "ent-a").RemainingMinutes)

	_, err := f.reconciler.Approve(context.Background(), first.Batch.ID, "manager-1", "")
	require.NoError(t, err)
	_, err = f.reconciler.Reject(context.Background(), second.Batch.ID, "manager-1", "duplicate claim")
	require.NoError(t, err)

	entry := f.entry(t, "ent-a")
	assert.Equal(t, 70, entry.RemainingMinutes)
	assert.Equal(t, overtime.EntryPartiallyReconciled, entry.Status)
	assert.False(t, entry.IsFullyReconciled)
	assert.Equal(t, 50, entry.ReconciledMinutes())
}

func TestReconcile_DecidedBatchCannotBeDecidedAgain(t *testing.T) {
	// GIVEN: An approved batch
	// WHEN: Approving or rejecting it again
	// THEN: A state error; balances do not move twice

	f := newReconcileFixture(t)
	f.seedEntry(t, "ent-a", 120)
	detail := f.createBatch(t, "ent-a", 50)

	_, err := f.reconciler.Approve(context.Background(), detail.Batch.ID, "manager-1", "")
	require.NoError(t, err)

	_, err = f.reconciler.Approve(context.Background(), detail.Batch.ID, "manager-2", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, overtime.ErrBatchDecided)

	var state *overtime.StateError
	require.ErrorAs(t, err, &state)
	assert.Equal(t, detail.Batch.ID, state.BatchID)
	assert.Equal(t, overtime.BatchApproved, state.Current)

	_, err = f.reconciler.Reject(context.Background(), detail.Batch.ID, "manager-2", "")
	assert.ErrorIs(t, err, overtime.ErrBatchDecided)
	assert.Equal(t, 70, f.entry(t, "ent-a").RemainingMinutes)
}

// =============================================================================
// ALLOCATION DELETION TESTS
// =============================================================================

func TestReconcile_DeleteAllocationCreditsBack(t *testing.T) {
	// GIVEN: A pending batch over two entries
	// WHEN: Deleting one allocation
	// THEN: Its minutes return to the entry and the batch totals shrink

	f := newReconcileFixture(t)
	f.seedEntry(t, "ent-a", 120)
	f.seedEntry(t, "ent-b", 60)

	detail, err := f.reconciler.Create(context.Background(), overtime.CreateRequest{
		EmployeeID: "emp-1",
		EntryIDs:   []overtime.EntryID{"ent-a", "ent-b"},
		Minutes:    []int{90, 45},
	})
	require.NoError(t, err)

	var target overtime.ReconciliationAllocation
	for _, alloc := range detail.Allocations {
		if alloc.EntryID == "ent-b" {
			target = alloc
		}
	}
	require.NotEmpty(t, target.ID)

	require.NoError(t, f.reconciler.DeleteAllocation(context.Background(), target.ID))

	assert.Equal(t, 60, f.entry(t, "ent-b").RemainingMinutes)
	refetched, err := f.reconciler.GetBatch(context.Background(), detail.Batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, refetched.Batch.TotalMinutes)
	assert.Equal(t, 2, refetched.Batch.TotalHours)
	assert.Len(t, refetched.Allocations, 1)
}

func TestReconcile_DeleteLastAllocationRemovesBatch(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedEntry(t, "ent-a", 120)
	detail := f.createBatch(t, "ent-a", 50)

	require.NoError(t, f.reconciler.DeleteAllocation(context.Background(), detail.Allocations[0].ID))

	assert.Equal(t, 120, f.entry(t, "ent-a").RemainingMinutes)
	batches, err := f.reconciler.ListBatches(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestReconcile_DeleteAllocationOnDecidedBatchRejected(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedEntry(t, "ent-a", 120)
	detail := f.createBatch(t, "ent-a", 50)

	_, err := f.reconciler.Approve(context.Background(), detail.Batch.ID, "manager-1", "")
	require.NoError(t, err)

	err = f.reconciler.DeleteAllocation(context.Background(), detail.Allocations[0].ID)
	assert.ErrorIs(t, err, overtime.ErrBatchDecided)
	assert.Equal(t, 70, f.entry(t, "ent-a").RemainingMinutes)
}

// =============================================================================
// CONSERVATION TESTS
// =============================================================================

func TestReconcile_ConservationIntact(t *testing.T) {
	// GIVEN: A multi-entry batch, after a partial deletion
	// THEN: The batch total still equals the sum of its live allocations

	f := newReconcileFixture(t)
	f.seedEntry(t, "ent-a", 120)
	f.seedEntry(t, "ent-b", 60)
	f.seedEntry(t, "ent-c", 90)

	detail, err := f.reconciler.Create(context.Background(), overtime.CreateRequest{
		EmployeeID: "emp-1",
		EntryIDs:   []overtime.EntryID{"ent-a", "ent-b", "ent-c"},
		Minutes:    []int{30, 40, 50},
	})
	require.NoError(t, err)

	ok, err := f.reconciler.IsConservationIntact(context.Background(), detail.Batch.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.reconciler.DeleteAllocation(context.Background(), detail.Allocations[1].ID))

	ok, err = f.reconciler.IsConservationIntact(context.Background(), detail.Batch.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func (f *reconcileFixture) createBatch(t *testing.T, entryID overtime.EntryID, minutes int) overtime.BatchDetail {
	t.Helper()
	detail, err := f.reconciler.Create(context.Background(), overtime.CreateRequest{
		EmployeeID:    "emp-1",
		ReconcileDate: monday,
		EntryIDs:      []overtime.EntryID{entryID},
		Minutes:       []int{minutes},
	})
	require.NoError(t, err)
	return detail
}
