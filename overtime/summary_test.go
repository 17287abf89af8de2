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
// SUMMARY TESTS
// =============================================================================

func TestSummary_BalancesAddUp(t *testing.T) {
	// GIVEN: An entry partially reconciled, one fully available, one expired
	// WHEN: Summarizing March
	// THEN: Each figure reports its own slice of the 270 earned minutes

	f := newServiceFixture(t)
	spent := liveEntry("ent-spent", 120, monday)
	fresh := liveEntry("ent-fresh", 60, friday)
	old := liveEntry("ent-old", 90, monday)
	old.ExpiryDate = monday.AddDate(0, 0, -1) // already past expiry
	require.NoError(t, f.store.SaveEntries(context.Background(),
		[]overtime.ExtraHourEntry{spent, fresh, old}))

	_, err := f.reconciler.Create(context.Background(), overtime.CreateRequest{
		EmployeeID: "emp-1",
		EntryIDs:   []overtime.EntryID{"ent-spent"},
		Minutes:    []int{50},
	})
	require.NoError(t, err)

	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)
	summary, err := f.service.Summarize(context.Background(), "emp-1", from, to)
	require.NoError(t, err)

	assert.Equal(t, 270, summary.Earned.Minutes)
	assert.Equal(t, 50, summary.Reconciled.Minutes)
	assert.Equal(t, 90, summary.Expired.Minutes)
	assert.Equal(t, 130, summary.Available.Minutes)
	assert.Equal(t, 3, summary.EntryCount)
}

func TestSummary_ExpiredCountsFullEntry(t *testing.T) {
	// GIVEN: A 120-minute entry with 50 minutes consumed before it lapsed
	// WHEN: Summarizing March
	// THEN: Expired reports the whole 120, not the 70 left unused

	f := newServiceFixture(t)
	lapsed := liveEntry("ent-lapsed", 120, monday)
	lapsed.RemainingMinutes = 70
	lapsed.Status = overtime.EntryPartiallyReconciled
	lapsed.ExpiryDate = monday.AddDate(0, 0, -1)
	require.NoError(t, f.store.SaveEntries(context.Background(),
		[]overtime.ExtraHourEntry{lapsed}))

	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)
	summary, err := f.service.Summarize(context.Background(), "emp-1", from, to)
	require.NoError(t, err)

	assert.Equal(t, 120, summary.Earned.Minutes)
	assert.Equal(t, 50, summary.Reconciled.Minutes)
	assert.Equal(t, 120, summary.Expired.Minutes)
	assert.Equal(t, 0, summary.Available.Minutes)
}

func TestSummary_FigureRenderings(t *testing.T) {
	// GIVEN: 135 earned minutes
	// THEN: Rendered as minutes, "02:15" and 2.25 hours

	f := newServiceFixture(t)
	require.NoError(t, f.store.SaveEntries(context.Background(),
		[]overtime.ExtraHourEntry{liveEntry("ent-a", 135, monday)}))

	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)
	summary, err := f.service.Summarize(context.Background(), "emp-1", from, to)
	require.NoError(t, err)

	assert.Equal(t, 135, summary.Earned.Minutes)
	assert.Equal(t, "02:15", summary.Earned.Formatted)
	assert.Equal(t, "2.25", summary.Earned.Hours.String())
	assert.Equal(t, "00:00", summary.Reconciled.Formatted)
}

func TestSummary_DefaultsToCurrentMonth(t *testing.T) {
	// GIVEN: Entries inside and outside the clock's month
	// WHEN: Summarizing with zero bounds
	// THEN: Only the current calendar month is counted

	f := newServiceFixture(t)
	require.NoError(t, f.store.SaveEntries(context.Background(), []overtime.ExtraHourEntry{
		liveEntry("ent-march", 60, monday),
		liveEntry("ent-feb", 45, time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)),
	}))

	summary, err := f.service.Summarize(context.Background(), "emp-1", time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), summary.From)
	assert.Equal(t, 31, summary.To.Day())
	assert.Equal(t, 60, summary.Earned.Minutes)
	assert.Equal(t, 1, summary.EntryCount)
}

func TestSummary_InvertedRangeRejected(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.service.Summarize(context.Background(), "emp-1", friday, monday)
	assert.ErrorIs(t, err, overtime.ErrInvalidInterval)
}

func TestSummary_RejectedBatchRestoresAvailable(t *testing.T) {
	// GIVEN: A batch created then rejected
	// WHEN: Summarizing
	// THEN: Nothing counts as reconciled; the full balance is available again

	f := newServiceFixture(t)
	require.NoError(t, f.store.SaveEntries(context.Background(),
		[]overtime.ExtraHourEntry{liveEntry("ent-a", 120, monday)}))

	detail, err := f.reconciler.Create(context.Background(), overtime.CreateRequest{
		EmployeeID: "emp-1",
		EntryIDs:   []overtime.EntryID{"ent-a"},
		Minutes:    []int{80},
	})
	require.NoError(t, err)
	_, err = f.reconciler.Reject(context.Background(), detail.Batch.ID, "manager-1", "")
	require.NoError(t, err)

	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)
	summary, err := f.service.Summarize(context.Background(), "emp-1", from, to)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Reconciled.Minutes)
	assert.Equal(t, 120, summary.Available.Minutes)
}

var _ overtime.TxStore = (*store.TxMemory)(nil)
