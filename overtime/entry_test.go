package overtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/overtime"
)

var clock = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

// =============================================================================
// MATERIALIZATION TESTS
// =============================================================================

func TestMaterialize_FullBalanceAndDeterministicIDs(t *testing.T) {
	// GIVEN: A segmented Monday 06:00-18:00 shift
	// WHEN: Materializing entries
	// THEN: Each entry carries a full balance, an expiry date, and an ID
	//       derived from the shift ID and segment ordinal

	cfg := overtime.DefaultConfig()
	shift := mkShift(at(monday, 6, 0), at(monday, 18, 0))
	segments := overtime.SegmentShift(shift, cfg)
	require.Len(t, segments, 2)

	entries := overtime.MaterializeSegments(shift, segments, cfg, clock)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, overtime.EntryID("ent-shift-1-1"), first.ID)
	assert.Equal(t, shift.EmployeeID, first.EmployeeID)
	assert.Equal(t, shift.ID, first.ShiftID)
	assert.Equal(t, 120, first.TotalMinutes)
	assert.Equal(t, 120, first.RemainingMinutes)
	assert.Equal(t, overtime.EntryAvailable, first.Status)
	assert.False(t, first.IsFullyReconciled)
	assert.Equal(t, monday, first.Date)
	assert.Equal(t, monday.AddDate(0, 0, cfg.ExpiryDays), first.ExpiryDate)
	assert.Equal(t, overtime.LabelBeforeWork, first.Description)

	assert.Equal(t, overtime.EntryID("ent-shift-1-2"), entries[1].ID)

	// Re-materializing reproduces the same IDs.
	again := overtime.MaterializeSegments(shift, segments, cfg, clock.Add(time.Hour))
	assert.Equal(t, first.ID, again[0].ID)
}

func TestMaterialize_OvernightSegmentDatedOnSecondDay(t *testing.T) {
	// GIVEN: Monday 16:00 until Tuesday 03:00
	// THEN: The night entry is dated (and expires) on Tuesday

	cfg := overtime.DefaultConfig()
	end := time.Date(2025, time.March, 11, 3, 0, 0, 0, time.UTC)
	shift := mkShift(at(monday, 16, 0), end)

	entries := overtime.MaterializeSegments(shift, overtime.SegmentShift(shift, cfg), cfg, clock)
	require.Len(t, entries, 3)

	tuesday := time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)
	night := entries[2]
	assert.Equal(t, overtime.LabelNight, night.Description)
	assert.Equal(t, tuesday, night.Date)
	assert.Equal(t, tuesday.AddDate(0, 0, cfg.ExpiryDays), night.ExpiryDate)
}

// =============================================================================
// MANUAL ENTRY TESTS
// =============================================================================

func TestManualEntry_SameDayInterval(t *testing.T) {
	cfg := overtime.DefaultConfig()
	entry, err := overtime.NewManualEntry("emp-1", "unit-1", monday,
		overtime.NewClockTime(18, 0), overtime.NewClockTime(20, 0), "", cfg, clock)
	require.NoError(t, err)

	assert.Equal(t, 120, entry.TotalMinutes)
	assert.Equal(t, 120, entry.RemainingMinutes)
	assert.Equal(t, "Extra hours: Monday 18:00 - 20:00", entry.Description)
	assert.Equal(t, monday.AddDate(0, 0, cfg.ExpiryDays), entry.ExpiryDate)
}

func TestManualEntry_MidnightRollover(t *testing.T) {
	// GIVEN: 22:00 to 02:00 on a single date
	// THEN: The end rolls to the next day, yielding 4 hours

	entry, err := overtime.NewManualEntry("emp-1", "unit-1", monday,
		overtime.NewClockTime(22, 0), overtime.NewClockTime(2, 0), "", overtime.DefaultConfig(), clock)
	require.NoError(t, err)

	assert.Equal(t, 240, entry.TotalMinutes)
	assert.Equal(t, time.Date(2025, time.March, 11, 2, 0, 0, 0, time.UTC), entry.EndTime)
}

func TestManualEntry_WeekendDescription(t *testing.T) {
	entry, err := overtime.NewManualEntry("emp-1", "unit-1", saturday,
		overtime.NewClockTime(20, 0), overtime.NewClockTime(23, 30), "", overtime.DefaultConfig(), clock)
	require.NoError(t, err)

	assert.Equal(t, "Weekend: Saturday 20:00 - 23:30", entry.Description)
}

func TestManualEntry_ExplicitDescriptionKept(t *testing.T) {
	entry, err := overtime.NewManualEntry("emp-1", "unit-1", monday,
		overtime.NewClockTime(18, 0), overtime.NewClockTime(19, 0), "on-call incident", overtime.DefaultConfig(), clock)
	require.NoError(t, err)

	assert.Equal(t, "on-call incident", entry.Description)
}

// =============================================================================
// BALANCE TRANSITION TESTS
// =============================================================================

func TestEntry_DebitLifecycle(t *testing.T) {
	// GIVEN: A 120-minute entry
	// WHEN: Debiting 50 then 70 minutes
	// THEN: available -> partially_reconciled -> reconciled

	e := testEntry(120)

	require.NoError(t, e.ApplyDebit(50, clock))
	assert.Equal(t, 70, e.RemainingMinutes)
	assert.Equal(t, overtime.EntryPartiallyReconciled, e.Status)
	assert.False(t, e.IsFullyReconciled)

	require.NoError(t, e.ApplyDebit(70, clock))
	assert.Equal(t, 0, e.RemainingMinutes)
	assert.Equal(t, overtime.EntryReconciled, e.Status)
	assert.True(t, e.IsFullyReconciled)
}

func TestEntry_DebitBeyondBalanceRejected(t *testing.T) {
	e := testEntry(60)

	err := e.ApplyDebit(90, clock)
	require.Error(t, err)
	assert.ErrorIs(t, err, overtime.ErrOverAllocated)

	var over *overtime.OverAllocationError
	require.ErrorAs(t, err, &over)
	assert.Equal(t, 60, over.Remaining)
	assert.Equal(t, 90, over.Requested)

	// Balance untouched on failure.
	assert.Equal(t, 60, e.RemainingMinutes)
	assert.Equal(t, overtime.EntryAvailable, e.Status)
}

func TestEntry_CreditRestoresStatus(t *testing.T) {
	// GIVEN: A fully reconciled entry
	// WHEN: Crediting minutes back
	// THEN: Status walks back through partially_reconciled to available

	e := testEntry(120)
	require.NoError(t, e.ApplyDebit(120, clock))

	e.ApplyCredit(70, clock)
	assert.Equal(t, 70, e.RemainingMinutes)
	assert.Equal(t, overtime.EntryPartiallyReconciled, e.Status)
	assert.False(t, e.IsFullyReconciled)

	e.ApplyCredit(50, clock)
	assert.Equal(t, 120, e.RemainingMinutes)
	assert.Equal(t, overtime.EntryAvailable, e.Status)
}

func TestEntry_CreditCappedAtTotal(t *testing.T) {
	e := testEntry(60)
	require.NoError(t, e.ApplyDebit(30, clock))

	e.ApplyCredit(500, clock)
	assert.Equal(t, 60, e.RemainingMinutes)
}

func TestEntry_ExpiryFreezesBalance(t *testing.T) {
	// GIVEN: An entry with 70 minutes remaining
	// WHEN: Expiring it
	// THEN: Balance stays frozen; debits and credits are refused

	e := testEntry(120)
	require.NoError(t, e.ApplyDebit(50, clock))

	e.Expire(clock)
	assert.Equal(t, overtime.EntryExpired, e.Status)
	assert.True(t, e.IsFullyReconciled)
	assert.Equal(t, 70, e.RemainingMinutes)

	err := e.ApplyDebit(10, clock)
	assert.ErrorIs(t, err, overtime.ErrOverAllocated)
	assert.Equal(t, 70, e.RemainingMinutes)

	e.ApplyCredit(10, clock)
	assert.Equal(t, 70, e.RemainingMinutes)
}

func testEntry(minutes int) overtime.ExtraHourEntry {
	return overtime.ExtraHourEntry{
		ID:               "ent-test-1",
		EmployeeID:       "emp-1",
		TotalMinutes:     minutes,
		RemainingMinutes: minutes,
		Status:           overtime.EntryAvailable,
		ExpiryDate:       monday.AddDate(0, 0, 90),
	}
}
