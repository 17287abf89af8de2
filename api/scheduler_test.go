package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/overtime/store"
)

func TestSweeper_SweepsImmediatelyOnStart(t *testing.T) {
	// GIVEN: An entry whose expiry date has long passed
	// WHEN: Starting the sweeper
	// THEN: The first sweep freezes it without waiting for a tick

	mem := store.NewTxMemory()
	svc := overtime.NewService(mem, overtime.DefaultConfig())

	old := overtime.DayStart(time.Now().UTC().AddDate(-1, 0, 0))
	require.NoError(t, mem.SaveEntries(context.Background(), []overtime.ExtraHourEntry{{
		ID:               "ent-old",
		EmployeeID:       "emp-1",
		SegmentNumber:    1,
		Date:             old,
		StartTime:        old.Add(16 * time.Hour),
		EndTime:          old.Add(18 * time.Hour),
		TotalMinutes:     120,
		RemainingMinutes: 120,
		Status:           overtime.EntryAvailable,
		ExpiryDate:       old.AddDate(0, 0, 90),
	}}))

	sweeper := NewExpirySweeper(svc)
	sweeper.CheckInterval = time.Hour
	sweeper.Start()
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		entry, err := mem.GetEntry(context.Background(), "ent-old")
		return err == nil && entry.Status == overtime.EntryExpired
	}, 2*time.Second, 10*time.Millisecond)

	entry, err := mem.GetEntry(context.Background(), "ent-old")
	require.NoError(t, err)
	assert.Equal(t, 120, entry.RemainingMinutes, "expiry freezes the balance")
}

func TestSweeper_DisabledDoesNotStart(t *testing.T) {
	sweeper := NewExpirySweeper(nil)
	sweeper.Enabled = false
	sweeper.Start()
	sweeper.Stop()
}
