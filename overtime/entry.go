/*
entry.go - Factory for balance-bearing extra-hour entries

PURPOSE:
  Bridges the pure segmenter and the persistence layer. Every field of an
  entry is computed here, in one place, so stores never derive state: the
  segment becomes an entry with a full balance, an expiry date anchored on
  the segment's calendar date, and a human-readable description.

  Administrators can also record extra time directly, without a shift, via
  NewManualEntry. A manual interval whose end is not after its start is
  treated as crossing midnight and rolls to the next day.

SEE ALSO:
  - segment.go: produces the segments materialized here
  - service.go: drives the factory from completed shifts
*/
package overtime

import (
	"fmt"
	"time"
)

// =============================================================================
// ENTRY FACTORY
// =============================================================================

// MaterializeSegments turns a shift's segments into persistable entries with
// full balances. Deterministic for a given shift: entry IDs derive from the
// shift ID and segment ordinal, so recomputation reproduces the same IDs.
func MaterializeSegments(shift WorkShift, segments []Segment, cfg Config, now time.Time) []ExtraHourEntry {
	entries := make([]ExtraHourEntry, 0, len(segments))
	for _, seg := range segments {
		date := DayStart(seg.Start)
		entries = append(entries, ExtraHourEntry{
			ID:               EntryID(fmt.Sprintf("ent-%s-%d", shift.ID, seg.Number)),
			EmployeeID:       shift.EmployeeID,
			ShiftID:          shift.ID,
			SegmentNumber:    seg.Number,
			Date:             date,
			StartTime:        seg.Start,
			EndTime:          seg.End,
			TotalMinutes:     seg.Minutes(),
			RemainingMinutes: seg.Minutes(),
			Status:           EntryAvailable,
			ExpiryDate:       cfg.ExpiryFor(date),
			BusinessUnitID:   shift.BusinessUnitID,
			Description:      seg.Label,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return entries
}

// NewManualEntry builds an administrator-recorded entry that is not backed by
// a shift. The interval is given as clock times on a single date; an end at
// or before the start means the interval crosses midnight.
func NewManualEntry(employeeID EmployeeID, unitID BusinessUnitID, date time.Time, start, end ClockTime, description string, cfg Config, now time.Time) (ExtraHourEntry, error) {
	day := DayStart(date)
	startAt := start.On(day)
	endAt := end.On(day)
	if !endAt.After(startAt) {
		endAt = endAt.AddDate(0, 0, 1)
	}

	minutes := MinutesBetween(startAt, endAt)
	if minutes < 1 {
		return ExtraHourEntry{}, ErrInvalidInterval
	}

	if description == "" {
		description = defaultDescription(startAt, endAt, cfg)
	}

	return ExtraHourEntry{
		ID:               EntryID(fmt.Sprintf("ent-manual-%d", now.UnixNano())),
		EmployeeID:       employeeID,
		SegmentNumber:    1,
		Date:             day,
		StartTime:        startAt,
		EndTime:          endAt,
		TotalMinutes:     minutes,
		RemainingMinutes: minutes,
		Status:           EntryAvailable,
		ExpiryDate:       cfg.ExpiryFor(day),
		BusinessUnitID:   unitID,
		Description:      description,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// defaultDescription renders "Weekend: Saturday 20:00 - 23:30" or
// "Extra hours: Monday 18:00 - 20:00" depending on the start day.
func defaultDescription(start, end time.Time, cfg Config) string {
	prefix := "Extra hours"
	if cfg.IsWeekend(start.Weekday()) {
		prefix = "Weekend"
	}
	return fmt.Sprintf("%s: %s %s - %s",
		prefix, start.Weekday(), start.Format("15:04"), end.Format("15:04"))
}

// =============================================================================
// BALANCE TRANSITIONS
// =============================================================================

// statusForRemaining derives the lifecycle status implied by a balance.
func statusForRemaining(remaining, total int) EntryStatus {
	switch {
	case remaining <= 0:
		return EntryReconciled
	case remaining < total:
		return EntryPartiallyReconciled
	default:
		return EntryAvailable
	}
}

// ApplyDebit consumes minutes from the entry's balance, moving its status
// forward. The caller must have checked the balance; this is the pure state
// transition used by the in-memory store and by tests.
func (e *ExtraHourEntry) ApplyDebit(minutes int, now time.Time) error {
	if e.Status == EntryExpired || e.IsFullyReconciled {
		return &OverAllocationError{EntryID: e.ID, Remaining: 0, Requested: minutes}
	}
	if minutes > e.RemainingMinutes {
		return &OverAllocationError{EntryID: e.ID, Remaining: e.RemainingMinutes, Requested: minutes}
	}
	e.RemainingMinutes -= minutes
	e.Status = statusForRemaining(e.RemainingMinutes, e.TotalMinutes)
	e.IsFullyReconciled = e.RemainingMinutes == 0
	e.UpdatedAt = now
	return nil
}

// ApplyCredit restores minutes to the entry's balance, moving its status
// backward. Expired entries keep their frozen balance untouched.
func (e *ExtraHourEntry) ApplyCredit(minutes int, now time.Time) {
	if e.Status == EntryExpired {
		return
	}
	e.RemainingMinutes += minutes
	if e.RemainingMinutes > e.TotalMinutes {
		e.RemainingMinutes = e.TotalMinutes
	}
	e.Status = statusForRemaining(e.RemainingMinutes, e.TotalMinutes)
	e.IsFullyReconciled = e.RemainingMinutes == 0
	e.UpdatedAt = now
}

// Expire marks the entry terminal, freezing whatever balance remains.
func (e *ExtraHourEntry) Expire(now time.Time) {
	e.Status = EntryExpired
	e.IsFullyReconciled = true
	e.UpdatedAt = now
}
