/*
service.go - Accrual side: computing and maintaining extra-hour entries

PURPOSE:
  The Service owns the earn side of the ledger: it turns completed shifts
  into entries, recomputes them when schedules change, records manual
  administrator entries, and sweeps expired balances.

RECOMPUTATION RULES:
  Computing a shift twice is safe. If live entries already exist for the
  shift they are returned as-is unless force is set; a forced recompute
  deletes the stale entries first. Entries with spent balance are never
  deleted: a shift with any reconciled minutes is skipped entirely and the
  caller is told, because silently rewriting spent history would break
  conservation.

SEE ALSO:
  - segment.go / entry.go: the computation itself
  - reconcile.go: the spend side
*/
package overtime

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service computes and maintains extra-hour entries on top of a Store.
type Service struct {
	store TxStore
	cfg   Config
	now   func() time.Time
}

// NewService builds a Service with the given rules. The clock is injectable
// for tests via WithClock.
func NewService(store TxStore, cfg Config) *Service {
	return &Service{store: store, cfg: cfg, now: time.Now}
}

// WithClock replaces the service's clock. Returns the service for chaining.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// =============================================================================
// COMPUTATION
// =============================================================================

// ComputeExtraHours segments a completed shift and persists one entry per
// segment. Existing live entries short-circuit the call unless force is set.
// A shift with spent entries is never recomputed, even with force.
func (s *Service) ComputeExtraHours(ctx context.Context, shiftID ShiftID, force bool) ([]ExtraHourEntry, error) {
	shift, err := s.store.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if !shift.IsCompleted() {
		return nil, fmt.Errorf("shift %s: %w", shiftID, ErrShiftNotCompleted)
	}

	var entries []ExtraHourEntry
	err = s.store.WithTx(ctx, func(st Store) error {
		entries, _, err = s.computeShift(ctx, st, shift, force)
		return err
	})
	return entries, err
}

// computeShift holds the per-shift logic shared by single and range
// computation. Must run inside a transaction. The recomputed flag is false
// when existing entries were kept (either force was off, or spent balance
// made the shift untouchable).
func (s *Service) computeShift(ctx context.Context, st Store, shift WorkShift, force bool) ([]ExtraHourEntry, bool, error) {
	existing, err := st.EntriesByShift(ctx, shift.ID)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		if !force {
			return existing, false, nil
		}
		_, skipped, err := st.DeleteEntriesByShift(ctx, shift.ID, s.now())
		if err != nil {
			return nil, false, err
		}
		if len(skipped) > 0 {
			// Spent history stays. Keep the shift's entries as they are.
			return existing, false, nil
		}
	}

	segments := SegmentShift(shift, s.cfg)
	entries := MaterializeSegments(shift, segments, s.cfg, s.now())
	if len(entries) > 0 {
		if err := st.SaveEntries(ctx, entries); err != nil {
			return nil, false, err
		}
	}
	return entries, true, nil
}

// RecalcResult reports what a range recomputation did.
type RecalcResult struct {
	ShiftsSeen     int
	EntriesCreated int
	ShiftsSkipped  []ShiftID // shifts left untouched because balance was spent
}

// RecalculateRange recomputes entries for every completed shift an employee
// started in [from, to]. Each shift is its own transaction so one bad shift
// doesn't void the rest.
func (s *Service) RecalculateRange(ctx context.Context, employeeID EmployeeID, from, to time.Time, force bool) (RecalcResult, error) {
	if !to.After(from) {
		return RecalcResult{}, ErrInvalidInterval
	}

	shifts, err := s.store.CompletedShifts(ctx, employeeID, from, to)
	if err != nil {
		return RecalcResult{}, err
	}

	var result RecalcResult
	for _, shift := range shifts {
		result.ShiftsSeen++
		shift := shift
		err := s.store.WithTx(ctx, func(st Store) error {
			entries, recomputed, err := s.computeShift(ctx, st, shift, force)
			if err != nil {
				return err
			}
			if recomputed {
				result.EntriesCreated += len(entries)
			} else {
				result.ShiftsSkipped = append(result.ShiftsSkipped, shift.ID)
			}
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("recalculate shift %s: %w", shift.ID, err)
		}
	}
	return result, nil
}

// CreateManualEntry records extra time directly, without a backing shift.
func (s *Service) CreateManualEntry(ctx context.Context, employeeID EmployeeID, unitID BusinessUnitID, date time.Time, start, end ClockTime, description string) (ExtraHourEntry, error) {
	entry, err := NewManualEntry(employeeID, unitID, date, start, end, description, s.cfg, s.now())
	if err != nil {
		return ExtraHourEntry{}, err
	}
	if err := s.store.SaveEntries(ctx, []ExtraHourEntry{entry}); err != nil {
		return ExtraHourEntry{}, err
	}
	return entry, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// AvailableEntries returns the entries an employee can still reconcile,
// oldest first.
func (s *Service) AvailableEntries(ctx context.Context, employeeID EmployeeID) ([]ExtraHourEntry, error) {
	return s.store.AvailableEntries(ctx, employeeID, s.now())
}

// ReconciledEntries returns summaries of the employee's entries that have had
// minutes consumed, for entries dated in [from, to].
func (s *Service) ReconciledEntries(ctx context.Context, employeeID EmployeeID, from, to time.Time) ([]EntrySummary, error) {
	entries, err := s.store.EntriesInRange(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}

	var summaries []EntrySummary
	for _, e := range entries {
		if e.ReconciledMinutes() <= 0 {
			continue
		}
		summary := EntrySummary{
			EntryID:           e.ID,
			ShiftID:           e.ShiftID,
			Date:              e.Date,
			StartTime:         e.StartTime,
			EndTime:           e.EndTime,
			TotalMinutes:      e.TotalMinutes,
			ReconciledMinutes: e.ReconciledMinutes(),
			IsFullyReconciled: e.IsFullyReconciled,
			Description:       e.Description,
		}
		allocs, err := s.store.AllocationsByEntry(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		for _, a := range allocs {
			if a.Status == BatchRejected {
				continue
			}
			d := a.ReconciliationDate
			if summary.LastReconciledDate == nil || d.After(*summary.LastReconciledDate) {
				t := d
				summary.LastReconciledDate = &t
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// =============================================================================
// EXPIRY
// =============================================================================

// ExpireOverdue freezes every entry whose expiry date has passed as of today.
// One bulk statement; already terminal entries are untouched. Returns the
// number of entries swept.
func (s *Service) ExpireOverdue(ctx context.Context, today time.Time) (int64, error) {
	return s.store.ExpireEntries(ctx, DayStart(today), s.now())
}
