/*
Package overtime implements the extra-hours computation and reconciliation core.

PURPOSE:
  This package contains the domain types and algorithms for tracking overtime
  worked outside an employee's regular schedule. A completed work shift is
  decomposed into classified segments (before work, after work, night, weekend
  days), each persisted as a balance-bearing ledger entry. Accrued minutes are
  later consumed through reconciliation batches with an approve/reject
  workflow that reverses balances on rejection.

KEY CONCEPTS IN THIS FILE (types.go):
  - WorkShift: a completed schedule interval, owned by an external system
  - ExtraHourEntry: one classified segment persisted with its own balance
  - ReconciliationBatch / ReconciliationAllocation: the approval unit and
    the per-entry debit records it groups
  - Typed identifiers: EmployeeID, ShiftID, EntryID, BatchID, AllocationID

DESIGN PRINCIPLES:
  1. Explicitness: entry fields are computed by a factory, not storage hooks
  2. Conservation: a batch's total always equals the sum of its allocations
  3. Reversibility: debits are undone by explicit credits, never by edits
  4. Type safety: strong ID types prevent mixing entries and batches

SEE ALSO:
  - segment.go: shift decomposition into classified segments
  - entry.go: entry factory
  - reconcile.go: batch lifecycle and balance reversal
*/
package overtime

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type ShiftID string
type EntryID string
type BatchID string
type AllocationID string
type BusinessUnitID string

// =============================================================================
// WORK SHIFT - External input, read-only to the core
// =============================================================================

type ShiftStatus string

const (
	ShiftPlanned   ShiftStatus = "planned"
	ShiftCompleted ShiftStatus = "completed"
	ShiftCancelled ShiftStatus = "cancelled"
)

// WorkShift is a scheduled interval of work. The scheduling subsystem owns
// these records; the extra-hours core only reads them and only acts on
// shifts in completed status.
type WorkShift struct {
	ID             ShiftID
	EmployeeID     EmployeeID
	BusinessUnitID BusinessUnitID
	DateStart      time.Time
	DateFinish     time.Time
	Status         ShiftStatus
}

// IsCompleted reports whether the shift qualifies for extra-hours computation.
func (s WorkShift) IsCompleted() bool { return s.Status == ShiftCompleted }

// =============================================================================
// EXTRA HOUR ENTRY - One classified segment with its own balance
// =============================================================================

type EntryStatus string

const (
	EntryAvailable           EntryStatus = "available"
	EntryPartiallyReconciled EntryStatus = "partially_reconciled"
	EntryReconciled          EntryStatus = "reconciled"
	EntryExpired             EntryStatus = "expired"
)

// ExtraHourEntry is a persisted, balance-bearing record of one segment of
// extra time.
//
// INVARIANTS:
//   - 0 <= RemainingMinutes <= TotalMinutes
//   - IsFullyReconciled <=> RemainingMinutes == 0 || Status == expired
//   - Status moves available -> partially_reconciled -> reconciled, or from
//     any non-expired state to expired (terminal, balance frozen)
type ExtraHourEntry struct {
	ID                EntryID
	EmployeeID        EmployeeID
	ShiftID           ShiftID
	SegmentNumber     int
	Date              time.Time // calendar date of the segment's start
	StartTime         time.Time
	EndTime           time.Time
	TotalMinutes      int
	RemainingMinutes  int
	Status            EntryStatus
	ExpiryDate        time.Time
	IsFullyReconciled bool
	BusinessUnitID    BusinessUnitID
	Description       string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// ReconciledMinutes is the portion of the entry already consumed.
func (e ExtraHourEntry) ReconciledMinutes() int {
	return e.TotalMinutes - e.RemainingMinutes
}

// IsExpiredAt reports whether the entry's balance is unusable on the given day.
func (e ExtraHourEntry) IsExpiredAt(today time.Time) bool {
	return e.ExpiryDate.Before(DayStart(today))
}

// FormattedTotal renders TotalMinutes as HH:MM.
func (e ExtraHourEntry) FormattedTotal() string { return FormatMinutes(e.TotalMinutes) }

// FormattedRemaining renders RemainingMinutes as HH:MM.
func (e ExtraHourEntry) FormattedRemaining() string { return FormatMinutes(e.RemainingMinutes) }

// EntrySummary is the read model returned for reconciled-entry listings.
type EntrySummary struct {
	EntryID            EntryID
	ShiftID            ShiftID
	Date               time.Time
	StartTime          time.Time
	EndTime            time.Time
	TotalMinutes       int
	ReconciledMinutes  int
	IsFullyReconciled  bool
	Description        string
	LastReconciledDate *time.Time
}

// =============================================================================
// RECONCILIATION BATCH - One approval unit
// =============================================================================

type BatchStatus string

const (
	BatchPending  BatchStatus = "pending"
	BatchApproved BatchStatus = "approved"
	BatchRejected BatchStatus = "rejected"
)

// ReconciliationBatch groups per-entry allocations into a single approval
// unit. TotalMinutes always equals the sum of its allocations' minutes.
type ReconciliationBatch struct {
	ID            BatchID
	EmployeeID    EmployeeID
	ReconcileDate time.Time
	DateStart     time.Time // day bounds of the reconcile date
	DateFinish    time.Time
	TotalMinutes  int
	TotalHours    int // ceil(TotalMinutes / 60)
	Status        BatchStatus
	ApprovedBy    string
	ApprovedAt    *time.Time
	Notes         string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsDecided reports whether the batch has reached a terminal status.
func (b ReconciliationBatch) IsDecided() bool { return b.Status != BatchPending }

// =============================================================================
// RECONCILIATION ALLOCATION - One (batch, entry, minutes) debit
// =============================================================================

// ReconciliationAllocation records a debit of minutes from one entry inside
// one batch. Creating an allocation debits the entry in the same transaction;
// rejecting or deleting it credits the minutes back.
type ReconciliationAllocation struct {
	ID                 AllocationID
	EmployeeID         EmployeeID
	EntryID            EntryID
	BatchID            BatchID
	ReconciliationDate time.Time
	MinutesReconciled  int
	Status             BatchStatus // mirrors the owning batch
	ApprovedBy         string
	ApprovedAt         *time.Time
	Notes              string
	BusinessUnitID     BusinessUnitID

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// =============================================================================
// MINUTE ARITHMETIC AND RENDERING
// =============================================================================

// MinutesBetween returns the whole minutes from start to end, truncated.
func MinutesBetween(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}

// HoursCeil converts minutes to whole hours, rounding up.
func HoursCeil(minutes int) int {
	return (minutes + 59) / 60
}

// FormatMinutes renders a minute count as HH:MM (e.g. 135 -> "02:15").
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DecimalHours converts minutes to fractional hours with two decimal places,
// for report views that show 90 minutes as 1.5h.
func DecimalHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}

// =============================================================================
// DAY HELPERS
// =============================================================================

// DayStart truncates t to midnight in its own location.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayEnd returns the last instant of t's calendar day.
func DayEnd(t time.Time) time.Time {
	return DayStart(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// NextMidnight returns the first instant of the day after t.
func NextMidnight(t time.Time) time.Time {
	return DayStart(t).AddDate(0, 0, 1)
}

// SameDay reports whether two instants fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
