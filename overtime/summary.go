/*
summary.go - Per-employee balance summary over a date range

PURPOSE:
  Aggregates an employee's entries dated inside a range into four figures:

    earned      everything accrued in the range
    reconciled  minutes consumed by non-rejected batches
    expired     full size of entries that lapsed
    available   what can still be reconciled

  Expired counts the whole entry, not just the unused remainder, so an entry
  that was partly consumed before lapsing shows up in both reconciled and
  expired. Each figure is rendered three ways (raw minutes, HH:MM, decimal
  hours) so report views don't re-derive formatting.

  An unset range defaults to the current calendar month.

SEE ALSO:
  - types.go: FormatMinutes / DecimalHours
*/
package overtime

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FIGURES
// =============================================================================

// Figure is one summary amount in its three renderings.
type Figure struct {
	Minutes   int
	Formatted string          // HH:MM
	Hours     decimal.Decimal // fractional hours, two decimals
}

func newFigure(minutes int) Figure {
	return Figure{
		Minutes:   minutes,
		Formatted: FormatMinutes(minutes),
		Hours:     DecimalHours(minutes),
	}
}

// Summary is an employee's extra-hours position over a range.
type Summary struct {
	EmployeeID EmployeeID
	From       time.Time
	To         time.Time

	Earned     Figure
	Reconciled Figure
	Expired    Figure
	Available  Figure

	EntryCount int
}

// =============================================================================
// COMPUTATION
// =============================================================================

// Summarize builds the summary for entries dated in [from, to]. Zero range
// bounds default to the current calendar month.
func (s *Service) Summarize(ctx context.Context, employeeID EmployeeID, from, to time.Time) (Summary, error) {
	now := s.now()
	if from.IsZero() {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
	if to.IsZero() {
		to = DayEnd(from.AddDate(0, 1, -1))
	}
	if to.Before(from) {
		return Summary{}, ErrInvalidInterval
	}

	entries, err := s.store.EntriesInRange(ctx, employeeID, from, to)
	if err != nil {
		return Summary{}, err
	}

	var earned, reconciled, expired, available int
	for _, e := range entries {
		earned += e.TotalMinutes
		reconciled += e.ReconciledMinutes()
		if e.Status == EntryExpired || e.IsExpiredAt(now) {
			expired += e.TotalMinutes
		} else {
			available += e.RemainingMinutes
		}
	}

	return Summary{
		EmployeeID: employeeID,
		From:       from,
		To:         to,
		Earned:     newFigure(earned),
		Reconciled: newFigure(reconciled),
		Expired:    newFigure(expired),
		Available:  newFigure(available),
		EntryCount: len(entries),
	}, nil
}
