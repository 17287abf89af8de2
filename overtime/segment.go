/*
segment.go - Shift decomposition into classified extra-time segments

PURPOSE:
  The segmenter is the computational heart of the package. Given a completed
  shift and a Config it produces the ordered, non-overlapping list of
  sub-intervals that count as extra time. It is a pure function: no clock,
  no storage, no failure mode. Candidate segments that clip to less than one
  minute are silently dropped; that is a classification rule, not an error.

CLASSIFICATION RULES:
  Weekend start day:
    The whole shift is extra time. It is split only at midnight, one segment
    per calendar day touched, labeled by position (full shift / first day /
    intermediate day / last day). Time-of-day bands do not apply.

  Weekday start day, bands anchored on the start calendar day:
    before work    [shift start, regular start)
    after work     [regular end, evening band end)      default until 22:00
    late evening   [evening band end, midnight)
    night          [midnight, night band end)           default until 06:00
    next morning   [night band end, next regular start)
  A shift beginning mid-evening anchors the evening bands at its own start
  instead of regular end. Regular hours themselves never produce a segment.
  Band boundaries are exclusive on the right: the boundary instant belongs
  to the next band.

SEE ALSO:
  - config.go: band boundaries and weekend set
  - entry.go: turning segments into persisted entries
*/
package overtime

import "time"

// =============================================================================
// SEGMENT - A maximal sub-interval classified by one rule
// =============================================================================

type Segment struct {
	Number int // ordinal within the shift, starting at 1
	Start  time.Time
	End    time.Time
	Label  string
}

// Minutes returns the segment length in whole minutes.
func (s Segment) Minutes() int { return MinutesBetween(s.Start, s.End) }

// Segment labels. Each names the rule that produced the segment and becomes
// the persisted entry's description.
const (
	LabelWeekendFullShift    = "Weekend: full shift"
	LabelWeekendFirstDay     = "Weekend: first day"
	LabelWeekendIntermediate = "Weekend: intermediate day"
	LabelWeekendLastDay      = "Weekend: last day"
	LabelBeforeWork          = "Extra hours: before work"
	LabelAfterWork           = "Extra hours: after work"
	LabelLateEvening         = "Extra hours: late evening"
	LabelNight               = "Extra hours: night"
	LabelNextMorning         = "Extra hours: next morning"
)

// =============================================================================
// SEGMENTER
// =============================================================================

// SegmentShift decomposes a shift interval into classified extra-time
// segments. Pure and total: invalid or sub-minute candidates are dropped.
func SegmentShift(shift WorkShift, cfg Config) []Segment {
	start, end := shift.DateStart, shift.DateFinish
	if !end.After(start) {
		return nil
	}

	if cfg.IsWeekend(start.Weekday()) {
		return weekendSegments(start, end)
	}
	return weekdaySegments(start, end, cfg)
}

// weekendSegments splits the whole shift at midnight boundaries, one segment
// per calendar day touched.
func weekendSegments(start, end time.Time) []Segment {
	var candidates []Segment

	for cur := start; cur.Before(end); cur = NextMidnight(cur) {
		segEnd := NextMidnight(cur)
		if end.Before(segEnd) {
			segEnd = end
		}
		candidates = append(candidates, Segment{Start: cur, End: segEnd})
	}

	// Label by position now that the day count is known.
	for i := range candidates {
		switch {
		case len(candidates) == 1:
			candidates[i].Label = LabelWeekendFullShift
		case i == 0:
			candidates[i].Label = LabelWeekendFirstDay
		case i == len(candidates)-1:
			candidates[i].Label = LabelWeekendLastDay
		default:
			candidates[i].Label = LabelWeekendIntermediate
		}
	}

	return number(candidates)
}

// weekdaySegments applies the time-of-day bands anchored on the shift's
// start calendar day.
func weekdaySegments(start, end time.Time, cfg Config) []Segment {
	regularStart := cfg.RegularStart.On(start)
	regularEnd := cfg.RegularEnd.On(start)
	eveningEnd := cfg.EveningBandEnd.On(start)
	midnight := NextMidnight(start)

	var candidates []Segment

	// Before work: only when the shift begins ahead of regular hours.
	if start.Before(regularStart) {
		candidates = append(candidates, clip(start, regularStart, start, end, LabelBeforeWork))
	}

	// After work: anchored at regular end, or at the shift start when the
	// shift itself begins mid-evening.
	if end.After(regularEnd) {
		candidates = append(candidates, clip(regularEnd, eveningEnd, start, end, LabelAfterWork))
	}

	// Late evening: from the evening boundary until midnight.
	if end.After(eveningEnd) {
		candidates = append(candidates, clip(eveningEnd, midnight, start, end, LabelLateEvening))
	}

	// Overnight continuation into the next calendar day.
	if end.After(midnight) {
		nightEnd := cfg.NightBandEnd.On(midnight)
		nextRegularStart := cfg.RegularStart.On(midnight)

		candidates = append(candidates, clip(midnight, nightEnd, start, end, LabelNight))
		if end.After(nightEnd) {
			candidates = append(candidates, clip(nightEnd, nextRegularStart, start, end, LabelNextMorning))
		}
	}

	return number(candidates)
}

// clip bounds a candidate band to the shift interval.
func clip(bandStart, bandEnd, shiftStart, shiftEnd time.Time, label string) Segment {
	if bandStart.Before(shiftStart) {
		bandStart = shiftStart
	}
	if bandEnd.After(shiftEnd) {
		bandEnd = shiftEnd
	}
	return Segment{Start: bandStart, End: bandEnd, Label: label}
}

// number drops sub-minute candidates and assigns ordinals.
func number(candidates []Segment) []Segment {
	var segments []Segment
	for _, c := range candidates {
		if c.Minutes() < 1 {
			continue
		}
		c.Number = len(segments) + 1
		segments = append(segments, c)
	}
	return segments
}
