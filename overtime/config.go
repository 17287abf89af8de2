package overtime

import "time"

// =============================================================================
// CLOCK TIME - Minutes-from-midnight boundary within a day
// =============================================================================

// ClockTime is a time-of-day boundary expressed as minutes from midnight.
// Band boundaries are exclusive: the boundary instant belongs to the next band.
type ClockTime int

// NewClockTime builds a ClockTime from an hour and minute.
func NewClockTime(hour, minute int) ClockTime { return ClockTime(hour*60 + minute) }

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

// On anchors the clock time onto the calendar day of t.
func (c ClockTime) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour(), c.Minute(), 0, 0, t.Location())
}

// =============================================================================
// CONFIG - Segmentation and expiry rules, passed explicitly
// =============================================================================

// Config carries every rule the segmenter and entry factory need. It is a
// plain value passed at call time; the core keeps no ambient configuration.
type Config struct {
	// Regular working hours on weekdays. Shifts inside this window produce
	// no extra time.
	RegularStart ClockTime
	RegularEnd   ClockTime

	// Fixed time-of-day band boundaries for weekday overtime.
	EveningBandEnd ClockTime // end of the first evening band, default 22:00
	NightBandEnd   ClockTime // end of the overnight band, default 06:00

	// Weekday set treated as weekend: the whole shift is extra time.
	WeekendDays map[time.Weekday]bool

	// Days after a segment's date until its unused balance expires.
	ExpiryDays int
}

// DefaultConfig returns the standard rules: regular hours 08:00-16:00,
// Saturday/Sunday weekends, evening band until 22:00, night band until 06:00,
// 90-day expiry.
func DefaultConfig() Config {
	return Config{
		RegularStart:   NewClockTime(8, 0),
		RegularEnd:     NewClockTime(16, 0),
		EveningBandEnd: NewClockTime(22, 0),
		NightBandEnd:   NewClockTime(6, 0),
		WeekendDays: map[time.Weekday]bool{
			time.Saturday: true,
			time.Sunday:   true,
		},
		ExpiryDays: 90,
	}
}

// IsWeekend reports whether the weekday is configured as a weekend day.
func (c Config) IsWeekend(day time.Weekday) bool { return c.WeekendDays[day] }

// ExpiryFor returns the day a segment dated on date stops being usable.
func (c Config) ExpiryFor(date time.Time) time.Time {
	return DayStart(date).AddDate(0, 0, c.ExpiryDays)
}
