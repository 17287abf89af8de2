package overtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// mkShift builds a completed shift on fixed dates. Monday is 2025-03-10,
// Saturday is 2025-03-08.
func mkShift(start, end time.Time) overtime.WorkShift {
	return overtime.WorkShift{
		ID:         "shift-1",
		EmployeeID: "emp-1",
		DateStart:  start,
		DateFinish: end,
		Status:     overtime.ShiftCompleted,
	}
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

var (
	monday   = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	friday   = time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)
	saturday = time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC)
)

// =============================================================================
// WEEKDAY BAND TESTS
// =============================================================================

func TestSegment_BeforeAndAfterWork(t *testing.T) {
	// GIVEN: Monday shift 06:00-18:00, regular hours 08:00-16:00
	// WHEN: Segmenting
	// THEN: Exactly two segments: [06:00, 08:00) before work, [16:00, 18:00) after work

	shift := mkShift(at(monday, 6, 0), at(monday, 18, 0))
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	require.Len(t, segments, 2)

	assert.Equal(t, 1, segments[0].Number)
	assert.Equal(t, overtime.LabelBeforeWork, segments[0].Label)
	assert.Equal(t, at(monday, 6, 0), segments[0].Start)
	assert.Equal(t, at(monday, 8, 0), segments[0].End)
	assert.Equal(t, 120, segments[0].Minutes())

	assert.Equal(t, 2, segments[1].Number)
	assert.Equal(t, overtime.LabelAfterWork, segments[1].Label)
	assert.Equal(t, at(monday, 16, 0), segments[1].Start)
	assert.Equal(t, at(monday, 18, 0), segments[1].End)
	assert.Equal(t, 120, segments[1].Minutes())
}

func TestSegment_RegularHoursOnly_NoSegments(t *testing.T) {
	// GIVEN: Monday shift exactly 08:00-16:00
	// WHEN: Segmenting
	// THEN: Zero segments, regular hours never produce extra time

	shift := mkShift(at(monday, 8, 0), at(monday, 16, 0))
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	assert.Empty(t, segments)
}

func TestSegment_InsideRegularHours_NoSegments(t *testing.T) {
	shift := mkShift(at(monday, 10, 0), at(monday, 14, 30))
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	assert.Empty(t, segments)
}

func TestSegment_EveningSplitAtBandBoundary(t *testing.T) {
	// GIVEN: Monday shift 08:00-23:30
	// WHEN: Segmenting
	// THEN: After-work band [16:00, 22:00) and late-evening band [22:00, 23:30)

	shift := mkShift(at(monday, 8, 0), at(monday, 23, 30))
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	require.Len(t, segments, 2)
	assert.Equal(t, overtime.LabelAfterWork, segments[0].Label)
	assert.Equal(t, at(monday, 16, 0), segments[0].Start)
	assert.Equal(t, at(monday, 22, 0), segments[0].End)

	assert.Equal(t, overtime.LabelLateEvening, segments[1].Label)
	assert.Equal(t, at(monday, 22, 0), segments[1].Start)
	assert.Equal(t, at(monday, 23, 30), segments[1].End)
}

func TestSegment_BoundaryInstantBelongsToNextBand(t *testing.T) {
	// GIVEN: Shift ending exactly at the evening boundary 22:00
	// THEN: Only the after-work band exists; no zero-length late-evening band

	shift := mkShift(at(monday, 16, 0), at(monday, 22, 0))
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	require.Len(t, segments, 1)
	assert.Equal(t, overtime.LabelAfterWork, segments[0].Label)
	assert.Equal(t, at(monday, 22, 0), segments[0].End)
}

func TestSegment_MidEveningStart_AnchorsAtShiftStart(t *testing.T) {
	// GIVEN: Shift beginning at 20:30, after regular end
	// THEN: After-work band starts at 20:30, not at 16:00

	shift := mkShift(at(monday, 20, 30), at(monday, 23, 0))
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	require.Len(t, segments, 2)
	assert.Equal(t, overtime.LabelAfterWork, segments[0].Label)
	assert.Equal(t, at(monday, 20, 30), segments[0].Start)
	assert.Equal(t, at(monday, 22, 0), segments[0].End)

	assert.Equal(t, overtime.LabelLateEvening, segments[1].Label)
	assert.Equal(t, at(monday, 22, 0), segments[1].Start)
	assert.Equal(t, at(monday, 23, 0), segments[1].End)
}

func TestSegment_StartAfterEveningBoundary(t *testing.T) {
	// GIVEN: Shift beginning at 22:45
	// THEN: Single late-evening segment; the after-work candidate clips empty

	shift := mkShift(at(monday, 22, 45), at(monday, 23, 45))
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	require.Len(t, segments, 1)
	assert.Equal(t, overtime.LabelLateEvening, segments[0].Label)
	assert.Equal(t, at(monday, 22, 45), segments[0].Start)
	assert.Equal(t, 60, segments[0].Minutes())
}

func TestSegment_OvernightShift_AllFiveBands(t *testing.T) {
	// GIVEN: Friday shift 06:00 until Saturday 08:00 (next-day regular start)
	// WHEN: Segmenting
	// THEN: before work, after work, late evening, night, next morning

	end := time.Date(2025, time.March, 15, 8, 0, 0, 0, time.UTC)
	shift := mkShift(at(friday, 6, 0), end)

	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())
	require.Len(t, segments, 5)

	labels := make([]string, 0, len(segments))
	for _, s := range segments {
		labels = append(labels, s.Label)
	}
	assert.Equal(t, []string{
		overtime.LabelBeforeWork,
		overtime.LabelAfterWork,
		overtime.LabelLateEvening,
		overtime.LabelNight,
		overtime.LabelNextMorning,
	}, labels)

	night := segments[3]
	assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), night.Start)
	assert.Equal(t, time.Date(2025, time.March, 15, 6, 0, 0, 0, time.UTC), night.End)

	morning := segments[4]
	assert.Equal(t, time.Date(2025, time.March, 15, 6, 0, 0, 0, time.UTC), morning.Start)
	assert.Equal(t, end, morning.End)
}

func TestSegment_OvernightEndsBeforeNightBoundary(t *testing.T) {
	// GIVEN: Shift 16:00 until 03:00 next day
	// THEN: Night band is clipped at 03:00 and no morning band appears

	end := time.Date(2025, time.March, 11, 3, 0, 0, 0, time.UTC)
	shift := mkShift(at(monday, 16, 0), end)
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	require.Len(t, segments, 3)
	assert.Equal(t, overtime.LabelNight, segments[2].Label)
	assert.Equal(t, end, segments[2].End)
}

func TestSegment_SubMinuteCandidateDropped(t *testing.T) {
	// GIVEN: Shift ending 30 seconds past the evening boundary
	// THEN: The 30-second late-evening candidate is dropped

	end := at(monday, 22, 0).Add(30 * time.Second)
	shift := mkShift(at(monday, 16, 0), end)
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	require.Len(t, segments, 1)
	assert.Equal(t, overtime.LabelAfterWork, segments[0].Label)
}

func TestSegment_DegenerateInterval(t *testing.T) {
	shift := mkShift(at(monday, 10, 0), at(monday, 10, 0))
	assert.Empty(t, overtime.SegmentShift(shift, overtime.DefaultConfig()))

	shift = mkShift(at(monday, 12, 0), at(monday, 10, 0))
	assert.Empty(t, overtime.SegmentShift(shift, overtime.DefaultConfig()))
}

// =============================================================================
// WEEKEND TESTS
// =============================================================================

func TestSegment_WeekendSameDay_SingleFullSegment(t *testing.T) {
	// GIVEN: Saturday shift 09:00-17:00
	// WHEN: Segmenting
	// THEN: One segment spanning the whole shift, no band splitting

	shift := mkShift(at(saturday, 9, 0), at(saturday, 17, 0))
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	require.Len(t, segments, 1)
	assert.Equal(t, overtime.LabelWeekendFullShift, segments[0].Label)
	assert.Equal(t, at(saturday, 9, 0), segments[0].Start)
	assert.Equal(t, at(saturday, 17, 0), segments[0].End)
	assert.Equal(t, 480, segments[0].Minutes())
}

func TestSegment_WeekendOvernight_SplitsAtMidnight(t *testing.T) {
	// GIVEN: Saturday 20:00 until Sunday 04:00
	// THEN: Two segments split at midnight, first/last day labels

	end := time.Date(2025, time.March, 9, 4, 0, 0, 0, time.UTC)
	shift := mkShift(at(saturday, 20, 0), end)
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	require.Len(t, segments, 2)
	assert.Equal(t, overtime.LabelWeekendFirstDay, segments[0].Label)
	assert.Equal(t, at(saturday, 20, 0), segments[0].Start)
	assert.Equal(t, time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC), segments[0].End)

	assert.Equal(t, overtime.LabelWeekendLastDay, segments[1].Label)
	assert.Equal(t, time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC), segments[1].Start)
	assert.Equal(t, end, segments[1].End)
}

func TestSegment_WeekendMultiDay_ReconstructsInterval(t *testing.T) {
	// GIVEN: Saturday 22:00 until Monday 02:00 (touches 3 calendar days)
	// THEN: Exactly 3 segments whose concatenation reconstructs the interval

	start := at(saturday, 22, 0)
	end := time.Date(2025, time.March, 10, 2, 0, 0, 0, time.UTC)
	shift := mkShift(start, end)
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	require.Len(t, segments, 3)
	assert.Equal(t, overtime.LabelWeekendFirstDay, segments[0].Label)
	assert.Equal(t, overtime.LabelWeekendIntermediate, segments[1].Label)
	assert.Equal(t, overtime.LabelWeekendLastDay, segments[2].Label)

	assert.Equal(t, start, segments[0].Start)
	for i := 1; i < len(segments); i++ {
		assert.Equal(t, segments[i-1].End, segments[i].Start, "no gaps or overlaps")
	}
	assert.Equal(t, end, segments[len(segments)-1].End)
}

func TestSegment_WeekendRuleFollowsStartDay(t *testing.T) {
	// GIVEN: Sunday 20:00 until Monday 04:00
	// THEN: The whole shift is weekend regime, split only at midnight,
	//       even though the second day is a weekday

	sunday := time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.March, 10, 4, 0, 0, 0, time.UTC)
	shift := mkShift(at(sunday, 20, 0), end)
	segments := overtime.SegmentShift(shift, overtime.DefaultConfig())

	require.Len(t, segments, 2)
	assert.Equal(t, overtime.LabelWeekendFirstDay, segments[0].Label)
	assert.Equal(t, overtime.LabelWeekendLastDay, segments[1].Label)
}

// =============================================================================
// CONFIG VARIATIONS
// =============================================================================

func TestSegment_CustomRegularHours(t *testing.T) {
	// GIVEN: Regular hours 09:00-17:30
	// THEN: Band anchors follow the configuration

	cfg := overtime.DefaultConfig()
	cfg.RegularStart = overtime.NewClockTime(9, 0)
	cfg.RegularEnd = overtime.NewClockTime(17, 30)

	shift := mkShift(at(monday, 7, 0), at(monday, 19, 0))
	segments := overtime.SegmentShift(shift, cfg)

	require.Len(t, segments, 2)
	assert.Equal(t, at(monday, 9, 0), segments[0].End)
	assert.Equal(t, at(monday, 17, 30), segments[1].Start)
	assert.Equal(t, at(monday, 19, 0), segments[1].End)
}

func TestSegment_CustomWeekendSet(t *testing.T) {
	// GIVEN: Friday configured as a weekend day
	// THEN: A Friday shift takes the weekend path

	cfg := overtime.DefaultConfig()
	cfg.WeekendDays[time.Friday] = true

	shift := mkShift(at(friday, 9, 0), at(friday, 17, 0))
	segments := overtime.SegmentShift(shift, cfg)

	require.Len(t, segments, 1)
	assert.Equal(t, overtime.LabelWeekendFullShift, segments[0].Label)
}
