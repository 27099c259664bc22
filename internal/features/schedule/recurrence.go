package schedule

import (
	"time"
)

// ComputeNext computes the first fire time strictly after the given
// instant. All arithmetic is calendar-aware in the schedule's timezone, so
// DST transitions and month lengths cannot drift the wall-clock fire time.
func (s *Schedule) ComputeNext(after time.Time) time.Time {
	loc := s.location()
	hour, minute, err := parseTimeOfDay(s.TimeOfDay)
	if err != nil {
		hour, minute = 0, 0
	}

	from := after.In(loc)
	if s.StartDate != nil && s.StartDate.After(after) {
		// First fire happens at the first slot on or after the start date
		from = s.StartDate.In(loc).Add(-time.Second)
	}

	var next time.Time
	switch s.Frequency {
	case FrequencyWeekly:
		next = s.nextWeekly(from, hour, minute, loc)
	case FrequencyMonthly:
		next = s.nextMonthly(from, hour, minute, loc)
	case FrequencyQuarterly:
		next = at(from, hour, minute, loc)
		if !next.After(from) {
			next = at(from.AddDate(0, 0, 90), hour, minute, loc)
		}
	default: // daily, and any unknown frequency degrades to daily
		next = at(from, hour, minute, loc)
		if !next.After(from) {
			next = at(from.AddDate(0, 0, 1), hour, minute, loc)
		}
	}

	return next.UTC()
}

// nextWeekly advances to the configured weekday, Monday indexed as 0. When
// today is the target day but the time already passed, it moves a full week.
func (s *Schedule) nextWeekly(from time.Time, hour, minute int, loc *time.Location) time.Time {
	target := 0
	if s.DayOfWeek != nil {
		target = *s.DayOfWeek
	}

	current := mondayIndex(from.Weekday())
	ahead := (target - current + 7) % 7
	candidate := at(from.AddDate(0, 0, ahead), hour, minute, loc)
	if !candidate.After(from) {
		candidate = at(from.AddDate(0, 0, ahead+7), hour, minute, loc)
	}
	return candidate
}

// nextMonthly fires on the configured day of the current month if that slot
// is still ahead, otherwise on the same day of the following month. The day
// clamps to the month's last day (31st in April becomes the 30th).
func (s *Schedule) nextMonthly(from time.Time, hour, minute int, loc *time.Location) time.Time {
	day := 1
	if s.DayOfMonth != nil {
		day = *s.DayOfMonth
	}

	candidate := monthlySlot(from.Year(), from.Month(), day, hour, minute, loc)
	if candidate.After(from) {
		return candidate
	}

	year, month, _ := from.AddDate(0, 1, -from.Day()+1).Date()
	return monthlySlot(year, month, day, hour, minute, loc)
}

func monthlySlot(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func at(day time.Time, hour, minute int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
}

// mondayIndex converts Go's Sunday-based weekday to the Monday=0 convention
// used by schedule configuration
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (s *Schedule) location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
