package schedule

import (
	"testing"
	"time"
)

func intPtr(i int) *int { return &i }

func TestComputeNextDaily(t *testing.T) {
	s := &Schedule{Frequency: FrequencyDaily, TimeOfDay: "09:00"}

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "before today's slot fires today",
			after: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name:  "after today's slot fires tomorrow",
			after: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			name:  "exactly at the slot fires tomorrow",
			after: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ComputeNext(tt.after); !got.Equal(tt.want) {
				t.Errorf("ComputeNext(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}
}

func TestComputeNextWeekly(t *testing.T) {
	// Monday = 0
	s := &Schedule{Frequency: FrequencyWeekly, DayOfWeek: intPtr(0), TimeOfDay: "09:00"}

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			// 2026-03-09 is a Monday
			name:  "monday after the slot moves a full week",
			after: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC),
		},
		{
			name:  "monday before the slot fires same day",
			after: time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC),
		},
		{
			// 2026-03-11 is a Wednesday
			name:  "midweek advances to next monday",
			after: time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ComputeNext(tt.after); !got.Equal(tt.want) {
				t.Errorf("ComputeNext(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}
}

func TestComputeNextMonthlyClampsShortMonths(t *testing.T) {
	s := &Schedule{Frequency: FrequencyMonthly, DayOfMonth: intPtr(31), TimeOfDay: "06:30"}

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "march into 30-day april",
			after: time.Date(2026, 3, 31, 7, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 4, 30, 6, 30, 0, 0, time.UTC),
		},
		{
			name:  "current month slot still ahead fires this month",
			after: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 1, 31, 6, 30, 0, 0, time.UTC),
		},
		{
			name:  "january into 28-day february",
			after: time.Date(2026, 1, 31, 7, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 2, 28, 6, 30, 0, 0, time.UTC),
		},
		{
			name:  "leap year february keeps day 29",
			after: time.Date(2028, 1, 31, 7, 0, 0, 0, time.UTC),
			want:  time.Date(2028, 2, 29, 6, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ComputeNext(tt.after); !got.Equal(tt.want) {
				t.Errorf("ComputeNext(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}
}

func TestComputeNextQuarterly(t *testing.T) {
	tests := []struct {
		name      string
		timeOfDay string
		after     time.Time
		want      time.Time
	}{
		{
			name:      "today's slot still ahead fires today",
			timeOfDay: "18:00",
			after:     time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
			want:      time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC),
		},
		{
			name:      "today's slot passed advances 90 days",
			timeOfDay: "00:00",
			after:     time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
			want:      time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Schedule{Frequency: FrequencyQuarterly, TimeOfDay: tt.timeOfDay}
			if got := s.ComputeNext(tt.after); !got.Equal(tt.want) {
				t.Errorf("ComputeNext(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}
}

func TestComputeNextIsMonotonic(t *testing.T) {
	schedules := []*Schedule{
		{Frequency: FrequencyDaily, TimeOfDay: "00:00"},
		{Frequency: FrequencyWeekly, DayOfWeek: intPtr(6), TimeOfDay: "23:59"},
		{Frequency: FrequencyMonthly, DayOfMonth: intPtr(1), TimeOfDay: "12:00"},
		{Frequency: FrequencyQuarterly, TimeOfDay: "08:00"},
	}

	now := time.Date(2026, 2, 28, 13, 37, 0, 0, time.UTC)
	for _, s := range schedules {
		next := s.ComputeNext(now)
		if !next.After(now) {
			t.Errorf("%s: next %v is not after %v", s.Frequency, next, now)
		}
	}
}

func TestComputeNextRepeatedAdvance(t *testing.T) {
	// Advancing from each fire time must keep the wall-clock slot stable
	s := &Schedule{Frequency: FrequencyDaily, TimeOfDay: "09:00"}

	cursor := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		next := s.ComputeNext(cursor)
		if next.Hour() != 9 || next.Minute() != 0 {
			t.Fatalf("fire time drifted to %02d:%02d after %d advances", next.Hour(), next.Minute(), i+1)
		}
		if !next.After(cursor) {
			t.Fatalf("advance %d not monotonic: %v -> %v", i+1, cursor, next)
		}
		cursor = next
	}
}

func TestComputeNextHonorsTimezone(t *testing.T) {
	s := &Schedule{Frequency: FrequencyDaily, TimeOfDay: "09:00", Timezone: "America/New_York"}
	after := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	got := s.ComputeNext(after)
	loc, _ := time.LoadLocation("America/New_York")
	local := got.In(loc)
	if local.Hour() != 9 || local.Minute() != 0 {
		t.Errorf("fire time %v is %02d:%02d local, want 09:00", got, local.Hour(), local.Minute())
	}
}

func TestComputeNextRespectsFutureStartDate(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s := &Schedule{Frequency: FrequencyDaily, TimeOfDay: "09:00", StartDate: &start}

	got := s.ComputeNext(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	if got.Before(start) {
		t.Errorf("next %v fires before start date %v", got, start)
	}
	if !got.Equal(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("next = %v, want first slot on start date", got)
	}
}

func TestScheduleValidate(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		wantErr  bool
	}{
		{
			name:     "valid daily",
			schedule: Schedule{Frequency: FrequencyDaily, TimeOfDay: "09:00"},
		},
		{
			name:     "weekly without day_of_week",
			schedule: Schedule{Frequency: FrequencyWeekly, TimeOfDay: "09:00"},
			wantErr:  true,
		},
		{
			name:     "weekly with day out of range",
			schedule: Schedule{Frequency: FrequencyWeekly, DayOfWeek: intPtr(7), TimeOfDay: "09:00"},
			wantErr:  true,
		},
		{
			name:     "monthly without day_of_month",
			schedule: Schedule{Frequency: FrequencyMonthly, TimeOfDay: "09:00"},
			wantErr:  true,
		},
		{
			name:     "unknown frequency",
			schedule: Schedule{Frequency: "hourly", TimeOfDay: "09:00"},
			wantErr:  true,
		},
		{
			name:     "bad time of day",
			schedule: Schedule{Frequency: FrequencyDaily, TimeOfDay: "25:00"},
			wantErr:  true,
		},
		{
			name:     "bad timezone",
			schedule: Schedule{Frequency: FrequencyDaily, TimeOfDay: "09:00", Timezone: "Mars/Olympus"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schedule.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
