package schedule

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// Schedule fires a report on a recurrence rule. DayOfWeek is 0-6 with
// Monday as 0; DayOfMonth clamps to the last day of shorter months.
type Schedule struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ReportID primitive.ObjectID `json:"report_id" bson:"report_id"`

	Frequency  Frequency `json:"frequency" bson:"frequency"`
	DayOfWeek  *int      `json:"day_of_week,omitempty" bson:"day_of_week,omitempty"`
	DayOfMonth *int      `json:"day_of_month,omitempty" bson:"day_of_month,omitempty"`
	TimeOfDay  string    `json:"time_of_day" bson:"time_of_day"` // "HH:MM"
	Timezone   string    `json:"timezone" bson:"timezone"`

	StartDate *time.Time `json:"start_date,omitempty" bson:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty" bson:"end_date,omitempty"`

	IsEnabled     bool       `json:"is_enabled" bson:"is_enabled"`
	NextExecution *time.Time `json:"next_execution,omitempty" bson:"next_execution,omitempty"`
	LastExecution *time.Time `json:"last_execution,omitempty" bson:"last_execution,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (s *Schedule) Validate() error {
	switch s.Frequency {
	case FrequencyDaily, FrequencyQuarterly:
	case FrequencyWeekly:
		if s.DayOfWeek == nil {
			return fmt.Errorf("weekly schedules require day_of_week")
		}
		if *s.DayOfWeek < 0 || *s.DayOfWeek > 6 {
			return fmt.Errorf("day_of_week must be between 0 (Monday) and 6 (Sunday)")
		}
	case FrequencyMonthly:
		if s.DayOfMonth == nil {
			return fmt.Errorf("monthly schedules require day_of_month")
		}
		if *s.DayOfMonth < 1 || *s.DayOfMonth > 31 {
			return fmt.Errorf("day_of_month must be between 1 and 31")
		}
	default:
		return fmt.Errorf("unsupported frequency %q", s.Frequency)
	}

	if _, _, err := parseTimeOfDay(s.TimeOfDay); err != nil {
		return err
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q", s.Timezone)
		}
	}
	if s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate) {
		return fmt.Errorf("end_date must be after start_date")
	}
	return nil
}

func parseTimeOfDay(tod string) (hour, minute int, err error) {
	if _, err := time.Parse("15:04", tod); err != nil {
		return 0, 0, fmt.Errorf("time_of_day must be HH:MM, got %q", tod)
	}
	fmt.Sscanf(tod, "%d:%d", &hour, &minute)
	return hour, minute, nil
}

// Expired reports whether the schedule has run past its end date
func (s *Schedule) Expired(now time.Time) bool {
	return s.EndDate != nil && now.After(*s.EndDate)
}
