package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ExecutionLauncher starts a run for a report. Implemented by the execution
// feature and wired as an adapter in main.
type ExecutionLauncher interface {
	Launch(ctx context.Context, reportID primitive.ObjectID, trigger string) (primitive.ObjectID, error)
}

type ScheduleService interface {
	CreateSchedule(ctx context.Context, schedule *Schedule) error
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	ListSchedules(ctx context.Context) ([]Schedule, error)
	ListByReport(ctx context.Context, reportID string) ([]Schedule, error)
	UpdateSchedule(ctx context.Context, id string, schedule *Schedule) error
	DeleteSchedule(ctx context.Context, id string) error

	// Initialize starts the minutely due-schedule poller
	Initialize(lc fx.Lifecycle)
}

type ScheduleServiceImpl struct {
	repo     ScheduleRepository
	launcher ExecutionLauncher
	cron     *cron.Cron
	log      *zap.Logger
}

func NewScheduleService(repo ScheduleRepository, launcher ExecutionLauncher, log *zap.Logger) ScheduleService {
	return &ScheduleServiceImpl{
		repo:     repo,
		launcher: launcher,
		cron:     cron.New(),
		log:      log,
	}
}

func (s *ScheduleServiceImpl) CreateSchedule(ctx context.Context, schedule *Schedule) error {
	if err := schedule.Validate(); err != nil {
		return err
	}
	if schedule.ReportID.IsZero() {
		return fmt.Errorf("schedule requires a report_id")
	}
	if schedule.Timezone == "" {
		schedule.Timezone = "UTC"
	}

	if schedule.IsEnabled {
		next := schedule.ComputeNext(time.Now())
		schedule.NextExecution = &next
	}
	return s.repo.Create(ctx, schedule)
}

func (s *ScheduleServiceImpl) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, oid)
}

func (s *ScheduleServiceImpl) ListSchedules(ctx context.Context) ([]Schedule, error) {
	return s.repo.List(ctx)
}

func (s *ScheduleServiceImpl) ListByReport(ctx context.Context, reportID string) ([]Schedule, error) {
	oid, err := primitive.ObjectIDFromHex(reportID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByReport(ctx, oid)
}

func (s *ScheduleServiceImpl) UpdateSchedule(ctx context.Context, id string, schedule *Schedule) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	if err := schedule.Validate(); err != nil {
		return err
	}

	schedule.ID = oid
	if schedule.IsEnabled {
		// Recurrence settings may have changed; recompute from now
		next := schedule.ComputeNext(time.Now())
		schedule.NextExecution = &next
	} else {
		schedule.NextExecution = nil
	}
	return s.repo.Update(ctx, schedule)
}

func (s *ScheduleServiceImpl) DeleteSchedule(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, oid)
}

// Initialize registers the minutely poller on the fx lifecycle
func (s *ScheduleServiceImpl) Initialize(lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := s.cron.AddFunc("* * * * *", s.pollDue)
			if err != nil {
				return fmt.Errorf("failed to register schedule poller: %w", err)
			}
			s.cron.Start()
			s.log.Info("schedule poller started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := s.cron.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			s.log.Info("schedule poller stopped")
			return nil
		},
	})
}

// pollDue fires every due schedule at most once. The claim advances
// next_execution atomically, so concurrent pollers cannot double-fire.
func (s *ScheduleServiceImpl) pollDue() {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
	defer cancel()

	now := time.Now()
	due, err := s.repo.FindDue(ctx, now)
	if err != nil {
		s.log.Error("failed to query due schedules", zap.Error(err))
		return
	}

	for _, schedule := range due {
		s.fire(ctx, schedule, now)
	}
}

func (s *ScheduleServiceImpl) fire(ctx context.Context, schedule Schedule, now time.Time) {
	if schedule.Expired(now) {
		if err := s.repo.Disable(ctx, schedule.ID); err != nil {
			s.log.Error("failed to disable expired schedule",
				zap.String("scheduleId", schedule.ID.Hex()), zap.Error(err))
		} else {
			s.log.Info("schedule passed its end date, disabled",
				zap.String("scheduleId", schedule.ID.Hex()),
				zap.String("reportId", schedule.ReportID.Hex()))
		}
		return
	}

	if schedule.NextExecution == nil {
		return
	}

	next := schedule.ComputeNext(now)
	claimed, err := s.repo.Claim(ctx, schedule.ID, *schedule.NextExecution, next, now)
	if err != nil {
		s.log.Error("failed to claim schedule",
			zap.String("scheduleId", schedule.ID.Hex()), zap.Error(err))
		return
	}
	if !claimed {
		return // another poller got there first
	}

	execID, err := s.launcher.Launch(ctx, schedule.ReportID, "scheduled")
	if err != nil {
		s.log.Error("failed to launch scheduled execution",
			zap.String("scheduleId", schedule.ID.Hex()),
			zap.String("reportId", schedule.ReportID.Hex()),
			zap.Error(err))
		return
	}

	s.log.Info("scheduled execution queued",
		zap.String("scheduleId", schedule.ID.Hex()),
		zap.String("reportId", schedule.ReportID.Hex()),
		zap.String("executionId", execID.Hex()),
		zap.Time("nextExecution", next))
}
