package report

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ExecutionLauncher starts a run for a report and returns the execution id.
// Implemented by the execution feature; wired as an adapter in main.
type ExecutionLauncher interface {
	Launch(ctx context.Context, reportID primitive.ObjectID, trigger string) (primitive.ObjectID, error)
}

// Cascade cleanup ports. Deleting a report removes its schedules,
// distribution config and execution history; adapters are wired in main.
type ScheduleCleanup interface {
	DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error
}

type DistributionCleanup interface {
	DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error
}

type ExecutionCleanup interface {
	DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error
}

type ReportService interface {
	CreateReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context) ([]Report, error)
	UpdateReport(ctx context.Context, id string, report *Report) error
	DeleteReport(ctx context.Context, id string) error
	DuplicateReport(ctx context.Context, id string) (*Report, error)

	// ExecuteReport queues a manual run and returns the new execution id
	ExecuteReport(ctx context.Context, id string) (primitive.ObjectID, error)

	// Preview compiles the report without executing it
	Preview(ctx context.Context, id string) (*CompiledQuery, error)
}

type ReportServiceImpl struct {
	repo          ReportRepository
	compiler      *QueryCompiler
	launcher      ExecutionLauncher
	schedules     ScheduleCleanup
	distributions DistributionCleanup
	executions    ExecutionCleanup
	log           *zap.Logger
}

func NewReportService(
	repo ReportRepository,
	compiler *QueryCompiler,
	launcher ExecutionLauncher,
	schedules ScheduleCleanup,
	distributions DistributionCleanup,
	executions ExecutionCleanup,
	log *zap.Logger,
) ReportService {
	return &ReportServiceImpl{
		repo:          repo,
		compiler:      compiler,
		launcher:      launcher,
		schedules:     schedules,
		distributions: distributions,
		executions:    executions,
		log:           log,
	}
}

func (s *ReportServiceImpl) CreateReport(ctx context.Context, report *Report) error {
	if err := report.Validate(); err != nil {
		return err
	}
	if report.Format == "" {
		report.Format = FormatPDF
	}
	if report.Template == "" {
		report.Template = TemplateBusinessStandard
	}
	if report.Layout == "" {
		report.Layout = LayoutTable
	}
	return s.repo.Create(ctx, report)
}

func (s *ReportServiceImpl) GetReport(ctx context.Context, id string) (*Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, oid)
}

func (s *ReportServiceImpl) ListReports(ctx context.Context) ([]Report, error) {
	return s.repo.List(ctx)
}

func (s *ReportServiceImpl) UpdateReport(ctx context.Context, id string, report *Report) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	if err := report.Validate(); err != nil {
		return err
	}
	report.ID = oid
	return s.repo.Update(ctx, report)
}

func (s *ReportServiceImpl) DeleteReport(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	// Dependent documents go first so a crash leaves no orphaned schedule
	// still firing against a missing report
	if err := s.schedules.DeleteByReport(ctx, oid); err != nil {
		return fmt.Errorf("failed to delete report schedules: %w", err)
	}
	if err := s.distributions.DeleteByReport(ctx, oid); err != nil {
		return fmt.Errorf("failed to delete report distribution: %w", err)
	}
	if err := s.executions.DeleteByReport(ctx, oid); err != nil {
		return fmt.Errorf("failed to delete report executions: %w", err)
	}

	return s.repo.Delete(ctx, oid)
}

func (s *ReportServiceImpl) DuplicateReport(ctx context.Context, id string) (*Report, error) {
	original, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	copied := *original
	copied.ID = primitive.NilObjectID
	copied.Name = original.Name + " (Copy)"
	copied.ExecutionCount = 0
	copied.LastExecuted = nil

	if err := s.repo.Create(ctx, &copied); err != nil {
		return nil, err
	}
	return &copied, nil
}

func (s *ReportServiceImpl) ExecuteReport(ctx context.Context, id string) (primitive.ObjectID, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !report.IsActive {
		return primitive.NilObjectID, fmt.Errorf("report %s is not active", report.Name)
	}
	if !report.Executable() {
		return primitive.NilObjectID, fmt.Errorf("report %s has no tables or fields configured", report.Name)
	}

	execID, err := s.launcher.Launch(ctx, report.ID, "manual")
	if err != nil {
		return primitive.NilObjectID, err
	}

	s.log.Info("report execution queued",
		zap.String("reportId", report.ID.Hex()),
		zap.String("executionId", execID.Hex()))
	return execID, nil
}

func (s *ReportServiceImpl) Preview(ctx context.Context, id string) (*CompiledQuery, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.compiler.Compile(report)
}
