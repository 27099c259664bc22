package execution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go-reports/internal/config"
	"go-reports/internal/connectors"
	"go-reports/internal/features/datasource"
	"go-reports/internal/features/report"
	"go-reports/internal/taskqueue"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DeliveryPlanner tells the generator whether a completed execution should
// be queued for email delivery. Implemented by the distribution feature and
// wired as an adapter in main.
type DeliveryPlanner interface {
	DeliveryEnabled(ctx context.Context, reportID primitive.ObjectID) (bool, error)
}

type ExecutionService interface {
	// Launch creates a pending execution and queues its generation
	Launch(ctx context.Context, reportID primitive.ObjectID, trigger string) (primitive.ObjectID, error)

	// Generate runs one queued execution end to end. Registered as the
	// generation task handler; errors land on the execution record.
	Generate(ctx context.Context, executionID string) error

	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context) ([]Execution, error)
	ListByReport(ctx context.Context, reportID string) ([]Execution, error)

	// Cancel stops a pending or running execution. Running executions get
	// their context cancelled so the query and rendering stop promptly.
	Cancel(ctx context.Context, id string) error

	// Retry queues a fresh run for a failed execution
	Retry(ctx context.Context, id string) (primitive.ObjectID, error)

	DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error

	// SweepExpired purges terminal executions past the retention window
	// along with their artifacts, returning the number purged
	SweepExpired(ctx context.Context) (int, error)
}

type ExecutionServiceImpl struct {
	repo        ExecutionRepository
	reports     report.ReportRepository
	compiler    *report.QueryCompiler
	dataSources datasource.DataSourceService
	renderer    *Renderer
	queue       taskqueue.Queue
	planner     DeliveryPlanner
	cfg         *config.Config
	log         *zap.Logger

	// one generation at a time per report
	reportLocks sync.Map // reportID hex -> *sync.Mutex

	// live cancellation funcs for running executions
	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewExecutionService(
	repo ExecutionRepository,
	reports report.ReportRepository,
	compiler *report.QueryCompiler,
	dataSources datasource.DataSourceService,
	renderer *Renderer,
	queue taskqueue.Queue,
	planner DeliveryPlanner,
	cfg *config.Config,
	log *zap.Logger,
) ExecutionService {
	return &ExecutionServiceImpl{
		repo:        repo,
		reports:     reports,
		compiler:    compiler,
		dataSources: dataSources,
		renderer:    renderer,
		queue:       queue,
		planner:     planner,
		cfg:         cfg,
		log:         log,
		running:     make(map[string]context.CancelFunc),
	}
}

func (s *ExecutionServiceImpl) Launch(ctx context.Context, reportID primitive.ObjectID, trigger string) (primitive.ObjectID, error) {
	exec := &Execution{
		ReportID: reportID,
		Status:   StatusPending,
		Trigger:  trigger,
	}
	if err := s.repo.Create(ctx, exec); err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to create execution: %w", err)
	}

	s.queue.EnqueueGeneration(exec.ID.Hex())
	return exec.ID, nil
}

func (s *ExecutionServiceImpl) Generate(ctx context.Context, executionID string) error {
	execID, err := primitive.ObjectIDFromHex(executionID)
	if err != nil {
		return fmt.Errorf("invalid execution id %q: %w", executionID, err)
	}

	exec, err := s.repo.Get(ctx, execID)
	if err != nil {
		return fmt.Errorf("execution %s not found: %w", executionID, err)
	}

	// Serialize runs of the same report; concurrent runs of different
	// reports proceed in parallel
	lock := s.reportLock(exec.ReportID.Hex())
	lock.Lock()
	defer lock.Unlock()

	if err := s.repo.MarkRunning(ctx, execID); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// Cancelled while queued; nothing to do
			s.log.Info("execution no longer pending, skipping",
				zap.String("executionId", executionID))
			return nil
		}
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx,
		time.Duration(s.cfg.ExecutionTimeoutMinutes)*time.Minute)
	s.register(executionID, cancel)
	defer s.unregister(executionID)

	warn := time.AfterFunc(time.Duration(s.cfg.ExecutionWarnMinutes)*time.Minute, func() {
		s.log.Warn("execution approaching timeout",
			zap.String("executionId", executionID),
			zap.String("reportId", exec.ReportID.Hex()),
			zap.Int("timeoutMinutes", s.cfg.ExecutionTimeoutMinutes))
	})
	defer warn.Stop()

	if err := s.generate(runCtx, exec); err != nil {
		return s.settleFailure(exec, runCtx, err)
	}
	return nil
}

func (s *ExecutionServiceImpl) generate(ctx context.Context, exec *Execution) error {
	rpt, err := s.reports.Get(ctx, exec.ReportID)
	if err != nil {
		return fmt.Errorf("report not found: %w", err)
	}

	compiled, err := s.compiler.Compile(rpt)
	if err != nil {
		return fmt.Errorf("query compilation failed: %w", err)
	}

	result := &connectors.QueryResult{Columns: []string{}, Rows: []map[string]interface{}{}}
	if !compiled.Empty() {
		conn, err := s.dataSources.Connection(ctx, rpt.TableRefs[0].DataSourceID)
		if err != nil {
			return fmt.Errorf("data source unavailable: %w", err)
		}

		result, err = conn.Execute(ctx, compiled.SQL, compiled.Params)
		if err != nil {
			return fmt.Errorf("query execution failed: %w", err)
		}
	}

	rendered, err := s.renderer.Render(rpt.Format, rpt.Name, exec.ID.Hex(), result)
	if err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}

	if err := s.repo.MarkCompleted(ctx, exec.ID, CompletionResult{
		FilePath: rendered.URL,
		FileSize: rendered.Size,
		RowCount: len(result.Rows),
	}); err != nil {
		return err
	}

	if err := s.reports.RecordExecution(ctx, rpt.ID, time.Now()); err != nil {
		s.log.Error("failed to record execution on report",
			zap.String("reportId", rpt.ID.Hex()), zap.Error(err))
	}

	s.log.Info("report generated",
		zap.String("reportId", rpt.ID.Hex()),
		zap.String("executionId", exec.ID.Hex()),
		zap.Int("rows", len(result.Rows)),
		zap.Int64("bytes", rendered.Size))

	enabled, err := s.planner.DeliveryEnabled(ctx, rpt.ID)
	if err != nil {
		s.log.Error("failed to check distribution config",
			zap.String("reportId", rpt.ID.Hex()), zap.Error(err))
		return nil
	}
	if enabled {
		s.queue.EnqueueDelivery(exec.ID.Hex())
	}
	return nil
}

// settleFailure records the terminal state for a failed run. It settles on a
// fresh context: both the run context and the worker's parent context may
// already be dead when the process is shutting down.
func (s *ExecutionServiceImpl) settleFailure(exec *Execution, runCtx context.Context, cause error) error {
	executionID := exec.ID.Hex()

	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()

	switch {
	case errors.Is(runCtx.Err(), context.Canceled):
		// A cancelled run context means either Cancel() fired (the record is
		// already cancelled) or the queue is shutting down mid-run. Only the
		// former is a user cancellation.
		latest, err := s.repo.Get(ctx, exec.ID)
		if err == nil && latest.Status == StatusCancelled {
			s.log.Info("execution cancelled",
				zap.String("executionId", executionID),
				zap.String("reportId", exec.ReportID.Hex()))
			return nil
		}
		cause = fmt.Errorf("execution interrupted before completion")
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		cause = fmt.Errorf("execution exceeded %d minute limit", s.cfg.ExecutionTimeoutMinutes)
	}

	if err := s.repo.MarkFailed(ctx, exec.ID, cause.Error()); err != nil {
		s.log.Error("failed to mark execution failed",
			zap.String("executionId", executionID), zap.Error(err))
	}

	s.log.Error("report generation failed",
		zap.String("executionId", executionID),
		zap.String("reportId", exec.ReportID.Hex()),
		zap.Error(cause))
	return nil
}

func (s *ExecutionServiceImpl) GetExecution(ctx context.Context, id string) (*Execution, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, oid)
}

func (s *ExecutionServiceImpl) ListExecutions(ctx context.Context) ([]Execution, error) {
	return s.repo.List(ctx, 200)
}

func (s *ExecutionServiceImpl) ListByReport(ctx context.Context, reportID string) ([]Execution, error) {
	oid, err := primitive.ObjectIDFromHex(reportID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByReport(ctx, oid, 200)
}

func (s *ExecutionServiceImpl) Cancel(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	exec, err := s.repo.Get(ctx, oid)
	if err != nil {
		return err
	}
	if exec.Status.Terminal() {
		return fmt.Errorf("execution is already %s", exec.Status)
	}

	// Record first, then interrupt: a racing completion loses to the guarded
	// transition, not to the context
	if err := s.repo.MarkCancelled(ctx, oid); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return fmt.Errorf("execution finished before it could be cancelled")
		}
		return err
	}

	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}

	s.log.Info("execution cancelled by request", zap.String("executionId", id))
	return nil
}

func (s *ExecutionServiceImpl) Retry(ctx context.Context, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, err
	}

	exec, err := s.repo.Get(ctx, oid)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if exec.Status != StatusFailed {
		return primitive.NilObjectID, fmt.Errorf("only failed executions can be retried, status is %s", exec.Status)
	}

	retry := &Execution{
		ReportID:   exec.ReportID,
		Status:     StatusPending,
		Trigger:    "retry",
		RetryCount: exec.RetryCount + 1,
	}
	if err := s.repo.Create(ctx, retry); err != nil {
		return primitive.NilObjectID, err
	}

	s.queue.EnqueueGeneration(retry.ID.Hex())
	return retry.ID, nil
}

func (s *ExecutionServiceImpl) DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error {
	return s.repo.DeleteByReport(ctx, reportID)
}

func (s *ExecutionServiceImpl) SweepExpired(ctx context.Context) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	paths, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, urlPath := range paths {
		full := s.physicalPath(urlPath)
		if full == "" {
			continue
		}
		if err := os.Remove(full); err != nil {
			if !os.IsNotExist(err) {
				s.log.Warn("failed to remove expired artifact",
					zap.String("path", full), zap.Error(err))
			}
			continue
		}
		removed++
	}

	s.log.Info("retention sweep finished",
		zap.Time("cutoff", cutoff),
		zap.Int("executionsPurged", len(paths)),
		zap.Int("filesRemoved", removed))
	return len(paths), nil
}

// physicalPath maps the persisted URL path back onto the filesystem root
func (s *ExecutionServiceImpl) physicalPath(urlPath string) string {
	rel := strings.TrimPrefix(urlPath, s.cfg.FSURL)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || strings.Contains(rel, "..") {
		return ""
	}
	return filepath.Join(s.cfg.FSPath, filepath.FromSlash(rel))
}

func (s *ExecutionServiceImpl) reportLock(reportID string) *sync.Mutex {
	lock, _ := s.reportLocks.LoadOrStore(reportID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (s *ExecutionServiceImpl) register(executionID string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.running[executionID] = cancel
	s.mu.Unlock()
}

func (s *ExecutionServiceImpl) unregister(executionID string) {
	s.mu.Lock()
	if cancel, ok := s.running[executionID]; ok {
		cancel()
		delete(s.running, executionID)
	}
	s.mu.Unlock()
}
