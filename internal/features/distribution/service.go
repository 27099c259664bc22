package distribution

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-reports/internal/config"
	emails "go-reports/internal/email"
	"go-reports/internal/features/execution"
	"go-reports/internal/features/report"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type DistributionService interface {
	// SaveDistribution creates or replaces the report's delivery settings
	SaveDistribution(ctx context.Context, dist *Distribution) error
	GetByReport(ctx context.Context, reportID string) (*Distribution, error)
	DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error

	// DeliveryEnabled reports whether a completed execution of the report
	// should be emailed out
	DeliveryEnabled(ctx context.Context, reportID primitive.ObjectID) (bool, error)

	// Deliver emails a completed execution's artifact to every recipient.
	// Registered as the delivery task handler; the outcome lands on the
	// execution record and never changes the execution status.
	Deliver(ctx context.Context, executionID string) error
}

type DistributionServiceImpl struct {
	repo       DistributionRepository
	executions execution.ExecutionRepository
	reports    report.ReportRepository
	cfg        *config.Config
	log        *zap.Logger
}

func NewDistributionService(
	repo DistributionRepository,
	executions execution.ExecutionRepository,
	reports report.ReportRepository,
	cfg *config.Config,
	log *zap.Logger,
) DistributionService {
	return &DistributionServiceImpl{
		repo:       repo,
		executions: executions,
		reports:    reports,
		cfg:        cfg,
		log:        log,
	}
}

func (s *DistributionServiceImpl) SaveDistribution(ctx context.Context, dist *Distribution) error {
	if err := dist.Validate(); err != nil {
		return err
	}
	return s.repo.Upsert(ctx, dist)
}

func (s *DistributionServiceImpl) GetByReport(ctx context.Context, reportID string) (*Distribution, error) {
	oid, err := primitive.ObjectIDFromHex(reportID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByReport(ctx, oid)
}

func (s *DistributionServiceImpl) DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error {
	return s.repo.DeleteByReport(ctx, reportID)
}

func (s *DistributionServiceImpl) DeliveryEnabled(ctx context.Context, reportID primitive.ObjectID) (bool, error) {
	dist, err := s.repo.GetByReport(ctx, reportID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, err
	}
	return dist.IsEnabled && len(dist.Recipients) > 0, nil
}

func (s *DistributionServiceImpl) Deliver(ctx context.Context, executionID string) error {
	execID, err := primitive.ObjectIDFromHex(executionID)
	if err != nil {
		return fmt.Errorf("invalid execution id %q: %w", executionID, err)
	}

	exec, err := s.executions.Get(ctx, execID)
	if err != nil {
		return fmt.Errorf("execution %s not found: %w", executionID, err)
	}
	if exec.Status != execution.StatusCompleted {
		s.log.Warn("skipping delivery, execution not completed",
			zap.String("executionId", executionID),
			zap.String("status", string(exec.Status)))
		return nil
	}

	dist, err := s.repo.GetByReport(ctx, exec.ReportID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil
		}
		return err
	}
	if !dist.IsEnabled || len(dist.Recipients) == 0 {
		return nil
	}

	rpt, err := s.reports.Get(ctx, exec.ReportID)
	if err != nil {
		return fmt.Errorf("report not found: %w", err)
	}

	attachment, err := s.loadArtifact(exec.FilePath)
	if err != nil {
		s.log.Error("failed to load report artifact for delivery",
			zap.String("executionId", executionID),
			zap.String("filePath", exec.FilePath),
			zap.Error(err))
		return s.executions.UpdateEmailOutcome(ctx, execID, 0, execution.EmailFailed)
	}

	generatedAt := time.Now()
	if exec.CompletedAt != nil {
		generatedAt = *exec.CompletedAt
	}

	subject := RenderTemplate(dist.SubjectTemplate, rpt.Name, generatedAt, exec.RowCount)
	if subject == "" {
		subject = fmt.Sprintf("Report: %s", rpt.Name)
	}
	body := RenderTemplate(dist.BodyTemplate, rpt.Name, generatedAt, exec.RowCount)
	if body == "" {
		body = fmt.Sprintf("<p>Your report <strong>%s</strong> generated on %s is attached.</p>",
			rpt.Name, generatedAt.Format("2006-01-02"))
	}

	smtpCfg := emails.SMTPConfig{
		Host:     s.cfg.SMTPHost,
		Port:     s.cfg.SMTPPort,
		Username: s.cfg.SMTPUsername,
		Password: s.cfg.SMTPPassword,
	}

	sent := 0
	for _, recipient := range dist.Recipients {
		mail := &emails.Email{
			From:        s.cfg.SMTPFrom,
			To:          []string{recipient.Email},
			Subject:     subject,
			HtmlBody:    body,
			Attachments: []emails.Attachment{*attachment},
		}
		if err := emails.SendSMTP(smtpCfg, mail); err != nil {
			s.log.Error("failed to send report email",
				zap.String("executionId", executionID),
				zap.String("recipient", recipient.Email),
				zap.Error(err))
			continue
		}
		sent++
	}

	status := execution.EmailSent
	if sent < len(dist.Recipients) {
		status = execution.EmailFailed
	}

	s.log.Info("report delivery finished",
		zap.String("executionId", executionID),
		zap.String("reportId", exec.ReportID.Hex()),
		zap.Int("sent", sent),
		zap.Int("recipients", len(dist.Recipients)))

	return s.executions.UpdateEmailOutcome(ctx, execID, sent, status)
}

// loadArtifact maps the persisted URL path back to disk and reads the file
func (s *DistributionServiceImpl) loadArtifact(urlPath string) (*emails.Attachment, error) {
	rel := strings.TrimPrefix(urlPath, s.cfg.FSURL)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || strings.Contains(rel, "..") {
		return nil, fmt.Errorf("invalid artifact path %q", urlPath)
	}

	full := filepath.Join(s.cfg.FSPath, filepath.FromSlash(rel))
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}

	return &emails.Attachment{
		Filename: filepath.Base(full),
		Content:  content,
	}, nil
}
