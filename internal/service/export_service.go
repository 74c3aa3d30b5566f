package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sose-portal-api/internal/models"
	appErrors "github.com/noah-isme/sose-portal-api/pkg/errors"
	"github.com/noah-isme/sose-portal-api/pkg/export"
	"github.com/noah-isme/sose-portal-api/pkg/storage"
)

// csvHeaders is the fixed export column order.
var csvHeaders = []string{
	"Tracking ID", "Type", "Category", "Title", "Description", "Urgency",
	"Identity Type", "Identity Value", "Status", "Admin Reply", "Timestamp",
}

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id, filePath, downloadURL string, expiresAt time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type jsonRenderer interface {
	Render(payload interface{}) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult is a rendered export ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService serializes the full submission set to CSV, JSON or PDF,
// either directly for download or as stored asynchronous jobs reachable
// through signed URLs.
type ExportService struct {
	repo    submissionRepository
	jobs    exportJobStore
	storage exportStorage
	signer  *storage.SignedURLSigner
	csv     csvRenderer
	json    jsonRenderer
	pdf     pdfRenderer
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(repo submissionRepository, jobs exportJobStore, store exportStorage, signer *storage.SignedURLSigner, cfg ExportConfig, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		repo:    repo,
		jobs:    jobs,
		storage: store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		json:    export.NewJSONExporter(),
		pdf:     export.NewPDFExporter(),
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Render materializes the whole submission collection (never a filtered
// subset) in the requested format for an immediate download.
func (s *ExportService) Render(ctx context.Context, format models.ExportFormat) (*ExportResult, error) {
	if !models.ValidExportFormat(format) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	submissions, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list submissions")
	}

	var payload []byte
	var contentType string
	switch format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(buildDataset(submissions))
		contentType = "text/csv"
	case models.ExportFormatJSON:
		payload, err = s.json.Render(submissions)
		contentType = "application/json"
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(buildDataset(submissions), "SOSE Submissions")
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	if s.metrics != nil {
		s.metrics.RecordExport(string(format))
	}
	return &ExportResult{
		Filename:    s.filename(format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

// CreateJob persists a queued asynchronous export job.
func (s *ExportService) CreateJob(ctx context.Context, format models.ExportFormat, requestedBy string) (*models.ExportJob, error) {
	if !models.ValidExportFormat(format) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	job := &models.ExportJob{Format: format, RequestedBy: requestedBy}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to queue export")
	}
	return job, nil
}

// GetJob returns one export job for status polling.
func (s *ExportService) GetJob(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// ProcessJob renders a queued job, stores the file and records a signed
// download URL. Intended as the worker queue handler.
func (s *ExportService) ProcessJob(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}
	if err := s.jobs.MarkProcessing(ctx, job.ID); err != nil {
		return err
	}

	result, err := s.Render(ctx, job.Format)
	if err != nil {
		if markErr := s.jobs.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return err
	}

	relPath := path.Join("jobs", job.ID+"-"+result.Filename)
	stored, err := s.storage.Save(relPath, result.Payload)
	if err != nil {
		if markErr := s.jobs.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return fmt.Errorf("store export %s: %w", job.ID, err)
	}

	token, expiresAt, err := s.signer.Generate(job.ID, stored)
	if err != nil {
		if markErr := s.jobs.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return fmt.Errorf("sign export url %s: %w", job.ID, err)
	}

	downloadURL := fmt.Sprintf("%s/admin/exports/download?token=%s", s.cfg.APIPrefix, token)
	if err := s.jobs.MarkFinished(ctx, job.ID, stored, downloadURL, expiresAt); err != nil {
		return err
	}

	s.logger.Info("export job finished",
		zap.String("job_id", job.ID),
		zap.String("format", string(job.Format)),
		zap.String("file", stored),
	)
	return nil
}

// OpenSigned validates a download token and opens the stored file.
func (s *ExportService) OpenSigned(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return file, nil
}

// Cleanup removes stored export files older than the result TTL.
func (s *ExportService) Cleanup() {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("export cleanup removed files", zap.Int("count", len(deleted)))
	}
}

func (s *ExportService) filename(format models.ExportFormat) string {
	return fmt.Sprintf("sose-submissions-%s.%s", s.now().Format("2006-01-02"), format)
}

// buildDataset flattens submissions into the tabular export shape. Text
// escaping is delegated to the renderer (RFC 4180 for CSV).
func buildDataset(submissions []models.Submission) export.Dataset {
	rows := make([]map[string]string, 0, len(submissions))
	for _, sub := range submissions {
		reply := ""
		if sub.AdminReply != nil {
			reply = *sub.AdminReply
		}
		rows = append(rows, map[string]string{
			"Tracking ID":    sub.TrackingID,
			"Type":           string(sub.Type),
			"Category":       sub.Category,
			"Title":          sub.Title,
			"Description":    sub.Description,
			"Urgency":        string(sub.Urgency),
			"Identity Type":  string(sub.IdentityType),
			"Identity Value": sub.IdentityValue,
			"Status":         string(sub.Status),
			"Admin Reply":    reply,
			"Timestamp":      sub.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: csvHeaders, Rows: rows}
}
