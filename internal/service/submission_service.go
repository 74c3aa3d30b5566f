package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sose-portal-api/internal/dto"
	"github.com/noah-isme/sose-portal-api/internal/models"
	appErrors "github.com/noah-isme/sose-portal-api/pkg/errors"
	"github.com/noah-isme/sose-portal-api/pkg/tracking"
)

const (
	statusCacheKeyPrefix = "portal:status:"
	portalCachePattern   = "portal:*"
)

type submissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByTrackingID(ctx context.Context, code string) (*models.Submission, error)
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context) ([]models.Submission, error)
	Update(ctx context.Context, id string, update models.SubmissionUpdate) error
	AppendNote(ctx context.Context, note *models.AdminNote) error
}

// SubmissionService implements the submission lifecycle: public intake
// and status lookup, admin listing/filtering, updates and notes.
type SubmissionService struct {
	repo      submissionRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(repo submissionRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Create validates the form payload and persists a new submission,
// returning the tracking code handed to the submitter. Store failures
// surface as a generic retryable persistence error; nothing is retried
// here beyond the repository's tracking-code collision handling.
func (s *SubmissionService) Create(ctx context.Context, req dto.CreateSubmissionRequest) (*dto.CreateSubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	submission := &models.Submission{
		Type:          req.Type,
		Category:      strings.TrimSpace(req.Category),
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Urgency:       req.Urgency,
		IdentityType:  req.IdentityType,
		IdentityValue: strings.TrimSpace(req.IdentityValue),
	}
	if req.FilePath != "" {
		submission.FilePath = &req.FilePath
	}
	if req.FileName != "" {
		submission.FileName = &req.FileName
	}

	if err := s.repo.Create(ctx, submission); err != nil {
		s.logger.Error("submission create failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}

	s.invalidateCache(ctx)
	s.logger.Info("submission created",
		zap.String("tracking_id", submission.TrackingID),
		zap.String("type", string(submission.Type)),
		zap.String("urgency", string(submission.Urgency)),
	)
	return &dto.CreateSubmissionResponse{ID: submission.ID, TrackingID: submission.TrackingID}, nil
}

// Track returns the public status view for a tracking code. Codes are
// matched case-insensitively. A malformed code fails validation before
// the store is consulted; an unknown code is NotFound.
func (s *SubmissionService) Track(ctx context.Context, code string) (*dto.PublicSubmission, error) {
	normalized := tracking.Normalize(code)
	if !tracking.Valid(normalized) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tracking ID should be 8 characters long")
	}

	cacheKey := statusCacheKeyPrefix + normalized
	var cached dto.PublicSubmission
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	submission, err := s.repo.GetByTrackingID(ctx, normalized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no submission matches this tracking ID")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load submission")
	}

	public := dto.NewPublicSubmission(submission)
	_ = s.cache.Set(ctx, cacheKey, public, 0)
	return &public, nil
}

// List returns all submissions, newest first, narrowed by the filter.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	submissions, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list submissions")
	}
	return FilterSubmissions(submissions, filter), nil
}

// Get returns one submission with notes for the admin detail view.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load submission")
	}
	return submission, nil
}

// Update applies a partial status/reply overwrite and returns the fresh
// record. Any status value is accepted from any current status.
func (s *SubmissionService) Update(ctx context.Context, id string, req dto.UpdateSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	update := models.SubmissionUpdate{Status: req.Status, AdminReply: req.AdminReply}
	if update.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}

	if err := s.repo.Update(ctx, id, update); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update submission")
	}

	s.invalidateCache(ctx)
	return s.Get(ctx, id)
}

// AddNote appends a private annotation. The note must be non-empty
// after trimming; the author label comes from the admin session.
func (s *SubmissionService) AddNote(ctx context.Context, id, note, adminName string) (*models.Submission, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "note must not be empty")
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	record := &models.AdminNote{SubmissionID: id, Note: note, AdminName: adminName}
	if err := s.repo.AppendNote(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to append note")
	}

	s.invalidateCache(ctx)
	// The note is durable even if this re-read fails; the admin sees a
	// stale view until the next reload in that case.
	return s.Get(ctx, id)
}

// Stats aggregates the dashboard status cards.
func (s *SubmissionService) Stats(ctx context.Context) (*models.SubmissionStats, error) {
	submissions, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list submissions")
	}
	stats := &models.SubmissionStats{Total: len(submissions)}
	for _, sub := range submissions {
		switch sub.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusInReview:
			stats.InReview++
		case models.StatusResolved:
			stats.Resolved++
		}
	}
	return stats, nil
}

func (s *SubmissionService) invalidateCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, portalCachePattern); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

// FilterSubmissions narrows the in-memory collection to entries matching
// every active predicate. Exact match on type, category, status and
// urgency; case-insensitive substring search over tracking id, title and
// description. Input order is preserved and the input is not mutated.
func FilterSubmissions(submissions []models.Submission, filter models.SubmissionFilter) []models.Submission {
	if !filter.Active() {
		return submissions
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]models.Submission, 0, len(submissions))
	for _, sub := range submissions {
		if filter.Type != "" && string(sub.Type) != filter.Type {
			continue
		}
		if filter.Category != "" && sub.Category != filter.Category {
			continue
		}
		if filter.Status != "" && string(sub.Status) != filter.Status {
			continue
		}
		if filter.Urgency != "" && string(sub.Urgency) != filter.Urgency {
			continue
		}
		if search != "" && !matchesSearch(sub, search) {
			continue
		}
		result = append(result, sub)
	}
	return result
}

func matchesSearch(sub models.Submission, search string) bool {
	return strings.Contains(strings.ToLower(sub.TrackingID), search) ||
		strings.Contains(strings.ToLower(sub.Title), search) ||
		strings.Contains(strings.ToLower(sub.Description), search)
}
