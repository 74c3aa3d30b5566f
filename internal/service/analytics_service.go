package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sose-portal-api/internal/models"
	appErrors "github.com/noah-isme/sose-portal-api/pkg/errors"
)

const analyticsCacheKey = "portal:analytics:summary"

// dailySeriesDays is the window of the submissions-per-day series.
const dailySeriesDays = 30

// AnalyticsService aggregates the submission set for the admin
// analytics view. Results are cached with a short TTL; mutations
// invalidate the whole portal cache namespace.
type AnalyticsService struct {
	repo     submissionRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(repo submissionRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *AnalyticsService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// Summary computes the distribution of submissions per status, type,
// category and urgency, a 30-day daily series, and the category/urgency
// heatmap.
func (s *AnalyticsService) Summary(ctx context.Context) (*models.AnalyticsSummary, error) {
	var cached models.AnalyticsSummary
	if hit, _ := s.cache.Get(ctx, analyticsCacheKey, &cached); hit {
		return &cached, nil
	}

	submissions, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list submissions")
	}

	summary := buildSummary(submissions, s.now().UTC())
	_ = s.cache.Set(ctx, analyticsCacheKey, summary, s.cacheTTL)
	return summary, nil
}

func buildSummary(submissions []models.Submission, now time.Time) *models.AnalyticsSummary {
	summary := &models.AnalyticsSummary{
		Total:       len(submissions),
		ByStatus:    map[string]int{},
		ByType:      map[string]int{},
		ByCategory:  map[string]int{},
		ByUrgency:   map[string]int{},
		GeneratedAt: now,
	}

	heat := map[string]*models.CategoryByRisk{}
	categoryOrder := []string{}
	for _, sub := range submissions {
		summary.ByStatus[string(sub.Status)]++
		summary.ByType[string(sub.Type)]++
		summary.ByCategory[sub.Category]++
		summary.ByUrgency[string(sub.Urgency)]++

		row, ok := heat[sub.Category]
		if !ok {
			row = &models.CategoryByRisk{Category: sub.Category}
			heat[sub.Category] = row
			categoryOrder = append(categoryOrder, sub.Category)
		}
		switch sub.Urgency {
		case models.UrgencyLow:
			row.Low++
		case models.UrgencyMedium:
			row.Medium++
		case models.UrgencyHigh:
			row.High++
		}
	}

	summary.Heatmap = make([]models.CategoryByRisk, 0, len(categoryOrder))
	for _, cat := range categoryOrder {
		summary.Heatmap = append(summary.Heatmap, *heat[cat])
	}

	perDay := map[string]int{}
	for _, sub := range submissions {
		perDay[sub.CreatedAt.UTC().Format("2006-01-02")]++
	}
	summary.DailyCounts = make([]models.DailyCount, 0, dailySeriesDays)
	for i := dailySeriesDays - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		summary.DailyCounts = append(summary.DailyCounts, models.DailyCount{Date: day, Count: perDay[day]})
	}

	return summary
}
