package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sose-portal-api/internal/models"
)

func TestAnalyticsServiceSummaryDistributions(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	repo := newMockSubmissionRepo()
	repo.add(models.Submission{ID: "1", TrackingID: "AAAA1111", Type: models.TypeComplaint, Category: "Infrastructure", Urgency: models.UrgencyHigh, Status: models.StatusPending, CreatedAt: now.AddDate(0, 0, -1)})
	repo.add(models.Submission{ID: "2", TrackingID: "BBBB2222", Type: models.TypeComplaint, Category: "Infrastructure", Urgency: models.UrgencyLow, Status: models.StatusResolved, CreatedAt: now.AddDate(0, 0, -1)})
	repo.add(models.Submission{ID: "3", TrackingID: "CCCC3333", Type: models.TypeFeedback, Category: "Others", Urgency: models.UrgencyMedium, Status: models.StatusPending, CreatedAt: now})

	svc := NewAnalyticsService(repo, nil, time.Minute, zap.NewNop())
	svc.now = func() time.Time { return now }

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, map[string]int{"Pending": 2, "Resolved": 1}, summary.ByStatus)
	assert.Equal(t, map[string]int{"Complaint": 2, "Feedback": 1}, summary.ByType)
	assert.Equal(t, map[string]int{"Infrastructure": 2, "Others": 1}, summary.ByCategory)
	assert.Equal(t, map[string]int{"High": 1, "Low": 1, "Medium": 1}, summary.ByUrgency)
}

func TestAnalyticsServiceSummaryHeatmap(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	repo := newMockSubmissionRepo()
	repo.add(models.Submission{ID: "1", TrackingID: "AAAA1111", Category: "Infrastructure", Urgency: models.UrgencyHigh, CreatedAt: now})
	repo.add(models.Submission{ID: "2", TrackingID: "BBBB2222", Category: "Infrastructure", Urgency: models.UrgencyHigh, CreatedAt: now})
	repo.add(models.Submission{ID: "3", TrackingID: "CCCC3333", Category: "Academic Concerns", Urgency: models.UrgencyLow, CreatedAt: now})

	svc := NewAnalyticsService(repo, nil, time.Minute, zap.NewNop())
	svc.now = func() time.Time { return now }

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Heatmap, 2)
	assert.Equal(t, "Infrastructure", summary.Heatmap[0].Category)
	assert.Equal(t, 2, summary.Heatmap[0].High)
	assert.Equal(t, "Academic Concerns", summary.Heatmap[1].Category)
	assert.Equal(t, 1, summary.Heatmap[1].Low)
}

func TestAnalyticsServiceSummaryDailySeries(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	repo := newMockSubmissionRepo()
	repo.add(models.Submission{ID: "1", TrackingID: "AAAA1111", CreatedAt: now})
	repo.add(models.Submission{ID: "2", TrackingID: "BBBB2222", CreatedAt: now.AddDate(0, 0, -3)})
	// Outside the 30-day window, must not appear in the series.
	repo.add(models.Submission{ID: "3", TrackingID: "CCCC3333", CreatedAt: now.AddDate(0, 0, -45)})

	svc := NewAnalyticsService(repo, nil, time.Minute, zap.NewNop())
	svc.now = func() time.Time { return now }

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.DailyCounts, 30)
	assert.Equal(t, "2026-02-13", summary.DailyCounts[0].Date)
	assert.Equal(t, "2026-03-14", summary.DailyCounts[29].Date)

	counted := 0
	for _, dc := range summary.DailyCounts {
		counted += dc.Count
		switch dc.Date {
		case "2026-03-14":
			assert.Equal(t, 1, dc.Count)
		case "2026-03-11":
			assert.Equal(t, 1, dc.Count)
		}
	}
	assert.Equal(t, 2, counted)
}
