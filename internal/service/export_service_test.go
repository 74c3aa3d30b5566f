package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sose-portal-api/internal/models"
	appErrors "github.com/noah-isme/sose-portal-api/pkg/errors"
	"github.com/noah-isme/sose-portal-api/pkg/storage"
)

type mockJobStore struct {
	jobs       map[string]*models.ExportJob
	createErr  error
	processing []string
	finished   []string
	failed     map[string]string
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{jobs: map[string]*models.ExportJob{}, failed: map[string]string{}}
}

func (m *mockJobStore) Create(ctx context.Context, job *models.ExportJob) error {
	if m.createErr != nil {
		return m.createErr
	}
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", len(m.jobs)+1)
	}
	job.Status = models.ExportStatusQueued
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobStore) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func (m *mockJobStore) MarkProcessing(ctx context.Context, id string) error {
	m.processing = append(m.processing, id)
	m.jobs[id].Status = models.ExportStatusProcessing
	return nil
}

func (m *mockJobStore) MarkFinished(ctx context.Context, id, filePath, downloadURL string, expiresAt time.Time) error {
	m.finished = append(m.finished, id)
	job := m.jobs[id]
	job.Status = models.ExportStatusFinished
	job.FilePath = &filePath
	job.DownloadURL = &downloadURL
	job.ExpiresAt = &expiresAt
	return nil
}

func (m *mockJobStore) MarkFailed(ctx context.Context, id, message string) error {
	m.failed[id] = message
	m.jobs[id].Status = models.ExportStatusFailed
	return nil
}

type memoryExportStorage struct {
	files   map[string][]byte
	saveErr error
}

func newMemoryExportStorage() *memoryExportStorage {
	return &memoryExportStorage{files: map[string][]byte{}}
}

func (m *memoryExportStorage) Save(filename string, data []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.files[filename] = data
	return filename, nil
}

func (m *memoryExportStorage) Open(filename string) (*os.File, error) {
	data, ok := m.files[filename]
	if !ok {
		return nil, os.ErrNotExist
	}
	f, err := os.CreateTemp("", "export-test-*")
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (m *memoryExportStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

func newTestExportService(repo *mockSubmissionRepo, jobs *mockJobStore, store *memoryExportStorage) *ExportService {
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportService(repo, jobs, store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	return svc
}

func exportFixtures() *mockSubmissionRepo {
	repo := newMockSubmissionRepo()
	reply := `Replied, with "quotes" and, commas`
	repo.add(models.Submission{
		ID: "s1", TrackingID: "AB12CD34", Type: models.TypeComplaint, Category: "Infrastructure",
		Title: `Broken "smart" board`, Description: "Line one\nline two, with commas",
		Urgency: models.UrgencyHigh, IdentityType: models.IdentityStudent, IdentityValue: "10B",
		Status: models.StatusResolved, AdminReply: &reply,
		CreatedAt: time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	})
	repo.add(models.Submission{
		ID: "s2", TrackingID: "EF56GH78", Type: models.TypeFeedback, Category: "Others",
		Title: "Great library hours", Description: "Keep them",
		Urgency: models.UrgencyLow, IdentityType: models.IdentityParent, IdentityValue: "Parent 7A",
		Status: models.StatusPending,
		CreatedAt: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
	})
	return repo
}

func TestExportServiceRenderCSVRoundTrip(t *testing.T) {
	svc := newTestExportService(exportFixtures(), newMockJobStore(), newMemoryExportStorage())

	result, err := svc.Render(context.Background(), models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "sose-submissions-2026-03-14.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	records, err := csv.NewReader(bytes.NewReader(result.Payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeaders, records[0])

	first := records[1]
	assert.Equal(t, "AB12CD34", first[0])
	assert.Equal(t, `Broken "smart" board`, first[3])
	assert.Equal(t, "Line one\nline two, with commas", first[4])
	assert.Equal(t, `Replied, with "quotes" and, commas`, first[9])
	assert.Equal(t, "2026-03-01T08:30:00Z", first[10])

	second := records[2]
	assert.Equal(t, "EF56GH78", second[0])
	assert.Equal(t, "", second[9])
}

func TestExportServiceRenderJSONRoundTrip(t *testing.T) {
	repo := exportFixtures()
	svc := newTestExportService(repo, newMockJobStore(), newMemoryExportStorage())

	result, err := svc.Render(context.Background(), models.ExportFormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "sose-submissions-2026-03-14.json", result.Filename)
	assert.Equal(t, "application/json", result.ContentType)

	var decoded []models.Submission
	require.NoError(t, json.Unmarshal(result.Payload, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, repo.listResult[0].TrackingID, decoded[0].TrackingID)
	assert.Equal(t, repo.listResult[0].IdentityValue, decoded[0].IdentityValue)
	require.NotNil(t, decoded[0].AdminReply)
	assert.Equal(t, *repo.listResult[0].AdminReply, *decoded[0].AdminReply)
}

func TestExportServiceRenderPDF(t *testing.T) {
	svc := newTestExportService(exportFixtures(), newMockJobStore(), newMemoryExportStorage())

	result, err := svc.Render(context.Background(), models.ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "sose-submissions-2026-03-14.pdf", result.Filename)
	assert.True(t, bytes.HasPrefix(result.Payload, []byte("%PDF")))
}

func TestExportServiceRenderEmptyCollection(t *testing.T) {
	svc := newTestExportService(newMockSubmissionRepo(), newMockJobStore(), newMemoryExportStorage())

	result, err := svc.Render(context.Background(), models.ExportFormatCSV)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(result.Payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, csvHeaders, records[0])
}

func TestExportServiceRenderUnsupportedFormat(t *testing.T) {
	svc := newTestExportService(exportFixtures(), newMockJobStore(), newMemoryExportStorage())

	_, err := svc.Render(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceProcessJob(t *testing.T) {
	jobs := newMockJobStore()
	store := newMemoryExportStorage()
	svc := newTestExportService(exportFixtures(), jobs, store)

	job, err := svc.CreateJob(context.Background(), models.ExportFormatCSV, "u1")
	require.NoError(t, err)

	require.NoError(t, svc.ProcessJob(context.Background(), job.ID))

	stored := jobs.jobs[job.ID]
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	require.NotNil(t, stored.DownloadURL)
	assert.True(t, strings.HasPrefix(*stored.DownloadURL, "/api/v1/admin/exports/download?token="))
	require.NotNil(t, stored.FilePath)
	assert.Contains(t, *stored.FilePath, job.ID)
	assert.NotEmpty(t, store.files[*stored.FilePath])

	token := strings.TrimPrefix(*stored.DownloadURL, "/api/v1/admin/exports/download?token=")
	file, err := svc.OpenSigned(token)
	require.NoError(t, err)
	defer os.Remove(file.Name()) //nolint:errcheck
	defer file.Close()           //nolint:errcheck
}

func TestExportServiceProcessJobMarksFailure(t *testing.T) {
	jobs := newMockJobStore()
	store := newMemoryExportStorage()
	store.saveErr = errors.New("disk full")
	svc := newTestExportService(exportFixtures(), jobs, store)

	job, err := svc.CreateJob(context.Background(), models.ExportFormatJSON, "u1")
	require.NoError(t, err)

	require.Error(t, svc.ProcessJob(context.Background(), job.ID))
	assert.Equal(t, models.ExportStatusFailed, jobs.jobs[job.ID].Status)
	assert.Contains(t, jobs.failed[job.ID], "disk full")
}

func TestExportServiceOpenSignedRejectsBadToken(t *testing.T) {
	svc := newTestExportService(exportFixtures(), newMockJobStore(), newMemoryExportStorage())

	_, err := svc.OpenSigned("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
