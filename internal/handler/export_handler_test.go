package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sose-portal-api/internal/models"
	"github.com/noah-isme/sose-portal-api/internal/service"
	"github.com/noah-isme/sose-portal-api/pkg/storage"
)

type exportJobStoreStub struct{}

func (exportJobStoreStub) Create(ctx context.Context, job *models.ExportJob) error { return nil }
func (exportJobStoreStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	return nil, errors.New("not found")
}
func (exportJobStoreStub) MarkProcessing(ctx context.Context, id string) error { return nil }
func (exportJobStoreStub) MarkFinished(ctx context.Context, id, filePath, downloadURL string, expiresAt time.Time) error {
	return nil
}
func (exportJobStoreStub) MarkFailed(ctx context.Context, id, message string) error { return nil }

type exportStorageStub struct{}

func (exportStorageStub) Save(filename string, data []byte) (string, error) { return filename, nil }
func (exportStorageStub) Open(filename string) (*os.File, error)            { return nil, os.ErrNotExist }
func (exportStorageStub) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

func newTestExportHandler(repo *submissionRepoMock) *ExportHandler {
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := service.NewExportService(repo, exportJobStoreStub{}, exportStorageStub{}, signer,
		service.ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, nil, zap.NewNop())
	return NewExportHandler(svc, nil)
}

func TestExportHandlerDownloadCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestExportHandler(adminFixtures())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/admin/exports", nil)
	req.URL.RawQuery = url.Values{"format": {"csv"}}.Encode()
	c.Request = req

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sose-submissions-")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, w.Body.String(), "Tracking ID,Type,Category,Title,Description,Urgency,Identity Type,Identity Value,Status,Admin Reply,Timestamp")
	assert.Contains(t, w.Body.String(), "AA11AA11")
}

func TestExportHandlerDownloadUnsupportedFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestExportHandler(adminFixtures())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/admin/exports", nil)
	req.URL.RawQuery = url.Values{"format": {"xlsx"}}.Encode()
	c.Request = req

	handler.Download(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerDownloadSignedMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestExportHandler(adminFixtures())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/admin/exports/download", nil)
	c.Request = req

	handler.DownloadSigned(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
