package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sose-portal-api/internal/middleware"
	"github.com/noah-isme/sose-portal-api/internal/models"
	"github.com/noah-isme/sose-portal-api/internal/service"
)

func newTestAdminHandler(repo *submissionRepoMock) *AdminSubmissionHandler {
	svc := service.NewSubmissionService(repo, nil, nil, zap.NewNop())
	return NewAdminSubmissionHandler(svc)
}

func adminFixtures() *submissionRepoMock {
	repo := newSubmissionRepoMock()
	repo.add(models.Submission{ID: "s1", TrackingID: "AA11AA11", Type: models.TypeComplaint, Category: "Infrastructure", Title: "Broken chairs", Description: "lab", Urgency: models.UrgencyHigh, Status: models.StatusPending})
	repo.add(models.Submission{ID: "s2", TrackingID: "BB22BB22", Type: models.TypeFeedback, Category: "Others", Title: "Library hours", Description: "great", Urgency: models.UrgencyLow, Status: models.StatusResolved})
	return repo
}

func TestAdminSubmissionHandlerListWithFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestAdminHandler(adminFixtures())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/admin/submissions", nil)
	req.URL.RawQuery = url.Values{"type": {"Complaint"}, "urgency": {"High"}}.Encode()
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "AA11AA11")
	assert.NotContains(t, w.Body.String(), "BB22BB22")
}

func TestAdminSubmissionHandlerListAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestAdminHandler(adminFixtures())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/admin/submissions", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "AA11AA11")
	assert.Contains(t, w.Body.String(), "BB22BB22")
	assert.Contains(t, w.Body.String(), `"count":2`)
}

func TestAdminSubmissionHandlerUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestAdminHandler(adminFixtures())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(map[string]interface{}{"status": "In Review", "admin_reply": "Checking"})
	req, _ := http.NewRequest(http.MethodPatch, "/admin/submissions/s1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "In Review")
	assert.Contains(t, w.Body.String(), "Checking")
}

func TestAdminSubmissionHandlerUpdateEmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestAdminHandler(adminFixtures())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/admin/submissions/s1", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminSubmissionHandlerAddNoteRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestAdminHandler(adminFixtures())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/admin/submissions/s1/notes", bytes.NewReader([]byte(`{"note":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.AddNote(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminSubmissionHandlerAddNote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestAdminHandler(adminFixtures())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/admin/submissions/s1/notes", bytes.NewReader([]byte(`{"note":"called the janitor"}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", FullName: "Admin One", Role: models.RoleAdmin})

	handler.AddNote(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "called the janitor")
	assert.Contains(t, w.Body.String(), "Admin One")
}

func TestAdminSubmissionHandlerStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestAdminHandler(adminFixtures())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/admin/submissions/stats", nil)
	c.Request = req

	handler.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":2`)
	assert.Contains(t, w.Body.String(), `"pending":1`)
	assert.Contains(t, w.Body.String(), `"resolved":1`)
}
