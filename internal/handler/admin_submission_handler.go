package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sose-portal-api/internal/dto"
	"github.com/noah-isme/sose-portal-api/internal/models"
	"github.com/noah-isme/sose-portal-api/internal/service"
	appErrors "github.com/noah-isme/sose-portal-api/pkg/errors"
	"github.com/noah-isme/sose-portal-api/pkg/response"
)

// AdminSubmissionHandler exposes the dashboard endpoints for managing
// submissions: listing with filters, detail, status updates and notes.
type AdminSubmissionHandler struct {
	service *service.SubmissionService
}

// NewAdminSubmissionHandler creates a new handler.
func NewAdminSubmissionHandler(svc *service.SubmissionService) *AdminSubmissionHandler {
	return &AdminSubmissionHandler{service: svc}
}

// List godoc
// @Summary List submissions
// @Description Returns all submissions, newest first. Filters combine with AND.
// @Tags Admin Submissions
// @Produce json
// @Param type query string false "Submission type" Enums(Feedback, Complaint)
// @Param category query string false "Category"
// @Param status query string false "Status" Enums(Pending, In Review, Resolved)
// @Param urgency query string false "Urgency" Enums(Low, Medium, High)
// @Param search query string false "Case-insensitive search over tracking ID, title and description"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/submissions [get]
func (h *AdminSubmissionHandler) List(c *gin.Context) {
	filter := models.SubmissionFilter{
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Urgency:  c.Query("urgency"),
		Search:   c.Query("search"),
	}

	submissions, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, submissions, nil, map[string]interface{}{
		"count": len(submissions),
	})
}

// Get godoc
// @Summary Submission detail
// @Tags Admin Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/submissions/{id} [get]
func (h *AdminSubmissionHandler) Get(c *gin.Context) {
	submission, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Update godoc
// @Summary Update status or admin reply
// @Tags Admin Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.UpdateSubmissionRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/submissions/{id} [patch]
func (h *AdminSubmissionHandler) Update(c *gin.Context) {
	var req dto.UpdateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	submission, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// AddNote godoc
// @Summary Append an internal note
// @Tags Admin Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.AddNoteRequest true "Note payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/submissions/{id}/notes [post]
func (h *AdminSubmissionHandler) AddNote(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return
	}

	submission, err := h.service.AddNote(c.Request.Context(), c.Param("id"), req.Note, claims.FullName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Stats godoc
// @Summary Dashboard status counters
// @Tags Admin Submissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/submissions/stats [get]
func (h *AdminSubmissionHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
