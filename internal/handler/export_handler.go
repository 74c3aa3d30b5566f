package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sose-portal-api/internal/dto"
	"github.com/noah-isme/sose-portal-api/internal/models"
	"github.com/noah-isme/sose-portal-api/internal/service"
	appErrors "github.com/noah-isme/sose-portal-api/pkg/errors"
	"github.com/noah-isme/sose-portal-api/pkg/jobs"
	"github.com/noah-isme/sose-portal-api/pkg/response"
)

// ExportHandler serves direct exports and the asynchronous job flow.
type ExportHandler struct {
	service *service.ExportService
	queue   *jobs.Queue
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService, queue *jobs.Queue) *ExportHandler {
	return &ExportHandler{service: svc, queue: queue}
}

// Download godoc
// @Summary Download the full submission set
// @Description Streams the whole collection as a file attachment in the requested format.
// @Tags Exports
// @Produce octet-stream
// @Param format query string true "Export format" Enums(csv, json, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/exports [get]
func (h *ExportHandler) Download(c *gin.Context) {
	format := models.ExportFormat(c.Query("format"))
	result, err := h.service.Render(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

// CreateJob godoc
// @Summary Queue an asynchronous export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.CreateExportJobRequest true "Export job payload"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/exports/jobs [post]
func (h *ExportHandler) CreateJob(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateExportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export job payload"))
		return
	}

	job, err := h.service.CreateJob(c.Request.Context(), req.Format, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.queue.Enqueue(jobs.Job{ID: job.ID, Type: "export"}); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to enqueue export job"))
		return
	}

	response.JSON(c, http.StatusAccepted, job, nil)
}

// GetJob godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/exports/jobs/{id} [get]
func (h *ExportHandler) GetJob(c *gin.Context) {
	job, err := h.service.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// DownloadSigned godoc
// @Summary Download a finished export by signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/exports/download [get]
func (h *ExportHandler) DownloadSigned(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing download token"))
		return
	}

	file, err := h.service.OpenSigned(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read export file"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		_ = c.Error(err)
	}
}
