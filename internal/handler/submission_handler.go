package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sose-portal-api/internal/dto"
	"github.com/noah-isme/sose-portal-api/internal/service"
	"github.com/noah-isme/sose-portal-api/pkg/config"
	appErrors "github.com/noah-isme/sose-portal-api/pkg/errors"
	"github.com/noah-isme/sose-portal-api/pkg/response"
	"github.com/noah-isme/sose-portal-api/pkg/storage"
)

// SubmissionHandler exposes the public intake and tracking endpoints.
type SubmissionHandler struct {
	service *service.SubmissionService
	uploads *storage.LocalStorage
	cfg     config.UploadsConfig
	metrics *service.MetricsService
}

// NewSubmissionHandler creates a new handler.
func NewSubmissionHandler(svc *service.SubmissionService, uploads *storage.LocalStorage, cfg config.UploadsConfig, metrics *service.MetricsService) *SubmissionHandler {
	return &SubmissionHandler{service: svc, uploads: uploads, cfg: cfg, metrics: metrics}
}

// Create godoc
// @Summary Submit feedback or a complaint
// @Description Accepts JSON or multipart form data with an optional file attachment.
// @Tags Submissions
// @Accept json
// @Accept mpfd
// @Produce json
// @Param payload body dto.CreateSubmissionRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	var req dto.CreateSubmissionRequest

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission form"))
			return
		}
		file, err := c.FormFile("file")
		if err == nil && file != nil {
			stored, storedName, storeErr := h.storeAttachment(file)
			if storeErr != nil {
				response.Error(c, storeErr)
				return
			}
			req.FilePath = stored
			req.FileName = storedName
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
			return
		}
	}

	res, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSubmissionCreated()
	}
	response.Created(c, res)
}

// Track godoc
// @Summary Look up submission status by tracking ID
// @Description Returns the public status view. Identity and internal notes are never exposed.
// @Tags Submissions
// @Produce json
// @Param trackingId path string true "8-character tracking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/track/{trackingId} [get]
func (h *SubmissionHandler) Track(c *gin.Context) {
	code := c.Param("trackingId")
	submission, err := h.service.Track(c.Request.Context(), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

func (h *SubmissionHandler) storeAttachment(file *multipart.FileHeader) (string, string, error) {
	if h.uploads == nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "attachments are not enabled")
	}
	if h.cfg.MaxFileSizeBytes > 0 && file.Size > h.cfg.MaxFileSizeBytes {
		return "", "", appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("attachment exceeds the %d byte limit", h.cfg.MaxFileSizeBytes))
	}
	if len(h.cfg.AllowedMIMEs) > 0 {
		contentType := file.Header.Get("Content-Type")
		if !mimeAllowed(contentType, h.cfg.AllowedMIMEs) {
			return "", "", appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("attachment type %q is not allowed", contentType))
		}
	}

	src, err := file.Open()
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "attachment could not be read")
	}
	defer src.Close() //nolint:errcheck

	original := filepath.Base(file.Filename)
	stored := fmt.Sprintf("%d_%s", time.Now().UnixNano(), original)
	if _, err := h.uploads.SaveStream(stored, src); err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "attachment could not be stored")
	}
	return stored, original, nil
}

func mimeAllowed(contentType string, allowed []string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	for _, m := range allowed {
		if contentType == strings.ToLower(m) {
			return true
		}
	}
	return false
}
