package dto

import (
	"time"

	"github.com/noah-isme/sose-portal-api/internal/models"
)

// CreateSubmissionRequest is the public submission form payload.
// Attachment metadata is filled by the handler after the upload is stored.
type CreateSubmissionRequest struct {
	Type          models.SubmissionType `json:"type" form:"type" validate:"required,oneof=Feedback Complaint"`
	Category      string                `json:"category" form:"category" validate:"required,max=100"`
	Title         string                `json:"title" form:"title" validate:"required,max=200"`
	Description   string                `json:"description" form:"description" validate:"required"`
	Urgency       models.Urgency        `json:"urgency" form:"urgency" validate:"required,oneof=Low Medium High"`
	IdentityType  models.IdentityType   `json:"identity_type" form:"identity_type" validate:"required,oneof=Student Parent"`
	IdentityValue string                `json:"identity_value" form:"identity_value" validate:"required,max=200"`
	FilePath      string                `json:"-" form:"-"`
	FileName      string                `json:"-" form:"-"`
}

// CreateSubmissionResponse returns the tracking code handed to the submitter.
type CreateSubmissionResponse struct {
	ID         string `json:"id"`
	TrackingID string `json:"tracking_id"`
}

// UpdateSubmissionRequest carries the admin-mutable fields. Both are
// optional; at least one must be present.
type UpdateSubmissionRequest struct {
	Status     *models.SubmissionStatus `json:"status" validate:"omitempty,oneof=Pending 'In Review' Resolved"`
	AdminReply *string                  `json:"admin_reply"`
}

// AddNoteRequest appends a private annotation to a submission.
type AddNoteRequest struct {
	Note string `json:"note" validate:"required"`
}

// PublicSubmission is the status view shown to submitters. Identity
// fields, attachments and admin notes never appear here.
type PublicSubmission struct {
	TrackingID  string                  `json:"tracking_id"`
	Type        models.SubmissionType   `json:"type"`
	Category    string                  `json:"category"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Urgency     models.Urgency          `json:"urgency"`
	Status      models.SubmissionStatus `json:"status"`
	AdminReply  *string                 `json:"admin_reply,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// NewPublicSubmission strips admin-only fields from a submission.
func NewPublicSubmission(s *models.Submission) PublicSubmission {
	return PublicSubmission{
		TrackingID:  s.TrackingID,
		Type:        s.Type,
		Category:    s.Category,
		Title:       s.Title,
		Description: s.Description,
		Urgency:     s.Urgency,
		Status:      s.Status,
		AdminReply:  s.AdminReply,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// CreateExportJobRequest queues an asynchronous export.
type CreateExportJobRequest struct {
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv json pdf"`
}
