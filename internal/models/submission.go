package models

import "time"

// SubmissionType distinguishes feedback from complaints.
type SubmissionType string

const (
	TypeFeedback  SubmissionType = "Feedback"
	TypeComplaint SubmissionType = "Complaint"
)

// Urgency grades how pressing a submission is.
type Urgency string

const (
	UrgencyLow    Urgency = "Low"
	UrgencyMedium Urgency = "Medium"
	UrgencyHigh   Urgency = "High"
)

// IdentityType is the submitter's self-declared role.
type IdentityType string

const (
	IdentityStudent IdentityType = "Student"
	IdentityParent  IdentityType = "Parent"
)

// SubmissionStatus tracks the review lifecycle. Transitions are
// unrestricted: administrators may move a submission to any status,
// including reopening a resolved one.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "Pending"
	StatusInReview SubmissionStatus = "In Review"
	StatusResolved SubmissionStatus = "Resolved"
)

// SuggestedCategories is the advisory category list shown on the
// submission form. Category remains free-form in storage.
var SuggestedCategories = []string{
	"Teacher Behavior",
	"Classroom Issues",
	"Infrastructure",
	"Academic Concerns",
	"Others",
}

// Submission is the portal's sole persisted business entity.
type Submission struct {
	ID            string           `db:"id" json:"id"`
	TrackingID    string           `db:"tracking_id" json:"tracking_id"`
	Type          SubmissionType   `db:"type" json:"type"`
	Category      string           `db:"category" json:"category"`
	Title         string           `db:"title" json:"title"`
	Description   string           `db:"description" json:"description"`
	Urgency       Urgency          `db:"urgency" json:"urgency"`
	IdentityType  IdentityType     `db:"identity_type" json:"identity_type"`
	IdentityValue string           `db:"identity_value" json:"identity_value"`
	FilePath      *string          `db:"file_path" json:"file_path,omitempty"`
	FileName      *string          `db:"file_name" json:"file_name,omitempty"`
	Status        SubmissionStatus `db:"status" json:"status"`
	AdminReply    *string          `db:"admin_reply" json:"admin_reply,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
	AdminNotes    []AdminNote      `db:"-" json:"admin_notes"`
}

// AdminNote is a private, append-only annotation on a submission.
type AdminNote struct {
	ID           string    `db:"id" json:"id"`
	SubmissionID string    `db:"submission_id" json:"submission_id"`
	Note         string    `db:"note" json:"note"`
	AdminName    string    `db:"admin_name" json:"admin_name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SubmissionFilter holds the dashboard filter configuration. Empty
// fields match everything; active predicates combine with logical AND.
type SubmissionFilter struct {
	Type     string
	Category string
	Status   string
	Urgency  string
	Search   string
}

// Active reports whether any predicate is set.
func (f SubmissionFilter) Active() bool {
	return f.Type != "" || f.Category != "" || f.Status != "" || f.Urgency != "" || f.Search != ""
}

// SubmissionUpdate carries the admin-mutable fields. Nil means "leave
// unchanged"; the overwrite is last-write-wins with no concurrency check.
type SubmissionUpdate struct {
	Status     *SubmissionStatus
	AdminReply *string
}

// Empty reports whether the update changes nothing.
func (u SubmissionUpdate) Empty() bool {
	return u.Status == nil && u.AdminReply == nil
}

// SubmissionStats mirrors the dashboard status cards.
type SubmissionStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	InReview int `json:"in_review"`
	Resolved int `json:"resolved"`
}
