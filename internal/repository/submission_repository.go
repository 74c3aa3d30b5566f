package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sose-portal-api/internal/models"
	"github.com/noah-isme/sose-portal-api/pkg/tracking"
)

const submissionColumns = `id, tracking_id, type, category, title, description, urgency, identity_type, identity_value, file_path, file_name, status, admin_reply, created_at, updated_at`

// uniqueViolation is the Postgres error code for constraint conflicts.
const uniqueViolation = "23505"

// ErrTrackingExhausted is returned when tracking code generation keeps
// colliding with persisted codes. With a 36^8 space this indicates a
// broken random source rather than a full table.
var ErrTrackingExhausted = errors.New("tracking code generation exhausted retries")

// SubmissionRepository provides persistence for submissions and their notes.
type SubmissionRepository struct {
	db          *sqlx.DB
	maxAttempts int
}

// NewSubmissionRepository creates the repository. maxAttempts bounds
// tracking code regeneration on unique-constraint conflicts.
func NewSubmissionRepository(db *sqlx.DB, maxAttempts int) *SubmissionRepository {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &SubmissionRepository{db: db, maxAttempts: maxAttempts}
}

// Create inserts a new submission. It assigns the id, a fresh tracking
// code, Pending status and UTC timestamps. The tracking_id unique
// constraint is the collision authority: on conflict a new code is
// generated and the insert retried up to maxAttempts times.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.Status = models.StatusPending
	submission.CreatedAt = now
	submission.UpdatedAt = now

	const query = `INSERT INTO submissions (` + submissionColumns + `)
VALUES (:id, :tracking_id, :type, :category, :title, :description, :urgency, :identity_type, :identity_value, :file_path, :file_name, :status, :admin_reply, :created_at, :updated_at)`

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		code, err := tracking.Generate()
		if err != nil {
			return fmt.Errorf("generate tracking code: %w", err)
		}
		submission.TrackingID = code

		_, err = r.db.NamedExecContext(ctx, query, submission)
		if err == nil {
			submission.AdminNotes = []models.AdminNote{}
			return nil
		}
		if isTrackingConflict(err) {
			continue
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return ErrTrackingExhausted
}

// GetByTrackingID returns the unique submission for a tracking code,
// notes included. The code is normalized to uppercase before lookup.
func (r *SubmissionRepository) GetByTrackingID(ctx context.Context, code string) (*models.Submission, error) {
	code = tracking.Normalize(code)
	const query = `SELECT ` + submissionColumns + ` FROM submissions WHERE tracking_id = $1 LIMIT 1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get submission by tracking id: %w", err)
	}
	if err := r.attachNotes(ctx, &submission); err != nil {
		return nil, err
	}
	return &submission, nil
}

// GetByID returns a submission by row id, notes included.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1 LIMIT 1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get submission by id: %w", err)
	}
	if err := r.attachNotes(ctx, &submission); err != nil {
		return nil, err
	}
	return &submission, nil
}

// List returns every submission ordered by created_at descending, notes
// attached. The whole table is materialized; filtering happens in memory
// at the service layer and the admin view has no pagination.
func (r *SubmissionRepository) List(ctx context.Context) ([]models.Submission, error) {
	const query = `SELECT ` + submissionColumns + ` FROM submissions ORDER BY created_at DESC`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if len(submissions) == 0 {
		return []models.Submission{}, nil
	}

	const notesQuery = `SELECT id, submission_id, note, admin_name, created_at FROM admin_notes ORDER BY created_at ASC`
	var notes []models.AdminNote
	if err := r.db.SelectContext(ctx, &notes, notesQuery); err != nil {
		return nil, fmt.Errorf("list admin notes: %w", err)
	}

	grouped := make(map[string][]models.AdminNote, len(submissions))
	for _, note := range notes {
		grouped[note.SubmissionID] = append(grouped[note.SubmissionID], note)
	}
	for i := range submissions {
		if ns, ok := grouped[submissions[i].ID]; ok {
			submissions[i].AdminNotes = ns
		} else {
			submissions[i].AdminNotes = []models.AdminNote{}
		}
	}
	return submissions, nil
}

// Update applies a partial overwrite of the admin-mutable fields and
// refreshes updated_at. Last writer wins; there is no version check.
func (r *SubmissionRepository) Update(ctx context.Context, id string, update models.SubmissionUpdate) error {
	if update.Empty() {
		return nil
	}

	set := []string{}
	args := []interface{}{}
	if update.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *update.Status)
	}
	if update.AdminReply != nil {
		set = append(set, fmt.Sprintf("admin_reply = $%d", len(args)+1))
		args = append(args, *update.AdminReply)
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE submissions SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppendNote inserts one admin note and bumps the parent's updated_at.
// The note is visible on the next read; there is no rollback if the
// caller's follow-up read fails.
func (r *SubmissionRepository) AppendNote(ctx context.Context, note *models.AdminNote) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO admin_notes (id, submission_id, note, admin_name, created_at) VALUES (:id, :submission_id, :note, :admin_name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("append admin note: %w", err)
	}

	const touch = `UPDATE submissions SET updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, touch, note.SubmissionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch submission: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) attachNotes(ctx context.Context, submission *models.Submission) error {
	const query = `SELECT id, submission_id, note, admin_name, created_at FROM admin_notes WHERE submission_id = $1 ORDER BY created_at ASC`
	notes := []models.AdminNote{}
	if err := r.db.SelectContext(ctx, &notes, query, submission.ID); err != nil {
		return fmt.Errorf("load admin notes: %w", err)
	}
	submission.AdminNotes = notes
	return nil
}

func isTrackingConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && strings.Contains(pqErr.Constraint, "tracking")
}
