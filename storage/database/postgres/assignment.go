package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aulanet/campus/core/assignment"
)

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *sqlx.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

type assignmentRow struct {
	ID          string      `db:"id"`
	SubjectID   string      `db:"subject_id"`
	UnitID      null.String `db:"unit_id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	DueAt       null.Time   `db:"due_at"`
	IsActive    bool        `db:"is_active"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (repo assignmentRepository) row(a assignment.Assignment) assignmentRow {
	return assignmentRow{
		ID:          a.ID,
		SubjectID:   a.SubjectID,
		UnitID:      null.NewString(a.UnitID, a.UnitID != ""),
		Title:       a.Title,
		Description: null.NewString(a.Description, a.Description != ""),
		DueAt:       null.NewTime(a.DueAt.UTC(), !a.DueAt.IsZero()),
		IsActive:    a.IsActive,
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}

func (repo assignmentRepository) unrow(r assignmentRow) assignment.Assignment {
	return assignment.Assignment{
		ID:          r.ID,
		SubjectID:   r.SubjectID,
		UnitID:      r.UnitID.String,
		Title:       r.Title,
		Description: r.Description.String,
		DueAt:       r.DueAt.Time,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	a.ID = uuid.New().String()
	r := repo.row(a)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO assignment (id, subject_id, unit_id, title, description, due_at, is_active, created_at, updated_at)
		VALUES (:id, :subject_id, :unit_id, :title, :description, :due_at, :is_active, :created_at, :updated_at)`, r)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return repo.unrow(r), nil
}

func (repo assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	var r assignmentRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM assignment WHERE id = $1`, id); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "getting assignment")
	}
	return repo.unrow(r), nil
}

func (repo assignmentRepository) QueryAssignments(ctx context.Context, subjectID string) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM assignment WHERE subject_id = $1 AND is_active ORDER BY due_at NULLS LAST, created_at`, subjectID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	asgs := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		asgs = append(asgs, repo.unrow(r))
	}
	return asgs, nil
}

func (repo assignmentRepository) DeactivateAssignment(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE assignment SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return errors.Wrap(err, "deactivating assignment")
}

type submissionRow struct {
	ID           string       `db:"id"`
	AssignmentID string       `db:"assignment_id"`
	StudentID    string       `db:"student_id"`
	URL          string       `db:"url"`
	Comment      null.String  `db:"comment"`
	Grade        null.Float64 `db:"grade"`
	Feedback     null.String  `db:"feedback"`
	SubmittedAt  time.Time    `db:"submitted_at"`
	GradedAt     null.Time    `db:"graded_at"`
}

func (repo assignmentRepository) submissionRow(s assignment.Submission) submissionRow {
	r := submissionRow{
		ID:           s.ID,
		AssignmentID: s.AssignmentID,
		StudentID:    s.StudentID,
		URL:          s.URL,
		Comment:      null.NewString(s.Comment, s.Comment != ""),
		Feedback:     null.NewString(s.Feedback, s.Feedback != ""),
		SubmittedAt:  s.SubmittedAt.UTC(),
		GradedAt:     null.NewTime(s.GradedAt.UTC(), !s.GradedAt.IsZero()),
	}
	if s.Grade != nil {
		r.Grade = null.Float64From(*s.Grade)
	}
	return r
}

func (repo assignmentRepository) unrowSubmission(r submissionRow) assignment.Submission {
	s := assignment.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		URL:          r.URL,
		Comment:      r.Comment.String,
		Feedback:     r.Feedback.String,
		SubmittedAt:  r.SubmittedAt,
		GradedAt:     r.GradedAt.Time,
	}
	if r.Grade.Valid {
		grade := r.Grade.Float64
		s.Grade = &grade
	}
	return s
}

func (repo assignmentRepository) UpsertSubmission(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	s.ID = uuid.New().String()
	r := repo.submissionRow(s)
	// a resubmission replaces the previous file and clears any grade
	var saved submissionRow
	rows, err := repo.db.NamedQueryContext(ctx, `
		INSERT INTO submission (id, assignment_id, student_id, url, comment, grade, feedback, submitted_at, graded_at)
		VALUES (:id, :assignment_id, :student_id, :url, :comment, :grade, :feedback, :submitted_at, :graded_at)
		ON CONFLICT (assignment_id, student_id) DO UPDATE
		SET url = EXCLUDED.url, comment = EXCLUDED.comment, grade = NULL, feedback = NULL,
		    submitted_at = EXCLUDED.submitted_at, graded_at = NULL
		RETURNING *`, r)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "upserting submission")
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return assignment.Submission{}, errors.New("upserting submission: no row returned")
	}
	if err = rows.StructScan(&saved); err != nil {
		return assignment.Submission{}, errors.Wrap(err, "upserting submission")
	}
	return repo.unrowSubmission(saved), nil
}

func (repo assignmentRepository) GetSubmissionByID(ctx context.Context, id string) (assignment.Submission, error) {
	var r submissionRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM submission WHERE id = $1`, id); err != nil {
		return assignment.Submission{}, trapNoRowsErr(err, assignment.ErrSubmissionNotFound, "getting submission")
	}
	return repo.unrowSubmission(r), nil
}

func (repo assignmentRepository) QuerySubmissions(ctx context.Context, assignmentID string) ([]assignment.Submission, error) {
	var rows []submissionRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM submission WHERE assignment_id = $1 ORDER BY submitted_at`, assignmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]assignment.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, repo.unrowSubmission(r))
	}
	return subs, nil
}

func (repo assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID string) (assignment.Submission, error) {
	var r submissionRow
	err := repo.db.GetContext(ctx, &r,
		`SELECT * FROM submission WHERE assignment_id = $1 AND student_id = $2`, assignmentID, studentID)
	if err != nil {
		return assignment.Submission{}, trapNoRowsErr(err, assignment.ErrSubmissionNotFound, "getting submission")
	}
	return repo.unrowSubmission(r), nil
}

func (repo assignmentRepository) UpdateSubmission(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	r := repo.submissionRow(s)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE submission
		SET url = :url, comment = :comment, grade = :grade, feedback = :feedback,
		    submitted_at = :submitted_at, graded_at = :graded_at
		WHERE id = :id`, r)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "updating submission")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return repo.unrowSubmission(r), nil
}
