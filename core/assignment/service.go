package assignment

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/aulanet/campus/core"
)

var (
	ErrNotFound           = errors.New("tarea no encontrada")
	ErrSubmissionNotFound = errors.New("entrega no encontrada")
	ErrPastDue            = errors.New("la fecha de entrega ya pasó")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		QueryAssignments(ctx context.Context, subjectID string) ([]Assignment, error)
		DeactivateAssignment(ctx context.Context, id string) error

		// UpsertSubmission replaces an existing (assignment, student) row:
		// re-submitting before the deadline overwrites the previous file.
		UpsertSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		QuerySubmissions(ctx context.Context, assignmentID string) ([]Submission, error)
		GetSubmission(ctx context.Context, assignmentID, studentID string) (Submission, error)
		UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
	}

	Service struct {
		repo   Repository
		files  core.FileStorage
		notify core.NotificationSink
	}
)

func NewService(repo Repository, files core.FileStorage, notify core.NotificationSink) *Service {
	return &Service{repo: repo, files: files, notify: notify}
}

func (svc *Service) Create(ctx context.Context, subjectID string, na NewAssignment) (Assignment, error) {
	now := time.Now().UTC()
	return svc.repo.CreateAssignment(ctx, Assignment{
		SubjectID:   subjectID,
		UnitID:      na.UnitID,
		Title:       na.Title,
		Description: na.Description,
		DueAt:       na.DueAt,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, subjectID string) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, subjectID)
}

func (svc *Service) Deactivate(ctx context.Context, id string) error {
	return svc.repo.DeactivateAssignment(ctx, id)
}

// Submit stores the student's file and upserts their submission. The caller
// has already passed the enrollment and approval gates.
func (svc *Service) Submit(ctx context.Context, asg Assignment, studentID, comment, filename string, r io.Reader) (Submission, error) {
	if !asg.DueAt.IsZero() && time.Now().After(asg.DueAt) {
		return Submission{}, core.NewValidationError(ErrPastDue)
	}
	url, err := svc.files.Save(ctx, fmt.Sprintf("submissions/%s/%s", asg.ID, studentID), filename, r)
	if err != nil {
		return Submission{}, errors.Wrap(err, "storing submission")
	}
	return svc.repo.UpsertSubmission(ctx, Submission{
		AssignmentID: asg.ID,
		StudentID:    studentID,
		URL:          url,
		Comment:      comment,
		SubmittedAt:  time.Now().UTC(),
	})
}

func (svc *Service) QuerySubmissions(ctx context.Context, assignmentID string) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, assignmentID)
}

func (svc *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmissionByID(ctx, id)
}

// GetOwnSubmission fetches a student's submission for one assignment.
func (svc *Service) GetOwnSubmission(ctx context.Context, assignmentID, studentID string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, assignmentID, studentID)
}

// Grade sets the grade and feedback and notifies the student.
func (svc *Service) Grade(ctx context.Context, sub Submission, ng NewGrade) (Submission, error) {
	sub.Grade = &ng.Grade
	sub.Feedback = ng.Feedback
	sub.GradedAt = time.Now().UTC()
	sub, err := svc.repo.UpdateSubmission(ctx, sub)
	if err != nil {
		return Submission{}, err
	}
	svc.notify.Notify(ctx, core.Note{
		UserID: sub.StudentID,
		Kind:   "grade",
		Title:  "Entrega corregida",
		Body:   fmt.Sprintf("Tu entrega fue calificada: %.2f", ng.Grade),
	})
	return sub, nil
}
