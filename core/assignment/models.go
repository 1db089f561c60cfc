package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aulanet/campus/core"
)

type Assignment struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"subject_id"`
	UnitID      string    `json:"unit_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueAt       time.Time `json:"due_at,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Submission struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	StudentID    string    `json:"student_id"`
	URL          string    `json:"url"`
	Comment      string    `json:"comment,omitempty"`
	Grade        *float64  `json:"grade,omitempty"`
	Feedback     string    `json:"feedback,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
	GradedAt     time.Time `json:"graded_at,omitempty"`
}

type NewAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	UnitID      string    `json:"unit_id" validate:"omitempty,uuid4"`
	DueAt       time.Time `json:"due_at"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	return validate.Struct(na)
}

type NewGrade struct {
	Grade    float64 `json:"grade" validate:"min=0,max=10"`
	Feedback string  `json:"feedback"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Feedback = core.CleanString(ng.Feedback)
	return validate.Struct(ng)
}
