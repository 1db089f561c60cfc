package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aulanet/campus/core"
)

type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Year      int       `json:"year"`
	Division  string    `json:"division,omitempty"`
	TeacherID string    `json:"teacher_id,omitempty"` // empty = unassigned
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Unit struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Content kinds.
const (
	ContentKindText  = "text"
	ContentKindLink  = "link"
	ContentKindVideo = "video"
	ContentKindFile  = "file"
)

type Content struct {
	ID        string    `json:"id"`
	UnitID    string    `json:"unit_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	URL       string    `json:"url,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Document struct {
	ID         string    `json:"id"`
	SubjectID  string    `json:"subject_id"`
	UploaderID string    `json:"uploader_id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	IsPublic   bool      `json:"is_public"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type Enrollment struct {
	StudentID string    `json:"student_id"`
	SubjectID string    `json:"subject_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type NewSubject struct {
	Name      string `json:"name" validate:"required"`
	Code      string `json:"code" validate:"required,alphanum_"`
	Year      int    `json:"year" validate:"required,min=1,max=6"`
	Division  string `json:"division" validate:"omitempty,oneof=A B"`
	TeacherID string `json:"teacher_id" validate:"omitempty,uuid4"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code, true /* lower */)
	ns.Division = core.NormalizeDivision(ns.Division)
	return validate.Struct(ns)
}

type UpdateSubject struct {
	Name      string  `json:"name"`
	TeacherID *string `json:"teacher_id"` // nil = unchanged, "" = unassign
}

type NewUnit struct {
	Title    string `json:"title" validate:"required"`
	Position int    `json:"position" validate:"min=0"`
}

func (nu *NewUnit) Validate(validate *validator.Validate) error {
	nu.Title = core.CleanString(nu.Title)
	return validate.Struct(nu)
}

type NewContent struct {
	Kind  string `json:"kind" validate:"required,oneof=text link video file"`
	Title string `json:"title" validate:"required"`
	Body  string `json:"body"`
	URL   string `json:"url" validate:"omitempty,url"`
}

func (nc *NewContent) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	return validate.Struct(nc)
}

type NewDocument struct {
	Title    string `json:"title" validate:"required"`
	IsPublic bool   `json:"is_public"`
}

func (nd *NewDocument) Validate(validate *validator.Validate) error {
	nd.Title = core.CleanString(nd.Title)
	return validate.Struct(nd)
}
