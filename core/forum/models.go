package forum

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aulanet/campus/core"
)

type Forum struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Title     string    `json:"title"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type Question struct {
	ID        string    `json:"id"`
	ForumID   string    `json:"forum_id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type Answer struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	AuthorID   string    `json:"author_id"`
	Body       string    `json:"body"`
	IsAccepted bool      `json:"is_accepted"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type NewForum struct {
	Title string `json:"title" validate:"required"`
}

func (nf *NewForum) Validate(validate *validator.Validate) error {
	nf.Title = core.CleanString(nf.Title)
	return validate.Struct(nf)
}

type NewQuestion struct {
	Title string `json:"title" validate:"required"`
	Body  string `json:"body" validate:"required"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	nq.Body = core.CleanString(nq.Body)
	return validate.Struct(nq)
}

type NewAnswer struct {
	Body string `json:"body" validate:"required"`
}

func (na *NewAnswer) Validate(validate *validator.Validate) error {
	na.Body = core.CleanString(na.Body)
	return validate.Struct(na)
}
