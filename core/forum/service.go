package forum

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/aulanet/campus/core"
)

// MsgNoForumPerm is the denial shown when a teacher tries to create a forum
// on a subject they do not own. Surfaced verbatim by the UI.
const MsgNoForumPerm = "No tienes permiso para crear foros en esta materia"

var (
	ErrForumNotFound    = errors.New("foro no encontrado")
	ErrQuestionNotFound = errors.New("pregunta no encontrada")
	ErrAnswerNotFound   = errors.New("respuesta no encontrada")
)

type (
	Repository interface {
		CreateForum(ctx context.Context, f Forum) (Forum, error)
		GetForumByID(ctx context.Context, id string) (Forum, error)
		QueryForums(ctx context.Context, subjectID string) ([]Forum, error)
		DeactivateForum(ctx context.Context, id string) error

		CreateQuestion(ctx context.Context, q Question) (Question, error)
		GetQuestionByID(ctx context.Context, id string) (Question, error)
		QueryQuestions(ctx context.Context, forumID string) ([]Question, error)
		DeactivateQuestion(ctx context.Context, id string) error

		CreateAnswer(ctx context.Context, a Answer) (Answer, error)
		GetAnswerByID(ctx context.Context, id string) (Answer, error)
		QueryAnswers(ctx context.Context, questionID string) ([]Answer, error)
		SetAnswerAccepted(ctx context.Context, id string, accepted bool) (Answer, error)
	}

	Service struct {
		repo   Repository
		notify core.NotificationSink
	}
)

func NewService(repo Repository, notify core.NotificationSink) *Service {
	return &Service{repo: repo, notify: notify}
}

func (svc *Service) CreateForum(ctx context.Context, subjectID string, nf NewForum) (Forum, error) {
	return svc.repo.CreateForum(ctx, Forum{
		SubjectID: subjectID,
		Title:     nf.Title,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) GetForum(ctx context.Context, id string) (Forum, error) {
	return svc.repo.GetForumByID(ctx, id)
}

func (svc *Service) QueryForums(ctx context.Context, subjectID string) ([]Forum, error) {
	return svc.repo.QueryForums(ctx, subjectID)
}

func (svc *Service) DeactivateForum(ctx context.Context, id string) error {
	return svc.repo.DeactivateForum(ctx, id)
}

func (svc *Service) PostQuestion(ctx context.Context, forumID, authorID string, nq NewQuestion) (Question, error) {
	return svc.repo.CreateQuestion(ctx, Question{
		ForumID:   forumID,
		AuthorID:  authorID,
		Title:     nq.Title,
		Body:      nq.Body,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) GetQuestion(ctx context.Context, id string) (Question, error) {
	return svc.repo.GetQuestionByID(ctx, id)
}

func (svc *Service) QueryQuestions(ctx context.Context, forumID string) ([]Question, error) {
	return svc.repo.QueryQuestions(ctx, forumID)
}

// PostAnswer creates the answer and notifies the question's author (unless
// they answered themselves).
func (svc *Service) PostAnswer(ctx context.Context, q Question, authorID string, na NewAnswer) (Answer, error) {
	ans, err := svc.repo.CreateAnswer(ctx, Answer{
		QuestionID: q.ID,
		AuthorID:   authorID,
		Body:       na.Body,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return Answer{}, err
	}
	if q.AuthorID != authorID {
		svc.notify.Notify(ctx, core.Note{
			UserID: q.AuthorID,
			Kind:   "forum",
			Title:  "Nueva respuesta",
			Body:   "Tu pregunta \"" + q.Title + "\" tiene una nueva respuesta.",
		})
	}
	return ans, nil
}

func (svc *Service) QueryAnswers(ctx context.Context, questionID string) ([]Answer, error) {
	return svc.repo.QueryAnswers(ctx, questionID)
}

func (svc *Service) GetAnswer(ctx context.Context, id string) (Answer, error) {
	return svc.repo.GetAnswerByID(ctx, id)
}

// AcceptAnswer marks an answer as accepted; only the subject's teacher gets
// here (gated at the handler).
func (svc *Service) AcceptAnswer(ctx context.Context, id string) (Answer, error) {
	ans, err := svc.repo.SetAnswerAccepted(ctx, id, true)
	if err != nil {
		return Answer{}, err
	}
	svc.notify.Notify(ctx, core.Note{
		UserID: ans.AuthorID,
		Kind:   "forum",
		Title:  "Respuesta aceptada",
		Body:   "Tu respuesta fue marcada como correcta.",
	})
	return ans, nil
}
