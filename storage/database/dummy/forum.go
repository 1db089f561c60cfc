package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/aulanet/campus/core/forum"
)

type forumRepository struct {
	db *forumTables
}

var _ forum.Repository = (*forumRepository)(nil)

func NewForumRepository(db *DB) *forumRepository {
	return &forumRepository{db: db.forum}
}

func (repo *forumRepository) CreateForum(_ context.Context, f forum.Forum) (forum.Forum, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	f.ID = uuid.New().String()
	repo.db.forums[f.ID] = &f
	return f, nil
}

func (repo *forumRepository) GetForumByID(_ context.Context, id string) (forum.Forum, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if f, ok := repo.db.forums[id]; ok {
		return *f, nil
	}
	return forum.Forum{}, forum.ErrForumNotFound
}

func (repo *forumRepository) QueryForums(_ context.Context, subjectID string) ([]forum.Forum, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	forums := make([]forum.Forum, 0)
	for _, f := range repo.db.forums {
		if f.SubjectID == subjectID && f.IsActive {
			forums = append(forums, *f)
		}
	}
	sort.Slice(forums, func(i, j int) bool { return forums[i].CreatedAt.Before(forums[j].CreatedAt) })
	return forums, nil
}

func (repo *forumRepository) DeactivateForum(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if f, ok := repo.db.forums[id]; ok {
		f.IsActive = false
	}
	return nil
}

func (repo *forumRepository) CreateQuestion(_ context.Context, q forum.Question) (forum.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	q.ID = uuid.New().String()
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *forumRepository) GetQuestionByID(_ context.Context, id string) (forum.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return *q, nil
	}
	return forum.Question{}, forum.ErrQuestionNotFound
}

func (repo *forumRepository) QueryQuestions(_ context.Context, forumID string) ([]forum.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	questions := make([]forum.Question, 0)
	for _, q := range repo.db.questions {
		if q.ForumID == forumID && q.IsActive {
			questions = append(questions, *q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].CreatedAt.After(questions[j].CreatedAt) })
	return questions, nil
}

func (repo *forumRepository) DeactivateQuestion(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if q, ok := repo.db.questions[id]; ok {
		q.IsActive = false
	}
	return nil
}

func (repo *forumRepository) CreateAnswer(_ context.Context, a forum.Answer) (forum.Answer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	repo.db.answers[a.ID] = &a
	return a, nil
}

func (repo *forumRepository) GetAnswerByID(_ context.Context, id string) (forum.Answer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.answers[id]; ok {
		return *a, nil
	}
	return forum.Answer{}, forum.ErrAnswerNotFound
}

func (repo *forumRepository) QueryAnswers(_ context.Context, questionID string) ([]forum.Answer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	answers := make([]forum.Answer, 0)
	for _, a := range repo.db.answers {
		if a.QuestionID == questionID && a.IsActive {
			answers = append(answers, *a)
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		if answers[i].IsAccepted != answers[j].IsAccepted {
			return answers[i].IsAccepted
		}
		return answers[i].CreatedAt.Before(answers[j].CreatedAt)
	})
	return answers, nil
}

func (repo *forumRepository) SetAnswerAccepted(_ context.Context, id string, accepted bool) (forum.Answer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a, ok := repo.db.answers[id]
	if !ok {
		return forum.Answer{}, forum.ErrAnswerNotFound
	}
	a.IsAccepted = accepted
	return *a, nil
}
