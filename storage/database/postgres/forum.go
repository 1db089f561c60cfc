package pgrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core/forum"
)

type forumRepository struct {
	db *sqlx.DB
}

var _ forum.Repository = (*forumRepository)(nil)

func NewForumRepository(db *sqlx.DB) *forumRepository {
	return &forumRepository{db: db}
}

func (repo forumRepository) CreateForum(ctx context.Context, f forum.Forum) (forum.Forum, error) {
	f.ID = uuid.New().String()
	f.CreatedAt = f.CreatedAt.UTC()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO forum (id, subject_id, title, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.SubjectID, f.Title, f.IsActive, f.CreatedAt)
	if err != nil {
		return forum.Forum{}, errors.Wrap(err, "inserting forum")
	}
	return f, nil
}

func (repo forumRepository) GetForumByID(ctx context.Context, id string) (forum.Forum, error) {
	var f forum.Forum
	err := repo.db.QueryRowxContext(ctx,
		`SELECT id, subject_id, title, is_active, created_at FROM forum WHERE id = $1`, id).
		Scan(&f.ID, &f.SubjectID, &f.Title, &f.IsActive, &f.CreatedAt)
	if err != nil {
		return forum.Forum{}, trapNoRowsErr(err, forum.ErrForumNotFound, "getting forum")
	}
	return f, nil
}

func (repo forumRepository) QueryForums(ctx context.Context, subjectID string) ([]forum.Forum, error) {
	rows, err := repo.db.QueryxContext(ctx,
		`SELECT id, subject_id, title, is_active, created_at FROM forum
		 WHERE subject_id = $1 AND is_active ORDER BY created_at`, subjectID)
	if err != nil {
		return nil, errors.Wrap(err, "querying forums")
	}
	defer func() { _ = rows.Close() }()

	forums := make([]forum.Forum, 0)
	for rows.Next() {
		var f forum.Forum
		if err = rows.Scan(&f.ID, &f.SubjectID, &f.Title, &f.IsActive, &f.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning forum")
		}
		forums = append(forums, f)
	}
	return forums, errors.Wrap(rows.Err(), "querying forums")
}

func (repo forumRepository) DeactivateForum(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE forum SET is_active = FALSE WHERE id = $1`, id)
	return errors.Wrap(err, "deactivating forum")
}

func (repo forumRepository) CreateQuestion(ctx context.Context, q forum.Question) (forum.Question, error) {
	q.ID = uuid.New().String()
	q.CreatedAt = q.CreatedAt.UTC()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO question (id, forum_id, author_id, title, body, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		q.ID, q.ForumID, q.AuthorID, q.Title, q.Body, q.IsActive, q.CreatedAt)
	if err != nil {
		return forum.Question{}, errors.Wrap(err, "inserting question")
	}
	return q, nil
}

func (repo forumRepository) GetQuestionByID(ctx context.Context, id string) (forum.Question, error) {
	var q forum.Question
	err := repo.db.QueryRowxContext(ctx,
		`SELECT id, forum_id, author_id, title, body, is_active, created_at FROM question WHERE id = $1`, id).
		Scan(&q.ID, &q.ForumID, &q.AuthorID, &q.Title, &q.Body, &q.IsActive, &q.CreatedAt)
	if err != nil {
		return forum.Question{}, trapNoRowsErr(err, forum.ErrQuestionNotFound, "getting question")
	}
	return q, nil
}

func (repo forumRepository) QueryQuestions(ctx context.Context, forumID string) ([]forum.Question, error) {
	rows, err := repo.db.QueryxContext(ctx,
		`SELECT id, forum_id, author_id, title, body, is_active, created_at FROM question
		 WHERE forum_id = $1 AND is_active ORDER BY created_at DESC`, forumID)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	defer func() { _ = rows.Close() }()

	questions := make([]forum.Question, 0)
	for rows.Next() {
		var q forum.Question
		if err = rows.Scan(&q.ID, &q.ForumID, &q.AuthorID, &q.Title, &q.Body, &q.IsActive, &q.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning question")
		}
		questions = append(questions, q)
	}
	return questions, errors.Wrap(rows.Err(), "querying questions")
}

func (repo forumRepository) DeactivateQuestion(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE question SET is_active = FALSE WHERE id = $1`, id)
	return errors.Wrap(err, "deactivating question")
}

func (repo forumRepository) CreateAnswer(ctx context.Context, a forum.Answer) (forum.Answer, error) {
	a.ID = uuid.New().String()
	a.CreatedAt = a.CreatedAt.UTC()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO answer (id, question_id, author_id, body, is_accepted, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.QuestionID, a.AuthorID, a.Body, a.IsAccepted, a.IsActive, a.CreatedAt)
	if err != nil {
		return forum.Answer{}, errors.Wrap(err, "inserting answer")
	}
	return a, nil
}

func (repo forumRepository) GetAnswerByID(ctx context.Context, id string) (forum.Answer, error) {
	var a forum.Answer
	err := repo.db.QueryRowxContext(ctx,
		`SELECT id, question_id, author_id, body, is_accepted, is_active, created_at FROM answer WHERE id = $1`, id).
		Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Body, &a.IsAccepted, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return forum.Answer{}, trapNoRowsErr(err, forum.ErrAnswerNotFound, "getting answer")
	}
	return a, nil
}

func (repo forumRepository) QueryAnswers(ctx context.Context, questionID string) ([]forum.Answer, error) {
	rows, err := repo.db.QueryxContext(ctx,
		`SELECT id, question_id, author_id, body, is_accepted, is_active, created_at FROM answer
		 WHERE question_id = $1 AND is_active ORDER BY is_accepted DESC, created_at`, questionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying answers")
	}
	defer func() { _ = rows.Close() }()

	answers := make([]forum.Answer, 0)
	for rows.Next() {
		var a forum.Answer
		if err = rows.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Body, &a.IsAccepted, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning answer")
		}
		answers = append(answers, a)
	}
	return answers, errors.Wrap(rows.Err(), "querying answers")
}

func (repo forumRepository) SetAnswerAccepted(ctx context.Context, id string, accepted bool) (forum.Answer, error) {
	var a forum.Answer
	err := repo.db.QueryRowxContext(ctx, `
		UPDATE answer SET is_accepted = $2 WHERE id = $1
		RETURNING id, question_id, author_id, body, is_accepted, is_active, created_at`, id, accepted).
		Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Body, &a.IsAccepted, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return forum.Answer{}, trapNoRowsErr(err, forum.ErrAnswerNotFound, "accepting answer")
	}
	return a, nil
}
