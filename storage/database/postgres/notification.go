package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aulanet/campus/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

type notificationRow struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	Kind      string      `db:"kind"`
	Title     string      `db:"title"`
	Body      null.String `db:"body"`
	IsRead    bool        `db:"is_read"`
	CreatedAt time.Time   `db:"created_at"`
}

func (repo notificationRepository) unrow(r notificationRow) notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      r.Kind,
		Title:     r.Title,
		Body:      r.Body.String,
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt,
	}
}

func (repo notificationRepository) CreateNotifications(ctx context.Context, notes ...notification.Notification) error {
	if len(notes) == 0 {
		return nil
	}
	rows := make([]notificationRow, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, notificationRow{
			ID:        uuid.New().String(),
			UserID:    n.UserID,
			Kind:      n.Kind,
			Title:     n.Title,
			Body:      null.NewString(n.Body, n.Body != ""),
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.UTC(),
		})
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO notification (id, user_id, kind, title, body, is_read, created_at)
		VALUES (:id, :user_id, :kind, :title, :body, :is_read, :created_at)`, rows)
	return errors.Wrap(err, "inserting notifications")
}

func (repo notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	var r notificationRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM notification WHERE id = $1`, id); err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "getting notification")
	}
	return repo.unrow(r), nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, userID string) ([]notification.Notification, error) {
	var rows []notificationRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM notification WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notes := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notes = append(notes, repo.unrow(r))
	}
	return notes, nil
}

func (repo notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notification WHERE user_id = $1 AND NOT is_read`, userID)
	return count, errors.Wrap(err, "counting unread")
}

func (repo notificationRepository) MarkRead(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE notification SET is_read = TRUE WHERE id = $1`, id)
	return errors.Wrap(err, "marking notification read")
}

func (repo notificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE notification SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	return errors.Wrap(err, "marking all read")
}
