package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/aulanet/campus/core"
)

var ErrNotFound = errors.New("notificación no encontrada")

type (
	Repository interface {
		CreateNotifications(ctx context.Context, notes ...Notification) error
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		QueryNotifications(ctx context.Context, userID string) ([]Notification, error)
		CountUnread(ctx context.Context, userID string) (int, error)
		MarkRead(ctx context.Context, id string) error
		// MarkAllRead is idempotent: calling it on an inbox with no unread
		// rows succeeds and changes nothing.
		MarkAllRead(ctx context.Context, userID string) error
	}

	// Service writes the per-user inbox. Notify is fire-and-forget: the
	// insert happens on a detached goroutine with its own deadline so a slow
	// or failing write can never delay or fail the primary operation.
	Service struct {
		repo   Repository
		logger core.Logger
		wg     sync.WaitGroup
	}
)

var _ core.NotificationSink = (*Service)(nil)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) Notify(_ context.Context, notes ...core.Note) {
	if len(notes) == 0 {
		return
	}
	rows := make([]Notification, 0, len(notes))
	now := time.Now().UTC()
	for _, n := range notes {
		rows = append(rows, Notification{
			UserID:    n.UserID,
			Kind:      n.Kind,
			Title:     n.Title,
			Body:      n.Body,
			CreatedAt: now,
		})
	}

	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.repo.CreateNotifications(ctx, rows...); err != nil {
			svc.logger.Error(fmt.Sprintf("notification write dropped: %v", err), err)
		}
	}()
}

// Flush waits for in-flight writes. Called on shutdown and in tests.
func (svc *Service) Flush() { svc.wg.Wait() }

func (svc *Service) Query(ctx context.Context, userID string) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, userID)
}

func (svc *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountUnread(ctx, userID)
}

func (svc *Service) MarkRead(ctx context.Context, userID, id string) error {
	note, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return err
	}
	if note.UserID != userID {
		return ErrNotFound // do not leak other users' notifications
	}
	return svc.repo.MarkRead(ctx, id)
}

func (svc *Service) MarkAllRead(ctx context.Context, userID string) error {
	return svc.repo.MarkAllRead(ctx, userID)
}
