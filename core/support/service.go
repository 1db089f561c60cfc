// Package support implements help-desk tickets: any authenticated user can
// open one; admins work the queue.
package support

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core"
)

var ErrNotFound = errors.New("ticket no encontrado")

// Ticket statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusClosed     = "closed"
)

type Ticket struct {
	ID         string    `json:"id"`
	ReporterID string    `json:"reporter_id"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type NewTicket struct {
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

func (nt *NewTicket) Validate(validate *validator.Validate) error {
	nt.Subject = core.CleanString(nt.Subject)
	nt.Body = core.CleanString(nt.Body)
	return validate.Struct(nt)
}

type UpdateTicket struct {
	Status string `json:"status" validate:"required,oneof=open in_progress closed"`
}

func (ut *UpdateTicket) Validate(validate *validator.Validate) error {
	ut.Status = core.CleanString(ut.Status, true /* lower */)
	return validate.Struct(ut)
}

type Repository interface {
	CreateTicket(ctx context.Context, t Ticket) (Ticket, error)
	GetTicketByID(ctx context.Context, id string) (Ticket, error)
	QueryTickets(ctx context.Context) ([]Ticket, error)
	QueryTicketsByReporter(ctx context.Context, reporterID string) ([]Ticket, error)
	UpdateTicket(ctx context.Context, t Ticket) (Ticket, error)
}

type Service struct {
	repo   Repository
	notify core.NotificationSink
}

func NewService(repo Repository, notify core.NotificationSink) *Service {
	return &Service{repo: repo, notify: notify}
}

func (svc *Service) Create(ctx context.Context, reporterID string, nt NewTicket) (Ticket, error) {
	now := time.Now().UTC()
	return svc.repo.CreateTicket(ctx, Ticket{
		ReporterID: reporterID,
		Subject:    nt.Subject,
		Body:       nt.Body,
		Status:     StatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Ticket, error) {
	return svc.repo.GetTicketByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Ticket, error) {
	return svc.repo.QueryTickets(ctx)
}

func (svc *Service) QueryMine(ctx context.Context, reporterID string) ([]Ticket, error) {
	return svc.repo.QueryTicketsByReporter(ctx, reporterID)
}

// UpdateStatus moves a ticket through the queue and notifies the reporter.
func (svc *Service) UpdateStatus(ctx context.Context, id string, ut UpdateTicket) (Ticket, error) {
	t, err := svc.repo.GetTicketByID(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	t.Status = ut.Status
	t.UpdatedAt = time.Now().UTC()
	t, err = svc.repo.UpdateTicket(ctx, t)
	if err != nil {
		return Ticket{}, err
	}
	svc.notify.Notify(ctx, core.Note{
		UserID: t.ReporterID,
		Kind:   "support",
		Title:  "Ticket actualizado",
		Body:   "Tu ticket \"" + t.Subject + "\" pasó a estado " + t.Status + ".",
	})
	return t, nil
}
