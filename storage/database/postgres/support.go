package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core/support"
)

type supportRepository struct {
	db *sqlx.DB
}

var _ support.Repository = (*supportRepository)(nil)

func NewSupportRepository(db *sqlx.DB) *supportRepository {
	return &supportRepository{db: db}
}

type ticketRow struct {
	ID         string    `db:"id"`
	ReporterID string    `db:"reporter_id"`
	Subject    string    `db:"subject"`
	Body       string    `db:"body"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (repo supportRepository) CreateTicket(ctx context.Context, t support.Ticket) (support.Ticket, error) {
	t.ID = uuid.New().String()
	r := ticketRow(t)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO support_ticket (id, reporter_id, subject, body, status, created_at, updated_at)
		VALUES (:id, :reporter_id, :subject, :body, :status, :created_at, :updated_at)`, r)
	if err != nil {
		return support.Ticket{}, errors.Wrap(err, "inserting ticket")
	}
	return support.Ticket(r), nil
}

func (repo supportRepository) GetTicketByID(ctx context.Context, id string) (support.Ticket, error) {
	var r ticketRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM support_ticket WHERE id = $1`, id); err != nil {
		return support.Ticket{}, trapNoRowsErr(err, support.ErrNotFound, "getting ticket")
	}
	return support.Ticket(r), nil
}

func (repo supportRepository) queryTickets(ctx context.Context, query string, args ...interface{}) ([]support.Ticket, error) {
	var rows []ticketRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying tickets")
	}
	tickets := make([]support.Ticket, 0, len(rows))
	for _, r := range rows {
		tickets = append(tickets, support.Ticket(r))
	}
	return tickets, nil
}

func (repo supportRepository) QueryTickets(ctx context.Context) ([]support.Ticket, error) {
	return repo.queryTickets(ctx, `SELECT * FROM support_ticket ORDER BY created_at DESC`)
}

func (repo supportRepository) QueryTicketsByReporter(ctx context.Context, reporterID string) ([]support.Ticket, error) {
	return repo.queryTickets(ctx,
		`SELECT * FROM support_ticket WHERE reporter_id = $1 ORDER BY created_at DESC`, reporterID)
}

func (repo supportRepository) UpdateTicket(ctx context.Context, t support.Ticket) (support.Ticket, error) {
	r := ticketRow(t)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE support_ticket
		SET subject = :subject, body = :body, status = :status, updated_at = :updated_at
		WHERE id = :id`, r)
	if err != nil {
		return support.Ticket{}, errors.Wrap(err, "updating ticket")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return support.Ticket{}, support.ErrNotFound
	}
	return support.Ticket(r), nil
}
