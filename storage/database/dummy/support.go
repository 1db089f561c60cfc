package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/aulanet/campus/core/support"
)

type supportRepository struct {
	db *supportTable
}

var _ support.Repository = (*supportRepository)(nil)

func NewSupportRepository(db *DB) *supportRepository {
	return &supportRepository{db: db.support}
}

func (repo *supportRepository) CreateTicket(_ context.Context, t support.Ticket) (support.Ticket, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = uuid.New().String()
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *supportRepository) GetTicketByID(_ context.Context, id string) (support.Ticket, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return *t, nil
	}
	return support.Ticket{}, support.ErrNotFound
}

func (repo *supportRepository) query(match func(support.Ticket) bool) []support.Ticket {
	tickets := make([]support.Ticket, 0)
	for _, t := range repo.db.table {
		if match(*t) {
			tickets = append(tickets, *t)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].CreatedAt.After(tickets[j].CreatedAt) })
	return tickets
}

func (repo *supportRepository) QueryTickets(_ context.Context) ([]support.Ticket, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(support.Ticket) bool { return true }), nil
}

func (repo *supportRepository) QueryTicketsByReporter(_ context.Context, reporterID string) ([]support.Ticket, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(t support.Ticket) bool { return t.ReporterID == reporterID }), nil
}

func (repo *supportRepository) UpdateTicket(_ context.Context, t support.Ticket) (support.Ticket, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[t.ID]; !ok {
		return support.Ticket{}, support.ErrNotFound
	}
	repo.db.table[t.ID] = &t
	return t, nil
}
