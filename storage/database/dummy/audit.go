package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/aulanet/campus/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) AppendLog(_ context.Context, l audit.Log) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	l.ID = uuid.New().String()
	repo.db.logs = append(repo.db.logs, l)
	return nil
}

func (repo *auditRepository) QueryLogs(_ context.Context, filter audit.QueryFilter) ([]audit.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	logs := make([]audit.Log, 0)
	// newest first
	for i := len(repo.db.logs) - 1; i >= 0; i-- {
		l := repo.db.logs[i]
		if filter.UserID != "" && l.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if !filter.From.IsZero() && l.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && l.CreatedAt.After(filter.To) {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}
