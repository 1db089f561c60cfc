package pgrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aulanet/campus/core/audit"
)

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *sqlx.DB) *auditRepository {
	return &auditRepository{db: db}
}

type auditRow struct {
	ID        string      `db:"id"`
	UserID    null.String `db:"user_id"`
	Action    string      `db:"action"`
	Details   null.String `db:"details"`
	IP        null.String `db:"ip"`
	UserAgent null.String `db:"user_agent"`
	CreatedAt time.Time   `db:"created_at"`
}

func (repo auditRepository) AppendLog(ctx context.Context, l audit.Log) error {
	r := auditRow{
		ID:        uuid.New().String(),
		UserID:    null.NewString(l.UserID, l.UserID != ""),
		Action:    l.Action,
		Details:   null.NewString(l.Details, l.Details != ""),
		IP:        null.NewString(l.IP, l.IP != ""),
		UserAgent: null.NewString(l.UserAgent, l.UserAgent != ""),
		CreatedAt: l.CreatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO audit_log (id, user_id, action, details, ip, user_agent, created_at)
		VALUES (:id, :user_id, :action, :details, :ip, :user_agent, :created_at)`, r)
	return errors.Wrap(err, "inserting audit log")
}

func (repo auditRepository) QueryLogs(ctx context.Context, filter audit.QueryFilter) ([]audit.Log, error) {
	conds := []string{"1 = 1"}
	args := make([]interface{}, 0, 4)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != "" {
		conds = append(conds, "user_id = "+arg(filter.UserID))
	}
	if filter.Action != "" {
		conds = append(conds, "action = "+arg(filter.Action))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "created_at <= "+arg(filter.To))
	}

	query := `SELECT * FROM audit_log WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`
	var rows []auditRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying audit logs")
	}

	logs := make([]audit.Log, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, audit.Log{
			ID:        r.ID,
			UserID:    r.UserID.String,
			Action:    r.Action,
			Details:   r.Details.String,
			IP:        r.IP.String,
			UserAgent: r.UserAgent.String,
			CreatedAt: r.CreatedAt,
		})
	}
	return logs, nil
}
