package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core/settings"
)

type settingsRepository struct {
	db *sqlx.DB
}

var _ settings.Repository = (*settingsRepository)(nil)

func NewSettingsRepository(db *sqlx.DB) *settingsRepository {
	return &settingsRepository{db: db}
}

type settingsRow struct {
	MaintenanceMode  bool           `db:"maintenance_mode"`
	RetryAfterSecs   int            `db:"retry_after_secs"`
	TeacherAllowList pq.StringArray `db:"teacher_allow_list"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (repo settingsRepository) GetSettings(ctx context.Context) (settings.Settings, error) {
	var r settingsRow
	err := repo.db.GetContext(ctx, &r, `
		SELECT maintenance_mode, retry_after_secs, teacher_allow_list, updated_at
		FROM app_settings WHERE id = 1`)
	if err != nil {
		return settings.Settings{}, errors.Wrap(err, "getting settings")
	}
	return settings.Settings{
		MaintenanceMode:  r.MaintenanceMode,
		RetryAfterSecs:   r.RetryAfterSecs,
		TeacherAllowList: r.TeacherAllowList,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

func (repo settingsRepository) SaveSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE app_settings
		SET maintenance_mode = $1, retry_after_secs = $2, teacher_allow_list = $3, updated_at = $4
		WHERE id = 1`,
		s.MaintenanceMode, s.RetryAfterSecs, pq.StringArray(s.TeacherAllowList), s.UpdatedAt.UTC())
	if err != nil {
		return settings.Settings{}, errors.Wrap(err, "saving settings")
	}
	return s, nil
}
