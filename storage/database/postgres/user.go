package pgrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID             string      `db:"id"`
	Name           string      `db:"name"`
	Email          string      `db:"email"`
	Role           string      `db:"role"`
	Year           null.Int    `db:"year"`
	Division       null.String `db:"division"`
	ApprovalStatus null.String `db:"approval_status"`
	IsActive       bool        `db:"is_active"`
	PasswordHash   []byte      `db:"password_hash"`
	TOTPSecret     null.String `db:"totp_secret"`
	TOTPEnabled    bool        `db:"totp_enabled"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
	LastLogin      null.Time   `db:"last_login"`
}

func (repo userRepository) row(usr user.User) userRow {
	return userRow{
		ID:             usr.ID,
		Name:           usr.Name,
		Email:          usr.Email,
		Role:           string(usr.Role),
		Year:           null.NewInt(usr.Year, usr.Year != 0),
		Division:       null.NewString(usr.Division, usr.Division != ""),
		ApprovalStatus: null.NewString(string(usr.ApprovalStatus), usr.ApprovalStatus != ""),
		IsActive:       usr.IsActive,
		PasswordHash:   usr.PasswordHash,
		TOTPSecret:     null.NewString(usr.TOTPSecret, usr.TOTPSecret != ""),
		TOTPEnabled:    usr.TOTPEnabled,
		CreatedAt:      usr.CreatedAt.UTC(),
		UpdatedAt:      usr.UpdatedAt.UTC(),
		LastLogin:      null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unrow(r userRow) user.User {
	return user.User{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Role:           authz.Role(r.Role),
		Year:           r.Year.Int,
		Division:       r.Division.String,
		ApprovalStatus: authz.ApprovalStatus(r.ApprovalStatus.String),
		IsActive:       r.IsActive,
		PasswordHash:   r.PasswordHash,
		TOTPSecret:     r.TOTPSecret.String,
		TOTPEnabled:    r.TOTPEnabled,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		LastLogin:      r.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func trapNoRowsErr(err error, sentinel error, msg string) error {
	if err == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND id <> ALL($2)`
		args = append(args, pq.Array(ids))
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	r := repo.row(usr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, name, email, role, year, division, approval_status, is_active,
		                    password_hash, totp_secret, totp_enabled, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :role, :year, :division, :approval_status, :is_active,
		        :password_hash, :totp_secret, :totp_enabled, :created_at, :updated_at, :last_login)`, r)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.unrow(r), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var r userRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM "user" WHERE id = $1`, id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user by id")
	}
	return repo.unrow(r), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var r userRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM "user" WHERE email = $1`, email); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user by email")
	}
	return repo.unrow(r), nil
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	conds := []string{"1 = 1"}
	args := make([]interface{}, 0, 8)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s)", p, p))
	}
	if filter.Role != "" {
		conds = append(conds, "role = "+arg(filter.Role))
	}
	if filter.Year != 0 {
		conds = append(conds, "year = "+arg(filter.Year))
	}
	if filter.Division != "" {
		conds = append(conds, "division = "+arg(filter.Division))
	}
	if filter.Approval != "" {
		conds = append(conds, "approval_status = "+arg(filter.Approval))
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(*filter.IsActive))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "created_at >= "+arg(filter.CreatedFrom))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "created_at <= "+arg(filter.CreatedTo))
	}

	query := `SELECT * FROM "user" WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at`
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}

	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, repo.unrow(r))
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	if isActive != nil {
		usr.IsActive = *isActive
	}
	r := repo.row(usr)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE "user"
		SET name = :name, email = :email, role = :role, year = :year, division = :division,
		    approval_status = :approval_status, is_active = :is_active, password_hash = :password_hash,
		    totp_secret = :totp_secret, totp_enabled = :totp_enabled, updated_at = :updated_at,
		    last_login = :last_login
		WHERE id = :id`, r)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.unrow(r), nil
}

func (repo userRepository) DeactivateUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx,
		`UPDATE "user" SET is_active = FALSE, updated_at = NOW() WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deactivating users")
}

// TeacherEmail implements school.TeacherDirectory.
func (repo userRepository) TeacherEmail(ctx context.Context, teacherID string) (string, error) {
	var email string
	err := repo.db.GetContext(ctx, &email,
		`SELECT email FROM "user" WHERE id = $1 AND role = $2`, teacherID, string(authz.RoleTeacher))
	if err != nil {
		return "", trapNoRowsErr(err, user.ErrNotFound, "getting teacher email")
	}
	return email, nil
}
