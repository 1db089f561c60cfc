package user

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/aulanet/campus/core"
	"github.com/aulanet/campus/core/authz"
)

const (
	// MinYear/MaxYear bound the academic year of a student (1ro a 6to).
	MinYear = 1
	MaxYear = 6
	// MaxDividedYear: years 1-4 are split in divisions A/B; 5th and 6th are not.
	MaxDividedYear = 4
)

type User struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Email          string               `json:"email"`
	Role           authz.Role           `json:"role"`
	Year           int                  `json:"year,omitempty"`     // students only
	Division       string               `json:"division,omitempty"` // students, years 1-4
	ApprovalStatus authz.ApprovalStatus `json:"approval_status,omitempty"`
	IsActive       bool                 `json:"is_active"`
	PasswordHash   []byte               `json:"-"`
	TOTPSecret     string               `json:"-"`
	TOTPEnabled    bool                 `json:"totp_enabled"`
	CreatedAt      time.Time            `json:"created_at"` // UTC
	UpdatedAt      time.Time            `json:"updated_at"` // UTC
	LastLogin      time.Time            `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == authz.RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == authz.RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == authz.RoleStudent }

// Identity projects the user onto what the access-control policy needs.
func (u *User) Identity() authz.Identity {
	return authz.Identity{
		ID:       u.ID,
		Role:     u.Role,
		Year:     u.Year,
		Division: u.Division,
		Approval: u.ApprovalStatus,
	}
}

// NewUser contains information needed to register a new student. Staff
// accounts go through NewStaffUser instead.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Year            int    `json:"year" validate:"required,min=1,max=6"`
	Division        string `json:"division" validate:"omitempty,oneof=A B"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Division = core.NormalizeDivision(nu.Division)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	if nu.Year <= MaxDividedYear && nu.Division == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "division", Error: "la división es obligatoria de 1ro a 4to año"})
	}
	if nu.Year > MaxDividedYear && nu.Division != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "division", Error: "5to y 6to año no tienen división"})
	}
	return svc.CheckUniqueness(nu.Email)
}

// NewStaffUser is an admin-created teacher/admin account.
type NewStaffUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,role"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ns *NewStaffUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if role, _ := authz.ParseRole(ns.Role); role == authz.RoleStudent {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "los estudiantes se registran por el formulario público"})
	}
	return svc.CheckUniqueness(ns.Email)
}

// UpdateProfile defines the self-service editable fields. Role, year,
// division, approval and activation are admin-only and travel separately.
type UpdateProfile struct {
	Name            string `json:"name"`
	Password        string `json:"password" validate:"omitempty,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
	AvatarURL       string `json:"avatar_url" validate:"omitempty,url"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	return validate.Struct(up)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	Year        int       `query:"year"`
	Division    string    `query:"division"`
	Approval    string    `query:"approval_status"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.Year == 0 && qf.Division == "" &&
		qf.Approval == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true)
	qf.Division = core.NormalizeDivision(qf.Division)
}

// InitValidators registers user-specific validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, err := authz.ParseRole(fl.Field().String())
		return err == nil
	})
	core.RegisterCustomTranslation(validate, translator, "role", "rol desconocido")
}
