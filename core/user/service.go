package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/pquerna/otp/totp"

	"github.com/aulanet/campus/core"
	"github.com/aulanet/campus/core/authz"
)

var (
	ErrNotFound    = errors.New("usuario no encontrado")
	ErrEmailExists = errors.New("ya existe un usuario con este email")
	ErrInvalidCode = errors.New("código de verificación inválido")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// FilterUsers applies AND semantics on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Name or Email.
		FilterUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		DeactivateUsersByID(ctx context.Context, ids ...string) error
	}

	ServiceInterface interface {
		CheckUniqueness(email string, exclUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		CreateStaff(ctx context.Context, ns NewStaffUser) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Filter(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateProfile(ctx context.Context, id string, up UpdateProfile) (User, error)
		Approve(ctx context.Context, actor authz.Identity, id string) (User, error)
		Reject(ctx context.Context, actor authz.Identity, id string) (User, error)
		Deactivate(ctx context.Context, ids ...string) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
		SetupTwoFactor(ctx context.Context, usr User) (otpURL string, err error)
		ConfirmTwoFactor(ctx context.Context, usr User, code string) error
		DisableTwoFactor(ctx context.Context, usr User, code string) error
	}

	Service struct {
		repo   Repository
		mail   core.EmailService
		conf   *core.Config
		logger core.Logger
		audit  core.AuditSink
		notify core.NotificationSink
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
	audit core.AuditSink,
	notify core.NotificationSink,
) *Service {
	return &Service{
		repo:   repo,
		mail:   mailSvc,
		conf:   conf,
		logger: logger,
		audit:  audit,
		notify: notify,
	}
}

func (svc *Service) CheckUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a student account. New students start pending and stay
// read-only until an admin approves them.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:           nu.Name,
		Email:          nu.Email,
		Role:           authz.RoleStudent,
		Year:           nu.Year,
		Division:       nu.Division,
		ApprovalStatus: authz.ApprovalPending,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		// a concurrent registration can slip past the pre-validation check
		if errors.Cause(err) == ErrEmailExists {
			return User{}, core.NewConflictError(ErrEmailExists.Error())
		}
		return User{}, errors.Wrap(err, "creating user")
	}

	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Bienvenido al Campus Virtual",
		TemplateName: "welcome",
		TemplateData: struct{ Name string }{usr.Name},
	})
	return usr, nil
}

func (svc *Service) CreateStaff(ctx context.Context, ns NewStaffUser) (User, error) {
	role, err := authz.ParseRole(ns.Role)
	if err != nil {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "role", Error: "rol desconocido"})
	}
	now := time.Now().UTC()
	usr := User{
		Name:      ns.Name,
		Email:     ns.Email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(ns.Password); err != nil {
		return User{}, err
	}
	usr, err = svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, core.NewConflictError(ErrEmailExists.Error())
		}
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	return svc.repo.FilterUsers(ctx, filter)
}

func (svc *Service) UpdateProfile(ctx context.Context, id string, up UpdateProfile) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if up.Name != "" {
		usr.Name = up.Name
	}
	if up.Password != "" {
		if err := usr.SetPassword(up.Password); err != nil {
			return User{}, err
		}
		svc.audit.Record(ctx, core.AuditEntry{UserID: usr.ID, Action: core.AuditPasswordChanged})
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil)
}

func (svc *Service) setApproval(ctx context.Context, actor authz.Identity, id string, status authz.ApprovalStatus) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !usr.IsStudent() {
		return User{}, core.NewValidationError(errors.New("solo los estudiantes requieren aprobación"))
	}
	usr.ApprovalStatus = status
	usr.UpdatedAt = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr, nil)
	if err != nil {
		return User{}, err
	}

	action := core.AuditUserApproved
	title := "Tu cuenta fue aprobada"
	body := "Ya podés participar en tus materias."
	if status == authz.ApprovalRejected {
		action = core.AuditUserRejected
		title = "Tu registro fue rechazado"
		body = "Contactá a la administración para más información."
	}
	svc.audit.Record(ctx, core.AuditEntry{UserID: actor.ID, Action: action, Details: fmt.Sprintf("student=%s", usr.ID)})
	svc.notify.Notify(ctx, core.Note{UserID: usr.ID, Kind: "account", Title: title, Body: body})

	if status == authz.ApprovalApproved {
		svc.mail.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "Cuenta aprobada",
			TemplateName: "account-approved",
			TemplateData: struct{ Name string }{usr.Name},
		})
	}
	return usr, nil
}

func (svc *Service) Approve(ctx context.Context, actor authz.Identity, id string) (User, error) {
	return svc.setApproval(ctx, actor, id, authz.ApprovalApproved)
}

func (svc *Service) Reject(ctx context.Context, actor authz.Identity, id string) (User, error) {
	return svc.setApproval(ctx, actor, id, authz.ApprovalRejected)
}

// Deactivate soft-deletes: users are never physically removed. Deactivation
// forcibly ends the user's access, so it is logged as a revoked session.
func (svc *Service) Deactivate(ctx context.Context, ids ...string) error {
	if err := svc.repo.DeactivateUsersByID(ctx, ids...); err != nil {
		return err
	}
	for _, id := range ids {
		svc.audit.Record(ctx, core.AuditEntry{UserID: id, Action: core.AuditSessionRevoked})
	}
	return nil
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil)
}

// RequestPasswordReset emails a reset link. It deliberately succeeds for
// unknown emails so the endpoint does not leak which addresses exist.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}

	token, err := MakeToken(svc.conf, usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}
	svc.audit.Record(ctx, core.AuditEntry{UserID: usr.ID, Action: core.AuditPasswordResetRequested})
	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Restablecer contraseña",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{usr.Name, EncodeUID(usr), token},
	})
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return err
	}
	if err := verifyToken(svc.conf, usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err := usr.SetPassword(rp.Password); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateUser(ctx, usr, nil); err != nil {
		return err
	}
	svc.audit.Record(ctx, core.AuditEntry{UserID: usr.ID, Action: core.AuditPasswordChanged, Details: "via reset token"})
	return nil
}

// SetupTwoFactor generates a new TOTP secret and returns the otpauth:// URL
// to be rendered as a QR code. The secret stays disabled until confirmed.
func (svc *Service) SetupTwoFactor(ctx context.Context, usr User) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      svc.conf.AppName,
		AccountName: usr.Email,
	})
	if err != nil {
		return "", errors.Wrap(err, "generating TOTP key")
	}
	usr.TOTPSecret = key.Secret()
	usr.TOTPEnabled = false
	usr.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateUser(ctx, usr, nil); err != nil {
		return "", err
	}
	return key.URL(), nil
}

func (svc *Service) ConfirmTwoFactor(ctx context.Context, usr User, code string) error {
	if usr.TOTPSecret == "" || !totp.Validate(code, usr.TOTPSecret) {
		return core.NewValidationError(ErrInvalidCode, core.FieldError{Field: "code", Error: ErrInvalidCode.Error()})
	}
	usr.TOTPEnabled = true
	usr.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateUser(ctx, usr, nil); err != nil {
		return err
	}
	svc.audit.Record(ctx, core.AuditEntry{UserID: usr.ID, Action: core.AuditTwoFactorEnabled})
	return nil
}

func (svc *Service) DisableTwoFactor(ctx context.Context, usr User, code string) error {
	if !usr.TOTPEnabled {
		return nil
	}
	if !totp.Validate(code, usr.TOTPSecret) {
		return core.NewValidationError(ErrInvalidCode, core.FieldError{Field: "code", Error: ErrInvalidCode.Error()})
	}
	usr.TOTPEnabled = false
	usr.TOTPSecret = ""
	usr.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateUser(ctx, usr, nil); err != nil {
		return err
	}
	svc.audit.Record(ctx, core.AuditEntry{UserID: usr.ID, Action: core.AuditTwoFactorDisabled})
	return nil
}

// VerifyTOTP checks a login code against the user's confirmed secret.
func VerifyTOTP(usr User, code string) bool {
	return usr.TOTPEnabled && totp.Validate(code, usr.TOTPSecret)
}
