package user

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("user")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = errors.New("account deactivated")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// UpdateUser saves every field of usr.
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo       Repository
		conf       *core.Config
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, conf *core.Config, validate *validator.Validate, translator ut.Translator) *Service {
	vala.BeginValidation().Validate(
		core.IsNotNil(repo, "repo"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	return &Service{repo: repo, conf: conf, validate: validate, translator: translator}
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Caller returns the request identity of usr.
func (svc *Service) Caller(usr User) Caller {
	return usr.Caller(svc.conf.AdminEmail)
}

// Authenticate checks the credentials of an active user and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	usr.LastLogin = core.NowFunc().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

// AddOrUpdate creates the user identified by nu.Email, or resets its name and password if it exists.
func (svc *Service) AddOrUpdate(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, core.TranslateValidationErrors(err, svc.translator)
	}

	now := core.NowFunc().UTC()
	usr, err := svc.GetByEmail(ctx, nu.Email)
	switch {
	case err == nil:
		usr.Name = nu.Name
		usr.IsActive = true
		usr.UpdatedAt = now
		if err = usr.SetPassword(nu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
		usr, err = svc.repo.UpdateUser(ctx, usr)
		return usr, errors.Wrap(err, "updating user")
	case core.IsNotFound(err):
		usr = User{
			ID:        uuid.New().String(),
			Name:      nu.Name,
			Email:     nu.Email,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = usr.SetPassword(nu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
		usr, err = svc.repo.CreateUser(ctx, usr)
		return usr, errors.Wrap(err, "creating user")
	default:
		return User{}, errors.Wrap(err, "finding user by email")
	}
}

// ResetPassword sets a new password for the user with this email.
func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	check := struct {
		Password string `json:"password" validate:"required,pwdminlen,pwdnotallnum"`
	}{pwd}
	if err = svc.validate.Struct(check); err != nil {
		return core.TranslateValidationErrors(err, svc.translator)
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}
