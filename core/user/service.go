package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/udemo/academy/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("user not found")
	ErrEmailExists     = errors.New("a user with this email already exists")
	ErrUsernameExists  = errors.New("a user with this username already exists")
	ErrAlreadyVerified = errors.New("this account is already verified")
	errInvalidValue    = "invalid value"
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...int64) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser, roles ...string) (User, error)
		Register(ctx context.Context, ru RegisterUser) (User, error)
		VerifyOTP(ctx context.Context, email, code string) (User, error)
		ResendOTP(ctx context.Context, email string) error
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id int64) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...int64) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		otps    *OTPStore
	}
)

func NewService(repo Repository, mailSvc core.EmailService) Service {
	svc := newService(repo, mailSvc)
	return &svc
}

func newService(repo Repository, mailSvc core.EmailService) service {
	return service{
		repo:    repo,
		mailSvc: mailSvc,
		otps:    NewOTPStore(core.Conf.OTPTimeoutDelta, core.Conf.OTPMaxAttempts),
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Create stores an active user; roles defaults to nu.Roles.
func (svc *service) Create(ctx context.Context, nu NewUser, roles ...string) (User, error) {
	if len(roles) == 0 {
		roles = nu.Roles
	}
	now := time.Now().UTC()
	usr := User{
		Name:       nu.Name,
		Username:   nu.Username,
		Email:      nu.Email,
		Bio:        nu.Bio,
		IsActive:   true,
		IsVerified: true,
		Roles:      roles,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Register stores an inactive student and emails them a verification code.
func (svc *service) Register(ctx context.Context, ru RegisterUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      ru.Name,
		Email:     ru.Email,
		Roles:     []string{RoleStudent},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(ru.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	if err := svc.issueOTP(usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *service) VerifyOTP(ctx context.Context, email, code string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if usr.IsVerified {
		return User{}, core.NewValidationError(ErrAlreadyVerified, core.FieldError{Field: "email", Error: ErrAlreadyVerified.Error()})
	}
	if err := svc.otps.Verify(usr.Email, code); err != nil {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
	}

	usr.IsActive = true
	usr.IsVerified = true
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) ResendOTP(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if usr.IsVerified {
		return core.NewValidationError(ErrAlreadyVerified, core.FieldError{Field: "email", Error: ErrAlreadyVerified.Error()})
	}
	return svc.issueOTP(usr)
}

func (svc *service) issueOTP(usr User) error {
	code, err := svc.otps.Issue(usr.Email)
	if err != nil {
		return errors.Wrap(err, "issuing otp")
	}
	svc.sendOTPMail(usr, code)
	return nil
}

func (svc *service) sendOTPMail(usr User, code string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.DisplayName(), Address: usr.Email}},
		Subject:      fmt.Sprintf("%s verification code: %s", core.Conf.AppName, code),
		TemplateName: "otp",
		TemplateData: map[string]interface{}{
			"Name":         usr.DisplayName(),
			"Code":         code,
			"ValidMinutes": int(core.Conf.OTPTimeoutDelta / time.Minute),
		},
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

// Update applies a validated UpdateUser on top of usr.
func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Username = uu.Username
	usr.Email = uu.Email
	if uu.Bio != nil {
		usr.Bio = core.CleanString(*uu.Bio)
	}
	if uu.AvatarURL != nil {
		usr.AvatarURL = core.CleanString(*uu.AvatarURL)
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Roles != nil {
		usr.Roles = uu.Roles
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...int64) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.DisplayName(), Address: usr.Email}},
		Subject:      fmt.Sprintf("Password reset on %s", core.Conf.AppName),
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":     usr.DisplayName(),
			"Username": usr.Username,
			"UID":      EncodeUID(usr),
			"Token":    makeToken(usr),
		},
	})
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalidUID := core.NewValidationError(nil, core.FieldError{Field: "uid", Error: errInvalidValue})

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalidUID
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalidUID
		}
		return err
	}
	if err := verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: errInvalidValue})
	}
	if err := validatePasswordFor(data.Password, usr); err != nil {
		return err
	}

	if err := usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}
