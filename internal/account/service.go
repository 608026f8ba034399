package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/dibs/internal/auth"
	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/geocoder89/dibs/internal/domain/user"
	"github.com/geocoder89/dibs/internal/notifications"
	"github.com/geocoder89/dibs/internal/observability"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAlreadyConfirmed   = errors.New("account already confirmed")
)

type UserStore interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, u user.User) error
	TouchLastSeen(ctx context.Context, id int64, at time.Time) error
}

type RoleStore interface {
	GetByID(ctx context.Context, id int64) (role.Role, error)
	GetByName(ctx context.Context, name string) (role.Role, error)
	GetDefault(ctx context.Context) (role.Role, error)
}

type Config struct {
	// AdminEmail gets the Admin role on registration.
	AdminEmail string
}

type Service struct {
	users    UserStore
	roles    RoleStore
	tokens   *auth.TokenManager
	notifier notifications.Notifier
	prom     *observability.Prom
	cfg      Config
	now      func() time.Time
}

func NewService(users UserStore, roles RoleStore, tokens *auth.TokenManager, n notifications.Notifier, prom *observability.Prom, cfg Config) *Service {
	cfg.AdminEmail = strings.ToLower(cfg.AdminEmail)
	return &Service{
		users:    users,
		roles:    roles,
		tokens:   tokens,
		notifier: n,
		prom:     prom,
		cfg:      cfg,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// Register creates an unconfirmed user and mails the confirmation token,
// which is also returned.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, string, error) {
	u := user.User{
		Email:    normalizeEmail(in.Email),
		Username: in.Username,
	}

	if err := u.SetPassword(in.Password); err != nil {
		return user.User{}, "", err
	}

	r, err := s.roleFor(ctx, u.Email)
	if err != nil {
		return user.User{}, "", err
	}
	u.SetRole(r)

	created, err := s.users.Create(ctx, u)
	if err != nil {
		s.prom.IncAuth("register", "rejected")
		return user.User{}, "", err
	}
	created.Role = &r

	token, err := s.sendConfirmation(ctx, created)
	if err != nil {
		return user.User{}, "", err
	}

	s.prom.IncAuth("register", "ok")
	return created, token, nil
}

func (s *Service) roleFor(ctx context.Context, email string) (role.Role, error) {
	if s.cfg.AdminEmail != "" && email == s.cfg.AdminEmail {
		return s.roles.GetByName(ctx, role.NameAdmin)
	}
	return s.roles.GetDefault(ctx)
}

// ResendConfirmation mails a fresh confirmation token.
func (s *Service) ResendConfirmation(ctx context.Context, u user.User) (string, error) {
	if u.Confirmed {
		return "", ErrAlreadyConfirmed
	}
	return s.sendConfirmation(ctx, u)
}

func (s *Service) sendConfirmation(ctx context.Context, u user.User) (string, error) {
	token, err := s.tokens.GenerateConfirmationToken(u.ID)
	if err != nil {
		return "", fmt.Errorf("confirmation token: %w", err)
	}

	err = s.notifier.SendConfirmation(ctx, notifications.ConfirmationInput{
		Email:    u.Email,
		Username: u.Username,
		Token:    token,
	})
	if err != nil {
		return "", fmt.Errorf("send confirmation: %w", err)
	}
	return token, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.prom.IncAuth("login", "rejected")
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, err
	}

	if !u.VerifyPassword(password) {
		s.prom.IncAuth("login", "rejected")
		return user.User{}, ErrInvalidCredentials
	}

	s.prom.IncAuth("login", "ok")
	return u, nil
}

// Confirm marks u confirmed when token is a confirm token issued for u.
func (s *Service) Confirm(ctx context.Context, u user.User, token string) (user.User, error) {
	claims, err := s.tokens.Verify(token, auth.PurposeConfirm)
	if err != nil {
		s.prom.IncAuth("confirm", "rejected")
		return u, err
	}
	if claims.UserID != u.ID {
		s.prom.IncAuth("confirm", "rejected")
		return u, auth.ErrInvalidToken
	}

	u.Confirmed = true
	if err := s.users.Update(ctx, u); err != nil {
		return u, err
	}

	s.prom.IncAuth("confirm", "ok")
	return u, nil
}

// RequestPasswordReset mails a reset token when the email is known. found is
// false for unknown addresses, which callers must not reveal.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (u user.User, token string, found bool, err error) {
	u, err = s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, "", false, nil
		}
		return user.User{}, "", false, err
	}

	token, err = s.tokens.GenerateResetToken(u.ID)
	if err != nil {
		return user.User{}, "", true, fmt.Errorf("reset token: %w", err)
	}

	err = s.notifier.SendPasswordReset(ctx, notifications.PasswordResetInput{
		Email:    u.Email,
		Username: u.Username,
		Token:    token,
	})
	if err != nil {
		return user.User{}, "", true, fmt.Errorf("send reset: %w", err)
	}

	return u, token, true, nil
}

// ResetPassword sets a new password for the user named by a reset token.
// Any token problem, including an unknown user, yields auth.ErrInvalidToken.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.Verify(token, auth.PurposeReset)
	if err != nil {
		s.prom.IncAuth("reset", "rejected")
		return auth.ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.prom.IncAuth("reset", "rejected")
			return auth.ErrInvalidToken
		}
		return err
	}

	if err := u.SetPassword(newPassword); err != nil {
		return err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	s.prom.IncAuth("reset", "ok")
	return nil
}

// RequestEmailChange checks the password and mails a change token to the
// new address.
func (s *Service) RequestEmailChange(ctx context.Context, u user.User, newEmail, password string) (string, error) {
	if !u.VerifyPassword(password) {
		return "", ErrInvalidCredentials
	}

	newEmail = normalizeEmail(newEmail)
	if _, err := s.users.GetByEmail(ctx, newEmail); err == nil {
		return "", user.ErrEmailTaken
	} else if !errors.Is(err, user.ErrNotFound) {
		return "", err
	}

	token, err := s.tokens.GenerateEmailChangeToken(u.ID, newEmail)
	if err != nil {
		return "", fmt.Errorf("email change token: %w", err)
	}

	err = s.notifier.SendEmailChange(ctx, notifications.EmailChangeInput{
		NewEmail: newEmail,
		Username: u.Username,
		Token:    token,
	})
	if err != nil {
		return "", fmt.Errorf("send email change: %w", err)
	}
	return token, nil
}

func (s *Service) ChangeEmail(ctx context.Context, u user.User, token string) (user.User, error) {
	claims, err := s.tokens.Verify(token, auth.PurposeChangeEmail)
	if err != nil {
		return u, err
	}
	if claims.UserID != u.ID || claims.NewEmail == "" {
		return u, auth.ErrInvalidToken
	}

	newEmail := normalizeEmail(claims.NewEmail)
	if _, err := s.users.GetByEmail(ctx, newEmail); err == nil {
		return u, user.ErrEmailTaken
	} else if !errors.Is(err, user.ErrNotFound) {
		return u, err
	}

	u.Email = newEmail
	if err := s.users.Update(ctx, u); err != nil {
		return u, err
	}
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, u user.User, oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return ErrInvalidCredentials
	}
	if err := u.SetPassword(newPassword); err != nil {
		return err
	}
	return s.users.Update(ctx, u)
}

// Ping records activity for u.
func (s *Service) Ping(ctx context.Context, u user.User) error {
	return s.users.TouchLastSeen(ctx, u.ID, s.now().UTC())
}

type AdminEdit struct {
	Email     string
	Username  string
	Confirmed bool
	RoleID    int64
}

// AdminUpdate applies an administrator's edit of another account.
func (s *Service) AdminUpdate(ctx context.Context, target user.User, edit AdminEdit) (user.User, error) {
	r, err := s.roles.GetByID(ctx, edit.RoleID)
	if err != nil {
		return target, err
	}

	target.Email = normalizeEmail(edit.Email)
	target.Username = edit.Username
	target.Confirmed = edit.Confirmed
	target.SetRole(r)

	if err := s.users.Update(ctx, target); err != nil {
		return target, err
	}
	return target, nil
}
