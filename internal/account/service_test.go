package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/dibs/internal/auth"
	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/geocoder89/dibs/internal/domain/user"
	"github.com/geocoder89/dibs/internal/notifications"
	"github.com/geocoder89/dibs/internal/repo/memory"
)

type captureNotifier struct {
	mu      sync.Mutex
	confirm []notifications.ConfirmationInput
	reset   []notifications.PasswordResetInput
	change  []notifications.EmailChangeInput
}

func (c *captureNotifier) SendConfirmation(_ context.Context, in notifications.ConfirmationInput) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirm = append(c.confirm, in)
	return nil
}

func (c *captureNotifier) SendPasswordReset(_ context.Context, in notifications.PasswordResetInput) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset = append(c.reset, in)
	return nil
}

func (c *captureNotifier) SendEmailChange(_ context.Context, in notifications.EmailChangeInput) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.change = append(c.change, in)
	return nil
}

func newTestService(t *testing.T) (*Service, *memory.DB, *captureNotifier) {
	t.Helper()

	db := memory.New()
	for _, r := range role.Seed() {
		if _, err := db.Roles().Upsert(context.Background(), r); err != nil {
			t.Fatalf("seed roles: %v", err)
		}
	}

	n := &captureNotifier{}
	tm := auth.NewTokenManager("test-secret", time.Hour)
	svc := NewService(db.Users(), db.Roles(), tm, n, nil, Config{AdminEmail: "Boss@Example.com"})
	return svc, db, n
}

func register(t *testing.T, svc *Service, email, username string) (user.User, string) {
	t.Helper()
	u, tok, err := svc.Register(context.Background(), RegisterInput{Email: email, Username: username, Password: "cat"})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u, tok
}

func TestRegister_AssignsRolesAndMailsToken(t *testing.T) {
	svc, _, n := newTestService(t)

	u, tok := register(t, svc, "John@Example.com", "john")
	if u.Email != "john@example.com" {
		t.Fatalf("expected lower cased email, got %q", u.Email)
	}
	if u.Confirmed {
		t.Fatalf("new users start unconfirmed")
	}
	if u.Role == nil || u.Role.Name != role.NameUser {
		t.Fatalf("expected default role, got %+v", u.Role)
	}
	if len(n.confirm) != 1 || n.confirm[0].Token != tok {
		t.Fatalf("expected confirmation mail with token")
	}

	admin, _ := register(t, svc, "boss@example.com", "boss")
	if !admin.IsAdministrator() {
		t.Fatalf("expected admin role for DIBS_ADMIN address")
	}

	_, _, err := svc.Register(context.Background(), RegisterInput{Email: "john@example.com", Username: "other", Password: "x"})
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc, "john@example.com", "john")

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"ok", "john@example.com", "cat", nil},
		{"case insensitive email", "JOHN@example.com", "cat", nil},
		{"wrong password", "john@example.com", "dog", ErrInvalidCredentials},
		{"unknown email", "nobody@example.com", "cat", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	svc, db, _ := newTestService(t)
	john, tok := register(t, svc, "john@example.com", "john")
	susan, _ := register(t, svc, "susan@example.com", "susan")

	if _, err := svc.Confirm(context.Background(), susan, tok); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("token for john must not confirm susan, got %v", err)
	}

	if _, err := svc.Confirm(context.Background(), john, tok+"x"); err == nil {
		t.Fatalf("tampered token must fail")
	}

	confirmed, err := svc.Confirm(context.Background(), john, tok)
	if err != nil || !confirmed.Confirmed {
		t.Fatalf("confirm failed: %v", err)
	}

	stored, _ := db.Users().GetByID(context.Background(), john.ID)
	if !stored.Confirmed {
		t.Fatalf("confirmation not persisted")
	}

	if _, err := svc.ResendConfirmation(context.Background(), stored); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	svc, _, n := newTestService(t)
	register(t, svc, "john@example.com", "john")

	_, _, found, err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	if err != nil || found {
		t.Fatalf("unknown email should be silently not found, found=%v err=%v", found, err)
	}

	_, tok, found, err := svc.RequestPasswordReset(context.Background(), "JOHN@example.com")
	if err != nil || !found {
		t.Fatalf("reset request: found=%v err=%v", found, err)
	}
	if len(n.reset) != 1 {
		t.Fatalf("expected reset mail")
	}

	if err := svc.ResetPassword(context.Background(), tok+"a", "dog"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("tampered token must fail, got %v", err)
	}
	if err := svc.ResetPassword(context.Background(), tok, "dog"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), "john@example.com", "dog"); err != nil {
		t.Fatalf("new password should work: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "john@example.com", "cat"); err == nil {
		t.Fatalf("old password should fail")
	}
}

func TestResetPassword_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	tok, _ := svc.tokens.GenerateResetToken(9999)
	if err := svc.ResetPassword(context.Background(), tok, "dog"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestEmailChange(t *testing.T) {
	svc, _, n := newTestService(t)
	john, _ := register(t, svc, "john@example.com", "john")
	register(t, svc, "susan@example.com", "susan")

	if _, err := svc.RequestEmailChange(context.Background(), john, "new@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.RequestEmailChange(context.Background(), john, "susan@example.com", "cat"); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	tok, err := svc.RequestEmailChange(context.Background(), john, "New@Example.com", "cat")
	if err != nil {
		t.Fatalf("request change: %v", err)
	}
	if len(n.change) != 1 || n.change[0].NewEmail != "new@example.com" {
		t.Fatalf("expected change mail to new address, got %+v", n.change)
	}

	updated, err := svc.ChangeEmail(context.Background(), john, tok)
	if err != nil {
		t.Fatalf("change email: %v", err)
	}
	if updated.Email != "new@example.com" {
		t.Fatalf("expected new email, got %q", updated.Email)
	}
}

func TestChangePassword(t *testing.T) {
	svc, db, _ := newTestService(t)
	john, _ := register(t, svc, "john@example.com", "john")

	if err := svc.ChangePassword(context.Background(), john, "dog", "cow"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), john, "cat", "cow"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	stored, _ := db.Users().GetByID(context.Background(), john.ID)
	if !stored.VerifyPassword("cow") {
		t.Fatalf("new password not stored")
	}
}

func TestPing_UpdatesLastSeen(t *testing.T) {
	svc, db, _ := newTestService(t)
	john, _ := register(t, svc, "john@example.com", "john")

	later := john.LastSeen.Add(time.Hour)
	svc.now = func() time.Time { return later }

	if err := svc.Ping(context.Background(), john); err != nil {
		t.Fatalf("ping: %v", err)
	}

	stored, _ := db.Users().GetByID(context.Background(), john.ID)
	if !stored.LastSeen.Equal(later.UTC()) {
		t.Fatalf("expected last seen %s, got %s", later, stored.LastSeen)
	}
}

func TestAdminUpdate(t *testing.T) {
	svc, db, _ := newTestService(t)
	john, _ := register(t, svc, "john@example.com", "john")
	register(t, svc, "susan@example.com", "susan")

	adminRole, _ := db.Roles().GetByName(context.Background(), role.NameAdmin)

	updated, err := svc.AdminUpdate(context.Background(), john, AdminEdit{
		Email: "JOHNNY@example.com", Username: "johnny", Confirmed: true, RoleID: adminRole.ID,
	})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if !updated.IsAdministrator() || updated.Email != "johnny@example.com" || !updated.Confirmed {
		t.Fatalf("unexpected result %+v", updated)
	}

	_, err = svc.AdminUpdate(context.Background(), updated, AdminEdit{
		Email: "johnny@example.com", Username: "susan", RoleID: adminRole.ID,
	})
	if !errors.Is(err, user.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}
