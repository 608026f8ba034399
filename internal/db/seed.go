package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/geocoder89/dibs/internal/config"
	"github.com/geocoder89/dibs/internal/domain/category"
	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/geocoder89/dibs/internal/domain/user"
)

type RoleStore interface {
	Upsert(ctx context.Context, r role.Role) (role.Role, error)
}

type CategoryStore interface {
	Upsert(ctx context.Context, c category.Category) (category.Category, error)
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

type SeedStores struct {
	Roles      RoleStore
	Categories CategoryStore
	Users      UserStore
}

// Seed writes the role table, the categories and, when configured, a
// confirmed admin and a confirmed regular user. Existing rows are kept.
func Seed(ctx context.Context, s SeedStores, cfg config.Config, log *slog.Logger) error {
	roles := make(map[string]role.Role)

	for _, r := range role.Seed() {
		saved, err := s.Roles.Upsert(ctx, r)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
		roles[saved.Name] = saved
	}

	for _, c := range category.Seed() {
		if _, err := s.Categories.Upsert(ctx, c); err != nil {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}

	if cfg.SeedPass == "" {
		log.Info("DIBS_PASS not set, skipping seed users")
		return nil
	}

	seeds := []struct {
		email string
		role  string
	}{
		{cfg.AdminEmail, role.NameAdmin},
		{cfg.UserEmail, role.NameUser},
	}

	for _, sd := range seeds {
		if sd.email == "" {
			continue
		}
		if err := ensureUser(ctx, s.Users, sd.email, cfg.SeedPass, roles[sd.role]); err != nil {
			return fmt.Errorf("seed user %s: %w", sd.email, err)
		}
		log.Info("seed user ready", "email", sd.email, "role", sd.role)
	}

	return nil
}

func ensureUser(ctx context.Context, users UserStore, email, password string, r role.Role) error {
	email = strings.ToLower(email)

	_, err := users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	u := user.User{
		Email:     email,
		Username:  usernameFromEmail(email),
		Confirmed: true,
	}
	u.SetRole(r)

	if err := u.SetPassword(password); err != nil {
		return err
	}

	_, err = users.Create(ctx, u)
	return err
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
