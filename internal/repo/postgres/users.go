package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/geocoder89/dibs/internal/domain/user"
	"github.com/geocoder89/dibs/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	base
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{base{pool: pool, prom: prom}}
}

const selectUser = `
	SELECT u.id, u.email, u.username, u.password_hash, u.confirmed, u.role_id,
	       u.member_since, u.last_seen,
	       r.id, r.name, r.permissions, r.is_default
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id
`

func scanUser(row pgx.Row) (user.User, error) {
	var (
		u        user.User
		roleID   *int64
		roleName *string
		perms    *int
		isDef    *bool
	)

	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Confirmed, &u.RoleID,
		&u.MemberSince, &u.LastSeen,
		&roleID, &roleName, &perms, &isDef,
	)
	if err != nil {
		return user.User{}, err
	}

	if roleID != nil {
		u.Role = &role.Role{
			ID:          *roleID,
			Name:        *roleName,
			Permissions: role.Permission(*perms),
			Default:     *isDef,
		}
	}

	return u, nil
}

func (r *UsersRepo) getOne(ctx context.Context, op, where string, arg any) (user.User, error) {
	var u user.User

	err := r.observe(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, selectUser+where, arg))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", "WHERE u.id = $1", id)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", "WHERE u.email = $1", email)
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_username", "WHERE u.username = $1", username)
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	now := time.Now().UTC()
	if u.MemberSince.IsZero() {
		u.MemberSince = now
	}
	if u.LastSeen.IsZero() {
		u.LastSeen = now
	}

	err := r.observe("users.create", func() error {
		return r.pool.QueryRow(ctx, `
			INSERT INTO users (email, username, password_hash, confirmed, role_id, member_since, last_seen)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			u.Email, u.Username, u.PasswordHash, u.Confirmed, u.RoleID, u.MemberSince, u.LastSeen,
		).Scan(&u.ID)
	})

	if err != nil {
		return user.User{}, mapUserConflict(err)
	}

	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, u user.User) error {
	err := r.observe("users.update", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE users
			SET email = $2,
			    username = $3,
			    password_hash = $4,
			    confirmed = $5,
			    role_id = $6
			WHERE id = $1`,
			u.ID, u.Email, u.Username, u.PasswordHash, u.Confirmed, u.RoleID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})

	if err != nil {
		return mapUserConflict(err)
	}
	return nil
}

func (r *UsersRepo) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	return r.observe("users.touch_last_seen", func() error {
		_, err := r.pool.Exec(ctx, `UPDATE users SET last_seen = $2 WHERE id = $1`, id, at)
		return err
	})
}

func mapUserConflict(err error) error {
	if !IsUniqueViolation(err) {
		return err
	}

	switch constraintName(err) {
	case "users_email_key":
		return user.ErrEmailTaken
	case "users_username_key":
		return user.ErrUsernameTaken
	default:
		return fmt.Errorf("users unique violation: %w", err)
	}
}
