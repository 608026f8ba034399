package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/geocoder89/dibs/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RolesRepo struct {
	base
}

func NewRolesRepo(pool *pgxpool.Pool, prom *observability.Prom) *RolesRepo {
	return &RolesRepo{base{pool: pool, prom: prom}}
}

func (r *RolesRepo) List(ctx context.Context) ([]role.Role, error) {
	out := make([]role.Role, 0, 2)

	err := r.observe("roles.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT id, name, permissions, is_default FROM roles ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var ro role.Role
			if err := rows.Scan(&ro.ID, &ro.Name, &ro.Permissions, &ro.Default); err != nil {
				return err
			}
			out = append(out, ro)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RolesRepo) getOne(ctx context.Context, op, where string, args ...any) (role.Role, error) {
	var ro role.Role

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, permissions, is_default FROM roles `+where, args...,
		).Scan(&ro.ID, &ro.Name, &ro.Permissions, &ro.Default)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return role.Role{}, role.ErrNotFound
		}
		return role.Role{}, err
	}
	return ro, nil
}

func (r *RolesRepo) GetByID(ctx context.Context, id int64) (role.Role, error) {
	return r.getOne(ctx, "roles.get_by_id", "WHERE id = $1", id)
}

func (r *RolesRepo) GetByName(ctx context.Context, name string) (role.Role, error) {
	return r.getOne(ctx, "roles.get_by_name", "WHERE name = $1", name)
}

func (r *RolesRepo) GetDefault(ctx context.Context) (role.Role, error) {
	return r.getOne(ctx, "roles.get_default", "WHERE is_default ORDER BY id LIMIT 1")
}

// Upsert inserts the role or resets permissions/default of an existing one.
func (r *RolesRepo) Upsert(ctx context.Context, ro role.Role) (role.Role, error) {
	err := r.observe("roles.upsert", func() error {
		return r.pool.QueryRow(ctx, `
			INSERT INTO roles (name, permissions, is_default)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE
			SET permissions = EXCLUDED.permissions,
			    is_default = EXCLUDED.is_default
			RETURNING id`,
			ro.Name, ro.Permissions, ro.Default,
		).Scan(&ro.ID)
	})

	if err != nil {
		return role.Role{}, err
	}
	return ro, nil
}
