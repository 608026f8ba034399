package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/dibs/internal/domain/category"
	"github.com/geocoder89/dibs/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoriesRepo struct {
	base
}

func NewCategoriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *CategoriesRepo {
	return &CategoriesRepo{base{pool: pool, prom: prom}}
}

func (r *CategoriesRepo) List(ctx context.Context) ([]category.Category, error) {
	out := make([]category.Category, 0, 8)

	err := r.observe("categories.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT id, name, is_default FROM categories ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c category.Category
			if err := rows.Scan(&c.ID, &c.Name, &c.Default); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CategoriesRepo) GetByID(ctx context.Context, id int64) (category.Category, error) {
	var c category.Category

	err := r.observe("categories.get_by_id", func() error {
		return r.pool.QueryRow(ctx, `SELECT id, name, is_default FROM categories WHERE id = $1`, id).
			Scan(&c.ID, &c.Name, &c.Default)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return category.Category{}, category.ErrNotFound
		}
		return category.Category{}, err
	}
	return c, nil
}

func (r *CategoriesRepo) Upsert(ctx context.Context, c category.Category) (category.Category, error) {
	err := r.observe("categories.upsert", func() error {
		return r.pool.QueryRow(ctx, `
			INSERT INTO categories (name, is_default)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET is_default = EXCLUDED.is_default
			RETURNING id`,
			c.Name, c.Default,
		).Scan(&c.ID)
	})

	if err != nil {
		return category.Category{}, err
	}
	return c, nil
}
