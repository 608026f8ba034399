package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/dibs/internal/domain/item"
	"github.com/geocoder89/dibs/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ItemsRepo struct {
	base
}

func NewItemsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ItemsRepo {
	return &ItemsRepo{base{pool: pool, prom: prom}}
}

const selectItem = `SELECT id, name, link, description, created_at, list_id, category_id FROM items `

func scanItem(row pgx.Row) (item.Item, error) {
	var it item.Item
	err := row.Scan(&it.ID, &it.Name, &it.Link, &it.Description, &it.CreatedAt, &it.ListID, &it.CategoryID)
	return it, err
}

func (r *ItemsRepo) Create(ctx context.Context, it item.Item) (item.Item, error) {
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}

	err := r.observe("items.create", func() error {
		return r.pool.QueryRow(ctx, `
			INSERT INTO items (name, link, description, created_at, list_id, category_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			it.Name, it.Link, it.Description, it.CreatedAt, it.ListID, it.CategoryID,
		).Scan(&it.ID)
	})

	if err != nil {
		return item.Item{}, err
	}
	return it, nil
}

func (r *ItemsRepo) GetByID(ctx context.Context, id int64) (item.Item, error) {
	var it item.Item

	err := r.observe("items.get_by_id", func() error {
		var err error
		it, err = scanItem(r.pool.QueryRow(ctx, selectItem+"WHERE id = $1", id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return item.Item{}, item.ErrNotFound
		}
		return item.Item{}, err
	}
	return it, nil
}

func (r *ItemsRepo) ListByList(ctx context.Context, listID int64) ([]item.Item, error) {
	out := make([]item.Item, 0, 16)

	err := r.observe("items.list_by_list", func() error {
		rows, err := r.pool.Query(ctx, selectItem+"WHERE list_id = $1 ORDER BY created_at, id", listID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			it, err := scanItem(rows)
			if err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the item and its comments.
func (r *ItemsRepo) Delete(ctx context.Context, id int64) error {
	return r.observe("items.delete", func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE item_id = $1`, id); err != nil {
				return err
			}

			tag, err := tx.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return item.ErrNotFound
			}
			return nil
		})
	})
}
