package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/dibs/internal/domain/list"
	"github.com/geocoder89/dibs/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ListsRepo struct {
	base
}

func NewListsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ListsRepo {
	return &ListsRepo{base{pool: pool, prom: prom}}
}

const selectList = `
	SELECT l.id, l.title, l.created_at, l.author_id, u.username
	FROM lists l
	JOIN users u ON u.id = l.author_id
`

func (r *ListsRepo) Create(ctx context.Context, req list.CreateListRequest) (list.List, error) {
	l := list.List{
		Title:     req.Title,
		AuthorID:  req.AuthorID,
		CreatedAt: time.Now().UTC(),
	}

	err := r.observe("lists.create", func() error {
		return r.pool.QueryRow(ctx, `
			WITH ins AS (
				INSERT INTO lists (title, author_id, created_at)
				VALUES ($1, $2, $3)
				RETURNING id, author_id
			)
			SELECT ins.id, u.username
			FROM ins JOIN users u ON u.id = ins.author_id`,
			l.Title, l.AuthorID, l.CreatedAt,
		).Scan(&l.ID, &l.AuthorUsername)
	})

	if err != nil {
		return list.List{}, err
	}
	return l, nil
}

func (r *ListsRepo) GetByID(ctx context.Context, id int64) (list.List, error) {
	var l list.List

	err := r.observe("lists.get_by_id", func() error {
		return r.pool.QueryRow(ctx, selectList+"WHERE l.id = $1", id).
			Scan(&l.ID, &l.Title, &l.CreatedAt, &l.AuthorID, &l.AuthorUsername)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return list.List{}, list.ErrNotFound
		}
		return list.List{}, err
	}
	return l, nil
}

// ListByAuthor returns the author's lists, newest first.
func (r *ListsRepo) ListByAuthor(ctx context.Context, authorID int64) ([]list.List, error) {
	out := make([]list.List, 0, 8)

	err := r.observe("lists.list_by_author", func() error {
		rows, err := r.pool.Query(ctx, selectList+"WHERE l.author_id = $1 ORDER BY l.created_at DESC, l.id DESC", authorID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var l list.List
			if err := rows.Scan(&l.ID, &l.Title, &l.CreatedAt, &l.AuthorID, &l.AuthorUsername); err != nil {
				return err
			}
			out = append(out, l)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListOthers returns every list not authored by viewerID, newest first.
func (r *ListsRepo) ListOthers(ctx context.Context, viewerID int64) ([]list.List, error) {
	out := make([]list.List, 0, 16)

	err := r.observe("lists.list_others", func() error {
		rows, err := r.pool.Query(ctx, selectList+"WHERE l.author_id <> $1 ORDER BY l.created_at DESC, l.id DESC", viewerID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var l list.List
			if err := rows.Scan(&l.ID, &l.Title, &l.CreatedAt, &l.AuthorID, &l.AuthorUsername); err != nil {
				return err
			}
			out = append(out, l)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the list together with its items and their comments.
func (r *ListsRepo) Delete(ctx context.Context, id int64) error {
	return r.observe("lists.delete", func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `
				DELETE FROM comments
				WHERE item_id IN (SELECT id FROM items WHERE list_id = $1)`, id); err != nil {
				return err
			}

			if _, err := tx.Exec(ctx, `DELETE FROM items WHERE list_id = $1`, id); err != nil {
				return err
			}

			tag, err := tx.Exec(ctx, `DELETE FROM lists WHERE id = $1`, id)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return list.ErrNotFound
			}
			return nil
		})
	})
}
