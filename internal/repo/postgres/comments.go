package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/dibs/internal/domain/comment"
	"github.com/geocoder89/dibs/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CommentsRepo struct {
	base
}

func NewCommentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *CommentsRepo {
	return &CommentsRepo{base{pool: pool, prom: prom}}
}

const selectComment = `
	SELECT c.id, c.body, c.created_at, c.item_id, c.author_id, u.username
	FROM comments c
	JOIN users u ON u.id = c.author_id
`

func (r *CommentsRepo) Create(ctx context.Context, req comment.CreateCommentRequest) (comment.Comment, error) {
	c := comment.Comment{
		Body:      req.Body,
		ItemID:    req.ItemID,
		AuthorID:  req.AuthorID,
		CreatedAt: time.Now().UTC(),
	}

	err := r.observe("comments.create", func() error {
		return r.pool.QueryRow(ctx, `
			WITH ins AS (
				INSERT INTO comments (body, created_at, item_id, author_id)
				VALUES ($1, $2, $3, $4)
				RETURNING id, author_id
			)
			SELECT ins.id, u.username
			FROM ins JOIN users u ON u.id = ins.author_id`,
			c.Body, c.CreatedAt, c.ItemID, c.AuthorID,
		).Scan(&c.ID, &c.AuthorUsername)
	})

	if err != nil {
		return comment.Comment{}, err
	}
	return c, nil
}

func (r *CommentsRepo) GetByID(ctx context.Context, id int64) (comment.Comment, error) {
	var c comment.Comment

	err := r.observe("comments.get_by_id", func() error {
		return r.pool.QueryRow(ctx, selectComment+"WHERE c.id = $1", id).
			Scan(&c.ID, &c.Body, &c.CreatedAt, &c.ItemID, &c.AuthorID, &c.AuthorUsername)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return comment.Comment{}, comment.ErrNotFound
		}
		return comment.Comment{}, err
	}
	return c, nil
}

// ListByList returns every comment on the list's items, oldest first.
func (r *CommentsRepo) ListByList(ctx context.Context, listID int64) ([]comment.Comment, error) {
	out := make([]comment.Comment, 0, 16)

	err := r.observe("comments.list_by_list", func() error {
		rows, err := r.pool.Query(ctx, selectComment+`
			JOIN items i ON i.id = c.item_id
			WHERE i.list_id = $1
			ORDER BY c.created_at, c.id`, listID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c comment.Comment
			if err := rows.Scan(&c.ID, &c.Body, &c.CreatedAt, &c.ItemID, &c.AuthorID, &c.AuthorUsername); err != nil {
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

func (r *CommentsRepo) Delete(ctx context.Context, id int64) error {
	return r.observe("comments.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return comment.ErrNotFound
		}
		return nil
	})
}
