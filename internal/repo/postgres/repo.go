package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/dibs/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// base carries what every repo needs: the pool and optional db metrics.
type base struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func (b base) observe(op string, fn func() error) error {
	if b.prom != nil {
		return b.prom.ObserveDB(op, fn)
	}
	return fn()
}

// inTx runs fn inside a transaction and commits when fn returns nil.
func (b base) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

// constraintName returns the violated constraint, empty for other errors.
func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// Store bundles every repository over one pool.
type Store struct {
	Users      *UsersRepo
	Roles      *RolesRepo
	Categories *CategoriesRepo
	Lists      *ListsRepo
	Items      *ItemsRepo
	Comments   *CommentsRepo
}

func NewStore(pool *pgxpool.Pool, prom *observability.Prom) *Store {
	return &Store{
		Users:      NewUsersRepo(pool, prom),
		Roles:      NewRolesRepo(pool, prom),
		Categories: NewCategoriesRepo(pool, prom),
		Lists:      NewListsRepo(pool, prom),
		Items:      NewItemsRepo(pool, prom),
		Comments:   NewCommentsRepo(pool, prom),
	}
}
