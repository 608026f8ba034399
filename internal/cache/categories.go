package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/geocoder89/dibs/internal/domain/category"
)

type CategorySource interface {
	List(ctx context.Context) ([]category.Category, error)
	GetByID(ctx context.Context, id int64) (category.Category, error)
}

// Categories serves the category table from memory. Every list page reads
// it and it only changes when setup runs.
type Categories struct {
	src  CategorySource
	all  *Cache[[]category.Category]
	byID *Cache[category.Category]
}

func NewCategories(src CategorySource, ttl time.Duration) *Categories {
	return &Categories{
		src:  src,
		all:  New[[]category.Category](ttl),
		byID: New[category.Category](ttl),
	}
}

func (c *Categories) List(ctx context.Context) ([]category.Category, error) {
	return c.all.GetOrLoad(ctx, "all", c.src.List)
}

func (c *Categories) GetByID(ctx context.Context, id int64) (category.Category, error) {
	return c.byID.GetOrLoad(ctx, strconv.FormatInt(id, 10), func(ctx context.Context) (category.Category, error) {
		return c.src.GetByID(ctx, id)
	})
}
