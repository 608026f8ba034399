package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/dibs/internal/domain/category"
)

func TestCache_Expiry(t *testing.T) {
	c := New[int](time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected cached 1, got %v %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestCache_GetOrLoad(t *testing.T) {
	c := New[[]string](time.Minute)
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"x"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad(context.Background(), "k", load)
		if err != nil || len(v) != 1 {
			t.Fatalf("unexpected result %v %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one load, got %d", calls)
	}

	c.Delete("k")
	if _, err := c.GetOrLoad(context.Background(), "k", load); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected reload after delete, got %d", calls)
	}
}

func TestCache_ErrorsNotCached(t *testing.T) {
	c := New[int](time.Minute)
	boom := errors.New("boom")

	if _, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatalf("error result must not be cached")
	}
}

type countingCategories struct {
	lists, gets int
}

func (c *countingCategories) List(context.Context) ([]category.Category, error) {
	c.lists++
	return []category.Category{{ID: 1, Name: "Books"}}, nil
}

func (c *countingCategories) GetByID(_ context.Context, id int64) (category.Category, error) {
	c.gets++
	if id != 1 {
		return category.Category{}, category.ErrNotFound
	}
	return category.Category{ID: 1, Name: "Books"}, nil
}

func TestCategories_CachesHitsNotMisses(t *testing.T) {
	src := &countingCategories{}
	c := NewCategories(src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if cats, err := c.List(ctx); err != nil || len(cats) != 1 {
			t.Fatalf("List: %v %v", cats, err)
		}
		if got, err := c.GetByID(ctx, 1); err != nil || got.Name != "Books" {
			t.Fatalf("GetByID: %v %v", got, err)
		}
		if _, err := c.GetByID(ctx, 9); !errors.Is(err, category.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}

	if src.lists != 1 {
		t.Fatalf("List hit the source %d times", src.lists)
	}
	// one load for id 1, three for the missing id 9
	if src.gets != 4 {
		t.Fatalf("GetByID hit the source %d times", src.gets)
	}
}
