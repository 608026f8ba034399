package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/dibs/internal/db"
	"github.com/geocoder89/dibs/internal/domain/category"
	"github.com/geocoder89/dibs/internal/domain/comment"
	"github.com/geocoder89/dibs/internal/domain/item"
	"github.com/geocoder89/dibs/internal/domain/list"
	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/geocoder89/dibs/internal/domain/user"
	"github.com/geocoder89/dibs/internal/repo/postgres"
)

// setupStore needs a throwaway database: every table is truncated.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := db.NewPool(context.Background(), dsn, 2)
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	ctx := context.Background()
	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE comments, items, lists, users, categories, roles RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	return postgres.NewStore(pool, nil)
}

func TestPostgresStore_Lifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for _, r := range role.Seed() {
		if _, err := s.Roles.Upsert(ctx, r); err != nil {
			t.Fatalf("seed role: %v", err)
		}
	}
	def, err := s.Roles.GetDefault(ctx)
	if err != nil || def.Name != role.NameUser {
		t.Fatalf("default role: %+v %v", def, err)
	}

	cat, err := s.Categories.Upsert(ctx, category.Category{Name: "Books", Default: true})
	if err != nil {
		t.Fatalf("category: %v", err)
	}

	u := user.User{Email: "john@example.com", Username: "john", MemberSince: time.Now().UTC(), LastSeen: time.Now().UTC()}
	u.SetRole(def)
	if err := u.SetPassword("cat"); err != nil {
		t.Fatalf("password: %v", err)
	}

	john, err := s.Users.Create(ctx, u)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if john.Role == nil || john.Role.Name != role.NameUser {
		t.Fatalf("role not joined: %+v", john.Role)
	}

	dup := u
	dup.Username = "johnny"
	if _, err := s.Users.Create(ctx, dup); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	dup = u
	dup.Email = "other@example.com"
	if _, err := s.Users.Create(ctx, dup); !errors.Is(err, user.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	l, err := s.Lists.Create(ctx, list.CreateListRequest{Title: "Birthday", AuthorID: john.ID})
	if err != nil || l.AuthorUsername != "john" {
		t.Fatalf("create list: %+v %v", l, err)
	}

	catID := cat.ID
	it, err := s.Items.Create(ctx, item.Item{Name: "Lego", ListID: l.ID, CategoryID: &catID, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	c, err := s.Comments.Create(ctx, comment.CreateCommentRequest{Body: "dibs", ItemID: it.ID, AuthorID: john.ID})
	if err != nil || c.AuthorUsername != "john" {
		t.Fatalf("create comment: %+v %v", c, err)
	}

	comments, err := s.Comments.ListByList(ctx, l.ID)
	if err != nil || len(comments) != 1 {
		t.Fatalf("comments by list: %v %v", comments, err)
	}

	if err := s.Lists.Delete(ctx, l.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	if _, err := s.Lists.GetByID(ctx, l.ID); !errors.Is(err, list.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Items.GetByID(ctx, it.ID); !errors.Is(err, item.ErrNotFound) {
		t.Fatalf("items must go with their list, got %v", err)
	}
	if err := s.Lists.Delete(ctx, l.ID); !errors.Is(err, list.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}
