package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/dibs/internal/domain/category"
	"github.com/geocoder89/dibs/internal/domain/comment"
	"github.com/geocoder89/dibs/internal/domain/item"
	"github.com/geocoder89/dibs/internal/domain/list"
	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/geocoder89/dibs/internal/domain/user"
)

// DB is a process local store that mirrors the postgres repos.
// All tables share one lock so cascading deletes stay atomic.
type DB struct {
	mu sync.RWMutex

	seq int64

	roles      map[int64]role.Role
	users      map[int64]user.User
	lists      map[int64]list.List
	categories map[int64]category.Category
	items      map[int64]item.Item
	comments   map[int64]comment.Comment
}

func New() *DB {
	return &DB{
		roles:      make(map[int64]role.Role),
		users:      make(map[int64]user.User),
		lists:      make(map[int64]list.List),
		categories: make(map[int64]category.Category),
		items:      make(map[int64]item.Item),
		comments:   make(map[int64]comment.Comment),
	}
}

func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

func (db *DB) Users() *UsersRepo           { return &UsersRepo{db: db} }
func (db *DB) Roles() *RolesRepo           { return &RolesRepo{db: db} }
func (db *DB) Lists() *ListsRepo           { return &ListsRepo{db: db} }
func (db *DB) Items() *ItemsRepo           { return &ItemsRepo{db: db} }
func (db *DB) Comments() *CommentsRepo     { return &CommentsRepo{db: db} }
func (db *DB) Categories() *CategoriesRepo { return &CategoriesRepo{db: db} }

// Ping satisfies the readiness check.
func (db *DB) Ping(context.Context) error { return nil }

// Users

type UsersRepo struct{ db *DB }

// withRole must be called with the lock held.
func (db *DB) withRole(u user.User) user.User {
	u.Role = nil
	if u.RoleID != nil {
		if r, ok := db.roles[*u.RoleID]; ok {
			rc := r
			u.Role = &rc
		}
	}
	return u
}

func (r *UsersRepo) find(match func(user.User) bool) (user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if match(u) {
			return r.db.withRole(u), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	return r.find(func(u user.User) bool { return u.ID == id })
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	return r.find(func(u user.User) bool { return u.Email == email })
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	return r.find(func(u user.User) bool { return u.Username == username })
}

// conflict must be called with the lock held.
func (db *DB) userConflict(u user.User) error {
	for _, other := range db.users {
		if other.ID == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) {
			return user.ErrEmailTaken
		}
		if other.Username == u.Username {
			return user.ErrUsernameTaken
		}
	}
	return nil
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.userConflict(u); err != nil {
		return user.User{}, err
	}

	now := time.Now().UTC()
	if u.MemberSince.IsZero() {
		u.MemberSince = now
	}
	if u.LastSeen.IsZero() {
		u.LastSeen = now
	}

	u.ID = r.db.nextID()
	u.Role = nil
	r.db.users[u.ID] = u

	return r.db.withRole(u), nil
}

func (r *UsersRepo) Update(_ context.Context, u user.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.users[u.ID]
	if !ok {
		return user.ErrNotFound
	}
	if err := r.db.userConflict(u); err != nil {
		return err
	}

	u.MemberSince = existing.MemberSince
	u.LastSeen = existing.LastSeen
	u.Role = nil
	r.db.users[u.ID] = u
	return nil
}

func (r *UsersRepo) TouchLastSeen(_ context.Context, id int64, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if u, ok := r.db.users[id]; ok {
		u.LastSeen = at
		r.db.users[id] = u
	}
	return nil
}

// Roles

type RolesRepo struct{ db *DB }

func (r *RolesRepo) List(_ context.Context) ([]role.Role, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]role.Role, 0, len(r.db.roles))
	for _, ro := range r.db.roles {
		out = append(out, ro)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *RolesRepo) GetByID(_ context.Context, id int64) (role.Role, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ro, ok := r.db.roles[id]
	if !ok {
		return role.Role{}, role.ErrNotFound
	}
	return ro, nil
}

func (r *RolesRepo) GetByName(_ context.Context, name string) (role.Role, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, ro := range r.db.roles {
		if ro.Name == name {
			return ro, nil
		}
	}
	return role.Role{}, role.ErrNotFound
}

func (r *RolesRepo) GetDefault(_ context.Context) (role.Role, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var (
		found role.Role
		ok    bool
	)
	for _, ro := range r.db.roles {
		if ro.Default && (!ok || ro.ID < found.ID) {
			found, ok = ro, true
		}
	}
	if !ok {
		return role.Role{}, role.ErrNotFound
	}
	return found, nil
}

func (r *RolesRepo) Upsert(_ context.Context, ro role.Role) (role.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, existing := range r.db.roles {
		if existing.Name == ro.Name {
			ro.ID = id
			r.db.roles[id] = ro
			return ro, nil
		}
	}

	ro.ID = r.db.nextID()
	r.db.roles[ro.ID] = ro
	return ro, nil
}

// Categories

type CategoriesRepo struct{ db *DB }

func (r *CategoriesRepo) List(_ context.Context) ([]category.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]category.Category, 0, len(r.db.categories))
	for _, c := range r.db.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CategoriesRepo) GetByID(_ context.Context, id int64) (category.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.categories[id]
	if !ok {
		return category.Category{}, category.ErrNotFound
	}
	return c, nil
}

func (r *CategoriesRepo) Upsert(_ context.Context, c category.Category) (category.Category, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, existing := range r.db.categories {
		if existing.Name == c.Name {
			c.ID = id
			r.db.categories[id] = c
			return c, nil
		}
	}

	c.ID = r.db.nextID()
	r.db.categories[c.ID] = c
	return c, nil
}

// Lists

type ListsRepo struct{ db *DB }

// withAuthor must be called with the lock held.
func (db *DB) withAuthor(l list.List) list.List {
	l.AuthorUsername = db.users[l.AuthorID].Username
	return l
}

func (r *ListsRepo) Create(_ context.Context, req list.CreateListRequest) (list.List, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[req.AuthorID]; !ok {
		return list.List{}, user.ErrNotFound
	}

	l := list.List{
		ID:        r.db.nextID(),
		Title:     req.Title,
		AuthorID:  req.AuthorID,
		CreatedAt: time.Now().UTC(),
	}
	r.db.lists[l.ID] = l

	return r.db.withAuthor(l), nil
}

func (r *ListsRepo) GetByID(_ context.Context, id int64) (list.List, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	l, ok := r.db.lists[id]
	if !ok {
		return list.List{}, list.ErrNotFound
	}
	return r.db.withAuthor(l), nil
}

func (r *ListsRepo) ListByAuthor(_ context.Context, authorID int64) ([]list.List, error) {
	return r.filter(func(l list.List) bool { return l.AuthorID == authorID }), nil
}

func (r *ListsRepo) ListOthers(_ context.Context, viewerID int64) ([]list.List, error) {
	return r.filter(func(l list.List) bool { return l.AuthorID != viewerID }), nil
}

// filter returns matching lists newest first.
func (r *ListsRepo) filter(match func(list.List) bool) []list.List {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]list.List, 0)
	for _, l := range r.db.lists {
		if match(l) {
			out = append(out, r.db.withAuthor(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *ListsRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.lists[id]; !ok {
		return list.ErrNotFound
	}

	for itemID, it := range r.db.items {
		if it.ListID == id {
			r.db.deleteItemLocked(itemID)
		}
	}
	delete(r.db.lists, id)
	return nil
}

// Items

type ItemsRepo struct{ db *DB }

func (r *ItemsRepo) Create(_ context.Context, it item.Item) (item.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.lists[it.ListID]; !ok {
		return item.Item{}, list.ErrNotFound
	}
	if it.CategoryID != nil {
		if _, ok := r.db.categories[*it.CategoryID]; !ok {
			return item.Item{}, category.ErrNotFound
		}
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}

	it.ID = r.db.nextID()
	r.db.items[it.ID] = it
	return it, nil
}

func (r *ItemsRepo) GetByID(_ context.Context, id int64) (item.Item, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	it, ok := r.db.items[id]
	if !ok {
		return item.Item{}, item.ErrNotFound
	}
	return it, nil
}

func (r *ItemsRepo) ListByList(_ context.Context, listID int64) ([]item.Item, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]item.Item, 0)
	for _, it := range r.db.items {
		if it.ListID == listID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ItemsRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.items[id]; !ok {
		return item.ErrNotFound
	}
	r.db.deleteItemLocked(id)
	return nil
}

func (db *DB) deleteItemLocked(id int64) {
	for cid, c := range db.comments {
		if c.ItemID == id {
			delete(db.comments, cid)
		}
	}
	delete(db.items, id)
}

// Comments

type CommentsRepo struct{ db *DB }

func (r *CommentsRepo) Create(_ context.Context, req comment.CreateCommentRequest) (comment.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.items[req.ItemID]; !ok {
		return comment.Comment{}, item.ErrNotFound
	}
	author, ok := r.db.users[req.AuthorID]
	if !ok {
		return comment.Comment{}, user.ErrNotFound
	}

	c := comment.Comment{
		ID:             r.db.nextID(),
		Body:           req.Body,
		CreatedAt:      time.Now().UTC(),
		ItemID:         req.ItemID,
		AuthorID:       req.AuthorID,
		AuthorUsername: author.Username,
	}
	r.db.comments[c.ID] = c
	return c, nil
}

func (r *CommentsRepo) GetByID(_ context.Context, id int64) (comment.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.comments[id]
	if !ok {
		return comment.Comment{}, comment.ErrNotFound
	}
	c.AuthorUsername = r.db.users[c.AuthorID].Username
	return c, nil
}

func (r *CommentsRepo) ListByList(_ context.Context, listID int64) ([]comment.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]comment.Comment, 0)
	for _, c := range r.db.comments {
		it, ok := r.db.items[c.ItemID]
		if !ok || it.ListID != listID {
			continue
		}
		c.AuthorUsername = r.db.users[c.AuthorID].Username
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CommentsRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.comments[id]; !ok {
		return comment.ErrNotFound
	}
	delete(r.db.comments, id)
	return nil
}
