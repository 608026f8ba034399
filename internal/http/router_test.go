package http_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/geocoder89/dibs/internal/account"
	"github.com/geocoder89/dibs/internal/auth"
	"github.com/geocoder89/dibs/internal/config"
	"github.com/geocoder89/dibs/internal/db"
	dibshttp "github.com/geocoder89/dibs/internal/http"
	"github.com/geocoder89/dibs/internal/http/handlers"
	"github.com/geocoder89/dibs/internal/notifications"
	"github.com/geocoder89/dibs/internal/redisclient"
	"github.com/geocoder89/dibs/internal/repo/memory"
	"github.com/geocoder89/dibs/internal/session"
	"github.com/geocoder89/dibs/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const baseURL = "http://localhost:8080"

type mailbox struct {
	mu      sync.Mutex
	confirm map[string]string
	reset   map[string]string
}

func (m *mailbox) SendConfirmation(_ context.Context, in notifications.ConfirmationInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirm[in.Email] = in.Token
	return nil
}

func (m *mailbox) SendPasswordReset(_ context.Context, in notifications.PasswordResetInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[in.Email] = in.Token
	return nil
}

func (m *mailbox) SendEmailChange(context.Context, notifications.EmailChangeInput) error {
	return nil
}

func (m *mailbox) confirmToken(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.confirm[email]
	if !ok {
		t.Fatalf("no confirmation mail for %s", email)
	}
	return tok
}

type app struct {
	srv  *httptest.Server
	db   *memory.DB
	mail *mailbox
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{Env: "test", BaseURL: baseURL, AdminEmail: "admin@example.com", RateLimitPerMinute: 100}

	store := memory.New()
	seedStores := db.SeedStores{Roles: store.Roles(), Categories: store.Categories(), Users: store.Users()}
	if err := db.Seed(context.Background(), seedStores, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("seed: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mail := &mailbox{confirm: map[string]string{}, reset: map[string]string{}}
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	accounts := account.NewService(store.Users(), store.Roles(), tokens, mail, nil, account.Config{AdminEmail: cfg.AdminEmail})

	tmpl, err := web.Templates()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}

	r := dibshttp.NewRouter(dibshttp.Deps{
		Config:     cfg,
		Templates:  tmpl,
		Sessions:   session.NewStore(rdb, session.Config{}),
		Accounts:   accounts,
		Users:      store.Users(),
		Roles:      store.Roles(),
		Lists:      store.Lists(),
		Items:      store.Items(),
		Comments:   store.Comments(),
		Categories: store.Categories(),
		Ready:      map[string]handlers.Pinger{"db": store, "redis": redisclient.Wrap(rdb)},
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &app{srv: srv, db: store, mail: mail}
}

// browser keeps its own cookies and never follows redirects.
type browser struct {
	t      *testing.T
	app    *app
	client *http.Client
}

func (a *app) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{t: t, app: a, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

type page struct {
	status   int
	location string
	body     string
}

func (b *browser) do(req *http.Request) page {
	b.t.Helper()
	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return page{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	req, _ := http.NewRequest(http.MethodGet, b.app.srv.URL+path, nil)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) page {
	b.t.Helper()
	req, _ := http.NewRequest(http.MethodPost, b.app.srv.URL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", baseURL)
	return b.do(req)
}

func expectRedirect(t *testing.T, p page, location string) {
	t.Helper()
	if p.status != http.StatusFound || p.location != location {
		t.Fatalf("got %d -> %q, want 302 -> %q", p.status, p.location, location)
	}
}

// signUp registers, confirms and logs in a fresh account.
func (b *browser) signUp(email, username string) {
	b.t.Helper()

	p := b.post("/auth/register", url.Values{
		"email": {email}, "username": {username}, "password": {"cat"}, "password2": {"cat"},
	})
	expectRedirect(b.t, p, "/auth/login")

	expectRedirect(b.t, b.post("/auth/login", url.Values{"email": {email}, "password": {"cat"}}), "/")

	// unconfirmed accounts are parked until they click the mail link
	expectRedirect(b.t, b.get("/lists/create"), "/auth/unconfirmed")

	tok := b.app.mail.confirmToken(b.t, email)
	expectRedirect(b.t, b.get("/auth/confirm/"+tok), "/")

	if p := b.get("/"); !strings.Contains(p.body, "You have confirmed your account. Thanks!") {
		b.t.Fatalf("expected confirmation flash, got %s", p.body)
	}
}

func TestRouter_HealthAndNotFound(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	if p := b.get("/healthz"); p.status != http.StatusOK {
		t.Fatalf("healthz: %d", p.status)
	}
	if p := b.get("/readyz"); p.status != http.StatusOK {
		t.Fatalf("readyz: %d", p.status)
	}
	if p := b.get("/no/such/page"); p.status != http.StatusNotFound {
		t.Fatalf("unknown path: %d", p.status)
	}
	if p := b.get("/static/style.css"); p.status != http.StatusOK {
		t.Fatalf("static: %d", p.status)
	}
}

func TestRouter_CrossSitePostIsRejected(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	req, _ := http.NewRequest(http.MethodPost, a.srv.URL+"/auth/login", strings.NewReader("email=x%40y.z&password=p"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "https://evil.example.com")

	if p := b.do(req); p.status != http.StatusForbidden {
		t.Fatalf("got %d, want 403", p.status)
	}
}

func TestRouter_AnonymousIsSentToLogin(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	expectRedirect(t, b.get("/lists/create"), "/auth/login?next=%2Flists%2Fcreate")

	if p := b.get("/auth/login"); !strings.Contains(p.body, "Please log in to access this page.") {
		t.Fatalf("expected login flash on the login page")
	}
}

func TestRouter_IndexAcceptsPost(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	if p := b.post("/", url.Values{}); p.status != http.StatusOK {
		t.Fatalf("anonymous POST /: got %d", p.status)
	}

	b.signUp("dora@example.com", "dora")
	if p := b.post("/", url.Values{}); p.status != http.StatusOK {
		t.Fatalf("logged-in POST /: got %d", p.status)
	}
}

func TestRouter_RegisterWithLongPassword(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	long := strings.Repeat("x", 80)
	p := b.post("/auth/register", url.Values{
		"email": {"eve@example.com"}, "username": {"eve"}, "password": {long}, "password2": {long},
	})
	expectRedirect(t, p, "/auth/login")

	expectRedirect(t, b.post("/auth/login", url.Values{"email": {"eve@example.com"}, "password": {long}}), "/")
}

func TestRouter_BadLogin(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	p := b.post("/auth/login", url.Values{"email": {"nobody@example.com"}, "password": {"nope"}})
	if p.status != http.StatusOK || !strings.Contains(p.body, "Invalid email or password.") {
		t.Fatalf("got %d, body=%s", p.status, p.body)
	}
}

func TestRouter_WishListFlow(t *testing.T) {
	a := newApp(t)

	alice := a.browser(t)
	alice.signUp("alice@example.com", "alice")

	// a taken username is reported on the form
	p := a.browser(t).post("/auth/register", url.Values{
		"email": {"other@example.com"}, "username": {"alice"}, "password": {"x"}, "password2": {"x"},
	})
	if p.status != http.StatusOK || !strings.Contains(p.body, "Username already in use.") {
		t.Fatalf("duplicate username: %d %s", p.status, p.body)
	}

	p = alice.post("/lists/create", url.Values{"title": {"Birthday"}})
	if p.status != http.StatusFound || !strings.HasPrefix(p.location, "/lists/") {
		t.Fatalf("create list: %d -> %q", p.status, p.location)
	}
	listPath := p.location

	expectRedirect(t, alice.post(listPath, url.Values{"name": {"Lego set"}, "link": {"https://example.com/lego"}}), listPath)

	if p := alice.get(listPath); !strings.Contains(p.body, "Lego set") {
		t.Fatalf("item missing from list page")
	}

	bob := a.browser(t)
	bob.signUp("bob@example.com", "bob")

	// bob may not add items to alice's list
	expectRedirect(t, bob.post(listPath, url.Values{"name": {"Pony"}}), listPath)

	lists, _ := a.db.Lists().ListByAuthor(context.Background(), listAuthorID(t, a, "alice"))
	if len(lists) != 1 {
		t.Fatalf("expected 1 list, got %d", len(lists))
	}
	items, _ := a.db.Items().ListByList(context.Background(), lists[0].ID)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	itemID := items[0].ID

	expectRedirect(t, bob.post(listPath+"/create_comment/"+itoa(itemID), url.Values{"body": {"dibs on the lego"}}), listPath)

	if p := bob.get(listPath); !strings.Contains(p.body, "dibs on the lego") {
		t.Fatalf("commenter should see the comment")
	}
	if p := alice.get(listPath); strings.Contains(p.body, "dibs on the lego") {
		t.Fatalf("list owner must not see dibs on their own list")
	}

	comments, _ := a.db.Comments().ListByList(context.Background(), lists[0].ID)
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments))
	}
	commentPath := listPath + "/delete_comment/" + itoa(comments[0].ID)

	// only the author or an admin may remove a comment
	carol := a.browser(t)
	carol.signUp("carol@example.com", "carol")
	expectRedirect(t, carol.post(commentPath, nil), listPath)
	if c, _ := a.db.Comments().ListByList(context.Background(), lists[0].ID); len(c) != 1 {
		t.Fatalf("comment removed by a stranger")
	}

	// authors can't delete lists, people may have called dibs already
	expectRedirect(t, alice.post(listPath+"/delete", nil), listPath)
	if p := alice.get(listPath); !strings.Contains(p.body, "People might have called dibs on it") {
		t.Fatalf("expected the can't delete flash")
	}

	admin := a.browser(t)
	admin.signUp("admin@example.com", "boss")

	expectRedirect(t, admin.post(commentPath, nil), listPath)
	if c, _ := a.db.Comments().ListByList(context.Background(), lists[0].ID); len(c) != 0 {
		t.Fatalf("admin could not delete the comment")
	}

	expectRedirect(t, admin.post(listPath+"/delete", nil), "/user/alice")

	if p := alice.get(listPath); p.status != http.StatusNotFound {
		t.Fatalf("deleted list: got %d, want 404", p.status)
	}
}

func TestRouter_AdminEditsUser(t *testing.T) {
	a := newApp(t)

	bob := a.browser(t)
	bob.signUp("bob@example.com", "bob")

	// regular users can't reach the admin editor
	expectRedirect(t, bob.get("/user/bob/edit"), "/")

	admin := a.browser(t)
	admin.signUp("admin@example.com", "boss")

	if p := admin.get("/user/bob/edit"); p.status != http.StatusOK {
		t.Fatalf("edit page: %d", p.status)
	}

	roles, _ := a.db.Roles().List(context.Background())
	var adminRoleID int64
	for _, r := range roles {
		if r.Name == "Admin" {
			adminRoleID = r.ID
		}
	}

	p := admin.post("/user/bob/edit", url.Values{
		"email": {"robert@example.com"}, "username": {"robert"}, "confirmed": {"true"}, "role_id": {itoa(adminRoleID)},
	})
	expectRedirect(t, p, "/user/robert")

	u, err := a.db.Users().GetByUsername(context.Background(), "robert")
	if err != nil {
		t.Fatalf("renamed user: %v", err)
	}
	if u.Email != "robert@example.com" || !u.IsAdministrator() {
		t.Fatalf("unexpected user %+v", u)
	}
}

func listAuthorID(t *testing.T, a *app, username string) int64 {
	t.Helper()
	u, err := a.db.Users().GetByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("user %s: %v", username, err)
	}
	return u.ID
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
