package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/dibs/internal/domain/user"
	"github.com/geocoder89/dibs/internal/session"
	"github.com/gin-gonic/gin"
)

// Keep these small so tests can swap in fakes.
type SessionStore interface {
	Load(ctx context.Context, id string) (session.Data, error)
	Save(ctx context.Context, id string, d session.Data) error
	Destroy(ctx context.Context, id string) error
	AddFlash(ctx context.Context, id string, msg string) error
	PopFlashes(ctx context.Context, id string) ([]string, error)
	TTLFor(d session.Data) time.Duration
}

type UserLoader interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
}

type SessionConfig struct {
	CookieName string
	Secure     bool
}

type Sessions struct {
	store SessionStore
	users UserLoader
	cfg   SessionConfig
}

func NewSessions(store SessionStore, users UserLoader, cfg SessionConfig) *Sessions {
	if cfg.CookieName == "" {
		cfg.CookieName = "dibs_session"
	}
	return &Sessions{store: store, users: users, cfg: cfg}
}

// Load resolves the session cookie into a current user, if any.
func (s *Sessions) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxSessions, s)

		id, err := c.Cookie(s.cfg.CookieName)
		if err != nil || id == "" {
			c.Next()
			return
		}

		data, err := s.store.Load(c.Request.Context(), id)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				slog.Default().ErrorContext(c.Request.Context(), "session.load_failed", "err", err)
			}
			c.Next()
			return
		}

		c.Set(CtxSessionID, id)

		if data.UserID != 0 {
			u, err := s.users.GetByID(c.Request.Context(), data.UserID)
			switch {
			case err == nil:
				c.Set(CtxUser, &u)
			case errors.Is(err, user.ErrNotFound):
				// account was removed, drop back to anonymous
			default:
				slog.Default().ErrorContext(c.Request.Context(), "session.user_load_failed", "err", err, "user_id", data.UserID)
			}
		}

		c.Next()
	}
}

func (s *Sessions) setCookie(c *gin.Context, id string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.CookieName, id, maxAge, "/", "", s.cfg.Secure, true)
}

func (s *Sessions) start(c *gin.Context, d session.Data) (string, error) {
	id, err := session.NewID()
	if err != nil {
		return "", err
	}
	if err := s.store.Save(c.Request.Context(), id, d); err != nil {
		return "", err
	}

	maxAge := 0 // browser session
	if d.Remember {
		maxAge = int(s.store.TTLFor(d).Seconds())
	}
	s.setCookie(c, id, maxAge)
	c.Set(CtxSessionID, id)
	return id, nil
}

func sessionsFrom(c *gin.Context) *Sessions {
	v, ok := c.Get(CtxSessions)
	if !ok {
		return nil
	}
	s, _ := v.(*Sessions)
	return s
}

func sessionIDFrom(c *gin.Context) string {
	return c.GetString(CtxSessionID)
}

// CurrentUser returns nil for anonymous requests.
func CurrentUser(c *gin.Context) *user.User {
	v, ok := c.Get(CtxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*user.User)
	return u
}

// SetCurrentUser replaces the request's user after an update.
func SetCurrentUser(c *gin.Context, u user.User) {
	c.Set(CtxUser, &u)
}

// Login rotates the session id and binds it to u.
func Login(c *gin.Context, u user.User, remember bool) error {
	s := sessionsFrom(c)
	if s == nil {
		return errors.New("sessions middleware not installed")
	}

	if old := sessionIDFrom(c); old != "" {
		_ = s.store.Destroy(c.Request.Context(), old)
	}

	if _, err := s.start(c, session.Data{UserID: u.ID, Remember: remember}); err != nil {
		return err
	}

	c.Set(CtxUser, &u)
	return nil
}

func Logout(c *gin.Context) error {
	s := sessionsFrom(c)
	if s == nil {
		return nil
	}

	if id := sessionIDFrom(c); id != "" {
		if err := s.store.Destroy(c.Request.Context(), id); err != nil {
			return err
		}
	}

	s.setCookie(c, "", -1)
	c.Set(CtxSessionID, "")
	c.Set(CtxUser, (*user.User)(nil))
	return nil
}

// Flash queues a one-shot message for the next rendered page. Anonymous
// visitors get a session of their own to carry it.
func Flash(c *gin.Context, msg string) {
	s := sessionsFrom(c)
	if s == nil {
		return
	}

	id := sessionIDFrom(c)
	if id == "" {
		var err error
		id, err = s.start(c, session.Data{})
		if err != nil {
			slog.Default().ErrorContext(c.Request.Context(), "session.flash_failed", "err", err)
			return
		}
	}

	if err := s.store.AddFlash(c.Request.Context(), id, msg); err != nil {
		slog.Default().ErrorContext(c.Request.Context(), "session.flash_failed", "err", err)
	}
}

func PopFlashes(c *gin.Context) []string {
	s := sessionsFrom(c)
	id := sessionIDFrom(c)
	if s == nil || id == "" {
		return nil
	}

	msgs, err := s.store.PopFlashes(c.Request.Context(), id)
	if err != nil {
		slog.Default().ErrorContext(c.Request.Context(), "session.flash_pop_failed", "err", err)
		return nil
	}
	return msgs
}
