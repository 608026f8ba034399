package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/dibs/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context, u user.User) error
}

// paths an unconfirmed account may still reach
var unconfirmedAllowed = []string{"/auth/", "/healthz", "/readyz", "/metrics", "/static/"}

// TrackActivity records last seen for every authenticated request and sends
// unconfirmed accounts to /auth/unconfirmed.
func TrackActivity(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.Next()
			return
		}

		if err := p.Ping(c.Request.Context(), *u); err != nil {
			slog.Default().WarnContext(c.Request.Context(), "user.ping_failed", "err", err, "user_id", u.ID)
		}

		if !u.Confirmed && !allowedWhileUnconfirmed(c.Request.URL.Path) {
			c.Redirect(http.StatusFound, "/auth/unconfirmed")
			c.Abort()
			return
		}

		c.Next()
	}
}

func allowedWhileUnconfirmed(path string) bool {
	for _, prefix := range unconfirmedAllowed {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
