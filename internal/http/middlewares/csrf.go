package middlewares

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

type CSRFConfig struct {
	// AllowedOrigins normally holds just BASE_URL.
	AllowedOrigins []string
}

// CSRF rejects state changing requests whose Origin (or Referer) is not ours.
func CSRF(config CSRFConfig) gin.HandlerFunc {
	allowedSet := make(map[string]bool)
	for _, origin := range config.AllowedOrigins {
		allowedSet[normalizeOrigin(origin)] = true
	}

	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			c.Next()
			return
		}

		if origin := c.GetHeader("Origin"); origin != "" {
			if !allowedSet[normalizeOrigin(origin)] {
				c.String(http.StatusForbidden, "CSRF validation failed: invalid origin")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		if referer := c.GetHeader("Referer"); referer != "" {
			if !allowedSet[normalizeOrigin(extractOrigin(referer))] {
				c.String(http.StatusForbidden, "CSRF validation failed: invalid referer")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		c.String(http.StatusForbidden, "CSRF validation failed: missing origin")
		c.Abort()
	}
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.ToLower(origin), "/")
}

func extractOrigin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
