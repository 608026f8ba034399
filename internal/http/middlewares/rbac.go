package middlewares

import (
	"net/http"
	"net/url"

	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/gin-gonic/gin"
)

const (
	MsgLoginRequired = "Please log in to access this page."
	MsgNotAllowed    = "You are not allowed to do that."
)

func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			Flash(c, MsgLoginRequired)
			c.Redirect(http.StatusFound, "/auth/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePermission redirects home with a flash instead of answering 403.
func RequirePermission(p role.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			Flash(c, MsgLoginRequired)
			c.Redirect(http.StatusFound, "/auth/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		if !u.Can(p) {
			Flash(c, MsgNotAllowed)
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequirePermission(role.PermAdmin)
}

// AnonymousOnly keeps logged in users away from password reset pages.
func AnonymousOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}
