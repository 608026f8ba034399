package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"none sent", "", false},
		{"well formed", "abc-123_DEF.4", true},
		{"header injection", "abc\r\nX-Evil: 1", false},
		{"too long", strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string

			r := gin.New()
			r.Use(RequestID())
			r.GET("/", func(c *gin.Context) {
				seen = c.GetString(CtxRequestID)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header[requestIDHeader] = []string{tt.incoming}
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if seen == "" || w.Header().Get(requestIDHeader) != seen {
				t.Fatalf("id %q not echoed (header %q)", seen, w.Header().Get(requestIDHeader))
			}
			if (seen == tt.incoming) != tt.keep {
				t.Fatalf("kept=%v, want %v (got %q)", seen == tt.incoming, tt.keep, seen)
			}
		})
	}
}

func TestMaxBodyBytes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(MaxBodyBytes(16))
	r.POST("/", func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.String(http.StatusOK, c.PostForm("a"))
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := post("a=ok"); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("small body: %d %q", w.Code, w.Body.String())
	}
	if w := post("a=" + strings.Repeat("x", 64)); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("large body: got %d, want 413", w.Code)
	}
}
