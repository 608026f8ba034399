package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/geocoder89/dibs/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyz(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		deps       map[string]handlers.Pinger
		wantStatus int
		wantState  string
	}{
		{"all up", map[string]handlers.Pinger{"db": ok, "redis": ok}, http.StatusOK, "ready"},
		{"redis down", map[string]handlers.Pinger{"db": ok, "redis": down}, http.StatusServiceUnavailable, "not_ready"},
		{"nothing to check", nil, http.StatusOK, "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			h := handlers.NewHealthHandler(tt.deps)

			r := gin.New()
			r.GET("/readyz", h.Readyz)

			w := get(r, "/readyz")
			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantState {
				t.Fatalf("status %q, want %q", body.Status, tt.wantState)
			}
			if tt.wantStatus == http.StatusServiceUnavailable && body.Checks["redis"] != "connection refused" {
				t.Fatalf("checks = %v", body.Checks)
			}
		})
	}
}
