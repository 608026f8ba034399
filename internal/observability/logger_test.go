package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewHandler_LevelsPerEnv(t *testing.T) {
	tests := []struct {
		env      string
		debug    bool
		info     bool
		wantJSON bool
	}{
		{"dev", true, true, false},
		{"test", false, false, true},
		{"prod", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			h := newHandler(&buf, tt.env)
			ctx := context.Background()

			if got := h.Enabled(ctx, slog.LevelDebug); got != tt.debug {
				t.Fatalf("debug enabled=%v, want %v", got, tt.debug)
			}
			if got := h.Enabled(ctx, slog.LevelInfo); got != tt.info {
				t.Fatalf("info enabled=%v, want %v", got, tt.info)
			}

			slog.New(h).Warn("hello")
			if isJSON := strings.HasPrefix(buf.String(), "{"); isJSON != tt.wantJSON {
				t.Fatalf("json=%v, want %v: %s", isJSON, tt.wantJSON, buf.String())
			}
		})
	}
}
