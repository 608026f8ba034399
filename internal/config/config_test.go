package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "PORT", "SECRET_KEY", "DATABASE_URL", "DEV_DATABASE_URL", "TOKEN_TTL", "BASE_URL"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.SecretKey != DefaultSecretKey {
		t.Fatalf("expected default secret key")
	}
	if cfg.TokenTTL != time.Hour {
		t.Fatalf("expected 1h token ttl, got %s", cfg.TokenTTL)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected base url %q", cfg.BaseURL)
	}
	if !strings.HasPrefix(cfg.DBURL, "postgres://") {
		t.Fatalf("expected built postgres url, got %q", cfg.DBURL)
	}
}

func TestLoad_DatabaseURLByEnv(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("TEST_DATABASE_URL", "postgres://t/test")
	t.Setenv("DATABASE_URL", "postgres://t/generic")

	if got := Load().DBURL; got != "postgres://t/test" {
		t.Fatalf("expected test url, got %q", got)
	}

	t.Setenv("APP_ENV", "prod")
	if got := Load().DBURL; got != "postgres://t/generic" {
		t.Fatalf("expected generic url, got %q", got)
	}
}

func TestLoad_ParsesTypedValues(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TOKEN_TTL", "120")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("MAIL_USE_TLS", "false")
	t.Setenv("DIBS_ADMIN", "Admin@Example.com")

	cfg := Load()

	if cfg.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.TokenTTL != 2*time.Minute {
		t.Fatalf("expected 2m, got %s", cfg.TokenTTL)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("expected 2h, got %s", cfg.SessionTTL)
	}
	if cfg.MailUseTLS {
		t.Fatalf("expected tls disabled")
	}
	if cfg.AdminEmail != "admin@example.com" {
		t.Fatalf("expected lower cased admin email, got %q", cfg.AdminEmail)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{Env: "prod", Port: 8080, DBURL: "postgres://x", SecretKey: DefaultSecretKey}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for default secret in prod")
	}

	cfg.SecretKey = "something-else"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Env = "dev"
	cfg.SecretKey = DefaultSecretKey
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default secret should be fine in dev: %v", err)
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := Config{SecretKey: "super-secret", MailPassword: "hunter2"}
	s := cfg.String()
	if strings.Contains(s, "super-secret") || strings.Contains(s, "hunter2") {
		t.Fatalf("secrets leaked: %s", s)
	}
}
