package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSecretKey is only acceptable outside of prod.
const DefaultSecretKey = "JuicyReticentLemur"

type Config struct {
	Env     string
	Port    int
	BaseURL string

	SecretKey  string
	DBURL      string
	DBMaxConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	MailServer        string
	MailPort          int
	MailUseTLS        bool
	MailUsername      string
	MailPassword      string
	MailSubjectPrefix string
	MailSender        string

	AdminEmail string
	UserEmail  string
	SeedPass   string

	TokenTTL    time.Duration
	SessionTTL  time.Duration
	RememberTTL time.Duration

	OTLPEndpoint       string
	TraceSampleRatio   float64
	RateLimitPerMinute int
}

func Load() Config {
	// a missing .env is fine, the real environment wins anyway
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)

	return Config{
		Env:     env,
		Port:    port,
		BaseURL: strings.TrimSuffix(getEnv("BASE_URL", fmt.Sprintf("http://localhost:%d", port)), "/"),

		SecretKey:  getEnv("SECRET_KEY", DefaultSecretKey),
		DBURL:      databaseURL(env),
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 5),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisTLS:      getEnvBool("REDIS_TLS", false),

		MailServer:        getEnv("MAIL_SERVER", "smtp.googlemail.com"),
		MailPort:          getEnvInt("MAIL_PORT", 587),
		MailUseTLS:        getEnvBool("MAIL_USE_TLS", true),
		MailUsername:      getEnv("MAIL_USERNAME", ""),
		MailPassword:      getEnv("MAIL_PASSWORD", ""),
		MailSubjectPrefix: getEnv("DIBS_MAIL_SUBJECT_PREFIX", "[Dibs]"),
		MailSender:        getEnv("DIBS_MAIL_SENDER", "Dibs Admin <dibs@example.com>"),

		AdminEmail: strings.ToLower(getEnv("DIBS_ADMIN", "")),
		UserEmail:  strings.ToLower(getEnv("DIBS_USER", "")),
		SeedPass:   getEnv("DIBS_PASS", ""),

		TokenTTL:    getEnvDuration("TOKEN_TTL", time.Hour),
		SessionTTL:  getEnvDuration("SESSION_TTL", 24*time.Hour),
		RememberTTL: getEnvDuration("REMEMBER_TTL", 30*24*time.Hour),

		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceSampleRatio:   getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),
	}
}

// Validate rejects settings that are only tolerable in development.
func (c Config) Validate() error {
	if c.Env == "prod" && (c.SecretKey == "" || c.SecretKey == DefaultSecretKey) {
		return errors.New("SECRET_KEY must be set in prod")
	}
	if c.DBURL == "" {
		return errors.New("no database url configured")
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// MailEnabled reports whether SMTP credentials are present.
func (c Config) MailEnabled() bool {
	return c.MailUsername != "" && c.MailPassword != ""
}

// IsProd is used for cookie flags and gin mode.
func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// String masks secrets.
func (c Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Port: %d, BaseURL: %s, Redis: %s, Mail: %s:%d, Secret: ***}",
		c.Env, c.Port, c.BaseURL, c.RedisAddr, c.MailServer, c.MailPort)
}

// databaseURL picks the env specific url first, the generic one second and
// finally builds one from the DB_* parts.
func databaseURL(env string) string {
	switch env {
	case "dev":
		if v := os.Getenv("DEV_DATABASE_URL"); v != "" {
			return v
		}
	case "test":
		if v := os.Getenv("TEST_DATABASE_URL"); v != "" {
			return v
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	return buildDBURL()
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "dibs")
	pass := getEnv("DB_PASSWORD", "dibs")
	name := getEnv("DB_NAME", "dibs")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env value, using default", "key", key, "err", err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env value, using default", "key", key, "err", err)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env value, using default", "key", key, "err", err)
			return fallback
		}
		return f
	}
	return fallback
}

// durations accept either Go syntax ("15m") or plain seconds ("3600").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration env value, using default", "key", key, "err", err)
		return fallback
	}
	return d
}
