package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/dibs/internal/account"
	"github.com/geocoder89/dibs/internal/auth"
	"github.com/geocoder89/dibs/internal/cache"
	"github.com/geocoder89/dibs/internal/config"
	"github.com/geocoder89/dibs/internal/db"
	httpx "github.com/geocoder89/dibs/internal/http"
	"github.com/geocoder89/dibs/internal/http/handlers"
	"github.com/geocoder89/dibs/internal/notifications"
	"github.com/geocoder89/dibs/internal/observability"
	"github.com/geocoder89/dibs/internal/redisclient"
	"github.com/geocoder89/dibs/internal/repo/postgres"
	"github.com/geocoder89/dibs/internal/session"
	"github.com/geocoder89/dibs/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
			ServiceName: "dibs",
			Env:         cfg.Env,
			Endpoint:    cfg.OTLPEndpoint,
			SampleRatio: cfg.TraceSampleRatio,
		})
		if err != nil {
			log.Warn("tracing disabled", "err", err)
		} else {
			defer func() {
				c, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdown(c)
			}()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	pool, err := db.NewPool(ctx, cfg.DBURL, int32(cfg.DBMaxConns))
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	rc := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TLS:      cfg.RedisTLS,
	})
	defer rc.Close()

	store := postgres.NewStore(pool, prom)
	sessions := session.NewStore(rc.Raw(), session.Config{TTL: cfg.SessionTTL, RememberTTL: cfg.RememberTTL})

	var transport notifications.Transport = notifications.NewLogTransport(log)
	if cfg.MailEnabled() {
		transport = notifications.NewSMTPTransport(notifications.SMTPConfig{
			Host:     cfg.MailServer,
			Port:     cfg.MailPort,
			UseTLS:   cfg.MailUseTLS,
			Username: cfg.MailUsername,
			Password: cfg.MailPassword,
			Sender:   cfg.MailSender,
		})
	} else {
		log.Info("mail credentials missing, emails will be logged")
	}
	transport = notifications.NewProtectedTransport(transport, notifications.ProtectedTransportConfig{Timeout: 10 * time.Second})

	mailer, err := notifications.NewMailer(transport, notifications.MailerConfig{
		BaseURL:       cfg.BaseURL,
		SubjectPrefix: cfg.MailSubjectPrefix,
	}, prom)
	if err != nil {
		return err
	}
	notifier := notifications.NewAsyncNotifier(mailer, log, 30*time.Second)

	tokens := auth.NewTokenManager(cfg.SecretKey, cfg.TokenTTL)
	accounts := account.NewService(store.Users, store.Roles, tokens, notifier, prom, account.Config{AdminEmail: cfg.AdminEmail})

	tmpl, err := web.Templates()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	router := httpx.NewRouter(httpx.Deps{
		Log:        log,
		Config:     cfg,
		Templates:  tmpl,
		Prom:       prom,
		Gatherer:   reg,
		Sessions:   sessions,
		Accounts:   accounts,
		Users:      store.Users,
		Roles:      store.Roles,
		Lists:      store.Lists,
		Items:      store.Items,
		Comments:   store.Comments,
		Categories: cache.NewCategories(store.Categories, time.Minute),
		Ready: map[string]handlers.Pinger{
			"db":    pool,
			"redis": rc,
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "config", cfg.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("server shutting down")

		shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		// give queued emails a chance to leave
		if err := notifier.Wait(shutdownCtx); err != nil {
			log.Warn("pending emails dropped", "err", err)
		}

		log.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}
