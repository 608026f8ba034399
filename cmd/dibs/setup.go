package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/dibs/internal/config"
	"github.com/geocoder89/dibs/internal/db"
	"github.com/geocoder89/dibs/internal/repo/postgres"
)

func migrate(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	pool, err := db.NewPool(ctx, cfg.DBURL, int32(cfg.DBMaxConns))
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	log.Info("schema up to date")
	return nil
}

func setup(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	pool, err := db.NewPool(ctx, cfg.DBURL, int32(cfg.DBMaxConns))
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	store := postgres.NewStore(pool, nil)

	err = db.Seed(ctx, db.SeedStores{
		Roles:      store.Roles,
		Categories: store.Categories,
		Users:      store.Users,
	}, cfg, log)
	if err != nil {
		return err
	}

	log.Info("setup complete")
	return nil
}
