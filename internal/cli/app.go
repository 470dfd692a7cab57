// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"deskboard/internal/cache"
	"deskboard/internal/categories"
	"deskboard/internal/config"
	"deskboard/internal/database"
	"deskboard/internal/docstore"
	"deskboard/internal/docstore/badgerstore"
	"deskboard/internal/docstore/pgstore"
	"deskboard/internal/posts"
)

// app is the wired access layer shared by all commands.
type app struct {
	cfg     *config.Config
	store   docstore.Store
	db      *sql.DB
	valkey  *redis.Client
	engine  *categories.Engine
	reader  *posts.Reader
	mutator *posts.Mutator
}

// openApp connects the configured store and cache and builds the access
// layer on top. The caller must Close it.
func openApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return nil, err
		}
		a.db = db
		a.store = pgstore.New(db)
	default:
		s, err := badgerstore.Open(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		a.store = s
	}

	engineOpts := []categories.Option{categories.WithSystemCategories(cfg.SystemCategories)}
	if cfg.CacheEnabled() {
		client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Warn("category cache disabled", "error", err)
		} else {
			a.valkey = client
			engineOpts = append(engineOpts, categories.WithCache(cache.NewCategoryCache(client, cache.DefaultCategoriesTTL)))
		}
	}

	engine, err := categories.NewEngine(a.store, engineOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build category engine: %w", err)
	}
	a.engine = engine
	a.reader = posts.NewReader(a.store, posts.WithRetry(cfg.ReadMaxAttempts, cfg.ReadBackoffBase))
	a.mutator = posts.NewMutator(a.store)

	return a, nil
}

// prepare runs migrations (PostgreSQL only) and makes sure the system
// categories exist.
func (a *app) prepare(ctx context.Context) error {
	if a.db != nil {
		if err := database.Migrate(a.db); err != nil {
			return err
		}
	}
	if err := a.engine.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap categories: %w", err)
	}
	return nil
}

// Close releases the store and cache connections.
func (a *app) Close() {
	if a.valkey != nil {
		a.valkey.Close()
	}
	// The PostgreSQL store closes its *sql.DB.
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("close store", "error", err)
		}
	}
}

// withApp loads the configuration, opens the app, runs fn and closes it.
func withApp(opts *RootOptions, fn func(a *app) error) error {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	setupLogging(opts.Verbose, cfg.IsDev())
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
