package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	dbpkg "github.com/BrandonDHaskell/qrscan/internal/db"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/service"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/store"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/store/memory"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/store/sqlite"
)

// app is the opened persistence layer plus the services built on it.
type app struct {
	db     *sql.DB // nil when ephemeral
	writer *dbpkg.Worker
	kv     store.KVStore
	sqlKV  *sqlite.KVStore // nil when ephemeral

	history *service.HistoryService
	prefs   *service.Preferences
}

// open builds the services.  onPersist may be nil; serve passes the gRPC
// health hook.
func (c *cli) open(ctx context.Context, onPersist func(error)) (*app, error) {
	a := &app{}

	if c.ephemeral {
		a.kv = memory.New()
		c.logger.Debug("using ephemeral in-memory store")
	} else {
		db, err := dbpkg.Open(ctx, dbpkg.Config{Path: c.cfg.DBPath, Env: c.cfg.Env})
		if err != nil {
			return nil, fmt.Errorf("open database %s: %w", c.cfg.DBPath, err)
		}
		a.db = db
		a.writer = dbpkg.NewWorker(db)
		a.sqlKV = sqlite.NewKVStore(db, a.writer)
		a.kv = a.sqlKV
		c.logger.Debug("database opened", zap.String("path", c.cfg.DBPath))
	}

	a.history = service.NewHistoryService(ctx, a.kv, service.HistoryOptions{
		Logger:          c.logger.Named("history"),
		OnPersistChange: onPersist,
	})
	a.prefs = service.NewPreferences(a.kv)
	return a, nil
}

func (a *app) Close() {
	if a.writer != nil {
		a.writer.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
