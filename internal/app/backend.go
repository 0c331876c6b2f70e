// Package app wires the database, stores and change feed shared by every
// front end.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"family-groceries/config"
	"family-groceries/internal/db"
	"family-groceries/internal/metrics"
	"family-groceries/internal/quickadd"
	"family-groceries/internal/realtime"
	"family-groceries/internal/session"
	"family-groceries/internal/store"
)

// Backend owns the connections a process needs to serve list sessions.
type Backend struct {
	DB     *gorm.DB
	Store  store.Store
	Broker *realtime.Broker
	Ranker *quickadd.Ranker

	logger *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewBackend opens the database and starts the change feed. With postgres the
// feed is driven by LISTEN/NOTIFY; with sqlite, writes made through Store
// publish their own events.
func NewBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	gormDB, err := db.Init(&cfg.Database, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	b := &Backend{
		DB:     gormDB,
		Broker: realtime.NewBroker(cfg.Realtime.Buffer),
		logger: logger,
		cancel: cancel,
	}

	base := store.NewGormStore(gormDB)
	switch cfg.Database.Driver {
	case "postgres":
		b.Store = base
		listener := realtime.NewPGListener(cfg.Database.DSN, db.NotifyChannel,
			cfg.Realtime.MinReconnect, cfg.Realtime.MaxReconnect, b.Broker, logger)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.listen(ctx, listener, cfg.Realtime.MaxReconnect)
		}()
	default:
		b.Store = store.WithEvents(base, b.Broker)
	}
	b.Ranker = quickadd.NewRanker(base, logger)

	logger.Info("backend ready", "driver", cfg.Database.Driver)
	return b, nil
}

// listen keeps the postgres bridge running until ctx ends.
func (b *Backend) listen(ctx context.Context, listener *realtime.PGListener, retry time.Duration) {
	for {
		err := listener.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		b.logger.Error("realtime listener stopped, restarting", "error", err, "retry_in", retry)
		select {
		case <-time.After(retry):
			b.Broker.Publish(realtime.Resync())
		case <-ctx.Done():
			return
		}
	}
}

// SessionDeps returns the collaborators sessions need.
func (b *Backend) SessionDeps(announcer session.Announcer, rec metrics.Recorder) session.Deps {
	return session.Deps{
		Items:     b.Store,
		Ranker:    b.Ranker,
		Feed:      b.Broker,
		Announcer: announcer,
		Metrics:   rec,
		Logger:    b.logger,
	}
}

// Close stops the feed and closes the database.
func (b *Backend) Close() error {
	var err error
	b.once.Do(func() {
		b.cancel()
		b.wg.Wait()
		b.Broker.Close()

		sqlDB, dbErr := b.DB.DB()
		if dbErr != nil {
			err = dbErr
			return
		}
		err = sqlDB.Close()
	})
	return err
}
