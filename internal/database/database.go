// Package database opens the relational stores (the local sqlite cache and
// the backend's postgres) and provides table-level change notification for
// observable queries.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"bookdot/internal/config"
	"bookdot/internal/observability"
	"bookdot/internal/stream"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Store owns a gorm connection and notifies observers when tables change.
// It is constructed once at composition time and handed to every DAO.
type Store struct {
	DB *gorm.DB

	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
}

// NewStore wraps an open gorm connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		DB:       db,
		watchers: make(map[string]map[chan struct{}]struct{}),
	}
}

// OpenLocal opens (and migrates) the sqlite cache at path. Use ":memory:"
// for a throwaway database.
func OpenLocal(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	dsn := path + "?_foreign_keys=on"
	if strings.Contains(path, "?") {
		dsn = path + "&_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  NewGormLogger(observability.Logger),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}

	// sqlite serializes writers anyway; one connection also keeps an
	// in-memory database alive for the lifetime of the store.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access local cache pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate local cache: %w", err)
	}

	return NewStore(db), nil
}

// Connect opens the backend's postgres database using the provided configuration.
func Connect(cfg *config.Config) (*Store, error) {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		sslMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(observability.Logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	observability.Logger.Info("Database connected successfully")

	if !cfg.IsProduction() {
		if err := db.AutoMigrate(PersistentModels()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		observability.Logger.Info("Database migration completed")
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	return NewStore(db), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn in a transaction and, once it commits, notifies
// observers of the given tables.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error, tables ...string) error {
	if err := s.DB.WithContext(ctx).Transaction(fn); err != nil {
		return err
	}
	s.Notify(tables...)
	return nil
}

// Notify wakes every observer of the given tables. Notifications coalesce:
// an observer that has not caught up yet sees one pending change.
func (s *Store) Notify(tables ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, table := range tables {
		for ch := range s.watchers[table] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

func (s *Store) watch(tables ...string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	for _, table := range tables {
		if s.watchers[table] == nil {
			s.watchers[table] = make(map[chan struct{}]struct{})
		}
		s.watchers[table][ch] = struct{}{}
	}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, table := range tables {
			delete(s.watchers[table], ch)
		}
	}
}

// Observe runs query immediately and again after every change to tables,
// emitting each result. A query error terminates the stream.
func Observe[T any](ctx context.Context, s *Store, query func(ctx context.Context) (T, error), tables ...string) *stream.Subscription[T] {
	return stream.New(ctx, func(ctx context.Context, emit stream.Emit[T]) error {
		changed, stop := s.watch(tables...)
		defer stop()

		gauge := observability.ActiveSubscriptions.WithLabelValues("cache")
		gauge.Inc()
		defer gauge.Dec()

		for {
			v, err := query(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				observability.Logger.WarnContext(ctx, "observed query failed",
					slog.String("tables", strings.Join(tables, ",")),
					slog.String("error", err.Error()),
				)
				return err
			}
			if !emit(v) {
				return ctx.Err()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-changed:
			}
		}
	})
}
