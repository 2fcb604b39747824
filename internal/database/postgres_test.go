package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"bookdot/internal/config"
	"bookdot/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// postgresConfig creates a throwaway database on the server named by the DB_*
// variables. Set BOOKDOT_PG_TESTS=1 to run against a real postgres.
func postgresConfig(t *testing.T) *config.Config {
	t.Helper()
	if os.Getenv("BOOKDOT_PG_TESTS") != "1" {
		t.Skip("set BOOKDOT_PG_TESTS=1 to run postgres tests")
	}

	cfg := &config.Config{
		Env:        "test",
		DBHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:     getEnvOrDefault("DB_PORT", "5432"),
		DBUser:     getEnvOrDefault("DB_USER", "bookdot"),
		DBPassword: getEnvOrDefault("DB_PASSWORD", "password"),
		DBSSLMode:  "disable",
		DBName:     fmt.Sprintf("bookdot_test_%d", time.Now().UnixNano()),
	}

	admin, err := sql.Open("pgx", fmt.Sprintf("postgres://%s:%s@%s:%s/postgres?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort))
	require.NoError(t, err)
	t.Cleanup(func() { _ = admin.Close() })

	ctx := context.Background()
	_, err = admin.ExecContext(ctx, `CREATE DATABASE `+cfg.DBName)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.ExecContext(ctx, `SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1`, cfg.DBName)
		_, _ = admin.ExecContext(ctx, `DROP DATABASE IF EXISTS `+cfg.DBName)
	})
	return cfg
}

func TestConnect_PostgresMigratesAndCascades(t *testing.T) {
	cfg := postgresConfig(t)

	store, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for _, m := range PersistentModels() {
		assert.True(t, store.DB.Migrator().HasTable(m), "missing table for %T", m)
	}

	now := time.Now().UTC()
	require.NoError(t, store.DB.Create(&models.User{ID: "u1", Username: "u1", DisplayName: "One", CreatedAt: now}).Error)
	require.NoError(t, store.DB.Create(&models.Post{ID: "p1", UserID: "u1", Content: "hello", ImageURLs: []string{}, CreatedAt: now}).Error)
	require.NoError(t, store.DB.Create(&models.PostLike{PostID: "p1", UserID: "u1", CreatedAt: now}).Error)

	require.NoError(t, store.DB.Where("id = ?", "p1").Delete(&models.Post{}).Error)
	var likes int64
	require.NoError(t, store.DB.Model(&models.PostLike{}).Count(&likes).Error)
	assert.Zero(t, likes, "likes cascade with their post")
}
