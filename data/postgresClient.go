package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
)

const (
	connAttempts = 10
	connBackoff  = time.Second
)

func postgresDSN(cfg config.Postgres) string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable password=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.DbName, cfg.Password)
}

// NewPostgresClient connects with retries and applies pending migrations from cfg.Postgres.MigrationDir.
func NewPostgresClient(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error

	for attempt := connAttempts; attempt > 0; attempt-- {
		db, err = sqlx.ConnectContext(ctx, "pgx", postgresDSN(cfg.Postgres))
		if err == nil {
			break
		}

		slog.Info("postgres is trying to connect", slog.Int("attempts left", attempt-1), slog.String("err", err.Error()))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxIdleTime(time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second)

	slog.Info("postgres connected", slog.String("db", cfg.Postgres.DbName))

	if err = migratePostgres(db, cfg.Postgres.MigrationDir); err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("postgres migrated successfully")

	return db, nil
}

func migratePostgres(db *sqlx.DB, migrationDir string) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationDir), "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration source %s: %w", migrationDir, err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
