package config

import (
	"errors"
	"fmt"
	"time"
)

func (c *Config) validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.Postgres.Host == "" || c.Postgres.DbName == "" || c.Postgres.User == "" {
			errs = append(errs, errors.New("PG_HOST, PG_DB_NAME and PG_USER are required for postgres storage"))
		}
	case StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	if c.Telegram.Enabled && c.Telegram.Token == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required when telegram is enabled"))
	}

	if c.GoogleDrive.Enabled && c.GoogleDrive.CredentialsFile == "" {
		errs = append(errs, errors.New("GOOGLE_DRIVE_CREDENTIALS_FILE is required when google drive is enabled"))
	}

	if c.Usage.DailyCredits <= 0 {
		errs = append(errs, fmt.Errorf("USAGE_DAILY_CREDITS must be positive, got %d", c.Usage.DailyCredits))
	}

	if _, err := time.LoadLocation(c.Usage.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("USAGE_TIMEZONE: %w", err))
	}

	if c.Analysis.FetchConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("ANALYSIS_FETCH_CONCURRENCY must be positive, got %d", c.Analysis.FetchConcurrency))
	}

	switch c.HTTP.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("unknown GIN_MODE %q", c.HTTP.GinMode))
	}

	return errors.Join(errs...)
}

// NeedsRedis reports whether any configured component keeps its state in redis.
func (c *Config) NeedsRedis() bool {
	return c.StorageDriver == StorageDriverPostgres || c.Telegram.Enabled
}
