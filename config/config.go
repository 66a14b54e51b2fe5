package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	StorageDriver     string        `env:"STORAGE_DRIVER" envDefault:"postgres"`
	SessionExpiration time.Duration `env:"SESSION_EXPIRATION" envDefault:"30m"`
	Postgres          Postgres
	Redis             Redis
	HTTP              HTTP
	Telegram          Telegram
	API               API
	Cache             Cache
	Usage             Usage
	Analysis          Analysis
	Jobs              Jobs
	GoogleDrive       GoogleDrive
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	GinMode         string        `env:"GIN_MODE" envDefault:"release"`
}

type Telegram struct {
	Enabled    bool          `env:"TELEGRAM_ENABLED" envDefault:"false"`
	Token      string        `env:"TELEGRAM_TOKEN"`
	UpdTimeout time.Duration `env:"TELEGRAM_UPD_TIMEOUT" envDefault:"10s"`
}

type API struct {
	Debug    bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout  time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	YahooApi YahooApi
}

type YahooApi struct {
	Url       string `env:"YAHOO_API_URL" envDefault:"https://query1.finance.yahoo.com"`
	UserAgent string `env:"YAHOO_API_USER_AGENT" envDefault:"Mozilla/5.0"`
}

type Cache struct {
	QuotesExpiration time.Duration `env:"CACHE_QUOTES_EXPIRATION" envDefault:"15m"`
	MaxQuotes        int64         `env:"CACHE_MAX_QUOTES" envDefault:"10000"`
}

type Usage struct {
	DailyCredits int    `env:"USAGE_DAILY_CREDITS" envDefault:"10"`
	Timezone     string `env:"USAGE_TIMEZONE" envDefault:"UTC"`
	HistoryLimit int    `env:"USAGE_HISTORY_LIMIT" envDefault:"30"`
}

type Analysis struct {
	FetchConcurrency int `env:"ANALYSIS_FETCH_CONCURRENCY" envDefault:"4"`
}

type Jobs struct {
	RefreshQuoteCacheInterval time.Duration `env:"REFRESH_QUOTE_CACHE_JOB_INTERVAL" envDefault:"10m"`
	CleanupReportsInterval    time.Duration `env:"CLEANUP_REPORTS_JOB_INTERVAL" envDefault:"6h"`
}

type GoogleDrive struct {
	Enabled         bool          `env:"GOOGLE_DRIVE_ENABLED" envDefault:"false"`
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE"`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"24h"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: false}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	if err := cfg.validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	return cfg
}
