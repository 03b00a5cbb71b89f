package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL"`
	Postgres    Postgres
	Redis       Redis
	API         API
	Cache       Cache
	Jobs        Jobs
	Market      Market
	Screening   Screening
	GoogleDrive GoogleDrive
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type API struct {
	Debug           bool          `env:"API_DEBUG"`
	Timeout         time.Duration `env:"API_TIMEOUT"`
	BrokerApi       BrokerApi
	FundamentalsApi FundamentalsApi
}

type BrokerApi struct {
	Url   string `env:"BROKER_API_URL"`
	Token string `env:"BROKER_API_TOKEN"`
}

type FundamentalsApi struct {
	Url string `env:"FUNDAMENTALS_API_URL"`
}

type Cache struct {
	FundamentalsExpiration time.Duration `env:"CACHE_FUNDAMENTALS_EXPIRATION"`
}

type Jobs struct {
	RefreshInterval     time.Duration `env:"PORTFOLIO_REFRESH_INTERVAL" envDefault:"300s"`
	MarketHoursInterval time.Duration `env:"MARKET_HOURS_REFRESH_INTERVAL" envDefault:"60s"`
	DailySummaryCrontab string        `env:"DAILY_SUMMARY_CRONTAB" envDefault:"30 15 * * *"`
}

type Market struct {
	OpensAt  string `env:"MARKET_OPENS_AT" envDefault:"09:15"`
	ClosesAt string `env:"MARKET_CLOSES_AT" envDefault:"15:30"`
}

type Screening struct {
	ResultsPerPage int `env:"SCREENING_RESULTS_PER_PAGE" envDefault:"20"`
}

type GoogleDrive struct {
	CredentialsFile string `env:"GOOGLE_DRIVE_CREDENTIALS_FILE"`
	ReportsFolderID string `env:"GOOGLE_DRIVE_REPORTS_FOLDER_ID"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
