package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AWS      AWSConfig
	Billing  BillingConfig
	Jobs     JobsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and S3 bucket names.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	MenuImagesBucket     string
	StatementsBucket     string
	PresignExpireMinutes int
}

// OverdraftPolicy controls whether a personal room booking may push the
// user's balance negative.
type OverdraftPolicy string

const (
	// OverdraftAllow permits negative balances (deduct and warn).
	OverdraftAllow OverdraftPolicy = "allow"
	// OverdraftReject fails the booking before any write when the balance
	// would go negative.
	OverdraftReject OverdraftPolicy = "reject"
)

// BillingConfig holds the billing-policy knobs and the fixed civil timezone
// used for billing-period boundaries.
type BillingConfig struct {
	Timezone        string // IANA name, e.g. Asia/Karachi
	Overdraft       OverdraftPolicy
	RefundOnCancel  bool // refund personal credits when a confirmed booking is cancelled
	SlotWindowStart int  // first bookable hour of day, billing-local
	SlotWindowEnd   int  // hour after the last bookable slot, billing-local
}

// JobsConfig holds cron schedules for the worker (cron/v3 spec strings,
// evaluated in the billing timezone).
type JobsConfig struct {
	CreditReset      string // monthly used_credits reset
	CompleteBookings string // nightly mark past bookings completed
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))

	overdraft := OverdraftPolicy(strings.ToLower(getEnv("BILLING_OVERDRAFT_POLICY", string(OverdraftAllow))))
	if overdraft != OverdraftAllow && overdraft != OverdraftReject {
		return nil, fmt.Errorf("invalid BILLING_OVERDRAFT_POLICY: %q", overdraft)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/atrium?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "atrium"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			MenuImagesBucket:     getEnv("AWS_S3_MENU_BUCKET", "atrium-menu-images"),
			StatementsBucket:     getEnv("AWS_S3_STATEMENTS_BUCKET", "atrium-statements"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Billing: BillingConfig{
			Timezone:        getEnv("BILLING_TIMEZONE", "Asia/Karachi"),
			Overdraft:       overdraft,
			RefundOnCancel:  getEnvBool("BILLING_REFUND_ON_CANCEL", false),
			SlotWindowStart: getEnvInt("BOOKING_WINDOW_START_HOUR", 8),
			SlotWindowEnd:   getEnvInt("BOOKING_WINDOW_END_HOUR", 20),
		},
		Jobs: JobsConfig{
			CreditReset:      getEnv("JOB_CREDIT_RESET", "0 0 1 * *"),
			CompleteBookings: getEnv("JOB_COMPLETE_BOOKINGS", "30 0 * * *"),
		},
	}
	if cfg.Billing.SlotWindowStart < 0 || cfg.Billing.SlotWindowEnd > 24 ||
		cfg.Billing.SlotWindowStart >= cfg.Billing.SlotWindowEnd {
		return nil, fmt.Errorf("invalid booking window: %d-%d", cfg.Billing.SlotWindowStart, cfg.Billing.SlotWindowEnd)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
