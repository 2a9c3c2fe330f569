package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Limit reset policies.
const (
	ResetPolicyLazy   = "lazy"
	ResetPolicyStrict = "strict"
)

// Config is the runtime configuration of the card ledger service.
type Config struct {
	Port string
	Env  string

	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	LockTimeout time.Duration

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	CardCacheTTL  time.Duration

	JWTSecret         string
	AccessTokenTTL    time.Duration
	CardEncryptionKey string

	LimitResetPolicy string
	DailyResetCron   string
	MonthlyResetCron string
	ResetBatchSize   int

	LogLevel string
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file found")
	}
}

// Load reads the configuration from the environment, falling back to
// development defaults.
func Load() *Config {
	LoadEnv()

	policy := GetEnv("LIMIT_RESET_POLICY", ResetPolicyLazy)
	if policy != ResetPolicyStrict {
		policy = ResetPolicyLazy
	}

	return &Config{
		Port: GetEnv("PORT", "8080"),
		Env:  GetEnv("ENV", "development"),

		DBHost:      GetEnv("DB_HOST", "localhost"),
		DBPort:      GetEnv("DB_PORT", "5432"),
		DBUser:      GetEnv("DB_USER", "postgres"),
		DBPassword:  GetEnv("DB_PASSWORD", "postgres"),
		DBName:      GetEnv("DB_NAME", "cardledger"),
		DBSSLMode:   GetEnv("DB_SSLMODE", "disable"),
		LockTimeout: GetDurationEnv("DB_LOCK_TIMEOUT", 5*time.Second),

		RedisHost:     GetEnv("REDIS_HOST", "localhost"),
		RedisPort:     GetEnv("REDIS_PORT", "6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       GetIntEnv("REDIS_DB", 0),
		CacheTTL:      GetDurationEnv("CACHE_TTL", 5*time.Minute),
		CardCacheTTL:  GetDurationEnv("CARD_CACHE_TTL", time.Minute),

		JWTSecret:         GetEnv("JWT_SECRET", ""),
		AccessTokenTTL:    GetDurationEnv("ACCESS_TOKEN_TTL", 15*time.Minute),
		CardEncryptionKey: GetEnv("CARD_ENCRYPTION_KEY", ""),

		LimitResetPolicy: policy,
		DailyResetCron:   GetEnv("DAILY_RESET_CRON", "0 0 0 * * *"),
		MonthlyResetCron: GetEnv("MONTHLY_RESET_CRON", "0 10 0 1 * *"),
		ResetBatchSize:   GetIntEnv("RESET_BATCH_SIZE", 500),

		LogLevel: GetEnv("LOG_LEVEL", "info"),
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable ("5s", "1m") or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

// NewLogger builds the process logger: JSON output, level from LOG_LEVEL.
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
