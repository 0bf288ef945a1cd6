package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Escalation EscalationConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Storage    StorageConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
}

// EscalationConfig drives deadlines, the sweep schedule and the cron endpoint.
type EscalationConfig struct {
	Interval       time.Duration
	Timezone       string
	Location       *time.Location
	DeadlineDays   int
	DeadlineHour   int
	ReminderWindow time.Duration
	ReminderMax    int
	LockTTL        time.Duration
	CronSecret     string
	CronSecretHash string
}

// RedisConfig is optional; an empty Addr disables the sweep lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig is optional; empty Brokers disables push delivery.
type KafkaConfig struct {
	Brokers           string
	NotificationTopic string
}

type StorageConfig struct {
	BasePath string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file loaded, using process environment")
	}

	config := &Config{}

	dbConfig, err := loadDatabase()
	if err != nil {
		return nil, err
	}
	config.Database = dbConfig

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:               appPort,
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Escalation configuration
	if config.Escalation, err = loadEscalation(); err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	config.Kafka = KafkaConfig{
		Brokers:           getEnv("KAFKA_BROKERS", ""),
		NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "leave.notifications"),
	}

	config.Storage = StorageConfig{
		BasePath: getEnv("STORAGE_BASE_PATH", "./uploads"),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadEscalation() (EscalationConfig, error) {
	var (
		cfg EscalationConfig
		err error
	)

	if cfg.Interval, err = getEnvDuration("ESCALATION_INTERVAL", 15*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.ReminderWindow, err = getEnvDuration("REMINDER_WINDOW", 24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.LockTTL, err = getEnvDuration("ESCALATION_LOCK_TTL", 5*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.DeadlineDays, err = getEnvInt("ESCALATION_DEADLINE_DAYS", 2); err != nil {
		return cfg, err
	}
	if cfg.DeadlineHour, err = getEnvInt("ESCALATION_DEADLINE_HOUR", 8); err != nil {
		return cfg, err
	}
	if cfg.ReminderMax, err = getEnvInt("REMINDER_MAX", 2); err != nil {
		return cfg, err
	}

	cfg.Timezone = getEnv("ESCALATION_TIMEZONE", "Asia/Jakarta")
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return cfg, fmt.Errorf("invalid ESCALATION_TIMEZONE: %w", err)
	}

	cfg.CronSecret = getEnv("CRON_SECRET", "")
	cfg.CronSecretHash = getEnv("CRON_SECRET_HASH", "")
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Escalation.CronSecret == "" && c.Escalation.CronSecretHash == "" {
		return fmt.Errorf("CRON_SECRET or CRON_SECRET_HASH is required")
	}
	if c.Escalation.Interval <= 0 {
		return fmt.Errorf("ESCALATION_INTERVAL must be positive")
	}
	if c.Escalation.DeadlineDays < 1 {
		return fmt.Errorf("ESCALATION_DEADLINE_DAYS must be at least 1")
	}
	if c.Escalation.DeadlineHour < 0 || c.Escalation.DeadlineHour > 23 {
		return fmt.Errorf("ESCALATION_DEADLINE_HOUR must be between 0 and 23")
	}
	if c.Escalation.ReminderMax < 0 {
		return fmt.Errorf("REMINDER_MAX must not be negative")
	}
	return nil
}

// LoadDatabase reads only the database settings. Tools such as the migrator use it so they
// do not need the API's secrets.
func LoadDatabase() (DatabaseConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file loaded, using process environment")
	}
	dbConfig, err := loadDatabase()
	if err != nil {
		return dbConfig, err
	}
	if dbConfig.Password == "" {
		return dbConfig, fmt.Errorf("DB_PASSWORD is required")
	}
	return dbConfig, nil
}

func loadDatabase() (DatabaseConfig, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return DatabaseConfig{}, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "leave_approval"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}, nil
}

// URL returns the PostgreSQL connection string
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return c.Database.URL()
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
