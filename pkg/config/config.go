package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Upstream  UpstreamConfig
	Fetch     FetchConfig
	View      ViewConfig
	Session   SessionConfig
	Overrides OverridesConfig
	Courses   CoursesConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UpstreamConfig points at the LMS proxy backend.
type UpstreamConfig struct {
	BaseURL      string
	Timeout      time.Duration
	FinishedPath string
}

// FetchConfig tunes the batched detail fetch.
type FetchConfig struct {
	BatchSize  int
	BatchDelay time.Duration
}

// ViewConfig controls the due table projection.
type ViewConfig struct {
	PageSize int
}

// SessionConfig configures the persisted single-slot session.
type SessionConfig struct {
	KeyPrefix string
	Secret    string
}

// OverridesConfig gates the durable finished-flag store and its write queue.
type OverridesConfig struct {
	PersistEnabled bool
	QueueWorkers   int
	QueueBuffer    int
}

// CoursesConfig governs caching of the upstream course list.
type CoursesConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Upstream = UpstreamConfig{
		BaseURL:      strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		Timeout:      parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 30*time.Second),
		FinishedPath: v.GetString("UPSTREAM_FINISHED_PATH"),
	}

	batchSize := v.GetInt("FETCH_BATCH_SIZE")
	if batchSize <= 0 {
		batchSize = 5
	}
	cfg.Fetch = FetchConfig{
		BatchSize:  batchSize,
		BatchDelay: parseDuration(v.GetString("FETCH_BATCH_DELAY"), 100*time.Millisecond),
	}

	pageSize := v.GetInt("VIEW_PAGE_SIZE")
	if pageSize <= 0 {
		pageSize = 10
	}
	cfg.View = ViewConfig{PageSize: pageSize}

	cfg.Session = SessionConfig{
		KeyPrefix: v.GetString("SESSION_KEY_PREFIX"),
		Secret:    v.GetString("SESSION_SECRET"),
	}

	cfg.Overrides = OverridesConfig{
		PersistEnabled: v.GetBool("ENABLE_OVERRIDE_STORE"),
		QueueWorkers:   v.GetInt("OVERRIDE_QUEUE_WORKERS"),
		QueueBuffer:    v.GetInt("OVERRIDE_QUEUE_BUFFER"),
	}

	cfg.Courses = CoursesConfig{
		CacheEnabled: v.GetBool("ENABLE_COURSE_CACHE"),
		CacheTTL:     parseDuration(v.GetString("COURSE_CACHE_TTL"), 15*time.Minute),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "duetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "duetable-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:3000")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("UPSTREAM_FINISHED_PATH", "/api/assignments/finished")

	v.SetDefault("FETCH_BATCH_SIZE", 5)
	v.SetDefault("FETCH_BATCH_DELAY", "100ms")
	v.SetDefault("VIEW_PAGE_SIZE", 10)

	v.SetDefault("SESSION_KEY_PREFIX", "duetable:session:")
	v.SetDefault("SESSION_SECRET", "dev_session_secret")

	v.SetDefault("ENABLE_OVERRIDE_STORE", false)
	v.SetDefault("OVERRIDE_QUEUE_WORKERS", 2)
	v.SetDefault("OVERRIDE_QUEUE_BUFFER", 32)

	v.SetDefault("ENABLE_COURSE_CACHE", false)
	v.SetDefault("COURSE_CACHE_TTL", "15m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
