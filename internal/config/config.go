package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the server reads at start-up.
type Config struct {
	AppPort string

	DatabaseDriver   string
	DatabaseDSN      string
	DBMaxOpenConns   int
	DBMaxIdleConns   int
	DBConnMaxLifeMin int

	JWTSecret  string
	BcryptCost int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	RabbitMQURL   string
	RabbitMQQueue string

	UploadDir      string
	MaxUploadBytes int64

	CORSAllowOrigins string
	SeedDemoData     bool

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment and, when CONFIG_FILE is
// set, from that file. Environment variables win over file values.
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith reads configuration using the given viper instance.
func LoadWith(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		AppPort:          v.GetString("APP_PORT"),
		DatabaseDriver:   strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:      v.GetString("DATABASE_DSN"),
		DBMaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifeMin: v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		BcryptCost:       v.GetInt("BCRYPT_COST"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisDB:          v.GetInt("REDIS_DB"),
		CacheTTL:         v.GetDuration("CACHE_TTL"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQQueue:    v.GetString("RABBITMQ_QUEUE"),
		UploadDir:        v.GetString("UPLOAD_DIR"),
		MaxUploadBytes:   v.GetInt64("MAX_UPLOAD_BYTES"),
		CORSAllowOrigins: v.GetString("CORS_ALLOW_ORIGINS"),
		SeedDemoData:     v.GetBool("SEED_DEMO_DATA"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=storerate port=5432 sslmode=disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_QUEUE", "storerate_events")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MAX_UPLOAD_BYTES", 5*1024*1024)
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("SEED_DEMO_DATA", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CONFIG_FILE", "")
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (want postgres, mysql or sqlite)", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// HasJWTSecret reports whether tokens can be signed. A missing secret is not
// a load error: the server starts and reports a configuration fault per request.
func (c *Config) HasJWTSecret() bool {
	return c.JWTSecret != ""
}
