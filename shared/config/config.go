package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	EventBusNone  = "none"
	EventBusRedis = "redis"
	EventBusKafka = "kafka"
)

// Config holds application configuration loaded from the environment and an
// optional config.<mode>.yaml file.
type Config struct {
	Port                string        `mapstructure:"PORT" validate:"required"`
	StoreDriver         string        `mapstructure:"STORE_DRIVER" validate:"oneof=memory postgres"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL" validate:"required_if=StoreDriver postgres"`
	RedisAddr           string        `mapstructure:"REDIS_ADDR"`
	RedisPassword       string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB             int           `mapstructure:"REDIS_DB" validate:"min=0"`
	EventBus            string        `mapstructure:"EVENT_BUS" validate:"oneof=none redis kafka"`
	KafkaBrokers        []string      `mapstructure:"KAFKA_BROKERS"`
	JWTSecret           string        `mapstructure:"JWT_SECRET" validate:"required,min=16"`
	TokenTTL            time.Duration `mapstructure:"TOKEN_TTL" validate:"gt=0"`
	SupportedCurrencies []string      `mapstructure:"SUPPORTED_CURRENCIES" validate:"min=1,dive,len=3"`
	SignupRatePerSecond float64       `mapstructure:"SIGNUP_RATE_PER_SECOND" validate:"gte=0"`
	SignupBurst         int           `mapstructure:"SIGNUP_BURST" validate:"min=1"`
}

// Load reads configuration from the environment (and optional config file),
// then validates it.
func Load(logger *zap.Logger) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so that Unmarshal picks up its env value.
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("EVENT_BUS", EventBusNone)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("SUPPORTED_CURRENCIES", "EUR,USD,GBP")
	v.SetDefault("SIGNUP_RATE_PER_SECOND", 5)
	v.SetDefault("SIGNUP_BURST", 10)

	switch gin.Mode() {
	case gin.ReleaseMode:
		v.SetConfigName("config.prod")
	case gin.TestMode:
		logger.Warn("running in test mode")
		v.SetConfigName("config.test")
	default:
		logger.Warn("running in development mode")
		v.SetConfigName("config.dev")
	}
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	cfg.SupportedCurrencies = compact(cfg.SupportedCurrencies)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.EventBus == EventBusKafka && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("invalid config: KAFKA_BROKERS is required when EVENT_BUS=kafka")
	}
	if cfg.EventBus == EventBusRedis && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("invalid config: REDIS_ADDR is required when EVENT_BUS=redis")
	}
	return &cfg, nil
}

// compact trims entries and drops empty ones left by comma-separated env values.
func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
