package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	AppPort string `mapstructure:"APP_PORT" validate:"required"`

	StoreBackend      string        `mapstructure:"STORE_BACKEND" validate:"oneof=remote sql memory"`
	StoreURL          string        `mapstructure:"STORE_URL" validate:"required_if=StoreBackend remote"`
	StoreToken        string        `mapstructure:"STORE_TOKEN" validate:"required_if=StoreBackend remote"`
	StoreTimeout      time.Duration `mapstructure:"STORE_TIMEOUT" validate:"gt=0"`
	SideEffectTimeout time.Duration `mapstructure:"SIDE_EFFECT_TIMEOUT" validate:"gt=0"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER" validate:"oneof=postgres sqlite"`
	DatabaseDSN    string `mapstructure:"DATABASE_DSN" validate:"required_if=StoreBackend sql"`

	CollectionProducts    string `mapstructure:"COLLECTION_PRODUCTS" validate:"required"`
	CollectionStockParent string `mapstructure:"COLLECTION_STOCK_PARENT" validate:"required"`
	CollectionStockLot    string `mapstructure:"COLLECTION_STOCK_LOT" validate:"required"`
	CollectionHistory     string `mapstructure:"COLLECTION_HISTORY" validate:"required"`
	CollectionUsers       string `mapstructure:"COLLECTION_USERS" validate:"required"`
	LotSortField          string `mapstructure:"LOT_SORT_FIELD" validate:"required"`

	BlankFill string `mapstructure:"BLANK_FILL" validate:"oneof=white registration"`

	StockLock    string        `mapstructure:"STOCK_LOCK" validate:"oneof=none memory redis"`
	RedisAddr    string        `mapstructure:"REDIS_ADDR" validate:"required_if=StockLock redis"`
	StockLockTTL time.Duration `mapstructure:"STOCK_LOCK_TTL" validate:"gt=0"`

	AuditTransport string   `mapstructure:"AUDIT_TRANSPORT" validate:"oneof=direct rabbitmq kafka"`
	RabbitMQURL    string   `mapstructure:"RABBITMQ_URL" validate:"required_if=AuditTransport rabbitmq"`
	KafkaBrokers   []string `mapstructure:"KAFKA_BROKERS" validate:"required_if=AuditTransport kafka"`
	KafkaTopic     string   `mapstructure:"KAFKA_TOPIC" validate:"required_if=AuditTransport kafka"`

	JWTSecret    string `mapstructure:"JWT_SECRET"`
	JWTUserClaim string `mapstructure:"JWT_USER_CLAIM" validate:"required"`

	OtelEndpoint   string `mapstructure:"OTEL_ENDPOINT"`
	OtelAuthHeader string `mapstructure:"OTEL_AUTH_HEADER"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
}

var defaults = map[string]any{
	"APP_PORT":                ":8080",
	"STORE_BACKEND":           "remote",
	"STORE_URL":               "",
	"STORE_TOKEN":             "",
	"STORE_TIMEOUT":           "10s",
	"SIDE_EFFECT_TIMEOUT":     "5s",
	"DATABASE_DRIVER":         "postgres",
	"DATABASE_DSN":            "",
	"COLLECTION_PRODUCTS":     "products",
	"COLLECTION_STOCK_PARENT": "stock_parent",
	"COLLECTION_STOCK_LOT":    "stock_lot",
	"COLLECTION_HISTORY":      "history",
	"COLLECTION_USERS":        "users",
	"LOT_SORT_FIELD":          "date_created",
	"BLANK_FILL":              "white",
	"STOCK_LOCK":              "memory", // process-local, multi-replica deployments need "redis"
	"REDIS_ADDR":              "",
	"STOCK_LOCK_TTL":          "5s",
	"AUDIT_TRANSPORT":         "direct",
	"RABBITMQ_URL":            "",
	"KAFKA_BROKERS":           "",
	"KAFKA_TOPIC":             "gabarito.audit",
	"JWT_SECRET":              "",
	"JWT_USER_CLAIM":          "id",
	"OTEL_ENDPOINT":           "",
	"OTEL_AUTH_HEADER":        "",
	"LOG_LEVEL":               "info",
}

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid configuration")

// Load reads defaults, an optional CONFIG_FILE and the environment, then validates.
func Load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)

	if err := validator.New().Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &cfg, nil
}

// splitList drops blanks and accepts comma-joined entries.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
