package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration.
// Values come from an optional YAML file and are then overridden by environment variables.
type Config struct {
	Port string `yaml:"port"`

	// StoreDriver selects the coupon/product/balance store: "mongo" or "memory".
	StoreDriver string `yaml:"store_driver"`
	MongoURI    string `yaml:"mongo_uri"`
	MongoDB     string `yaml:"mongo_db"`

	// SQLDriver selects the ranking archive backend: "mysql" or "sqlite".
	SQLDriver string `yaml:"sql_driver"`
	SQLDSN    string `yaml:"sql_dsn"`

	// RedisAddr enables the Redis ranking counter and distributed locks when set.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// EventBus selects the sale event transport: "gochannel" or "kafka".
	EventBus     string   `yaml:"event_bus"`
	KafkaBrokers []string `yaml:"kafka_brokers"`

	LockWait time.Duration `yaml:"lock_wait"`
	LockTTL  time.Duration `yaml:"lock_ttl"`

	RankingTopN   int    `yaml:"ranking_top_n"`
	DailyCron     string `yaml:"daily_cron"`
	WeeklyCron    string `yaml:"weekly_cron"`
	Timezone      string `yaml:"timezone"`
	SeedProducts  bool   `yaml:"seed_products"`
	MetricsEnable bool   `yaml:"metrics_enable"`
}

// Default returns the configuration used when neither file nor environment set a value.
func Default() Config {
	return Config{
		Port:          "8080",
		StoreDriver:   "mongo",
		MongoURI:      "mongodb://localhost:27017",
		MongoDB:       "commerce",
		SQLDriver:     "sqlite",
		SQLDSN:        "ranking.db",
		EventBus:      "gochannel",
		KafkaBrokers:  []string{"localhost:9092"},
		LockWait:      3 * time.Second,
		LockTTL:       5 * time.Second,
		RankingTopN:   10,
		DailyCron:     "0 0 2 * * *",
		WeeklyCron:    "0 0 3 * * MON",
		Timezone:      "Local",
		SeedProducts:  true,
		MetricsEnable: true,
	}
}

// Load reads the YAML file at path (if it exists) over the defaults and then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.Port = GetEnv("PORT", cfg.Port)
	cfg.StoreDriver = GetEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.MongoURI = GetEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDB = GetEnv("MONGO_DB", cfg.MongoDB)
	cfg.SQLDriver = GetEnv("SQL_DRIVER", cfg.SQLDriver)
	cfg.SQLDSN = GetEnv("SQL_DSN", cfg.SQLDSN)
	cfg.RedisAddr = GetEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = GetEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = GetEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.EventBus = GetEnv("EVENT_BUS", cfg.EventBus)
	if brokers := GetEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitCSV(brokers)
	}
	cfg.LockWait = GetEnvDuration("LOCK_WAIT", cfg.LockWait)
	cfg.LockTTL = GetEnvDuration("LOCK_TTL", cfg.LockTTL)
	cfg.RankingTopN = GetEnvInt("RANKING_TOP_N", cfg.RankingTopN)
	cfg.DailyCron = GetEnv("DAILY_ROLLUP_CRON", cfg.DailyCron)
	cfg.WeeklyCron = GetEnv("WEEKLY_ROLLUP_CRON", cfg.WeeklyCron)
	cfg.Timezone = GetEnv("TZ_NAME", cfg.Timezone)
	cfg.SeedProducts = GetEnvBool("SEED_PRODUCTS", cfg.SeedProducts)
	cfg.MetricsEnable = GetEnvBool("METRICS_ENABLE", cfg.MetricsEnable)

	if cfg.RankingTopN <= 0 {
		return Config{}, fmt.Errorf("ranking_top_n must be positive, got %d", cfg.RankingTopN)
	}
	if cfg.LockWait <= 0 || cfg.LockTTL <= 0 {
		return Config{}, fmt.Errorf("lock_wait and lock_ttl must be positive")
	}
	return cfg, nil
}

// Location resolves the configured timezone used for ranking windows.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// GetEnv returns the value of the environment variable or the fallback when unset.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func GetEnvBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
