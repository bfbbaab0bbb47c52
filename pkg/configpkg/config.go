// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	DBDriver             string        `mapstructure:"DB_DRIVER"`
	DBSource             string        `mapstructure:"DB_SOURCE"`
	MigrationURL         string        `mapstructure:"MIGRATION_URL"`
	ServerAddress        string        `mapstructure:"SERVER_ADDRESS"`
	TokenType            string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey    string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration  time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	RefreshTokenDuration time.Duration `mapstructure:"REFRESH_TOKEN_DURATION"`
	Environment          string        `mapstructure:"GO_ENV"`
	RedisAddress         string        `mapstructure:"REDIS_ADDRESS"`
	RedisPassword        string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB              int           `mapstructure:"REDIS_DB"`
	AccountCacheTTL      time.Duration `mapstructure:"ACCOUNT_CACHE_TTL"`
	TransactionsCacheTTL time.Duration `mapstructure:"TRANSACTIONS_CACHE_TTL"`
	LockTimeout          time.Duration `mapstructure:"LOCK_TIMEOUT"`
	KafkaBrokers         string        `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic           string        `mapstructure:"KAFKA_TOPIC"`
	RateLimit            string        `mapstructure:"RATE_LIMIT"`
	CORSAllowedOrigins   string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	setDefaults(v)

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("MIGRATION_URL", "file://configs/db/migration")
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("TOKEN_TYPE", "paseto")
	v.SetDefault("ACCESS_TOKEN_DURATION", 15*time.Minute)
	v.SetDefault("REFRESH_TOKEN_DURATION", 24*time.Hour)
	v.SetDefault("GO_ENV", "production")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ACCOUNT_CACHE_TTL", 5*time.Minute)
	v.SetDefault("TRANSACTIONS_CACHE_TTL", time.Minute)
	v.SetDefault("LOCK_TIMEOUT", 5*time.Second)
	v.SetDefault("KAFKA_TOPIC", "ledger.transaction.recorded")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

// Brokers returns the configured kafka brokers, nil if none.
func (c Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

// AllowedOrigins returns the configured CORS origins.
func (c Config) AllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func splitList(s string) []string {
	var items []string

	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
