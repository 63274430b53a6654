package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Deposit  DepositConfig  `mapstructure:"deposit"`
	Rates    RatesConfig    `mapstructure:"rates"`
	Observer ObserverConfig `mapstructure:"observer"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AdminConfig struct {
	// Password is the admin shared secret, verified through an opaque
	// comparator. Must be set in production.
	Password string `mapstructure:"password"`
}

type DepositConfig struct {
	MinAmount     float64       `mapstructure:"min_amount"` // settlement-currency units
	MaxAmount     float64       `mapstructure:"max_amount"`
	Expiration    time.Duration `mapstructure:"expiration"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	WalletAddress string        `mapstructure:"wallet_address"` // master deposit address
}

type RatesConfig struct {
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	FallbackRate float64       `mapstructure:"fallback_rate"` // RUB per USDT when the source is down
}

type ObserverConfig struct {
	// Token authenticates the blockchain-observer webhook.
	// Empty disables the endpoint.
	Token string `mapstructure:"token"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"` // empty disables outbound notifications
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: PGW_ (Payout Gateway).
// Nested keys use underscore: PGW_DATABASE_HOST, PGW_ADMIN_PASSWORD, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "payout_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "payout-gateway")
	v.SetDefault("admin.password", "")
	v.SetDefault("deposit.min_amount", 30.0)
	v.SetDefault("deposit.max_amount", 20000.0)
	v.SetDefault("deposit.expiration", "10m")
	v.SetDefault("deposit.sweep_interval", "1m")
	v.SetDefault("deposit.wallet_address", "")
	v.SetDefault("rates.url", "https://www.cbr-xml-daily.ru/daily_json.js")
	v.SetDefault("rates.timeout", "5s")
	v.SetDefault("rates.cache_ttl", "5m")
	v.SetDefault("rates.fallback_rate", 95.0)
	v.SetDefault("observer.token", "")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: PGW_DATABASE_HOST -> database.host
	v.SetEnvPrefix("PGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
