// Package config loads BlockIQ server settings from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	CatalogEmbedded = "embedded"
	CatalogMongo    = "mongo"
)

// Config represents the complete server configuration
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Mongo    MongoConfig   `yaml:"mongo"`
	Redis    RedisConfig   `yaml:"redis"`
	Auth     AuthConfig    `yaml:"auth"`
	Payment  PaymentConfig `yaml:"payment"`
	Host     HostConfig    `yaml:"host"`
	Catalog  CatalogConfig `yaml:"catalog"`
	LogLevel string        `yaml:"log_level"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// AllowedOrigins is sent verbatim as Access-Control-Allow-Origin
	AllowedOrigins string `yaml:"allowed_origins"`
	AllowedMethods string `yaml:"allowed_methods"`
	AllowedHeaders string `yaml:"allowed_headers"`
}

// MongoConfig configures result and receipt persistence. An empty URI
// keeps everything in memory.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// RedisConfig configures the session store and leaderboard. An empty URI
// keeps them in memory.
type RedisConfig struct {
	URI        string        `yaml:"uri"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// PaymentConfig describes the transfer that unlocks a result. With no
// RPCURL every transaction hash is accepted.
type PaymentConfig struct {
	RPCURL    string `yaml:"rpc_url"`
	Receiver  string `yaml:"receiver"`
	AmountETH string `yaml:"amount_eth"`
	ChainID   int64  `yaml:"chain_id"`
	// ConfirmTimeout bounds how long a pending transaction is polled
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
}

// HostConfig points at the Mini App host that receives the ready signal
type HostConfig struct {
	ReadyURL string `yaml:"ready_url"`
	AppName  string `yaml:"app_name"`
}

type CatalogConfig struct {
	// Source is "embedded" or "mongo"
	Source string `yaml:"source"`
}

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// DefaultConfig returns a Config suitable for local development
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  "*",
			AllowedMethods:  "GET, POST, PUT, DELETE, OPTIONS",
			AllowedHeaders:  "Content-Type, Authorization",
		},
		Mongo: MongoConfig{
			Database: "blockiq",
		},
		Redis: RedisConfig{
			SessionTTL: 2 * time.Hour,
		},
		Auth: AuthConfig{
			JWTSecret: "blockiq-dev-secret-change-in-production",
			TokenTTL:  24 * time.Hour,
		},
		Payment: PaymentConfig{
			Receiver:       "0xd1c9BD2a14b00C99803B5Ded4571814D227566C7",
			AmountETH:      "0.0001",
			ChainID:        8453,
			ConfirmTimeout: 30 * time.Second,
		},
		Host: HostConfig{
			AppName: "blockiq",
		},
		Catalog: CatalogConfig{
			Source: CatalogEmbedded,
		},
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads path when it is non-empty, applies environment overrides and
// validates the result
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		var err error
		if config, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from environment variables
func (c *Config) ApplyEnv() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.AllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.AllowedMethods = getEnv("CORS_ALLOWED_METHODS", c.Server.AllowedMethods)
	c.Server.AllowedHeaders = getEnv("CORS_ALLOWED_HEADERS", c.Server.AllowedHeaders)
	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DB", c.Mongo.Database)
	c.Redis.URI = getEnv("REDIS_URI", c.Redis.URI)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Payment.RPCURL = getEnv("PAYMENT_RPC_URL", c.Payment.RPCURL)
	c.Payment.Receiver = getEnv("PAYMENT_RECEIVER", c.Payment.Receiver)
	c.Payment.AmountETH = getEnv("PAYMENT_AMOUNT_ETH", c.Payment.AmountETH)
	c.Host.ReadyURL = getEnv("HOST_READY_URL", c.Host.ReadyURL)
	c.Catalog.Source = getEnv("CATALOG_SOURCE", c.Catalog.Source)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("PAYMENT_CHAIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PAYMENT_CHAIN_ID: %w", err)
		}
		c.Payment.ChainID = id
	}
	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Mongo.URI != "" && c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo.database is required when mongo.uri is set"))
	}
	if c.Redis.URI != "" {
		if _, err := c.Redis.Options(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if !addressPattern.MatchString(c.Payment.Receiver) {
		errs = append(errs, fmt.Errorf("payment.receiver %q is not a hex address", c.Payment.Receiver))
	}
	if _, err := c.Payment.AmountWei(); err != nil {
		errs = append(errs, err)
	}
	if c.Payment.ChainID <= 0 {
		errs = append(errs, errors.New("payment.chain_id must be positive"))
	}
	switch c.Catalog.Source {
	case CatalogEmbedded:
	case CatalogMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("catalog.source mongo requires mongo.uri"))
		}
	default:
		errs = append(errs, fmt.Errorf("catalog.source must be %q or %q", CatalogEmbedded, CatalogMongo))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	return errors.Join(errs...)
}

// AmountWei converts the configured ETH amount into wei. Amounts finer
// than one wei or not above zero are rejected.
func (p PaymentConfig) AmountWei() (decimal.Decimal, error) {
	eth, err := decimal.NewFromString(strings.TrimSpace(p.AmountETH))
	if err != nil {
		return decimal.Zero, fmt.Errorf("payment.amount_eth %q: %w", p.AmountETH, err)
	}
	wei := eth.Shift(18)
	if !wei.IsInteger() {
		return decimal.Zero, fmt.Errorf("payment.amount_eth %q has more than 18 decimals", p.AmountETH)
	}
	if !wei.IsPositive() {
		return decimal.Zero, fmt.Errorf("payment.amount_eth must be positive")
	}
	return wei, nil
}

// Options parses the URI into client options. A bare host:port is taken
// as a plain redis:// address.
func (r RedisConfig) Options() (*redis.Options, error) {
	uri := r.URI
	if !strings.Contains(uri, "://") {
		uri = "redis://" + uri
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("redis.uri: %w", err)
	}
	return opts, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
