// Package config loads the bridge node configuration: server, database,
// logging, and the genesis state of the bridge itself (chain id, committee,
// tokens, route limits).
package config

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/chainsafe/bridge-core/pkg/bridge"
)

// Config represents the bridge node configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Bridge     BridgeConfig     `mapstructure:"bridge" validate:"required"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings. The database is an
// optional durable mirror of the in-memory state; leave Host empty to run
// without one.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// Enabled reports whether a database mirror is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// DSN returns a PostgreSQL connection URL
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// BridgeConfig contains the genesis state of the bridge
type BridgeConfig struct {
	ChainID         uint8                   `mapstructure:"chain_id" validate:"lte=12"`
	QuorumThreshold uint64                  `mapstructure:"quorum_threshold" default:"5001"`
	LimitWindow     time.Duration           `mapstructure:"limit_window" default:"24h"`
	Committee       []CommitteeMemberConfig `mapstructure:"committee" validate:"required,min=1,dive"`
	Tokens          []TokenConfig           `mapstructure:"tokens" validate:"dive"`
	RouteLimits     []RouteLimitConfig      `mapstructure:"route_limits" validate:"dive"`
}

// CommitteeMemberConfig describes one committee member at genesis
type CommitteeMemberConfig struct {
	Address     string `mapstructure:"address" validate:"required,eth_addr"`
	PublicKey   string `mapstructure:"public_key" validate:"required,hexadecimal"`
	Stake       uint64 `mapstructure:"stake" validate:"required,gt=0"`
	MetadataURL string `mapstructure:"metadata_url" validate:"omitempty,url"`
}

// TokenConfig describes one supported token at genesis
type TokenConfig struct {
	ID             uint8  `mapstructure:"id"`
	Symbol         string `mapstructure:"symbol" validate:"required"`
	Decimals       uint8  `mapstructure:"decimals" validate:"lte=18"`
	Price          uint64 `mapstructure:"price" validate:"required,gt=0"`
	Native         bool   `mapstructure:"native"`
	TypeDescriptor string `mapstructure:"type_descriptor"`
}

// RouteLimitConfig describes one route cap at genesis
type RouteLimitConfig struct {
	SendingChain   uint8  `mapstructure:"sending_chain" validate:"lte=12"`
	ReceivingChain uint8  `mapstructure:"receiving_chain" validate:"lte=12"`
	Limit          uint64 `mapstructure:"limit" validate:"required,gt=0"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := defaults.Set(&config); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "bridge")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_port", 9090)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

// Genesis converts the bridge section into the core's genesis state.
func (c *BridgeConfig) Genesis() bridge.Genesis {
	genesis := bridge.Genesis{
		ChainID:         c.ChainID,
		QuorumThreshold: c.QuorumThreshold,
		LimitWindow:     c.LimitWindow,
	}
	for _, m := range c.Committee {
		genesis.Members = append(genesis.Members, bridge.GenesisMember{
			Address:     m.Address,
			PublicKey:   m.PublicKey,
			Stake:       m.Stake,
			MetadataURL: m.MetadataURL,
		})
	}
	for _, t := range c.Tokens {
		genesis.Tokens = append(genesis.Tokens, bridge.GenesisToken{
			ID:             t.ID,
			Symbol:         t.Symbol,
			Decimals:       t.Decimals,
			Price:          t.Price,
			Native:         t.Native,
			TypeDescriptor: t.TypeDescriptor,
		})
	}
	for _, r := range c.RouteLimits {
		genesis.RouteLimits = append(genesis.RouteLimits, bridge.GenesisRouteLimit{
			SendingChain:   r.SendingChain,
			ReceivingChain: r.ReceivingChain,
			Limit:          r.Limit,
		})
	}
	return genesis
}
