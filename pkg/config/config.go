// Package config loads the bridge daemon configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/omnibridge/asset-bridge/pkg/asset"
)

// Config represents the bridge daemon configuration
type Config struct {
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Transport  TransportConfig  `mapstructure:"transport"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Shutdown   ShutdownConfig   `mapstructure:"shutdown"`
}

// LedgerConfig identifies the ledger this daemon serves and its bridge endpoint
type LedgerConfig struct {
	ID                string `mapstructure:"id"`
	EndpointIdentity  string `mapstructure:"endpoint_identity"`
	Admin             string `mapstructure:"admin"`
	InitialFeeBalance string `mapstructure:"initial_fee_balance"`
	PeersFile         string `mapstructure:"peers_file"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig contains database connection settings. An empty host selects
// the in-memory event store.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// TransportConfig tunes the in-process message router
type TransportConfig struct {
	QueueSize     int                  `mapstructure:"queue_size"`
	Duplicates    int                  `mapstructure:"duplicates"`
	DeliveryDelay time.Duration        `mapstructure:"delivery_delay"`
	Fees          map[string]FeeConfig `mapstructure:"fees"`
}

// FeeConfig is the fee schedule for one destination ledger. Amounts are
// decimal strings.
type FeeConfig struct {
	Base    string `mapstructure:"base"`
	PerByte string `mapstructure:"per_byte"`
}

// AuthConfig contains admin API authentication settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
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

// ShutdownConfig contains graceful shutdown settings
type ShutdownConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
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

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)

	// Database defaults
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "asset_bridge")

	// Transport defaults
	viper.SetDefault("transport.queue_size", 256)
	viper.SetDefault("transport.duplicates", 0)
	viper.SetDefault("transport.delivery_delay", "0s")

	// Ledger defaults
	viper.SetDefault("ledger.initial_fee_balance", "0")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_port", 9090)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")

	// Shutdown defaults
	viper.SetDefault("shutdown.timeout", "30s")
}

func validate(config *Config) error {
	if config.Ledger.ID == "" {
		return fmt.Errorf("ledger.id is required")
	}
	if !common.IsHexAddress(config.Ledger.EndpointIdentity) {
		return fmt.Errorf("ledger.endpoint_identity must be a hex address")
	}
	if !common.IsHexAddress(config.Ledger.Admin) {
		return fmt.Errorf("ledger.admin must be a hex address")
	}
	if _, err := decimal.NewFromString(config.Ledger.InitialFeeBalance); err != nil {
		return fmt.Errorf("ledger.initial_fee_balance must be a decimal: %w", err)
	}
	for ledger, fee := range config.Transport.Fees {
		if _, err := decimal.NewFromString(fee.Base); err != nil {
			return fmt.Errorf("transport.fees.%s.base must be a decimal: %w", ledger, err)
		}
		if _, err := decimal.NewFromString(fee.PerByte); err != nil {
			return fmt.Errorf("transport.fees.%s.per_byte must be a decimal: %w", ledger, err)
		}
	}
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}

// PeerEntry is one bootstrap peer in the peers file
type PeerEntry struct {
	Ledger   string `yaml:"ledger"`
	Identity string `yaml:"identity"`
}

type peersFile struct {
	Peers []PeerEntry `yaml:"peers"`
}

// LoadPeers reads the peer bootstrap file, mapping remote ledger ids to their
// trusted endpoint identities.
func LoadPeers(path string) (map[asset.LedgerID]common.Address, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read peers file: %w", err)
	}

	var file peersFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse peers file: %w", err)
	}

	peers := make(map[asset.LedgerID]common.Address, len(file.Peers))
	for _, entry := range file.Peers {
		if entry.Ledger == "" {
			return nil, fmt.Errorf("peers file entry missing ledger id")
		}
		if !common.IsHexAddress(entry.Identity) {
			return nil, fmt.Errorf("peer %s: identity must be a hex address", entry.Ledger)
		}
		peers[asset.LedgerID(entry.Ledger)] = common.HexToAddress(entry.Identity)
	}
	return peers, nil
}
