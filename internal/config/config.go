package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Database paths
	RegistryPath string `mapstructure:"registry-path"`
	SessionPath  string `mapstructure:"session-path"`
	FSMDBPath    string `mapstructure:"fsm-db-path"`

	// Image store (S3) configuration
	S3Bucket string `mapstructure:"s3-bucket"`
	S3Region string `mapstructure:"s3-region"`

	// Service endpoints
	MetadataURL string `mapstructure:"metadata-url"`
	LedgerURL   string `mapstructure:"ledger-url"`

	// Ledger identity
	ContractAddress  string `mapstructure:"contract-address"`
	AssemblerAddress string `mapstructure:"assembler-address"`

	// Assembly rules. The ledger enforces the minimum authoritatively;
	// this value only gates the client side to avoid a wasted round trip.
	MinComponents int `mapstructure:"min-components"`

	// Timeouts for the bounded remote calls. The mint call is
	// deliberately unbounded.
	UploadTimeout   time.Duration `mapstructure:"upload-timeout"`
	MetadataTimeout time.Duration `mapstructure:"metadata-timeout"`

	// FSM configuration
	FSMMaxRetries int `mapstructure:"fsm-max-retries"`
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("registry-path", ".artifacts/components.db")
	viper.SetDefault("session-path", ".artifacts/session")
	viper.SetDefault("fsm-db-path", ".artifacts/fsm.db")
	viper.SetDefault("s3-bucket", "luxtrace-assembly-docs")
	viper.SetDefault("s3-region", "ap-southeast-1")
	viper.SetDefault("metadata-url", "http://localhost:5000/api")
	viper.SetDefault("ledger-url", "http://localhost:8545/bridge")
	viper.SetDefault("contract-address", "")
	viper.SetDefault("assembler-address", "")
	viper.SetDefault("min-components", 3)
	viper.SetDefault("upload-timeout", 30*time.Second)
	viper.SetDefault("metadata-timeout", 30*time.Second)
	viper.SetDefault("fsm-max-retries", 5)

	// Environment variables (will be LUXTRACE_REGISTRY_PATH, etc.)
	viper.SetEnvPrefix("LUXTRACE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.luxtrace")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.RegistryPath == "" {
		return fmt.Errorf("registry-path cannot be empty")
	}
	if c.SessionPath == "" {
		return fmt.Errorf("session-path cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	if c.S3Bucket == "" {
		return fmt.Errorf("s3-bucket cannot be empty")
	}
	if c.MetadataURL == "" {
		return fmt.Errorf("metadata-url cannot be empty")
	}
	if c.LedgerURL == "" {
		return fmt.Errorf("ledger-url cannot be empty")
	}
	if c.MinComponents < 1 {
		return fmt.Errorf("min-components must be at least 1")
	}
	if c.UploadTimeout <= 0 {
		return fmt.Errorf("upload-timeout must be positive")
	}
	if c.MetadataTimeout <= 0 {
		return fmt.Errorf("metadata-timeout must be positive")
	}
	if c.FSMMaxRetries < 0 {
		return fmt.Errorf("fsm-max-retries must be non-negative")
	}
	return nil
}
