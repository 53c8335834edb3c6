// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	AMM       AMMConfig       `mapstructure:"amm"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	API       APIConfig       `mapstructure:"api"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// SeedPool describes a pool created at startup when the ledger is empty.
// Amounts are raw token units in decimal notation.
type SeedPool struct {
	TokenA  string `mapstructure:"token_a"`
	TokenB  string `mapstructure:"token_b"`
	AmountA string `mapstructure:"amount_a"`
	AmountB string `mapstructure:"amount_b"`
}

// AMMConfig holds pool engine configuration.
type AMMConfig struct {
	DefaultFeeBps uint16     `mapstructure:"default_fee_bps"`
	VaultAddress  string     `mapstructure:"vault_address"`
	WrappedNative string     `mapstructure:"wrapped_native"`
	SnapshotPath  string     `mapstructure:"snapshot_path"`
	SeedPools     []SeedPool `mapstructure:"seed_pools"`
}

// VaultAddressHex returns the vault address as common.Address.
func (c *AMMConfig) VaultAddressHex() common.Address {
	return common.HexToAddress(c.VaultAddress)
}

// WrappedNativeHex returns the wrapped-native token as common.Address.
func (c *AMMConfig) WrappedNativeHex() common.Address {
	return common.HexToAddress(c.WrappedNative)
}

// ArbitrageConfig holds detection and execution configuration.
type ArbitrageConfig struct {
	MinGapBps            int64         `mapstructure:"min_gap_bps"`
	HighConfidenceBps    int64         `mapstructure:"high_confidence_bps"`
	ProbeAmount          string        `mapstructure:"probe_amount"`
	ReserveDivisor       uint64        `mapstructure:"reserve_divisor"`
	MinProfit            string        `mapstructure:"min_profit"`
	GasBase              uint64        `mapstructure:"gas_base"`
	GasCrossSurcharge    uint64        `mapstructure:"gas_cross_surcharge"`
	GasPrice             string        `mapstructure:"gas_price"`
	MaxExecutionsPerScan int           `mapstructure:"max_executions_per_scan"`
	ScanInterval         time.Duration `mapstructure:"scan_interval"`
	ScansPerMinute       int           `mapstructure:"scans_per_minute"`
	OperatorAddress      string        `mapstructure:"operator_address"`
	TreasuryAddress      string        `mapstructure:"treasury_address"`
	ExternalVenueAddress string        `mapstructure:"external_venue_address"`
}

// OperatorAddressHex returns the operator address as common.Address.
func (c *ArbitrageConfig) OperatorAddressHex() common.Address {
	return common.HexToAddress(c.OperatorAddress)
}

// TreasuryAddressHex returns the treasury address as common.Address.
func (c *ArbitrageConfig) TreasuryAddressHex() common.Address {
	return common.HexToAddress(c.TreasuryAddress)
}

// ExternalVenueAddressHex returns the external venue vault address.
func (c *ArbitrageConfig) ExternalVenueAddressHex() common.Address {
	return common.HexToAddress(c.ExternalVenueAddress)
}

// APIConfig holds the HTTP API configuration.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	HealthPort int    `mapstructure:"health_port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("DEX")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars and defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "DEX_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "DEX_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "DEX_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("amm.default_fee_bps", "DEX_AMM_FEE_BPS")
	v.BindEnv("amm.vault_address", "DEX_AMM_VAULT")
	v.BindEnv("amm.wrapped_native", "DEX_AMM_WRAPPED_NATIVE")
	v.BindEnv("amm.snapshot_path", "DEX_AMM_SNAPSHOT_PATH")

	v.BindEnv("arbitrage.min_gap_bps", "DEX_ARB_MIN_GAP_BPS")
	v.BindEnv("arbitrage.min_profit", "DEX_ARB_MIN_PROFIT")
	v.BindEnv("arbitrage.gas_price", "DEX_ARB_GAS_PRICE")
	v.BindEnv("arbitrage.operator_address", "DEX_ARB_OPERATOR")
	v.BindEnv("arbitrage.treasury_address", "DEX_ARB_TREASURY")

	v.BindEnv("api.listen_addr", "DEX_API_LISTEN_ADDR")

	v.BindEnv("telemetry.enabled", "DEX_TELEMETRY_ENABLED")
	v.BindEnv("telemetry.service_name", "DEX_TELEMETRY_SERVICE_NAME")
	v.BindEnv("telemetry.prometheus_port", "DEX_TELEMETRY_PROMETHEUS_PORT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dexcore")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("amm.default_fee_bps", 30) // 0.3%
	v.SetDefault("amm.vault_address", "0x00000000000000000000000000000000000D3c00")
	v.SetDefault("amm.wrapped_native", "0x000000000000000000000000000000000000Aa00")
	v.SetDefault("amm.snapshot_path", "dexcore.db")

	v.SetDefault("arbitrage.min_gap_bps", 100)          // 1%
	v.SetDefault("arbitrage.high_confidence_bps", 500)  // 5%
	v.SetDefault("arbitrage.probe_amount", "1000000000000000000")
	v.SetDefault("arbitrage.reserve_divisor", 20) // trade 5% of reserve
	v.SetDefault("arbitrage.min_profit", "0")
	v.SetDefault("arbitrage.gas_base", 120000)
	v.SetDefault("arbitrage.gas_cross_surcharge", 80000)
	v.SetDefault("arbitrage.gas_price", "1")
	v.SetDefault("arbitrage.max_executions_per_scan", 2)
	v.SetDefault("arbitrage.scan_interval", "5s")
	v.SetDefault("arbitrage.scans_per_minute", 30)
	v.SetDefault("arbitrage.operator_address", "0x00000000000000000000000000000000000Ace00")
	v.SetDefault("arbitrage.treasury_address", "0x0000000000000000000000000000000000Fee000")
	v.SetDefault("arbitrage.external_venue_address", "0x00000000000000000000000000000000000E0700")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.health_port", 8081)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dexcore")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.AMM.DefaultFeeBps >= 10_000 {
		return fmt.Errorf("amm.default_fee_bps must be below 10000, got %d", c.AMM.DefaultFeeBps)
	}
	if !common.IsHexAddress(c.AMM.VaultAddress) {
		return fmt.Errorf("invalid amm.vault_address: %s", c.AMM.VaultAddress)
	}
	if !common.IsHexAddress(c.AMM.WrappedNative) {
		return fmt.Errorf("invalid amm.wrapped_native: %s", c.AMM.WrappedNative)
	}
	if !common.IsHexAddress(c.Arbitrage.OperatorAddress) {
		return fmt.Errorf("invalid arbitrage.operator_address: %s", c.Arbitrage.OperatorAddress)
	}
	if !common.IsHexAddress(c.Arbitrage.TreasuryAddress) {
		return fmt.Errorf("invalid arbitrage.treasury_address: %s", c.Arbitrage.TreasuryAddress)
	}
	if c.Arbitrage.MinGapBps <= 0 {
		return fmt.Errorf("arbitrage.min_gap_bps must be positive, got %d", c.Arbitrage.MinGapBps)
	}
	if c.Arbitrage.ReserveDivisor == 0 {
		return fmt.Errorf("arbitrage.reserve_divisor must be positive")
	}
	for i, p := range c.AMM.SeedPools {
		if !common.IsHexAddress(p.TokenA) || !common.IsHexAddress(p.TokenB) {
			return fmt.Errorf("invalid token address in amm.seed_pools[%d]", i)
		}
	}
	return nil
}
