// Package config provides configuration loading and validation.
package config

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Store     StoreConfig     `mapstructure:"store"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// PoolConfig describes one pool the monitor reads every cycle.
type PoolConfig struct {
	Label     string `mapstructure:"label"`
	DexKind   string `mapstructure:"dex_kind"` // v2_like, v3_like, lb_like
	Address   string `mapstructure:"address"`
	Token0    string `mapstructure:"token0"`
	Token1    string `mapstructure:"token1"`
	Decimals0 uint8  `mapstructure:"decimals0"`
	Decimals1 uint8  `mapstructure:"decimals1"`
	FeeBps    uint32 `mapstructure:"fee_bps"`
	// FeeTier is the DEX's own fee-tier identifier (Uniswap V3's uint24,
	// e.g. 500/3000/10000), kept distinct from FeeBps because some DEXes
	// encode fee tiers that don't map 1:1 onto basis points.
	FeeTier uint32 `mapstructure:"fee_tier"`
	Router  string `mapstructure:"router"`
}

// AddressHex parses Address as a common.Address.
func (p PoolConfig) AddressHex() common.Address { return common.HexToAddress(p.Address) }

// Token0Hex parses Token0 as a common.Address.
func (p PoolConfig) Token0Hex() common.Address { return common.HexToAddress(p.Token0) }

// Token1Hex parses Token1 as a common.Address.
func (p PoolConfig) Token1Hex() common.Address { return common.HexToAddress(p.Token1) }

// TokenConfig registers a token's symbol and decimals for reporting and
// cost-normalization purposes.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
}

// AddressHex parses Address as a common.Address.
func (t TokenConfig) AddressHex() common.Address { return common.HexToAddress(t.Address) }

// FlashLoanProviderConfig identifies a flash-loan source available on this
// chain, in preference order.
type FlashLoanProviderConfig struct {
	Name    string `mapstructure:"name"` // aave_v3, balancer
	Address string `mapstructure:"address"`
	FeeBps  uint32 `mapstructure:"fee_bps"`
}

// AddressHex parses Address as a common.Address.
func (f FlashLoanProviderConfig) AddressHex() common.Address { return common.HexToAddress(f.Address) }

// ChainConfig holds everything specific to the chain this instance trades
// on: connection, executor contract, flash-loan sources, token registry and
// pool set, and which gas-cost model applies.
type ChainConfig struct {
	Name           string `mapstructure:"name"`
	ChainID        uint64 `mapstructure:"chain_id"`
	WebSocketURL   string `mapstructure:"websocket_url"`
	HTTPURL        string `mapstructure:"http_url"`
	MaxReconnects  int    `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`

	ExecutorAddress string `mapstructure:"executor_address"`

	// GasModel selects the cost-decomposition strategy: "arbitrum" calls
	// the node's gasEstimateComponents precompile for an L1/L2 split,
	// "generic" treats gas_price * gas_used as the whole cost.
	GasModel              string `mapstructure:"gas_model"`
	ArbGasInfoPrecompile  string `mapstructure:"arb_gas_info_precompile"`
	MaxGasPriceWei        string `mapstructure:"max_gas_price_wei"`

	FlashLoanProviders []FlashLoanProviderConfig `mapstructure:"flash_loan_providers"`
	Tokens             []TokenConfig             `mapstructure:"tokens"`
	Pools              []PoolConfig              `mapstructure:"pools"`
}

// ExecutorAddressHex parses ExecutorAddress as a common.Address.
func (c *ChainConfig) ExecutorAddressHex() common.Address {
	return common.HexToAddress(c.ExecutorAddress)
}

// ArbGasInfoPrecompileHex parses ArbGasInfoPrecompile as a common.Address.
func (c *ChainConfig) ArbGasInfoPrecompileHex() common.Address {
	return common.HexToAddress(c.ArbGasInfoPrecompile)
}

// MaxGasPriceWeiBig parses MaxGasPriceWei as a *big.Int, defaulting to nil
// (no clamp) when unset.
func (c *ChainConfig) MaxGasPriceWeiBig() *big.Int {
	if c.MaxGasPriceWei == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(c.MaxGasPriceWei, 10)
	if !ok {
		return nil
	}
	return v
}

// MonitorConfig tunes the pool-polling cadence.
type MonitorConfig struct {
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	PerPoolTimeout       time.Duration `mapstructure:"per_pool_timeout"`
	MaxRetries           int           `mapstructure:"max_retries"`
	RPCRequestsPerMinute int           `mapstructure:"rpc_requests_per_minute"`
	MaxSnapshotAge       time.Duration `mapstructure:"max_snapshot_age"`
}

// DetectorConfig tunes opportunity detection, sizing, and profit gating.
type DetectorConfig struct {
	DeltaThresholdBps    uint32  `mapstructure:"delta_threshold_bps"`
	MinNetProfitWei      string  `mapstructure:"min_net_profit_wei"`
	RiskBufferBps        uint32  `mapstructure:"risk_buffer_bps"`
	AdversarialMoveBps   uint32  `mapstructure:"adversarial_move_bps"`
	FeeBufferFactor      float64 `mapstructure:"fee_buffer_factor"`
	RiskMultiplier       float64 `mapstructure:"risk_multiplier"`
	SizerXMinWei         string  `mapstructure:"sizer_x_min_wei"`
	SizerXMaxWei         string  `mapstructure:"sizer_x_max_wei"`
	SizerMaxIterations   int     `mapstructure:"sizer_max_iterations"`
	SizerToleranceBps    uint32  `mapstructure:"sizer_tolerance_bps"`
	SizerTimeoutMs       int     `mapstructure:"sizer_timeout_ms"`
	DefaultInputWei      string  `mapstructure:"default_input_wei"`
	MaxTradeSizeWei      string  `mapstructure:"max_trade_size_wei"`
	MinTradeSizeWei      string  `mapstructure:"min_trade_size_wei"`
}

// SizerXMinWeiBig parses SizerXMinWei as a *big.Int.
func (d *DetectorConfig) SizerXMinWeiBig() *big.Int {
	return parseBigOrZero(d.SizerXMinWei)
}

// SizerXMaxWeiBig parses SizerXMaxWei as a *big.Int.
func (d *DetectorConfig) SizerXMaxWeiBig() *big.Int {
	return parseBigOrZero(d.SizerXMaxWei)
}

// DefaultInputWeiBig parses DefaultInputWei as a *big.Int.
func (d *DetectorConfig) DefaultInputWeiBig() *big.Int {
	return parseBigOrZero(d.DefaultInputWei)
}

// MinNetProfitWeiBig parses MinNetProfitWei as a *big.Int.
func (d *DetectorConfig) MinNetProfitWeiBig() *big.Int {
	return parseBigOrZero(d.MinNetProfitWei)
}

// MaxTradeSizeWeiBig parses MaxTradeSizeWei as a *big.Int.
func (d *DetectorConfig) MaxTradeSizeWeiBig() *big.Int {
	return parseBigOrZero(d.MaxTradeSizeWei)
}

// MinTradeSizeWeiBig parses MinTradeSizeWei as a *big.Int.
func (d *DetectorConfig) MinTradeSizeWeiBig() *big.Int {
	return parseBigOrZero(d.MinTradeSizeWei)
}

func parseBigOrZero(s string) *big.Int {
	if s == "" {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// firstNonEmpty returns the first non-empty string, or "" if all are empty.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ExecutionConfig tunes transaction planning, submission, and the
// nonce/pending ledger.
type ExecutionConfig struct {
	MEVMode                  string        `mapstructure:"mev_mode"` // public, private
	PrivateRelayURL          string        `mapstructure:"private_relay_url"`
	SimulateBeforeSubmit     bool          `mapstructure:"simulate_before_submit"`
	ConfirmationTimeout      time.Duration `mapstructure:"confirmation_timeout"`
	MaxConsecutiveFailures   int           `mapstructure:"max_consecutive_failures"`
	MaxConcurrentSubmissions int           `mapstructure:"max_concurrent_submissions"`

	// DryRun submits nothing; the engine still simulates and gates, ending
	// every candidate in a DryRun result.
	DryRun bool `mapstructure:"dry_run"`

	// EIP-1559 gas planning.
	PriorityFeeWei    string  `mapstructure:"priority_fee_wei"`
	GasLimitMultiplier float64 `mapstructure:"gas_limit_multiplier"`

	// Staleness gate.
	MaxBlockLag    uint64 `mapstructure:"max_block_lag"`
	MaxStalenessMs int64  `mapstructure:"max_staleness_ms"`

	// Stuck-transaction recovery.
	SpeedUpMultiplier float64 `mapstructure:"speed_up_multiplier"`

	NonceLedgerPath string `mapstructure:"nonce_ledger_path"`

	// WalletPrivateKey signs every submitted transaction. It is read from
	// the environment only (PRIVATE_KEY), never written to or read from a
	// config file, and never logged.
	WalletPrivateKey string `mapstructure:"-"`
}

// PriorityFeeWeiBig parses PriorityFeeWei as a *big.Int.
func (e *ExecutionConfig) PriorityFeeWeiBig() *big.Int {
	return parseBigOrZero(e.PriorityFeeWei)
}

// WalletPrivateKeyECDSA parses WalletPrivateKey (a hex string, with or
// without a 0x prefix) into a signing key.
func (e *ExecutionConfig) WalletPrivateKeyECDSA() (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(e.WalletPrivateKey, "0x"))
}

// StoreConfig locates the trade outcome log.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		millisAwareDurationHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The signing key is read directly from the environment, never bound
	// through viper, so it can never round-trip into a config file or a
	// dumped viper settings map.
	cfg.Execution.WalletPrivateKey = firstNonEmpty(os.Getenv("PRIVATE_KEY"), os.Getenv("ARB_PRIVATE_KEY"))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// millisAwareDurationHook lets a time.Duration field bind from a bare
// integer string (the "_MS" env vars spec §6 names, e.g. POLL_INTERVAL_MS
// set to "3000") in addition to a Go duration literal like "3s". Integers
// are taken as milliseconds; anything else falls through to the standard
// duration parser.
func millisAwareDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	str, ok := data.(string)
	if !ok {
		return data, nil
	}
	if ms, err := strconv.ParseInt(str, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return data, nil
}

func bindEnvVars(v *viper.Viper) {
	// App. Viper checks bound names in the order given and takes the first
	// one set, so spec §6's bare names are listed ahead of the ARB_-prefixed
	// equivalents to make the spec's names take precedence when both are set.
	v.BindEnv("app.name", "SERVICE_NAME", "ARB_APP_NAME")
	v.BindEnv("app.environment", "ENVIRONMENT", "ARB_ENVIRONMENT")
	v.BindEnv("app.log_level", "LOG_LEVEL", "ARB_LOG_LEVEL")

	// Chain. RPC_URL is spec §6's single endpoint name; it binds to the
	// HTTP JSON-RPC URL, since that's what every component but the head
	// tracker's block subscription actually dials.
	v.BindEnv("chain.name", "ARB_CHAIN_NAME")
	v.BindEnv("chain.chain_id", "ARB_CHAIN_ID")
	v.BindEnv("chain.websocket_url", "ARB_CHAIN_WS_URL", "ETH_WS_URL")
	v.BindEnv("chain.http_url", "RPC_URL", "ARB_CHAIN_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("chain.executor_address", "ARB_EXECUTOR_ADDRESS")
	v.BindEnv("chain.gas_model", "ARB_GAS_MODEL")
	// max_gas_price_wei, env-named per spec §6 (value is still wei, not
	// gwei; GAS_PRICE_GWEI is the spec's literal env var name).
	v.BindEnv("chain.max_gas_price_wei", "GAS_PRICE_GWEI", "ARB_MAX_GAS_PRICE_WEI")

	// Monitor. poll_interval, env-named per spec §6 (accepts "3000" as
	// milliseconds or "3s" as a duration literal; see millisAwareDurationHook).
	v.BindEnv("monitor.poll_interval", "POLL_INTERVAL_MS", "ARB_POLL_INTERVAL")
	v.BindEnv("monitor.max_retries", "ARB_MONITOR_MAX_RETRIES")

	// Detector
	v.BindEnv("detector.min_net_profit_wei", "MIN_PROFIT_THRESHOLD", "ARB_MIN_NET_PROFIT_WEI")
	v.BindEnv("detector.risk_buffer_bps", "ARB_RISK_BUFFER_BPS")

	// Execution
	v.BindEnv("execution.mev_mode", "ARB_MEV_MODE")
	v.BindEnv("execution.private_relay_url", "ARB_PRIVATE_RELAY_URL")
	v.BindEnv("execution.dry_run", "DRY_RUN", "ARB_DRY_RUN")
	v.BindEnv("execution.max_staleness_ms", "MAX_STALENESS_MS", "ARB_MAX_STALENESS_MS")
	v.BindEnv("execution.max_block_lag", "MAX_BLOCK_LAG", "ARB_MAX_BLOCK_LAG")

	// Store
	v.BindEnv("store.path", "ARB_STORE_PATH")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "flashbot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Chain defaults (Arbitrum One)
	v.SetDefault("chain.name", "arbitrum")
	v.SetDefault("chain.chain_id", 42161)
	v.SetDefault("chain.max_reconnects", 0) // infinite
	v.SetDefault("chain.initial_backoff", "1s")
	v.SetDefault("chain.max_backoff", "30s")
	v.SetDefault("chain.gas_model", "arbitrum")
	v.SetDefault("chain.arb_gas_info_precompile", "0x000000000000000000000000000000000000C8")

	// Monitor defaults
	v.SetDefault("monitor.poll_interval", "3s")
	v.SetDefault("monitor.per_pool_timeout", "5s")
	v.SetDefault("monitor.max_retries", 3)
	v.SetDefault("monitor.rpc_requests_per_minute", 600)
	v.SetDefault("monitor.max_snapshot_age", "10s")

	// Detector defaults
	v.SetDefault("detector.delta_threshold_bps", 50)
	v.SetDefault("detector.min_net_profit_wei", "0")
	v.SetDefault("detector.risk_buffer_bps", 50) // 0.5%
	v.SetDefault("detector.adversarial_move_bps", 10)
	v.SetDefault("detector.fee_buffer_factor", 0.5)
	v.SetDefault("detector.risk_multiplier", 2.0)
	v.SetDefault("detector.sizer_x_min_wei", "10000000000000000")     // 0.01 base-token units (18d)
	v.SetDefault("detector.sizer_x_max_wei", "100000000000000000000") // 100 base-token units (18d)
	v.SetDefault("detector.sizer_max_iterations", 20)
	v.SetDefault("detector.sizer_tolerance_bps", 1)
	v.SetDefault("detector.sizer_timeout_ms", 100)
	v.SetDefault("detector.default_input_wei", "1000000000000000000") // 1 base-token unit (18d)

	// Execution defaults
	v.SetDefault("execution.mev_mode", "public")
	v.SetDefault("execution.simulate_before_submit", true)
	v.SetDefault("execution.confirmation_timeout", "120s")
	v.SetDefault("execution.max_consecutive_failures", 5)
	v.SetDefault("execution.max_concurrent_submissions", 1)
	v.SetDefault("execution.dry_run", true)
	v.SetDefault("execution.priority_fee_wei", "100000000") // 0.1 gwei
	v.SetDefault("execution.gas_limit_multiplier", 1.25)
	v.SetDefault("execution.max_block_lag", 3)
	v.SetDefault("execution.max_staleness_ms", 2000)
	v.SetDefault("execution.speed_up_multiplier", 1.125)
	v.SetDefault("execution.nonce_ledger_path", ".data/nonce.jsonl")

	// Store defaults
	v.SetDefault("store.path", ".data/trades.jsonl")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flashbot")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chain.WebSocketURL == "" {
		return fmt.Errorf("chain.websocket_url is required")
	}
	if c.Chain.HTTPURL == "" {
		return fmt.Errorf("chain.http_url is required")
	}
	if !common.IsHexAddress(c.Chain.ExecutorAddress) {
		return fmt.Errorf("invalid chain.executor_address: %s", c.Chain.ExecutorAddress)
	}
	if c.Chain.GasModel != "arbitrum" && c.Chain.GasModel != "generic" {
		return fmt.Errorf("chain.gas_model must be \"arbitrum\" or \"generic\", got %q", c.Chain.GasModel)
	}
	if len(c.Chain.Pools) == 0 {
		return fmt.Errorf("chain.pools cannot be empty")
	}
	for _, p := range c.Chain.Pools {
		if !common.IsHexAddress(p.Address) {
			return fmt.Errorf("invalid pool address for %q: %s", p.Label, p.Address)
		}
	}
	if len(c.Chain.FlashLoanProviders) == 0 {
		return fmt.Errorf("chain.flash_loan_providers cannot be empty")
	}
	if c.Execution.MEVMode != "public" && c.Execution.MEVMode != "private" {
		return fmt.Errorf("execution.mev_mode must be \"public\" or \"private\", got %q", c.Execution.MEVMode)
	}
	if c.Execution.MEVMode == "private" && c.Execution.PrivateRelayURL == "" {
		return fmt.Errorf("execution.private_relay_url is required when execution.mev_mode is \"private\"")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	return nil
}
