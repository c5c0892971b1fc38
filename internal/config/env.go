package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/AlexZinkM/agent-wallet/internal/model"
)

// Prefix of every environment variable, e.g. AGENT_WALLET_RPC_URL.
const Prefix = "AGENT_WALLET"

// Config contains all configuration parameters for the application.
// Passphrases are never part of it; they are prompted at runtime.
type Config struct {
	// Storage
	StoragePath       string `envconfig:"STORAGE_PATH"`
	BackupPath        string `envconfig:"BACKUP_PATH"`
	MaxBackupVersions int    `envconfig:"MAX_BACKUP_VERSIONS" default:"10"`

	// Encryption
	Algorithm     string `envconfig:"ALGORITHM" default:"aes-256-gcm"`
	KDFIterations uint32 `envconfig:"KDF_ITERATIONS" default:"100000"`

	// Ledger
	RPCURL         string        `envconfig:"RPC_URL" default:"https://api.devnet.solana.com"`
	EndpointsFile  string        `envconfig:"ENDPOINTS_FILE"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	Commitment     string        `envconfig:"COMMITMENT" default:"confirmed"`
	MaxConnections int           `envconfig:"MAX_CONNECTIONS" default:"10"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"3"`
	RetryDelay     time.Duration `envconfig:"RETRY_DELAY" default:"100ms"`

	// Policy
	Permission               model.PermissionLevel `envconfig:"PERMISSION" default:"basic"`
	DailyLimitSOL            string                `envconfig:"DAILY_LIMIT_SOL" default:"10"`
	PerOperationLimitSOL     string                `envconfig:"PER_OPERATION_LIMIT_SOL" default:"1"`
	MaxTransactionsPerMinute int                   `envconfig:"MAX_TRANSACTIONS_PER_MINUTE" default:"10"`

	// Transactions
	MaxTransactionSize int    `envconfig:"MAX_TRANSACTION_SIZE" default:"1232"`
	MaxSignatures      int    `envconfig:"MAX_SIGNATURES" default:"20"`
	PriorityFee        uint64 `envconfig:"PRIORITY_FEE_LAMPORTS" default:"0"`
	ComputeUnitLimit   uint32 `envconfig:"COMPUTE_UNIT_LIMIT" default:"200000"`
	ComputeUnitPrice   uint64 `envconfig:"COMPUTE_UNIT_PRICE" default:"0"`
	SkipPreflight      bool   `envconfig:"SKIP_PREFLIGHT" default:"false"`

	// HTTP server
	Port         string `envconfig:"PORT" default:"8080"`
	WalletName   string `envconfig:"WALLET_NAME" default:"default"`
	PriceFeed    bool   `envconfig:"PRICE_FEED" default:"true"`
	CoinGeckoURL string `envconfig:"COINGECKO_URL" default:"https://api.coingecko.com/api/v3"`

	// Logging
	LogLevel  string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string   `envconfig:"LOG_FORMAT" default:"json"`
	LogOutput []string `envconfig:"LOG_OUTPUT" default:"stdout"`
	AuditLog  string   `envconfig:"AUDIT_LOG"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads a .env file if present, then the environment, into the global
// configuration.
func Init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	loaded, err := Load()
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// Load reads the environment without touching the global instance.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process(Prefix, c); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects values the components would fail on later.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCURL) == "" && strings.TrimSpace(c.EndpointsFile) == "" {
		return errors.New("either RPC_URL or ENDPOINTS_FILE must be set")
	}
	if c.MaxTransactionsPerMinute < 0 {
		return errors.New("MAX_TRANSACTIONS_PER_MINUTE cannot be negative")
	}
	if _, _, err := c.limits(); err != nil {
		return err
	}
	switch c.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("unknown commitment %q", c.Commitment)
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetPort returns port from configuration
func GetPort() string {
	return Get().Port
}

// GetWalletName returns the wallet the server loads
func GetWalletName() string {
	return Get().WalletName
}

// PriceFeedEnabled reports whether balances are priced in USD
func PriceFeedEnabled() bool {
	return Get().PriceFeed
}
