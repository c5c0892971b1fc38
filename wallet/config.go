package wallet

import (
	"github.com/AlexZinkM/agent-wallet/internal/client"
	"github.com/AlexZinkM/agent-wallet/internal/crypto"
	"github.com/AlexZinkM/agent-wallet/internal/model"
	"github.com/AlexZinkM/agent-wallet/internal/storage"
	"github.com/AlexZinkM/agent-wallet/internal/txn"
)

// DefaultMaxTransactionsPerMinute bounds Perform calls per wallet.
const DefaultMaxTransactionsPerMinute = 10

// Config is everything a wallet needs besides its passphrase.
type Config struct {
	Storage storage.Settings
	Ledger  client.Config
	// Client, when set, is used instead of dialing Ledger. The wallet does
	// not close a client it did not create.
	Client *client.LedgerClient

	Algorithm     crypto.Algorithm
	KDFIterations uint32

	Pipeline txn.Options

	Permission        model.PermissionLevel
	DailyLimit        uint64
	PerOperationLimit uint64

	// MaxTransactionsPerMinute of zero or less disables the limiter.
	MaxTransactionsPerMinute int

	Description string
}

// DefaultConfig is devnet, AES-256-GCM, Basic permission and the default
// budget.
func DefaultConfig() Config {
	return Config{
		Storage:                  storage.DefaultSettings(),
		Ledger:                   client.DefaultConfig(),
		Algorithm:                crypto.AlgorithmAES256GCM,
		KDFIterations:            crypto.DefaultIterations,
		Pipeline:                 txn.DefaultOptions(),
		Permission:               model.PermissionBasic,
		DailyLimit:               model.DefaultDailyLimit,
		PerOperationLimit:        model.DefaultPerOperationLimit,
		MaxTransactionsPerMinute: DefaultMaxTransactionsPerMinute,
	}
}

func (c Config) spending() (daily, perOperation uint64) {
	daily, perOperation = c.DailyLimit, c.PerOperationLimit
	if daily == 0 {
		daily = model.DefaultDailyLimit
	}
	if perOperation == 0 {
		perOperation = model.DefaultPerOperationLimit
	}
	return daily, perOperation
}
