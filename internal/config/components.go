package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/AlexZinkM/agent-wallet/internal/client"
	"github.com/AlexZinkM/agent-wallet/internal/common"
	"github.com/AlexZinkM/agent-wallet/internal/crypto"
	"github.com/AlexZinkM/agent-wallet/internal/storage"
	"github.com/AlexZinkM/agent-wallet/internal/txn"
	"github.com/AlexZinkM/agent-wallet/pkg/logger"
	"github.com/AlexZinkM/agent-wallet/wallet"
)

// EndpointsFile models the YAML endpoint list.
type EndpointsFile struct {
	Endpoints []client.Endpoint `yaml:"endpoints"`
}

// LoadEndpoints parses the YAML file listing RPC endpoints.
func LoadEndpoints(path string) ([]client.Endpoint, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoints file: %w", err)
	}
	var file EndpointsFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse endpoints file: %w", err)
	}
	if len(file.Endpoints) == 0 {
		return nil, fmt.Errorf("endpoints file %s lists no endpoints", path)
	}
	return file.Endpoints, nil
}

// Logger is the logger configuration.
func (c *Config) Logger() logger.Config {
	return logger.Config{
		Level:       c.LogLevel,
		Format:      c.LogFormat,
		OutputPaths: c.LogOutput,
		AuditPath:   c.AuditLog,
	}
}

// Storage is the wallet store configuration. Empty paths fall back to the
// store defaults.
func (c *Config) Storage() storage.Settings {
	return storage.Settings{
		Path:        c.StoragePath,
		BackupPath:  c.BackupPath,
		MaxVersions: c.MaxBackupVersions,
	}
}

// Ledger is the RPC client configuration. The endpoints file wins over
// RPC_URL when both are set.
func (c *Config) Ledger(reg prometheus.Registerer) (client.Config, error) {
	endpoints := []client.Endpoint{{URL: strings.TrimSpace(c.RPCURL), Priority: 1}}
	if strings.TrimSpace(c.EndpointsFile) != "" {
		var err error
		endpoints, err = LoadEndpoints(c.EndpointsFile)
		if err != nil {
			return client.Config{}, err
		}
	}
	return client.Config{
		Endpoints:      endpoints,
		Timeout:        c.RequestTimeout,
		Commitment:     rpc.CommitmentType(c.Commitment),
		MaxConnections: c.MaxConnections,
		MaxRetries:     c.MaxRetries,
		RetryDelay:     c.RetryDelay,
		Registerer:     reg,
	}, nil
}

// Pipeline is the transaction pipeline configuration.
func (c *Config) Pipeline() txn.Options {
	opts := txn.DefaultOptions()
	opts.PriorityFee = c.PriorityFee
	opts.ComputeUnitLimit = c.ComputeUnitLimit
	opts.ComputeUnitPrice = c.ComputeUnitPrice
	opts.AddComputeBudget = c.ComputeUnitPrice > 0
	opts.SkipPreflight = c.SkipPreflight
	opts.Commitment = rpc.CommitmentType(c.Commitment)
	opts.MaxTransactionSize = c.MaxTransactionSize
	opts.MaxSignatures = c.MaxSignatures
	return opts
}

// Wallet assembles the full wallet configuration.
func (c *Config) Wallet(reg prometheus.Registerer) (wallet.Config, error) {
	alg, err := crypto.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return wallet.Config{}, err
	}
	ledger, err := c.Ledger(reg)
	if err != nil {
		return wallet.Config{}, err
	}
	daily, perOp, err := c.limits()
	if err != nil {
		return wallet.Config{}, err
	}
	return wallet.Config{
		Storage:                  c.Storage(),
		Ledger:                   ledger,
		Algorithm:                alg,
		KDFIterations:            c.KDFIterations,
		Pipeline:                 c.Pipeline(),
		Permission:               c.Permission,
		DailyLimit:               daily,
		PerOperationLimit:        perOp,
		MaxTransactionsPerMinute: c.MaxTransactionsPerMinute,
	}, nil
}

func (c *Config) limits() (daily, perOperation uint64, err error) {
	daily, err = common.SOLToLamports(c.DailyLimitSOL)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid DAILY_LIMIT_SOL: %w", err)
	}
	perOperation, err = common.SOLToLamports(c.PerOperationLimitSOL)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid PER_OPERATION_LIMIT_SOL: %w", err)
	}
	if perOperation > daily {
		return 0, 0, fmt.Errorf("per-operation limit %s SOL exceeds daily limit %s SOL", c.PerOperationLimitSOL, c.DailyLimitSOL)
	}
	return daily, perOperation, nil
}
