// Package wallet is the agent-facing Solana wallet: a decrypted keypair,
// a resilient ledger client, a transaction pipeline and the permission and
// spending state that gates every action.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"

	"github.com/AlexZinkM/agent-wallet/internal/client"
	"github.com/AlexZinkM/agent-wallet/internal/crypto"
	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
	"github.com/AlexZinkM/agent-wallet/internal/keyvault"
	"github.com/AlexZinkM/agent-wallet/internal/model"
	"github.com/AlexZinkM/agent-wallet/internal/storage"
	"github.com/AlexZinkM/agent-wallet/internal/txn"
	"github.com/AlexZinkM/agent-wallet/pkg/logger"
)

// Wallet is one loaded wallet. It is safe for concurrent use. Actions are
// performed one at a time; read-only queries run alongside them.
type Wallet struct {
	name    string
	created time.Time
	store   *storage.Store
	svc     *crypto.Service

	// key region; the keypair carries its own lock.
	key *keyvault.Keypair

	// ledger region; the client carries its own lock.
	ledger     *client.LedgerClient
	ownsLedger bool
	pipeline   *txn.Pipeline
	limiter    *rate.Limiter

	// opMu serialises Perform so a budget check and its deduction cannot
	// interleave with another action.
	opMu sync.Mutex

	// mu guards state and accessed.
	mu       sync.RWMutex
	state    *model.RuntimeState
	accessed time.Time

	now   func() time.Time
	log   *slog.Logger
	audit *slog.Logger
}

// Create generates a keypair, stores it encrypted under passphrase and
// returns the ready wallet. An existing name fails with ALREADY_EXISTS.
func Create(name string, passphrase []byte, cfg Config) (*Wallet, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}
	if len(passphrase) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "passphrase cannot be empty")
	}
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if store.Exists(name) {
		return nil, apperrors.Newf(apperrors.CodeAlreadyExists, "wallet %q already exists", name)
	}
	svc, err := crypto.NewService(cfg.Algorithm, cfg.KDFIterations)
	if err != nil {
		return nil, err
	}

	kp, err := keyvault.Generate()
	if err != nil {
		return nil, err
	}
	blob, err := kp.Encrypt(svc, passphrase)
	if err != nil {
		kp.Close()
		return nil, err
	}
	if err := store.Save(name, blob, kp.Address(), cfg.Description); err != nil {
		kp.Close()
		return nil, err
	}

	w, err := open(name, time.Now().UTC(), store, svc, kp, cfg)
	if err != nil {
		kp.Close()
		return nil, err
	}
	w.audit.Info("wallet created", slog.String("wallet", name), slog.String("address", kp.Address()))
	return w, nil
}

// Load decrypts a stored wallet. A wrong passphrase fails with
// AUTHENTICATION.
func Load(name string, passphrase []byte, cfg Config) (*Wallet, error) {
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, err
	}
	blob, meta, err := store.Load(name)
	if err != nil {
		return nil, err
	}
	kp, err := keyvault.Decrypt(blob, passphrase)
	if err != nil {
		return nil, err
	}
	if kp.Address() != meta.PublicKey {
		kp.Close()
		return nil, apperrors.Newf(apperrors.CodeInvalidKey, "wallet %q decrypted to %s, metadata says %s",
			name, kp.Address(), meta.PublicKey)
	}

	// Save keeps the stored algorithm unless one is configured.
	alg := cfg.Algorithm
	if alg == "" {
		alg = blob.Algorithm
	}
	svc, err := crypto.NewService(alg, cfg.KDFIterations)
	if err != nil {
		kp.Close()
		return nil, err
	}

	w, err := open(name, meta.CreatedAt, store, svc, kp, cfg)
	if err != nil {
		kp.Close()
		return nil, err
	}
	w.audit.Info("wallet loaded", slog.String("wallet", name), slog.String("address", kp.Address()))
	return w, nil
}

func open(name string, created time.Time, store *storage.Store, svc *crypto.Service, kp *keyvault.Keypair, cfg Config) (*Wallet, error) {
	ledger, owns := cfg.Client, false
	if ledger == nil {
		var err error
		ledger, err = client.New(cfg.Ledger)
		if err != nil {
			return nil, err
		}
		owns = true
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if n := cfg.MaxTransactionsPerMinute; n > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}

	daily, perOp := cfg.spending()
	now := time.Now().UTC()
	return &Wallet{
		name:       name,
		created:    created,
		store:      store,
		svc:        svc,
		key:        kp,
		ledger:     ledger,
		ownsLedger: owns,
		pipeline:   txn.New(ledger, kp.PublicKey(), cfg.Pipeline),
		limiter:    limiter,
		state:      model.NewRuntimeState(cfg.Permission, model.NewSpendingPolicy(daily, perOp, now)),
		accessed:   now,
		now:        func() time.Time { return time.Now().UTC() },
		log:        logger.Named("wallet").With(slog.String("wallet", name)),
		audit:      logger.Audit(),
	}, nil
}

// Name is the storage name.
func (w *Wallet) Name() string {
	return w.name
}

// PublicKey is the wallet address as a key.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// Address is the base58 wallet address.
func (w *Wallet) Address() string {
	return w.key.Address()
}

// Ledger exposes the RPC client for health and maintenance endpoints.
func (w *Wallet) Ledger() *client.LedgerClient {
	return w.ledger
}

// Pipeline exposes the transaction pipeline defaults.
func (w *Wallet) Pipeline() *txn.Pipeline {
	return w.pipeline
}

// Save re-encrypts the key under passphrase and persists it. The previous
// record is backed up by the store.
func (w *Wallet) Save(passphrase []byte) error {
	if len(passphrase) == 0 {
		return apperrors.New(apperrors.CodeNotSupported, "saving a wallet requires a passphrase")
	}
	blob, err := w.key.Encrypt(w.svc, passphrase)
	if err != nil {
		return err
	}
	if err := w.store.Save(w.name, blob, w.Address(), ""); err != nil {
		return err
	}
	w.audit.Info("wallet saved", slog.String("wallet", w.name), slog.String("algorithm", string(w.svc.Algorithm)))
	return nil
}

// Balance is the native balance in lamports.
func (w *Wallet) Balance(ctx context.Context) (uint64, error) {
	w.touch()
	return w.ledger.GetBalance(ctx, w.PublicKey())
}

// TokenBalance is the wallet's balance of mint and the associated token
// account holding it. A missing account is a zero balance.
func (w *Wallet) TokenBalance(ctx context.Context, mint solana.PublicKey) (client.TokenAmount, solana.PublicKey, error) {
	w.touch()
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey(), mint)
	if err != nil {
		return client.TokenAmount{}, solana.PublicKey{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "failed to find token account address")
	}
	amount, err := w.ledger.GetTokenAccountBalance(ctx, ata)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return client.TokenAmount{}, ata, nil
		}
		return client.TokenAmount{}, ata, err
	}
	return amount, ata, nil
}

// Transfers reads the wallet's recent on-chain transfers. Token transfers
// of mint are included when mint is not zero.
func (w *Wallet) Transfers(ctx context.Context, mint solana.PublicKey, limit int) ([]client.Transfer, error) {
	w.touch()
	return w.ledger.RecentTransfers(ctx, w.PublicKey(), mint, limit)
}

// Info summarises the wallet including its current balance.
func (w *Wallet) Info(ctx context.Context) (model.WalletInfo, error) {
	balance, err := w.Balance(ctx)
	if err != nil {
		return model.WalletInfo{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Spending.ResetIfNeeded(w.now())
	return model.WalletInfo{
		Name:             w.name,
		Address:          w.Address(),
		CreatedAt:        w.created,
		LastAccessed:     w.accessed,
		BalanceLamports:  balance,
		TransactionCount: len(w.state.History),
		Permission:       w.state.Permission,
		Spending:         w.state.Spending,
		Active:           !w.key.Closed(),
	}, nil
}

// History returns local records matching filter, newest first.
func (w *Wallet) History(filter *model.HistoryFilter) ([]model.TransactionRecord, error) {
	if filter != nil {
		if err := filter.Validate(); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "invalid history filter")
		}
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return filter.Apply(w.state.History), nil
}

// TotalSpent sums the amounts of submitted native transfers.
func (w *Wallet) TotalSpent() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var total uint64
	for _, rec := range w.state.History {
		if rec.Status == model.StatusSubmitted && rec.Kind == model.ActionTransferSOL {
			if total > math.MaxUint64-rec.Amount {
				return math.MaxUint64
			}
			total += rec.Amount
		}
	}
	return total
}

// RecentErrors returns the last failures, oldest first.
func (w *Wallet) RecentErrors() []model.FailureRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]model.FailureRecord{}, w.state.RecentErrors...)
}

// RuntimeState is a snapshot of permission, budget and history.
func (w *Wallet) RuntimeState() model.RuntimeState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Spending.ResetIfNeeded(w.now())
	return w.state.Clone()
}

// SetPermission changes the wallet's permission level.
func (w *Wallet) SetPermission(level model.PermissionLevel) {
	w.mu.Lock()
	prev := w.state.Permission
	w.state.Permission = level
	w.mu.Unlock()
	w.audit.Info("permission changed",
		slog.String("wallet", w.name),
		slog.String("from", prev.String()),
		slog.String("to", level.String()))
}

// SetSpendingLimits replaces both caps. The remaining budget never grows
// past the new daily cap.
func (w *Wallet) SetSpendingLimits(daily, perOperation uint64) error {
	if daily == 0 || perOperation == 0 {
		return apperrors.New(apperrors.CodeInvalidArgument, "spending limits must be positive")
	}
	if perOperation > daily {
		return apperrors.New(apperrors.CodeInvalidArgument, "per-operation limit cannot exceed daily limit")
	}
	w.mu.Lock()
	w.state.Spending.SetLimits(daily, perOperation)
	w.mu.Unlock()
	w.audit.Info("spending limits changed",
		slog.String("wallet", w.name),
		slog.Uint64("daily", daily),
		slog.Uint64("per_operation", perOperation))
	return nil
}

// AddressQR renders the address as a PNG QR code of size pixels.
func (w *Wallet) AddressQR(size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	qr, err := qrcode.New(w.Address(), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}

// Close zeroes the key and, if the wallet dialed it, closes the ledger
// client. The wallet is unusable afterwards.
func (w *Wallet) Close() {
	w.key.Close()
	if w.ownsLedger {
		w.ledger.Close()
	}
	w.log.Debug("wallet closed")
}

func (w *Wallet) touch() {
	w.mu.Lock()
	w.accessed = w.now()
	w.mu.Unlock()
}

// List returns metadata of every stored wallet.
func List(cfg Config) ([]storage.Metadata, error) {
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, err
	}
	return store.List()
}

// Delete removes a stored wallet after backing it up.
func Delete(name string, cfg Config) error {
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}
	return store.Delete(name)
}

// Exists reports whether name is stored.
func Exists(name string, cfg Config) (bool, error) {
	if err := storage.ValidateName(name); err != nil {
		return false, err
	}
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return false, err
	}
	return store.Exists(name), nil
}
