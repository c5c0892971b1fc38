package storage

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AlexZinkM/agent-wallet/internal/crypto"
	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
	"github.com/AlexZinkM/agent-wallet/pkg/logger"
)

const (
	// RecordVersion is the on-disk wallet record format.
	RecordVersion = "1.0"
	// WalletVersion is stamped into metadata of newly created records.
	WalletVersion uint32 = 1

	DefaultMaxVersions = 10

	recordExt    = ".json"
	backupLayout = "20060102_150405"
	// backupLayout plus "_" and nine nanosecond digits.
	backupStampLen = len(backupLayout) + 10
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Settings locates the wallet and backup directories.
type Settings struct {
	Path        string
	BackupPath  string
	MaxVersions int
}

// DefaultSettings uses ~/.agent-wallet/{wallets,backups}.
func DefaultSettings() Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	root := filepath.Join(home, ".agent-wallet")
	return Settings{
		Path:        filepath.Join(root, "wallets"),
		BackupPath:  filepath.Join(root, "backups"),
		MaxVersions: DefaultMaxVersions,
	}
}

// Metadata describes a stored wallet. It never holds key material.
type Metadata struct {
	Name          string            `json:"name"`
	PublicKey     string            `json:"public_key"`
	CreatedAt     time.Time         `json:"created_at"`
	LastAccessed  time.Time         `json:"last_accessed"`
	LastModified  time.Time         `json:"last_modified"`
	WalletVersion uint32            `json:"wallet_version"`
	Description   string            `json:"description,omitempty"`
	Tags          []string          `json:"tags"`
	CustomData    map[string]string `json:"custom_data"`
}

// WalletRecord is the persisted file.
type WalletRecord struct {
	Version       string                `json:"version"`
	EncryptedData *crypto.EncryptedData `json:"encrypted_data"`
	Metadata      Metadata              `json:"metadata"`
}

// BackupInfo is one file in the backup directory.
type BackupInfo struct {
	Wallet  string    `json:"wallet"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// Stats summarises both directories.
type Stats struct {
	WalletCount int   `json:"wallet_count"`
	BackupCount int   `json:"backup_count"`
	TotalSize   int64 `json:"total_size"`
}

// Store persists encrypted wallet records. Writes are serialised within the
// process; there is no cross-process locking.
type Store struct {
	mu       sync.Mutex
	settings Settings
	log      *slog.Logger
	now      func() time.Time
}

// New creates both directories (0700) and returns a Store.
func New(settings Settings) (*Store, error) {
	def := DefaultSettings()
	if settings.Path == "" {
		settings.Path = def.Path
	}
	if settings.BackupPath == "" {
		settings.BackupPath = def.BackupPath
	}
	if settings.MaxVersions < 0 {
		settings.MaxVersions = 0
	}
	if err := os.MkdirAll(settings.Path, 0o700); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to create storage directory")
	}
	if err := os.MkdirAll(settings.BackupPath, 0o700); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to create backup directory")
	}
	return &Store{
		settings: settings,
		log:      logger.Named("storage"),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Settings returns the effective settings.
func (s *Store) Settings() Settings {
	return s.settings
}

// Save writes blob under name. An existing record is backed up first and
// keeps its creation time and tags.
func (s *Store) Save(name string, blob *crypto.EncryptedData, publicKey, description string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := blob.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	meta := Metadata{
		Name:          name,
		PublicKey:     publicKey,
		CreatedAt:     now,
		LastAccessed:  now,
		LastModified:  now,
		WalletVersion: WalletVersion,
		Description:   description,
		Tags:          []string{},
		CustomData:    map[string]string{},
	}

	existing, err := s.readRecord(s.walletPath(name))
	switch {
	case err == nil:
		if _, err := s.backupLocked(name); err != nil {
			return err
		}
		if err := s.pruneLocked(name, s.settings.MaxVersions); err != nil {
			s.log.Warn("failed to prune backups", slog.String("wallet", name), slog.Any("error", err))
		}
		meta.CreatedAt = existing.Metadata.CreatedAt
		if existing.Metadata.Tags != nil {
			meta.Tags = existing.Metadata.Tags
		}
		if existing.Metadata.CustomData != nil {
			meta.CustomData = existing.Metadata.CustomData
		}
		if description == "" {
			meta.Description = existing.Metadata.Description
		}
	case apperrors.HasCode(err, apperrors.CodeNotFound):
	default:
		// A corrupted live record is still backed up before being replaced.
		if _, berr := s.backupLocked(name); berr != nil {
			return berr
		}
	}

	record := &WalletRecord{Version: RecordVersion, EncryptedData: blob, Metadata: meta}
	if err := s.writeRecord(s.walletPath(name), record); err != nil {
		return err
	}
	s.log.Info("wallet saved", slog.String("wallet", name), slog.String("public_key", publicKey))
	return nil
}

// Load returns the blob and metadata for name and persists a new
// last-accessed time.
func (s *Store) Load(name string) (*crypto.EncryptedData, Metadata, error) {
	if err := ValidateName(name); err != nil {
		return nil, Metadata{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.walletPath(name)
	record, err := s.readRecord(path)
	if err != nil {
		return nil, Metadata{}, err
	}
	if record.EncryptedData == nil {
		return nil, Metadata{}, apperrors.Newf(apperrors.CodeSerialization, "wallet %q has no encrypted data", name)
	}

	record.Metadata.LastAccessed = s.now()
	if err := s.writeRecord(path, record); err != nil {
		return nil, Metadata{}, err
	}
	return record.EncryptedData, record.Metadata, nil
}

// Delete backs up and removes the record.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !fileExists(s.walletPath(name)) {
		return apperrors.Newf(apperrors.CodeNotFound, "wallet %q not found", name)
	}
	if _, err := s.backupLocked(name); err != nil {
		return err
	}
	if err := os.Remove(s.walletPath(name)); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, err, "failed to delete wallet file")
	}
	s.log.Info("wallet deleted", slog.String("wallet", name))
	return nil
}

// List returns metadata of every readable record, sorted by name.
// Corrupted records are skipped.
func (s *Store) List() ([]Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.settings.Path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to read storage directory")
	}

	out := make([]Metadata, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != recordExt {
			continue
		}
		record, err := s.readRecord(filepath.Join(s.settings.Path, entry.Name()))
		if err != nil {
			s.log.Warn("skipping corrupted wallet record", slog.String("file", entry.Name()), slog.Any("error", err))
			continue
		}
		out = append(out, record.Metadata)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Exists reports whether a record file exists for name.
func (s *Store) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	return fileExists(s.walletPath(name))
}

// Backup copies the live record into the backup directory and returns the
// backup path.
func (s *Store) Backup(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backupLocked(name)
}

func (s *Store) backupLocked(name string) (string, error) {
	src := s.walletPath(name)
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.Newf(apperrors.CodeNotFound, "wallet %q not found", name)
		}
		return "", apperrors.Wrap(apperrors.CodeStorage, err, "failed to read wallet file")
	}
	dst := filepath.Join(s.settings.BackupPath, name+"_"+backupStamp(s.now())+recordExt)
	if err := writeFileAtomic(dst, data); err != nil {
		return "", apperrors.Wrap(apperrors.CodeStorage, err, "failed to backup wallet")
	}
	s.log.Debug("wallet backed up", slog.String("wallet", name), slog.String("backup", dst))
	return dst, nil
}

// Restore copies the newest backup of name over the live record.
func (s *Store) Restore(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	backups, err := s.backupsLocked(name)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "no backup found for wallet %q", name)
	}
	latest := backups[len(backups)-1]

	data, err := os.ReadFile(latest.Path)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, err, "failed to read backup")
	}
	if err := writeFileAtomic(s.walletPath(name), data); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, err, "failed to restore wallet")
	}
	s.log.Info("wallet restored", slog.String("wallet", name), slog.String("backup", latest.Path))
	return nil
}

// Backups lists the backups of name, oldest first.
func (s *Store) Backups(name string) ([]BackupInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backupsLocked(name)
}

func (s *Store) backupsLocked(name string) ([]BackupInfo, error) {
	all, err := s.allBackups()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, b := range all {
		if b.Wallet == name {
			out = append(out, b)
		}
	}
	return out, nil
}

// CleanupOldBackups removes the oldest backups beyond keepCount, across all
// wallets. keepCount of 0 does nothing.
func (s *Store) CleanupOldBackups(keepCount int) (int, error) {
	if keepCount <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.allBackups()
	if err != nil {
		return 0, err
	}
	return s.removeOldest(all, keepCount), nil
}

func (s *Store) pruneLocked(name string, keep int) error {
	if keep <= 0 {
		return nil
	}
	backups, err := s.backupsLocked(name)
	if err != nil {
		return err
	}
	s.removeOldest(backups, keep)
	return nil
}

// removeOldest expects backups sorted oldest first.
func (s *Store) removeOldest(backups []BackupInfo, keep int) int {
	removed := 0
	for i := 0; i < len(backups)-keep; i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			s.log.Warn("failed to remove backup", slog.String("backup", backups[i].Path), slog.Any("error", err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("old backups removed", slog.Int("count", removed))
	}
	return removed
}

// allBackups returns every recognised backup, oldest first by mtime.
func (s *Store) allBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.settings.BackupPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to read backup directory")
	}
	out := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		wallet, ok := parseBackupName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, BackupInfo{
			Wallet:  wallet,
			Path:    filepath.Join(s.settings.BackupPath, entry.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Path < out[j].Path
		}
		return out[i].ModTime.Before(out[j].ModTime)
	})
	return out, nil
}

// Stats counts records and backups and sums their sizes.
func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	err := walkFiles(s.settings.Path, func(name string, info fs.FileInfo) {
		if filepath.Ext(name) == recordExt {
			st.WalletCount++
			st.TotalSize += info.Size()
		}
	})
	if err != nil {
		return Stats{}, err
	}
	err = walkFiles(s.settings.BackupPath, func(name string, info fs.FileInfo) {
		if _, ok := parseBackupName(name); ok {
			st.BackupCount++
			st.TotalSize += info.Size()
		}
	})
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *Store) walletPath(name string) string {
	return filepath.Join(s.settings.Path, name+recordExt)
}

func (s *Store) readRecord(path string) (*WalletRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			name := strings.TrimSuffix(filepath.Base(path), recordExt)
			return nil, apperrors.Newf(apperrors.CodeNotFound, "wallet %q not found", name)
		}
		return nil, apperrors.Wrap(apperrors.CodeStorage, err, "failed to read wallet file")
	}
	// Skip UTF-8 BOM if present
	if len(data) >= 3 && data[0] == utf8BOM[0] && data[1] == utf8BOM[1] && data[2] == utf8BOM[2] {
		data = data[3:]
	}
	var record WalletRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSerialization, err, "failed to parse wallet file")
	}
	if record.Version != RecordVersion {
		return nil, apperrors.Newf(apperrors.CodeUnsupportedVersion, "unsupported wallet record version %q", record.Version)
	}
	return &record, nil
}

func (s *Store) writeRecord(path string, record *WalletRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSerialization, err, "failed to serialize wallet")
	}
	if err := writeFileAtomic(path, data); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, err, "failed to write wallet file")
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path, syncs it and
// renames it into place.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if err = tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func walkFiles(dir string, fn func(name string, info fs.FileInfo)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, err, "failed to read directory")
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		fn(entry.Name(), info)
	}
	return nil
}

func backupStamp(t time.Time) string {
	return fmt.Sprintf("%s_%09d", t.Format(backupLayout), t.Nanosecond())
}

// parseBackupName splits "{wallet}_{YYYYMMDD_HHMMSS_nnnnnnnnn}.json".
func parseBackupName(file string) (string, bool) {
	if filepath.Ext(file) != recordExt {
		return "", false
	}
	base := strings.TrimSuffix(file, recordExt)
	if len(base) <= backupStampLen+1 {
		return "", false
	}
	split := len(base) - backupStampLen
	if base[split-1] != '_' {
		return "", false
	}
	stamp := base[split:]
	if _, err := time.Parse(backupLayout, stamp[:len(backupLayout)]); err != nil {
		return "", false
	}
	nanos := stamp[len(backupLayout):]
	if nanos[0] != '_' || strings.Trim(nanos[1:], "0123456789") != "" {
		return "", false
	}
	return base[:split-1], true
}

// ValidateName rejects names that could escape the storage directory.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return apperrors.New(apperrors.CodeInvalidArgument, "wallet name cannot be empty")
	case strings.ContainsAny(name, `/\`) || strings.Contains(name, ".."):
		return apperrors.Newf(apperrors.CodeInvalidArgument, "invalid wallet name %q", name)
	case strings.HasPrefix(name, "."):
		return apperrors.Newf(apperrors.CodeInvalidArgument, "wallet name %q cannot start with a dot", name)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
