package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"Kluivert-Agent/deploy/migrations"
	"Kluivert-Agent/internal/wallet"
)

// WalletStore keeps wallet documents in a local SQLite database. Every call
// opens and closes its own handle.
type WalletStore struct {
	path string
	now  func() time.Time
}

// NewWalletStore creates a store backed by the database file at path. A
// "sqlite://" or "file:" prefix is accepted and stripped.
func NewWalletStore(path string) *WalletStore {
	path = strings.TrimPrefix(strings.TrimSpace(path), "sqlite://")
	path = strings.TrimPrefix(path, "file:")
	return &WalletStore{path: path, now: time.Now}
}

// Path returns the database file location.
func (s *WalletStore) Path() string { return s.path }

func (s *WalletStore) open(ctx context.Context) (*sql.DB, error) {
	if s.path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := migrations.Apply(ctx, db, migrations.SQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

// Load returns the most recently inserted wallet document.
func (s *WalletStore) Load(ctx context.Context) (wallet.Data, bool, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, false, wallet.Unavailable(err, "open wallet database")
	}
	defer db.Close()

	var payload string
	err = db.QueryRowContext(ctx, `SELECT wallet_data FROM wallets ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wallet.Unavailable(err, "query wallet row")
	}
	return wallet.Data(payload), true, nil
}

// Save inserts data as a new row.
func (s *WalletStore) Save(ctx context.Context, data wallet.Data) error {
	if err := wallet.ValidateForSave(data); err != nil {
		return err
	}

	db, err := s.open(ctx)
	if err != nil {
		return wallet.Unavailable(err, "open wallet database")
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO wallets (wallet_data, created_at) VALUES (?, ?)`,
		data.String(), s.now().Unix(),
	); err != nil {
		return wallet.Unavailable(err, "insert wallet row")
	}
	return nil
}
