package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"Kluivert-Agent/deploy/migrations"
	"Kluivert-Agent/internal/wallet"
)

const (
	selectLatestWalletSQL = `SELECT wallet_data FROM wallets ORDER BY id DESC LIMIT 1`
	insertWalletSQL       = `INSERT INTO wallets (wallet_data, created_at) VALUES (?, ?)`
)

// WalletStore 将钱包状态保存在 wallets 表中。每次读写都会建立并关闭独立的连接。
type WalletStore struct {
	cfg Config
	now func() time.Time
}

// NewWalletStore 创建 MySQL 钱包存储。
func NewWalletStore(cfg Config) *WalletStore {
	return &WalletStore{cfg: cfg, now: time.Now}
}

// Migrate 执行 deploy/migrations/mysql 下尚未应用的迁移，返回新应用的版本。
func (s *WalletStore) Migrate(ctx context.Context) ([]string, error) {
	db, err := openDatabase(ctx, s.cfg)
	if err != nil {
		return nil, wallet.Unavailable(err, "连接钱包数据库失败")
	}
	defer db.Close()
	return migrations.Apply(ctx, db, migrations.MySQL)
}

// Load 返回 id 最大的一条记录。
func (s *WalletStore) Load(ctx context.Context) (wallet.Data, bool, error) {
	db, err := openDatabase(ctx, s.cfg)
	if err != nil {
		return nil, false, wallet.Unavailable(err, "连接钱包数据库失败")
	}
	defer db.Close()

	var payload string
	if err := db.QueryRowContext(ctx, selectLatestWalletSQL).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, wallet.Unavailable(err, "查询钱包数据失败")
	}
	return wallet.Data(payload), true, nil
}

// Save 插入一条新记录。
func (s *WalletStore) Save(ctx context.Context, data wallet.Data) error {
	if err := wallet.ValidateForSave(data); err != nil {
		return err
	}

	db, err := openDatabase(ctx, s.cfg)
	if err != nil {
		return wallet.Unavailable(err, "连接钱包数据库失败")
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, insertWalletSQL, data.String(), s.now().Unix()); err != nil {
		return wallet.Unavailable(err, "写入钱包数据失败")
	}
	return nil
}
