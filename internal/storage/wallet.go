package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"Kluivert-Agent/internal/config"
	"Kluivert-Agent/internal/observability/metrics"
	"Kluivert-Agent/internal/storage/mysql"
	"Kluivert-Agent/internal/storage/sqlite"
	"Kluivert-Agent/internal/wallet"
	"Kluivert-Agent/pkg/logger"
)

// OpenWalletStore 根据配置选择钱包存储驱动。dsnOverride 来自 WALLET_STORE_DSN，
// 非空时优先于配置文件中的 DSN；形如 mysql://、sqlite:// 的前缀同时决定驱动。
func OpenWalletStore(ctx context.Context, cfg config.WalletStoreConfig, dataDir, dsnOverride string) (wallet.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	dsn := strings.TrimSpace(cfg.DSN)
	if override := strings.TrimSpace(dsnOverride); override != "" {
		dsn = override
		switch {
		case strings.HasPrefix(override, "mysql://"):
			driver, dsn = "mysql", strings.TrimPrefix(override, "mysql://")
		case strings.HasPrefix(override, "sqlite://"):
			driver = "sqlite"
		}
	}

	var store wallet.Store
	switch driver {
	case "", "file":
		if dsn == "" {
			dsn = filepath.Join(dataDir, "wallet_data.jsonl")
		}
		store = wallet.NewFileStore(dsn)
	case "sqlite":
		if dsn == "" {
			dsn = filepath.Join(dataDir, "wallets.db")
		}
		store = sqlite.NewWalletStore(dsn)
	case "mysql":
		mysqlStore := mysql.NewWalletStore(mysql.Config{DSN: dsn, ConnMaxLifetime: time.Minute})
		applied, err := mysqlStore.Migrate(ctx)
		if err != nil {
			return nil, err
		}
		if len(applied) > 0 {
			logger.Named("storage").Info("已应用钱包表迁移", "driver", driver, "versions", applied)
		}
		store = mysqlStore
	default:
		return nil, fmt.Errorf("不支持的钱包存储驱动: %s", cfg.Driver)
	}
	return &instrumented{driver: driver, next: store}, nil
}

// instrumented 为钱包存储的读写记录指标。
type instrumented struct {
	driver string
	next   wallet.Store
}

func (s *instrumented) Load(ctx context.Context) (wallet.Data, bool, error) {
	data, ok, err := s.next.Load(ctx)
	metrics.ObserveWalletOperation(s.driverName(), "load", err)
	return data, ok, err
}

func (s *instrumented) Save(ctx context.Context, data wallet.Data) error {
	err := s.next.Save(ctx, data)
	metrics.ObserveWalletOperation(s.driverName(), "save", err)
	return err
}

func (s *instrumented) driverName() string {
	if s.driver == "" {
		return "file"
	}
	return s.driver
}
