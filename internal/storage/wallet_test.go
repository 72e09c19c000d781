package storage

import (
	"context"
	"path/filepath"
	"testing"

	"Kluivert-Agent/internal/config"
	"Kluivert-Agent/internal/storage/sqlite"
	"Kluivert-Agent/internal/wallet"
)

func TestOpenWalletStoreSelectsDriver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := OpenWalletStore(ctx, config.WalletStoreConfig{Driver: "file"}, dir, "")
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	file, ok := store.(*instrumented).next.(*wallet.FileStore)
	if !ok || file.Path() != filepath.Join(dir, "wallet_data.jsonl") {
		t.Fatalf("unexpected file store: %#v", store.(*instrumented).next)
	}

	override := "sqlite://" + filepath.Join(dir, "override.db")
	store, err = OpenWalletStore(ctx, config.WalletStoreConfig{Driver: "file"}, dir, override)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	lite, ok := store.(*instrumented).next.(*sqlite.WalletStore)
	if !ok || lite.Path() != filepath.Join(dir, "override.db") {
		t.Fatalf("unexpected sqlite store: %#v", store.(*instrumented).next)
	}

	if err := store.Save(ctx, wallet.Data(`{"wallet_id":"x"}`)); err != nil {
		t.Fatalf("save through instrumented store: %v", err)
	}
	if _, ok, err := store.Load(ctx); err != nil || !ok {
		t.Fatalf("load through instrumented store: %v %v", ok, err)
	}
}

func TestOpenWalletStoreRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenWalletStore(context.Background(), config.WalletStoreConfig{Driver: "mongo"}, t.TempDir(), ""); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
