package wallet

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/web3"
	"Kluivert-Agent/pkg/logger"
)

var testNetwork = web3.Network{ID: "base-sepolia", ChainID: 84532}

func TestFileStoreLoadAbsent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "wallet.jsonl"))
	data, ok, err := store.Load(context.Background())
	if err != nil || ok || data != nil {
		t.Fatalf("expected absent wallet, got %q %v %v", data, ok, err)
	}
}

func TestFileStoreReturnsNewestRecord(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "wallet.jsonl"))

	for _, doc := range []string{`{"wallet_id":"first"}`, "{\n  \"wallet_id\": \"second\"\n}"} {
		if err := store.Save(ctx, Data(doc)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	data, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: %v %v", ok, err)
	}
	if string(data) != `{"wallet_id":"second"}` {
		t.Fatalf("unexpected record: %s", data)
	}

	content, _ := os.ReadFile(store.Path())
	if lines := strings.Count(string(content), "\n"); lines != 2 {
		t.Fatalf("expected two appended records, got %d", lines)
	}
}

func TestFileStoreRejectsInvalidJSON(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "wallet.jsonl"))
	err := store.Save(context.Background(), Data("not json"))
	if xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestFileStoreUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := NewFileStore(filepath.Join(blocker, "wallet.jsonl"))

	err := store.Save(context.Background(), Data(`{}`))
	if xerrors.CodeOf(err) != xerrors.CodeStoreUnavailable {
		t.Fatalf("expected store unavailable on save, got %v", err)
	}
}

func TestProviderExportAndResume(t *testing.T) {
	ctx := context.Background()
	created, err := NewProvider(ctx, ProviderConfig{Network: testNetwork})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if created.Resumed() {
		t.Fatalf("fresh provider should not be resumed")
	}

	data, err := created.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !data.Valid() || !strings.Contains(data.String(), `"network_id":"base-sepolia"`) {
		t.Fatalf("unexpected export: %s", data)
	}

	resumed, err := NewProvider(ctx, ProviderConfig{Network: testNetwork, Data: data})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !resumed.Resumed() || resumed.Address() != created.Address() || resumed.WalletID() != created.WalletID() {
		t.Fatalf("resumed identity differs: %s vs %s", resumed.Address().Hex(), created.Address().Hex())
	}

	opts, err := resumed.Transactor(ctx)
	if err != nil {
		t.Fatalf("transactor: %v", err)
	}
	if opts.From != created.Address() {
		t.Fatalf("transactor address mismatch")
	}
}

func TestProviderWarnsOnNetworkMismatch(t *testing.T) {
	var buf bytes.Buffer
	logger.UseWriter(&buf)

	ctx := context.Background()
	created, err := NewProvider(ctx, ProviderConfig{Network: web3.Network{ID: "base-mainnet", ChainID: 8453}})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	data, err := created.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	resumed, err := NewProvider(ctx, ProviderConfig{Network: testNetwork, Data: data})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Network().ID != testNetwork.ID || resumed.Address() != created.Address() {
		t.Fatalf("resumed wallet should keep its key on the configured network: %+v", resumed.Network())
	}
	out := buf.String()
	if !strings.Contains(out, "stored_network=base-mainnet") || !strings.Contains(out, "configured_network=base-sepolia") {
		t.Fatalf("mismatch warning missing: %s", out)
	}

	matching, err := resumed.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	buf.Reset()
	if _, err := NewProvider(ctx, ProviderConfig{Network: testNetwork, Data: matching}); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if strings.Contains(buf.String(), "stored_network") {
		t.Fatalf("no warning expected when networks match: %s", buf.String())
	}
}

func TestProviderRejectsCorruptData(t *testing.T) {
	ctx := context.Background()
	cases := map[string]Data{
		"not json":         Data("{"),
		"bad seed":         Data(`{"seed":"zz"}`),
		"address mismatch": Data(`{"seed":"4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318","default_address_id":"0x0000000000000000000000000000000000000001"}`),
	}
	for name, data := range cases {
		if _, err := NewProvider(ctx, ProviderConfig{Network: testNetwork, Data: data}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := NewProvider(ctx, ProviderConfig{}); err == nil {
		t.Fatalf("expected error without network")
	}
}

func TestProviderChainClientRequired(t *testing.T) {
	p, err := NewProvider(context.Background(), ProviderConfig{Network: web3.Network{ID: "custom"}})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := p.ChainClient(); err == nil {
		t.Fatalf("expected missing client error")
	}
	if _, err := p.Transactor(context.Background()); err == nil {
		t.Fatalf("expected transactor error without chain id or client")
	}
}
