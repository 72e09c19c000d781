package web3

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultNetworksIncludeBaseSepolia(t *testing.T) {
	defs, err := DefaultNetworks()
	if err != nil {
		t.Fatalf("default networks: %v", err)
	}
	network, err := defs.Lookup("base-sepolia")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if network.ChainID != 84532 || !network.Faucet || network.WETH == "" || network.ID != "base-sepolia" {
		t.Fatalf("unexpected network: %+v", network)
	}
	if _, err := defs.Lookup("solana-devnet"); err == nil {
		t.Fatalf("expected unknown network error")
	}
}

func TestLoadNetworksOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "networks.yaml")
	content := "networks:\n  base-sepolia:\n    chain_id: 84532\n    rpc_url: http://127.0.0.1:8545\n  anvil:\n    chain_id: 31337\n    rpc_url: http://127.0.0.1:8546\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	defs, err := LoadNetworks(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sepolia, _ := defs.Lookup("base-sepolia")
	if sepolia.RPCURL != "http://127.0.0.1:8545" || sepolia.NativeSymbol != "ETH" {
		t.Fatalf("overlay not applied: %+v", sepolia)
	}
	if _, err := defs.Lookup("anvil"); err != nil {
		t.Fatalf("expected overlay-only network: %v", err)
	}
	if _, err := defs.Lookup("ethereum-mainnet"); err != nil {
		t.Fatalf("built-in networks should remain: %v", err)
	}
}

func TestParseAndFormatUnits(t *testing.T) {
	value, err := ParseUnits("0.015", 18)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want, _ := new(big.Int).SetString("15000000000000000", 10)
	if value.Cmp(want) != 0 {
		t.Fatalf("unexpected value: %s", value)
	}
	if got := FormatUnits(value, 18); got != "0.015" {
		t.Fatalf("format: %s", got)
	}
	if got := FormatUnits(big.NewInt(2_500_000), 6); got != "2.5" {
		t.Fatalf("format usdc: %s", got)
	}
	if got := FormatUnits(big.NewInt(42), 0); got != "42" {
		t.Fatalf("format integer: %s", got)
	}

	for _, bad := range []string{"", "-1", "1.0000001", "abc"} {
		if _, err := ParseUnits(bad, 6); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
