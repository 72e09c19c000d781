package provider

import (
	"context"
	"errors"
	"testing"

	"Kluivert-Agent/internal/web3"
)

type closeTracker struct {
	web3.Client
	closed bool
}

func (c *closeTracker) Close() { c.closed = true }

func TestRegistryDialsOncePerNetwork(t *testing.T) {
	networks, err := web3.DefaultNetworks()
	if err != nil {
		t.Fatalf("networks: %v", err)
	}

	var dialed []web3.Network
	tracker := &closeTracker{}
	registry := NewRegistry(networks,
		WithRPCOverride("http://127.0.0.1:8545"),
		WithDialer(func(_ context.Context, network web3.Network) (web3.Client, error) {
			dialed = append(dialed, network)
			return tracker, nil
		}),
	)

	for i := 0; i < 2; i++ {
		if _, network, err := registry.Client(context.Background(), "base-sepolia"); err != nil {
			t.Fatalf("client: %v", err)
		} else if network.RPCURL != "http://127.0.0.1:8545" {
			t.Fatalf("override not applied: %s", network.RPCURL)
		}
	}
	if len(dialed) != 1 {
		t.Fatalf("expected a single dial, got %d", len(dialed))
	}
	if got := registry.Chains(); len(got) != 1 || got[0] != "base-sepolia" {
		t.Fatalf("unexpected chains: %v", got)
	}

	registry.Close()
	if !tracker.closed {
		t.Fatalf("client was not closed")
	}
}

func TestRegistryPropagatesErrors(t *testing.T) {
	networks, _ := web3.DefaultNetworks()
	registry := NewRegistry(networks, WithDialer(func(context.Context, web3.Network) (web3.Client, error) {
		return nil, errors.New("dial refused")
	}))

	if _, _, err := registry.Client(context.Background(), "base-sepolia"); err == nil {
		t.Fatalf("expected dial error")
	}
	if _, _, err := registry.Client(context.Background(), "unknown"); err == nil {
		t.Fatalf("expected unknown network error")
	}
}
