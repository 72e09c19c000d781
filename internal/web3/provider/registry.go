package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"Kluivert-Agent/internal/web3"
	"Kluivert-Agent/internal/web3/ethereum"
)

// Dialer creates a chain client for a network. Tests replace it to avoid
// network access.
type Dialer func(ctx context.Context, network web3.Network) (web3.Client, error)

// DialEthereum is the default Dialer backed by go-ethereum's RPC client.
func DialEthereum(ctx context.Context, network web3.Network) (web3.Client, error) {
	client, err := ethereum.NewClient(ctx, ethereum.Config{Name: network.ID, RPCURL: network.RPCURL})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Registry lazily dials one chain client per network id and keeps it for
// reuse across agent initializations.
type Registry struct {
	networks    web3.Networks
	rpcOverride string
	dial        Dialer

	mu      sync.Mutex
	clients map[string]web3.Client
}

// Option customises a Registry.
type Option func(*Registry)

// WithDialer replaces the dialer used for new networks.
func WithDialer(d Dialer) Option {
	return func(r *Registry) {
		if d != nil {
			r.dial = d
		}
	}
}

// WithRPCOverride forces every network to use the given RPC endpoint.
func WithRPCOverride(url string) Option {
	return func(r *Registry) { r.rpcOverride = strings.TrimSpace(url) }
}

// NewRegistry builds a registry over the given network table.
func NewRegistry(networks web3.Networks, opts ...Option) *Registry {
	r := &Registry{
		networks: networks,
		dial:     DialEthereum,
		clients:  make(map[string]web3.Client),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Network returns the definition of the given network id.
func (r *Registry) Network(id string) (web3.Network, error) {
	if r == nil {
		return web3.Network{}, errors.New("未初始化的链客户端注册表")
	}
	network, err := r.networks.Lookup(id)
	if err != nil {
		return web3.Network{}, err
	}
	if r.rpcOverride != "" {
		network.RPCURL = r.rpcOverride
	}
	return network, nil
}

// Client returns the client for network id, dialing it on first use.
func (r *Registry) Client(ctx context.Context, id string) (web3.Client, web3.Network, error) {
	network, err := r.Network(id)
	if err != nil {
		return nil, web3.Network{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[network.ID]; ok {
		return client, network, nil
	}
	client, err := r.dial(ctx, network)
	if err != nil {
		return nil, web3.Network{}, fmt.Errorf("初始化链 %s 失败: %w", network.ID, err)
	}
	r.clients[network.ID] = client
	return client, network, nil
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, client := range r.clients {
		if client != nil {
			client.Close()
		}
		delete(r.clients, name)
	}
}

// Chains returns the list of connected network ids.
func (r *Registry) Chains() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
