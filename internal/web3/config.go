package web3

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed networks.yaml
var defaultNetworks []byte

// Networks models the structure of configs/networks.yaml.
type Networks struct {
	Networks map[string]Network `yaml:"networks"`
}

// Network describes a single EVM network the agent may operate on.
type Network struct {
	ID           string `yaml:"-"`
	ChainID      int64  `yaml:"chain_id"`
	RPCURL       string `yaml:"rpc_url"`
	NativeSymbol string `yaml:"native_symbol"`
	ExplorerURL  string `yaml:"explorer_url"`
	WETH         string `yaml:"weth"`
	Testnet      bool   `yaml:"testnet"`
	Faucet       bool   `yaml:"faucet"`
}

// DefaultNetworks returns the built-in network table.
func DefaultNetworks() (Networks, error) {
	return parseNetworks(defaultNetworks)
}

// LoadNetworks parses the built-in table and overlays the YAML file at path,
// if one is given. Entries in the file replace built-in entries of the same id.
func LoadNetworks(path string) (Networks, error) {
	defs, err := DefaultNetworks()
	if err != nil {
		return Networks{}, err
	}
	if strings.TrimSpace(path) == "" {
		return defs, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Networks{}, fmt.Errorf("读取网络配置失败: %w", err)
	}
	overlay, err := parseNetworks(content)
	if err != nil {
		return Networks{}, err
	}
	for id, network := range overlay.Networks {
		defs.Networks[id] = network
	}
	return defs, nil
}

// Lookup returns the network identified by id.
func (n Networks) Lookup(id string) (Network, error) {
	id = strings.TrimSpace(id)
	network, ok := n.Networks[id]
	if !ok {
		return Network{}, fmt.Errorf("未知的网络 %q，可选值: %s", id, strings.Join(n.IDs(), ", "))
	}
	return network, nil
}

// IDs lists the configured network ids in sorted order.
func (n Networks) IDs() []string {
	ids := make([]string, 0, len(n.Networks))
	for id := range n.Networks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func parseNetworks(content []byte) (Networks, error) {
	var defs Networks
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return Networks{}, fmt.Errorf("解析网络配置失败: %w", err)
	}
	if defs.Networks == nil {
		defs.Networks = map[string]Network{}
	}
	for id, network := range defs.Networks {
		network.ID = id
		if network.NativeSymbol == "" {
			network.NativeSymbol = "ETH"
		}
		defs.Networks[id] = network
	}
	return defs, nil
}
