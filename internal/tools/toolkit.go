package tools

import (
	"Kluivert-Agent/internal/wallet"
)

// Toolkit 汇总构建全部工具所需的依赖。
type Toolkit struct {
	Wallet    *wallet.Provider
	PriceFeed *PriceFeed
	Faucet    Faucet
}

// Build 按 wallet、erc20、weth、pyth、faucet 的顺序组装工具集合。
// 依赖缺失的分组会被跳过。
func (k Toolkit) Build() (*Set, error) {
	var groups [][]Tool
	if k.Wallet != nil {
		groups = append(groups, WalletTools(k.Wallet), ERC20Tools(k.Wallet), WETHTools(k.Wallet))
	}
	groups = append(groups, PythTools(k.PriceFeed))
	if k.Wallet != nil {
		groups = append(groups, FaucetTools(k.Wallet, k.Faucet))
	}
	return NewSet(groups...)
}
