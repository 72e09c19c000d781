package web3

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainSnapshot represents summarized network metadata for tool output.
type ChainSnapshot struct {
	ChainID     string
	BlockNumber string
}

// TokenBalance is an ERC20 balance together with the token's metadata.
type TokenBalance struct {
	Contract common.Address
	Symbol   string
	Decimals uint8
	Amount   *big.Int
}

// Client defines the chain operations the agent's tools rely on. All
// transacting methods sign with the supplied transactor and return once the
// transaction has been broadcast; callers use WaitMined for inclusion.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	FetchChainSnapshot(ctx context.Context) (ChainSnapshot, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	TransferNative(ctx context.Context, auth *bind.TransactOpts, to common.Address, amount *big.Int) (*types.Transaction, error)
	ERC20Balance(ctx context.Context, token, owner common.Address) (TokenBalance, error)
	TransferERC20(ctx context.Context, auth *bind.TransactOpts, token, to common.Address, amount *big.Int) (*types.Transaction, error)
	DepositWETH(ctx context.Context, auth *bind.TransactOpts, weth common.Address, amount *big.Int) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	Close()
}
