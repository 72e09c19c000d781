package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"Kluivert-Agent/internal/web3"
)

// Config describes how to construct an EVM compatible client.
type Config struct {
	Name   string
	RPCURL string
}

// Backend is the subset of chain access the client needs. Both
// *ethclient.Client and the go-ethereum simulated backend satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// committer is implemented by simulated backends that mine on demand.
type committer interface {
	Commit() common.Hash
}

// Client implements the web3.Client interface for EVM compatible chains.
type Client struct {
	name      string
	rpcClient *gethrpc.Client
	backend   Backend
	erc20     abi.ABI
	weth      abi.ABI

	mu      sync.Mutex
	chainID *big.Int
}

// NewClient dials the configured RPC endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置以太坊 RPC 地址")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接以太坊节点失败: %w", err)
	}

	client, err := newClient(cfg.Name, ethclient.NewClient(rpcClient))
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	client.rpcClient = rpcClient
	return client, nil
}

// NewSimulatedClient wraps an in-memory backend for testing purposes.
func NewSimulatedClient(name string, backend Backend) (*Client, error) {
	return newClient(name, backend)
}

func newClient(name string, backend Backend) (*Client, error) {
	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("解析 ERC20 ABI 失败: %w", err)
	}
	weth, err := abi.JSON(strings.NewReader(wethABI))
	if err != nil {
		return nil, fmt.Errorf("解析 WETH ABI 失败: %w", err)
	}
	return &Client{name: name, backend: backend, erc20: erc20, weth: weth}, nil
}

// Name returns the network id the client was created for.
func (c *Client) Name() string { return c.name }

// Close releases network connections held by the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rpcClient != nil {
		c.rpcClient.Close()
		c.rpcClient = nil
	}
}

// ChainID returns the chain id reported by the node, cached after the first call.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	cached := c.chainID
	c.mu.Unlock()
	if cached != nil {
		return new(big.Int).Set(cached), nil
	}

	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取链 ID 失败: %w", err)
	}
	c.mu.Lock()
	c.chainID = new(big.Int).Set(id)
	c.mu.Unlock()
	return id, nil
}

// FetchChainSnapshot gathers lightweight metadata from the chain.
func (c *Client) FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error) {
	id, err := c.ChainID(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, err
	}
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("获取最新区块高度失败: %w", err)
	}
	return web3.ChainSnapshot{
		ChainID:     toHexBig(id),
		BlockNumber: toHexBig(head.Number),
	}, nil
}

// BalanceAt returns the native balance of account at the latest block.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("查询余额失败: %w", err)
	}
	return balance, nil
}

// TransferNative sends amount wei from the transactor to the destination.
func (c *Client) TransferNative(ctx context.Context, auth *bind.TransactOpts, to common.Address, amount *big.Int) (*coretypes.Transaction, error) {
	if auth == nil {
		return nil, errors.New("未提供交易签名器")
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.New("转账金额必须大于 0")
	}

	contract := bind.NewBoundContract(to, abi.ABI{}, c.backend, c.backend, c.backend)
	opts := withContext(ctx, auth)
	opts.Value = amount
	tx, err := contract.Transfer(opts)
	if err != nil {
		return nil, fmt.Errorf("发送转账失败: %w", err)
	}
	c.commit()
	return tx, nil
}

// ERC20Balance returns the token balance of owner together with its metadata.
func (c *Client) ERC20Balance(ctx context.Context, token, owner common.Address) (web3.TokenBalance, error) {
	contract := bind.NewBoundContract(token, c.erc20, c.backend, c.backend, c.backend)
	opts := &bind.CallOpts{Context: ctx}

	var balanceOut []any
	if err := contract.Call(opts, &balanceOut, "balanceOf", owner); err != nil {
		return web3.TokenBalance{}, fmt.Errorf("查询代币余额失败: %w", err)
	}
	var decimalsOut []any
	if err := contract.Call(opts, &decimalsOut, "decimals"); err != nil {
		return web3.TokenBalance{}, fmt.Errorf("查询代币精度失败: %w", err)
	}

	result := web3.TokenBalance{Contract: token}
	if len(balanceOut) == 1 {
		result.Amount, _ = balanceOut[0].(*big.Int)
	}
	if len(decimalsOut) == 1 {
		result.Decimals, _ = decimalsOut[0].(uint8)
	}
	if result.Amount == nil {
		return web3.TokenBalance{}, errors.New("代币余额返回值无效")
	}

	var symbolOut []any
	if err := contract.Call(opts, &symbolOut, "symbol"); err == nil && len(symbolOut) == 1 {
		result.Symbol, _ = symbolOut[0].(string)
	}
	return result, nil
}

// TransferERC20 calls transfer(to, amount) on the token contract.
func (c *Client) TransferERC20(ctx context.Context, auth *bind.TransactOpts, token, to common.Address, amount *big.Int) (*coretypes.Transaction, error) {
	if auth == nil {
		return nil, errors.New("未提供交易签名器")
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.New("转账金额必须大于 0")
	}

	contract := bind.NewBoundContract(token, c.erc20, c.backend, c.backend, c.backend)
	tx, err := contract.Transact(withContext(ctx, auth), "transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("发送代币转账失败: %w", err)
	}
	c.commit()
	return tx, nil
}

// DepositWETH wraps amount wei into WETH by calling deposit() with value.
func (c *Client) DepositWETH(ctx context.Context, auth *bind.TransactOpts, weth common.Address, amount *big.Int) (*coretypes.Transaction, error) {
	if auth == nil {
		return nil, errors.New("未提供交易签名器")
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.New("包装金额必须大于 0")
	}

	contract := bind.NewBoundContract(weth, c.weth, c.backend, c.backend, c.backend)
	opts := withContext(ctx, auth)
	opts.Value = amount
	tx, err := contract.Transact(opts, "deposit")
	if err != nil {
		return nil, fmt.Errorf("包装 ETH 失败: %w", err)
	}
	c.commit()
	return tx, nil
}

// WaitMined blocks until tx is included and returns its receipt.
func (c *Client) WaitMined(ctx context.Context, tx *coretypes.Transaction) (*coretypes.Receipt, error) {
	if tx == nil {
		return nil, errors.New("交易为空")
	}
	c.commit()
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("等待交易上链失败: %w", err)
	}
	if receipt.Status != coretypes.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("交易 %s 执行失败", tx.Hash().Hex())
	}
	return receipt, nil
}

func (c *Client) commit() {
	if sim, ok := c.backend.(committer); ok {
		sim.Commit()
	}
}

func withContext(ctx context.Context, auth *bind.TransactOpts) *bind.TransactOpts {
	opts := *auth
	opts.Context = ctx
	return &opts
}

func toHexBig(n *big.Int) string {
	if n == nil {
		return "0x0"
	}
	return "0x" + n.Text(16)
}
