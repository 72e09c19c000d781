package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/wallet"
	"Kluivert-Agent/internal/web3"
)

// WalletTools 返回查询钱包详情、余额以及原生币转账的工具。
func WalletTools(p *wallet.Provider) []Tool {
	return []Tool{
		{
			Name: "get_wallet_details",
			Description: "This tool will return the details of the connected wallet including: " +
				"wallet id, address, network id, chain id, native balance and the latest block.",
			Handler: func(ctx context.Context, _ json.RawMessage) (string, error) {
				return walletDetails(ctx, p)
			},
		},
		{
			Name:        "get_balance",
			Description: "This tool will get the native currency balance of the connected wallet.",
			Handler: func(ctx context.Context, _ json.RawMessage) (string, error) {
				client, err := p.ChainClient()
				if err != nil {
					return "", err
				}
				balance, err := client.BalanceAt(ctx, p.Address())
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Native balance at address %s: %s %s",
					p.Address().Hex(), web3.FormatUnits(balance, 18), p.Network().NativeSymbol), nil
			},
		},
		{
			Name: "native_transfer",
			Description: "This tool will transfer native tokens from the wallet to another onchain address. " +
				"It takes the destination address and the amount in whole units (e.g. 0.01 for 0.01 ETH).",
			Parameters: json.RawMessage(`{
				"type":"object",
				"properties":{
					"to":{"type":"string","description":"The destination address to receive the funds"},
					"value":{"type":"string","description":"The amount to transfer in whole units e.g. 1 ETH or 0.00001 ETH"}
				},
				"required":["to","value"]
			}`),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					To    string `json:"to"`
					Value string `json:"value"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return "", err
				}
				to, err := parseAddress("to", in.To)
				if err != nil {
					return "", err
				}
				amount, err := web3.ParseUnits(in.Value, 18)
				if err != nil {
					return "", xerrors.Wrap(xerrors.CodeInvalidArgument, err, "转账金额无效")
				}
				client, err := p.ChainClient()
				if err != nil {
					return "", err
				}
				auth, err := p.Transactor(ctx)
				if err != nil {
					return "", err
				}
				tx, err := client.TransferNative(ctx, auth, to, amount)
				if err != nil {
					return "", err
				}
				if _, err := client.WaitMined(ctx, tx); err != nil {
					return "", err
				}
				return fmt.Sprintf("Transferred %s %s to %s.\nTransaction hash: %s",
					in.Value, p.Network().NativeSymbol, to.Hex(), tx.Hash().Hex()), nil
			},
		},
	}
}

func walletDetails(ctx context.Context, p *wallet.Provider) (string, error) {
	network := p.Network()
	var b strings.Builder
	fmt.Fprintf(&b, "Wallet Details:\n")
	fmt.Fprintf(&b, "- Wallet ID: %s\n", p.WalletID())
	fmt.Fprintf(&b, "- Address: %s\n", p.Address().Hex())
	fmt.Fprintf(&b, "- Network ID: %s\n", network.ID)
	fmt.Fprintf(&b, "- Chain ID: %d\n", network.ChainID)

	client, err := p.ChainClient()
	if err != nil {
		return b.String(), nil
	}
	balance, err := client.BalanceAt(ctx, p.Address())
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "- Native Balance: %s %s\n", web3.FormatUnits(balance, 18), network.NativeSymbol)
	if snapshot, err := client.FetchChainSnapshot(ctx); err == nil {
		fmt.Fprintf(&b, "- Latest Block: %s\n", snapshot.BlockNumber)
	}
	return b.String(), nil
}

func parseAddress(field, value string) (common.Address, error) {
	if err := requireField(field, value); err != nil {
		return common.Address{}, err
	}
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return common.Address{}, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("%s 不是合法的地址: %s", field, value))
	}
	return common.HexToAddress(value), nil
}
