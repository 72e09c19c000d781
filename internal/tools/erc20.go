package tools

import (
	"context"
	"encoding/json"
	"fmt"

	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/wallet"
	"Kluivert-Agent/internal/web3"
)

// ERC20Tools 返回 ERC20 余额查询与转账工具。
func ERC20Tools(p *wallet.Provider) []Tool {
	return []Tool{
		{
			Name:        "get_erc20_balance",
			Description: "This tool will get the balance of an ERC20 asset in the wallet. It takes the contract address as input.",
			Parameters: json.RawMessage(`{
				"type":"object",
				"properties":{
					"contract_address":{"type":"string","description":"The contract address of the token to get the balance for"}
				},
				"required":["contract_address"]
			}`),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					ContractAddress string `json:"contract_address"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return "", err
				}
				token, err := parseAddress("contract_address", in.ContractAddress)
				if err != nil {
					return "", err
				}
				client, err := p.ChainClient()
				if err != nil {
					return "", err
				}
				balance, err := client.ERC20Balance(ctx, token, p.Address())
				if err != nil {
					return "", err
				}
				symbol := balance.Symbol
				if symbol == "" {
					symbol = "tokens"
				}
				return fmt.Sprintf("Balance of %s at %s is %s %s",
					token.Hex(), p.Address().Hex(), web3.FormatUnits(balance.Amount, balance.Decimals), symbol), nil
			},
		},
		{
			Name: "erc20_transfer",
			Description: "This tool will transfer an ERC20 token from the wallet to another onchain address. " +
				"It takes the amount in whole units, the contract address of the token and the destination address. " +
				"Always check the token balance before transferring.",
			Parameters: json.RawMessage(`{
				"type":"object",
				"properties":{
					"amount":{"type":"string","description":"The amount of the asset to transfer in whole units"},
					"contract_address":{"type":"string","description":"The contract address of the token to transfer"},
					"destination":{"type":"string","description":"The destination to transfer the funds"}
				},
				"required":["amount","contract_address","destination"]
			}`),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Amount          string `json:"amount"`
					ContractAddress string `json:"contract_address"`
					Destination     string `json:"destination"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return "", err
				}
				token, err := parseAddress("contract_address", in.ContractAddress)
				if err != nil {
					return "", err
				}
				to, err := parseAddress("destination", in.Destination)
				if err != nil {
					return "", err
				}
				client, err := p.ChainClient()
				if err != nil {
					return "", err
				}
				balance, err := client.ERC20Balance(ctx, token, p.Address())
				if err != nil {
					return "", err
				}
				amount, err := web3.ParseUnits(in.Amount, balance.Decimals)
				if err != nil {
					return "", xerrors.Wrap(xerrors.CodeInvalidArgument, err, "转账金额无效")
				}
				if balance.Amount.Cmp(amount) < 0 {
					return "", xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf(
						"余额不足: 当前 %s，需要 %s", web3.FormatUnits(balance.Amount, balance.Decimals), in.Amount))
				}
				auth, err := p.Transactor(ctx)
				if err != nil {
					return "", err
				}
				tx, err := client.TransferERC20(ctx, auth, token, to, amount)
				if err != nil {
					return "", err
				}
				if _, err := client.WaitMined(ctx, tx); err != nil {
					return "", err
				}
				return fmt.Sprintf("Transferred %s of %s to %s.\nTransaction hash for the transfer: %s",
					in.Amount, token.Hex(), to.Hex(), tx.Hash().Hex()), nil
			},
		},
	}
}
