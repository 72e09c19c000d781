package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/wallet"
	"Kluivert-Agent/internal/web3"
)

// WETHTools 返回将 ETH 包装为 WETH 的工具。网络未配置 WETH 地址时返回空列表。
func WETHTools(p *wallet.Provider) []Tool {
	weth := p.Network().WETH
	if !common.IsHexAddress(weth) {
		return nil
	}
	return []Tool{{
		Name:        "wrap_eth",
		Description: "This tool can only be used to wrap ETH to WETH. Inputs: amount_to_wrap in whole units of ETH.",
		Parameters: json.RawMessage(`{
			"type":"object",
			"properties":{
				"amount_to_wrap":{"type":"string","description":"Amount of ETH to wrap, in whole units e.g. 0.01"}
			},
			"required":["amount_to_wrap"]
		}`),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				AmountToWrap string `json:"amount_to_wrap"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return "", err
			}
			amount, err := web3.ParseUnits(in.AmountToWrap, 18)
			if err != nil {
				return "", xerrors.Wrap(xerrors.CodeInvalidArgument, err, "包装金额无效")
			}
			client, err := p.ChainClient()
			if err != nil {
				return "", err
			}
			auth, err := p.Transactor(ctx)
			if err != nil {
				return "", err
			}
			tx, err := client.DepositWETH(ctx, auth, common.HexToAddress(weth), amount)
			if err != nil {
				return "", err
			}
			if _, err := client.WaitMined(ctx, tx); err != nil {
				return "", err
			}
			return fmt.Sprintf("Wrapped %s ETH to WETH.\nTransaction hash: %s", in.AmountToWrap, tx.Hash().Hex()), nil
		},
	}}
}
