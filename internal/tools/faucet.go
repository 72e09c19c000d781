package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/platform"
	"Kluivert-Agent/internal/wallet"
)

// Faucet 抽象了平台水龙头接口。
type Faucet interface {
	RequestFaucet(ctx context.Context, req platform.FaucetRequest) (platform.FaucetResult, error)
}

// FaucetTools 返回测试网水龙头工具，网络不支持水龙头或未配置客户端时返回空列表。
func FaucetTools(p *wallet.Provider, faucet Faucet) []Tool {
	if faucet == nil || !p.Network().Faucet {
		return nil
	}
	return []Tool{{
		Name: "request_faucet_funds",
		Description: "This tool will request test tokens from the faucet for the default address in the wallet. " +
			"It takes the asset_id as input. If no asset_id is provided ETH is requested. " +
			"It only works on testnet networks.",
		Parameters: json.RawMessage(`{
			"type":"object",
			"properties":{"asset_id":{"type":"string","description":"The optional asset ID to request from the faucet, e.g. eth or usdc"}}
		}`),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				AssetID string `json:"asset_id"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return "", err
			}
			asset := strings.ToLower(strings.TrimSpace(in.AssetID))
			if asset == "" {
				asset = "eth"
			}
			result, err := faucet.RequestFaucet(ctx, platform.FaucetRequest{
				Network: p.Network().ID,
				Address: p.Address().Hex(),
				Token:   asset,
			})
			if err != nil {
				opts := []xerrors.Option{xerrors.WithMetadata("tool", "request_faucet_funds")}
				if se, ok := err.(*platform.StatusError); ok && se.Retryable() {
					opts = append(opts, xerrors.WithRetryable(true))
				}
				return "", xerrors.Wrap(xerrors.CodeToolFailure, err, "请求水龙头失败", opts...)
			}
			return fmt.Sprintf("Received %s from the faucet. Transaction hash: %s", asset, result.TransactionHash), nil
		},
	}}
}
