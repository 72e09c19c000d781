package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	xerrors "Kluivert-Agent/internal/errors"
)

const defaultHermesURL = "https://hermes.pyth.network"

// PriceFeed 查询 Pyth Hermes 服务。
type PriceFeed struct {
	baseURL    string
	httpClient *http.Client
}

// NewPriceFeed 创建 Hermes 客户端，baseURL 为空时使用公共端点。
func NewPriceFeed(baseURL string, httpClient *http.Client) *PriceFeed {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultHermesURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &PriceFeed{baseURL: baseURL, httpClient: httpClient}
}

// FeedID 返回给定代币符号对 USD 的价格源 ID。
func (f *PriceFeed) FeedID(ctx context.Context, symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "缺少代币符号")
	}
	query := url.Values{"query": {symbol}, "asset_type": {"crypto"}}
	body, err := f.get(ctx, "/v2/price_feeds?"+query.Encode())
	if err != nil {
		return "", err
	}
	feeds := gjson.ParseBytes(body)
	if !feeds.IsArray() || len(feeds.Array()) == 0 {
		return "", xerrors.New(xerrors.CodeNotFound, fmt.Sprintf("未找到 %s 的价格源", symbol))
	}
	want := symbol + "/USD"
	for _, feed := range feeds.Array() {
		if strings.EqualFold(feed.Get("attributes.display_symbol").String(), want) {
			return feed.Get("id").String(), nil
		}
	}
	return feeds.Get("0.id").String(), nil
}

// Price 返回价格源的最新价格，已按 expo 缩放为十进制字符串。
func (f *PriceFeed) Price(ctx context.Context, feedID string) (string, error) {
	feedID = strings.TrimSpace(feedID)
	if feedID == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "缺少价格源 ID")
	}
	query := url.Values{"ids[]": {feedID}}
	body, err := f.get(ctx, "/v2/updates/price/latest?"+query.Encode())
	if err != nil {
		return "", err
	}
	parsed := gjson.GetBytes(body, "parsed.0.price")
	if !parsed.Exists() {
		return "", xerrors.New(xerrors.CodeNotFound, fmt.Sprintf("价格源 %s 没有返回价格", feedID))
	}
	return scalePrice(parsed.Get("price").String(), parsed.Get("expo").Int())
}

func (f *PriceFeed) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeToolFailure, err, "请求 Pyth 服务失败", xerrors.WithRetryable(true))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, xerrors.New(xerrors.CodeToolFailure,
			fmt.Sprintf("Pyth 服务返回 %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			xerrors.WithRetryable(resp.StatusCode >= http.StatusInternalServerError))
	}
	if !gjson.ValidBytes(body) {
		return nil, xerrors.New(xerrors.CodeToolFailure, "Pyth 服务返回的不是合法 JSON")
	}
	return body, nil
}

func scalePrice(raw string, expo int64) (string, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "", xerrors.New(xerrors.CodeToolFailure, fmt.Sprintf("价格格式错误: %q", raw))
	}
	if expo >= 0 {
		return new(big.Int).Mul(value, new(big.Int).Exp(big.NewInt(10), big.NewInt(expo), nil)).String(), nil
	}
	rat := new(big.Rat).SetFrac(value, new(big.Int).Exp(big.NewInt(10), big.NewInt(-expo), nil))
	out := rat.FloatString(int(-expo))
	if strings.Contains(out, ".") {
		out = strings.TrimRight(strings.TrimRight(out, "0"), ".")
	}
	return out, nil
}

// PythTools 返回价格源查询工具。
func PythTools(feed *PriceFeed) []Tool {
	if feed == nil {
		return nil
	}
	return []Tool{
		{
			Name: "fetch_price_feed_id",
			Description: "Fetch the price feed ID for a given token symbol from Pyth. " +
				"The ID is required by fetch_price.",
			Parameters: json.RawMessage(`{
				"type":"object",
				"properties":{"token_symbol":{"type":"string","description":"The token symbol to fetch the price feed ID for, e.g. BTC"}},
				"required":["token_symbol"]
			}`),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					TokenSymbol string `json:"token_symbol"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return "", err
				}
				return feed.FeedID(ctx, in.TokenSymbol)
			},
		},
		{
			Name: "fetch_price",
			Description: "Fetch the latest USD price for a Pyth price feed ID. " +
				"Use fetch_price_feed_id first to resolve a token symbol to its feed ID.",
			Parameters: json.RawMessage(`{
				"type":"object",
				"properties":{"price_feed_id":{"type":"string","description":"The price feed ID to fetch the price for"}},
				"required":["price_feed_id"]
			}`),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					PriceFeedID string `json:"price_feed_id"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return "", err
				}
				return feed.Price(ctx, in.PriceFeedID)
			},
		},
	}
}
