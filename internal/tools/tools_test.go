package tools

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/platform"
	"Kluivert-Agent/internal/wallet"
	"Kluivert-Agent/internal/web3"
)

const usdc = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"

type fakeChain struct {
	balance   *big.Int
	token     web3.TokenBalance
	transfers []string
	nonce     uint64
}

func (f *fakeChain) ChainID(context.Context) (*big.Int, error) { return big.NewInt(84532), nil }

func (f *fakeChain) FetchChainSnapshot(context.Context) (web3.ChainSnapshot, error) {
	return web3.ChainSnapshot{ChainID: "0x14a34", BlockNumber: "0x10"}, nil
}

func (f *fakeChain) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeChain) tx(to common.Address, amount *big.Int) *types.Transaction {
	f.nonce++
	return types.NewTx(&types.LegacyTx{Nonce: f.nonce, To: &to, Value: amount, Gas: 21000, GasPrice: big.NewInt(1)})
}

func (f *fakeChain) TransferNative(_ context.Context, _ *bind.TransactOpts, to common.Address, amount *big.Int) (*types.Transaction, error) {
	f.transfers = append(f.transfers, "native:"+to.Hex()+":"+amount.String())
	return f.tx(to, amount), nil
}

func (f *fakeChain) ERC20Balance(_ context.Context, token, _ common.Address) (web3.TokenBalance, error) {
	b := f.token
	b.Contract = token
	return b, nil
}

func (f *fakeChain) TransferERC20(_ context.Context, _ *bind.TransactOpts, token, to common.Address, amount *big.Int) (*types.Transaction, error) {
	f.transfers = append(f.transfers, "erc20:"+to.Hex()+":"+amount.String())
	return f.tx(token, big.NewInt(0)), nil
}

func (f *fakeChain) DepositWETH(_ context.Context, _ *bind.TransactOpts, weth common.Address, amount *big.Int) (*types.Transaction, error) {
	f.transfers = append(f.transfers, "weth:"+amount.String())
	return f.tx(weth, amount), nil
}

func (f *fakeChain) WaitMined(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
}

func (f *fakeChain) Close() {}

func newTestProvider(t *testing.T, chain web3.Client) *wallet.Provider {
	t.Helper()
	p, err := wallet.NewProvider(context.Background(), wallet.ProviderConfig{
		Network: web3.Network{
			ID:           "base-sepolia",
			ChainID:      84532,
			NativeSymbol: "ETH",
			WETH:         "0x4200000000000000000000000000000000000006",
			Faucet:       true,
		},
		Client: chain,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func newChain() *fakeChain {
	return &fakeChain{
		balance: big.NewInt(1_500_000_000_000_000_000),
		token:   web3.TokenBalance{Symbol: "USDC", Decimals: 6, Amount: big.NewInt(5_000_000)},
	}
}

func invoke(t *testing.T, set *Set, name, args string) (string, error) {
	t.Helper()
	tool, ok := set.Lookup(name)
	if !ok {
		t.Fatalf("tool %s not registered", name)
	}
	return tool.Invoke(context.Background(), json.RawMessage(args))
}

func TestToolkitBuildRegistersAllGroups(t *testing.T) {
	set, err := Toolkit{
		Wallet:    newTestProvider(t, newChain()),
		PriceFeed: NewPriceFeed("", nil),
		Faucet:    &stubFaucet{},
	}.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []string{
		"get_wallet_details", "get_balance", "native_transfer",
		"get_erc20_balance", "erc20_transfer", "wrap_eth",
		"fetch_price_feed_id", "fetch_price", "request_faucet_funds",
	}
	if got := set.Names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected tools: %v", got)
	}
	for _, def := range set.Definitions() {
		if !json.Valid(def.Parameters) {
			t.Fatalf("tool %s has invalid parameters schema", def.Name)
		}
	}
}

func TestNewSetRejectsDuplicates(t *testing.T) {
	tool := Tool{Name: "dup"}
	if _, err := NewSet([]Tool{tool}, []Tool{tool}); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestInvokeWrapsPlainErrors(t *testing.T) {
	tool := Tool{Name: "broken", Handler: func(context.Context, json.RawMessage) (string, error) {
		return "", errors.New("boom")
	}}
	_, err := tool.Invoke(context.Background(), nil)
	if xerrors.CodeOf(err) != xerrors.CodeToolFailure {
		t.Fatalf("expected tool failure, got %v", err)
	}
}

func TestWalletDetailsAndBalance(t *testing.T) {
	p := newTestProvider(t, newChain())
	set, _ := NewSet(WalletTools(p))

	out, err := invoke(t, set, "get_wallet_details", "")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	for _, want := range []string{p.Address().Hex(), "base-sepolia", "84532", "1.5 ETH"} {
		if !strings.Contains(out, want) {
			t.Fatalf("details missing %q: %s", want, out)
		}
	}

	out, err = invoke(t, set, "get_balance", "{}")
	if err != nil || !strings.Contains(out, "1.5 ETH") {
		t.Fatalf("unexpected balance output %q: %v", out, err)
	}
}

func TestNativeTransfer(t *testing.T) {
	chain := newChain()
	set, _ := NewSet(WalletTools(newTestProvider(t, chain)))
	to := "0x00000000000000000000000000000000000000aa"

	out, err := invoke(t, set, "native_transfer", `{"to":"`+to+`","value":"0.01"}`)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !strings.Contains(out, "Transaction hash: 0x") {
		t.Fatalf("unexpected output: %s", out)
	}
	if len(chain.transfers) != 1 || chain.transfers[0] != "native:"+common.HexToAddress(to).Hex()+":10000000000000000" {
		t.Fatalf("unexpected transfers: %v", chain.transfers)
	}

	if _, err := invoke(t, set, "native_transfer", `{"to":"nope","value":"1"}`); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid address error, got %v", err)
	}
}

func TestERC20BalanceAndTransfer(t *testing.T) {
	chain := newChain()
	set, _ := NewSet(ERC20Tools(newTestProvider(t, chain)))

	out, err := invoke(t, set, "get_erc20_balance", `{"contract_address":"`+usdc+`"}`)
	if err != nil || !strings.Contains(out, "5 USDC") {
		t.Fatalf("unexpected balance %q: %v", out, err)
	}

	dest := "0x00000000000000000000000000000000000000bb"
	if _, err := invoke(t, set, "erc20_transfer",
		`{"amount":"1.25","contract_address":"`+usdc+`","destination":"`+dest+`"}`); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if chain.transfers[0] != "erc20:"+common.HexToAddress(dest).Hex()+":1250000" {
		t.Fatalf("unexpected transfer: %v", chain.transfers)
	}

	_, err = invoke(t, set, "erc20_transfer",
		`{"amount":"10","contract_address":"`+usdc+`","destination":"`+dest+`"}`)
	if xerrors.CodeOf(err) != xerrors.CodeInvalidArgument || len(chain.transfers) != 1 {
		t.Fatalf("expected insufficient balance error, got %v", err)
	}
}

func TestWrapETH(t *testing.T) {
	chain := newChain()
	set, _ := NewSet(WETHTools(newTestProvider(t, chain)))
	if _, err := invoke(t, set, "wrap_eth", `{"amount_to_wrap":"0.5"}`); err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if chain.transfers[0] != "weth:500000000000000000" {
		t.Fatalf("unexpected deposit: %v", chain.transfers)
	}
}

func TestWETHToolsSkippedWithoutContract(t *testing.T) {
	p, err := wallet.NewProvider(context.Background(), wallet.ProviderConfig{Network: web3.Network{ID: "devnet"}})
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	if tools := WETHTools(p); len(tools) != 0 {
		t.Fatalf("expected no weth tools, got %d", len(tools))
	}
}

func TestPythFeedIDAndPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/price_feeds":
			if r.URL.Query().Get("query") != "BTC" || r.URL.Query().Get("asset_type") != "crypto" {
				http.Error(w, "bad query", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`[
				{"id":"aaa","attributes":{"display_symbol":"WBTC/USD"}},
				{"id":"bbb","attributes":{"display_symbol":"BTC/USD"}}
			]`))
		case "/v2/updates/price/latest":
			if r.URL.Query().Get("ids[]") != "bbb" {
				http.Error(w, "bad id", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"parsed":[{"id":"bbb","price":{"price":"6512345678900","expo":-8}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	set, _ := NewSet(PythTools(NewPriceFeed(srv.URL, srv.Client())))
	id, err := invoke(t, set, "fetch_price_feed_id", `{"token_symbol":"btc"}`)
	if err != nil || id != "bbb" {
		t.Fatalf("feed id: %q %v", id, err)
	}
	price, err := invoke(t, set, "fetch_price", `{"price_feed_id":"bbb"}`)
	if err != nil || price != "65123.456789" {
		t.Fatalf("price: %q %v", price, err)
	}
}

func TestPythServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewPriceFeed(srv.URL, srv.Client()).Price(context.Background(), "bbb")
	if xerrors.CodeOf(err) != xerrors.CodeToolFailure || !xerrors.RetryableError(err) {
		t.Fatalf("expected retryable tool failure, got %v", err)
	}
}

func TestScalePrice(t *testing.T) {
	cases := []struct {
		raw  string
		expo int64
		want string
	}{
		{"100000000", -8, "1"},
		{"123", 2, "12300"},
		{"5", -3, "0.005"},
	}
	for _, tc := range cases {
		got, err := scalePrice(tc.raw, tc.expo)
		if err != nil || got != tc.want {
			t.Fatalf("scalePrice(%s, %d) = %q, %v; want %q", tc.raw, tc.expo, got, err, tc.want)
		}
	}
}

type stubFaucet struct {
	requests []platform.FaucetRequest
	err      error
}

func (s *stubFaucet) RequestFaucet(_ context.Context, req platform.FaucetRequest) (platform.FaucetResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return platform.FaucetResult{}, s.err
	}
	return platform.FaucetResult{TransactionHash: "0xfeed"}, nil
}

func TestFaucetRequestsDefaultAsset(t *testing.T) {
	faucet := &stubFaucet{}
	p := newTestProvider(t, newChain())
	set, _ := NewSet(FaucetTools(p, faucet))

	out, err := invoke(t, set, "request_faucet_funds", `{}`)
	if err != nil || !strings.Contains(out, "0xfeed") {
		t.Fatalf("faucet: %q %v", out, err)
	}
	if req := faucet.requests[0]; req.Token != "eth" || req.Network != "base-sepolia" || req.Address != p.Address().Hex() {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestFaucetFailureIsToolFailure(t *testing.T) {
	faucet := &stubFaucet{err: &platform.StatusError{Status: http.StatusServiceUnavailable, Body: "busy"}}
	set, _ := NewSet(FaucetTools(newTestProvider(t, newChain()), faucet))
	_, err := invoke(t, set, "request_faucet_funds", `{"asset_id":"usdc"}`)
	if xerrors.CodeOf(err) != xerrors.CodeToolFailure || !xerrors.RetryableError(err) {
		t.Fatalf("expected retryable tool failure, got %v", err)
	}
}

func TestFaucetToolsSkippedOnMainnet(t *testing.T) {
	p, _ := wallet.NewProvider(context.Background(), wallet.ProviderConfig{Network: web3.Network{ID: "base-mainnet", ChainID: 8453}})
	if tools := FaucetTools(p, &stubFaucet{}); len(tools) != 0 {
		t.Fatalf("expected no faucet tools on mainnet")
	}
}
