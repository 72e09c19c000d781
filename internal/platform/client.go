package platform

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	defaultBaseURL = "https://api.cdp.coinbase.com/platform"
	tokenLifetime  = 120 * time.Second
	faucetPath     = "/v2/evm/faucet"
)

// Config describes the platform API credentials.
type Config struct {
	BaseURL    string
	KeyName    string
	PrivateKey string
	HTTPClient *http.Client
	Now        func() time.Time
}

// Client calls the platform REST API, authenticating every request with a
// short-lived ES256 JWT signed by the API key.
type Client struct {
	baseURL    *url.URL
	keyName    string
	key        *ecdsa.PrivateKey
	httpClient *http.Client
	now        func() time.Time
}

// FaucetRequest asks the platform to fund an address on a testnet.
type FaucetRequest struct {
	Network string `json:"network"`
	Address string `json:"address"`
	Token   string `json:"token"`
}

// FaucetResult carries the funding transaction hash.
type FaucetResult struct {
	TransactionHash string `json:"transactionHash"`
}

// NewClient parses the PEM encoded key and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.KeyName) == "" {
		return nil, errors.New("platform key name is empty")
	}
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(cfg.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse platform private key: %w", err)
	}

	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = defaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid platform base url %q", raw)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{baseURL: base, keyName: cfg.KeyName, key: key, httpClient: httpClient, now: now}, nil
}

// RequestFaucet requests testnet funds for address.
func (c *Client) RequestFaucet(ctx context.Context, req FaucetRequest) (FaucetResult, error) {
	if req.Token == "" {
		req.Token = "eth"
	}
	var result FaucetResult
	if err := c.do(ctx, http.MethodPost, faucetPath, req, &result); err != nil {
		return FaucetResult{}, err
	}
	if result.TransactionHash == "" {
		return FaucetResult{}, errors.New("faucet response has no transaction hash")
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	token, err := c.signToken(method, endpoint.Host, endpoint.Path)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode platform response: %w", err)
	}
	return nil
}

// signToken builds the per-request JWT bound to the method, host and path.
func (c *Client) signToken(method, host, path string) (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"sub":  c.keyName,
		"iss":  "cdp",
		"nbf":  now.Unix(),
		"exp":  now.Add(tokenLifetime).Unix(),
		"uris": []string{fmt.Sprintf("%s %s%s", method, host, path)},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = c.keyName
	nonce, err := randomNonce()
	if err != nil {
		return "", err
	}
	token.Header["nonce"] = nonce

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign platform token: %w", err)
	}
	return signed, nil
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("platform returned status %d: %s", e.Status, e.Body)
}

// Retryable reports whether the failure was a server side error.
func (e *StatusError) Retryable() bool {
	return e.Status >= http.StatusInternalServerError
}
