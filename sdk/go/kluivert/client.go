package kluivert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// DefaultHTTPTimeout is used by clients created without a custom http.Client.
// Agent turns call a language model and chain RPCs, so it is generous.
const DefaultHTTPTimeout = 3 * time.Minute

// Client wraps the HTTP interactions with the Kluivert agent daemon.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// AgentInfo describes an initialized agent session.
type AgentInfo struct {
	Model         string   `json:"model"`
	Tools         []string `json:"tools"`
	WalletID      string   `json:"wallet_id,omitempty"`
	WalletAddress string   `json:"wallet_address"`
	NetworkID     string   `json:"network_id"`
	Resumed       bool     `json:"resumed"`
}

// SessionConfig carries the conversation thread of a session.
type SessionConfig struct {
	ThreadID string `json:"thread_id"`
}

// Session is returned by InitAgent.
type Session struct {
	Agent  AgentInfo     `json:"agent"`
	Config SessionConfig `json:"config"`
}

// APIError represents a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("kluivert api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the daemon at rawURL. When httpClient is
// nil, a default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) *Client {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		panic(fmt.Sprintf("invalid base url: %v", err))
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}
}

// Chat sends one user message and returns the agent's reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	if err := c.post(ctx, "/agent-chat", map[string]string{"message": message}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Auto runs a single autonomous iteration.
func (c *Client) Auto(ctx context.Context) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	if err := c.post(ctx, "/agent-auto", struct{}{}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// InitAgent initializes a session and returns its description.
func (c *Client) InitAgent(ctx context.Context) (Session, error) {
	var out Session
	if err := c.post(ctx, "/init-agent", struct{}{}, &out); err != nil {
		return Session{}, err
	}
	return out, nil
}

// Health reports whether the daemon is serving requests.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		_ = json.Unmarshal(data, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return &apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
