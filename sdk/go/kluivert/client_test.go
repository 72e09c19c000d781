package kluivert

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatPostsMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/agent-chat" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["message"] != "hello" {
			t.Fatalf("unexpected body: %v %v", body, err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "hi there"})
	}))
	defer srv.Close()

	reply, err := NewClient(srv.URL+"/api", srv.Client()).Chat(context.Background(), "hello")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "hi there" {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestInitAgentDecodesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"agent":{"model":"gpt-4o-mini","tools":["get_balance"],"wallet_address":"0xabc","network_id":"base-sepolia"},"config":{"thread_id":"t-1"}}`))
	}))
	defer srv.Close()

	s, err := NewClient(srv.URL, srv.Client()).InitAgent(context.Background())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if s.Config.ThreadID != "t-1" || s.Agent.WalletAddress != "0xabc" || len(s.Agent.Tools) != 1 {
		t.Fatalf("unexpected session: %+v", s)
	}
}

func TestErrorsAreDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"turn execution failed"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Auto(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Message != "turn execution failed" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, srv.Client()).Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}
