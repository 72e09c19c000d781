package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestObserveHTTPRequestExposesCounters(t *testing.T) {
	ObserveHTTPRequest("/agent-chat", http.MethodPost, http.StatusInternalServerError, 120*time.Millisecond)

	out := scrape(t)
	for _, want := range []string{
		`kluivert_http_requests_total{code="500",handler="/agent-chat",method="POST"}`,
		`kluivert_http_request_errors_total{handler="/agent-chat",method="POST"}`,
		`kluivert_http_request_duration_seconds_count{handler="/agent-chat",method="POST"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %s:\n%s", want, out)
		}
	}
}

func TestObserveTurnAndWalletOperations(t *testing.T) {
	ObserveTurn("auto", nil, 3, time.Second)
	ObserveTurn("auto", errors.New("boom"), 0, time.Second)
	ObserveWalletOperation("sqlite", "save", nil)

	out := scrape(t)
	for _, want := range []string{
		`kluivert_turns_total{mode="auto",outcome="ok"}`,
		`kluivert_turns_total{mode="auto",outcome="error"}`,
		`kluivert_turn_chunks_count{mode="auto"} 1`,
		`kluivert_wallet_store_operations_total{driver="sqlite",operation="save",outcome="ok"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %s:\n%s", want, out)
		}
	}
}
