package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Kluivert-Agent/internal/config"
	"Kluivert-Agent/internal/web3"
	"Kluivert-Agent/pkg/logger"
)

func TestReportMissingPrintsPlaceholders(t *testing.T) {
	_, _, err := config.ValidateEnvironment(func(string) (string, bool) { return "", false })

	var buf bytes.Buffer
	ReportMissing(&buf, err)
	out := buf.String()
	for _, line := range []string{
		"OPENAI_API_KEY=your_openai_api_key_here",
		"CDP_API_KEY_NAME=your_cdp_api_key_name_here",
		"CDP_API_KEY_PRIVATE_KEY=your_cdp_api_key_private_key_here",
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("missing %q in output:\n%s", line, out)
		}
	}
}

func TestLoadEnvFilesKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("KLUIVERT_TEST_A=from-file\nKLUIVERT_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("KLUIVERT_TEST_A", "preset")

	if err := LoadEnvFiles(path, filepath.Join(dir, "absent.env")); err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("KLUIVERT_TEST_B") })
	if os.Getenv("KLUIVERT_TEST_A") != "preset" || os.Getenv("KLUIVERT_TEST_B") != "from-file" {
		t.Fatalf("unexpected env: A=%q B=%q", os.Getenv("KLUIVERT_TEST_A"), os.Getenv("KLUIVERT_TEST_B"))
	}
}

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/kluivert.json")
	if ConfigPath() != "/etc/kluivert.json" {
		t.Fatalf("unexpected path %q", ConfigPath())
	}
}

func TestBootstrapWithDefaults(t *testing.T) {
	dir := t.TempDir()
	creds := config.Credentials{OpenAIAPIKey: "sk", PlatformKeyName: "k", PlatformPrivateKey: "p", NetworkID: "base-sepolia"}

	a, err := Bootstrap(context.Background(), creds, filepath.Join(dir, "kluivert.json"))
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer a.Close()

	if a.Factory == nil || a.Publisher == nil || a.Publisher.Len() != 1 {
		t.Fatalf("components not wired: %+v", a)
	}
	if a.Factory.ThreadID() != config.DefaultThreadID {
		t.Fatalf("unexpected thread id %q", a.Factory.ThreadID())
	}
	if _, err := os.Stat(filepath.Join(dir, "data")); err != nil {
		t.Fatalf("data dir not created: %v", err)
	}
}

func TestDialChainLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger.UseWriter(&buf)

	client, err := dialChain(context.Background(), web3.Network{ID: "base-sepolia", ChainID: 84532})
	if err == nil || client != nil {
		t.Fatalf("expected dial without rpc url to fail, got %v %v", client, err)
	}
	if out := buf.String(); !strings.Contains(out, "component=web3") || !strings.Contains(out, "network=base-sepolia") {
		t.Fatalf("dial failure not logged: %s", out)
	}
}
