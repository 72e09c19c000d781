package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNamedAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	UseWriter(&buf)

	Named("session").Info("wallet saved", "address", "0xabc")

	out := buf.String()
	if !strings.Contains(out, "component=session") || !strings.Contains(out, "address=0xabc") {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestInitWritesAuditToFile(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit", "audit.log")

	if err := Init(Config{Outputs: []string{"discard"}, Audit: AuditConfig{Enabled: true, Path: auditPath}}); err != nil {
		t.Fatalf("init logger: %v", err)
	}
	t.Cleanup(func() { _ = Sync() })

	Audit().Info("wallet_saved", "network_id", "base-sepolia")
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	content, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(content), `"network_id":"base-sepolia"`) {
		t.Fatalf("audit entry missing: %s", content)
	}
}

func TestNewAuditWriterAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.log")
	w, err := newAuditWriter(AuditConfig{Path: path})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	if w.MaxSize != 50 || w.MaxBackups != 5 || w.MaxAge != 30 {
		t.Fatalf("unexpected rotation settings: %+v", w)
	}
	if _, err := w.Write([]byte("entry\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

func TestNewAuditWriterRequiresPath(t *testing.T) {
	if _, err := newAuditWriter(AuditConfig{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "WARNING": "WARN", "error": "ERROR", "": "INFO"}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
