package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Copilot.Endpoint != "/api/copilot/stream" {
		t.Errorf("Copilot.Endpoint = %q", cfg.Copilot.Endpoint)
	}
	if cfg.Gateway.Addr != ":8000" {
		t.Errorf("Gateway.Addr = %q", cfg.Gateway.Addr)
	}
	if cfg.Trace.Enabled {
		t.Error("Trace.Enabled = true, want false by default")
	}
}

func TestLoadFileOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[copilot]
base_url = "http://review.internal:9000"
history_turns = 3

[gateway]
replay = "testdata/approve.ndjson"

[llm]
model = "gpt-4.1"

[trace]
enabled = true
endpoint = "localhost:4318"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Copilot.BaseURL != "http://review.internal:9000" {
		t.Errorf("Copilot.BaseURL = %q", cfg.Copilot.BaseURL)
	}
	if cfg.Copilot.Endpoint != "/api/copilot/stream" {
		t.Errorf("Copilot.Endpoint = %q, want default kept", cfg.Copilot.Endpoint)
	}
	if cfg.Copilot.HistoryTurns != 3 {
		t.Errorf("Copilot.HistoryTurns = %d, want 3", cfg.Copilot.HistoryTurns)
	}
	if cfg.Gateway.Replay != "testdata/approve.ndjson" {
		t.Errorf("Gateway.Replay = %q", cfg.Gateway.Replay)
	}
	if cfg.LLM.Model != "gpt-4.1" || cfg.LLM.APIKey != "from-env" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if !cfg.Trace.Enabled || cfg.Trace.Endpoint != "localhost:4318" {
		t.Errorf("Trace = %+v", cfg.Trace)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[copilot\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() error = nil, want parse error")
	}
}
