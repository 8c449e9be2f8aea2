package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Copilot CopilotConfig `toml:"copilot"`
	Gateway GatewayConfig `toml:"gateway"`
	LLM     LLMConfig     `toml:"llm"`
	DB      DBConfig      `toml:"db"`
	Trace   TraceConfig   `toml:"trace"`
}

type CopilotConfig struct {
	BaseURL  string `toml:"base_url"`
	Endpoint string `toml:"endpoint"`
	// HistoryTurns caps how many earlier turns are sent with a question.
	HistoryTurns int `toml:"history_turns"`
}

type GatewayConfig struct {
	Addr string `toml:"addr"`
	// Replay is an NDJSON transcript served instead of asking the LLM.
	Replay string `toml:"replay"`
}

type LLMConfig struct {
	Model        string `toml:"model"`
	BaseURL      string `toml:"base_url"`
	APIKey       string `toml:"api_key"`
	SystemPrompt string `toml:"system_prompt"`
}

type DBConfig struct {
	Path string `toml:"path"`
}

type TraceConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	URLPath  string `toml:"url_path"`
	APIKey   string `toml:"api_key"`
}

func Default() *Config {
	return &Config{
		Copilot: CopilotConfig{
			BaseURL:      "http://localhost:8000",
			Endpoint:     "/api/copilot/stream",
			HistoryTurns: 10,
		},
		Gateway: GatewayConfig{
			Addr: ":8000",
		},
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			BaseURL: "https://api.openai.com/v1",
		},
		DB: DBConfig{
			Path: defaultDBPath(),
		},
	}
}

// Load reads the config file if it exists, on top of the defaults.
func Load() (*Config, error) {
	return LoadFile(configPath())
}

func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

func configPath() string {
	if p := os.Getenv("DCC_CONFIG"); p != "" {
		return p
	}
	dir, _ := os.UserConfigDir()
	return filepath.Join(dir, "dcc", "config.toml")
}

func defaultDBPath() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".local", "share", "dcc", "dcc.db")
}
