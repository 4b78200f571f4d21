package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	DefaultLLM      string                  `toml:"default_llm"`
	LLMs            map[string]*LLMConfig   `toml:"llm"`
	Gateway         GatewayConfig           `toml:"gateway"`
	Agents          map[string]*AgentConfig `toml:"agents"`
	CustomMaxSteps  int                     `toml:"custom_max_steps"`
	ToolConcurrency int                     `toml:"tool_concurrency"`
	DB              DBConfig                `toml:"db"`
	Trace           TraceConfig             `toml:"trace"`
	Metrics         MetricsConfig           `toml:"metrics"`
	Services        ServicesConfig          `toml:"services"`
	Log             LogConfig               `toml:"log"`
}

type LLMConfig struct {
	Type      string `toml:"type"` // openai, chat, anthropic, gemini or simulated
	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	MaxTokens int64  `toml:"max_tokens"`
}

type GatewayConfig struct {
	Addr           string   `toml:"addr"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// AgentConfig overrides the built-in settings of one agent type.
type AgentConfig struct {
	Model       string   `toml:"model"`
	Temperature *float64 `toml:"temperature"`
	MaxSteps    int      `toml:"max_steps"`
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

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

type ServicesConfig struct {
	Brave BraveConfig `toml:"brave"`
}

type BraveConfig struct {
	APIKey string `toml:"api_key"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Duration decodes TOML strings such as "90s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load reads .env files, then the TOML config at path (or the default
// location when path is empty), on top of built-in defaults.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = configPath()
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present. Without an
// OpenAI key the default LLM is the offline simulated provider.
func Default() *Config {
	defaultLLM := "simulated"
	if os.Getenv("OPENAI_API_KEY") != "" {
		defaultLLM = "openai"
	}
	return &Config{
		DefaultLLM: defaultLLM,
		LLMs: map[string]*LLMConfig{
			"openai": {
				Type:  "openai",
				Model: "gpt-4o",
			},
			"simulated": {
				Type:  "simulated",
				Model: "simulated",
			},
		},
		Gateway: GatewayConfig{
			Addr:           ":8484",
			RequestTimeout: Duration{2 * time.Minute},
		},
		Agents:          map[string]*AgentConfig{},
		CustomMaxSteps:  5,
		ToolConcurrency: 4,
		DB: DBConfig{
			Path: defaultDBPath(),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	llm, ok := c.LLMs[c.DefaultLLM]
	if !ok {
		return fmt.Errorf("default LLM %q not found in config", c.DefaultLLM)
	}
	if llm.Type == "" {
		return fmt.Errorf("llm %q: type is required", c.DefaultLLM)
	}
	if c.CustomMaxSteps <= 0 {
		return fmt.Errorf("custom_max_steps must be positive, got %d", c.CustomMaxSteps)
	}
	if c.ToolConcurrency <= 0 {
		return fmt.Errorf("tool_concurrency must be positive, got %d", c.ToolConcurrency)
	}
	for name, a := range c.Agents {
		if a.MaxSteps < 0 {
			return fmt.Errorf("agents.%s: max_steps must not be negative", name)
		}
	}
	return nil
}

// LLM returns the named LLM config, or the default one when name is empty.
func (c *Config) LLM(name string) (*LLMConfig, error) {
	if name == "" {
		name = c.DefaultLLM
	}
	l, ok := c.LLMs[name]
	if !ok {
		return nil, fmt.Errorf("LLM %q not found in config", name)
	}
	return l, nil
}

func (c *Config) applyEnv() {
	for _, l := range c.LLMs {
		if l.APIKey != "" {
			continue
		}
		switch l.Type {
		case "openai", "chat":
			l.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			l.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini":
			l.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if c.Services.Brave.APIKey == "" {
		c.Services.Brave.APIKey = os.Getenv("BRAVE_API_KEY")
	}
}

func loadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}
	return nil
}

func configPath() string {
	dir, _ := os.UserConfigDir()
	return filepath.Join(dir, "agentsmith", "config.toml")
}

func defaultDBPath() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".local", "share", "agentsmith", "agentsmith.db")
}
