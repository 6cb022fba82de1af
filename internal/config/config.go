package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ohess/newsroom/internal/domain"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Locales     []LocaleConfig `yaml:"locales"`
	Oracle      Oracle         `yaml:"oracle"`
	Pipeline    Pipeline       `yaml:"pipeline"`
	Fabrication Fabrication    `yaml:"fabrication"`
	Output      Output         `yaml:"output"`
	Server      Server         `yaml:"server"`
	Logging     Logging        `yaml:"logging"`
}

// LocaleConfig describes one target market and its upstream feeds.
type LocaleConfig struct {
	Country  string `yaml:"country"`
	Language string `yaml:"language"`
	Feeds    []Feed `yaml:"feeds"`
}

// Locale returns the domain form of the locale.
func (lc LocaleConfig) Locale() domain.Locale {
	return domain.Locale{Country: lc.Country, Language: lc.Language}
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// Oracle selects and configures the LLM backend shared by all oracles.
type Oracle struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	OllamaURL       string `yaml:"ollama_url"`
	OpenAIModel     string `yaml:"openai_model"`
	OpenAIKeyEnv    string `yaml:"openai_key_env"`
	AnthropicKeyEnv string `yaml:"anthropic_key_env"`
	MaxTokens       int    `yaml:"max_tokens"`
}

type Pipeline struct {
	IntervalHours            int  `yaml:"interval_hours"`
	DedupWindowHours         int  `yaml:"dedup_window_hours"`
	CorpusLimit              int  `yaml:"corpus_limit"`
	ReconcileBatch           int  `yaml:"reconcile_batch"`
	ClassifyBatch            int  `yaml:"classify_batch"`
	PublishBatch             int  `yaml:"publish_batch"`
	ReconcileMarksDuplicates bool `yaml:"reconcile_marks_duplicates"`
}

// Interval returns the scheduler cadence.
func (p Pipeline) Interval() time.Duration {
	return time.Duration(p.IntervalHours) * time.Hour
}

// DedupWindow returns how far back the comparison corpus reaches.
func (p Pipeline) DedupWindow() time.Duration {
	return time.Duration(p.DedupWindowHours) * time.Hour
}

type Fabrication struct {
	MinBaseline int `yaml:"min_baseline"`
	SampleSize  int `yaml:"sample_size"`
	RealPerFake int `yaml:"real_per_fake"`
	MaxPerRun   int `yaml:"max_per_run"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for newsroom.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsroom")
}

// DataDir returns the XDG data directory for newsroom.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newsroom")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsroom/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newsroom init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Oracle: Oracle{
			Provider:        "ollama",
			Model:           "qwen2.5:7b",
			OllamaURL:       "http://localhost:11434",
			OpenAIModel:     "gpt-4o-mini",
			OpenAIKeyEnv:    "OPENAI_API_KEY",
			AnthropicKeyEnv: "ANTHROPIC_API_KEY",
			MaxTokens:       1024,
		},
		Pipeline: Pipeline{
			IntervalHours:            2,
			DedupWindowHours:         48,
			CorpusLimit:              25,
			ReconcileBatch:           50,
			ClassifyBatch:            50,
			PublishBatch:             20,
			ReconcileMarksDuplicates: true,
		},
		Fabrication: Fabrication{
			MinBaseline: 10,
			SampleSize:  10,
			RealPerFake: 9,
			MaxPerRun:   3,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// DomainLocales returns the configured target locales in order.
func (c *Config) DomainLocales() []domain.Locale {
	out := make([]domain.Locale, len(c.Locales))
	for i, lc := range c.Locales {
		out[i] = lc.Locale()
	}
	return out
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
