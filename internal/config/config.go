package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LLMConfig selects the reasoning service used by the interpreter.
type LLMConfig struct {
	// Provider is one of "openai", "ollama", "anthropic", "gemini".
	Provider    string  `yaml:"provider" json:"provider"`
	Model       string  `yaml:"model" json:"model"`
	BaseURL     string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty" json:"-"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
}

// User is a basic-auth principal. The username doubles as the data owner key.
type User struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

type TelegramConfig struct {
	Token string `yaml:"token,omitempty" json:"-"`
	// User is the owner whose calendar receives events created from chat.
	User         string  `yaml:"user" json:"user"`
	AllowedChats []int64 `yaml:"allowed_chats,omitempty" json:"allowed_chats,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	Listen   string `yaml:"listen" json:"listen"`
	DataDir  string `yaml:"data_dir" json:"data_dir"`
	Timezone string `yaml:"timezone" json:"timezone"`
	// Language is the fallback language ("ru" or "en") when the utterance gives no hint.
	Language string    `yaml:"language" json:"language"`
	LLM      LLMConfig `yaml:"llm" json:"llm"`

	// Users enables HTTP Basic Auth on every endpoint except /health when non-empty.
	Users []User `yaml:"users,omitempty" json:"-"`

	DisabledMiddlewares []string `yaml:"disabled_middlewares,omitempty" json:"disabled_middlewares,omitempty"`

	// RecurringCron schedules materialization of due recurring transactions.
	RecurringCron string `yaml:"recurring_cron" json:"recurring_cron"`

	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`
	LogLevel string         `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		DataDir:  "./data",
		Timezone: "Local",
		Language: "ru",
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.5,
			MaxTokens:   1000,
		},
		RecurringCron: "0 5 * * *",
		Telegram:      TelegramConfig{User: "local"},
		LogLevel:      "info",
	}
}

// Normalize fills in missing or out-of-range values.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	switch c.Language {
	case "ru", "en":
	default:
		c.Language = d.Language
	}
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = d.LLM.Provider
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		c.LLM.Temperature = d.LLM.Temperature
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = d.LLM.MaxTokens
	}
	if c.RecurringCron == "" {
		c.RecurringCron = d.RecurringCron
	}
	if c.Telegram.User == "" {
		c.Telegram.User = d.Telegram.User
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Load reads the YAML config at path, writing defaults on first run, then
// applies .env and PLANOS_* environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()
	cfg.ApplyEnv(os.Getenv)
	cfg.Normalize()
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.Listen, "PLANOS_LISTEN")
	set(&c.DataDir, "PLANOS_DATA_DIR")
	set(&c.Timezone, "PLANOS_TIMEZONE")
	set(&c.Language, "PLANOS_LANGUAGE")
	set(&c.LLM.Provider, "PLANOS_LLM_PROVIDER")
	set(&c.LLM.Model, "PLANOS_LLM_MODEL")
	set(&c.LLM.BaseURL, "PLANOS_LLM_BASE_URL")
	set(&c.LLM.APIKey, "PLANOS_LLM_API_KEY", "OPENAI_API_KEY")
	set(&c.Telegram.Token, "PLANOS_TELEGRAM_TOKEN")
	set(&c.LogLevel, "PLANOS_LOG_LEVEL")

	if v := getenv("PLANOS_LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LLM.MaxTokens = n
		}
	}
	if v := getenv("PLANOS_DISABLED_MIDDLEWARES"); v != "" {
		c.DisabledMiddlewares = c.DisabledMiddlewares[:0]
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				c.DisabledMiddlewares = append(c.DisabledMiddlewares, id)
			}
		}
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".planos-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
