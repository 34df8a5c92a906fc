package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Package config handles loading, defaults, and persistence of the cmd-ai settings file.

// Config holds the application configuration. The file on disk is JSON; it is
// decoded with a YAML parser so hand-written YAML works as well.
type Config struct {
	Model            string `yaml:"model" json:"model"`
	URL              string `yaml:"url" json:"url"`
	Type             string `yaml:"type" json:"type"`
	PromptPrefix     string `yaml:"prompt_prefix" json:"prompt_prefix"`
	AutoRunPrompt    *bool  `yaml:"auto_run_prompt" json:"auto_run_prompt"`
	TimeoutSeconds   int    `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
	HistoryLimit     int    `yaml:"history_limit,omitempty" json:"history_limit,omitempty"`
	ContextExchanges int    `yaml:"context_exchanges,omitempty" json:"context_exchanges,omitempty"`

	Exec struct {
		Mode  string `yaml:"mode,omitempty" json:"mode,omitempty"`   // capture or pty
		Shell string `yaml:"shell,omitempty" json:"shell,omitempty"` // Optional: force a specific shell
	} `yaml:"exec,omitempty" json:"exec,omitempty"`

	Log struct {
		Level string `yaml:"level,omitempty" json:"level,omitempty"` // debug, info, warn, error
		File  string `yaml:"file,omitempty" json:"file,omitempty"`
	} `yaml:"log,omitempty" json:"log,omitempty"`
}

const (
	DefaultModel  = "phi4:latest"
	DefaultURL    = "http://localhost:11434/api"
	DefaultType   = "ollama"
	DefaultPrompt = "You are a helpful assistant that provides accurate bash commands for Linux. " +
		"ONLY output the command. The command MUST be enclosed in a bash markdown code block " +
		"(e.g., ```bash\\ncommand --option\\n```). " +
		"Do NOT provide any explanation or any other text outside the code block unless explicitly asked. " +
		"If you cannot provide a command, explain why in plain text without any code blocks."

	defaultTimeoutSeconds   = 120
	defaultHistoryLimit     = 20
	defaultContextExchanges = 5
	defaultLogLevel         = "info"

	ExecModeCapture = "capture"
	ExecModePty     = "pty"

	configFileName   = ".cmd_ai_config.json"
	historyFileName  = ".cmd_ai_history.json"
	readlineFileName = ".cmd_ai_readline_history"
	logFileName      = ".cmd_ai.log"

	envConfigPath = "CMDAI_CONFIG"
	envModel      = "CMDAI_MODEL"
	envURL        = "CMDAI_URL"
)

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// AutoRun reports whether the user should be offered to execute extracted commands.
func (c *Config) AutoRun() bool {
	return c.AutoRunPrompt == nil || *c.AutoRunPrompt
}

// SetAutoRun sets the run-command prompt toggle.
func (c *Config) SetAutoRun(on bool) {
	c.AutoRunPrompt = &on
}

// ExecMode returns the normalized execution mode.
func (c *Config) ExecMode() string {
	if strings.EqualFold(c.Exec.Mode, ExecModePty) {
		return ExecModePty
	}
	return ExecModeCapture
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	if c.AutoRunPrompt != nil {
		v := *c.AutoRunPrompt
		cp.AutoRunPrompt = &v
	}
	return &cp
}

// Load reads the configuration at path. It always returns a usable config;
// the error, when non-nil, is a warning describing why defaults were used.
// A missing file is created with default settings.
func Load(path string) (*Config, error) {
	cfg, err := loadFromFile(path)
	if err == nil {
		applyDefaults(cfg)
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	defaults := Default()
	defaults.applyEnvOverrides()

	if !os.IsNotExist(errors.Cause(err)) {
		return defaults, errors.Wrapf(err, "using default configuration, could not load %s", path)
	}

	// No config file yet: write the defaults so the user has something to edit.
	if saveErr := Default().Save(path); saveErr != nil {
		return defaults, errors.Wrapf(saveErr, "config file %s not found; using in-memory defaults for this session", path)
	}
	return defaults, nil
}

func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err // Propagate error (including os.IsNotExist)
	}

	// JSON first (it may be tab-indented, which YAML rejects), then YAML.
	decode := json.Unmarshal
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		if yamlErr := yaml.Unmarshal(data, &raw); yamlErr != nil {
			return nil, errors.Wrapf(err, "failed to decode config %s", filePath)
		}
		decode = yaml.Unmarshal
	}
	if _, ok := raw.(map[string]interface{}); !ok {
		return nil, fmt.Errorf("config file %s does not contain a valid JSON object", filePath)
	}

	var cfg Config
	if err := decode(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config %s", filePath)
	}
	return &cfg, nil
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create config directory %s", dir)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write config %s", path)
	}
	return nil
}

// applyDefaults ensures essential fields have default values if not set.
func applyDefaults(cfg *Config) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Type == "" {
		cfg.Type = DefaultType
	}
	if cfg.PromptPrefix == "" {
		cfg.PromptPrefix = DefaultPrompt
	}
	if cfg.AutoRunPrompt == nil {
		cfg.SetAutoRun(true)
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultTimeoutSeconds
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.ContextExchanges <= 0 {
		cfg.ContextExchanges = defaultContextExchanges
	}
	if cfg.Exec.Mode == "" {
		cfg.Exec.Mode = ExecModeCapture
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.File == "" {
		cfg.Log.File = homePath(logFileName)
	}
}

// applyEnvOverrides lets the environment (or a .env file) pick model and endpoint.
func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv(envModel)); v != "" {
		c.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(envURL)); v != "" {
		c.URL = strings.TrimRight(v, "/")
	}
}

// Paths groups the files cmd-ai keeps in the user's home directory.
type Paths struct {
	Config   string
	History  string
	Readline string
}

// DefaultPaths resolves the standard file locations. An explicit config path
// wins over CMDAI_CONFIG, which wins over ~/.cmd_ai_config.json.
func DefaultPaths(configOverride string) Paths {
	cfgPath := configOverride
	if cfgPath == "" {
		cfgPath = strings.TrimSpace(os.Getenv(envConfigPath))
	}
	if cfgPath == "" {
		cfgPath = homePath(configFileName)
	}
	return Paths{
		Config:   cfgPath,
		History:  homePath(historyFileName),
		Readline: homePath(readlineFileName),
	}
}

func homePath(name string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(homeDir, name)
}
