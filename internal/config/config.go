// Package config loads ClickLit configuration from .clicklit/config.yaml,
// applies environment overrides, and watches the file for live changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all ClickLit configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Backend REST contract
	API APIConfig `yaml:"api"`

	// Wizard behavior
	Wizard WizardConfig `yaml:"wizard"`

	// Local storage
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// APIKey is sent as a bearer token when set. The local backend does
	// not require one.
	APIKey string `yaml:"api_key,omitempty"`
	// Timeout bounds every request so a locked-but-unanswered generation
	// can roll back instead of wedging the screen.
	Timeout string `yaml:"timeout"`
}

// WizardConfig configures the interactive flow.
type WizardConfig struct {
	// ChoicePolicy: "lock" (single durable choice per prediction result)
	// or "append" (log every pick, latest wins).
	ChoicePolicy string `yaml:"choice_policy"`
	// StylePolicy: "optional" (style appended when present) or "strict"
	// (style required before generating).
	StylePolicy string `yaml:"style_policy"`
	// OutputDir receives downloaded images.
	OutputDir string `yaml:"output_dir"`
	// Theme: "auto", "light" or "dark".
	Theme string `yaml:"theme"`
}

// StorageConfig configures the key-value store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	// Ephemeral keeps all wizard state in memory for the run.
	Ephemeral bool `yaml:"ephemeral"`
}

// LoggingConfig configures the category file loggers.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "ClickLit",
		Version: "1.0.0",

		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: "60s",
		},

		Wizard: WizardConfig{
			ChoicePolicy: "lock",
			StylePolicy:  "optional",
			OutputDir:    "images",
			Theme:        "auto",
		},

		Storage: StorageConfig{
			DatabasePath: filepath.Join(".clicklit", "clicklit.db"),
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Path returns the config file location inside a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, ".clicklit", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets the environment win over the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CLICKLIT_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CLICKLIT_TIMEOUT"); v != "" {
		c.API.Timeout = v
	}
	if v := os.Getenv("CLICKLIT_API_KEY"); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv("CLICKLIT_CHOICE_POLICY"); v != "" {
		c.Wizard.ChoicePolicy = v
	}
	if v := os.Getenv("CLICKLIT_STYLE_POLICY"); v != "" {
		c.Wizard.StylePolicy = v
	}
	if v := os.Getenv("CLICKLIT_OUTPUT_DIR"); v != "" {
		c.Wizard.OutputDir = v
	}
	if v := os.Getenv("CLICKLIT_DB_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("CLICKLIT_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

// APITimeout parses the request timeout, falling back to the default when
// unset or malformed.
func (c *Config) APITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Validate rejects values no component could act on.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	switch c.Wizard.ChoicePolicy {
	case "", "lock", "append":
	default:
		return fmt.Errorf("wizard.choice_policy must be \"lock\" or \"append\", got %q", c.Wizard.ChoicePolicy)
	}
	switch c.Wizard.StylePolicy {
	case "", "optional", "strict":
	default:
		return fmt.Errorf("wizard.style_policy must be \"optional\" or \"strict\", got %q", c.Wizard.StylePolicy)
	}
	return nil
}
