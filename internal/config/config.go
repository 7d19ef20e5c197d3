package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"attrfilter/domain"
)

// Config represents the loader configuration
type Config struct {
	Version  int             `toml:"version"`
	Limit    int             `toml:"limit"`
	LogLevel string          `toml:"log_level"`
	Backend  BackendSettings `toml:"backend"`
	Dataset  Dataset         `toml:"dataset"`
}

// BackendSettings controls how the backend is called
type BackendSettings struct {
	Workspace        string  `toml:"workspace"`
	QueriesPerSecond float64 `toml:"queries_per_second"` // 0 disables throttling
	Burst            int     `toml:"burst"`
}

// Dataset describes one attribute served by the in-memory backend and the filter over it
type Dataset struct {
	AttributeID string                    `toml:"attribute_id"`
	Title       string                    `toml:"title"`
	Ref         string                    `toml:"ref"`
	DisplayForm string                    `toml:"display_form"`
	ByValue     bool                      `toml:"by_value"`
	Static      bool                      `toml:"static"`
	Negative    bool                      `toml:"negative"`
	Selected    []string                  `toml:"selected"`
	Hidden      []string                  `toml:"hidden"`
	Elements    []domain.AttributeElement `toml:"elements"`
}

// ConfigService handles configuration management
type ConfigService interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
}

// configService is the concrete implementation
type configService struct {
	filePath string
}

// NewConfigService creates a config service using the user config directory
func NewConfigService() ConfigService {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}

	return &configService{
		filePath: filepath.Join(configDir, "attrfilter", "config.toml"),
	}
}

// NewConfigServiceAt creates a config service whose default file is path
func NewConfigServiceAt(path string) ConfigService {
	return &configService{filePath: path}
}

// Load loads the configuration from the default file, or the defaults when there is none
func (cs *configService) Load() (*Config, error) {
	cfg, err := cs.LoadFromPath(cs.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// Save saves the configuration to the default file
func (cs *configService) Save(config *Config) error {
	return cs.SaveToPath(config, cs.filePath)
}

// LoadFromPath loads configuration from a specific path
func (cs *configService) LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// fillDefaults sets scalar settings the file left out
func (c *Config) fillDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Backend.Workspace == "" {
		c.Backend.Workspace = "demo"
	}
}

// SaveToPath saves configuration to a specific path
func (cs *configService) SaveToPath(config *Config, path string) error {
	// Ensure config directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the values a loader cannot start with
func (c *Config) Validate() error {
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}
	if c.Backend.QueriesPerSecond < 0 {
		return fmt.Errorf("backend.queries_per_second must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Dataset.DisplayForm == "" {
		return errors.New("dataset.display_form is required")
	}
	return nil
}

// Level parses the configured log level
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Filter builds the initial filter definition of the dataset
func (d Dataset) Filter() domain.AttributeFilter {
	mode := domain.ElementsByURI
	if d.ByValue {
		mode = domain.ElementsByValue
	}
	return domain.AttributeFilter{
		DisplayForm: domain.ObjRef(d.DisplayForm),
		Elements:    domain.ElementsOf(mode, d.Selected),
		Negative:    d.Negative,
	}
}

// Attribute returns the metadata the in-memory backend serves for the dataset
func (d Dataset) Attribute() domain.AttributeMetadata {
	return domain.AttributeMetadata{
		ID:           d.AttributeID,
		Title:        d.Title,
		Ref:          domain.ObjRef(d.Ref),
		DisplayForms: []domain.ObjRef{domain.ObjRef(d.DisplayForm)},
	}
}

// DefaultConfig returns the default configuration, an all-selecting filter over a small sample dataset
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		Limit:    500,
		LogLevel: "INFO",
		Backend: BackendSettings{
			Workspace:        "demo",
			QueriesPerSecond: 20,
			Burst:            5,
		},
		Dataset: Dataset{
			AttributeID: "region",
			Title:       "Region",
			Ref:         "attr.region",
			DisplayForm: "label.region.name",
			Negative:    true,
			Selected:    []string{},
			Hidden:      []string{},
			Elements: []domain.AttributeElement{
				{URI: "/elements?id=1", Title: "Americas"},
				{URI: "/elements?id=2", Title: "Asia Pacific"},
				{URI: "/elements?id=3", Title: "Europe"},
				{URI: "/elements?id=4", Title: "Middle East"},
				{URI: "/elements?id=5", Title: "Africa"},
			},
		},
	}
}
