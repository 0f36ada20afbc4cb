package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ConfigName = "datamock.config"
	ConfigFile = ConfigName + ".json"
	EnvPrefix  = "DATAMOCK"
)

type Config struct {
	Version  string   `json:"version" mapstructure:"version"`
	Gateway  Gateway  `json:"gateway" mapstructure:"gateway"`
	Defaults Defaults `json:"defaults" mapstructure:"defaults"`
	Workflow Workflow `json:"workflow" mapstructure:"workflow"`
	Log      Log      `json:"log" mapstructure:"log"`
}

// Gateway describes the backend service that parses schemas and generates
// data.
type Gateway struct {
	BaseURL           string `json:"base_url" mapstructure:"base_url"`
	ParsePath         string `json:"parse_path" mapstructure:"parse_path"`
	GeneratePath      string `json:"generate_path" mapstructure:"generate_path"`
	HealthPath        string `json:"health_path" mapstructure:"health_path"`
	SchemasPath       string `json:"schemas_path" mapstructure:"schemas_path"`
	SaveToDisk        bool   `json:"save_to_disk" mapstructure:"save_to_disk"`
	OverwriteExisting bool   `json:"overwrite_existing" mapstructure:"overwrite_existing"`
	TimeoutSeconds    int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type Defaults struct {
	EntryCount int `json:"entry_count" mapstructure:"entry_count"`
}

type Workflow struct {
	ClearAttributeOnTableChange bool `json:"clear_attribute_on_table_change" mapstructure:"clear_attribute_on_table_change"`
}

type Log struct {
	Level string `json:"level" mapstructure:"level"`
}

const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultParsePath      = "/v1/parse"
	DefaultGeneratePath   = "/v1/generate"
	DefaultHealthPath     = "/v1/health"
	DefaultSchemasPath    = "/v1/schemas"
	DefaultTimeoutSeconds = 60
	DefaultEntryCount     = 10
	DefaultLogLevel       = "info"
)

func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Gateway: Gateway{
			BaseURL:           DefaultBaseURL,
			ParsePath:         DefaultParsePath,
			GeneratePath:      DefaultGeneratePath,
			HealthPath:        DefaultHealthPath,
			SchemasPath:       DefaultSchemasPath,
			SaveToDisk:        true,
			OverwriteExisting: true,
			TimeoutSeconds:    DefaultTimeoutSeconds,
		},
		Defaults: Defaults{EntryCount: DefaultEntryCount},
		Log:      Log{Level: DefaultLogLevel},
	}
}

// SetupEnv lets DATAMOCK_GATEWAY_BASE_URL and friends override the file.
func SetupEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setDefaults registers every key so environment overrides are seen by
// Unmarshal even without a config file.
func setDefaults() {
	d := DefaultConfig()
	viper.SetDefault("version", d.Version)
	viper.SetDefault("gateway.base_url", d.Gateway.BaseURL)
	viper.SetDefault("gateway.parse_path", d.Gateway.ParsePath)
	viper.SetDefault("gateway.generate_path", d.Gateway.GeneratePath)
	viper.SetDefault("gateway.health_path", d.Gateway.HealthPath)
	viper.SetDefault("gateway.schemas_path", d.Gateway.SchemasPath)
	viper.SetDefault("gateway.save_to_disk", d.Gateway.SaveToDisk)
	viper.SetDefault("gateway.overwrite_existing", d.Gateway.OverwriteExisting)
	viper.SetDefault("gateway.timeout_seconds", d.Gateway.TimeoutSeconds)
	viper.SetDefault("defaults.entry_count", d.Defaults.EntryCount)
	viper.SetDefault("workflow.clear_attribute_on_table_change", d.Workflow.ClearAttributeOnTableChange)
	viper.SetDefault("log.level", d.Log.Level)
}

func Load() (*Config, error) {
	var cfg Config

	setDefaults()

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Version == "" {
		cfg.Version = "1"
	}
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = DefaultBaseURL
	}
	if cfg.Gateway.ParsePath == "" {
		cfg.Gateway.ParsePath = DefaultParsePath
	}
	if cfg.Gateway.GeneratePath == "" {
		cfg.Gateway.GeneratePath = DefaultGeneratePath
	}
	if cfg.Gateway.HealthPath == "" {
		cfg.Gateway.HealthPath = DefaultHealthPath
	}
	if cfg.Gateway.SchemasPath == "" {
		cfg.Gateway.SchemasPath = DefaultSchemasPath
	}
	// The server keeps parsed schemas unless told otherwise, and re-parses
	// identical uploads only with overwrite on.
	if !viper.IsSet("gateway.save_to_disk") {
		cfg.Gateway.SaveToDisk = true
	}
	if !viper.IsSet("gateway.overwrite_existing") {
		cfg.Gateway.OverwriteExisting = true
	}
	if !viper.IsSet("gateway.timeout_seconds") {
		cfg.Gateway.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if !viper.IsSet("defaults.entry_count") {
		cfg.Defaults.EntryCount = DefaultEntryCount
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Gateway.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid gateway.base_url %q: %w", c.Gateway.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("gateway.base_url must use http or https, got %q", c.Gateway.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("gateway.base_url has no host: %q", c.Gateway.BaseURL)
	}

	paths := map[string]string{
		"gateway.parse_path":    c.Gateway.ParsePath,
		"gateway.generate_path": c.Gateway.GeneratePath,
		"gateway.health_path":   c.Gateway.HealthPath,
		"gateway.schemas_path":  c.Gateway.SchemasPath,
	}
	for key, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must start with '/', got %q", key, p)
		}
	}

	if c.Gateway.TimeoutSeconds < 0 {
		return fmt.Errorf("gateway.timeout_seconds cannot be negative")
	}
	if c.Defaults.EntryCount < 0 {
		return fmt.Errorf("defaults.entry_count cannot be negative")
	}

	supportedLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range supportedLevels {
		if c.Log.Level == level {
			return nil
		}
	}
	return fmt.Errorf("unsupported log level: %s. Supported levels: %v", c.Log.Level, supportedLevels)
}

// Timeout is the per-request deadline; zero means none.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

func IsInitialized() bool {
	_, err := os.Stat(ConfigFile)
	return err == nil
}

// WriteDefault writes DefaultConfig to path. It refuses to replace an
// existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if path == "" {
		path = ConfigFile
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
