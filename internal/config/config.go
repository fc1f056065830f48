package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models orchboard.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
		Metrics  bool   `yaml:"metrics"`
	} `yaml:"server"`
	Runs struct {
		// MaxConcurrent is the ceiling on simultaneously running runs that a
		// scheduler must honor. It is reported, never derived from load.
		MaxConcurrent int `yaml:"max_concurrent"`
	} `yaml:"runs"`
	Analytics struct {
		DefaultDays int `yaml:"default_days"`
	} `yaml:"analytics"`
	Auth struct {
		APIKey          string   `yaml:"api_key"`
		JWTSecret       string   `yaml:"jwt_secret"`
		SameOriginHosts []string `yaml:"same_origin_hosts"`
	} `yaml:"auth"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with orch config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Runs.MaxConcurrent < 1 {
		return fmt.Errorf("config.runs.max_concurrent must be at least 1")
	}
	if c.Analytics.DefaultDays < 1 {
		return fmt.Errorf("config.analytics.default_days must be at least 1")
	}
	for _, host := range c.Auth.SameOriginHosts {
		if strings.TrimSpace(host) == "" {
			return fmt.Errorf("config.auth.same_origin_hosts contains empty host")
		}
		if strings.Contains(host, "/") {
			return fmt.Errorf("same origin host %s must not contain a scheme or path", host)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "orchboard.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from
// the document keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v0
  metrics: true

runs:
  max_concurrent: 3

analytics:
  default_days: 30

auth:
  # Dashboard key accepted as ?key=, Authorization: Bearer or X-Api-Key.
  # Usually supplied through ORCHBOARD_API_KEY instead of this file.
  api_key: ""
  jwt_secret: ""
  same_origin_hosts: []
`
