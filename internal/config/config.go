// Package config holds the file-based configuration of the glslpp
// tool: predefined macros, include search paths and the extension set
// the target driver is assumed to support.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration of a preprocessing run.
type Config struct {
	Defines         map[string]string `yaml:"defines,omitempty"`
	IncludeDirs     []string          `yaml:"include_dirs,omitempty"`
	Extensions      []string          `yaml:"extensions,omitempty"`
	MaxIncludeDepth int               `yaml:"max_include_depth,omitempty"`
}

// Validate rejects configurations the preprocessor cannot honor.
func (c *Config) Validate() error {
	if c.MaxIncludeDepth < 0 {
		return fmt.Errorf("max_include_depth must not be negative")
	}
	for name := range c.Defines {
		base := name
		if i := strings.IndexByte(base, '('); i >= 0 {
			base = base[:i]
		}
		if base == "" || !identLike(base) {
			return fmt.Errorf("bad macro name %q", name)
		}
	}
	return nil
}

func identLike(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		alpha := c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
		if !alpha && (i == 0 || c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// LoadFromEnv merges environment overrides. GLSLPP_INCLUDE_PATH is a
// list separated like PATH.
func (c *Config) LoadFromEnv() {
	if path := os.Getenv("GLSLPP_INCLUDE_PATH"); path != "" {
		c.IncludeDirs = append(c.IncludeDirs, filepath.SplitList(path)...)
	}
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "glslpp", "config.yml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".glslpp", "config.yml")
	}
	return filepath.Join(home, ".config", "glslpp", "config.yml")
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the configuration, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
