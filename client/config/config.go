package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gear6io/metabridge/pkg/errors"
)

// Config is the client configuration
type Config struct {
	Metastore MetastoreConfig `yaml:"metastore"`
	Logging   LogConfig       `yaml:"logging"`
}

// MetastoreConfig holds metastore connection configuration
type MetastoreConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Version  string        `yaml:"version"`
	Username string        `yaml:"username"`
	Groups   []string      `yaml:"groups"`
	Timeout  time.Duration `yaml:"timeout"`
	// AuthManager names an external authorization manager. When set, the
	// client refuses to start without a privilege deriver.
	AuthManager string `yaml:"auth_manager"`
	// Settings seed the session's key-value state. Retry behavior comes
	// from here: metastore.failure.retries and
	// metastore.connect.retry.delay.
	Settings map[string]string `yaml:"settings"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `yaml:"level"`
	Console    bool   `yaml:"console"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Cleanup    bool   `yaml:"cleanup"`
}

// DefaultConfig returns default client configuration
func DefaultConfig() *Config {
	return &Config{
		Metastore: MetastoreConfig{
			Host:    "localhost",
			Port:    9083,
			Version: "1.2.1",
			Timeout: 30 * time.Second,
			Settings: map[string]string{
				"metastore.failure.retries":     "1",
				"metastore.connect.retry.delay": "1",
			},
		},
		Logging: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load loads configuration from the first config file found, or returns
// defaults when there is none.
func Load() (*Config, error) {
	configPath := findConfigFile()

	if configPath != "" {
		return LoadFromFile(configPath)
	}

	return DefaultConfig(), nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(ErrConfigFileReadFailed, "failed to read config file", err).AddContext("path", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(ErrConfigFileParseFailed, "failed to parse config file", err).AddContext("path", path)
	}

	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.New(ErrConfigFileMarshalFailed, "failed to marshal config", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(ErrConfigFileWriteFailed, "failed to write config file", err).AddContext("path", path)
	}

	return nil
}

// findConfigFile searches for a configuration file
func findConfigFile() string {
	// Check current directory
	if _, err := os.Stat("metabridge.yml"); err == nil {
		return "metabridge.yml"
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".metabridge", "metabridge.yml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	// Check /etc/metabridge
	if _, err := os.Stat("/etc/metabridge/metabridge.yml"); err == nil {
		return "/etc/metabridge/metabridge.yml"
	}

	return ""
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Metastore.Host == "" {
		return errors.New(ErrMetastoreHostRequired, "metastore host cannot be empty", nil)
	}

	if c.Metastore.Port <= 0 || c.Metastore.Port > 65535 {
		return errors.Newf(ErrMetastorePortInvalid, "invalid metastore port: %d", c.Metastore.Port)
	}

	if c.Metastore.Version == "" {
		return errors.New(ErrMetastoreVersionRequired, "metastore version cannot be empty", nil)
	}

	if c.Metastore.Timeout < 0 {
		return errors.Newf(ErrMetastoreTimeoutInvalid, "negative metastore timeout: %s", c.Metastore.Timeout)
	}

	return nil
}
