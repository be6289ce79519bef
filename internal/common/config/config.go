// Package config loads the composeup application configuration.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultComposeFile is used when neither the command line nor the
// configuration names a compose file.
const DefaultComposeFile = "docker-compose.yml"

// Config represents the application configuration
type Config struct {
	Compose  ComposeConfig  `yaml:"compose"`
	Registry RegistryConfig `yaml:"registry"`
	GitHub   GitHubConfig   `yaml:"github"`
}

// ComposeConfig holds compose-file settings
type ComposeConfig struct {
	// File is the default compose file path when none is given
	File string `yaml:"file"`
}

// RegistryConfig holds tag-catalog endpoint settings
type RegistryConfig struct {
	// HubURL overrides the Docker Hub API root (private mirrors, tests)
	HubURL string `yaml:"hub_url"`
}

// GitHubConfig holds GitHub API settings
type GitHubConfig struct {
	// APIURL overrides the GitHub API root
	APIURL string `yaml:"api_url"`
	// Token is a personal access token for higher rate limits
	Token string `yaml:"token"`
}

// ConfigPaths returns all possible config file paths in priority order
// 1. $XDG_CONFIG_HOME/composeup/config.yaml (XDG standard - priority)
// 2. ~/.composeup/config.yaml (fallback)
func ConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		filepath.Join(xdgConfig, "composeup", "config.yaml"),
		filepath.Join(home, ".composeup", "config.yaml"),
	}, nil
}

// FindConfigPath returns the first existing config file path.
// Returns the default (XDG) path if no config file exists yet.
func FindConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return paths[0], nil
}

// Load reads configuration from the first available config file.
// A missing file yields the zero configuration, not an error; this tool
// is fully usable without one.
func Load() (*Config, error) {
	configPath, err := FindConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads configuration from a specific file path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveTo writes configuration to a specific file path
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ComposeFile returns the compose file to maintain: the explicit
// argument when given, then the configured default, then the
// conventional file name.
func (c *Config) ComposeFile(arg string) string {
	if arg != "" {
		return arg
	}
	if c.Compose.File != "" {
		return c.Compose.File
	}
	return DefaultComposeFile
}
