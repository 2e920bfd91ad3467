// Package config provides configuration management for stash using Viper
// for flexible loading from files, environment variables, and
// command-line flags.
//
// Configuration comes from .stash.yml, environment variables with the
// STASH_ prefix, and flags bound by the CLI. It selects the site to
// operate on, the content and template paths, the shelf backend, the
// default writer, and server settings.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Site    string        `yaml:"site"`
	Content ContentConfig `yaml:"content"`
	Server  ServerConfig  `yaml:"server"`
	Shelf   ShelfConfig   `yaml:"shelf"`
	Writers WritersConfig `yaml:"writers"`
	Log     LogConfig     `yaml:"log"`
}

type ContentConfig struct {
	Root      string `yaml:"root"`
	Templates string `yaml:"templates"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ShelfConfig selects and parameterizes the persistence backend. Path
// applies to the sqlite backend; URI and Database to the mongo backend.
type ShelfConfig struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path"`
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type WritersConfig struct {
	// Default names the writer used when a route declares none.
	Default string `yaml:"default"`
	// DateFormat and DatetimeFormat control how the JSON writer renders
	// date-only and full timestamp values. Empty means RFC 3339.
	DateFormat     string `yaml:"date_format"`
	DatetimeFormat string `yaml:"datetime_format"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Site == "" {
		config.Site = viper.GetString("site")
	}
	if config.Content.Root == "" {
		config.Content.Root = "content"
	}
	if config.Content.Templates == "" {
		config.Content.Templates = "templates"
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Shelf.Backend == "" {
		config.Shelf.Backend = "sqlite"
	}
	if config.Shelf.Path == "" {
		config.Shelf.Path = "stash.db"
	}
	if config.Shelf.Database == "" {
		config.Shelf.Database = "stash"
	}
	if config.Writers.Default == "" {
		config.Writers.Default = "text"
	}
	if config.Log.Level == "" {
		config.Log.Level = viper.GetString("log-level")
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for security and
// correctness.
func validateConfig(config *Config) error {
	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Server.Port)
	}

	if config.Server.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Server.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	for _, path := range []string{config.Content.Root, config.Content.Templates} {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("invalid path %q: %w", path, err)
		}
	}

	switch config.Shelf.Backend {
	case "sqlite", "memory", "mongo":
	default:
		return fmt.Errorf("unknown shelf backend %q (supported: sqlite, memory, mongo)", config.Shelf.Backend)
	}
	if config.Shelf.Backend == "mongo" && config.Shelf.URI == "" {
		return fmt.Errorf("shelf backend mongo requires shelf.uri")
	}

	return nil
}

// validatePath validates a file path for security.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
