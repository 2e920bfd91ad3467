package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "content", cfg.Content.Root)
	assert.Equal(t, "templates", cfg.Content.Templates)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Shelf.Backend)
	assert.Equal(t, "stash.db", cfg.Shelf.Path)
	assert.Equal(t, "stash", cfg.Shelf.Database)
	assert.Equal(t, "text", cfg.Writers.Default)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_FromViper(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("site", "demo")
	viper.Set("content.root", "sites/demo")
	viper.Set("server.port", 9000)
	viper.Set("shelf.backend", "memory")
	viper.Set("writers.default", "json")
	viper.Set("log-level", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Site)
	assert.Equal(t, "sites/demo", cfg.Content.Root)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Shelf.Backend)
	assert.Equal(t, "json", cfg.Writers.Default)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		return &Config{
			Content: ContentConfig{Root: "content", Templates: "templates"},
			Server:  ServerConfig{Host: "localhost", Port: 8080},
			Shelf:   ShelfConfig{Backend: "sqlite", Path: "stash.db"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "port",
		},
		{
			name:    "dangerous host",
			mutate:  func(c *Config) { c.Server.Host = "localhost;rm" },
			wantErr: "dangerous character",
		},
		{
			name:    "path traversal",
			mutate:  func(c *Config) { c.Content.Root = "../../etc" },
			wantErr: "traversal",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Shelf.Backend = "couch" },
			wantErr: "unknown shelf backend",
		},
		{
			name:    "mongo without uri",
			mutate:  func(c *Config) { c.Shelf.Backend = "mongo" },
			wantErr: "shelf.uri",
		},
		{
			name: "mongo with uri",
			mutate: func(c *Config) {
				c.Shelf.Backend = "mongo"
				c.Shelf.URI = "mongodb://localhost:27017"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, validatePath("content"))
	assert.NoError(t, validatePath("sites/demo/content"))
	assert.Error(t, validatePath(""))
	assert.Error(t, validatePath("../outside"))
	assert.Error(t, validatePath("content;ls"))
}
