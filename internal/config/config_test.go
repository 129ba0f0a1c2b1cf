package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 587, cfg.Email.Port)
	assert.Equal(t, "Stocktake results", cfg.Email.Subject)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Empty(t, cfg.Export.Dir)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  allowed_origins: ["https://stock.example.com"]
store:
  driver: sqlite
database:
  path: /tmp/stock.db
email:
  host: smtp.example.com
  from: stocktake@example.com
  password: from-file
export:
  dir: exports
logger:
  level: debug
`)

	t.Setenv("SMTP_PASSWORD", "s3cret")
	t.Setenv("STOCKTAKE_LOGGER_FORMAT", "console")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://stock.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/stock.db", cfg.Database.Path)
	assert.Equal(t, "s3cret", cfg.Email.Password)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)

	cc := cfg.ToContainerConfig()
	assert.Equal(t, StoreSQLite, cc.Store.Driver)
	assert.Equal(t, "/tmp/stock.db", cc.Store.Path)
	assert.Equal(t, "s3cret", cc.Email.Password)
	assert.True(t, cc.Email.Enabled())
	assert.Equal(t, "exports", cc.ExportDir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Store:  StoreConfig{Driver: StoreMemory},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }, "store.driver"},
		{"sqlite without path", func(c *Config) { c.Store.Driver = StoreSQLite }, "database.path"},
		{"smtp without from", func(c *Config) { c.Email.Host = "smtp.example.com"; c.Email.Port = 587 }, "email.from"},
		{"smtp bad port", func(c *Config) {
			c.Email.Host = "smtp.example.com"
			c.Email.From = "a@example.com"
		}, "email.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
