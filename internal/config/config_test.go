package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikohapp/nikoh-api/internal/config"
)

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	yaml := "server:\n  port: 9999\njwt:\n  secret: file-secret\npayments:\n  publishable_key: pk_from_file\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Chdir(dir)

	t.Setenv("SERVER_PORT", "7777")
	t.Setenv("SERVER_HOST", "127.0.0.1")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	// Environment beats the config file
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	// The config file beats defaults
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, "pk_from_file", cfg.Payments.PublishableKey)

	// Untouched keys keep their defaults
	assert.Equal(t, "eur", cfg.Payments.Currency)
	assert.Equal(t, "100-M", cfg.Server.RateLimit)
}
