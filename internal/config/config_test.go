package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ACCESS_TOKEN_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/library")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("ACCESS_TOKEN_SECRET", "secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/library", cfg.DatabaseURL)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/library")
	t.Setenv("ACCESS_TOKEN_SECRET", "secret")
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.Production())
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
}

func TestLoadSplitsOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/library")
	t.Setenv("ACCESS_TOKEN_SECRET", "secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}
