package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config carries everything the server reads from the environment.
type Config struct {
	DatabaseURL    string
	TokenSecret    string
	Env            string
	Port           string
	AllowedOrigins []string
}

// Production reports whether cookie security attributes should be hardened.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment. DATABASE_URL and
// ACCESS_TOKEN_SECRET have no sane defaults and are required; everything else
// falls back to development values.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "5000")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")

	cfg := &Config{
		DatabaseURL:    v.GetString("DATABASE_URL"),
		TokenSecret:    v.GetString("ACCESS_TOKEN_SECRET"),
		Env:            v.GetString("APP_ENV"),
		Port:           v.GetString("PORT"),
		AllowedOrigins: splitOrigins(v.GetString("ALLOWED_ORIGINS")),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.TokenSecret == "" {
		return nil, errors.New("ACCESS_TOKEN_SECRET environment variable is required")
	}
	return cfg, nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
