package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:        "development",
		JWTSecret:  "secure-secret-at-least-32-chars-long",
		SessionTTL: time.Hour,
		APITimeout: time.Second,
		FeedLimit:  50,
		MessageKey: "k",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"feed limit zero", func(c *Config) { c.FeedLimit = 0 }, true},
		{"feed limit above hard cap", func(c *Config) { c.FeedLimit = 51 }, true},
		{"non-positive timeout", func(c *Config) { c.APITimeout = 0 }, true},
		{"non-positive session ttl", func(c *Config) { c.SessionTTL = -time.Second }, true},
		{"production default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
		}, true},
		{"production short secret", func(c *Config) {
			c.Env = "prod"
			c.JWTSecret = "short"
		}, true},
		{"production without message key", func(c *Config) {
			c.Env = "production"
			c.MessageKey = ""
		}, true},
		{"production complete", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer viper.Reset()
	defer os.Unsetenv("APP_ENV")
	os.Setenv("APP_ENV", "test")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", c.Env)
	assert.Equal(t, 50, c.FeedLimit)
	assert.Equal(t, 720*time.Hour, c.SessionTTL)
	assert.Equal(t, 10*time.Second, c.APITimeout)
	assert.Equal(t, "http://localhost:8375/api", c.APIBaseURL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	defer viper.Reset()
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("FEED_LIMIT")
	defer os.Unsetenv("API_BASE_URL")
	defer os.Unsetenv("DB_SSLMODE")

	os.Setenv("APP_ENV", "development")
	os.Setenv("FEED_LIMIT", "20")
	os.Setenv("API_BASE_URL", "http://api.internal/api/")
	os.Setenv("DB_SSLMODE", "  REQUIRE ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 20, c.FeedLimit)
	assert.Equal(t, "http://api.internal/api", c.APIBaseURL)
	assert.Equal(t, "require", c.DBSSLMode)
}

func TestConfig_Tracing(t *testing.T) {
	c := validConfig()
	c.Version = "1.4.2"
	c.TracingEnabled = true
	c.TracingExporter = "otlp"
	c.OTLPEndpoint = "collector:4318"
	c.TracingSampleRatio = 0.5

	tc := c.Tracing("bookdot-api")
	assert.Equal(t, "bookdot-api", tc.Service)
	assert.Equal(t, "1.4.2", tc.Version)
	assert.Equal(t, "development", tc.Env)
	assert.True(t, tc.Enabled)
	assert.Equal(t, "otlp", tc.Exporter)
	assert.Equal(t, "collector:4318", tc.Endpoint)
	assert.Equal(t, 0.5, tc.Ratio)
}
