package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Env:                  "development",
			Port:                 "8480",
			JWTSecret:            "secure-secret-at-least-32-chars-long",
			DBPassword:           "secure-password",
			DBSSLMode:            "disable",
			ImageMaxUploadSizeMB: 5,
		}
	}

	t.Run("valid development config", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing port", func(t *testing.T) {
		c := base()
		c.Port = ""
		assert.Error(t, c.Validate())
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		c := base()
		c.JWTSecret = ""
		assert.Error(t, c.Validate())
	})

	t.Run("production rejects default jwt secret", func(t *testing.T) {
		c := base()
		c.Env = "production"
		c.JWTSecret = "your-secret-key-change-in-production"
		err := c.Validate()
		assert.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "JWT_SECRET"))
	})

	t.Run("production rejects short jwt secret", func(t *testing.T) {
		c := base()
		c.Env = "prod"
		c.JWTSecret = "too-short"
		assert.Error(t, c.Validate())
	})

	t.Run("production rejects weak db password", func(t *testing.T) {
		c := base()
		c.Env = "production"
		c.DBPassword = "password"
		assert.Error(t, c.Validate())
	})

	t.Run("production with strong settings passes", func(t *testing.T) {
		c := base()
		c.Env = "production"
		c.DBSSLMode = "require"
		assert.NoError(t, c.Validate())
	})
}
