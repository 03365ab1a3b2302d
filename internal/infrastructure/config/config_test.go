package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "atelierloop-gateway", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 168*time.Hour, cfg.Cookie.MaxAge)
	assert.Equal(t, "strict", cfg.Cookie.SameSite)
	assert.Equal(t, 168*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 5, cfg.HTTP.AuthRateLimitRequests)
	assert.Equal(t, time.Minute, cfg.HTTP.AuthRateLimitWindow)
	assert.Equal(t, 5*time.Minute, cfg.MFA.ChallengeTTL)
	assert.Equal(t, 3, cfg.MFA.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Admin.CapabilityTTL)
	assert.Equal(t, time.Minute, cfg.Holds.SweepInterval)
	assert.Empty(t, cfg.HTTP.CORSAllowOrigins, "CORS origins must not default to a wildcard")
	assert.Empty(t, cfg.Database.Host, "empty database host disables the audit trail and must survive defaulting")
}

func TestValidateProduction(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.App.Env = "production"
		cfg.JWT.Secret = strings.Repeat("s", 32)
		cfg.Admin.CapabilitySeed = "9f2c1a"
		cfg.Cookie.Secure = true
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().validate())
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		cfg := base()
		cfg.JWT.Secret = ""
		assert.Error(t, cfg.validate())
	})

	t.Run("short jwt secret", func(t *testing.T) {
		cfg := base()
		cfg.JWT.Secret = "short"
		assert.Error(t, cfg.validate())
	})

	t.Run("missing capability seed", func(t *testing.T) {
		cfg := base()
		cfg.Admin.CapabilitySeed = ""
		assert.Error(t, cfg.validate())
	})

	t.Run("insecure cookie", func(t *testing.T) {
		cfg := base()
		cfg.Cookie.Secure = false
		assert.Error(t, cfg.validate())
	})

	t.Run("wildcard cors", func(t *testing.T) {
		cfg := base()
		cfg.HTTP.CORSAllowOrigins = []string{"*"}
		assert.Error(t, cfg.validate())
	})
}

func TestValidateSamplingRatio(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Telemetry.SamplingRatio = 1.5
	assert.Error(t, cfg.validate())
}

func TestDSNEscapesCredentials(t *testing.T) {
	d := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "gateway",
		Password: "p@ss:word/1",
		DBName:   "gateway_audit",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	require.Contains(t, dsn, "db.internal:5432")
	assert.NotContains(t, dsn, "p@ss:word/1", "password must be URL-escaped")
	assert.Contains(t, dsn, "sslmode=require")
}

func TestRedisAddr(t *testing.T) {
	r := &RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
