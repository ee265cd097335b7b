package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable these tests touch. Viper treats empty
// variables as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TEMPCOVER_APP_NAME",
		"TEMPCOVER_APP_ENV",
		"TEMPCOVER_APP_PORT",
		"TEMPCOVER_DATABASE_HOST",
		"TEMPCOVER_DATABASE_PASSWORD",
		"TEMPCOVER_DATABASE_SSLMODE",
		"TEMPCOVER_DATABASE_MAX_OPEN_CONNS",
		"TEMPCOVER_DATABASE_MAX_IDLE_CONNS",
		"TEMPCOVER_INTERNAL_API_KEY",
		"TEMPCOVER_INTERNAL_BASE_URL",
		"TEMPCOVER_EMAIL_SANDBOX_MODE",
		"TEMPCOVER_STRIPE_WEBHOOK_SECRET",
		"TEMPCOVER_STORAGE_BUCKET",
		"TEMPCOVER_TELEMETRY_SAMPLING_RATIO",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "tempcover-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "tempcover", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "http://127.0.0.1:8080", cfg.Internal.BaseURL)
		assert.Equal(t, "eu-west-2", cfg.Storage.Region)
		assert.False(t, cfg.Redis.Enabled)
		assert.NotEmpty(t, cfg.Vehicle.BaseURL)
	})

	t.Run("loads values from environment variables with TEMPCOVER prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TEMPCOVER_APP_PORT", "9000")
		t.Setenv("TEMPCOVER_DATABASE_HOST", "db.internal")
		t.Setenv("TEMPCOVER_STRIPE_WEBHOOK_SECRET", "whsec_test")
		t.Setenv("TEMPCOVER_STORAGE_BUCKET", "policy-docs")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, "whsec_test", cfg.Stripe.WebhookSecret)
		assert.Equal(t, "policy-docs", cfg.Storage.Bucket)
		assert.Equal(t, "http://127.0.0.1:9000", cfg.Internal.BaseURL)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TEMPCOVER_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("TEMPCOVER_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects sampling ratio above one", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TEMPCOVER_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TEMPCOVER_APP_ENV", "production")
		t.Setenv("TEMPCOVER_DATABASE_PASSWORD", "secure-password")
		t.Setenv("TEMPCOVER_DATABASE_SSLMODE", "require")
		t.Setenv("TEMPCOVER_INTERNAL_API_KEY", "0123456789abcdef0123456789abcdef")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("TEMPCOVER_DATABASE_PASSWORD", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("TEMPCOVER_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")
	})

	t.Run("requires a long internal key in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("TEMPCOVER_INTERNAL_API_KEY", "short")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "internal.api_key")
	})

	t.Run("refuses sandboxed email in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("TEMPCOVER_EMAIL_SANDBOX_MODE", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sandbox_mode")
	})
}

func TestRequire(t *testing.T) {
	t.Run("reports the missing env var by name", func(t *testing.T) {
		err := StripeConfig{}.RequireWebhook()
		require.Error(t, err)
		assert.True(t, IsMissingEnv(err))
		assert.Equal(t, "missing env var TEMPCOVER_STRIPE_WEBHOOK_SECRET", err.Error())
	})

	t.Run("reports the first missing email setting", func(t *testing.T) {
		err := EmailConfig{SendGridAPIKey: "SG.key"}.Require()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TEMPCOVER_EMAIL_FROM_ADDRESS")
	})

	t.Run("treats whitespace as missing", func(t *testing.T) {
		err := VehicleConfig{BaseURL: "https://example.test", APIKey: "  "}.Require()
		assert.True(t, IsMissingEnv(err))
	})

	t.Run("passes when everything is set", func(t *testing.T) {
		assert.NoError(t, StorageConfig{Bucket: "b", AccessKey: "a", SecretKey: "s"}.Require())
		assert.NoError(t, InternalConfig{BaseURL: "http://x", APIKey: "k"}.Require())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "pass%40word%23123")
		assert.Contains(t, dsn, "sslmode=disable")
	})
}
