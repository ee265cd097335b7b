package storage

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempcover/backend/internal/infrastructure/config"
	"go.uber.org/zap/zaptest"
)

func testStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Endpoint:     "localhost:9000",
		Region:       "eu-west-2",
		Bucket:       "tempcover-docs",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		UsePathStyle: true,
	}
}

func TestNewS3DocumentStore_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3DocumentStore(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket reports the env var", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.Bucket = ""
		_, err := NewS3DocumentStore(cfg)
		require.Error(t, err)
		assert.True(t, config.IsMissingEnv(err))
		assert.Equal(t, "missing env var TEMPCOVER_STORAGE_BUCKET", err.Error())
	})

	t.Run("missing secret key reports the env var", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.SecretKey = ""
		_, err := NewS3DocumentStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TEMPCOVER_STORAGE_SECRET_KEY")
	})

	t.Run("valid config creates store with default expiry", func(t *testing.T) {
		store, err := NewS3DocumentStore(testStorageConfig())
		require.NoError(t, err)
		assert.Equal(t, "tempcover-docs", store.Bucket())
		assert.Equal(t, 15*time.Minute, store.presignExpiration)
	})

	t.Run("options apply", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		store, err := NewS3DocumentStore(testStorageConfig(),
			WithLogger(logger),
			WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, logger, store.logger)
		assert.Equal(t, time.Hour, store.presignExpiration)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		useSSL   bool
		want     string
	}{
		{"empty uses AWS", "", false, ""},
		{"adds http", "minio:9000", false, "http://minio:9000"},
		{"adds https", "r2.example.com", true, "https://r2.example.com"},
		{"keeps scheme", "https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestS3DocumentStore_PresignGet(t *testing.T) {
	store, err := NewS3DocumentStore(testStorageConfig())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("empty key", func(t *testing.T) {
		_, _, err := store.PresignGet(ctx, "", time.Minute)
		assert.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("signed path-style URL", func(t *testing.T) {
		before := time.Now()
		link, expiresAt, err := store.PresignGet(ctx, "policies/TC-ABCD2345/certificate.pdf", 7*24*time.Hour)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(link, "http://localhost:9000/tempcover-docs/policies/TC-ABCD2345/certificate.pdf?"))
		assert.Contains(t, link, "X-Amz-Signature=")
		assert.Contains(t, link, "X-Amz-Expires=604800")
		assert.WithinDuration(t, before.Add(7*24*time.Hour), expiresAt, 5*time.Second)
	})

	t.Run("default expiry", func(t *testing.T) {
		link, _, err := store.PresignGet(ctx, "policies/x/proposal.pdf", 0)
		require.NoError(t, err)
		assert.Contains(t, link, "X-Amz-Expires=900")
	})
}

func TestS3DocumentStore_ValidationOnly(t *testing.T) {
	store, err := NewS3DocumentStore(testStorageConfig())
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, store.Put(ctx, "", []byte("x"), "application/pdf"), ErrEmptyKey)
	_, _, err = store.PresignGet(ctx, "", time.Minute)
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestS3DocumentStore_PublicURL(t *testing.T) {
	cfg := testStorageConfig()
	store, err := NewS3DocumentStore(cfg)
	require.NoError(t, err)
	assert.Empty(t, store.PublicURL("policies/a/certificate.pdf"))

	cfg.PublicBaseURL = "https://docs.example.com/"
	store, err = NewS3DocumentStore(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.com/policies/a/certificate.pdf", store.PublicURL("policies/a/certificate.pdf"))
}

// Integration: run MinIO and set INTEGRATION_TEST=1.
func TestIntegration_PutAndPresignedGet(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=1 and run MinIO to enable.")
	}

	cfg := testStorageConfig()
	cfg.Bucket = "tempcover-integration"
	store, err := NewS3DocumentStore(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.EnsureBucket(ctx))

	key := "policies/TC-INTEGRAT/certificate.pdf"
	require.NoError(t, store.Put(ctx, key, []byte("%PDF-1.4 test"), "application/pdf"))

	link, _, err := store.PresignGet(ctx, key, time.Minute)
	require.NoError(t, err)

	resp, err := http.Get(link)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
