package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/ports"
	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
	"github.com/Widerk/shapesbonding/infrastructure/config"
	"github.com/Widerk/shapesbonding/infrastructure/messaging"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Environment:        "test",
		AWSRegion:          "us-west-2",
		LogLevel:           "error",
		JWTIssuer:          "shapesbonding",
		JWTAudience:        "shapesbonding-api",
		StoreBackend:       config.StoreMemory,
		PollInterval:       time.Second,
		SessionIdleTimeout: time.Minute,
		EnableMetrics:      true,
	}
}

func TestInitializeContainer_Memory(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	container, cleanup, err := InitializeContainer(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &messaging.LogPublisher{}, container.Publisher)
	assert.Nil(t, container.TracerProvider)
	assert.Equal(t, 0, container.Sessions.Len())

	for _, path := range []string{"/health", "/api/v2/fields", "/metrics"} {
		rec := httptest.NewRecorder()
		container.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	container.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/profiles", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProvideLogger_RejectsUnknownLevel(t *testing.T) {
	cfg := memoryConfig()
	cfg.LogLevel = "loud"

	_, err := ProvideLogger(cfg)
	assert.Error(t, err)
}

func TestProvideMetricsRecorder_Disabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.EnableMetrics = false

	recorder := ProvideMetricsRecorder(cfg, ProvideCollector(), nil, zap.NewNop())
	assert.Equal(t, ports.NopMetrics{}, recorder)
}

func TestProvideEngine_LoadsFieldRangesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  A: {minValue: 10, maxValue: 400, step: 5}\n"), 0o600))

	cfg := memoryConfig()
	cfg.FieldRangesFile = path

	engine, cleanup, err := ProvideEngine(cfg, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, valueobjects.FieldRange{MinValue: 10, MaxValue: 400, Step: 5}, engine.Range(valueobjects.KeyA))
}

func TestProvideEngine_MissingFile(t *testing.T) {
	cfg := memoryConfig()
	cfg.FieldRangesFile = filepath.Join(t.TempDir(), "absent.yaml")

	_, _, err := ProvideEngine(cfg, zap.NewNop())
	assert.Error(t, err)
}
