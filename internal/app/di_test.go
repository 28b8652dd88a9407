package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/pfbackup/internal/config"
	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

const testPassphraseVariable = "PFBACKUP_TEST_PASSPHRASE"

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:              "error",
		PassphraseSource:      "env",
		PassphraseEnvVariable: testPassphraseVariable,
		KEKRecordPath:         filepath.Join(t.TempDir(), ".kek-info"),
		KDFTimeCost:           1,
		KDFMemoryCostKiB:      8 * 1024,
		KDFParallelism:        1,
		BackupBucketURL:       "mem://",
		BackupSchedule:        "1d",
		PfSenseRequestTimeout: time.Minute,
		LoginRetryInterval:    time.Second,
		MetricsEnabled:        false,
		MetricsNamespace:      "pfbackup_test",
		MetricsHost:           "127.0.0.1",
		MetricsPort:           0,
	}
}

// TestNewContainer verifies that a new container can be created with a valid configuration.
func TestNewContainer(t *testing.T) {
	cfg := newTestConfig(t)

	container := NewContainer(cfg)

	if container == nil {
		t.Fatal("expected non-nil container")
	}

	if container.Config() != cfg {
		t.Error("container config does not match provided config")
	}
}

// TestContainerLogger verifies that the logger is a singleton.
func TestContainerLogger(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "debug"})
	logger := container.Logger()

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if logger != container.Logger() {
		t.Error("expected same logger instance on multiple calls")
	}
}

// TestContainerLoggerDefaultLevel verifies that logger defaults to info level.
func TestContainerLoggerDefaultLevel(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "invalid"})

	logger := container.Logger()
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), 0))
	assert.False(t, logger.Enabled(context.Background(), -4))
}

func TestContainerBucket(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		container := NewContainer(newTestConfig(t))

		bucket, err := container.Bucket()
		require.NoError(t, err)

		again, err := container.Bucket()
		require.NoError(t, err)
		assert.Same(t, bucket, again)
		assert.NoError(t, container.Shutdown(context.Background()))
	})

	t.Run("Error_UnknownScheme", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.BackupBucketURL = "bogus://bucket"
		container := NewContainer(cfg)

		_, err := container.Bucket()
		require.Error(t, err)

		// The stored error is returned on later calls.
		_, err = container.Bucket()
		assert.Error(t, err)

		_, err = container.ArtifactRepository()
		assert.Error(t, err)
	})
}

func TestContainerPassphrase(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		t.Setenv(testPassphraseVariable, "correct-horse")
		container := NewContainer(newTestConfig(t))

		p, err := container.Passphrase()
		require.NoError(t, err)

		err = p.Use(func(b []byte) error {
			assert.Equal(t, "correct-horse", string(b))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Error_NotSet", func(t *testing.T) {
		t.Setenv(testPassphraseVariable, "")
		container := NewContainer(newTestConfig(t))

		_, err := container.Passphrase()
		assert.ErrorIs(t, err, keymanagerDomain.ErrPassphraseNotSet)

		_, err = container.EnvelopeKeyManager()
		assert.ErrorIs(t, err, keymanagerDomain.ErrPassphraseNotSet)

		_, err = container.RecordUseCase()
		assert.ErrorIs(t, err, keymanagerDomain.ErrPassphraseNotSet)
	})

	t.Run("Error_UnknownSource", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.PassphraseSource = "vault"
		container := NewContainer(cfg)

		_, err := container.Passphrase()
		assert.Error(t, err)
	})
}

func TestContainerKeyManagerWiring(t *testing.T) {
	t.Setenv(testPassphraseVariable, "correct-horse")
	ctx := context.Background()

	for _, metricsEnabled := range []bool{false, true} {
		cfg := newTestConfig(t)
		cfg.MetricsEnabled = metricsEnabled
		container := NewContainer(cfg)

		recordUseCase, err := container.RecordUseCase()
		require.NoError(t, err)
		_, err = recordUseCase.Bootstrap(ctx)
		require.NoError(t, err)
		assert.FileExists(t, cfg.KEKRecordPath)

		keyManager, err := container.EnvelopeKeyManager()
		require.NoError(t, err)

		dek, metadata, err := keyManager.GenerateKey(ctx)
		require.NoError(t, err)

		metadataRepo, err := container.MetadataRepository()
		require.NoError(t, err)
		require.NoError(t, metadataRepo.Save(ctx, "config-fw.xml", metadata))

		loaded, err := metadataRepo.Load(ctx, "config-fw.xml")
		require.NoError(t, err)

		retrieved, err := keyManager.RetrieveKey(ctx, loaded)
		require.NoError(t, err)
		assert.Equal(t, dek, retrieved)

		require.NoError(t, container.Shutdown(ctx))
	}
}

func TestContainerFirewallClient(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.PfSenseDomain = "https://192.168.1.1"
		cfg.PfSenseUsername = "admin"
		cfg.PfSensePassword = "pfsense"
		container := NewContainer(cfg)

		client, err := container.FirewallClient()
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("Error_MissingDomain", func(t *testing.T) {
		t.Setenv(testPassphraseVariable, "correct-horse")
		container := NewContainer(newTestConfig(t))

		_, err := container.FirewallClient()
		require.Error(t, err)

		_, err = container.BackupUseCase()
		assert.Error(t, err)
	})
}

func TestContainerBackupUseCase(t *testing.T) {
	t.Setenv(testPassphraseVariable, "correct-horse")
	cfg := newTestConfig(t)
	cfg.PfSenseDomain = "https://192.168.1.1"
	cfg.PfSenseUsername = "admin"
	cfg.PfSensePassword = "pfsense"
	cfg.MetricsEnabled = true
	container := NewContainer(cfg)
	defer func() { _ = container.Shutdown(context.Background()) }()

	useCase, err := container.BackupUseCase()
	require.NoError(t, err)

	names, err := useCase.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestContainerMetrics(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		container := NewContainer(newTestConfig(t))

		provider, err := container.MetricsProvider()
		require.NoError(t, err)
		assert.Nil(t, provider)

		businessMetrics, err := container.BusinessMetrics()
		require.NoError(t, err)
		assert.NotNil(t, businessMetrics)

		server, err := container.MetricsServer()
		require.NoError(t, err)
		assert.Nil(t, server)
	})

	t.Run("Enabled", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.MetricsEnabled = true
		container := NewContainer(cfg)
		defer func() { _ = container.Shutdown(context.Background()) }()

		server, err := container.MetricsServer()
		require.NoError(t, err)
		require.NotNil(t, server)

		w := httptest.NewRecorder()
		server.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		// No record has been bootstrapped yet.
		w = httptest.NewRecorder()
		server.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"record":"error"`)
		assert.Contains(t, w.Body.String(), `"bucket":"ok"`)
	})
}

// TestContainerShutdown verifies that the shutdown method can be called safely.
func TestContainerShutdown(t *testing.T) {
	container := NewContainer(newTestConfig(t))

	if err := container.Shutdown(context.TODO()); err != nil {
		t.Errorf("unexpected error during shutdown: %v", err)
	}
}
