// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gocloud.dev/blob"
	// Registered bucket drivers, selected by the BACKUP_BUCKET_URL scheme.
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	backupUseCase "github.com/allisson/pfbackup/internal/backup/usecase"
	"github.com/allisson/pfbackup/internal/config"
	"github.com/allisson/pfbackup/internal/http"
	keymanagerService "github.com/allisson/pfbackup/internal/keymanager/service"
	keymanagerUseCase "github.com/allisson/pfbackup/internal/keymanager/usecase"
	"github.com/allisson/pfbackup/internal/metrics"
	"github.com/allisson/pfbackup/internal/passphrase"
	"github.com/allisson/pfbackup/internal/pfsense"
)

// Container holds all application dependencies and provides methods to access them.
// Components are created on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	bucket          *blob.Bucket
	passphrase      *passphrase.Passphrase
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	metricsServer   *http.MetricsServer
	firewallClient  *pfsense.Client

	// Key manager
	recordRepository   keymanagerUseCase.RecordRepository
	metadataRepository keymanagerUseCase.MetadataRepository
	passphraseVerifier keymanagerService.PassphraseVerifier
	keyWrapper         keymanagerService.KeyWrapper
	envelopeKeyManager keymanagerUseCase.EnvelopeKeyManager
	recordUseCase      keymanagerUseCase.RecordUseCase

	// Backup
	artifactRepository backupUseCase.ArtifactRepository
	backupUseCase      backupUseCase.BackupUseCase

	mu                     sync.Mutex
	loggerInit             sync.Once
	bucketInit             sync.Once
	passphraseInit         sync.Once
	metricsProviderInit    sync.Once
	businessMetricsInit    sync.Once
	metricsServerInit      sync.Once
	firewallClientInit     sync.Once
	recordRepositoryInit   sync.Once
	metadataRepositoryInit sync.Once
	passphraseVerifierInit sync.Once
	keyWrapperInit         sync.Once
	envelopeKeyManagerInit sync.Once
	recordUseCaseInit      sync.Once
	artifactRepositoryInit sync.Once
	backupUseCaseInit      sync.Once
	initErrors             map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// Bucket returns the blob bucket holding artifacts and their sidecars.
func (c *Container) Bucket() (*blob.Bucket, error) {
	var err error
	c.bucketInit.Do(func() {
		c.bucket, err = c.initBucket()
		if err != nil {
			c.initErrors["bucket"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["bucket"]; exists {
		return nil, storedErr
	}
	return c.bucket, nil
}

// Passphrase returns the operator passphrase loaded from the configured source.
func (c *Container) Passphrase() (*passphrase.Passphrase, error) {
	var err error
	c.passphraseInit.Do(func() {
		c.passphrase, err = c.initPassphrase()
		if err != nil {
			c.initErrors["passphrase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["passphrase"]; exists {
		return nil, storedErr
	}
	return c.passphrase, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is returned when
// metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// MetricsServer returns the metrics HTTP server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.bucket != nil {
		if err := c.bucket.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("bucket close: %w", err))
		}
	}

	if c.passphrase != nil {
		c.passphrase.Destroy()
	}

	return errors.Join(shutdownErrors...)
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

func (c *Container) initBucket() (*blob.Bucket, error) {
	bucket, err := blob.OpenBucket(context.Background(), c.config.BackupBucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup bucket: %w", err)
	}
	return bucket, nil
}

func (c *Container) initPassphrase() (*passphrase.Passphrase, error) {
	source, err := passphrase.NewSource(
		c.config.PassphraseSource,
		c.config.PassphraseEnvVariable,
		c.config.KeyringService,
		c.config.KeyringKey,
	)
	if err != nil {
		return nil, err
	}

	p, err := source.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load passphrase: %w", err)
	}
	return p, nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	bucket, err := c.Bucket()
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket for metrics server: %w", err)
	}

	recordRepo := c.RecordRepository()

	checks := map[string]http.ReadinessCheck{
		"bucket": func(ctx context.Context) error {
			ok, err := bucket.IsAccessible(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("bucket is not accessible")
			}
			return nil
		},
		"record": func(ctx context.Context) error {
			_, err := recordRepo.Load(ctx)
			return err
		},
	}

	return http.NewMetricsServer(
		c.config.MetricsHost,
		c.config.MetricsPort,
		c.Logger(),
		provider,
		c.config.MetricsNamespace,
		checks,
	), nil
}
