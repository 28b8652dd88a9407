package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	backupDomain "github.com/allisson/pfbackup/internal/backup/domain"
	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
	keymanagerUseCase "github.com/allisson/pfbackup/internal/keymanager/usecase"
)

// DefaultLoginRetryInterval paces LoginWithRetry when no interval is configured.
const DefaultLoginRetryInterval = 5 * time.Second

type backupUseCase struct {
	firewall           FirewallClient
	keyManager         keymanagerUseCase.EnvelopeKeyManager
	metadataRepo       keymanagerUseCase.MetadataRepository
	artifactRepo       ArtifactRepository
	loginRetryInterval time.Duration
	logger             *slog.Logger

	// mu serializes firewall operations; the GUI session is shared.
	mu sync.Mutex
}

// NewBackupUseCase creates a BackupUseCase.
func NewBackupUseCase(
	firewall FirewallClient,
	keyManager keymanagerUseCase.EnvelopeKeyManager,
	metadataRepo keymanagerUseCase.MetadataRepository,
	artifactRepo ArtifactRepository,
	loginRetryInterval time.Duration,
	logger *slog.Logger,
) BackupUseCase {
	if loginRetryInterval <= 0 {
		loginRetryInterval = DefaultLoginRetryInterval
	}
	return &backupUseCase{
		firewall:           firewall,
		keyManager:         keyManager,
		metadataRepo:       metadataRepo,
		artifactRepo:       artifactRepo,
		loginRetryInterval: loginRetryInterval,
		logger:             logger,
	}
}

func (b *backupUseCase) LoginWithRetry(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(b.loginRetryInterval), 1)

	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("login aborted after %d attempt(s): %w", attempt-1, err)
		}

		err := b.firewall.Login(ctx)
		if err == nil {
			b.logger.Info("logged in to pfsense", slog.Int("attempts", attempt))
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("login aborted after %d attempt(s): %w", attempt, ctx.Err())
		}

		b.logger.Warn("pfsense login failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", b.loginRetryInterval),
			slog.Any("error", err),
		)
	}
}

func (b *backupUseCase) Backup(ctx context.Context) (*backupDomain.Artifact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	logger := b.logger.With(slog.String("operation_id", newOperationID()))

	hexKey, metadata, err := b.keyManager.GenerateKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate backup key: %w", err)
	}

	// Sessions expire on the firewall, so each run signs in first.
	if err := b.firewall.Login(ctx); err != nil {
		return nil, err
	}

	download, err := b.firewall.DownloadBackup(ctx, hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to download backup: %w", err)
	}
	defer func() { _ = download.Body.Close() }()

	name, err := backupDomain.ArtifactName(download.Filename)
	if err != nil {
		return nil, err
	}
	logger = logger.With(slog.String("artifact", name))

	size, err := b.artifactRepo.Create(ctx, name, download.Body)
	if err != nil {
		return nil, err
	}

	if err := b.metadataRepo.Save(ctx, name, metadata); err != nil {
		// An artifact without its sidecar can never be decrypted.
		if deleteErr := b.artifactRepo.Delete(ctx, name); deleteErr != nil {
			logger.Error("failed to remove artifact without key metadata", slog.Any("error", deleteErr))
		}
		return nil, fmt.Errorf("failed to save key metadata: %w", err)
	}

	logger.Info("backup stored",
		slog.Int64("size", size),
		slog.Duration("duration", time.Since(start)),
	)
	return &backupDomain.Artifact{Name: name, Size: size, ModTime: start}, nil
}

func (b *backupUseCase) Restore(ctx context.Context, name string) error {
	name, err := backupDomain.ArtifactName(name)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	logger := b.logger.With(
		slog.String("operation_id", newOperationID()),
		slog.String("artifact", name),
	)

	metadata, err := b.metadataRepo.Load(ctx, name)
	if err != nil {
		return err
	}

	hexKey, err := b.keyManager.RetrieveKey(ctx, metadata)
	if err != nil {
		return fmt.Errorf("failed to recover backup key: %w", err)
	}

	content, err := b.artifactRepo.Open(ctx, name)
	if err != nil {
		return err
	}
	defer func() { _ = content.Close() }()

	if err := b.firewall.Login(ctx); err != nil {
		return err
	}
	if err := b.firewall.RestoreBackup(ctx, name, content, hexKey); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	logger.Info("backup restored", slog.Duration("duration", time.Since(start)))
	return nil
}

func (b *backupUseCase) List(ctx context.Context) ([]backupDomain.Artifact, error) {
	return b.artifactRepo.List(ctx)
}

func (b *backupUseCase) Delete(ctx context.Context, name string) error {
	name, err := backupDomain.ArtifactName(name)
	if err != nil {
		return err
	}

	if err := b.artifactRepo.Delete(ctx, name); err != nil {
		return err
	}

	// A sidecar may be missing for artifacts copied in by hand.
	if err := b.metadataRepo.Delete(ctx, name); err != nil &&
		!errors.Is(err, keymanagerDomain.ErrMetadataNotFound) {
		return fmt.Errorf("artifact %s deleted but its key metadata was not: %w", name, err)
	}

	b.logger.Info("backup deleted", slog.String("artifact", name))
	return nil
}

func newOperationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
