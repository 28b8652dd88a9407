package usecase

import (
	"context"
	"time"

	backupDomain "github.com/allisson/pfbackup/internal/backup/domain"
	"github.com/allisson/pfbackup/internal/metrics"
)

const metricsDomain = "backup"

// backupUseCaseWithMetrics decorates BackupUseCase with metrics instrumentation.
// Login, List and other read paths are not recorded.
type backupUseCaseWithMetrics struct {
	next    BackupUseCase
	metrics metrics.BusinessMetrics
}

// NewBackupUseCaseWithMetrics wraps a BackupUseCase with metrics recording.
func NewBackupUseCaseWithMetrics(useCase BackupUseCase, m metrics.BusinessMetrics) BackupUseCase {
	return &backupUseCaseWithMetrics{next: useCase, metrics: m}
}

func (b *backupUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusOf(err)
	b.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	b.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

func (b *backupUseCaseWithMetrics) LoginWithRetry(ctx context.Context) error {
	return b.next.LoginWithRetry(ctx)
}

func (b *backupUseCaseWithMetrics) Backup(ctx context.Context) (*backupDomain.Artifact, error) {
	start := time.Now()
	artifact, err := b.next.Backup(ctx)
	b.record(ctx, "backup", start, err)
	return artifact, err
}

func (b *backupUseCaseWithMetrics) Restore(ctx context.Context, name string) error {
	start := time.Now()
	err := b.next.Restore(ctx, name)
	b.record(ctx, "restore", start, err)
	return err
}

func (b *backupUseCaseWithMetrics) List(ctx context.Context) ([]backupDomain.Artifact, error) {
	return b.next.List(ctx)
}

func (b *backupUseCaseWithMetrics) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := b.next.Delete(ctx, name)
	b.record(ctx, "delete", start, err)
	return err
}
