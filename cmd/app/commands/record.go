package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
	keymanagerUseCase "github.com/allisson/pfbackup/internal/keymanager/usecase"
)

// RunBootstrap creates the passphrase verification record at recordPath. It refuses to
// overwrite an existing record.
//
// Requirements: the passphrase must be available from the configured source.
func RunBootstrap(
	ctx context.Context,
	recordUseCase keymanagerUseCase.RecordUseCase,
	logger *slog.Logger,
	writer io.Writer,
	recordPath string,
) error {
	logger.Info("bootstrapping verification record", slog.String("path", recordPath))

	record, err := recordUseCase.Bootstrap(ctx)
	switch {
	case errors.Is(err, keymanagerDomain.ErrRecordExists):
		return fmt.Errorf(
			"a verification record already exists at %s; keep it to recover existing backups, "+
				"or run reset-record --confirm to start over: %w",
			recordPath, err,
		)
	case err != nil:
		return fmt.Errorf(
			"failed to bootstrap verification record at %s; check that the encryption passphrase "+
				"is set and the directory is writable: %w",
			recordPath, err,
		)
	}

	logger.Info("verification record created",
		slog.String("path", recordPath),
		slog.Uint64("time_cost", uint64(record.Params.TimeCost)),
		slog.Uint64("memory_cost_kib", uint64(record.Params.MemoryCost)),
		slog.Uint64("parallelism", uint64(record.Params.Parallelism)),
	)

	_, _ = fmt.Fprintf(writer, "Verification record created at %s (%s)\n",
		recordPath, record.CreatedAt.UTC().Format(time.RFC3339))
	_, _ = fmt.Fprintln(writer, "Keep the passphrase safe: backups cannot be restored without it.")
	return nil
}

// RunResetRecord deletes the verification record. Every wrapped key created under it becomes
// unrecoverable, so the operator must pass confirm.
func RunResetRecord(
	ctx context.Context,
	recordUseCase keymanagerUseCase.RecordUseCase,
	logger *slog.Logger,
	writer io.Writer,
	recordPath string,
	confirm bool,
) error {
	if !confirm {
		return errors.New(
			"refusing to delete the verification record without --confirm; " +
				"existing backups will no longer be restorable",
		)
	}

	if err := recordUseCase.Reset(ctx); err != nil {
		return fmt.Errorf("failed to delete verification record at %s: %w", recordPath, err)
	}

	logger.Warn("verification record deleted", slog.String("path", recordPath))
	_, _ = fmt.Fprintf(writer, "Verification record at %s deleted\n", recordPath)
	return nil
}
