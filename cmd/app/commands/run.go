package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	backupUseCase "github.com/allisson/pfbackup/internal/backup/usecase"
	keymanagerUseCase "github.com/allisson/pfbackup/internal/keymanager/usecase"
	"github.com/allisson/pfbackup/internal/scheduler"
	"github.com/allisson/pfbackup/internal/shell"
)

// DefaultShutdownTimeout bounds the metrics server shutdown when run mode stops.
const DefaultShutdownTimeout = 10 * time.Second

// Server is a background HTTP server started alongside the shell.
type Server interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// DaemonOptions configures RunDaemon. Server is optional.
type DaemonOptions struct {
	Records         keymanagerUseCase.RecordUseCase
	Backups         backupUseCase.BackupUseCase
	Server          Server
	Interval        time.Duration
	Banner          string
	IO              IOTuple
	Logger          *slog.Logger
	ShutdownTimeout time.Duration
}

// RunDaemon is the long-running mode. It makes sure a verification record exists, signs in
// to the firewall, then runs scheduled backups, the interactive shell and the optional
// metrics server until the shell exits or ctx is cancelled. Closing the shell input does not
// stop run mode.
func RunDaemon(ctx context.Context, opts DaemonOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := opts.Logger

	_, created, err := opts.Records.Ensure(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare verification record: %w", err)
	}
	if created {
		logger.Info("verification record created")
	}

	if err := opts.Backups.LoginWithRetry(ctx); err != nil {
		return fmt.Errorf("failed to sign in to the firewall: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	sched := scheduler.New(opts.Interval, func(ctx context.Context) error {
		_, err := opts.Backups.Backup(ctx)
		return err
	}, logger)
	g.Go(func() error {
		return sched.Run(gctx)
	})

	g.Go(func() error {
		err := shell.New(opts.IO.Reader, opts.IO.Writer, opts.Backups, logger, opts.Banner).Run(gctx)
		if errors.Is(err, shell.ErrInputClosed) {
			// Headless: keep scheduled backups running until ctx is cancelled.
			logger.Info("standard input closed, continuing with scheduled backups only")
			return nil
		}
		// Leaving the shell stops everything else.
		cancel()
		return err
	})

	if opts.Server != nil {
		timeout := opts.ShutdownTimeout
		if timeout <= 0 {
			timeout = DefaultShutdownTimeout
		}
		g.Go(func() error {
			return opts.Server.Start(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
			defer shutdownCancel()
			return opts.Server.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("run mode stopped")
	return nil
}
