package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/allisson/pfbackup/cmd/app/commands"
	"github.com/allisson/pfbackup/internal/scheduler"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "run",
			Usage: "Run scheduled backups with the interactive shell",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				cfg := container.Config()
				if err := cfg.ValidateRunMode(); err != nil {
					return err
				}
				interval, err := scheduler.ParseInterval(cfg.BackupSchedule)
				if err != nil {
					return err
				}

				gin.SetMode(cfg.GetGinMode())

				logger := container.Logger()
				logger.Info("starting run mode",
					slog.String("version", version),
					slog.String("schedule", cfg.BackupSchedule),
				)
				defer commands.CloseContainer(container, logger)

				recordUseCase, err := container.RecordUseCase()
				if err != nil {
					return err
				}
				backups, err := container.BackupUseCase()
				if err != nil {
					return err
				}

				opts := commands.DaemonOptions{
					Records:  recordUseCase,
					Backups:  backups,
					Interval: interval,
					Banner:   banner(version),
					IO:       commands.DefaultIO(),
					Logger:   logger,
				}

				metricsServer, err := container.MetricsServer()
				if err != nil {
					return fmt.Errorf("failed to initialize metrics server: %w", err)
				}
				if metricsServer != nil {
					opts.Server = metricsServer
				}

				ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer cancel()

				return commands.RunDaemon(ctx, opts)
			},
		},
	}
}

func banner(version string) string {
	return figure.NewFigure("pfbackup", "", true).String() +
		fmt.Sprintf("\npfSense Auto Backup Tool v%s", version)
}
