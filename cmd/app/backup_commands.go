package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/pfbackup/cmd/app/commands"
)

func getBackupCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "backup",
			Usage: "Download an encrypted configuration backup from pfSense",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer commands.CloseContainer(container, container.Logger())

				backups, err := container.BackupUseCase()
				if err != nil {
					return err
				}

				stop := startSpinner("Downloading configuration from pfSense")
				defer stop()

				return commands.RunBackup(
					ctx,
					backups,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "restore",
			Usage: "Restore a stored backup to pfSense (the firewall reboots afterwards)",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Required: true,
					Usage:    "Backup file name as shown by list",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer commands.CloseContainer(container, container.Logger())

				backups, err := container.BackupUseCase()
				if err != nil {
					return err
				}

				stop := startSpinner("Uploading configuration to pfSense")
				defer stop()

				return commands.RunRestore(
					ctx,
					backups,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("file"),
				)
			},
		},
		{
			Name:  "list",
			Usage: "List stored backups",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer commands.CloseContainer(container, container.Logger())

				artifacts, err := container.ArtifactRepository()
				if err != nil {
					return err
				}

				return commands.RunList(ctx, artifacts, commands.DefaultIO().Writer, cmd.String("format"))
			},
		},
		{
			Name:  "delete",
			Usage: "Delete a stored backup and its key metadata",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Required: true,
					Usage:    "Backup file name as shown by list",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer commands.CloseContainer(container, container.Logger())

				backups, err := container.BackupUseCase()
				if err != nil {
					return err
				}

				return commands.RunDelete(
					ctx,
					backups,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("file"),
				)
			},
		},
	}
}
