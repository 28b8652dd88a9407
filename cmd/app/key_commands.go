package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/pfbackup/cmd/app/commands"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "bootstrap",
			Usage: "Create the passphrase verification record",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer commands.CloseContainer(container, container.Logger())

				recordUseCase, err := container.RecordUseCase()
				if err != nil {
					return err
				}

				return commands.RunBootstrap(
					ctx,
					recordUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					container.Config().KEKRecordPath,
				)
			},
		},
		{
			Name:  "reset-record",
			Usage: "Delete the passphrase verification record (existing backups become unrecoverable)",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "confirm",
					Value: false,
					Usage: "Confirm that existing backups may become unrecoverable",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer commands.CloseContainer(container, container.Logger())

				recordUseCase, err := container.RecordUseCase()
				if err != nil {
					return err
				}

				return commands.RunResetRecord(
					ctx,
					recordUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					container.Config().KEKRecordPath,
					cmd.Bool("confirm"),
				)
			},
		},
		{
			Name:  "generate-key",
			Usage: "Generate a data encryption key for an artifact and save its metadata",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "artifact",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Artifact name (e.g., config-fw.example.com-20260101.xml)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer commands.CloseContainer(container, container.Logger())

				keyManager, err := container.EnvelopeKeyManager()
				if err != nil {
					return err
				}
				metadataRepo, err := container.MetadataRepository()
				if err != nil {
					return err
				}

				return commands.RunGenerateKey(
					ctx,
					keyManager,
					metadataRepo,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("artifact"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "retrieve-key",
			Usage: "Print the data encryption key bound to an artifact",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "artifact",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Artifact name",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer commands.CloseContainer(container, container.Logger())

				keyManager, err := container.EnvelopeKeyManager()
				if err != nil {
					return err
				}
				metadataRepo, err := container.MetadataRepository()
				if err != nil {
					return err
				}

				return commands.RunRetrieveKey(
					ctx,
					keyManager,
					metadataRepo,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("artifact"),
					cmd.String("format"),
				)
			},
		},
	}
}
