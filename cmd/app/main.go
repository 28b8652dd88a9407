// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/awnumar/memguard"
	"github.com/urfave/cli/v3"
)

// Version is set at build time.
var Version = "0.1.0"

func main() {
	cmd := &cli.Command{
		Name:     "pfbackup",
		Usage:    "Encrypted pfSense configuration backups",
		Version:  Version,
		Commands: getCommands(Version),
	}

	err := cmd.Run(context.Background(), os.Args)
	memguard.Purge()
	if err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
