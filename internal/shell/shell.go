// Package shell implements the interactive prompt of run mode.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"

	backupUseCase "github.com/allisson/pfbackup/internal/backup/usecase"
)

const (
	prompt = "\n> "

	helpText = "backup\n    Perform backup operations.\n" +
		"restore\n    Perform restore operations.\n" +
		"help\n    Prints this help message.\n" +
		"exit / quit\n    Exit the pfSense Auto Backup tool."

	backupHelpText = "backup now\n    Backup the config file now.\n" +
		"backup list\n    List all backups.\n" +
		"backup delete\n    Delete a backup.\n" +
		"backup help\n    Prints this help message."

	backupDeleteHelpText = "backup delete <filename>\n    Delete the specified backup file.\n" +
		"backup delete help\n    Prints this help message."

	restoreHelpText = "restore <filename>\n    Restore the specified backup file.\n" +
		"restore help\n    Prints this help message."

	// RebootNotice is printed after every restore attempt.
	RebootNotice = "After restoring a config file, pfSense should reboot shortly after. " +
		"This tool will now exit; ONLY start up this tool again once pfSense has finished " +
		"booting up (and finished installing all packages, if any)."
)

// ErrInputClosed is returned by Run when its input reaches end of file. Unlike exit or a
// restore it does not ask run mode to stop.
var ErrInputClosed = errors.New("shell input closed")

// Shell reads commands line by line and drives the backup use case.
type Shell struct {
	in      io.Reader
	out     io.Writer
	backups backupUseCase.BackupUseCase
	logger  *slog.Logger
	banner  string
}

// New creates a Shell. banner is printed once before the first prompt.
func New(
	in io.Reader,
	out io.Writer,
	backups backupUseCase.BackupUseCase,
	logger *slog.Logger,
	banner string,
) *Shell {
	return &Shell{in: in, out: out, backups: backups, logger: logger, banner: banner}
}

// Run serves commands until exit, a restore or ctx cancellation, all of which return nil.
// End of input returns ErrInputClosed.
func (s *Shell) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	if s.banner != "" {
		s.println(s.banner)
	}

	for {
		s.print(prompt)

		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("failed to read command: %w", err)
			}
			return ErrInputClosed
		case line := <-lines:
			if stop := s.Execute(ctx, line); stop {
				return nil
			}
		}
	}
}

// Execute runs one command line and reports whether the shell should stop.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "backup":
		s.backup(ctx, args[1:])
	case "restore":
		return s.restore(ctx, args[1:])
	case "help":
		s.println(helpText)
	case "exit", "quit":
		return true
	default:
		s.println(color.RedString("✗") + " Unrecognized command '" + args[0] + "'. " +
			"For a list of available commands, run " + color.YellowString("help") + ".")
	}
	return false
}

func (s *Shell) backup(ctx context.Context, args []string) {
	if len(args) == 0 {
		s.println(color.RedString("✗") + " Please specify a backup subcommand. " +
			"For a list of available backup subcommands, run " + color.YellowString("backup help") + ".")
		return
	}

	switch args[0] {
	case "now":
		artifact, err := s.backups.Backup(ctx)
		if err != nil {
			s.fail("Unable to back up config file", err)
			return
		}
		s.println(color.GreenString("✓") + " Config file backed up successfully to '" +
			color.YellowString(artifact.Name) + "'.")

	case "list":
		artifacts, err := s.backups.List(ctx)
		if err != nil {
			s.fail("Unable to list backups", err)
			return
		}
		if len(artifacts) == 0 {
			s.println(color.CyanString("→") + " No backups found.")
			return
		}
		for _, artifact := range artifacts {
			s.println(artifact.Name)
		}

	case "delete":
		switch {
		case len(args) < 2:
			s.println(color.RedString("✗") + " Please specify the filename of the backup file to delete. " +
				"For more information, run " + color.YellowString("backup delete help") + ".")
		case args[1] == "help":
			s.println(backupDeleteHelpText)
		default:
			if err := s.backups.Delete(ctx, args[1]); err != nil {
				s.fail("Unable to delete '"+args[1]+"'", err)
				return
			}
			s.println(color.GreenString("✓") + " Successfully removed '" + args[1] + "'.")
		}

	case "help":
		s.println(backupHelpText)

	default:
		s.println(color.RedString("✗") + " Unrecognized subcommand '" + args[0] + "'. " +
			"For a list of available commands, run " + color.YellowString("backup help") + ".")
	}
}

func (s *Shell) restore(ctx context.Context, args []string) bool {
	if len(args) == 0 {
		s.println(color.RedString("✗") + " Please specify a restore subcommand. " +
			"For a list of available restore subcommands, run " + color.YellowString("restore help") + ".")
		return false
	}
	if args[0] == "help" {
		s.println(restoreHelpText)
		return false
	}

	if err := s.backups.Restore(ctx, args[0]); err != nil {
		s.fail("Unable to restore '"+args[0]+"'", err)
	} else {
		s.println(color.GreenString("✓") + " Config file restored successfully.")
	}
	s.println(RebootNotice)
	return true
}

func (s *Shell) fail(message string, err error) {
	s.logger.Error(strings.ToLower(message), slog.Any("error", err))
	s.println(color.RedString("✗") + " " + message + ": " + err.Error())
}

func (s *Shell) print(text string) {
	_, _ = fmt.Fprint(s.out, text)
}

func (s *Shell) println(text string) {
	_, _ = fmt.Fprintln(s.out, text)
}
