package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	backupDomain "github.com/allisson/pfbackup/internal/backup/domain"
	backupUseCase "github.com/allisson/pfbackup/internal/backup/usecase"
	"github.com/allisson/pfbackup/internal/shell"
)

type artifactOutput struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// RunBackup takes a single backup of the firewall configuration.
func RunBackup(
	ctx context.Context,
	backups backupUseCase.BackupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	artifact, err := backups.Backup(ctx)
	if err != nil {
		return fmt.Errorf("failed to back up firewall configuration: %w", err)
	}

	logger.Info("backup completed", slog.String("artifact", artifact.Name))

	if format == "json" {
		return writeJSON(writer, artifactOutput{
			Name:     artifact.Name,
			Size:     artifact.Size,
			Modified: artifact.ModTime,
		})
	}
	_, _ = fmt.Fprintf(writer, "Backed up config file %s\n", artifact.Name)
	return nil
}

// RunRestore uploads a stored backup to the firewall. The firewall reboots afterwards.
func RunRestore(
	ctx context.Context,
	backups backupUseCase.BackupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name string,
) error {
	if err := backups.Restore(ctx, name); err != nil {
		return fmt.Errorf("failed to restore %s: %w", name, err)
	}

	logger.Info("restore submitted", slog.String("artifact", name))
	_, _ = fmt.Fprintf(writer, "Restored config file %s\n%s\n", name, shell.RebootNotice)
	return nil
}

// ArtifactLister lists stored backups. Implemented by the backup use case and the
// artifact repository.
type ArtifactLister interface {
	List(ctx context.Context) ([]backupDomain.Artifact, error)
}

// RunList prints stored backups.
func RunList(
	ctx context.Context,
	backups ArtifactLister,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	artifacts, err := backups.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if format == "json" {
		out := make([]artifactOutput, 0, len(artifacts))
		for _, a := range artifacts {
			out = append(out, artifactOutput{Name: a.Name, Size: a.Size, Modified: a.ModTime})
		}
		return writeJSON(writer, out)
	}

	if len(artifacts) == 0 {
		_, _ = fmt.Fprintln(writer, "No backups found")
		return nil
	}
	for _, a := range artifacts {
		_, _ = fmt.Fprintf(writer, "%s\t%d\t%s\n", a.Name, a.Size, a.ModTime.UTC().Format(time.RFC3339))
	}
	return nil
}

// RunDelete removes a stored backup together with its key metadata.
func RunDelete(
	ctx context.Context,
	backups backupUseCase.BackupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name string,
) error {
	if err := backups.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}

	logger.Info("backup deleted", slog.String("artifact", name))
	_, _ = fmt.Fprintf(writer, "Deleted config file %s\n", name)
	return nil
}
