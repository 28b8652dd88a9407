package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	backupDomain "github.com/allisson/pfbackup/internal/backup/domain"
	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
	keymanagerUseCase "github.com/allisson/pfbackup/internal/keymanager/usecase"
)

type keyOutput struct {
	Artifact string `json:"artifact"`
	Key      string `json:"key"`
	Metadata string `json:"metadata,omitempty"`
}

// RunGenerateKey generates a DEK for artifact, stores its wrapped form in the artifact's
// sidecar and prints the hex key. The key is written to writer only, never to the log.
// An artifact that already has a sidecar keeps it and nothing is printed.
func RunGenerateKey(
	ctx context.Context,
	keyManager keymanagerUseCase.EnvelopeKeyManager,
	metadataRepo keymanagerUseCase.MetadataRepository,
	logger *slog.Logger,
	writer io.Writer,
	artifact string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	name, err := backupDomain.ArtifactName(artifact)
	if err != nil {
		return err
	}

	key, metadata, err := keyManager.GenerateKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	if err := metadataRepo.Save(ctx, name, metadata); err != nil {
		if errors.Is(err, keymanagerDomain.ErrMetadataExists) {
			return fmt.Errorf(
				"%s already has a key; use retrieve-key to read it: %w", name, err,
			)
		}
		return fmt.Errorf("failed to save key metadata for %s: %w", name, err)
	}

	logger.Info("key generated", slog.String("artifact", name))

	out := keyOutput{Artifact: name, Key: key, Metadata: keymanagerDomain.SidecarName(name)}
	if format == "json" {
		return writeJSON(writer, out)
	}
	_, _ = fmt.Fprintf(writer, "Key for %s (metadata saved to %s):\n%s\n", out.Artifact, out.Metadata, out.Key)
	return nil
}

// RunRetrieveKey unwraps and prints the DEK bound to artifact.
func RunRetrieveKey(
	ctx context.Context,
	keyManager keymanagerUseCase.EnvelopeKeyManager,
	metadataRepo keymanagerUseCase.MetadataRepository,
	logger *slog.Logger,
	writer io.Writer,
	artifact string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	name, err := backupDomain.ArtifactName(artifact)
	if err != nil {
		return err
	}

	metadata, err := metadataRepo.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load key metadata for %s: %w", name, err)
	}

	key, err := keyManager.RetrieveKey(ctx, metadata)
	if err != nil {
		return fmt.Errorf("failed to retrieve key for %s: %w", name, err)
	}

	logger.Info("key retrieved", slog.String("artifact", name))

	if format == "json" {
		return writeJSON(writer, keyOutput{Artifact: name, Key: key})
	}
	_, _ = fmt.Fprintln(writer, key)
	return nil
}
