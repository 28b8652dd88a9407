package domain

import (
	apperrors "github.com/allisson/pfbackup/internal/errors"
)

var (
	// ErrArtifactNotFound indicates the named backup does not exist.
	ErrArtifactNotFound = apperrors.Wrap(apperrors.ErrNotFound, "backup artifact not found")

	// ErrArtifactExists indicates a backup with the same name is already stored.
	ErrArtifactExists = apperrors.Wrap(apperrors.ErrConflict, "backup artifact already exists")

	// ErrInvalidArtifactName indicates a name that cannot be used as an artifact key.
	ErrInvalidArtifactName = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid backup artifact name")
)
