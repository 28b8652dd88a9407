// Package domain defines backup artifacts: configuration files downloaded from the
// firewall, encrypted by the firewall under a per-artifact DEK.
package domain

import (
	"strings"
	"time"

	apperrors "github.com/allisson/pfbackup/internal/errors"
	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

// ArtifactExtension is the suffix of configuration backups. Anything else in the bucket,
// sidecars included, is not listed.
const ArtifactExtension = ".xml"

// Artifact describes a stored backup.
type Artifact struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// IsArtifactName reports whether a bucket key names a backup artifact.
func IsArtifactName(name string) bool {
	return strings.HasSuffix(name, ArtifactExtension) &&
		!keymanagerDomain.IsSidecarName(name) &&
		!strings.Contains(name, "/")
}

// ArtifactName validates a caller-supplied name and reduces it to a bucket key.
func ArtifactName(name string) (string, error) {
	clean := keymanagerDomain.CleanArtifactName(name)
	if clean == "" {
		return "", apperrors.Wrapf(ErrInvalidArtifactName, "%q", name)
	}
	if keymanagerDomain.IsSidecarName(clean) {
		return "", apperrors.Wrapf(ErrInvalidArtifactName, "%q is a key metadata file", name)
	}
	return clean, nil
}
