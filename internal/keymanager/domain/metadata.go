package domain

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// WrappedKeyMetadata is the sidecar persisted next to each protected artifact.
// It carries everything needed, besides the passphrase, to recover the artifact's DEK.
type WrappedKeyMetadata struct {
	IV           []byte `json:"iv"`            // CBC initialization vector (IVSize bytes)
	EncryptedKey []byte `json:"encrypted_key"` // DEK encrypted under the KEK, PKCS#7 padded
}

// Validate checks the sidecar fields have the shapes the key wrapper expects.
func (m *WrappedKeyMetadata) Validate() error {
	if len(m.IV) != IVSize {
		return fmt.Errorf("%w: iv must be %d bytes, got %d", ErrMetadataCorrupt, IVSize, len(m.IV))
	}
	if len(m.EncryptedKey) == 0 || len(m.EncryptedKey)%BlockSize != 0 {
		return fmt.Errorf(
			"%w: encrypted key must be a non-empty multiple of %d bytes, got %d",
			ErrMetadataCorrupt,
			BlockSize,
			len(m.EncryptedKey),
		)
	}
	return nil
}

// MarshalMetadata encodes a sidecar as JSON.
func MarshalMetadata(m *WrappedKeyMetadata) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode key metadata: %w", err)
	}
	return data, nil
}

// ParseMetadata decodes and validates a sidecar document.
// Any malformed input yields an error wrapping ErrMetadataCorrupt.
func ParseMetadata(data []byte) (*WrappedKeyMetadata, error) {
	var m WrappedKeyMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataCorrupt, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// SidecarName returns the metadata sidecar name bound to an artifact.
func SidecarName(artifact string) string {
	return artifact + SidecarSuffix
}

// IsSidecarName reports whether name is a metadata sidecar rather than an artifact.
func IsSidecarName(name string) bool {
	return strings.HasSuffix(name, SidecarSuffix)
}

// CleanArtifactName reduces a caller-supplied name to a bare file name so it cannot
// escape the storage root. Returns an empty string for names that reduce to nothing.
func CleanArtifactName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	base := path.Base(path.Clean("/" + name))
	if base == "/" || base == "." {
		return ""
	}
	return base
}
