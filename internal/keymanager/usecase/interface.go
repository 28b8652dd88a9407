// Package usecase orchestrates passphrase verification, key generation and key retrieval
// for envelope-encrypted backup artifacts.
package usecase

import (
	"context"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

// Passphrase gives scoped access to the operator passphrase.
//
// Use hands the passphrase bytes to fn and wipes them when fn returns; fn must not retain
// the slice. Implemented by passphrase.Passphrase.
type Passphrase interface {
	Use(fn func(passphrase []byte) error) error
}

// RecordRepository persists the verification record.
type RecordRepository interface {
	// Load returns the record, ErrRecordNotFound or ErrRecordCorrupt.
	Load(ctx context.Context) (*keymanagerDomain.VerificationRecord, error)

	// Create stores the record atomically, failing with ErrRecordExists if one is present.
	Create(ctx context.Context, record *keymanagerDomain.VerificationRecord) error

	// Delete removes the record, returning ErrRecordNotFound if absent.
	Delete(ctx context.Context) error
}

// MetadataRepository persists wrapped key sidecars keyed by artifact name.
type MetadataRepository interface {
	Load(ctx context.Context, artifact string) (*keymanagerDomain.WrappedKeyMetadata, error)
	Save(ctx context.Context, artifact string, metadata *keymanagerDomain.WrappedKeyMetadata) error
	Delete(ctx context.Context, artifact string) error
}

// EnvelopeKeyManager generates and recovers per-artifact DEKs. It holds no state besides
// its collaborators; persisting the returned metadata is the caller's job.
type EnvelopeKeyManager interface {
	// GenerateKey verifies the passphrase, draws a fresh DEK and IV, wraps the DEK under
	// the KEK and returns the DEK as lowercase hex together with its sidecar metadata.
	GenerateKey(ctx context.Context) (string, *keymanagerDomain.WrappedKeyMetadata, error)

	// RetrieveKey verifies the passphrase and unwraps the DEK held in metadata.
	RetrieveKey(ctx context.Context, metadata *keymanagerDomain.WrappedKeyMetadata) (string, error)
}

// RecordUseCase manages the verification record lifecycle: Absent → Present → (reset) Absent.
type RecordUseCase interface {
	// Bootstrap creates the record from the configured passphrase.
	// Returns ErrRecordExists if a record is already present.
	Bootstrap(ctx context.Context) (*keymanagerDomain.VerificationRecord, error)

	// Ensure loads the record, bootstrapping it first if absent. Losing a bootstrap race to
	// another process is not an error; the winner's record is returned. The configured
	// passphrase is verified against the resulting record.
	Ensure(ctx context.Context) (record *keymanagerDomain.VerificationRecord, created bool, err error)

	// Reset deletes the record. Every existing wrapped key becomes unrecoverable.
	Reset(ctx context.Context) error
}
