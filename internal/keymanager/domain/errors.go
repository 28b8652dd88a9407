package domain

import (
	"github.com/allisson/pfbackup/internal/errors"
)

// Key management error definitions.
//
// These domain-specific errors wrap the standard errors from internal/errors so callers can
// classify a failure with errors.Is either precisely (ErrVerificationFailed) or broadly
// (errors.ErrUnauthorized).
var (
	// ErrPassphraseNotSet indicates no passphrase is available from the configured source.
	ErrPassphraseNotSet = errors.Wrap(errors.ErrInvalidInput, "encryption passphrase is not set")

	// ErrRecordNotFound indicates the verification record has not been bootstrapped yet.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "verification record not found")

	// ErrRecordExists indicates bootstrap found an existing verification record.
	//
	// The record is immutable after creation; remove it explicitly (invalidating every
	// wrapped key) to bootstrap again.
	ErrRecordExists = errors.Wrap(errors.ErrConflict, "verification record already exists")

	// ErrRecordCorrupt indicates the verification record could not be parsed or carries
	// unsupported parameters.
	ErrRecordCorrupt = errors.Wrap(errors.ErrInvalidInput, "verification record is corrupt")

	// ErrDerivationFailed indicates key derivation could not run (e.g., salt too short).
	ErrDerivationFailed = errors.Wrap(errors.ErrInvalidInput, "key derivation failed")

	// ErrVerificationFailed indicates the passphrase does not match the verification record.
	ErrVerificationFailed = errors.Wrap(errors.ErrUnauthorized, "passphrase verification failed")

	// ErrMetadataNotFound indicates an artifact has no metadata sidecar.
	ErrMetadataNotFound = errors.Wrap(errors.ErrNotFound, "key metadata not found")

	// ErrMetadataExists indicates an artifact already has a sidecar. Sidecars are written once.
	ErrMetadataExists = errors.Wrap(errors.ErrConflict, "key metadata already exists")

	// ErrMetadataCorrupt indicates a metadata sidecar could not be parsed or has invalid fields.
	ErrMetadataCorrupt = errors.Wrap(errors.ErrInvalidInput, "key metadata is corrupt")

	// ErrInvalidKeySize indicates a KEK or DEK is not exactly KeySize bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidIVSize indicates an initialization vector is not exactly IVSize bytes.
	ErrInvalidIVSize = errors.Wrap(errors.ErrInvalidInput, "invalid iv size")

	// ErrInvalidPadding indicates the decrypted plaintext does not carry valid PKCS#7 padding.
	//
	// Usually the result of a wrong KEK or a corrupted ciphertext.
	ErrInvalidPadding = errors.Wrap(errors.ErrInvalidInput, "invalid padding")

	// ErrDecryptionFailed indicates a wrapped key could not be unwrapped.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)
