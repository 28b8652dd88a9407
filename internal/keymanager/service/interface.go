// Package service provides the cryptographic building blocks of passphrase-based envelope
// encryption: Argon2id key derivation, passphrase verification and AES-256-CBC key wrapping.
package service

import (
	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

// KekDeriver turns a passphrase and salt into fixed-length key bytes.
type KekDeriver interface {
	// DeriveKey runs the memory-hard KDF. Identical inputs always yield identical output.
	// Returns ErrDerivationFailed if the salt is too short or the parameters are invalid.
	DeriveKey(passphrase, salt []byte, params keymanagerDomain.KDFParams) ([]byte, error)
}

// PassphraseVerifier creates and checks verification records.
type PassphraseVerifier interface {
	// NewRecord derives a verification record for passphrase with a fresh random salt.
	// The record is not persisted.
	NewRecord(passphrase []byte) (*keymanagerDomain.VerificationRecord, error)

	// Verify checks passphrase against record in constant time and, on success, returns the
	// KEK for that installation. Returns ErrVerificationFailed on mismatch.
	Verify(passphrase []byte, record *keymanagerDomain.VerificationRecord) ([]byte, error)
}

// KeyWrapper encrypts and decrypts DEKs under a KEK.
type KeyWrapper interface {
	// Wrap encrypts dek under kek with the given iv.
	Wrap(dek, kek, iv []byte) ([]byte, error)

	// Unwrap decrypts ciphertext under kek with the given iv.
	Unwrap(ciphertext, kek, iv []byte) ([]byte, error)
}
