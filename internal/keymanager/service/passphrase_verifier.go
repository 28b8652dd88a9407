package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

// HKDF info labels separating the two subkeys drawn from one Argon2id output.
// Versioned so a future derivation change can coexist with old records.
const (
	verifierInfo = "pfbackup-passphrase-verifier-v1"
	kekInfo      = "pfbackup-key-encryption-key-v1"
)

// passphraseVerifier implements PassphraseVerifier.
//
// The passphrase goes through Argon2id exactly once, identically for NewRecord and Verify.
// The Argon2id output is then split with HKDF-SHA256 into a verifier, which is stored in the
// record, and the KEK, which is never stored. Reading the record therefore does not reveal
// the KEK.
type passphraseVerifier struct {
	deriver KekDeriver
	params  keymanagerDomain.KDFParams
}

// NewPassphraseVerifier creates a PassphraseVerifier that bootstraps new records with params.
// Verification always uses the parameters stored in the record being checked.
func NewPassphraseVerifier(deriver KekDeriver, params keymanagerDomain.KDFParams) PassphraseVerifier {
	return &passphraseVerifier{
		deriver: deriver,
		params:  params,
	}
}

// NewRecord derives a new verification record with a fresh random salt.
func (v *passphraseVerifier) NewRecord(passphrase []byte) (*keymanagerDomain.VerificationRecord, error) {
	salt, err := keymanagerDomain.RandomBytes(keymanagerDomain.SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	verifier, kek, err := v.derive(passphrase, salt, v.params)
	if err != nil {
		return nil, err
	}
	keymanagerDomain.Zero(kek)

	return &keymanagerDomain.VerificationRecord{
		Algorithm: keymanagerDomain.AlgorithmArgon2id,
		Version:   argon2.Version,
		Params:    v.params,
		Salt:      salt,
		Hash:      verifier,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Verify re-derives the verifier from passphrase and the record salt and compares it to the
// stored hash in constant time. On success it returns the KEK; the caller owns it and should
// zero it after use.
func (v *passphraseVerifier) Verify(
	passphrase []byte,
	record *keymanagerDomain.VerificationRecord,
) ([]byte, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}

	verifier, kek, err := v.derive(passphrase, record.Salt, record.Params)
	if err != nil {
		return nil, err
	}
	defer keymanagerDomain.Zero(verifier)

	if subtle.ConstantTimeCompare(verifier, record.Hash) != 1 {
		keymanagerDomain.Zero(kek)
		return nil, keymanagerDomain.ErrVerificationFailed
	}

	return kek, nil
}

// derive runs the KDF once and expands its output into the verifier and the KEK.
func (v *passphraseVerifier) derive(
	passphrase, salt []byte,
	params keymanagerDomain.KDFParams,
) (verifier, kek []byte, err error) {
	master, err := v.deriver.DeriveKey(passphrase, salt, params)
	if err != nil {
		return nil, nil, err
	}
	defer keymanagerDomain.Zero(master)

	verifier, err = expand(master, salt, verifierInfo, int(params.KeyLength))
	if err != nil {
		return nil, nil, err
	}

	kek, err = expand(master, salt, kekInfo, keymanagerDomain.KeySize)
	if err != nil {
		keymanagerDomain.Zero(verifier)
		return nil, nil, err
	}

	return verifier, kek, nil
}

// expand draws size bytes from HKDF-SHA256 keyed by master with the given info label.
func expand(master, salt []byte, info string, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, salt, []byte(info)), out); err != nil {
		return nil, fmt.Errorf("%w: hkdf expand: %v", keymanagerDomain.ErrDerivationFailed, err)
	}
	return out, nil
}
