package usecase

import (
	"context"
	"fmt"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
	keymanagerService "github.com/allisson/pfbackup/internal/keymanager/service"
)

// envelopeKeyManager implements EnvelopeKeyManager.
//
// Once the record exists it is read-only, so GenerateKey and RetrieveKey are safe to call
// concurrently. Each call re-derives the KEK and zeroes it before returning.
type envelopeKeyManager struct {
	passphrase Passphrase
	recordRepo RecordRepository
	verifier   keymanagerService.PassphraseVerifier
	wrapper    keymanagerService.KeyWrapper
}

// NewEnvelopeKeyManager creates an EnvelopeKeyManager for the given passphrase.
func NewEnvelopeKeyManager(
	passphrase Passphrase,
	recordRepo RecordRepository,
	verifier keymanagerService.PassphraseVerifier,
	wrapper keymanagerService.KeyWrapper,
) EnvelopeKeyManager {
	return &envelopeKeyManager{
		passphrase: passphrase,
		recordRepo: recordRepo,
		verifier:   verifier,
		wrapper:    wrapper,
	}
}

// GenerateKey creates a fresh DEK and its wrapped form.
func (m *envelopeKeyManager) GenerateKey(
	ctx context.Context,
) (string, *keymanagerDomain.WrappedKeyMetadata, error) {
	kek, err := m.deriveKek(ctx)
	if err != nil {
		return "", nil, err
	}
	defer keymanagerDomain.Zero(kek)

	iv, err := keymanagerDomain.RandomBytes(keymanagerDomain.IVSize)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	dek, err := keymanagerDomain.RandomBytes(keymanagerDomain.KeySize)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate dek: %w", err)
	}
	defer keymanagerDomain.Zero(dek)

	encryptedKey, err := m.wrapper.Wrap(dek, kek, iv)
	if err != nil {
		return "", nil, fmt.Errorf("failed to wrap dek: %w", err)
	}

	return keymanagerDomain.EncodeKey(dek), &keymanagerDomain.WrappedKeyMetadata{
		IV:           iv,
		EncryptedKey: encryptedKey,
	}, nil
}

// RetrieveKey recovers the DEK wrapped in metadata.
func (m *envelopeKeyManager) RetrieveKey(
	ctx context.Context,
	metadata *keymanagerDomain.WrappedKeyMetadata,
) (string, error) {
	if metadata == nil {
		return "", fmt.Errorf("%w: metadata is nil", keymanagerDomain.ErrMetadataCorrupt)
	}
	if err := metadata.Validate(); err != nil {
		return "", err
	}

	kek, err := m.deriveKek(ctx)
	if err != nil {
		return "", err
	}
	defer keymanagerDomain.Zero(kek)

	dek, err := m.wrapper.Unwrap(metadata.EncryptedKey, kek, metadata.IV)
	if err != nil {
		return "", fmt.Errorf("%w: %w", keymanagerDomain.ErrDecryptionFailed, err)
	}
	defer keymanagerDomain.Zero(dek)

	if len(dek) != keymanagerDomain.KeySize {
		return "", fmt.Errorf(
			"%w: unwrapped key is %d bytes, expected %d",
			keymanagerDomain.ErrDecryptionFailed,
			len(dek),
			keymanagerDomain.KeySize,
		)
	}

	return keymanagerDomain.EncodeKey(dek), nil
}

// deriveKek loads the record and verifies the passphrase against it, yielding the KEK.
func (m *envelopeKeyManager) deriveKek(ctx context.Context) ([]byte, error) {
	record, err := m.recordRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	var kek []byte
	err = m.passphrase.Use(func(passphrase []byte) error {
		var verifyErr error
		kek, verifyErr = m.verifier.Verify(passphrase, record)
		return verifyErr
	})
	if err != nil {
		return nil, err
	}
	return kek, nil
}
