package app

import (
	"fmt"

	keymanagerRepository "github.com/allisson/pfbackup/internal/keymanager/repository"
	keymanagerService "github.com/allisson/pfbackup/internal/keymanager/service"
	keymanagerUseCase "github.com/allisson/pfbackup/internal/keymanager/usecase"
)

// RecordRepository returns the file-backed verification record repository.
func (c *Container) RecordRepository() keymanagerUseCase.RecordRepository {
	c.recordRepositoryInit.Do(func() {
		c.recordRepository = keymanagerRepository.NewFileRecordRepository(c.config.KEKRecordPath)
	})
	return c.recordRepository
}

// MetadataRepository returns the sidecar repository stored next to the artifacts.
func (c *Container) MetadataRepository() (keymanagerUseCase.MetadataRepository, error) {
	var err error
	c.metadataRepositoryInit.Do(func() {
		c.metadataRepository, err = c.initMetadataRepository()
		if err != nil {
			c.initErrors["metadataRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metadataRepository"]; exists {
		return nil, storedErr
	}
	return c.metadataRepository, nil
}

// PassphraseVerifier returns the verifier used to bootstrap and check records.
func (c *Container) PassphraseVerifier() keymanagerService.PassphraseVerifier {
	c.passphraseVerifierInit.Do(func() {
		c.passphraseVerifier = keymanagerService.NewPassphraseVerifier(
			keymanagerService.NewArgon2idDeriver(),
			c.config.KDFParams(),
		)
	})
	return c.passphraseVerifier
}

// KeyWrapper returns the DEK wrapper.
func (c *Container) KeyWrapper() keymanagerService.KeyWrapper {
	c.keyWrapperInit.Do(func() {
		c.keyWrapper = keymanagerService.NewAESCBCWrapper()
	})
	return c.keyWrapper
}

// EnvelopeKeyManager returns the key manager, instrumented when metrics are enabled.
func (c *Container) EnvelopeKeyManager() (keymanagerUseCase.EnvelopeKeyManager, error) {
	var err error
	c.envelopeKeyManagerInit.Do(func() {
		c.envelopeKeyManager, err = c.initEnvelopeKeyManager()
		if err != nil {
			c.initErrors["envelopeKeyManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["envelopeKeyManager"]; exists {
		return nil, storedErr
	}
	return c.envelopeKeyManager, nil
}

// RecordUseCase returns the record lifecycle use case.
func (c *Container) RecordUseCase() (keymanagerUseCase.RecordUseCase, error) {
	var err error
	c.recordUseCaseInit.Do(func() {
		c.recordUseCase, err = c.initRecordUseCase()
		if err != nil {
			c.initErrors["recordUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordUseCase"]; exists {
		return nil, storedErr
	}
	return c.recordUseCase, nil
}

func (c *Container) initMetadataRepository() (keymanagerUseCase.MetadataRepository, error) {
	bucket, err := c.Bucket()
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket for metadata repository: %w", err)
	}
	return keymanagerRepository.NewBlobMetadataRepository(bucket), nil
}

func (c *Container) initEnvelopeKeyManager() (keymanagerUseCase.EnvelopeKeyManager, error) {
	p, err := c.Passphrase()
	if err != nil {
		return nil, err
	}

	keyManager := keymanagerUseCase.NewEnvelopeKeyManager(
		p,
		c.RecordRepository(),
		c.PassphraseVerifier(),
		c.KeyWrapper(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for key manager: %w", err)
		}
		return keymanagerUseCase.NewEnvelopeKeyManagerWithMetrics(keyManager, businessMetrics), nil
	}

	return keyManager, nil
}

func (c *Container) initRecordUseCase() (keymanagerUseCase.RecordUseCase, error) {
	p, err := c.Passphrase()
	if err != nil {
		return nil, err
	}
	return keymanagerUseCase.NewRecordUseCase(p, c.RecordRepository(), c.PassphraseVerifier()), nil
}
