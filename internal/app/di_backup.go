package app

import (
	"fmt"

	backupRepository "github.com/allisson/pfbackup/internal/backup/repository"
	backupUseCase "github.com/allisson/pfbackup/internal/backup/usecase"
	"github.com/allisson/pfbackup/internal/pfsense"
)

// FirewallClient returns the pfSense GUI client.
func (c *Container) FirewallClient() (*pfsense.Client, error) {
	var err error
	c.firewallClientInit.Do(func() {
		c.firewallClient, err = c.initFirewallClient()
		if err != nil {
			c.initErrors["firewallClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["firewallClient"]; exists {
		return nil, storedErr
	}
	return c.firewallClient, nil
}

// ArtifactRepository returns the bucket-backed artifact repository.
func (c *Container) ArtifactRepository() (backupUseCase.ArtifactRepository, error) {
	var err error
	c.artifactRepositoryInit.Do(func() {
		c.artifactRepository, err = c.initArtifactRepository()
		if err != nil {
			c.initErrors["artifactRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["artifactRepository"]; exists {
		return nil, storedErr
	}
	return c.artifactRepository, nil
}

// BackupUseCase returns the backup use case, instrumented when metrics are enabled.
func (c *Container) BackupUseCase() (backupUseCase.BackupUseCase, error) {
	var err error
	c.backupUseCaseInit.Do(func() {
		c.backupUseCase, err = c.initBackupUseCase()
		if err != nil {
			c.initErrors["backupUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["backupUseCase"]; exists {
		return nil, storedErr
	}
	return c.backupUseCase, nil
}

func (c *Container) initFirewallClient() (*pfsense.Client, error) {
	if err := c.config.ValidateFirewall(); err != nil {
		return nil, err
	}

	client, err := pfsense.NewClient(pfsense.Config{
		BaseURL:            c.config.PfSenseDomain,
		Username:           c.config.PfSenseUsername,
		Password:           c.config.PfSensePassword,
		InsecureSkipVerify: c.config.PfSenseInsecureSkipVerify,
		Timeout:            c.config.PfSenseRequestTimeout,
		RetryMax:           c.config.PfSenseRetryMax,
		Logger:             c.Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pfsense client: %w", err)
	}
	return client, nil
}

func (c *Container) initArtifactRepository() (backupUseCase.ArtifactRepository, error) {
	bucket, err := c.Bucket()
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket for artifact repository: %w", err)
	}
	return backupRepository.NewBlobArtifactRepository(bucket), nil
}

func (c *Container) initBackupUseCase() (backupUseCase.BackupUseCase, error) {
	firewall, err := c.FirewallClient()
	if err != nil {
		return nil, err
	}

	keyManager, err := c.EnvelopeKeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get key manager for backup use case: %w", err)
	}

	metadataRepo, err := c.MetadataRepository()
	if err != nil {
		return nil, err
	}

	artifactRepo, err := c.ArtifactRepository()
	if err != nil {
		return nil, err
	}

	useCase := backupUseCase.NewBackupUseCase(
		firewall,
		keyManager,
		metadataRepo,
		artifactRepo,
		c.config.LoginRetryInterval,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for backup use case: %w", err)
		}
		return backupUseCase.NewBackupUseCaseWithMetrics(useCase, businessMetrics), nil
	}

	return useCase, nil
}
