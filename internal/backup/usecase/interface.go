// Package usecase runs configuration backups and restores against the firewall, binding
// each artifact to a freshly generated DEK.
package usecase

import (
	"context"
	"io"

	backupDomain "github.com/allisson/pfbackup/internal/backup/domain"
	"github.com/allisson/pfbackup/internal/pfsense"
)

// FirewallClient is the subset of the pfSense client used by backups. Implemented by
// *pfsense.Client.
type FirewallClient interface {
	Login(ctx context.Context) error
	DownloadBackup(ctx context.Context, password string) (*pfsense.Download, error)
	RestoreBackup(ctx context.Context, filename string, content io.Reader, password string) error
}

// ArtifactRepository stores backup artifacts.
type ArtifactRepository interface {
	Create(ctx context.Context, name string, content io.Reader) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context) ([]backupDomain.Artifact, error)
	Delete(ctx context.Context, name string) error
}

// BackupUseCase is the operator-facing surface of the tool.
type BackupUseCase interface {
	// LoginWithRetry signs in to the firewall, retrying until it succeeds or ctx is done.
	LoginWithRetry(ctx context.Context) error

	// Backup downloads a configuration encrypted under a new DEK and stores it with its
	// sidecar. Concurrent calls run one at a time.
	Backup(ctx context.Context) (*backupDomain.Artifact, error)

	// Restore uploads name to the firewall together with its recovered DEK.
	Restore(ctx context.Context, name string) error

	// List returns stored artifacts sorted by name.
	List(ctx context.Context) ([]backupDomain.Artifact, error)

	// Delete removes an artifact and its sidecar.
	Delete(ctx context.Context, name string) error
}
