package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	backupDomain "github.com/allisson/pfbackup/internal/backup/domain"
	backupRepository "github.com/allisson/pfbackup/internal/backup/repository"
	backupMocks "github.com/allisson/pfbackup/internal/backup/usecase/mocks"
	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
	keymanagerRepository "github.com/allisson/pfbackup/internal/keymanager/repository"
	keymanagerMocks "github.com/allisson/pfbackup/internal/keymanager/usecase/mocks"
	"github.com/allisson/pfbackup/internal/pfsense"
)

const (
	testArtifact = "config-fw.localdomain-20261014120000.xml"
	testHexKey   = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
)

var testMetadata = &keymanagerDomain.WrappedKeyMetadata{
	IV:           make([]byte, keymanagerDomain.IVSize),
	EncryptedKey: make([]byte, keymanagerDomain.KeySize+keymanagerDomain.BlockSize),
}

type testEnv struct {
	firewall   *backupMocks.MockFirewallClient
	keyManager *keymanagerMocks.MockEnvelopeKeyManager
	bucket     *blob.Bucket
	useCase    BackupUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { _ = bucket.Close() })

	env := &testEnv{
		firewall:   backupMocks.NewMockFirewallClient(t),
		keyManager: keymanagerMocks.NewMockEnvelopeKeyManager(t),
		bucket:     bucket,
	}
	env.useCase = NewBackupUseCase(
		env.firewall,
		env.keyManager,
		keymanagerRepository.NewBlobMetadataRepository(bucket),
		backupRepository.NewBlobArtifactRepository(bucket),
		time.Millisecond,
		slog.New(slog.DiscardHandler),
	)
	return env
}

func (e *testEnv) exists(t *testing.T, key string) bool {
	t.Helper()
	ok, err := e.bucket.Exists(context.Background(), key)
	require.NoError(t, err)
	return ok
}

func download(filename, content string) *pfsense.Download {
	return &pfsense.Download{Filename: filename, Body: io.NopCloser(strings.NewReader(content))}
}

func TestBackupUseCase_LoginWithRetry(t *testing.T) {
	t.Run("Success_RetriesUntilLoggedIn", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()

		env.firewall.On("Login", ctx).Return(pfsense.ErrTimeout).Twice()
		env.firewall.On("Login", ctx).Return(nil).Once()

		require.NoError(t, env.useCase.LoginWithRetry(ctx))
	})

	t.Run("Error_ContextCancelled", func(t *testing.T) {
		env := newTestEnv(t)
		ctx, cancel := context.WithCancel(context.Background())

		var attempts atomic.Int32
		env.firewall.On("Login", ctx).Return(pfsense.ErrLoginFailed).Run(func(mock.Arguments) {
			if attempts.Add(1) == 3 {
				cancel()
			}
		})

		err := env.useCase.LoginWithRetry(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(3), attempts.Load())
	})
}

func TestBackupUseCase_Backup(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_StoresArtifactAndSidecar", func(t *testing.T) {
		env := newTestEnv(t)
		env.keyManager.On("GenerateKey", ctx).Return(testHexKey, testMetadata, nil).Once()
		env.firewall.On("Login", ctx).Return(nil).Once()
		env.firewall.On("DownloadBackup", ctx, testHexKey).
			Return(download(testArtifact, "<encrypted/>"), nil).
			Once()

		artifact, err := env.useCase.Backup(ctx)
		require.NoError(t, err)
		assert.Equal(t, testArtifact, artifact.Name)
		assert.Equal(t, int64(len("<encrypted/>")), artifact.Size)

		content, err := env.bucket.ReadAll(ctx, testArtifact)
		require.NoError(t, err)
		assert.Equal(t, "<encrypted/>", string(content))

		stored, err := keymanagerRepository.NewBlobMetadataRepository(env.bucket).Load(ctx, testArtifact)
		require.NoError(t, err)
		assert.Equal(t, testMetadata, stored)
	})

	t.Run("Success_SanitizesFilename", func(t *testing.T) {
		env := newTestEnv(t)
		env.keyManager.On("GenerateKey", ctx).Return(testHexKey, testMetadata, nil).Once()
		env.firewall.On("Login", ctx).Return(nil).Once()
		env.firewall.On("DownloadBackup", ctx, testHexKey).
			Return(download("../../"+testArtifact, "<encrypted/>"), nil).
			Once()

		artifact, err := env.useCase.Backup(ctx)
		require.NoError(t, err)
		assert.Equal(t, testArtifact, artifact.Name)
	})

	t.Run("Error_KeyGenerationFailsBeforeContactingFirewall", func(t *testing.T) {
		env := newTestEnv(t)
		env.keyManager.On("GenerateKey", ctx).
			Return("", nil, keymanagerDomain.ErrVerificationFailed).
			Once()

		_, err := env.useCase.Backup(ctx)
		assert.ErrorIs(t, err, keymanagerDomain.ErrVerificationFailed)
	})

	t.Run("Error_DownloadFails", func(t *testing.T) {
		env := newTestEnv(t)
		env.keyManager.On("GenerateKey", ctx).Return(testHexKey, testMetadata, nil).Once()
		env.firewall.On("Login", ctx).Return(nil).Once()
		env.firewall.On("DownloadBackup", ctx, testHexKey).Return(nil, pfsense.ErrNoAttachment).Once()

		_, err := env.useCase.Backup(ctx)
		assert.ErrorIs(t, err, pfsense.ErrNoAttachment)
	})

	t.Run("Error_SidecarFailureRemovesArtifact", func(t *testing.T) {
		bucket := memblob.OpenBucket(nil)
		defer func() { _ = bucket.Close() }()

		firewall := backupMocks.NewMockFirewallClient(t)
		keyManager := keymanagerMocks.NewMockEnvelopeKeyManager(t)
		metadataRepo := keymanagerMocks.NewMockMetadataRepository(t)
		useCase := NewBackupUseCase(
			firewall,
			keyManager,
			metadataRepo,
			backupRepository.NewBlobArtifactRepository(bucket),
			time.Millisecond,
			slog.New(slog.DiscardHandler),
		)

		keyManager.On("GenerateKey", ctx).Return(testHexKey, testMetadata, nil).Once()
		firewall.On("Login", ctx).Return(nil).Once()
		firewall.On("DownloadBackup", ctx, testHexKey).
			Return(download(testArtifact, "<encrypted/>"), nil).
			Once()
		metadataRepo.On("Save", ctx, testArtifact, testMetadata).Return(errors.New("disk full")).Once()

		_, err := useCase.Backup(ctx)
		require.Error(t, err)

		exists, err := bucket.Exists(ctx, testArtifact)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Error_ExistingArtifactKeepsStoredPair", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.bucket.WriteAll(ctx, testArtifact, []byte("<first/>"), nil))
		metadataRepo := keymanagerRepository.NewBlobMetadataRepository(env.bucket)
		require.NoError(t, metadataRepo.Save(ctx, testArtifact, testMetadata))

		replacement := &keymanagerDomain.WrappedKeyMetadata{
			IV:           []byte("0123456789abcdef"),
			EncryptedKey: testMetadata.EncryptedKey,
		}
		env.keyManager.On("GenerateKey", ctx).Return(testHexKey, replacement, nil).Once()
		env.firewall.On("Login", ctx).Return(nil).Once()
		env.firewall.On("DownloadBackup", ctx, testHexKey).
			Return(download(testArtifact, "<second/>"), nil).
			Once()

		_, err := env.useCase.Backup(ctx)
		assert.ErrorIs(t, err, backupDomain.ErrArtifactExists)

		content, err := env.bucket.ReadAll(ctx, testArtifact)
		require.NoError(t, err)
		assert.Equal(t, "<first/>", string(content))
		stored, err := metadataRepo.Load(ctx, testArtifact)
		require.NoError(t, err)
		assert.Equal(t, testMetadata, stored)
	})

	t.Run("Success_SerializesConcurrentRuns", func(t *testing.T) {
		env := newTestEnv(t)

		var active, maxActive atomic.Int32
		env.keyManager.On("GenerateKey", ctx).Return(testHexKey, testMetadata, nil).Times(3)
		env.firewall.On("Login", ctx).Return(nil).Times(3)
		for i := 0; i < 3; i++ {
			env.firewall.On("DownloadBackup", ctx, testHexKey).
				Run(func(mock.Arguments) {
					n := active.Add(1)
					for {
						m := maxActive.Load()
						if n <= m || maxActive.CompareAndSwap(m, n) {
							break
						}
					}
					time.Sleep(10 * time.Millisecond)
					active.Add(-1)
				}).
				Return(download(fmt.Sprintf("config-fw-%d.xml", i), "<encrypted/>"), nil).
				Once()
		}

		var wg sync.WaitGroup
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.useCase.Backup(ctx)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), maxActive.Load())
	})
}

func TestBackupUseCase_Restore(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, env *testEnv) {
		t.Helper()
		require.NoError(t, env.bucket.WriteAll(ctx, testArtifact, []byte("<encrypted/>"), nil))
		require.NoError(t, keymanagerRepository.NewBlobMetadataRepository(env.bucket).
			Save(ctx, testArtifact, testMetadata))
	}

	t.Run("Success_UploadsWithRecoveredKey", func(t *testing.T) {
		env := newTestEnv(t)
		seed(t, env)

		env.keyManager.On("RetrieveKey", ctx, testMetadata).Return(testHexKey, nil).Once()
		env.firewall.On("Login", ctx).Return(nil).Once()
		env.firewall.On("RestoreBackup", ctx, testArtifact, mock.Anything, testHexKey).
			Run(func(args mock.Arguments) {
				content, err := io.ReadAll(args.Get(2).(io.Reader))
				require.NoError(t, err)
				assert.Equal(t, "<encrypted/>", string(content))
			}).
			Return(nil).
			Once()

		require.NoError(t, env.useCase.Restore(ctx, testArtifact))
	})

	t.Run("Error_MissingSidecar", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.bucket.WriteAll(ctx, testArtifact, []byte("<encrypted/>"), nil))

		err := env.useCase.Restore(ctx, testArtifact)
		assert.ErrorIs(t, err, keymanagerDomain.ErrMetadataNotFound)
	})

	t.Run("Error_WrongPassphrase", func(t *testing.T) {
		env := newTestEnv(t)
		seed(t, env)
		env.keyManager.On("RetrieveKey", ctx, testMetadata).
			Return("", keymanagerDomain.ErrVerificationFailed).
			Once()

		err := env.useCase.Restore(ctx, testArtifact)
		assert.ErrorIs(t, err, keymanagerDomain.ErrVerificationFailed)
	})

	t.Run("Error_MissingArtifact", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, keymanagerRepository.NewBlobMetadataRepository(env.bucket).
			Save(ctx, testArtifact, testMetadata))
		env.keyManager.On("RetrieveKey", ctx, testMetadata).Return(testHexKey, nil).Once()

		err := env.useCase.Restore(ctx, testArtifact)
		assert.ErrorIs(t, err, backupDomain.ErrArtifactNotFound)
	})

	t.Run("Error_InvalidName", func(t *testing.T) {
		err := newTestEnv(t).useCase.Restore(ctx, testArtifact+keymanagerDomain.SidecarSuffix)
		assert.ErrorIs(t, err, backupDomain.ErrInvalidArtifactName)
	})

	t.Run("Error_FirewallRejects", func(t *testing.T) {
		env := newTestEnv(t)
		seed(t, env)
		env.keyManager.On("RetrieveKey", ctx, testMetadata).Return(testHexKey, nil).Once()
		env.firewall.On("Login", ctx).Return(nil).Once()
		env.firewall.On("RestoreBackup", ctx, testArtifact, mock.Anything, testHexKey).
			Return(pfsense.ErrRestoreFailed).
			Once()

		err := env.useCase.Restore(ctx, testArtifact)
		assert.ErrorIs(t, err, pfsense.ErrRestoreFailed)
	})
}

func TestBackupUseCase_ListDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.bucket.WriteAll(ctx, "b.xml", []byte("x"), nil))
	require.NoError(t, env.bucket.WriteAll(ctx, "a.xml", []byte("x"), nil))
	require.NoError(t, keymanagerRepository.NewBlobMetadataRepository(env.bucket).Save(ctx, "a.xml", testMetadata))

	artifacts, err := env.useCase.List(ctx)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "a.xml", artifacts[0].Name)
	assert.Equal(t, "b.xml", artifacts[1].Name)

	t.Run("Success_RemovesArtifactAndSidecar", func(t *testing.T) {
		require.NoError(t, env.useCase.Delete(ctx, "a.xml"))
		assert.False(t, env.exists(t, "a.xml"))
		assert.False(t, env.exists(t, "a.xml"+keymanagerDomain.SidecarSuffix))
	})

	t.Run("Success_ArtifactWithoutSidecar", func(t *testing.T) {
		require.NoError(t, env.useCase.Delete(ctx, "b.xml"))
		assert.False(t, env.exists(t, "b.xml"))
	})

	t.Run("Error_Missing", func(t *testing.T) {
		assert.ErrorIs(t, env.useCase.Delete(ctx, "a.xml"), backupDomain.ErrArtifactNotFound)
	})
}
