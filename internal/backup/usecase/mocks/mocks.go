// Package mocks provides testify mocks for the backup use case interfaces.
package mocks

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/mock"

	backupDomain "github.com/allisson/pfbackup/internal/backup/domain"
	"github.com/allisson/pfbackup/internal/pfsense"
)

// MockFirewallClient is a mock of usecase.FirewallClient.
type MockFirewallClient struct {
	mock.Mock
}

// NewMockFirewallClient creates a mock that asserts its expectations on test cleanup.
func NewMockFirewallClient(t *testing.T) *MockFirewallClient {
	m := &MockFirewallClient{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockFirewallClient) Login(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockFirewallClient) DownloadBackup(ctx context.Context, password string) (*pfsense.Download, error) {
	args := m.Called(ctx, password)
	download, _ := args.Get(0).(*pfsense.Download)
	return download, args.Error(1)
}

func (m *MockFirewallClient) RestoreBackup(
	ctx context.Context,
	filename string,
	content io.Reader,
	password string,
) error {
	return m.Called(ctx, filename, content, password).Error(0)
}

// MockBackupUseCase is a mock of usecase.BackupUseCase.
type MockBackupUseCase struct {
	mock.Mock
}

// NewMockBackupUseCase creates a mock that asserts its expectations on test cleanup.
func NewMockBackupUseCase(t *testing.T) *MockBackupUseCase {
	m := &MockBackupUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockBackupUseCase) LoginWithRetry(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockBackupUseCase) Backup(ctx context.Context) (*backupDomain.Artifact, error) {
	args := m.Called(ctx)
	artifact, _ := args.Get(0).(*backupDomain.Artifact)
	return artifact, args.Error(1)
}

func (m *MockBackupUseCase) Restore(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockBackupUseCase) List(ctx context.Context) ([]backupDomain.Artifact, error) {
	args := m.Called(ctx)
	artifacts, _ := args.Get(0).([]backupDomain.Artifact)
	return artifacts, args.Error(1)
}

func (m *MockBackupUseCase) Delete(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}
