// Package mocks provides testify mocks for the keymanager use case interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

// MockEnvelopeKeyManager is a mock of usecase.EnvelopeKeyManager.
type MockEnvelopeKeyManager struct {
	mock.Mock
}

// NewMockEnvelopeKeyManager creates a mock that asserts its expectations on test cleanup.
func NewMockEnvelopeKeyManager(t *testing.T) *MockEnvelopeKeyManager {
	m := &MockEnvelopeKeyManager{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEnvelopeKeyManager) GenerateKey(
	ctx context.Context,
) (string, *keymanagerDomain.WrappedKeyMetadata, error) {
	args := m.Called(ctx)
	metadata, _ := args.Get(1).(*keymanagerDomain.WrappedKeyMetadata)
	return args.String(0), metadata, args.Error(2)
}

func (m *MockEnvelopeKeyManager) RetrieveKey(
	ctx context.Context,
	metadata *keymanagerDomain.WrappedKeyMetadata,
) (string, error) {
	args := m.Called(ctx, metadata)
	return args.String(0), args.Error(1)
}

// MockMetadataRepository is a mock of usecase.MetadataRepository.
type MockMetadataRepository struct {
	mock.Mock
}

// NewMockMetadataRepository creates a mock that asserts its expectations on test cleanup.
func NewMockMetadataRepository(t *testing.T) *MockMetadataRepository {
	m := &MockMetadataRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockMetadataRepository) Load(
	ctx context.Context,
	artifact string,
) (*keymanagerDomain.WrappedKeyMetadata, error) {
	args := m.Called(ctx, artifact)
	metadata, _ := args.Get(0).(*keymanagerDomain.WrappedKeyMetadata)
	return metadata, args.Error(1)
}

func (m *MockMetadataRepository) Save(
	ctx context.Context,
	artifact string,
	metadata *keymanagerDomain.WrappedKeyMetadata,
) error {
	return m.Called(ctx, artifact, metadata).Error(0)
}

func (m *MockMetadataRepository) Delete(ctx context.Context, artifact string) error {
	return m.Called(ctx, artifact).Error(0)
}

// MockRecordUseCase is a mock of usecase.RecordUseCase.
type MockRecordUseCase struct {
	mock.Mock
}

// NewMockRecordUseCase creates a mock that asserts its expectations on test cleanup.
func NewMockRecordUseCase(t *testing.T) *MockRecordUseCase {
	m := &MockRecordUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRecordUseCase) Bootstrap(ctx context.Context) (*keymanagerDomain.VerificationRecord, error) {
	args := m.Called(ctx)
	record, _ := args.Get(0).(*keymanagerDomain.VerificationRecord)
	return record, args.Error(1)
}

func (m *MockRecordUseCase) Ensure(
	ctx context.Context,
) (*keymanagerDomain.VerificationRecord, bool, error) {
	args := m.Called(ctx)
	record, _ := args.Get(0).(*keymanagerDomain.VerificationRecord)
	return record, args.Bool(1), args.Error(2)
}

func (m *MockRecordUseCase) Reset(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
