package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
	keymanagerService "github.com/allisson/pfbackup/internal/keymanager/service"
	"github.com/allisson/pfbackup/internal/metrics"
)

var testKDFParams = keymanagerDomain.KDFParams{
	TimeCost:    1,
	MemoryCost:  8 * 1024,
	Parallelism: 1,
	KeyLength:   keymanagerDomain.KeySize,
}

// staticPassphrase is a Passphrase backed by a plain byte slice.
type staticPassphrase []byte

func (p staticPassphrase) Use(fn func([]byte) error) error {
	buf := append([]byte(nil), p...)
	defer keymanagerDomain.Zero(buf)
	return fn(buf)
}

// memoryRecordRepository is an in-memory RecordRepository.
type memoryRecordRepository struct {
	mu     sync.Mutex
	record *keymanagerDomain.VerificationRecord
}

func (r *memoryRecordRepository) Load(context.Context) (*keymanagerDomain.VerificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.record == nil {
		return nil, keymanagerDomain.ErrRecordNotFound
	}
	return r.record, nil
}

func (r *memoryRecordRepository) Create(_ context.Context, record *keymanagerDomain.VerificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.record != nil {
		return keymanagerDomain.ErrRecordExists
	}
	r.record = record
	return nil
}

func (r *memoryRecordRepository) Delete(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.record == nil {
		return keymanagerDomain.ErrRecordNotFound
	}
	r.record = nil
	return nil
}

func newTestVerifier() keymanagerService.PassphraseVerifier {
	return keymanagerService.NewPassphraseVerifier(keymanagerService.NewArgon2idDeriver(), testKDFParams)
}

// bootstrapRecord creates a repository holding a record for passphrase.
func bootstrapRecord(passphrase string) (*memoryRecordRepository, error) {
	repo := &memoryRecordRepository{}
	_, err := NewRecordUseCase(staticPassphrase(passphrase), repo, newTestVerifier()).
		Bootstrap(context.Background())
	return repo, err
}

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)
