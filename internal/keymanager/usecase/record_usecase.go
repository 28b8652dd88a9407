package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
	keymanagerService "github.com/allisson/pfbackup/internal/keymanager/service"
)

// partialRecordRetryDelay is how long Ensure waits before reading a record that another
// process created but may not have finished writing.
const partialRecordRetryDelay = 100 * time.Millisecond

// recordUseCase implements RecordUseCase.
type recordUseCase struct {
	passphrase Passphrase
	recordRepo RecordRepository
	verifier   keymanagerService.PassphraseVerifier
}

// NewRecordUseCase creates a RecordUseCase for the given passphrase.
func NewRecordUseCase(
	passphrase Passphrase,
	recordRepo RecordRepository,
	verifier keymanagerService.PassphraseVerifier,
) RecordUseCase {
	return &recordUseCase{
		passphrase: passphrase,
		recordRepo: recordRepo,
		verifier:   verifier,
	}
}

// Bootstrap derives a new record and persists it with an exclusive create.
func (r *recordUseCase) Bootstrap(ctx context.Context) (*keymanagerDomain.VerificationRecord, error) {
	var record *keymanagerDomain.VerificationRecord
	err := r.passphrase.Use(func(passphrase []byte) error {
		var deriveErr error
		record, deriveErr = r.verifier.NewRecord(passphrase)
		return deriveErr
	})
	if err != nil {
		return nil, err
	}

	if err := r.recordRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Ensure returns the existing record or bootstraps one, then checks the passphrase.
func (r *recordUseCase) Ensure(
	ctx context.Context,
) (*keymanagerDomain.VerificationRecord, bool, error) {
	record, err := r.recordRepo.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, keymanagerDomain.ErrRecordNotFound):
		created, bootstrapErr := r.Bootstrap(ctx)
		if bootstrapErr == nil {
			return created, true, nil
		}
		if !errors.Is(bootstrapErr, keymanagerDomain.ErrRecordExists) {
			return nil, false, bootstrapErr
		}
		// Another process bootstrapped first; use its record.
		if record, err = r.loadWinner(ctx); err != nil {
			return nil, false, err
		}
	default:
		return nil, false, err
	}

	if err := r.check(record); err != nil {
		return nil, false, err
	}
	return record, false, nil
}

// loadWinner loads a record created by a concurrent bootstrap. Without hard links the
// repository creates the record in place, so the first read may see a partial file.
func (r *recordUseCase) loadWinner(ctx context.Context) (*keymanagerDomain.VerificationRecord, error) {
	record, err := r.recordRepo.Load(ctx)
	if !errors.Is(err, keymanagerDomain.ErrRecordCorrupt) {
		return record, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(partialRecordRetryDelay):
	}
	return r.recordRepo.Load(ctx)
}

// Reset removes the record.
func (r *recordUseCase) Reset(ctx context.Context) error {
	if err := r.recordRepo.Delete(ctx); err != nil {
		return fmt.Errorf("failed to reset verification record: %w", err)
	}
	return nil
}

func (r *recordUseCase) check(record *keymanagerDomain.VerificationRecord) error {
	return r.passphrase.Use(func(passphrase []byte) error {
		kek, err := r.verifier.Verify(passphrase, record)
		keymanagerDomain.Zero(kek)
		return err
	})
}
