// Package repository implements persistence for verification records and wrapped key
// metadata sidecars.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

// FileRecordRepository stores the verification record as a single JSON file.
//
// Create never overwrites: the document is written to a temporary file in the same
// directory and then hard-linked into place, which fails atomically if a record already
// exists. Where hard links are supported, readers never observe a partially written record.
type FileRecordRepository struct {
	path string
}

// NewFileRecordRepository creates a FileRecordRepository for the record at path.
func NewFileRecordRepository(path string) *FileRecordRepository {
	return &FileRecordRepository{path: path}
}

// Load reads and parses the record.
// Returns ErrRecordNotFound if no record exists and ErrRecordCorrupt if it cannot be parsed.
func (r *FileRecordRepository) Load(ctx context.Context) (*keymanagerDomain.VerificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, keymanagerDomain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to read verification record %s: %w", r.path, err)
	}

	record, err := keymanagerDomain.ParseRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}
	return record, nil
}

// Create persists record if and only if no record exists yet.
// Returns ErrRecordExists when another record is already in place.
func (r *FileRecordRepository) Create(
	ctx context.Context,
	record *keymanagerDomain.VerificationRecord,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := keymanagerDomain.MarshalRecord(record)
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create record directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary record file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temporary record file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temporary record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary record file: %w", err)
	}

	err = os.Link(tmpPath, r.path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		return keymanagerDomain.ErrRecordExists
	default:
		// Filesystems without hard links fall back to an exclusive create.
		return r.createExclusive(data)
	}
}

// createExclusive writes data with O_EXCL, removing the file again if the write fails.
// The record is visible before the write completes, so a concurrent Load can see a partial
// file and report ErrRecordCorrupt.
func (r *FileRecordRepository) createExclusive(data []byte) error {
	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return keymanagerDomain.ErrRecordExists
		}
		return fmt.Errorf("failed to create verification record %s: %w", r.path, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(r.path)
		return fmt.Errorf("failed to write verification record %s: %w", r.path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(r.path)
		return fmt.Errorf("failed to sync verification record %s: %w", r.path, err)
	}
	return f.Close()
}

// Delete removes the record. Every key wrapped under it becomes unrecoverable.
// Returns ErrRecordNotFound if no record exists.
func (r *FileRecordRepository) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(r.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return keymanagerDomain.ErrRecordNotFound
		}
		return fmt.Errorf("failed to delete verification record %s: %w", r.path, err)
	}
	return nil
}
