// Package repository stores backup artifacts in a gocloud.dev bucket.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	backupDomain "github.com/allisson/pfbackup/internal/backup/domain"
)

// BlobArtifactRepository keeps artifacts at the top level of a bucket. The key metadata
// repository writes sidecars into the same bucket.
type BlobArtifactRepository struct {
	bucket *blob.Bucket
}

// NewBlobArtifactRepository creates a BlobArtifactRepository. The caller owns the bucket.
func NewBlobArtifactRepository(bucket *blob.Bucket) *BlobArtifactRepository {
	return &BlobArtifactRepository{bucket: bucket}
}

// Create streams content into name. The object only becomes visible once the write
// completes; a failed copy leaves no partial artifact behind. Existing artifacts are never
// replaced: ErrArtifactExists is returned instead.
func (r *BlobArtifactRepository) Create(ctx context.Context, name string, content io.Reader) (int64, error) {
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := r.bucket.NewWriter(writeCtx, name, &blob.WriterOptions{
		ContentType: "application/xml",
		IfNotExist:  true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to open artifact %s for writing: %w", name, err)
	}

	n, copyErr := io.Copy(w, content)
	if copyErr != nil {
		// Cancelling before Close aborts the upload.
		cancel()
		_ = w.Close()
		return 0, fmt.Errorf("failed to write artifact %s: %w", name, copyErr)
	}
	if err := w.Close(); err != nil {
		if gcerrors.Code(err) == gcerrors.FailedPrecondition {
			return 0, fmt.Errorf("%w: %s", backupDomain.ErrArtifactExists, name)
		}
		return 0, fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	return n, nil
}

// Open returns a reader for name. The caller closes it.
func (r *BlobArtifactRepository) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	reader, err := r.bucket.NewReader(ctx, name, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", backupDomain.ErrArtifactNotFound, name)
		}
		return nil, fmt.Errorf("failed to open artifact %s: %w", name, err)
	}
	return reader, nil
}

// List returns all artifacts sorted by name. Sidecars and nested keys are skipped.
func (r *BlobArtifactRepository) List(ctx context.Context) ([]backupDomain.Artifact, error) {
	artifacts := []backupDomain.Artifact{}

	iter := r.bucket.List(&blob.ListOptions{Delimiter: "/"})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list artifacts: %w", err)
		}
		if obj.IsDir || !backupDomain.IsArtifactName(obj.Key) {
			continue
		}
		artifacts = append(artifacts, backupDomain.Artifact{
			Name:    obj.Key,
			Size:    obj.Size,
			ModTime: obj.ModTime,
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})
	return artifacts, nil
}

// Delete removes name. Returns ErrArtifactNotFound if it does not exist.
func (r *BlobArtifactRepository) Delete(ctx context.Context, name string) error {
	if err := r.bucket.Delete(ctx, name); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return fmt.Errorf("%w: %s", backupDomain.ErrArtifactNotFound, name)
		}
		return fmt.Errorf("failed to delete artifact %s: %w", name, err)
	}
	return nil
}
