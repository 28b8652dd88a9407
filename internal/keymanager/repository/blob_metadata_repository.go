package repository

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

// BlobMetadataRepository stores metadata sidecars in a gocloud.dev bucket, next to the
// artifacts they belong to. The sidecar key is the artifact key plus SidecarSuffix.
type BlobMetadataRepository struct {
	bucket *blob.Bucket
}

// NewBlobMetadataRepository creates a BlobMetadataRepository backed by bucket.
// The caller owns the bucket and closes it.
func NewBlobMetadataRepository(bucket *blob.Bucket) *BlobMetadataRepository {
	return &BlobMetadataRepository{bucket: bucket}
}

// Load reads the sidecar bound to artifact.
// Returns ErrMetadataNotFound if it does not exist and ErrMetadataCorrupt if it cannot be parsed.
func (r *BlobMetadataRepository) Load(
	ctx context.Context,
	artifact string,
) (*keymanagerDomain.WrappedKeyMetadata, error) {
	key := keymanagerDomain.SidecarName(artifact)

	data, err := r.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", keymanagerDomain.ErrMetadataNotFound, key)
		}
		return nil, fmt.Errorf("failed to read key metadata %s: %w", key, err)
	}

	metadata, err := keymanagerDomain.ParseMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return metadata, nil
}

// Save writes the sidecar bound to artifact.
// Returns ErrMetadataExists if the artifact already has one; the stored sidecar is left untouched.
func (r *BlobMetadataRepository) Save(
	ctx context.Context,
	artifact string,
	metadata *keymanagerDomain.WrappedKeyMetadata,
) error {
	key := keymanagerDomain.SidecarName(artifact)

	data, err := keymanagerDomain.MarshalMetadata(metadata)
	if err != nil {
		return err
	}

	opts := &blob.WriterOptions{ContentType: "application/json", IfNotExist: true}
	if err := r.bucket.WriteAll(ctx, key, data, opts); err != nil {
		if gcerrors.Code(err) == gcerrors.FailedPrecondition {
			return fmt.Errorf("%w: %s", keymanagerDomain.ErrMetadataExists, key)
		}
		return fmt.Errorf("failed to write key metadata %s: %w", key, err)
	}
	return nil
}

// Delete removes the sidecar bound to artifact.
// Returns ErrMetadataNotFound if it does not exist.
func (r *BlobMetadataRepository) Delete(ctx context.Context, artifact string) error {
	key := keymanagerDomain.SidecarName(artifact)

	if err := r.bucket.Delete(ctx, key); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return fmt.Errorf("%w: %s", keymanagerDomain.ErrMetadataNotFound, key)
		}
		return fmt.Errorf("failed to delete key metadata %s: %w", key, err)
	}
	return nil
}
