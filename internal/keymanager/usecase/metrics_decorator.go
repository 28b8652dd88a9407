package usecase

import (
	"context"
	"time"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
	"github.com/allisson/pfbackup/internal/metrics"
)

// envelopeKeyManagerWithMetrics decorates EnvelopeKeyManager with metrics instrumentation.
type envelopeKeyManagerWithMetrics struct {
	next    EnvelopeKeyManager
	metrics metrics.BusinessMetrics
}

// NewEnvelopeKeyManagerWithMetrics wraps an EnvelopeKeyManager with metrics recording.
func NewEnvelopeKeyManagerWithMetrics(
	keyManager EnvelopeKeyManager,
	m metrics.BusinessMetrics,
) EnvelopeKeyManager {
	return &envelopeKeyManagerWithMetrics{
		next:    keyManager,
		metrics: m,
	}
}

// GenerateKey records metrics for key generation.
func (e *envelopeKeyManagerWithMetrics) GenerateKey(
	ctx context.Context,
) (string, *keymanagerDomain.WrappedKeyMetadata, error) {
	start := time.Now()
	hexKey, metadata, err := e.next.GenerateKey(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	e.metrics.RecordOperation(ctx, "keymanager", "generate_key", status)
	e.metrics.RecordDuration(ctx, "keymanager", "generate_key", time.Since(start), status)

	return hexKey, metadata, err
}

// RetrieveKey records metrics for key retrieval.
func (e *envelopeKeyManagerWithMetrics) RetrieveKey(
	ctx context.Context,
	metadata *keymanagerDomain.WrappedKeyMetadata,
) (string, error) {
	start := time.Now()
	hexKey, err := e.next.RetrieveKey(ctx, metadata)

	status := "success"
	if err != nil {
		status = "error"
	}

	e.metrics.RecordOperation(ctx, "keymanager", "retrieve_key", status)
	e.metrics.RecordDuration(ctx, "keymanager", "retrieve_key", time.Since(start), status)

	return hexKey, err
}
