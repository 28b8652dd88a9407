// Package domain defines the key management domain models for envelope encryption of
// firewall configuration backups.
//
// A passphrase-derived Key Encryption Key (KEK) wraps a fresh Data Encryption Key (DEK) per
// backup artifact. The KEK is never persisted: it is re-derived from the passphrase and the
// salt stored in the VerificationRecord. The wrapped DEK lives in a WrappedKeyMetadata sidecar
// next to its artifact.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// VerificationRecord is the persisted, immutable record used to check the passphrase.
//
// It is self-describing: the algorithm, version and cost parameters are stored with the salt
// so verification needs no outside configuration. Hash holds the passphrase verifier, never
// the KEK itself.
type VerificationRecord struct {
	Algorithm string
	Version   int
	Params    KDFParams
	Salt      []byte
	Hash      []byte
	CreatedAt time.Time
}

// recordDocument is the on-disk JSON shape of a VerificationRecord.
type recordDocument struct {
	Algorithm   string    `json:"algorithm"`
	Version     int       `json:"version"`
	TimeCost    uint32    `json:"time_cost"`
	MemoryCost  uint32    `json:"memory_cost"`
	Parallelism uint8     `json:"parallelism"`
	KeyLength   uint32    `json:"key_length"`
	Salt        []byte    `json:"salt"`
	Hash        []byte    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks the record is usable for verification.
func (r *VerificationRecord) Validate() error {
	if r.Algorithm != AlgorithmArgon2id {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrRecordCorrupt, r.Algorithm)
	}
	if r.Version != Argon2Version {
		return fmt.Errorf("%w: unsupported argon2 version %d", ErrRecordCorrupt, r.Version)
	}
	if err := r.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	if len(r.Salt) < MinSaltSize {
		return fmt.Errorf("%w: salt must be at least %d bytes", ErrRecordCorrupt, MinSaltSize)
	}
	if len(r.Hash) != int(r.Params.KeyLength) {
		return fmt.Errorf("%w: hash must be %d bytes", ErrRecordCorrupt, r.Params.KeyLength)
	}
	return nil
}

// MarshalRecord encodes a record as an indented JSON document.
func MarshalRecord(r *VerificationRecord) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	doc := recordDocument{
		Algorithm:   r.Algorithm,
		Version:     r.Version,
		TimeCost:    r.Params.TimeCost,
		MemoryCost:  r.Params.MemoryCost,
		Parallelism: r.Params.Parallelism,
		KeyLength:   r.Params.KeyLength,
		Salt:        r.Salt,
		Hash:        r.Hash,
		CreatedAt:   r.CreatedAt.UTC(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode verification record: %w", err)
	}
	return append(data, '\n'), nil
}

// ParseRecord decodes and validates a record document.
// Any malformed input yields an error wrapping ErrRecordCorrupt.
func ParseRecord(data []byte) (*VerificationRecord, error) {
	var doc recordDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	r := &VerificationRecord{
		Algorithm: doc.Algorithm,
		Version:   doc.Version,
		Params: KDFParams{
			TimeCost:    doc.TimeCost,
			MemoryCost:  doc.MemoryCost,
			Parallelism: doc.Parallelism,
			KeyLength:   doc.KeyLength,
		},
		Salt:      doc.Salt,
		Hash:      doc.Hash,
		CreatedAt: doc.CreatedAt,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
