package service

import (
	"fmt"

	"golang.org/x/crypto/argon2"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

// Argon2idDeriver implements KekDeriver with Argon2id (RFC 9106).
//
// The deriver is stateless and safe for concurrent use. Each call allocates
// params.MemoryCost KiB for the duration of the derivation, so the cost parameters
// bound both latency and peak memory per call.
type Argon2idDeriver struct{}

// NewArgon2idDeriver creates a new Argon2idDeriver.
func NewArgon2idDeriver() *Argon2idDeriver {
	return &Argon2idDeriver{}
}

// DeriveKey derives params.KeyLength bytes from passphrase and salt.
func (d *Argon2idDeriver) DeriveKey(
	passphrase, salt []byte,
	params keymanagerDomain.KDFParams,
) ([]byte, error) {
	if len(salt) < keymanagerDomain.MinSaltSize {
		return nil, fmt.Errorf(
			"%w: salt must be at least %d bytes, got %d",
			keymanagerDomain.ErrDerivationFailed,
			keymanagerDomain.MinSaltSize,
			len(salt),
		)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", keymanagerDomain.ErrDerivationFailed, err)
	}

	return argon2.IDKey(
		passphrase,
		salt,
		params.TimeCost,
		params.MemoryCost,
		params.Parallelism,
		params.KeyLength,
	), nil
}
