package domain

import "fmt"

const (
	// KeySize is the length in bytes of KEKs and DEKs (256 bits).
	KeySize = 32

	// IVSize is the length in bytes of the CBC initialization vector (one AES block).
	IVSize = 16

	// BlockSize is the AES block size in bytes.
	BlockSize = 16

	// SaltSize is the length of the random salt generated at bootstrap.
	SaltSize = 16

	// MinSaltSize is the shortest salt accepted by key derivation.
	MinSaltSize = 16

	// HexKeyLength is the length of a hex-encoded DEK handed to callers.
	HexKeyLength = KeySize * 2

	// SidecarSuffix is appended to an artifact name to form its metadata sidecar name.
	SidecarSuffix = ".metadata"

	// AlgorithmArgon2id identifies the password-hashing KDF in verification records.
	AlgorithmArgon2id = "argon2id"

	// Argon2Version is the Argon2 algorithm version (0x13) recorded alongside the parameters.
	Argon2Version = 0x13
)

// KDFParams holds Argon2id cost parameters.
//
// The parameters are fixed for an installation: they are chosen once at bootstrap and then
// read back from the verification record, never supplied per call.
type KDFParams struct {
	TimeCost    uint32 // Number of passes over memory
	MemoryCost  uint32 // Memory in KiB
	Parallelism uint8  // Number of lanes
	KeyLength   uint32 // Output length in bytes
}

// DefaultKDFParams are the Argon2id parameters used for new installations
// (t=3, m=64 MiB, p=4). A derivation takes a few hundred milliseconds on commodity
// hardware, which is acceptable for a handful of backups per hour.
var DefaultKDFParams = KDFParams{
	TimeCost:    3,
	MemoryCost:  64 * 1024,
	Parallelism: 4,
	KeyLength:   KeySize,
}

// Bounds for configured parameters and for parameters read back from a record. A tampered
// record must not be able to make verification allocate unbounded memory or spin for minutes.
const (
	MinTimeCost    = 1
	MaxTimeCost    = 10
	MinMemoryCost  = 8 * 1024
	MaxMemoryCost  = 1024 * 1024
	MinParallelism = 1
	MaxParallelism = 16
)

// Validate checks that the parameters are within accepted bounds.
func (p KDFParams) Validate() error {
	switch {
	case p.TimeCost < MinTimeCost || p.TimeCost > MaxTimeCost:
		return fmt.Errorf("time cost %d out of range [%d, %d]", p.TimeCost, MinTimeCost, MaxTimeCost)
	case p.MemoryCost < MinMemoryCost || p.MemoryCost > MaxMemoryCost:
		return fmt.Errorf(
			"memory cost %d KiB out of range [%d, %d]",
			p.MemoryCost,
			MinMemoryCost,
			MaxMemoryCost,
		)
	case p.Parallelism < MinParallelism || p.Parallelism > MaxParallelism:
		return fmt.Errorf(
			"parallelism %d out of range [%d, %d]",
			p.Parallelism,
			MinParallelism,
			MaxParallelism,
		)
	case p.KeyLength != KeySize:
		return fmt.Errorf("key length must be %d bytes, got %d", KeySize, p.KeyLength)
	}
	return nil
}
