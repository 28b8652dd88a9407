package passphrase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

// Source types accepted by NewSource.
const (
	SourceEnv     = "env"
	SourceKeyring = "keyring"
)

// DefaultEnvVariable is the environment variable EnvSource reads by default.
const DefaultEnvVariable = "ENCRYPTION_PASSPHRASE"

// Source loads the operator passphrase.
type Source interface {
	Load(ctx context.Context) (*Passphrase, error)
}

// EnvSource reads the passphrase from an environment variable.
type EnvSource struct {
	Variable string
}

// NewEnvSource returns an EnvSource for variable, or DefaultEnvVariable when empty.
func NewEnvSource(variable string) *EnvSource {
	if variable == "" {
		variable = DefaultEnvVariable
	}
	return &EnvSource{Variable: variable}
}

// Load reads the variable and seals its value.
// Returns ErrPassphraseNotSet if the variable is unset or empty.
func (s *EnvSource) Load(ctx context.Context) (*Passphrase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, ok := os.LookupEnv(s.Variable)
	if !ok || value == "" {
		return nil, fmt.Errorf("%w: %s is empty", keymanagerDomain.ErrPassphraseNotSet, s.Variable)
	}
	return FromString(value)
}

// KeyringSource reads the passphrase from an OS keyring item.
type KeyringSource struct {
	ring keyring.Keyring
	key  string
}

// NewKeyringSource wraps an already opened keyring.
func NewKeyringSource(ring keyring.Keyring, key string) *KeyringSource {
	return &KeyringSource{ring: ring, key: key}
}

// OpenKeyringSource opens the keyring for service and reads key from it.
func OpenKeyringSource(service, key string) (*KeyringSource, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: service,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return NewKeyringSource(ring, key), nil
}

// Load reads the keyring item and seals a copy of its data.
// Returns ErrPassphraseNotSet if the item is missing or empty.
func (s *KeyringSource) Load(ctx context.Context) (*Passphrase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item, err := s.ring.Get(s.key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: keyring item %q not found", keymanagerDomain.ErrPassphraseNotSet, s.key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring item %q: %w", s.key, err)
	}
	if len(item.Data) == 0 {
		return nil, fmt.Errorf("%w: keyring item %q is empty", keymanagerDomain.ErrPassphraseNotSet, s.key)
	}
	// New wipes its input; keep the keyring's own copy intact.
	return New(bytes.Clone(item.Data))
}

// NewSource builds the Source named by kind.
func NewSource(kind, envVariable, keyringService, keyringKey string) (Source, error) {
	switch kind {
	case "", SourceEnv:
		return NewEnvSource(envVariable), nil
	case SourceKeyring:
		return OpenKeyringSource(keyringService, keyringKey)
	default:
		return nil, fmt.Errorf("unknown passphrase source %q", kind)
	}
}
