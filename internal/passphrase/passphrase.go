// Package passphrase holds the operator passphrase in guarded memory and loads it from
// the environment or the OS keyring.
package passphrase

import (
	"fmt"

	"github.com/awnumar/memguard"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

// Passphrase is an operator passphrase sealed in a memguard enclave. The plaintext is only
// exposed inside Use.
type Passphrase struct {
	enclave *memguard.Enclave
}

// New seals secret and wipes the caller's copy. An empty secret is rejected.
func New(secret []byte) (*Passphrase, error) {
	if len(secret) == 0 {
		return nil, keymanagerDomain.ErrPassphraseNotSet
	}
	return &Passphrase{enclave: memguard.NewEnclave(secret)}, nil
}

// FromString seals a passphrase given as a string.
func FromString(secret string) (*Passphrase, error) {
	return New([]byte(secret))
}

// Use opens the enclave and passes the plaintext to fn. The buffer is destroyed when fn
// returns and must not be retained.
func (p *Passphrase) Use(fn func([]byte) error) error {
	if p == nil || p.enclave == nil {
		return keymanagerDomain.ErrPassphraseNotSet
	}

	buf, err := p.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open passphrase enclave: %w", err)
	}
	defer buf.Destroy()

	return fn(buf.Bytes())
}

// String never reveals the passphrase.
func (p *Passphrase) String() string {
	return "[REDACTED]"
}

// Destroy drops the enclave. Later calls to Use fail with ErrPassphraseNotSet.
func (p *Passphrase) Destroy() {
	if p != nil {
		p.enclave = nil
	}
}
