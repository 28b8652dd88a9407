package passphrase

import (
	"context"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

func readAll(t *testing.T, p *Passphrase) string {
	t.Helper()
	var out string
	require.NoError(t, p.Use(func(b []byte) error {
		out = string(b)
		return nil
	}))
	return out
}

func TestEnvSource(t *testing.T) {
	t.Run("Success_DefaultVariable", func(t *testing.T) {
		t.Setenv(DefaultEnvVariable, "from-env")

		p, err := NewEnvSource("").Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "from-env", readAll(t, p))
	})

	t.Run("Success_CustomVariable", func(t *testing.T) {
		t.Setenv("PFBACKUP_TEST_PASSPHRASE", "custom")

		p, err := NewEnvSource("PFBACKUP_TEST_PASSPHRASE").Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "custom", readAll(t, p))
	})

	t.Run("Error_Empty", func(t *testing.T) {
		t.Setenv(DefaultEnvVariable, "")

		_, err := NewEnvSource("").Load(context.Background())
		assert.ErrorIs(t, err, keymanagerDomain.ErrPassphraseNotSet)
	})

	t.Run("Error_Unset", func(t *testing.T) {
		_, err := NewEnvSource("PFBACKUP_TEST_UNSET_VARIABLE").Load(context.Background())
		assert.ErrorIs(t, err, keymanagerDomain.ErrPassphraseNotSet)
	})
}

func TestKeyringSource(t *testing.T) {
	ring := keyring.NewArrayKeyring([]keyring.Item{
		{Key: "passphrase", Data: []byte("from-keyring")},
		{Key: "empty", Data: nil},
	})

	t.Run("Success_ReadsItem", func(t *testing.T) {
		p, err := NewKeyringSource(ring, "passphrase").Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "from-keyring", readAll(t, p))
	})

	t.Run("Success_ItemSurvivesLoad", func(t *testing.T) {
		_, err := NewKeyringSource(ring, "passphrase").Load(context.Background())
		require.NoError(t, err)

		item, err := ring.Get("passphrase")
		require.NoError(t, err)
		assert.Equal(t, []byte("from-keyring"), item.Data)
	})

	t.Run("Error_MissingItem", func(t *testing.T) {
		_, err := NewKeyringSource(ring, "missing").Load(context.Background())
		assert.ErrorIs(t, err, keymanagerDomain.ErrPassphraseNotSet)
	})

	t.Run("Error_EmptyItem", func(t *testing.T) {
		_, err := NewKeyringSource(ring, "empty").Load(context.Background())
		assert.ErrorIs(t, err, keymanagerDomain.ErrPassphraseNotSet)
	})
}

func TestSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	t.Setenv(DefaultEnvVariable, "from-env")
	_, err := NewEnvSource("").Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewKeyringSource(keyring.NewArrayKeyring(nil), "passphrase").Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSource(t *testing.T) {
	source, err := NewSource("", "", "", "")
	require.NoError(t, err)
	assert.IsType(t, &EnvSource{}, source)

	source, err = NewSource(SourceEnv, "CUSTOM", "", "")
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM", source.(*EnvSource).Variable)

	_, err = NewSource("vault", "", "", "")
	assert.Error(t, err)
}
