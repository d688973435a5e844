package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const keyName = "KR8TIV_TEST_MEMORY_KEY"

func TestResolvePrefersKeyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv(keyName, "from-env")

	require.NoError(t, Store(keyName, " from-keyring "))
	val, src := Resolve(keyName, nil)
	assert.Equal(t, "from-keyring", val)
	assert.Equal(t, SourceKeyring, src)

	require.NoError(t, Delete(keyName))
	val, src = Resolve(keyName, nil)
	assert.Equal(t, "from-env", val)
	assert.Equal(t, SourceEnv, src)
}

func TestResolveMissing(t *testing.T) {
	keyring.MockInit()
	t.Setenv(keyName, "   ")

	val, src := Resolve(keyName, nil)
	assert.Empty(t, val)
	assert.Equal(t, SourceNone, src)

	val, src = Resolve("", nil)
	assert.Empty(t, val)
	assert.Equal(t, SourceNone, src)
}

func TestKeyringAvailable(t *testing.T) {
	keyring.MockInit()
	assert.True(t, KeyringAvailable())

	t.Setenv(keyName, "")
	keyring.MockInitWithError(keyring.ErrUnsupportedPlatform)
	assert.False(t, KeyringAvailable())
	val, src := Resolve(keyName, nil)
	assert.Empty(t, val)
	assert.Equal(t, SourceNone, src)
}
