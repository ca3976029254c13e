// File: backend/services/impersonation-service/internal/infrastructure/security/vault_test.go
package security_test

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/errors"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/infrastructure/security"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNewAESGCMVault_KeyValidation(t *testing.T) {
	_, err := security.NewAESGCMVault("not-hex")
	assert.Error(t, err)

	_, err = security.NewAESGCMVault("00112233")
	assert.Error(t, err)

	_, err = security.NewAESGCMVault(testKeyHex)
	assert.NoError(t, err)
}

func TestVault_SealUnseal_RoundTrip(t *testing.T) {
	vault, err := security.NewAESGCMVault(testKeyHex)
	require.NoError(t, err)

	plain := "original-access-token-abc123"
	sealed, err := vault.Seal(plain)
	require.NoError(t, err)
	assert.NotEqual(t, plain, sealed)
	assert.NotContains(t, sealed, plain)

	recovered, err := vault.Unseal(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, recovered)
}

func TestVault_Seal_NonceIsFresh(t *testing.T) {
	vault, err := security.NewAESGCMVault(testKeyHex)
	require.NoError(t, err)

	first, err := vault.Seal("same-plaintext")
	require.NoError(t, err)
	second, err := vault.Seal("same-plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVault_Unseal_TamperedCiphertext(t *testing.T) {
	vault, err := security.NewAESGCMVault(testKeyHex)
	require.NoError(t, err)

	sealed, err := vault.Seal("secret-material")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = vault.Unseal(tampered)
	assert.True(t, errors.Is(err, domainErrors.ErrDecryptionFailed))
}

func TestVault_Unseal_MalformedInput(t *testing.T) {
	vault, err := security.NewAESGCMVault(testKeyHex)
	require.NoError(t, err)

	cases := []string{
		"",
		"not base64 !!!",
		base64.StdEncoding.EncodeToString([]byte("short")),
	}
	for _, input := range cases {
		_, err := vault.Unseal(input)
		assert.True(t, errors.Is(err, domainErrors.ErrDecryptionFailed), "input %q", input)
	}
}

func TestVault_Unseal_WrongKey(t *testing.T) {
	vault, err := security.NewAESGCMVault(testKeyHex)
	require.NoError(t, err)
	other, err := security.NewAESGCMVault(strings.Repeat("ab", 32))
	require.NoError(t, err)

	sealed, err := vault.Seal("secret")
	require.NoError(t, err)

	_, err = other.Unseal(sealed)
	assert.True(t, errors.Is(err, domainErrors.ErrDecryptionFailed))
}
