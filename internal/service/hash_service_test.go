package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the test suite fast
var testArgon2Params = Argon2Params{Memory: 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestArgon2HashService_HashAndVerify(t *testing.T) {
	svc := NewArgon2HashService()

	hash, err := svc.Hash("SecureP@ssw0rd!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))

	match, err := svc.Verify("SecureP@ssw0rd!", hash)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = svc.Verify("wrong-password", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestArgon2HashService_UniqueSalts(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(testArgon2Params)

	h1, err := svc.Hash("same-password")
	require.NoError(t, err)
	h2, err := svc.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestArgon2HashService_VerifyUsesStoredParams(t *testing.T) {
	cheap := NewArgon2HashServiceWithParams(testArgon2Params)
	hash, err := cheap.Hash("pw")
	require.NoError(t, err)

	match, err := NewArgon2HashService().Verify("pw", hash)
	require.NoError(t, err)
	assert.True(t, match)
}

func TestArgon2HashService_VerifyInvalidFormat(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(testArgon2Params)

	tests := []string{
		"not-a-valid-hash",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
	}
	for _, h := range tests {
		_, err := svc.Verify("pw", h)
		assert.Error(t, err, h)
	}
}
