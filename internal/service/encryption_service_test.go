package service

import (
	"encoding/base64"
	"testing"

	"bank-cards/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Valid 32-byte key in hex (64 chars)
const testAESKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T) *AESCardNumberCodec {
	t.Helper()
	codec, err := NewAESCardNumberCodec(testAESKey)
	require.NoError(t, err)
	return codec
}

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, expectedCode), "expected %s, got %v", expectedCode, err)
}

func TestAESCardNumberCodec_NewInvalidKey(t *testing.T) {
	_, err := NewAESCardNumberCodec("shortkey")
	assert.Error(t, err)

	_, err = NewAESCardNumberCodec("abcd")
	assert.Error(t, err)
}

func TestAESCardNumberCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	for _, number := range []string{"0000000000000001", "4000123412341234", "9999999999999999"} {
		enc, err := codec.Encrypt(number)
		require.NoError(t, err)
		assert.NotContains(t, enc, number)

		dec, err := codec.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, number, dec)
	}
}

func TestAESCardNumberCodec_Layout(t *testing.T) {
	codec := newTestCodec(t)

	enc, err := codec.Encrypt("4000123412341234")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(enc)
	require.NoError(t, err)
	assert.Len(t, raw, 12+16+16, "nonce + ciphertext + tag")
}

func TestAESCardNumberCodec_DifferentNonces(t *testing.T) {
	codec := newTestCodec(t)

	c1, err := codec.Encrypt("4000123412341234")
	require.NoError(t, err)
	c2, err := codec.Encrypt("4000123412341234")
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2)
}

func TestAESCardNumberCodec_EmptyPassthrough(t *testing.T) {
	codec := newTestCodec(t)

	enc, err := codec.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, enc)

	dec, err := codec.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, dec)
}

func TestAESCardNumberCodec_Tampered(t *testing.T) {
	codec := newTestCodec(t)

	enc, err := codec.Encrypt("4000123412341234")
	require.NoError(t, err)

	raw, _ := base64.StdEncoding.DecodeString(enc)
	raw[len(raw)-1] ^= 0xff
	_, err = codec.Decrypt(base64.StdEncoding.EncodeToString(raw))
	assertAppError(t, err, apperror.CodeDecryption)
}

func TestAESCardNumberCodec_WrongKey(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewAESCardNumberCodec("abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789")
	require.NoError(t, err)

	enc, err := codec.Encrypt("4000123412341234")
	require.NoError(t, err)

	_, err = other.Decrypt(enc)
	assertAppError(t, err, apperror.CodeDecryption)
}

func TestAESCardNumberCodec_Malformed(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Decrypt("not base64 !!!")
	assertAppError(t, err, apperror.CodeDecryption)

	_, err = codec.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	assertAppError(t, err, apperror.CodeDecryption)
}
