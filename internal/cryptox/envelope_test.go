package cryptox

import (
	"bytes"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/sendvault/internal/common"
)

var fixture struct {
	once      sync.Once
	plaintext []byte
	envelope  []byte
}

const (
	fixtureName     = "report.pdf"
	fixturePassword = "correct horse battery staple"
)

// testEnvelope builds one envelope per test run; key derivation is slow by
// design, so tests share it where the scenario allows.
func testEnvelope(t *testing.T) ([]byte, []byte) {
	t.Helper()
	fixture.once.Do(func() {
		fixture.plaintext = make([]byte, 64*1024)
		_, err := rand.Read(fixture.plaintext)
		if err != nil {
			t.Fatalf("rand: %v", err)
		}
		env, err := Encrypt(fixtureName, bytes.NewReader(fixture.plaintext),
			int64(len(fixture.plaintext)), []byte(fixturePassword), nil)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		fixture.envelope = env
	})
	return fixture.plaintext, fixture.envelope
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	plaintext, envelope := testEnvelope(t)

	res, err := Decrypt(envelope, []byte(fixturePassword), nil)
	require.NoError(t, err)
	require.Equal(t, plaintext, res.Plaintext)
	require.Equal(t, fixtureName, res.OriginalName)

	require.Equal(t, FormatVersion, res.Metadata.Version)
	require.Equal(t, AlgorithmName, res.Metadata.Algorithm)
	require.Equal(t, KDFIterations, res.Metadata.KDFIterations)
	require.Equal(t, int64(len(plaintext)), res.Metadata.OriginalSize)
}

func TestDecrypt_WrongPassword(t *testing.T) {
	_, envelope := testEnvelope(t)

	res, err := Decrypt(envelope, []byte("not the password"), nil)
	require.ErrorIs(t, err, common.ErrInvalidPassword)
	require.Nil(t, res)
}

func TestDecrypt_WrongPassword_DoesNotLeakName(t *testing.T) {
	_, envelope := testEnvelope(t)

	require.NotContains(t, string(envelope), fixtureName,
		"filename must never appear in the envelope in the clear")

	_, err := Decrypt(envelope, []byte("guess"), nil)
	require.Error(t, err)
	require.NotContains(t, err.Error(), fixtureName)
}

func TestEncrypt_IVIndependence(t *testing.T) {
	data := []byte("same input twice")
	password := []byte("pw")

	a, err := Encrypt("f.bin", bytes.NewReader(data), int64(len(data)), password, nil)
	require.NoError(t, err)
	b, err := Encrypt("f.bin", bytes.NewReader(data), int64(len(data)), password, nil)
	require.NoError(t, err)

	// Pairwise-distinct salts and IVs across encryptions.
	require.NotEqual(t, a[:SaltSize], b[:SaltSize])
	require.NotEqual(t, a[SaltSize:SaltSize+ivSize], b[SaltSize:SaltSize+ivSize])
	require.NotEqual(t, a[SaltSize+ivSize:SaltSize+2*ivSize], b[SaltSize+ivSize:SaltSize+2*ivSize])

	// Independent IVs within one envelope.
	require.NotEqual(t, a[SaltSize:SaltSize+ivSize], a[SaltSize+ivSize:SaltSize+2*ivSize])
}

func TestDecrypt_MalformedEnvelope(t *testing.T) {
	_, err := Decrypt([]byte("too short"), []byte("pw"), nil)
	require.ErrorIs(t, err, common.ErrMalformedEnvelope)

	// Header claims more metadata than the buffer holds.
	_, envelope := testEnvelope(t)
	trimmed := make([]byte, headerSize)
	copy(trimmed, envelope[:headerSize])
	_, err = Decrypt(trimmed, []byte("pw"), nil)
	require.ErrorIs(t, err, common.ErrMalformedEnvelope)
}

func TestDecrypt_CorruptedPayload(t *testing.T) {
	_, envelope := testEnvelope(t)

	corrupted := bytes.Clone(envelope)
	corrupted[len(corrupted)-1] ^= 0xFF

	_, err := Decrypt(corrupted, []byte(fixturePassword), nil)
	require.ErrorIs(t, err, common.ErrCorruptedPayload)
}

func TestDecrypt_CorruptedMetadata_IndistinguishableFromWrongPassword(t *testing.T) {
	_, envelope := testEnvelope(t)

	corrupted := bytes.Clone(envelope)
	corrupted[headerSize] ^= 0xFF // first byte of encrypted metadata

	_, err := Decrypt(corrupted, []byte(fixturePassword), nil)
	require.ErrorIs(t, err, common.ErrInvalidPassword)
}

func TestEncrypt_ProgressMonotonicAndTerminal(t *testing.T) {
	data := make([]byte, 10*1024)
	var reported []float64

	_, err := Encrypt("x", bytes.NewReader(data), int64(len(data)), []byte("pw"),
		func(f float64) { reported = append(reported, f) })
	require.NoError(t, err)
	require.NotEmpty(t, reported)

	ones := 0
	last := -1.0
	for _, f := range reported {
		require.GreaterOrEqual(t, f, 0.0)
		require.LessOrEqual(t, f, 1.0)
		require.Greater(t, f, last, "progress must be strictly increasing per report")
		last = f
		if f == 1 {
			ones++
		}
	}
	require.Equal(t, 1, ones, "terminal value must be reported exactly once")
	require.Equal(t, 1.0, reported[len(reported)-1])
}

func TestDecryptName_FallsBackToPlaceholder(t *testing.T) {
	key := make([]byte, KeySize)

	require.Equal(t, PlaceholderName, decryptName("%%% not base64 %%%", key))
	require.Equal(t, PlaceholderName, decryptName("AAAA", key)) // shorter than a nonce
}
