package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/sendvault/internal/common"
)

// Envelope layout, fixed offsets:
//
//	[salt(32)][payloadIV(16)][metadataIV(16)][metadataLength(u32 BE)][encryptedMetadata][encryptedPayload]
//
// Payload and metadata are sealed with AES-256-GCM (128-bit tag) under the
// same password-derived key but independent IVs. The original filename is a
// nested mini-envelope [nameIV(12)][encryptedName], base64, under a third IV.
const (
	ivSize     = 16
	nameIVSize = 12
	headerSize = SaltSize + 2*ivSize + 4

	FormatVersion = 1
	AlgorithmName = "AES-256-GCM"

	// PlaceholderName is substituted when the nested filename cannot be
	// recovered. Filename recovery is convenience, not a security boundary.
	PlaceholderName = "encrypted-file"

	readChunkSize = 4 << 20
)

// Metadata is the plaintext form of the envelope's encrypted metadata block.
type Metadata struct {
	Version               int    `json:"version"`
	Algorithm             string `json:"algorithm"`
	KDFIterations         int    `json:"kdfIterations"`
	OriginalSize          int64  `json:"originalSize"`
	OriginalNameEncrypted string `json:"originalNameEncrypted"`
	Timestamp             int64  `json:"timestamp"`
}

// Result is the output of Decrypt.
type Result struct {
	Plaintext    []byte
	OriginalName string
	Metadata     Metadata
}

// ProgressFunc receives monotonically non-decreasing values in [0,1],
// reaching 1 exactly once on success.
type ProgressFunc func(fraction float64)

// progressTracker enforces the monotonic/terminal-value contract so the
// rest of the code can report freely.
type progressTracker struct {
	fn   ProgressFunc
	last float64
}

func (p *progressTracker) report(v float64) {
	if p.fn == nil {
		return
	}
	if v > 1 {
		v = 1
	}
	if v <= p.last {
		return
	}
	p.last = v
	p.fn(v)
}

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnsupported, err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnsupported, err)
	}
	return aead, nil
}

// Encrypt reads exactly size bytes from src and produces one envelope.
// The full plaintext is materialized in memory before a single AEAD call;
// there is no streaming mode. Progress weighting: read ≈80%, encrypt ≈10%,
// assemble ≈10%.
func Encrypt(name string, src io.Reader, size int64, password []byte, onProgress ProgressFunc) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative size %d", size)
	}

	prog := &progressTracker{fn: onProgress}

	salt := common.GenerateRandByteArray(SaltSize)
	payloadIV := common.GenerateRandByteArray(ivSize)
	metadataIV := common.GenerateRandByteArray(ivSize)
	for bytes.Equal(payloadIV, metadataIV) {
		// Never reuse an IV across two plaintexts under the same key.
		metadataIV = common.GenerateRandByteArray(ivSize)
	}

	key := DeriveKey(password, salt)
	defer common.WipeByteArray(key)

	plaintext, err := readAll(src, size, prog)
	if err != nil {
		return nil, err
	}

	aead, err := newGCM(key, ivSize)
	if err != nil {
		return nil, err
	}

	sealedPayload := aead.Seal(nil, payloadIV, plaintext, nil)

	nameEnc, err := encryptName(name, key)
	if err != nil {
		return nil, err
	}

	meta := Metadata{
		Version:               FormatVersion,
		Algorithm:             AlgorithmName,
		KDFIterations:         KDFIterations,
		OriginalSize:          size,
		OriginalNameEncrypted: nameEnc,
		Timestamp:             time.Now().UnixMilli(),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshalling metadata: %w", err)
	}
	sealedMeta := aead.Seal(nil, metadataIV, metaJSON, nil)
	prog.report(0.9)

	envelope := make([]byte, 0, headerSize+len(sealedMeta)+len(sealedPayload))
	envelope = append(envelope, salt...)
	envelope = append(envelope, payloadIV...)
	envelope = append(envelope, metadataIV...)
	envelope = binary.BigEndian.AppendUint32(envelope, uint32(len(sealedMeta)))
	envelope = append(envelope, sealedMeta...)
	envelope = append(envelope, sealedPayload...)
	prog.report(1)

	return envelope, nil
}

// readAll reads size bytes in bounded chunks, reporting progress up to 0.8.
func readAll(src io.Reader, size int64, prog *progressTracker) ([]byte, error) {
	buf := make([]byte, size)
	var done int64
	for done < size {
		n := int64(readChunkSize)
		if size-done < n {
			n = size - done
		}
		if _, err := io.ReadFull(src, buf[done:done+n]); err != nil {
			return nil, fmt.Errorf("reading source: %w", err)
		}
		done += n
		prog.report(0.8 * float64(done) / float64(size))
	}
	return buf, nil
}

// Decrypt parses the envelope strictly by fixed offsets, re-derives the key
// from the embedded salt and recovers payload, filename and metadata.
//
// A metadata-stage AEAD failure is reported uniformly as ErrInvalidPassword:
// the codec must not distinguish a wrong password from corrupted metadata,
// to avoid an oracle. A payload-stage failure after metadata succeeded is
// ErrCorruptedPayload, since the password is already proven correct.
func Decrypt(envelope []byte, password []byte, onProgress ProgressFunc) (*Result, error) {
	prog := &progressTracker{fn: onProgress}

	if len(envelope) < headerSize {
		return nil, common.ErrMalformedEnvelope
	}

	salt := envelope[:SaltSize]
	payloadIV := envelope[SaltSize : SaltSize+ivSize]
	metadataIV := envelope[SaltSize+ivSize : SaltSize+2*ivSize]
	metaLen := int(binary.BigEndian.Uint32(envelope[SaltSize+2*ivSize : headerSize]))

	if metaLen < 0 || len(envelope)-headerSize < metaLen {
		return nil, common.ErrMalformedEnvelope
	}
	sealedMeta := envelope[headerSize : headerSize+metaLen]
	sealedPayload := envelope[headerSize+metaLen:]

	key := DeriveKey(password, salt)
	defer common.WipeByteArray(key)
	prog.report(0.4)

	aead, err := newGCM(key, ivSize)
	if err != nil {
		return nil, err
	}

	metaJSON, err := aead.Open(nil, metadataIV, sealedMeta, nil)
	if err != nil {
		return nil, common.ErrInvalidPassword
	}

	var meta Metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, common.ErrMalformedEnvelope
	}
	prog.report(0.5)

	plaintext, err := aead.Open(nil, payloadIV, sealedPayload, nil)
	if err != nil {
		return nil, common.ErrCorruptedPayload
	}
	prog.report(0.9)

	name := decryptName(meta.OriginalNameEncrypted, key)
	prog.report(1)

	return &Result{Plaintext: plaintext, OriginalName: name, Metadata: meta}, nil
}

// encryptName seals the filename into the nested mini-envelope
// [nameIV(12)][encryptedName] and encodes it as base64.
func encryptName(name string, key []byte) (string, error) {
	aead, err := newGCM(key, nameIVSize)
	if err != nil {
		return "", err
	}
	iv := common.GenerateRandByteArray(nameIVSize)
	sealed := aead.Seal(nil, iv, []byte(name), nil)

	out := make([]byte, 0, nameIVSize+len(sealed))
	out = append(out, iv...)
	out = append(out, sealed...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// decryptName recovers the nested filename, falling back to a placeholder
// rather than failing the whole operation.
func decryptName(encoded string, key []byte) string {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) <= nameIVSize {
		return PlaceholderName
	}
	aead, err := newGCM(key, nameIVSize)
	if err != nil {
		return PlaceholderName
	}
	name, err := aead.Open(nil, raw[:nameIVSize], raw[nameIVSize:], nil)
	if err != nil {
		return PlaceholderName
	}
	return string(name)
}
