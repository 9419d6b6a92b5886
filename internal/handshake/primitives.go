// Package handshake implements the Noise_XX/IK/XXfallback_25519_ChaChaPoly_SHA256
// cryptographic core: the symmetric primitives, CipherState, SymmetricState
// and the generic token-driven HandshakeState that drives all three
// patterns from data tables in patterns.go.
//
// Everything here is deterministic given its inputs (and, for key
// generation, an entropy source); nothing in this package touches the
// network.
package handshake

import (
	"crypto/hmac"
	"errors"
	"io"

	"hash"

	sha256simd "github.com/minio/sha256-simd"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
)

const (
	// DHLen is the size in bytes of a Curve25519 key (private or public).
	DHLen = 32
	// HashLen is the size in bytes of a SHA-256 digest.
	HashLen = 32
	// TagLen is the size in bytes of the ChaCha20-Poly1305 authentication tag.
	TagLen = 16
)

var (
	// ErrMalformedKey is returned when a private or public key is the
	// wrong length or fails curve validation.
	ErrMalformedKey = errors.New("handshake: malformed key")
)

// Keypair is a Curve25519 keypair used either as a long-term static key or
// as a per-handshake ephemeral. Ephemeral keypairs should be discarded
// (Zero) once the handshake that generated them has finished.
type Keypair struct {
	Private [DHLen]byte
	Public  [DHLen]byte
}

// Zero overwrites the private half of the keypair. Intended for ephemeral
// keypairs once a handshake completes.
func (kp *Keypair) Zero() {
	for i := range kp.Private {
		kp.Private[i] = 0
	}
}

// GenerateKeypair produces a fresh Curve25519 keypair using random as the
// entropy source.
func GenerateKeypair(random io.Reader) (Keypair, error) {
	var kp Keypair
	if _, err := io.ReadFull(random, kp.Private[:]); err != nil {
		return Keypair{}, err
	}
	clamp(&kp.Private)
	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return Keypair{}, err
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// KeypairFromPrivate derives the public half of a caller-supplied 32-byte
// Curve25519 private scalar. This resolves the source's open question on
// deriving a static public key from a provided private key: the scalar is
// clamped per RFC 7748 before the base-point multiplication, and an
// all-zero scalar (which can never have been produced by clamped random
// generation) is rejected.
func KeypairFromPrivate(priv []byte) (Keypair, error) {
	if len(priv) != DHLen {
		return Keypair{}, ErrMalformedKey
	}
	var kp Keypair
	copy(kp.Private[:], priv)
	if isZero(kp.Private[:]) {
		return Keypair{}, ErrMalformedKey
	}
	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return Keypair{}, ErrMalformedKey
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

func clamp(priv *[DHLen]byte) {
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64
}

func isZero(b []byte) bool {
	var v byte
	for _, c := range b {
		v |= c
	}
	return v == 0
}

// ValidatePublicKey rejects public keys that are all-zero, which would
// produce an all-zero (and therefore trivially predictable) DH output on
// curve25519.
func ValidatePublicKey(pub []byte) bool {
	return len(pub) == DHLen && !isZero(pub)
}

// DH performs the X25519 Diffie-Hellman calculation.
func DH(priv [DHLen]byte, pub [DHLen]byte) ([]byte, error) {
	out, err := curve25519.X25519(priv[:], pub[:])
	if err != nil {
		return nil, ErrMalformedKey
	}
	return out, nil
}

// newHash returns a fresh SHA-256 state, backed by minio/sha256-simd's
// architecture-accelerated implementation rather than crypto/sha256.
func newHash() hash.Hash {
	return sha256simd.New()
}

// Hash returns SHA256(data).
func Hash(data []byte) [HashLen]byte {
	var out [HashLen]byte
	h := newHash()
	h.Write(data)
	copy(out[:], h.Sum(nil))
	return out
}

// hkdf implements the Noise protocol's fixed-shape key derivation:
// temp_key = HMAC-SHA256(chainingKey, inputKeyMaterial)
// output1  = HMAC-SHA256(temp_key, 0x01)
// output2  = HMAC-SHA256(temp_key, output1 || 0x02)
// output3  = HMAC-SHA256(temp_key, output2 || 0x03)
// and returns the first n outputs (n in [1,3]). This is not RFC 5869's
// variable-length HKDF-Expand and so is written directly rather than via
// golang.org/x/crypto/hkdf (see DESIGN.md).
func hkdf(chainingKey, inputKeyMaterial []byte, n int) [][]byte {
	if n < 1 || n > 3 {
		panic("handshake: hkdf supports 1-3 outputs")
	}
	tempMAC := hmac.New(sha256simd.New, chainingKey)
	tempMAC.Write(inputKeyMaterial)
	tempKey := tempMAC.Sum(nil)

	outputs := make([][]byte, n)
	var prev []byte
	for i := 0; i < n; i++ {
		mac := hmac.New(sha256simd.New, tempKey)
		mac.Write(prev)
		mac.Write([]byte{byte(i + 1)})
		out := mac.Sum(nil)
		outputs[i] = out
		prev = out
	}
	return outputs
}

// aeadNonce encodes a 64-bit counter into the 12-byte ChaCha20-Poly1305
// nonce as specified: four zero bytes followed by a little-endian uint64.
func aeadNonce(counter uint64) [chacha20poly1305.NonceSize]byte {
	var nonce [chacha20poly1305.NonceSize]byte
	for i := 0; i < 8; i++ {
		nonce[4+i] = byte(counter >> (8 * i))
	}
	return nonce
}

// aeadEncrypt seals plaintext under key with the given 64-bit nonce counter
// and associated data.
func aeadEncrypt(key [32]byte, counter uint64, ad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	nonce := aeadNonce(counter)
	return aead.Seal(nil, nonce[:], plaintext, ad), nil
}

// aeadDecrypt opens ciphertext under key with the given 64-bit nonce
// counter and associated data.
func aeadDecrypt(key [32]byte, counter uint64, ad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	nonce := aeadNonce(counter)
	return aead.Open(nil, nonce[:], ciphertext, ad)
}
