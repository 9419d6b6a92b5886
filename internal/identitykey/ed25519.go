// Package identitykey provides Ed25519 and secp256k1 implementations of
// the PeerIdentity PublicKey/PrivateKey collaborator interfaces
// (noise.PublicKey/noise.PrivateKey), so the façade, tests, and examples
// have a concrete identity to exercise without every caller needing to
// write its own PublicKey/PrivateKey adapter.
package identitykey

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"io"

	"filippo.io/edwards25519"

	noise "github.com/dep2p/go-dep2p-noise"
)

// ErrInvalidKey is returned when a serialized key has the wrong length or
// fails curve validation.
var ErrInvalidKey = errors.New("identitykey: invalid key")

// Ed25519PublicKey wraps a standard-library Ed25519 public key.
type Ed25519PublicKey struct {
	key ed25519.PublicKey
}

// Ed25519PrivateKey wraps a standard-library Ed25519 private key.
type Ed25519PrivateKey struct {
	key ed25519.PrivateKey
}

// GenerateEd25519 creates a fresh random Ed25519 identity.
func GenerateEd25519() (*Ed25519PrivateKey, error) {
	return GenerateEd25519From(rand.Reader)
}

// GenerateEd25519From creates a fresh Ed25519 identity from the given
// entropy source, for deterministic tests.
func GenerateEd25519From(random io.Reader) (*Ed25519PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(random)
	if err != nil {
		return nil, err
	}
	return &Ed25519PrivateKey{key: priv}, nil
}

// UnmarshalEd25519PublicKey parses a raw 32-byte Ed25519 public key.
func UnmarshalEd25519PublicKey(raw []byte) (*Ed25519PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, ErrInvalidKey
	}
	k := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(k, raw)
	return &Ed25519PublicKey{key: k}, nil
}

// Type implements noise.PublicKey.
func (k *Ed25519PublicKey) Type() noise.KeyType { return noise.KeyTypeEd25519 }

// Raw implements noise.PublicKey.
func (k *Ed25519PublicKey) Raw() ([]byte, error) {
	out := make([]byte, len(k.key))
	copy(out, k.key)
	return out, nil
}

// Verify implements noise.PublicKey.
func (k *Ed25519PublicKey) Verify(data, sig []byte) (bool, error) {
	if len(sig) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(k.key, data, sig), nil
}

// Type implements noise.PrivateKey.
func (k *Ed25519PrivateKey) Type() noise.KeyType { return noise.KeyTypeEd25519 }

// PublicKey implements noise.PrivateKey.
func (k *Ed25519PrivateKey) PublicKey() noise.PublicKey {
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pub, k.key[ed25519.SeedSize:])
	return &Ed25519PublicKey{key: pub}
}

// Sign implements noise.PrivateKey.
func (k *Ed25519PrivateKey) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(k.key, data), nil
}

// Raw returns the full 64-byte Ed25519 private key: the 32-byte seed
// followed by the 32-byte public key.
func (k *Ed25519PrivateKey) Raw() []byte {
	out := make([]byte, len(k.key))
	copy(out, k.key)
	return out
}

// ToCurve25519Private converts an Ed25519 private key seed to a Curve25519
// scalar via RFC 8032/7748 clamped SHA-512, the conversion
// noise-libp2p-static-key implementations use to derive a Noise static
// key from an Ed25519 identity when the caller does not supply one
// explicitly.
func (k *Ed25519PrivateKey) ToCurve25519Private() [32]byte {
	return clampedSHA512Scalar(k.key.Seed())
}

func clampedSHA512Scalar(seed []byte) [32]byte {
	digest := sha512.Sum512(seed)
	var out [32]byte
	copy(out[:], digest[:32])
	out[0] &= 248
	out[31] &= 127
	out[31] |= 64
	return out
}

// ToCurve25519Public converts an Ed25519 public key (an Edwards point) to
// its Curve25519 (Montgomery) form via filippo.io/edwards25519.
func ToCurve25519Public(pub ed25519.PublicKey) ([32]byte, error) {
	var out [32]byte
	point, err := new(edwards25519.Point).SetBytes(pub)
	if err != nil {
		return out, ErrInvalidKey
	}
	copy(out[:], point.BytesMontgomery())
	return out, nil
}
