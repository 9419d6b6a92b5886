package identitykey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/asn1"
	"errors"
	"io"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	noise "github.com/dep2p/go-dep2p-noise"
)

// derSignature is the ASN.1 structure DER-encoded ECDSA signatures use;
// decred's ecdsa.Signature only (de)serializes through this form, so
// fixed-width R||S conversion round-trips through it rather than reaching
// into the library's internal scalar representation.
type derSignature struct {
	R, S *big.Int
}

func secp256k1PaddedBytes(n *big.Int, length int) []byte {
	b := n.Bytes()
	if len(b) >= length {
		return b[len(b)-length:]
	}
	padded := make([]byte, length)
	copy(padded[length-len(b):], b)
	return padded
}

// Secp256k1SignatureSize is the fixed length of a secp256k1 signature as
// produced by Sign: 64 bytes, R || S, not DER.
const Secp256k1SignatureSize = 64

// Secp256k1PublicKey wraps a secp256k1 public key.
type Secp256k1PublicKey struct {
	key *secp256k1.PublicKey
}

// Secp256k1PrivateKey wraps a secp256k1 private key.
type Secp256k1PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateSecp256k1 creates a fresh random secp256k1 identity.
func GenerateSecp256k1() (*Secp256k1PrivateKey, error) {
	return GenerateSecp256k1From(rand.Reader)
}

// GenerateSecp256k1From creates a fresh secp256k1 identity from the given
// entropy source, for deterministic tests.
func GenerateSecp256k1From(random io.Reader) (*Secp256k1PrivateKey, error) {
	var seed [32]byte
	for {
		if _, err := io.ReadFull(random, seed[:]); err != nil {
			return nil, err
		}
		key := secp256k1.PrivKeyFromBytes(seed[:])
		if key == nil {
			continue
		}
		return &Secp256k1PrivateKey{key: key}, nil
	}
}

// UnmarshalSecp256k1PublicKey parses a compressed (33-byte) secp256k1
// public key.
func UnmarshalSecp256k1PublicKey(raw []byte) (*Secp256k1PublicKey, error) {
	key, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, ErrInvalidKey
	}
	return &Secp256k1PublicKey{key: key}, nil
}

// UnmarshalSecp256k1PrivateKey parses a raw 32-byte secp256k1 scalar.
func UnmarshalSecp256k1PrivateKey(raw []byte) (*Secp256k1PrivateKey, error) {
	if len(raw) != 32 {
		return nil, ErrInvalidKey
	}
	key := secp256k1.PrivKeyFromBytes(raw)
	if key == nil {
		return nil, ErrInvalidKey
	}
	return &Secp256k1PrivateKey{key: key}, nil
}

// Type implements noise.PublicKey.
func (k *Secp256k1PublicKey) Type() noise.KeyType { return noise.KeyTypeSecp256k1 }

// Raw returns the compressed (33-byte) public key.
func (k *Secp256k1PublicKey) Raw() ([]byte, error) {
	return k.key.SerializeCompressed(), nil
}

// Verify implements noise.PublicKey. sig is 64 bytes, R || S.
func (k *Secp256k1PublicKey) Verify(data, sig []byte) (bool, error) {
	if len(sig) != Secp256k1SignatureSize {
		return false, nil
	}
	der, err := asn1.Marshal(derSignature{
		R: new(big.Int).SetBytes(sig[:32]),
		S: new(big.Int).SetBytes(sig[32:]),
	})
	if err != nil {
		return false, nil
	}
	parsed, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false, nil
	}
	digest := sha256.Sum256(data)
	return parsed.Verify(digest[:], k.key), nil
}

// Type implements noise.PrivateKey.
func (k *Secp256k1PrivateKey) Type() noise.KeyType { return noise.KeyTypeSecp256k1 }

// PublicKey implements noise.PrivateKey.
func (k *Secp256k1PrivateKey) PublicKey() noise.PublicKey {
	return &Secp256k1PublicKey{key: k.key.PubKey()}
}

// Raw returns the raw 32-byte private scalar.
func (k *Secp256k1PrivateKey) Raw() []byte {
	return k.key.Serialize()
}

// Sign implements noise.PrivateKey, returning a fixed 64-byte R||S
// signature (not DER) over SHA-256(data).
func (k *Secp256k1PrivateKey) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	sig := ecdsa.Sign(k.key, digest[:])

	var parsed derSignature
	if _, err := asn1.Unmarshal(sig.Serialize(), &parsed); err != nil {
		return nil, errors.New("identitykey: failed to decode secp256k1 signature")
	}
	out := make([]byte, Secp256k1SignatureSize)
	copy(out[:32], secp256k1PaddedBytes(parsed.R, 32))
	copy(out[32:], secp256k1PaddedBytes(parsed.S, 32))
	return out, nil
}
