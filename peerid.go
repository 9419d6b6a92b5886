package noise

import (
	"github.com/mr-tron/base58"
	sha256simd "github.com/minio/sha256-simd"
)

// PeerID is an opaque identifier for a PeerIdentity, derived from its
// type-tagged public key's Base58-encoded hash. It supports equality and
// a stable string form, which is all the handshake and cache logic need.
type PeerID string

// PeerIDFromPublicKey derives the PeerID for pub: base58(SHA256(type-byte
// || raw public key bytes)). The type byte keeps Ed25519 and secp256k1
// identities with colliding raw bytes (impossible in practice, but cheap
// to rule out) from ever deriving the same PeerID.
func PeerIDFromPublicKey(pub PublicKey) (PeerID, error) {
	raw, err := pub.Raw()
	if err != nil {
		return "", err
	}
	tagged := make([]byte, 0, len(raw)+1)
	tagged = append(tagged, byte(pub.Type()))
	tagged = append(tagged, raw...)

	h := sha256simd.Sum256(tagged)
	return PeerID(base58.Encode(h[:])), nil
}

// String returns the PeerID's Base58 string form.
func (id PeerID) String() string {
	return string(id)
}
