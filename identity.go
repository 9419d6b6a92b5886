package noise

// KeyType identifies the signature algorithm of a PeerIdentity's long-term
// identity key. This is independent of the Noise static key's algorithm,
// which is always Curve25519 regardless of which identity-key type signs
// the handshake payload.
type KeyType int

const (
	// KeyTypeEd25519 identifies an Ed25519 identity key.
	KeyTypeEd25519 KeyType = iota + 1
	// KeyTypeSecp256k1 identifies a secp256k1 identity key.
	KeyTypeSecp256k1
)

// PublicKey is the minimal surface this module needs from a peer's
// identity public key: its raw serialization (for the handshake payload's
// identity_key field and for PeerID derivation) and the ability to verify
// a signature made by the matching private key.
//
// Generation and marshalling of identity keys themselves are handled by
// whatever key-management layer the surrounding application already has;
// PublicKey/PrivateKey are the narrow collaborator interfaces the core
// calls through. Concrete implementations live in internal/identitykey.
type PublicKey interface {
	// Raw returns the serialized public key bytes used both on the wire
	// (identity_key) and for PeerID derivation.
	Raw() ([]byte, error)
	// Type identifies which algorithm this key belongs to.
	Type() KeyType
	// Verify checks sig over data.
	Verify(data, sig []byte) (bool, error)
}

// PrivateKey is the minimal surface this module needs from a local
// identity's private key.
type PrivateKey interface {
	Type() KeyType
	// PublicKey returns the corresponding public key.
	PublicKey() PublicKey
	// Sign signs data, returning a signature verifiable by PublicKey().
	Sign(data []byte) ([]byte, error)
}

// Identity is the local collaborator the façade signs handshake payloads
// with. A caller obtains one from whatever key-management layer the
// surrounding application uses; this module only ever calls PrivateKey().
type Identity interface {
	PrivateKey() PrivateKey
}

// PublicKeyCodec turns a handshake payload's raw identity_key bytes back
// into a verifiable PublicKey, and a local PublicKey into the bytes that
// go on the wire. This is the seam a concrete key-management layer plugs
// into; internal/identitykey provides the default implementation for
// Ed25519 and secp256k1.
type PublicKeyCodec interface {
	MarshalPublicKey(pub PublicKey) ([]byte, error)
	UnmarshalPublicKey(raw []byte) (PublicKey, error)
}
