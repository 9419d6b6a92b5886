package identitykey

import (
	"errors"

	noise "github.com/dep2p/go-dep2p-noise"
)

// ErrUnknownKeyType is returned by Codec.UnmarshalPublicKey when the
// leading type byte does not match a known noise.KeyType.
var ErrUnknownKeyType = errors.New("identitykey: unknown key type")

// Codec is the default noise.PublicKeyCodec: it tags marshalled public
// keys with a single leading noise.KeyType byte, the same convention
// PeerIDFromPublicKey (in the root package) uses internally, so a
// handshake payload's identity_key field is self-describing without the
// core needing to know about concrete key algorithms.
type Codec struct{}

// MarshalPublicKey implements noise.PublicKeyCodec.
func (Codec) MarshalPublicKey(pub noise.PublicKey) ([]byte, error) {
	raw, err := pub.Raw()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(raw)+1)
	out = append(out, byte(pub.Type()))
	out = append(out, raw...)
	return out, nil
}

// UnmarshalPublicKey implements noise.PublicKeyCodec.
func (Codec) UnmarshalPublicKey(raw []byte) (noise.PublicKey, error) {
	if len(raw) < 1 {
		return nil, ErrUnknownKeyType
	}
	keyType := noise.KeyType(raw[0])
	body := raw[1:]
	switch keyType {
	case noise.KeyTypeEd25519:
		return UnmarshalEd25519PublicKey(body)
	case noise.KeyTypeSecp256k1:
		return UnmarshalSecp256k1PublicKey(body)
	default:
		return nil, ErrUnknownKeyType
	}
}
