package noise

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
)

// fakePublicKey and fakePrivateKey are minimal Ed25519-backed
// implementations of PublicKey/PrivateKey for tests, kept local to this
// package (rather than importing internal/identitykey) since
// internal/identitykey itself imports this package and doing so from a
// package-noise test file would be an import cycle.
type fakePublicKey struct {
	key ed25519.PublicKey
}

func (k *fakePublicKey) Raw() ([]byte, error) { return append([]byte(nil), k.key...), nil }
func (k *fakePublicKey) Type() KeyType        { return KeyTypeEd25519 }
func (k *fakePublicKey) Verify(data, sig []byte) (bool, error) {
	return ed25519.Verify(k.key, data, sig), nil
}

type fakePrivateKey struct {
	key ed25519.PrivateKey
}

func (k *fakePrivateKey) Type() KeyType     { return KeyTypeEd25519 }
func (k *fakePrivateKey) PublicKey() PublicKey {
	return &fakePublicKey{key: k.key.Public().(ed25519.PublicKey)}
}
func (k *fakePrivateKey) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(k.key, data), nil
}

func newFakeIdentity() (*fakePrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &fakePrivateKey{key: priv}, nil
}

// fakeIdentity implements Identity over a fakePrivateKey.
type fakeIdentity struct {
	priv *fakePrivateKey
}

func (id fakeIdentity) PrivateKey() PrivateKey { return id.priv }

// fakeCodec marshals a fakePublicKey as its raw 32 bytes with no type tag,
// since tests never mix key algorithms.
type fakeCodec struct{}

func (fakeCodec) MarshalPublicKey(pub PublicKey) ([]byte, error) {
	return pub.Raw()
}

func (fakeCodec) UnmarshalPublicKey(raw []byte) (PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("fakeCodec: wrong public key length")
	}
	k := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(k, raw)
	return &fakePublicKey{key: k}, nil
}

// countingCounter is a Counter that records how many times Inc/Add were
// called, for assertions against a Transport's metrics behavior.
type countingCounter struct {
	count float64
}

func (c *countingCounter) Inc()              { c.count++ }
func (c *countingCounter) Add(delta float64) { c.count += delta }

func newTestMetrics() (*MetricsSink, map[string]*countingCounter) {
	successes := &countingCounter{}
	errs := &countingCounter{}
	encrypted := &countingCounter{}
	decrypted := &countingCounter{}
	decryptErrs := &countingCounter{}
	return &MetricsSink{
			HandshakeSuccesses: successes,
			HandshakeErrors:    errs,
			EncryptedPackets:   encrypted,
			DecryptedPackets:   decrypted,
			DecryptErrors:      decryptErrs,
		}, map[string]*countingCounter{
			"successes":    successes,
			"errors":       errs,
			"encrypted":    encrypted,
			"decrypted":    decrypted,
			"decryptErrs":  decryptErrs,
		}
}

// frameCountingDuplex wraps a Duplex and counts how many discrete frames
// (2-byte length prefix + body) are written through it; reads are not
// counted. Tests use it to assert how many handshake messages one side
// sends (e.g. that an IK initiator sends one, unlike XX's two).
type frameCountingDuplex struct {
	Duplex
	writeFrames *int
}

func (d *frameCountingDuplex) Write(p []byte) (int, error) {
	// Every WriteFrame call issues exactly one Write of the 2-byte prefix
	// followed by exactly one Write of the body (see wire.WriteFrame); the
	// prefix write is what we count a frame on.
	if len(p) == 2 {
		*d.writeFrames++
	}
	return d.Duplex.Write(p)
}
