package noise

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/dep2p/go-dep2p-noise/internal/handshake"
	"github.com/dep2p/go-dep2p-noise/logging"
)

var logger = logging.Logger("security/noise")

// ProtocolID is the wire protocol identifier this transport negotiates.
const ProtocolID = "/noise"

// Transport is the top-level secure-channel façade: it owns a long-term
// Noise static keypair and the process-local collaborators (static-key
// cache, metrics sink) a handshake needs, and exposes
// SecureInbound/SecureOutbound over any caller-supplied Duplex.
type Transport struct {
	static        handshake.Keypair
	extensions    *Extensions
	useNoisePipes bool
	cache         *StaticKeyCache
	metrics       *MetricsSink
	codec         PublicKeyCodec
	random        io.Reader
}

// Option configures a Transport constructed by New.
type Option func(*Transport) error

// WithStaticNoiseKey sets the transport's long-term Noise static private
// key explicitly instead of generating a fresh one. priv must be a
// 32-byte Curve25519 scalar.
func WithStaticNoiseKey(priv []byte) Option {
	return func(t *Transport) error {
		kp, err := handshake.KeypairFromPrivate(priv)
		if err != nil {
			return wrapErr("with-static-noise-key", CodeMalformedMessage, err)
		}
		t.static = kp
		return nil
	}
}

// WithExtensions sets the handshake payload extensions this transport
// advertises on every handshake it drives.
func WithExtensions(ext *Extensions) Option {
	return func(t *Transport) error {
		t.extensions = ext
		return nil
	}
}

// WithNoisePipes toggles the IK-first optimization, letting a caller that
// already knows the remote's Noise static key skip straight to a
// two-message handshake instead of the three-message XX exchange; the
// default, applied by New, is enabled.
func WithNoisePipes(enabled bool) Option {
	return func(t *Transport) error {
		t.useNoisePipes = enabled
		return nil
	}
}

// WithMetrics wires a MetricsSink into every handshake and secured stream
// this transport produces. The default, applied by New, discards every
// increment (NopSink).
func WithMetrics(sink *MetricsSink) Option {
	return func(t *Transport) error {
		if sink != nil {
			t.metrics = sink
		}
		return nil
	}
}

// WithStaticKeyCache overrides the transport's static-key cache, for
// callers that want to prime or inspect entries directly (e.g. seeding a
// known peer's static key ahead of dialing it). The default, applied by
// New, is a fresh empty cache.
func WithStaticKeyCache(cache *StaticKeyCache) Option {
	return func(t *Transport) error {
		if cache != nil {
			t.cache = cache
		}
		return nil
	}
}

// WithPublicKeyCodec sets the PublicKeyCodec used to marshal and unmarshal
// handshake payload identity keys. There is no default: the root package
// cannot import internal/identitykey (which itself depends on PublicKey/
// PrivateKey from this package) without an import cycle, so a caller that
// wants the Ed25519/secp256k1 codec internal/identitykey provides must
// pass identitykey.Codec{} here explicitly.
func WithPublicKeyCodec(codec PublicKeyCodec) Option {
	return func(t *Transport) error {
		if codec != nil {
			t.codec = codec
		}
		return nil
	}
}

// New constructs a Transport. With no further options, it generates a
// fresh Noise static keypair, enables the IK-first optimization, and
// discards metrics. WithPublicKeyCodec is mandatory: New fails without one,
// since the root package has no default identity-key codec to fall back
// to — pass identitykey.Codec{} for the Ed25519/secp256k1 default.
func New(opts ...Option) (*Transport, error) {
	t := &Transport{
		useNoisePipes: true,
		cache:         NewStaticKeyCache(),
		metrics:       NopSink(),
		random:        rand.Reader,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	if t.codec == nil {
		return nil, wrapErr("new", CodeProtocolViolation, fmt.Errorf("no PublicKeyCodec configured; pass WithPublicKeyCodec"))
	}
	if t.static == (handshake.Keypair{}) {
		kp, err := handshake.GenerateKeypair(t.random)
		if err != nil {
			return nil, wrapErr("new", CodeUnderlyingIO, err)
		}
		t.static = kp
	}
	return t, nil
}

// ID returns the wire protocol identifier this transport negotiates.
func (t *Transport) ID() string { return ProtocolID }

// StaticPublicKey returns this transport's Noise static public key, for
// callers that advertise it out-of-band (e.g. to prime a peer's cache
// ahead of dialing).
func (t *Transport) StaticPublicKey() [32]byte { return t.static.Public }

// SecureOutbound runs the initiator side of a handshake over duplex,
// authenticating the remote against remote. On success it returns the
// secured duplex and the authenticated remote identity, which always
// equals remote.
func (t *Transport) SecureOutbound(local Identity, duplex Duplex, remote PeerID) (*SecureConn, PeerID, error) {
	deps := &selectorDeps{
		duplex: duplex,
		static: t.static,
		random: t.random,
		local:  local,
		codec:  t.codec,
		ext:    t.extensions,
	}

	outcome, err := selectInitiator(deps, t.useNoisePipes, t.cache, remote)
	if err != nil {
		incIfSet(t.metrics.HandshakeErrors)
		logger.Warn("noise outbound handshake failed", "remote", remote, "error", err)
		return nil, "", err
	}

	if outcome.payload == nil {
		incIfSet(t.metrics.HandshakeErrors)
		err := wrapErr("secure-outbound", CodeProtocolViolation, fmt.Errorf("handshake completed without an authenticated payload"))
		logger.Warn("noise outbound handshake missing payload", "remote", remote)
		return nil, "", err
	}

	if outcome.payload.peerID != remote {
		incIfSet(t.metrics.HandshakeErrors)
		err := wrapErr("secure-outbound", CodePeerMismatch, fmt.Errorf("authenticated peer %s != expected %s", outcome.payload.peerID, remote))
		logger.Warn("noise outbound peer mismatch", "remote", remote, "authenticated", outcome.payload.peerID)
		return nil, "", err
	}

	incIfSet(t.metrics.HandshakeSuccesses)
	local0 := localPeerID(local)
	conn := newSecureConn(duplex, outcome.send, outcome.recv, local0, outcome.payload.peerID, t.metrics)
	logger.Debug("noise outbound handshake succeeded", "remote", outcome.payload.peerID)
	return conn, outcome.payload.peerID, nil
}

// SecureInbound runs the responder side of a handshake over duplex. If
// expected is non-nil, the authenticated remote identity must match it or
// the call fails with CodePeerMismatch before any secured duplex is
// returned.
func (t *Transport) SecureInbound(local Identity, duplex Duplex, expected *PeerID) (*SecureConn, PeerID, error) {
	deps := &selectorDeps{
		duplex: duplex,
		static: t.static,
		random: t.random,
		local:  local,
		codec:  t.codec,
		ext:    t.extensions,
	}

	outcome, err := selectResponder(deps, t.useNoisePipes, t.cache)
	if err != nil {
		incIfSet(t.metrics.HandshakeErrors)
		logger.Warn("noise inbound handshake failed", "error", err)
		return nil, "", err
	}

	if outcome.payload == nil {
		incIfSet(t.metrics.HandshakeErrors)
		return nil, "", wrapErr("secure-inbound", CodeProtocolViolation, fmt.Errorf("handshake completed without an authenticated payload"))
	}

	if expected != nil && outcome.payload.peerID != *expected {
		incIfSet(t.metrics.HandshakeErrors)
		err := wrapErr("secure-inbound", CodePeerMismatch, fmt.Errorf("authenticated peer %s != expected %s", outcome.payload.peerID, *expected))
		logger.Warn("noise inbound peer mismatch", "expected", *expected, "authenticated", outcome.payload.peerID)
		return nil, "", err
	}

	incIfSet(t.metrics.HandshakeSuccesses)
	local0 := localPeerID(local)
	conn := newSecureConn(duplex, outcome.send, outcome.recv, local0, outcome.payload.peerID, t.metrics)
	logger.Debug("noise inbound handshake succeeded", "remote", outcome.payload.peerID)
	return conn, outcome.payload.peerID, nil
}

// localPeerID derives the local side's own PeerID for SecureConn.LocalPeer,
// logging rather than failing the handshake if derivation errors — the
// handshake itself already succeeded and authenticated the remote.
func localPeerID(local Identity) PeerID {
	id, err := PeerIDFromPublicKey(local.PrivateKey().PublicKey())
	if err != nil {
		logger.Warn("failed to derive local peer id", "error", err)
		return ""
	}
	return id
}
