// Package noise implements a Noise Protocol Framework secure-channel
// layer for peer-to-peer transports: Noise_XX_25519_ChaChaPoly_SHA256,
// with an IK-first "Noise pipes" optimization and XXfallback recovery
// when IK doesn't decrypt.
//
// A Transport authenticates peers by their long-term identity keys
// (Ed25519 or secp256k1, via internal/identitykey or a caller-supplied
// PublicKeyCodec), negotiates forward-secret session keys over an
// arbitrary bidirectional byte stream (a Duplex), and returns a
// SecureConn whose Read/Write transparently frame and AEAD-seal traffic.
//
// Establishing a secured connection:
//
//	t, err := noise.New(noise.WithPublicKeyCodec(identitykey.Codec{}))
//	conn, remotePeer, err := t.SecureOutbound(localIdentity, tcpConn, expectedPeer)
//	conn, remotePeer, err := t.SecureInbound(localIdentity, tcpConn, nil)
//
// Protocol properties:
//
//   - Mutual authentication: both sides sign their Noise static public
//     key with their long-term identity key; a bad signature aborts the
//     handshake before any application data is exchanged.
//   - Forward secrecy: session keys derive from ephemeral Diffie-Hellman
//     exchanges discarded at the end of the handshake.
//   - IK-first dialing: once a Transport has completed one XX (or
//     XXfallback) handshake with a peer, its static-key cache lets the
//     next dial to that peer use the two-message IK pattern instead of
//     XX's three, falling back to XXfallback transparently if the
//     responder no longer recognizes the cached key.
//   - Tamper detection: every handshake message and every transport
//     record is AEAD-authenticated; any modification in transit is
//     detected as a decryption failure, never silently accepted.
//
// What this package does not do: negotiate cipher suites (the DH/AEAD/
// hash triplet is fixed), support handshake patterns beyond XX/IK/
// XXfallback, or provide 0-RTT/session resumption beyond the best-effort
// static-key cache. Generating and marshalling identity keys, the
// underlying transport, and metrics/logging backends are all supplied by
// the caller through narrow collaborator interfaces (Identity,
// PublicKeyCodec, Duplex, MetricsSink).
package noise
