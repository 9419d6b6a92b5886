package noise

import (
	"errors"

	"github.com/dep2p/go-dep2p-noise/internal/handshake"
	"github.com/dep2p/go-dep2p-noise/internal/wire"
)

// payloadSigPrefix is the domain separator every identity signature over
// a Noise static public key is computed over: the ASCII string
// "noise-libp2p-static-key:" with no terminator, concatenated directly
// with the 32-byte static public key. Domain-separating the signature
// this way keeps it from being replayable as a signature over some other
// protocol's use of the same static key bytes.
const payloadSigPrefix = "noise-libp2p-static-key:"

// prologue is mixed into every handshake's SymmetricState immediately
// after initialization, binding the negotiated application protocol
// identifier into the handshake hash so a transcript can't be replayed
// under a different protocol name.
var prologue = []byte("/noise")

// Extensions carries the handshake payload's optional extension fields.
// The zero value has none set.
type Extensions struct {
	WebtransportCerthashes [][]byte
}

func (e *Extensions) toWire() *wire.NoiseExtensions {
	if e == nil {
		return nil
	}
	return &wire.NoiseExtensions{WebtransportCerthashes: e.WebtransportCerthashes}
}

func extensionsFromWire(w *wire.NoiseExtensions) *Extensions {
	if w == nil {
		return nil
	}
	return &Extensions{WebtransportCerthashes: w.WebtransportCerthashes}
}

// buildPayload constructs and marshals the authenticated handshake
// payload this side sends: its identity public key, a signature over
// payloadSigPrefix||staticPub, and any caller-supplied extensions.
func buildPayload(codec PublicKeyCodec, local PrivateKey, staticPub [32]byte, ext *Extensions) ([]byte, error) {
	identityKey, err := codec.MarshalPublicKey(local.PublicKey())
	if err != nil {
		return nil, wrapErr("build-payload", CodeProtocolViolation, err)
	}
	toSign := append([]byte(payloadSigPrefix), staticPub[:]...)
	sig, err := local.Sign(toSign)
	if err != nil {
		return nil, wrapErr("build-payload", CodeProtocolViolation, err)
	}
	payload := &wire.NoiseHandshakePayload{
		IdentityKey: identityKey,
		IdentitySig: sig,
		Extensions:  ext.toWire(),
	}
	body, err := payload.Marshal()
	if err != nil {
		return nil, wrapErr("build-payload", CodeProtocolViolation, err)
	}
	return body, nil
}

// verifiedPayload is the result of decoding and authenticating a peer's
// handshake payload.
type verifiedPayload struct {
	identity   PublicKey
	peerID     PeerID
	extensions *Extensions
}

// verifyPayload decodes body as a NoiseHandshakePayload, verifies
// identity_sig against identity_key over payloadSigPrefix||remoteStatic,
// and derives the peer's PeerID. Signature or decode failure is fatal
// (CodeInvalidSignature / CodeMalformedMessage).
func verifyPayload(codec PublicKeyCodec, body []byte, remoteStatic [32]byte) (*verifiedPayload, error) {
	payload := &wire.NoiseHandshakePayload{}
	if err := payload.Unmarshal(body); err != nil {
		return nil, wrapErr("verify-payload", CodeMalformedMessage, err)
	}

	identity, err := codec.UnmarshalPublicKey(payload.IdentityKey)
	if err != nil {
		return nil, wrapErr("verify-payload", CodeMalformedMessage, err)
	}

	toVerify := append([]byte(payloadSigPrefix), remoteStatic[:]...)
	ok, err := identity.Verify(toVerify, payload.IdentitySig)
	if err != nil {
		return nil, wrapErr("verify-payload", CodeInvalidSignature, err)
	}
	if !ok {
		return nil, wrapErr("verify-payload", CodeInvalidSignature, nil)
	}

	peerID, err := PeerIDFromPublicKey(identity)
	if err != nil {
		return nil, wrapErr("verify-payload", CodeMalformedMessage, err)
	}

	return &verifiedPayload{
		identity:   identity,
		peerID:     peerID,
		extensions: extensionsFromWire(payload.Extensions),
	}, nil
}

// handshakeOutcome is what a completed handshake driver run produces:
// the two transport CipherStates (oriented send/recv for the local
// role), the peer's authenticated identity, and its Noise static public
// key (recorded in the cache on any successful completion — XX, IK, or
// XXfallback — so a later dial to the same peer can attempt IK).
type handshakeOutcome struct {
	send, recv   *handshake.CipherState
	remoteStatic [32]byte
	payload      *verifiedPayload
}

// runSchedule drives hs to completion over duplex, generically across
// whichever pattern hs was constructed for: propose/exchange/finish
// collapsed into one loop since HandshakeState.NextSender already
// encodes each pattern's per-message sender and payload-attachment
// rules. localPayload is passed to every WriteMessage call;
// HandshakeState only actually uses it at the message index the pattern
// attaches a payload to (patterns.go).
//
// Maximum handshake frame payload is bounded by wire.MaxFrameLen
// (65535 bytes); WriteFrame enforces this.
// preloadedFrame, when non-nil, is used as the body for the schedule's
// first ReadMessage instead of reading a fresh frame off duplex. The
// initiator's IK-to-XXfallback recovery path (selector.go) needs this:
// the bytes that failed to decrypt as IK message 2 are the responder's
// already-sent XXfallback message 0, and must be replayed into the new
// HandshakeState rather than read a second time from the wire.
func runSchedule(duplex Duplex, hs *handshake.HandshakeState, role handshake.Role, localPayload []byte, codec PublicKeyCodec, preloadedFrame []byte) (*handshakeOutcome, error) {
	var cs1, cs2 *handshake.CipherState
	var remoteBody []byte
	var remoteStaticAtPayload [32]byte

	for !hs.Done() {
		sender, ok := hs.NextSender()
		if !ok {
			break
		}
		if sender == role {
			msg, a, b, err := hs.WriteMessage(localPayload)
			if err != nil {
				return nil, mapHandshakeErr("write-message", err)
			}
			if err := wire.WriteFrame(duplex, msg); err != nil {
				return nil, mapFrameErr("write-message", err)
			}
			if a != nil {
				cs1, cs2 = a, b
			}
		} else {
			var frame []byte
			if preloadedFrame != nil {
				frame, preloadedFrame = preloadedFrame, nil
			} else {
				var err error
				frame, err = wire.ReadFrame(duplex)
				if err != nil {
					return nil, wrapErr("read-message", CodeUnderlyingIO, err)
				}
			}
			plaintext, a, b, err := hs.ReadMessage(frame)
			if err != nil {
				return nil, mapHandshakeErr("read-message", err)
			}
			if len(plaintext) > 0 {
				remoteBody = plaintext
				if rs, ok := hs.RemoteStatic(); ok {
					remoteStaticAtPayload = rs
				}
			}
			if a != nil {
				cs1, cs2 = a, b
			}
		}
	}

	if cs1 == nil {
		return nil, wrapErr("run-schedule", CodeProtocolViolation, nil)
	}

	var send, recv *handshake.CipherState
	if role == handshake.Initiator {
		send, recv = cs1, cs2
	} else {
		send, recv = cs2, cs1
	}

	out := &handshakeOutcome{send: send, recv: recv, remoteStatic: remoteStaticAtPayload}
	if len(remoteBody) > 0 {
		verified, err := verifyPayload(codec, remoteBody, remoteStaticAtPayload)
		if err != nil {
			return nil, err
		}
		out.payload = verified
	}
	return out, nil
}

// mapHandshakeErr wraps an internal/handshake sentinel error with this
// module's exported Code taxonomy.
func mapHandshakeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, handshake.ErrDecryptFailed):
		return wrapErr(op, CodeDecrypt, err)
	case errors.Is(err, handshake.ErrMalformedMessage):
		return wrapErr(op, CodeMalformedMessage, err)
	case errors.Is(err, handshake.ErrNonceExhausted):
		return wrapErr(op, CodeNonceExhaustion, err)
	case errors.Is(err, handshake.ErrProtocolViolation):
		return wrapErr(op, CodeProtocolViolation, err)
	default:
		return wrapErr(op, CodeProtocolViolation, err)
	}
}

func mapFrameErr(op string, err error) error {
	if errors.Is(err, wire.ErrFrameTooLarge) {
		return wrapErr(op, CodeMalformedMessage, err)
	}
	return wrapErr(op, CodeUnderlyingIO, err)
}
