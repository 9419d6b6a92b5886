package noise

import (
	"io"

	"github.com/dep2p/go-dep2p-noise/internal/handshake"
	"github.com/dep2p/go-dep2p-noise/internal/wire"
)

// ikFailure carries what's needed to recover into XXfallback after an IK
// attempt fails: the raw bytes that failed to parse, and — for the
// initiator, which must reuse rather than regenerate its ephemeral — the
// keypair it used in the failed attempt. An explicit result type keeps
// this recoverable, expected condition out of the error return, which is
// reserved for failures the caller can't do anything but propagate.
type ikFailure struct {
	frame     []byte
	ephemeral handshake.Keypair
}

// selectorDeps bundles the per-attempt inputs every selection path
// shares, so selectInitiator/selectResponder don't pass eight positional
// arguments to each helper.
type selectorDeps struct {
	duplex Duplex
	static handshake.Keypair
	random io.Reader
	local  Identity
	codec  PublicKeyCodec
	ext    *Extensions
}

func (d *selectorDeps) buildLocalPayload() ([]byte, error) {
	return buildPayload(d.codec, d.local.PrivateKey(), d.static.Public, d.ext)
}

// initiatorAttemptIK runs the two-message IK schedule for the initiator.
// A non-nil *ikFailure means message 2 failed to decrypt — the signal
// that the responder has itself fallen back to XXfallback — and carries
// the raw message-2 bytes plus the initiator's own
// ephemeral for the caller to retry with NewXXfallback.
func initiatorAttemptIK(d *selectorDeps, hsIK *handshake.HandshakeState, payload []byte) (*handshakeOutcome, *ikFailure, error) {
	msg1, _, _, err := hsIK.WriteMessage(payload)
	if err != nil {
		return nil, nil, mapHandshakeErr("ik-initiator-write-1", err)
	}
	if err := wire.WriteFrame(d.duplex, msg1); err != nil {
		return nil, nil, mapFrameErr("ik-initiator-write-1", err)
	}

	frame2, err := wire.ReadFrame(d.duplex)
	if err != nil {
		return nil, nil, wrapErr("ik-initiator-read-2", CodeUnderlyingIO, err)
	}

	plaintext, cs1, cs2, rerr := hsIK.ReadMessage(frame2)
	if rerr != nil {
		return nil, &ikFailure{frame: frame2, ephemeral: hsIK.LocalEphemeral()}, nil
	}

	outcome, err := finishOutcome(d.codec, cs1, cs2, plaintext, hsIK)
	if err != nil {
		return nil, nil, err
	}
	return outcome, nil, nil
}

// responderAttemptIK runs the first, decrypt-probing half of the IK
// schedule for the responder. A non-nil *ikFailure means the initiator's
// message 1 did not decrypt under IK — the standard Noise-pipes trigger
// for falling back to XXfallback — and carries the raw message-1 bytes
// so the caller can extract the initiator's ephemeral (its first 32
// bytes) for the fallback's pre-message.
func responderAttemptIK(d *selectorDeps, hsIK *handshake.HandshakeState, payload []byte) (*handshakeOutcome, *ikFailure, error) {
	frame1, err := wire.ReadFrame(d.duplex)
	if err != nil {
		return nil, nil, wrapErr("ik-responder-read-1", CodeUnderlyingIO, err)
	}

	plaintext, _, _, rerr := hsIK.ReadMessage(frame1)
	if rerr != nil {
		return nil, &ikFailure{frame: frame1}, nil
	}

	msg2, cs1, cs2, werr := hsIK.WriteMessage(payload)
	if werr != nil {
		return nil, nil, mapHandshakeErr("ik-responder-write-2", werr)
	}
	if err := wire.WriteFrame(d.duplex, msg2); err != nil {
		return nil, nil, mapFrameErr("ik-responder-write-2", err)
	}

	// IK's schedule attaches the initiator's payload to message 1 (read
	// above) and the responder's own to message 2 (written above, using
	// the local identity, not something to re-verify against itself) —
	// so the payload to authenticate here is the one already captured
	// from message 1.
	outcome, err := finishOutcome(d.codec, cs1, cs2, plaintext, hsIK)
	if err != nil {
		return nil, nil, err
	}
	// Split orientation: the responder's Split-pair is (recv, send); see
	// runSchedule's role-based swap, mirrored here since this path calls
	// WriteMessage/ReadMessage directly instead of going through it.
	outcome.send, outcome.recv = cs2, cs1
	return outcome, nil, nil
}

// finishOutcome builds a handshakeOutcome from a completed (or
// in-progress, pre-Split) pair of messages, verifying the peer's
// payload if one was captured. It assumes initiator Split orientation
// (send=cs1, recv=cs2); responderAttemptIK corrects this afterward.
func finishOutcome(codec PublicKeyCodec, cs1, cs2 *handshake.CipherState, plaintext []byte, hs *handshake.HandshakeState) (*handshakeOutcome, error) {
	var remoteStatic [32]byte
	if rs, ok := hs.RemoteStatic(); ok {
		remoteStatic = rs
	}
	outcome := &handshakeOutcome{send: cs1, recv: cs2, remoteStatic: remoteStatic}
	if len(plaintext) > 0 {
		verified, err := verifyPayload(codec, plaintext, remoteStatic)
		if err != nil {
			return nil, err
		}
		outcome.payload = verified
	}
	return outcome, nil
}

// selectInitiator runs the initiator side of pattern selection and
// fallback: IK when useNoisePipes is set and the cache holds remote's
// static key, otherwise XX directly; IK failure recovers once into
// XXfallback. On any successful completion (IK, XX, or XXfallback) the
// peer's static key is recorded in cache.
func selectInitiator(d *selectorDeps, useNoisePipes bool, cache *StaticKeyCache, remote PeerID) (*handshakeOutcome, error) {
	payload, err := d.buildLocalPayload()
	if err != nil {
		return nil, err
	}

	if useNoisePipes {
		if cachedStatic, ok := cache.Get(remote); ok {
			hsIK := handshake.NewIK(handshake.Initiator, d.random, d.static, cachedStatic, prologue)
			outcome, fail, err := initiatorAttemptIK(d, hsIK, payload)
			if err != nil {
				return nil, err
			}
			if fail == nil {
				cachePeer(cache, outcome)
				return outcome, nil
			}
			hsFB := handshake.NewXXfallback(handshake.Initiator, d.random, d.static, fail.ephemeral.Public, fail.ephemeral, prologue)
			outcome, err = runSchedule(d.duplex, hsFB, handshake.Initiator, payload, d.codec, fail.frame)
			if err != nil {
				return nil, err
			}
			cachePeer(cache, outcome)
			return outcome, nil
		}
	}

	hsXX := handshake.NewXX(handshake.Initiator, d.random, d.static, prologue)
	outcome, err := runSchedule(d.duplex, hsXX, handshake.Initiator, payload, d.codec, nil)
	if err != nil {
		return nil, err
	}
	cachePeer(cache, outcome)
	return outcome, nil
}

// selectResponder runs the responder side of pattern selection and
// fallback: IK-first when useNoisePipes is set, recovering into
// XXfallback whenever the initiator's first message does not decrypt as
// IK; XX directly otherwise.
func selectResponder(d *selectorDeps, useNoisePipes bool, cache *StaticKeyCache) (*handshakeOutcome, error) {
	payload, err := d.buildLocalPayload()
	if err != nil {
		return nil, err
	}

	if useNoisePipes {
		hsIK := handshake.NewIK(handshake.Responder, d.random, d.static, [32]byte{}, prologue)
		outcome, fail, err := responderAttemptIK(d, hsIK, payload)
		if err != nil {
			return nil, err
		}
		if fail == nil {
			cachePeer(cache, outcome)
			return outcome, nil
		}

		var initiatorEphemeral [32]byte
		if len(fail.frame) < 32 {
			return nil, wrapErr("xxfallback-responder", CodeMalformedMessage, nil)
		}
		copy(initiatorEphemeral[:], fail.frame[:32])

		hsFB := handshake.NewXXfallback(handshake.Responder, d.random, d.static, initiatorEphemeral, handshake.Keypair{}, prologue)
		outcome, err = runSchedule(d.duplex, hsFB, handshake.Responder, payload, d.codec, nil)
		if err != nil {
			return nil, err
		}
		cachePeer(cache, outcome)
		return outcome, nil
	}

	hsXX := handshake.NewXX(handshake.Responder, d.random, d.static, prologue)
	outcome, err := runSchedule(d.duplex, hsXX, handshake.Responder, payload, d.codec, nil)
	if err != nil {
		return nil, err
	}
	cachePeer(cache, outcome)
	return outcome, nil
}

// cachePeer records a completed handshake's peer identity and Noise
// static key, so a later dial to the same peer can attempt IK. A peer
// that completes the handshake without attaching an authenticated
// payload (the far side's WriteMessage call passed no payload, or an
// empty one) leaves outcome.payload nil; that peer's identity is simply
// never cached, since there is no PeerID to key the entry on.
func cachePeer(cache *StaticKeyCache, outcome *handshakeOutcome) {
	if outcome.payload == nil {
		return
	}
	cache.Put(outcome.payload.peerID, outcome.remoteStatic)
}
