package handshake

import (
	"errors"
	"io"
)

// ErrProtocolViolation is returned when a caller drives the HandshakeState
// out of order (e.g. calling WriteMessage on the wrong turn) or a peer
// sends a token the schedule did not expect.
var ErrProtocolViolation = errors.New("handshake: protocol violation")

// HandshakeState drives one run of a Noise pattern (XX, IK or
// XXfallback) for one role. It owns the local static+ephemeral keypairs
// and the remote static+ephemeral public keys, and consumes the
// pattern's per-role token schedule from patterns.go.
type HandshakeState struct {
	ss      SymmetricState
	role    Role
	pattern Pattern
	random  io.Reader

	s  Keypair // local static keypair (always required)
	e  Keypair // local ephemeral keypair (generated, or reused across an IK->XXfallback transition)
	rs [DHLen]byte
	re [DHLen]byte

	hasRS bool
	hasRE bool

	msgIndex int
}

// NewXX initializes a HandshakeState for the Noise_XX pattern. Neither
// side knows the other's static key in advance.
func NewXX(role Role, random io.Reader, static Keypair, prologue []byte) *HandshakeState {
	hs := &HandshakeState{role: role, pattern: PatternXX, random: random, s: static}
	hs.ss.InitializeSymmetric(protocolName(PatternXX))
	hs.ss.MixHash(prologue)
	return hs
}

// NewIK initializes a HandshakeState for the Noise_IK pattern. The
// initiator must already know the responder's static public key
// (remoteStatic); the responder mixes its own static key as the
// pre-message instead.
func NewIK(role Role, random io.Reader, static Keypair, remoteStatic [DHLen]byte, prologue []byte) *HandshakeState {
	hs := &HandshakeState{role: role, pattern: PatternIK, random: random, s: static}
	hs.ss.InitializeSymmetric(protocolName(PatternIK))
	hs.ss.MixHash(prologue)
	if role == Initiator {
		hs.rs = remoteStatic
		hs.hasRS = true
		hs.ss.MixHash(hs.rs[:])
	} else {
		hs.ss.MixHash(hs.s.Public[:])
	}
	return hs
}

// NewXXfallback initializes a HandshakeState for the Noise_XXfallback
// pattern, used after a responder fails to decrypt an IK first message.
// initiatorEphemeral is the public key the initiator already sent as
// part of the failed IK message 1; it is mixed in as a pre-message on
// both sides, exactly as if it had been sent as XX's first message. The
// initiator additionally supplies its
// own ephemeral *keypair* (ownEphemeral) since it must reuse it — not
// regenerate it — for the reduced schedule's "ee"/"es" tokens; the
// responder passes a zero Keypair and only initiatorEphemeral is used.
func NewXXfallback(role Role, random io.Reader, static Keypair, initiatorEphemeral [DHLen]byte, ownEphemeral Keypair, prologue []byte) *HandshakeState {
	hs := &HandshakeState{role: role, pattern: PatternXXfallback, random: random, s: static}
	hs.ss.InitializeSymmetric(protocolName(PatternXXfallback))
	hs.ss.MixHash(prologue)
	hs.ss.MixHash(initiatorEphemeral[:])
	if role == Initiator {
		hs.e = ownEphemeral
	} else {
		hs.re = initiatorEphemeral
		hs.hasRE = true
	}
	return hs
}

// schedule returns this handshake's pattern schedule.
func (hs *HandshakeState) schedule() patternSchedule {
	return schedules[hs.pattern]
}

// payloadIndexForRole returns the message index (0-based) at which hs's
// own role attaches the authenticated payload, or -1 if this role never
// does under the current pattern.
func (hs *HandshakeState) payloadIndexForRole() int {
	sched := hs.schedule()
	if hs.role == Initiator {
		return sched.InitiatorPayloadIndex
	}
	return sched.ResponderPayloadIndex
}

// dh resolves a DH token to the concrete (priv, pub) pair this role must
// use, per the token comments in patterns.go, and returns the DH output.
func (hs *HandshakeState) dh(token Token) ([]byte, error) {
	switch token {
	case TokenEE:
		return DH(hs.e.Private, hs.re)
	case TokenSS:
		return DH(hs.s.Private, hs.rs)
	case TokenES:
		if hs.role == Initiator {
			return DH(hs.e.Private, hs.rs)
		}
		return DH(hs.s.Private, hs.re)
	case TokenSE:
		if hs.role == Initiator {
			return DH(hs.s.Private, hs.re)
		}
		return DH(hs.e.Private, hs.rs)
	default:
		return nil, ErrProtocolViolation
	}
}

// WriteMessage processes the next message this role is scheduled to send,
// appending the (possibly DH-mixed, possibly encrypted) tokens followed by
// the EncryptAndHash'd payload if this role attaches one at this index.
// On the pattern's final message it also performs Split and returns the
// two transport CipherStates in Split's order, which is (send, recv) for
// the initiator and (recv, send) for the responder — see handshake.go for
// the role-based swap.
func (hs *HandshakeState) WriteMessage(payload []byte) (message []byte, cs1, cs2 *CipherState, err error) {
	sched := hs.schedule()
	if hs.msgIndex >= len(sched.Messages) {
		return nil, nil, nil, ErrProtocolViolation
	}
	step := sched.Messages[hs.msgIndex]
	if step.Sender != hs.role {
		return nil, nil, nil, ErrProtocolViolation
	}

	var out []byte
	for _, tok := range step.Tokens {
		switch tok {
		case TokenE:
			if hs.e.Public == ([DHLen]byte{}) {
				kp, genErr := GenerateKeypair(hs.random)
				if genErr != nil {
					return nil, nil, nil, genErr
				}
				hs.e = kp
			}
			hs.ss.MixHash(hs.e.Public[:])
			out = append(out, hs.e.Public[:]...)
		case TokenS:
			enc, encErr := hs.ss.EncryptAndHash(hs.s.Public[:])
			if encErr != nil {
				return nil, nil, nil, encErr
			}
			out = append(out, enc...)
		case TokenEE, TokenES, TokenSE, TokenSS:
			dhOut, dhErr := hs.dh(tok)
			if dhErr != nil {
				return nil, nil, nil, dhErr
			}
			hs.ss.MixKey(dhOut)
		}
	}

	if hs.payloadIndexForRole() == hs.msgIndex {
		enc, encErr := hs.ss.EncryptAndHash(payload)
		if encErr != nil {
			return nil, nil, nil, encErr
		}
		out = append(out, enc...)
	} else {
		// Tokens-only message: still mix an empty payload per spec so the
		// handshake hash stays in lockstep with the reader, which always
		// calls DecryptAndHash on the remainder of the message.
		enc, encErr := hs.ss.EncryptAndHash(nil)
		if encErr != nil {
			return nil, nil, nil, encErr
		}
		out = append(out, enc...)
	}

	hs.msgIndex++
	if hs.msgIndex == len(sched.Messages) {
		a, b := hs.ss.Split()
		cs1, cs2 = &a, &b
	}
	return out, cs1, cs2, nil
}

// ReadMessage mirrors WriteMessage for the receiving side: it consumes
// tokens from the front of message and DecryptAndHash's whatever remains
// as the payload.
func (hs *HandshakeState) ReadMessage(message []byte) (payload []byte, cs1, cs2 *CipherState, err error) {
	sched := hs.schedule()
	if hs.msgIndex >= len(sched.Messages) {
		return nil, nil, nil, ErrProtocolViolation
	}
	step := sched.Messages[hs.msgIndex]
	if step.Sender == hs.role {
		return nil, nil, nil, ErrProtocolViolation
	}

	buf := message
	for _, tok := range step.Tokens {
		switch tok {
		case TokenE:
			if len(buf) < DHLen {
				return nil, nil, nil, ErrMalformedMessage
			}
			var re [DHLen]byte
			copy(re[:], buf[:DHLen])
			buf = buf[DHLen:]
			if !ValidatePublicKey(re[:]) {
				return nil, nil, nil, ErrMalformedMessage
			}
			hs.re = re
			hs.hasRE = true
			hs.ss.MixHash(hs.re[:])
		case TokenS:
			n := DHLen
			if hs.ss.cs.HasKey() {
				n += TagLen
			}
			if len(buf) < n {
				return nil, nil, nil, ErrMalformedMessage
			}
			dec, decErr := hs.ss.DecryptAndHash(buf[:n])
			if decErr != nil {
				return nil, nil, nil, ErrDecryptFailed
			}
			buf = buf[n:]
			if len(dec) != DHLen || !ValidatePublicKey(dec) {
				return nil, nil, nil, ErrMalformedMessage
			}
			copy(hs.rs[:], dec)
			hs.hasRS = true
		case TokenEE, TokenES, TokenSE, TokenSS:
			dhOut, dhErr := hs.dh(tok)
			if dhErr != nil {
				return nil, nil, nil, dhErr
			}
			hs.ss.MixKey(dhOut)
		}
	}

	plaintext, decErr := hs.ss.DecryptAndHash(buf)
	if decErr != nil {
		return nil, nil, nil, ErrDecryptFailed
	}

	hs.msgIndex++
	if hs.msgIndex == len(sched.Messages) {
		a, b := hs.ss.Split()
		cs1, cs2 = &a, &b
	}
	return plaintext, cs1, cs2, nil
}

// NextSender reports which role sends the next message in this
// handshake's schedule, and false once the schedule is exhausted. The
// driver uses this to decide whether to call WriteMessage (and frame the
// result onto the duplex) or read a frame and call ReadMessage, without
// needing to know each pattern's message count or sender order itself.
func (hs *HandshakeState) NextSender() (Role, bool) {
	sched := hs.schedule()
	if hs.msgIndex >= len(sched.Messages) {
		return 0, false
	}
	return sched.Messages[hs.msgIndex].Sender, true
}

// Done reports whether every message in this handshake's schedule has
// been processed.
func (hs *HandshakeState) Done() bool {
	return hs.msgIndex >= len(hs.schedule().Messages)
}

// LocalEphemeral returns the local ephemeral keypair generated so far
// (zero-value if none has been generated yet). Used by the selector to
// carry an initiator's IK ephemeral into an XXfallback retry.
func (hs *HandshakeState) LocalEphemeral() Keypair {
	return hs.e
}

// RemoteStatic returns the verified remote static public key once a
// schedule's "s" token for the peer has been processed.
func (hs *HandshakeState) RemoteStatic() ([DHLen]byte, bool) {
	return hs.rs, hs.hasRS
}

// HandshakeHash exposes the running handshake hash for channel binding.
func (hs *HandshakeState) HandshakeHash() [HashLen]byte {
	return hs.ss.HandshakeHash()
}

// ErrMalformedMessage is returned when a handshake message is truncated
// or a token's key fails validation.
var ErrMalformedMessage = errors.New("handshake: malformed message")
