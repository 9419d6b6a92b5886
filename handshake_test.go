package noise

import (
	"crypto/rand"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dep2p-noise/internal/handshake"
)

func TestBuildVerifyPayload_RoundTrip(t *testing.T) {
	priv, err := newFakeIdentity()
	require.NoError(t, err)
	static, err := handshake.GenerateKeypair(rand.Reader)
	require.NoError(t, err)

	body, err := buildPayload(fakeCodec{}, priv, static.Public, nil)
	require.NoError(t, err)

	verified, err := verifyPayload(fakeCodec{}, body, static.Public)
	require.NoError(t, err)
	require.NotNil(t, verified)

	wantID, err := PeerIDFromPublicKey(priv.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, wantID, verified.peerID)
}

func TestVerifyPayload_RejectsBadSignature(t *testing.T) {
	priv, err := newFakeIdentity()
	require.NoError(t, err)
	static, err := handshake.GenerateKeypair(rand.Reader)
	require.NoError(t, err)
	otherStatic, err := handshake.GenerateKeypair(rand.Reader)
	require.NoError(t, err)

	// Sign over the real static key but verify against a different one:
	// the signature no longer matches, exactly what a tampered handshake
	// frame would produce.
	body, err := buildPayload(fakeCodec{}, priv, static.Public, nil)
	require.NoError(t, err)

	_, err = verifyPayload(fakeCodec{}, body, otherStatic.Public)
	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidSignature, code)
}

func TestVerifyPayload_RejectsMalformedBody(t *testing.T) {
	_, err := verifyPayload(fakeCodec{}, []byte{0xff, 0xff, 0xff}, [32]byte{})
	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, CodeMalformedMessage, code)
}

func TestRunSchedule_XXLoopback(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	iStatic, err := handshake.GenerateKeypair(rand.Reader)
	require.NoError(t, err)
	rStatic, err := handshake.GenerateKeypair(rand.Reader)
	require.NoError(t, err)

	iIdentity, err := newFakeIdentity()
	require.NoError(t, err)
	rIdentity, err := newFakeIdentity()
	require.NoError(t, err)

	iPayload, err := buildPayload(fakeCodec{}, iIdentity, iStatic.Public, nil)
	require.NoError(t, err)
	rPayload, err := buildPayload(fakeCodec{}, rIdentity, rStatic.Public, nil)
	require.NoError(t, err)

	type result struct {
		outcome *handshakeOutcome
		err     error
	}
	iCh := make(chan result, 1)
	rCh := make(chan result, 1)

	go func() {
		hs := handshake.NewXX(handshake.Initiator, rand.Reader, iStatic, prologue)
		outcome, err := runSchedule(clientConn, hs, handshake.Initiator, iPayload, fakeCodec{}, nil)
		iCh <- result{outcome, err}
	}()
	go func() {
		hs := handshake.NewXX(handshake.Responder, rand.Reader, rStatic, prologue)
		outcome, err := runSchedule(serverConn, hs, handshake.Responder, rPayload, fakeCodec{}, nil)
		rCh <- result{outcome, err}
	}()

	ir := <-iCh
	rr := <-rCh
	require.NoError(t, ir.err)
	require.NoError(t, rr.err)

	assert.Equal(t, ir.outcome.send, rr.outcome.recv)
	assert.Equal(t, ir.outcome.recv, rr.outcome.send)

	wantIPeer, err := PeerIDFromPublicKey(iIdentity.PublicKey())
	require.NoError(t, err)
	wantRPeer, err := PeerIDFromPublicKey(rIdentity.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, wantRPeer, ir.outcome.payload.peerID)
	assert.Equal(t, wantIPeer, rr.outcome.payload.peerID)
}
