package noise

import (
	"io"
	"sync"

	"go.uber.org/multierr"

	"github.com/dep2p/go-dep2p-noise/internal/handshake"
	"github.com/dep2p/go-dep2p-noise/internal/wire"
)

// maxPlaintextChunk is the largest plaintext unit the pipeline will seal
// into a single transport record: 2^16-1 minus the AEAD tag, so the
// sealed record's length still fits the wire's 16-bit prefix.
const maxPlaintextChunk = wire.MaxFrameLen - handshake.TagLen

// defaultPlaintextChunk is the chunk size Write splits large payloads
// into, well under maxPlaintextChunk to keep individual records small
// enough that a single slow write doesn't stall the pipe for long.
const defaultPlaintextChunk = 16384

// SecureConn is the post-handshake secured duplex: a full-duplex pipe
// that frames and AEAD-seals outbound plaintext and reverses the
// process on read, with a per-direction mutex and a leftover-bytes read
// buffer. Write always splits payloads larger than defaultPlaintextChunk
// rather than surfacing a size error, and Read reassembles across record
// boundaries transparently while still preserving each record's own
// boundary within a single Read call.
type SecureConn struct {
	duplex Duplex

	sendCS *handshake.CipherState
	recvCS *handshake.CipherState

	localPeer  PeerID
	remotePeer PeerID

	metrics *MetricsSink

	writeMu sync.Mutex
	readMu  sync.Mutex
	readBuf []byte

	closeOnce sync.Once
	closeErr  error
}

// newSecureConn wraps duplex with the CipherStates a handshake produced.
func newSecureConn(duplex Duplex, send, recv *handshake.CipherState, local, remote PeerID, metrics *MetricsSink) *SecureConn {
	return &SecureConn{
		duplex:     duplex,
		sendCS:     send,
		recvCS:     recv,
		localPeer:  local,
		remotePeer: remote,
		metrics:    metrics,
	}
}

// LocalPeer returns the local side's authenticated identity.
func (c *SecureConn) LocalPeer() PeerID { return c.localPeer }

// RemotePeer returns the authenticated identity of the peer this
// connection was secured with.
func (c *SecureConn) RemotePeer() PeerID { return c.remotePeer }

// Write encrypts p and writes it to the underlying duplex as one or more
// length-prefixed transport records, each sealing at most
// defaultPlaintextChunk bytes of plaintext. Chunk boundaries are
// preserved on the receiving side's Read calls.
func (c *SecureConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	written := 0
	for len(p) > 0 {
		n := len(p)
		if n > defaultPlaintextChunk {
			n = defaultPlaintextChunk
		}
		chunk := p[:n]
		p = p[n:]

		ciphertext, err := c.sendCS.EncryptWithAd(nil, chunk)
		if err != nil {
			return written, mapCipherErr("write", err)
		}
		if err := wire.WriteFrame(c.duplex, ciphertext); err != nil {
			return written, mapFrameErr("write", err)
		}
		incIfSet(c.metrics.EncryptedPackets)
		written += n
	}
	return written, nil
}

// Read fills p with decrypted plaintext, reading and unsealing transport
// records from the underlying duplex as needed. A record larger than p
// is buffered across successive Read calls without losing its identity
// as a single write-side chunk boundary.
func (c *SecureConn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.readBuf) > 0 {
		n := copy(p, c.readBuf)
		c.readBuf = c.readBuf[n:]
		return n, nil
	}

	frame, err := wire.ReadFrame(c.duplex)
	if err != nil {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, wrapErr("read", CodeUnderlyingIO, err)
	}

	plaintext, err := c.recvCS.DecryptWithAd(nil, frame)
	if err != nil {
		incIfSet(c.metrics.DecryptErrors)
		c.Close()
		return 0, mapCipherErr("read", err)
	}
	incIfSet(c.metrics.DecryptedPackets)

	n := copy(p, plaintext)
	if n < len(plaintext) {
		c.readBuf = plaintext[n:]
	}
	return n, nil
}

// Close closes the underlying duplex and zeroes both CipherStates.
// Idempotent: subsequent calls return the same result as the first.
func (c *SecureConn) Close() error {
	c.closeOnce.Do(func() {
		var errs error
		errs = multierr.Append(errs, c.duplex.Close())
		c.sendCS.Zero()
		c.recvCS.Zero()
		c.closeErr = errs
	})
	return c.closeErr
}

// mapCipherErr wraps a handshake.CipherState error (decrypt failure,
// nonce exhaustion) with this module's Code taxonomy.
func mapCipherErr(op string, err error) error {
	switch {
	case err == handshake.ErrDecryptFailed:
		return wrapErr(op, CodeDecrypt, err)
	case err == handshake.ErrNonceExhausted:
		return wrapErr(op, CodeNonceExhaustion, err)
	default:
		return wrapErr(op, CodeUnderlyingIO, err)
	}
}
