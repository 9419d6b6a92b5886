package handshake

import "errors"

// ErrNonceExhausted is returned by EncryptWithAd/DecryptWithAd once the
// 64-bit nonce counter has reached its maximum value. Per spec this is
// fatal: the CipherState must not be used again.
var ErrNonceExhausted = errors.New("handshake: nonce exhausted")

// ErrDecryptFailed is returned when AEAD verification fails. The nonce is
// not advanced on failure.
var ErrDecryptFailed = errors.New("handshake: decryption failed")

// maxNonce is 2^64-1, reserved by the spec for the rekey construction and
// therefore never a valid message nonce.
const maxNonce = ^uint64(0)

// CipherState holds a single AEAD key and its 64-bit send/receive nonce
// counter. It is unkeyed (HasKey() == false) until the first MixKey.
type CipherState struct {
	key      [32]byte
	hasKey   bool
	nonce    uint64
}

// InitializeKey sets the CipherState's key and resets its nonce to zero.
func (cs *CipherState) InitializeKey(key [32]byte) {
	cs.key = key
	cs.hasKey = true
	cs.nonce = 0
}

// HasKey reports whether a key has been set.
func (cs *CipherState) HasKey() bool {
	return cs.hasKey
}

// EncryptWithAd encrypts plaintext under the current key and associated
// data, advancing the nonce. If no key has been set, plaintext is returned
// unchanged (per the Noise spec, used while a SymmetricState has not yet
// derived a key).
func (cs *CipherState) EncryptWithAd(ad, plaintext []byte) ([]byte, error) {
	if !cs.hasKey {
		out := make([]byte, len(plaintext))
		copy(out, plaintext)
		return out, nil
	}
	if cs.nonce == maxNonce {
		return nil, ErrNonceExhausted
	}
	ciphertext, err := aeadEncrypt(cs.key, cs.nonce, ad, plaintext)
	if err != nil {
		return nil, err
	}
	cs.nonce++
	return ciphertext, nil
}

// DecryptWithAd decrypts ciphertext under the current key and associated
// data, advancing the nonce only on success. If no key has been set,
// ciphertext is returned unchanged.
func (cs *CipherState) DecryptWithAd(ad, ciphertext []byte) ([]byte, error) {
	if !cs.hasKey {
		out := make([]byte, len(ciphertext))
		copy(out, ciphertext)
		return out, nil
	}
	if cs.nonce == maxNonce {
		return nil, ErrNonceExhausted
	}
	plaintext, err := aeadDecrypt(cs.key, cs.nonce, ad, ciphertext)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	cs.nonce++
	return plaintext, nil
}

// Nonce returns the current nonce counter, for callers that track progress
// (e.g. metrics, tests asserting monotonicity).
func (cs *CipherState) Nonce() uint64 {
	return cs.nonce
}

// Rekey replaces the key with ENCRYPT(key, maxNonce, zero_ad, zero32) per
// the Noise spec. The nonce counter is left unchanged. The transport
// pipeline in this module never calls this automatically: rekeying
// resets neither the nonce counter nor the exhaustion risk it's meant to
// mitigate, so a caller that hits nonce exhaustion should renegotiate a
// fresh session rather than silently rekey mid-stream.
func (cs *CipherState) Rekey() error {
	var zero32 [32]byte
	out, err := aeadEncrypt(cs.key, maxNonce, nil, zero32[:])
	if err != nil {
		return err
	}
	copy(cs.key[:], out[:32])
	return nil
}

// Zero overwrites the key material. Callers should call this once a
// CipherState (in particular a handshake's intermediate, pre-Split state)
// is no longer needed.
func (cs *CipherState) Zero() {
	for i := range cs.key {
		cs.key[i] = 0
	}
	cs.hasKey = false
}
