package handshake

// SymmetricState drives the chaining key / handshake hash bookkeeping
// around a CipherState, implementing the Noise spec's MixKey, MixHash,
// MixKeyAndHash, EncryptAndHash, DecryptAndHash and Split. `cipher` (here
// `cs`) is owned by this type and mutated only by InitializeSymmetric,
// MixKey, MixKeyAndHash, EncryptAndHash and DecryptAndHash; nothing else
// touches it directly, so its nonce counter can only ever advance through
// this type's own methods.
type SymmetricState struct {
	ck     [HashLen]byte
	h      [HashLen]byte
	cs     CipherState
}

// protocolName returns the full Noise protocol name for one of the three
// supported patterns.
func protocolName(pattern Pattern) []byte {
	switch pattern {
	case PatternXX:
		return []byte("Noise_XX_25519_ChaChaPoly_SHA256")
	case PatternIK:
		return []byte("Noise_IK_25519_ChaChaPoly_SHA256")
	case PatternXXfallback:
		return []byte("Noise_XXfallback_25519_ChaChaPoly_SHA256")
	default:
		panic("handshake: unknown pattern")
	}
}

// InitializeSymmetric sets h = SHA256(name) for every protocol name,
// including the 32-byte XX and IK names, sets ck = h, and clears the
// cipher.
func (ss *SymmetricState) InitializeSymmetric(name []byte) {
	ss.h = Hash(name)
	ss.ck = ss.h
	ss.cs = CipherState{}
}

// MixHash folds data into the running handshake hash.
func (ss *SymmetricState) MixHash(data []byte) {
	buf := make([]byte, 0, HashLen+len(data))
	buf = append(buf, ss.h[:]...)
	buf = append(buf, data...)
	ss.h = Hash(buf)
}

// MixKey derives a new chaining key and CipherState key from a DH output.
func (ss *SymmetricState) MixKey(inputKeyMaterial []byte) {
	outputs := hkdf(ss.ck[:], inputKeyMaterial, 2)
	copy(ss.ck[:], outputs[0])
	var key [32]byte
	copy(key[:], outputs[1])
	ss.cs.InitializeKey(key)
}

// MixKeyAndHash derives a new chaining key, mixes an intermediate value
// into the handshake hash, and derives a new CipherState key. Used for
// PSK tokens; unused by XX/IK/XXfallback but implemented alongside
// MixKey/MixHash so a PSK-modified pattern could be added later without
// changing SymmetricState's shape.
func (ss *SymmetricState) MixKeyAndHash(inputKeyMaterial []byte) {
	outputs := hkdf(ss.ck[:], inputKeyMaterial, 3)
	copy(ss.ck[:], outputs[0])
	ss.MixHash(outputs[1])
	var key [32]byte
	copy(key[:], outputs[2])
	ss.cs.InitializeKey(key)
}

// EncryptAndHash encrypts plaintext (AD = current handshake hash) and
// mixes the ciphertext into the handshake hash. Before any key is
// established this degenerates to MixHash(plaintext) with plaintext
// passed through unchanged, per the Noise spec.
func (ss *SymmetricState) EncryptAndHash(plaintext []byte) ([]byte, error) {
	ciphertext, err := ss.cs.EncryptWithAd(ss.h[:], plaintext)
	if err != nil {
		return nil, err
	}
	ss.MixHash(ciphertext)
	return ciphertext, nil
}

// DecryptAndHash decrypts ciphertext (AD = current handshake hash) and
// mixes the *ciphertext* (not the plaintext) into the handshake hash.
func (ss *SymmetricState) DecryptAndHash(ciphertext []byte) ([]byte, error) {
	plaintext, err := ss.cs.DecryptWithAd(ss.h[:], ciphertext)
	if err != nil {
		return nil, err
	}
	ss.MixHash(ciphertext)
	return plaintext, nil
}

// Split derives the two transport CipherStates from the final chaining
// key. The caller is responsible for assigning (send, recv) vs.
// (recv, send) according to role.
func (ss *SymmetricState) Split() (cs1, cs2 CipherState) {
	outputs := hkdf(ss.ck[:], nil, 2)
	var k1, k2 [32]byte
	copy(k1[:], outputs[0])
	copy(k2[:], outputs[1])
	cs1.InitializeKey(k1)
	cs2.InitializeKey(k2)
	return cs1, cs2
}

// HandshakeHash returns the current handshake hash h, used by callers that
// want a channel-binding value once the handshake completes.
func (ss *SymmetricState) HandshakeHash() [HashLen]byte {
	return ss.h
}
